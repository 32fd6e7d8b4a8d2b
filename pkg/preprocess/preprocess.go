// Package preprocess strips // and /* */ comments from NJIL documents
// before they are decoded.
package preprocess

import "strings"

type scanner struct {
	source string
	pos    int
	out    strings.Builder
	found  bool
}

func newScanner(source string) *scanner {
	s := &scanner{source: source}
	s.out.Grow(len(source))
	return s
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	return ch
}

func (s *scanner) emit(ch byte) {
	s.out.WriteByte(ch)
}

// StripComments removes comments outside string literals. Line breaks
// inside and after comments are kept so decoder positions still match
// the original line numbers. An unterminated block comment runs to the
// end of the input.
func StripComments(source string) string {
	s := newScanner(source)
	s.run()
	return s.out.String()
}

// HasComments reports whether source contains any comment outside strings.
func HasComments(source string) bool {
	s := newScanner(source)
	s.run()
	return s.found
}

func (s *scanner) run() {
	for !s.atEnd() {
		ch := s.peek()
		switch {
		case ch == '"':
			s.scanString()
		case ch == '/' && s.peekAt(1) == '/':
			s.found = true
			s.skipLineComment()
		case ch == '/' && s.peekAt(1) == '*':
			s.found = true
			s.skipBlockComment()
		default:
			s.emit(s.advance())
		}
	}
}

// scanString copies a string literal, honouring backslash escapes.
func (s *scanner) scanString() {
	s.emit(s.advance()) // opening "
	for !s.atEnd() {
		ch := s.advance()
		s.emit(ch)
		switch ch {
		case '\\':
			if !s.atEnd() {
				s.emit(s.advance())
			}
		case '"':
			return
		}
	}
}

func (s *scanner) skipLineComment() {
	s.pos += 2
	for !s.atEnd() {
		ch := s.peek()
		if ch == '\n' || ch == '\r' {
			return
		}
		s.advance()
	}
}

func (s *scanner) skipBlockComment() {
	s.pos += 2
	for !s.atEnd() {
		if s.peek() == '*' && s.peekAt(1) == '/' {
			s.pos += 2
			return
		}
		if ch := s.advance(); ch == '\n' {
			s.emit(ch)
		}
	}
}
