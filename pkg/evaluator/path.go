package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
)

// PathPart is one segment of a value path: either a record property or a
// list index.
type PathPart struct {
	Key     string
	Index   int
	IsIndex bool
}

func (p PathPart) String() string {
	if p.IsIndex {
		return "[" + strconv.Itoa(p.Index) + "]"
	}
	return p.Key
}

// IsPath reports whether s uses path syntax rather than naming a plain binding.
func IsPath(s string) bool {
	return strings.ContainsAny(s, ".[")
}

// ParsePath splits "a.b[2].c" into segments. Empty property segments are skipped.
func ParsePath(path string) ([]PathPart, error) {
	var parts []PathPart
	var cur strings.Builder
	inBracket := false

	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, PathPart{Key: cur.String()})
			cur.Reset()
		}
	}

	for _, c := range path {
		switch {
		case c == '.' && !inBracket:
			flush()
		case c == '[' && !inBracket:
			flush()
			inBracket = true
		case c == ']' && inBracket:
			idx, err := strconv.Atoi(strings.TrimSpace(cur.String()))
			if err != nil || idx < 0 {
				return nil, pathError(fmt.Sprintf("invalid list index '%s' in path '%s'", cur.String(), path))
			}
			parts = append(parts, PathPart{Index: idx, IsIndex: true})
			cur.Reset()
			inBracket = false
		default:
			cur.WriteRune(c)
		}
	}
	if inBracket {
		return nil, pathError(fmt.Sprintf("unterminated '[' in path '%s'", path))
	}
	flush()

	if len(parts) == 0 {
		return nil, pathError("path must not be empty")
	}
	return parts, nil
}

func pathError(msg string) *NJRuntimeError {
	return &NJRuntimeError{Code: diagnostics.EPath, Message: msg}
}

// GetPath walks parts from root. Missing keys, out-of-range indices and
// type mismatches yield null.
func GetPath(root NJValue, parts []PathPart) NJValue {
	cur := root
	for _, p := range parts {
		if p.IsIndex {
			list, ok := cur.(NJList)
			if !ok || p.Index >= len(list.Items) {
				return NewNull()
			}
			cur = list.Items[p.Index]
			continue
		}
		rec, ok := cur.(NJRecord)
		if !ok {
			return NewNull()
		}
		next, found := rec.Get(p.Key)
		if !found {
			return NewNull()
		}
		cur = next
	}
	if cur == nil {
		return NewNull()
	}
	return cur
}

// SetPath returns a copy of root with value stored at parts. Containers on
// the way are created (or replaced when of the wrong kind) to fit the
// following segment, and short lists are padded with null. root itself is
// never mutated.
func SetPath(root NJValue, parts []PathPart, value NJValue) NJValue {
	if len(parts) == 0 {
		return value
	}
	p := parts[0]
	rest := parts[1:]

	if p.IsIndex {
		var items []NJValue
		if list, ok := root.(NJList); ok {
			items = make([]NJValue, len(list.Items), max(len(list.Items), p.Index+1))
			copy(items, list.Items)
		}
		for len(items) <= p.Index {
			items = append(items, NewNull())
		}
		items[p.Index] = SetPath(childFor(items[p.Index], rest), rest, value)
		return NewList(items)
	}

	rec, ok := root.(NJRecord)
	if !ok {
		rec = EmptyRecord()
	}
	var child NJValue = NewNull()
	if existing, found := rec.Get(p.Key); found {
		child = existing
	}
	return rec.With(p.Key, SetPath(childFor(child, rest), rest, value))
}

// childFor returns existing when it is the container kind rest needs next,
// or a fresh empty container otherwise.
func childFor(existing NJValue, rest []PathPart) NJValue {
	if len(rest) == 0 {
		return existing
	}
	if rest[0].IsIndex {
		if _, ok := existing.(NJList); ok {
			return existing
		}
		return NewList(nil)
	}
	if _, ok := existing.(NJRecord); ok {
		return existing
	}
	return EmptyRecord()
}

// FormatPath renders parts back into path syntax.
func FormatPath(parts []PathPart) string {
	var b strings.Builder
	for i, p := range parts {
		if !p.IsIndex && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(p.String())
	}
	return b.String()
}
