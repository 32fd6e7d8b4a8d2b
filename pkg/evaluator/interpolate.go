package evaluator

import "regexp"

var interpPattern = regexp.MustCompile(`\$\{(var|const):([^}]+)\}`)

// Interpolate replaces ${var:path} and ${const:path} references in s.
// Missing variables render as "undefined:path"; missing constants are
// left in place.
func (ip *Interpreter) Interpolate(s string) string {
	if len(s) < 4 {
		return s
	}
	return interpPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := interpPattern.FindStringSubmatch(m)
		kind, path := sub[1], sub[2]
		v, err := ip.frame.ReadPath(path, kind == "const")
		if err != nil {
			if kind == "var" {
				return "undefined:" + path
			}
			return m
		}
		return ToString(v)
	})
}

// Display renders v for output, interpolating string values.
func (ip *Interpreter) Display(v NJValue) string {
	if s, ok := v.(NJString); ok {
		return ip.Interpolate(s.Value)
	}
	return ToString(v)
}
