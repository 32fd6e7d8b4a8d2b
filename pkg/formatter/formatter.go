// Package formatter renders NJIL documents in canonical form: two-space
// indented JSON with short collections kept on one line, or YAML.
package formatter

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

const (
	indent   = "  "
	maxWidth = 80
)

// Format pretty-prints a value tree as JSON.
func Format(v evaluator.NJValue) string {
	return formatValue(v, 0) + "\n"
}

func formatValue(v evaluator.NJValue, depth int) string {
	if inline := formatInline(v); len(inline)+depth*len(indent) <= maxWidth {
		return inline
	}
	pad := strings.Repeat(indent, depth+1)
	closePad := strings.Repeat(indent, depth)

	switch val := v.(type) {
	case evaluator.NJList:
		lines := make([]string, len(val.Items))
		for i, item := range val.Items {
			lines[i] = pad + formatValue(item, depth+1)
		}
		return "[\n" + strings.Join(lines, ",\n") + "\n" + closePad + "]"

	case evaluator.NJRecord:
		lines := make([]string, len(val.Pairs))
		for i, kv := range val.Pairs {
			lines[i] = pad + quote(kv.Key) + ": " + formatValue(kv.Value, depth+1)
		}
		return "{\n" + strings.Join(lines, ",\n") + "\n" + closePad + "}"
	}
	return formatInline(v)
}

// formatInline renders v on a single line.
func formatInline(v evaluator.NJValue) string {
	switch val := v.(type) {
	case evaluator.NJNull:
		return "null"
	case evaluator.NJBool:
		if val.Value {
			return "true"
		}
		return "false"
	case evaluator.NJNumber:
		if math.IsInf(val.Value, 0) || math.IsNaN(val.Value) {
			return "null"
		}
		return evaluator.FormatNumber(val.Value)
	case evaluator.NJString:
		return quote(val.Value)
	case evaluator.NJList:
		if len(val.Items) == 0 {
			return "[]"
		}
		parts := make([]string, len(val.Items))
		for i, item := range val.Items {
			parts[i] = formatInline(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case evaluator.NJRecord:
		if len(val.Pairs) == 0 {
			return "{}"
		}
		parts := make([]string, len(val.Pairs))
		for i, kv := range val.Pairs {
			parts[i] = quote(kv.Key) + ": " + formatInline(kv.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "null"
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// FormatYAML renders a value tree as YAML, keeping mapping order.
func FormatYAML(v evaluator.NJValue) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toNode(v)); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toNode(v evaluator.NJValue) *yaml.Node {
	switch val := v.(type) {
	case evaluator.NJBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: formatInline(val)}
	case evaluator.NJNumber:
		if math.IsInf(val.Value, 0) || math.IsNaN(val.Value) {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		}
		tag := "!!float"
		if val.Value == math.Trunc(val.Value) {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: evaluator.FormatNumber(val.Value)}
	case evaluator.NJString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: val.Value}
	case evaluator.NJList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range val.Items {
			n.Content = append(n.Content, toNode(item))
		}
		if len(val.Items) > 0 && len(formatInline(val)) <= maxWidth/2 {
			n.Style = yaml.FlowStyle
		}
		return n
	case evaluator.NJRecord:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, kv := range val.Pairs {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: kv.Key},
				toNode(kv.Value))
		}
		return n
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}
