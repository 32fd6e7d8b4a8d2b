package parser

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

// decodeYAML walks the yaml.v3 node tree instead of unmarshalling into
// maps, so mapping order survives.
func decodeYAML(source, filename string) (evaluator.NJValue, []diagnostics.Diagnostic) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(source), &root); err != nil {
		return nil, []diagnostics.Diagnostic{
			diagnostics.MakeDiag(diagnostics.EParse, strings.TrimPrefix(err.Error(), "yaml: "), yamlErrorSpan(filename, err), ""),
		}
	}
	if root.Kind == 0 {
		return nil, []diagnostics.Diagnostic{
			diagnostics.MakeDiag(diagnostics.EParse, "empty document", docSpan(filename), ""),
		}
	}
	v, err := nodeToValue(&root)
	if err != nil {
		return nil, []diagnostics.Diagnostic{
			diagnostics.MakeDiag(diagnostics.EParse, err.msg, &diagnostics.Span{File: filename, Line: err.line, Col: err.col}, ""),
		}
	}
	return v, nil
}

type nodeError struct {
	msg       string
	line, col int
}

func nodeErrorf(n *yaml.Node, format string, args ...any) *nodeError {
	return &nodeError{msg: fmt.Sprintf(format, args...), line: n.Line, col: n.Column}
}

func nodeToValue(n *yaml.Node) (evaluator.NJValue, *nodeError) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return evaluator.NewNull(), nil
		}
		return nodeToValue(n.Content[0])

	case yaml.AliasNode:
		return nodeToValue(n.Alias)

	case yaml.SequenceNode:
		items := make([]evaluator.NJValue, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeToValue(c)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return evaluator.NewList(items), nil

	case yaml.MappingNode:
		rec := evaluator.EmptyRecord()
		if err := mergeMapping(&rec, n); err != nil {
			return nil, err
		}
		return rec, nil

	case yaml.ScalarNode:
		return scalarToValue(n)
	}
	return nil, nodeErrorf(n, "unsupported YAML node")
}

func mergeMapping(rec *evaluator.NJRecord, n *yaml.Node) *nodeError {
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.Tag == "!!merge" {
			src := val
			if src.Kind == yaml.AliasNode {
				src = src.Alias
			}
			if src.Kind != yaml.MappingNode {
				return nodeErrorf(val, "merge key needs a mapping")
			}
			if err := mergeMapping(rec, src); err != nil {
				return err
			}
			continue
		}
		if key.Kind != yaml.ScalarNode {
			return nodeErrorf(key, "mapping keys must be scalars")
		}
		v, err := nodeToValue(val)
		if err != nil {
			return err
		}
		rec.Set(key.Value, v)
	}
	return nil
}

func scalarToValue(n *yaml.Node) (evaluator.NJValue, *nodeError) {
	switch n.ShortTag() {
	case "!!null":
		return evaluator.NewNull(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, nodeErrorf(n, "invalid boolean %q", n.Value)
		}
		return evaluator.NewBool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, nodeErrorf(n, "invalid number %q", n.Value)
		}
		return evaluator.NewNumber(f), nil
	}
	return evaluator.NewString(n.Value), nil
}

// yamlErrorSpan pulls the line out of "yaml: line N: ..." messages.
func yamlErrorSpan(filename string, err error) *diagnostics.Span {
	msg := err.Error()
	if i := strings.Index(msg, "line "); i >= 0 {
		rest := msg[i+len("line "):]
		if j := strings.IndexByte(rest, ':'); j > 0 {
			if line, convErr := strconv.Atoi(rest[:j]); convErr == nil {
				return &diagnostics.Span{File: filename, Line: line, Col: 1}
			}
		}
	}
	return docSpan(filename)
}
