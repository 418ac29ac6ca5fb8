package plugintest

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMalformedRuleDocument is returned by LocateFixture when the rule text
// does not have the structure of a rule with embedded tests.
var ErrMalformedRuleDocument = errors.New("malformed rule document")

// Location is the position of a fixture inside its rule file.
type Location struct {
	// StartLine and EndLine are 1-based and inclusive.
	StartLine int
	EndLine   int
	// Start and End are byte offsets of the newline ending StartLine and
	// EndLine. A last line without a newline ends at the end of the text.
	Start int
	End   int
}

// LocateFixture finds fixture index of the given expectation in the raw
// text of a rule file. The result depends only on its arguments.
func LocateFixture(ruleText []byte, exp Expectation, index int) (Location, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(ruleText, &doc); err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrMalformedRuleDocument, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return Location{}, fmt.Errorf("%w: top level is not a mapping", ErrMalformedRuleDocument)
	}

	tests := mappingValue(doc.Content[0], "tests")
	if tests == nil || tests.Kind != yaml.MappingNode {
		return Location{}, fmt.Errorf("%w: no tests mapping", ErrMalformedRuleDocument)
	}
	seq := mappingValue(tests, exp.String())
	if seq == nil || seq.Kind != yaml.SequenceNode {
		return Location{}, fmt.Errorf("%w: no tests.%s sequence", ErrMalformedRuleDocument, exp)
	}
	if index < 0 || index >= len(seq.Content) {
		return Location{}, fmt.Errorf("%w: tests.%s has no fixture %d", ErrMalformedRuleDocument, exp, index)
	}

	lines := bytes.Split(ruleText, []byte("\n"))
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}

	elem := seq.Content[index]
	start := elem.Line
	end := len(lines)
	if next := nodeAfter(&doc, elem); next != nil {
		end = next.Line - 1
	}
	for end > start && isFiller(lines[end-1]) {
		end--
	}
	if end < start {
		end = start
	}

	startOff, err := newlineOffset(ruleText, start-1)
	if err != nil {
		return Location{}, err
	}
	endOff, err := newlineOffset(ruleText, end-1)
	if err != nil {
		return Location{}, err
	}
	return Location{StartLine: start, EndLine: end, Start: startOff, End: endOff}, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if k := m.Content[i]; k.Kind == yaml.ScalarNode && k.Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// nodeAfter returns the first node following target's subtree in document
// order, or nil when target is the last one.
func nodeAfter(root, target *yaml.Node) *yaml.Node {
	var (
		next   *yaml.Node
		inside bool
		passed bool
	)
	var walk func(n *yaml.Node) bool
	walk = func(n *yaml.Node) bool {
		if passed && !inside && n.Line > 0 {
			next = n
			return true
		}
		if n == target {
			inside = true
		}
		for _, c := range n.Content {
			if walk(c) {
				return true
			}
		}
		if n == target {
			inside = false
			passed = true
		}
		return false
	}
	walk(root)
	return next
}

// isFiller reports whether line is blank or holds only a comment.
func isFiller(line []byte) bool {
	trimmed := bytes.TrimSpace(line)
	return len(trimmed) == 0 || trimmed[0] == '#'
}

// newlineOffset returns the offset of the n-th (0-based) newline in text.
// Asking for the newline after an unterminated last line gives len(text).
func newlineOffset(text []byte, n int) (int, error) {
	seen := 0
	for i, b := range text {
		if b != '\n' {
			continue
		}
		if seen == n {
			return i, nil
		}
		seen++
	}
	if seen == n && len(text) > 0 && text[len(text)-1] != '\n' {
		return len(text), nil
	}
	return 0, fmt.Errorf("%w: text has %d newlines, need newline %d", ErrMalformedRuleDocument, seen, n)
}
