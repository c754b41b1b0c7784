package normalize

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
)

// stringList accepts either a YAML scalar or a sequence of scalars.
type stringList []string

func (s *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*s = nil
			return nil
		}
		if v := strings.TrimSpace(node.Value); v != "" {
			*s = stringList{v}
		}
		return nil
	case yaml.SequenceNode:
		out := make(stringList, 0, len(node.Content))
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: expected scalar list item", n.Line)
			}
			if v := strings.TrimSpace(n.Value); v != "" && n.Tag != "!!null" {
				out = append(out, v)
			}
		}
		*s = out
		return nil
	default:
		return fmt.Errorf("line %d: expected scalar or list", node.Line)
	}
}

// rawScalar keeps the literal text of a scalar so dates are not reinterpreted.
type rawScalar string

func (r *rawScalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected scalar", node.Line)
	}
	if node.Tag == "!!null" {
		*r = ""
		return nil
	}
	*r = rawScalar(strings.TrimSpace(node.Value))
	return nil
}

type frontMatterDoc struct {
	Title      rawScalar  `yaml:"title"`
	Tags       stringList `yaml:"tags"`
	Categories stringList `yaml:"categories"`
	Date       rawScalar  `yaml:"date"`
	Created    rawScalar  `yaml:"created"`
}

func (d frontMatterDoc) toMeta() *knowledge.FrontMatter {
	created := string(d.Date)
	if created == "" {
		created = string(d.Created)
	}
	return &knowledge.FrontMatter{
		Title:      string(d.Title),
		Tags:       []string(d.Tags),
		Categories: []string(d.Categories),
		Created:    created,
	}
}

// splitFrontMatter separates a leading --- fenced YAML block from the body.
// found is false when the document has no fence at all.
func splitFrontMatter(raw string) (block, body string, found bool, err error) {
	first, rest, ok := strings.Cut(raw, "\n")
	if strings.TrimRight(first, " \t\r") != "---" {
		return "", raw, false, nil
	}
	if !ok {
		return "", "", true, fmt.Errorf("unterminated front-matter")
	}
	offset := 0
	for offset <= len(rest) {
		line, _, more := strings.Cut(rest[offset:], "\n")
		trimmed := strings.TrimRight(line, " \t\r")
		if trimmed == "---" || trimmed == "..." {
			block = rest[:offset]
			if more {
				body = rest[offset+len(line)+1:]
			}
			return block, body, true, nil
		}
		if !more {
			break
		}
		offset += len(line) + 1
	}
	return "", "", true, fmt.Errorf("unterminated front-matter")
}

func parseFrontMatter(block string) (*knowledge.FrontMatter, error) {
	var doc frontMatterDoc
	if strings.TrimSpace(block) == "" {
		return doc.toMeta(), nil
	}
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return nil, err
	}
	return doc.toMeta(), nil
}
