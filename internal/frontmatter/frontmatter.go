// Package frontmatter renders YAML metadata blocks for markdown
// output, substituting message fields into configured placeholder
// tokens.
package frontmatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
)

// Fields carries the message metadata available to placeholder
// substitution. A zero Date substitutes the current wall-clock time.
type Fields struct {
	From    string
	To      string
	Subject string
	Date    time.Time
}

// Generate renders props as a YAML frontmatter block between "---"
// delimiters, replacing the literal tokens [email_from], [email_to],
// [email_subject], [email_datetime], [email_date], and [email_time] in
// every string value. Key order follows the configuration. Empty props
// yield an empty string.
func Generate(props model.Properties, fields Fields) (string, error) {
	if len(props) == 0 {
		return "", nil
	}

	date := fields.Date
	if date.IsZero() {
		date = time.Now()
	}

	repl := strings.NewReplacer(
		"[email_from]", fields.From,
		"[email_to]", fields.To,
		"[email_subject]", fields.Subject,
		"[email_datetime]", date.Format("2006-01-02 15:04:05"),
		"[email_date]", date.Format("2006-01-02"),
		"[email_time]", date.Format("15:04:05"),
	)

	root, err := mappingNode(props, repl)
	if err != nil {
		return "", err
	}

	out, err := yaml.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("marshaling frontmatter: %w", err)
	}

	return "---\n" + string(out) + "---\n\n", nil
}

// mappingNode builds a YAML mapping node from props, preserving key
// order.
func mappingNode(props model.Properties, repl *strings.Replacer) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}

	for _, prop := range props {
		key := &yaml.Node{}
		key.SetString(prop.Key)

		val, err := valueNode(prop.Value, repl)
		if err != nil {
			return nil, err
		}

		node.Content = append(node.Content, key, val)
	}

	return node, nil
}

// valueNode converts one decoded config value into a YAML node,
// substituting placeholders in every string it contains.
func valueNode(v any, repl *strings.Replacer) (*yaml.Node, error) {
	switch val := v.(type) {
	case string:
		node := &yaml.Node{}
		node.SetString(repl.Replace(val))
		return node, nil

	case model.Properties:
		return mappingNode(val, repl)

	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range val {
			child, err := valueNode(item, repl)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil

	case float64:
		// JSON numbers decode as float64; emit untagged so whole
		// numbers stay whole.
		return &yaml.Node{
			Kind:  yaml.ScalarNode,
			Value: strconv.FormatFloat(val, 'g', -1, 64),
		}, nil

	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.Itoa(val)}, nil

	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatBool(val)}, nil

	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil

	default:
		node := &yaml.Node{}
		if err := node.Encode(v); err != nil {
			return nil, fmt.Errorf("encoding frontmatter value %v: %w", v, err)
		}
		return node, nil
	}
}
