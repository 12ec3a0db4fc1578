package proofing

import "gopkg.in/yaml.v3"

// LiteralString is emitted in YAML literal block style ("|").
type LiteralString string

func (s LiteralString) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Style: yaml.LiteralStyle,
		Value: string(s),
	}, nil
}

// NewLiteralYAML serializes value and wraps the result so it is emitted as a
// literal block.
func NewLiteralYAML(value any) (LiteralString, error) {
	if value == nil {
		return "", nil
	}
	buf, err := yaml.Marshal(value)
	if err != nil {
		return "", err
	}
	return LiteralString(buf), nil
}
