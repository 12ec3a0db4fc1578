package proofing

type FormType struct {
	Name           string         `yaml:"name"`
	Label          string         `yaml:"label"`
	Description    string         `yaml:"description,omitempty"`
	Markdown       string         `yaml:"markdown,omitempty"`
	PropertyInputs PropertyInputs `yaml:"property_inputs"`
}

type PropertyInput struct {
	Reference   string `yaml:"reference"`
	Label       string `yaml:"label,omitempty"`
	Description string `yaml:"description,omitempty"`
	Placeholder string `yaml:"placeholder,omitempty"`

	SelectorPropertyInputs []SelectorPropertyInput `yaml:"selector_property_inputs,omitempty"`
	PropertyInputs         PropertyInputs          `yaml:"property_inputs,omitempty"`
}

type SelectorPropertyInput struct {
	Reference      string         `yaml:"reference"`
	Label          string         `yaml:"label"`
	PropertyInputs PropertyInputs `yaml:"property_inputs"`
}

// PropertyInputs marshals a nil list as null rather than [].
type PropertyInputs []PropertyInput

func (inputs PropertyInputs) MarshalYAML() (any, error) {
	if inputs == nil {
		return nil, nil
	}
	return []PropertyInput(inputs), nil
}
