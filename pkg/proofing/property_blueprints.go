package proofing

type PropertyBlueprint interface {
	PropertyName() string
	PropertyType() string
	IsConfigurable() bool
}

type PropertyBlueprints []PropertyBlueprint

type SimplePropertyBlueprint struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	Configurable bool   `yaml:"configurable"`
	Optional     bool   `yaml:"optional,omitempty"`
	Unique       bool   `yaml:"unique,omitempty"`
	Default      any    `yaml:"default,omitempty"`
	Options      []any  `yaml:"options,omitempty"`
	Constraints  any    `yaml:"constraints,omitempty"`

	Extra map[string]any `yaml:",inline"`
}

func (blueprint SimplePropertyBlueprint) PropertyName() string { return blueprint.Name }
func (blueprint SimplePropertyBlueprint) PropertyType() string { return blueprint.Type }
func (blueprint SimplePropertyBlueprint) IsConfigurable() bool { return blueprint.Configurable }

type CollectionPropertyBlueprint struct {
	SimplePropertyBlueprint `yaml:",inline"`

	PropertyBlueprints PropertyBlueprints `yaml:"property_blueprints"`
}

type SelectorPropertyBlueprint struct {
	SimplePropertyBlueprint `yaml:",inline"`

	OptionTemplates []SelectorPropertyOptionTemplate `yaml:"option_templates"`
}

type SelectorPropertyOptionTemplate struct {
	Name               string             `yaml:"name"`
	SelectValue        string             `yaml:"select_value"`
	PropertyBlueprints PropertyBlueprints `yaml:"property_blueprints,omitempty"`
}
