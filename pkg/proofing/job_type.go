package proofing

type JobType struct {
	Name                string               `yaml:"name"`
	ResourceLabel       string               `yaml:"resource_label"`
	Description         string               `yaml:"description,omitempty"`
	Templates           []Template           `yaml:"templates"`
	Errand              bool                 `yaml:"errand,omitempty"`
	StaticIP            int                  `yaml:"static_ip"`
	DynamicIP           int                  `yaml:"dynamic_ip"`
	MaxInFlight         any                  `yaml:"max_in_flight"`
	SingleAZOnly        bool                 `yaml:"single_az_only"`
	InstanceDefinition  *InstanceDefinition  `yaml:"instance_definition,omitempty"`
	InstanceDefinitions []InstanceDefinition `yaml:"instance_definitions,omitempty"`
	ResourceDefinitions []ResourceDefinition `yaml:"resource_definitions"`
	PropertyBlueprints  PropertyBlueprints   `yaml:"property_blueprints,omitempty"`
	Manifest            LiteralString        `yaml:"manifest,omitempty"`
}

type Template struct {
	Name     string        `yaml:"name"`
	Release  string        `yaml:"release"`
	Consumes LiteralString `yaml:"consumes,omitempty"`
	Provides LiteralString `yaml:"provides,omitempty"`
	Manifest LiteralString `yaml:"manifest,omitempty"`
}

type ResourceDefinition struct {
	Name         string              `yaml:"name"`
	Type         string              `yaml:"type"`
	Configurable bool                `yaml:"configurable"`
	Default      int                 `yaml:"default"`
	Constraints  *IntegerConstraints `yaml:"constraints,omitempty"`
}

type InstanceDefinition struct {
	Name         string              `yaml:"name"`
	Type         string              `yaml:"type"`
	Configurable bool                `yaml:"configurable"`
	Default      int                 `yaml:"default"`
	Constraints  *IntegerConstraints `yaml:"constraints,omitempty"`
}

func (definition ResourceDefinition) Check() error {
	if definition.Constraints == nil {
		return nil
	}
	return definition.Constraints.CheckValue(definition.Default)
}

func (definition InstanceDefinition) Check() error {
	if definition.Constraints == nil {
		return nil
	}
	return definition.Constraints.CheckValue(definition.Default)
}
