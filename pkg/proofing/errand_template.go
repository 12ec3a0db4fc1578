package proofing

type ErrandTemplate struct {
	Name        string   `yaml:"name"`
	CoLocated   bool     `yaml:"colocated,omitempty"`
	RunDefault  any      `yaml:"run_default,omitempty"`
	Instances   []string `yaml:"instances,omitempty"`
	Label       string   `yaml:"label,omitempty"`
	Description string   `yaml:"description,omitempty"`
}
