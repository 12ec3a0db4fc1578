package proofing

import (
	"fmt"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// ProductTemplate is the Ops Manager metadata document. It marshals its
// sections in a fixed order: base, stemcell_criteria, property_blueprints,
// form_types, job_types, post_deploy_errands, pre_delete_errands,
// runtime_configs.
type ProductTemplate struct {
	Base

	StemcellCriteria   StemcellCriteria        `yaml:"stemcell_criteria"`
	PropertyBlueprints PropertyBlueprints      `yaml:"property_blueprints"`
	FormTypes          []FormType              `yaml:"form_types"`
	JobTypes           []JobType               `yaml:"job_types"`
	PostDeployErrands  []ErrandTemplate        `yaml:"post_deploy_errands"`
	PreDeleteErrands   []ErrandTemplate        `yaml:"pre_delete_errands"`
	RuntimeConfigs     []RuntimeConfigTemplate `yaml:"runtime_configs"`
}

type Base struct {
	Name                     string           `yaml:"name"`
	ProductVersion           string           `yaml:"product_version"`
	MinimumVersionForUpgrade string           `yaml:"minimum_version_for_upgrade"`
	MetadataVersion          string           `yaml:"metadata_version"`
	Label                    string           `yaml:"label"`
	Description              string           `yaml:"description"`
	IconImage                string           `yaml:"icon_image"`
	Rank                     int              `yaml:"rank"`
	Serial                   bool             `yaml:"serial"`
	ServiceBroker            bool             `yaml:"service_broker"`
	Releases                 []Release        `yaml:"releases"`
	RequiresProductVersions  []ProductVersion `yaml:"requires_product_versions,omitempty"`

	// Passthrough holds product description keys this tool does not
	// interpret. They are emitted after the known base fields.
	Passthrough map[string]any `yaml:"-"`
}

type Release struct {
	Name    string `yaml:"name"`
	File    string `yaml:"file"`
	Version string `yaml:"version"`
	SHA1    string `yaml:"sha1,omitempty"`
}

type ProductVersion struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type StemcellCriteria struct {
	OS          string `yaml:"os"`
	Version     string `yaml:"version"`
	RequiresCPI bool   `yaml:"requires_cpi"`
}

type RuntimeConfigTemplate struct {
	Name          string        `yaml:"name"`
	RuntimeConfig LiteralString `yaml:"runtime_config"`
}

func (productTemplate ProductTemplate) MarshalYAML() (any, error) {
	var document yaml.Node
	if err := document.Encode(productTemplate.Base); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(productTemplate.Passthrough))
	for key := range productTemplate.Passthrough {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		var value yaml.Node
		if err := value.Encode(productTemplate.Passthrough[key]); err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", key, err)
		}
		document.Content = append(document.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, &value)
	}

	var sections yaml.Node
	if err := sections.Encode(struct {
		StemcellCriteria   StemcellCriteria        `yaml:"stemcell_criteria"`
		PropertyBlueprints PropertyBlueprints      `yaml:"property_blueprints"`
		FormTypes          []FormType              `yaml:"form_types"`
		JobTypes           []JobType               `yaml:"job_types"`
		PostDeployErrands  []ErrandTemplate        `yaml:"post_deploy_errands"`
		PreDeleteErrands   []ErrandTemplate        `yaml:"pre_delete_errands"`
		RuntimeConfigs     []RuntimeConfigTemplate `yaml:"runtime_configs"`
	}{
		StemcellCriteria:   productTemplate.StemcellCriteria,
		PropertyBlueprints: productTemplate.PropertyBlueprints,
		FormTypes:          productTemplate.FormTypes,
		JobTypes:           productTemplate.JobTypes,
		PostDeployErrands:  productTemplate.PostDeployErrands,
		PreDeleteErrands:   productTemplate.PreDeleteErrands,
		RuntimeConfigs:     productTemplate.RuntimeConfigs,
	}); err != nil {
		return nil, err
	}
	document.Content = append(document.Content, sections.Content...)

	return &document, nil
}

func (productTemplate *ProductTemplate) FindPropertyBlueprintWithName(name string) (PropertyBlueprint, int, error) {
	index := slices.IndexFunc(productTemplate.PropertyBlueprints, func(blueprint PropertyBlueprint) bool {
		return blueprint.PropertyName() == name
	})
	if index < 0 {
		return nil, 0, fmt.Errorf("not found")
	}
	return productTemplate.PropertyBlueprints[index], index, nil
}

func (productTemplate *ProductTemplate) FindFormTypeWithName(name string) (*FormType, int, error) {
	index := slices.IndexFunc(productTemplate.FormTypes, func(form FormType) bool {
		return form.Name == name
	})
	if index < 0 {
		return nil, 0, fmt.Errorf("not found")
	}
	return &productTemplate.FormTypes[index], index, nil
}

func (productTemplate *ProductTemplate) HasJobTypeWithName(name string) bool {
	return slices.ContainsFunc(productTemplate.JobTypes, func(jobType JobType) bool {
		return jobType.Name == name
	})
}

func (productTemplate *ProductTemplate) FindJobTypeWithName(name string) (*JobType, int, error) {
	index := slices.IndexFunc(productTemplate.JobTypes, func(jobType JobType) bool {
		return jobType.Name == name
	})
	if index < 0 {
		return nil, 0, fmt.Errorf("not found")
	}
	return &productTemplate.JobTypes[index], index, nil
}
