package product

import (
	"slices"
	"strings"
)

const (
	DefaultFileName              = "tile.yml"
	DefaultMetadataVersion       = "1.8"
	DefaultStemcellOS            = "ubuntu-jammy"
	DefaultCompilationVMDiskSize = 10240
)

// Product is the context assembled from tile.yml. The loader, normalizer
// and flag applicator mutate it in that order; later stages only read it.
type Product struct {
	Name        string `yaml:"name"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	IconFile    string `yaml:"icon_file"`

	// Version and History are set from tile-history.yml and never read
	// from tile.yml.
	Version string   `yaml:"-"`
	History []string `yaml:"-"`

	// MetadataVersion is compared as a version, "1.10" is newer than "1.8".
	MetadataVersion  string           `yaml:"metadata_version"`
	StemcellCriteria StemcellCriteria `yaml:"stemcell_criteria"`

	Packages         []*Package      `yaml:"packages"`
	Forms            []Form          `yaml:"forms"`
	ServicePlanForms []Form          `yaml:"service_plan_forms"`
	Properties       []Property      `yaml:"properties"`
	RuntimeConfigs   []RuntimeConfig `yaml:"runtime_configs"`

	Standalone             bool   `yaml:"standalone"`
	ServiceBroker          bool   `yaml:"service_broker"`
	Org                    string `yaml:"org"`
	Space                  string `yaml:"space"`
	ApplyOpenSecurityGroup bool   `yaml:"apply_open_security_group"`
	AllowPaidServicePlans  bool   `yaml:"allow_paid_service_plans"`

	OrgQuota              int `yaml:"org_quota"`
	CompilationVMDiskSize int `yaml:"compilation_vm_disk_size"`

	// PKSCLI is the path or URL of the PKS CLI binary. Helm packages need it.
	PKSCLI            string `yaml:"pks_cli"`
	HelmCLIVersion    string `yaml:"helm_cli_version"`
	KubectlCLIVersion string `yaml:"kubectl_cli_version"`

	RequiresProductVersions []ProductVersion `yaml:"requires_product_versions"`

	// Passthrough holds top level keys this tool does not know. They are
	// copied into the metadata base block.
	Passthrough map[string]any `yaml:"-"`

	AllProperties      []Property `yaml:"-"`
	Releases           []*Release `yaml:"-"`
	TotalMemory        int        `yaml:"-"`
	MaxMemory          int        `yaml:"-"`
	PostDeployErrands  []Errand   `yaml:"-"`
	PreDeleteErrands   []Errand   `yaml:"-"`
	RequiresDockerBosh bool       `yaml:"-"`
}

type StemcellCriteria struct {
	OS          string `yaml:"os"`
	Version     string `yaml:"version"`
	RequiresCPI bool   `yaml:"requires_cpi"`
}

type ProductVersion struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type Form struct {
	Name        string     `yaml:"name"`
	Label       string     `yaml:"label"`
	Description string     `yaml:"description"`
	Markdown    string     `yaml:"markdown"`
	Properties  []Property `yaml:"properties"`
}

type Property struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	Label        string `yaml:"label"`
	Description  string `yaml:"description"`
	Placeholder  string `yaml:"placeholder"`
	Optional     bool   `yaml:"optional"`
	Default      any    `yaml:"default"`
	Options      []any  `yaml:"options"`
	Constraints  any    `yaml:"constraints"`

	// Configurable is nil when tile.yml leaves it out. See IsConfigurable.
	Configurable *bool `yaml:"configurable"`

	// Job scopes the property to a single job. Scoped properties are
	// referenced as .<job>.<name> and are not product blueprints.
	Job string `yaml:"job"`

	// OptionTemplates is set for selector properties.
	OptionTemplates []OptionTemplate `yaml:"option_templates"`
	// PropertyBlueprints is set for collection properties.
	PropertyBlueprints []Property `yaml:"property_blueprints"`
}

// IsConfigurable reports the declared configurable value, or fallback when
// the property does not declare one.
func (property Property) IsConfigurable(fallback bool) bool {
	if property.Configurable == nil {
		return fallback
	}
	return *property.Configurable
}

type OptionTemplate struct {
	Name               string     `yaml:"name"`
	SelectValue        string     `yaml:"select_value"`
	PropertyBlueprints []Property `yaml:"property_blueprints"`
}

type RuntimeConfig struct {
	Name          string `yaml:"name"`
	RuntimeConfig any    `yaml:"runtime_config"`
}

type Errand struct {
	Name        string
	Colocated   bool
	Instances   []string
	RunDefault  any
	Label       string
	Description string
}

func (product *Product) FindRelease(name string) (*Release, bool) {
	index := slices.IndexFunc(product.Releases, func(r *Release) bool { return r.Name == name })
	if index < 0 {
		return nil, false
	}
	return product.Releases[index], true
}

func (product *Product) FindPackage(name string) (*Package, bool) {
	index := slices.IndexFunc(product.Packages, func(p *Package) bool { return p.Name == name })
	if index < 0 {
		return nil, false
	}
	return product.Packages[index], true
}

func (product *Product) requireProductVersion(name, constraint string) {
	if slices.ContainsFunc(product.RequiresProductVersions, func(pv ProductVersion) bool { return pv.Name == name }) {
		return
	}
	product.RequiresProductVersions = append(product.RequiresProductVersions, ProductVersion{Name: name, Version: constraint})
}

func (product *Product) addPostDeployErrand(errand Errand) {
	if !slices.ContainsFunc(product.PostDeployErrands, func(e Errand) bool { return e.Name == errand.Name }) {
		product.PostDeployErrands = append(product.PostDeployErrands, errand)
	}
}

func (product *Product) addPreDeleteErrand(errand Errand) {
	if !slices.ContainsFunc(product.PreDeleteErrands, func(e Errand) bool { return e.Name == errand.Name }) {
		product.PreDeleteErrands = append(product.PreDeleteErrands, errand)
	}
}

// CanonicalName turns a package or property name into the token used for
// job names and property references.
func CanonicalName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}
