package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"regexp"
	"strings"

	"github.com/crhntr/yamlutil/yamlnode"
	"github.com/go-git/go-billy/v5"
	"gopkg.in/yaml.v3"

	"github.com/cf-platform-eng/tile-generator/pkg/failure"
)

// StemcellIndex finds the newest published stemcell for an operating system.
type StemcellIndex interface {
	LatestStemcellVersion(ctx context.Context, os string) (string, error)
}

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9]+(-[a-z0-9]+)*$`)

// ValidName reports whether name may be used for a product or a package.
func ValidName(name string) bool { return namePattern.MatchString(name) }

var knownKeys = map[string]struct{}{
	"name": {}, "label": {}, "description": {}, "icon_file": {}, "metadata_version": {},
	"stemcell_criteria": {}, "packages": {}, "forms": {}, "service_plan_forms": {},
	"properties": {}, "runtime_configs": {}, "org": {}, "space": {}, "apply_open_security_group": {},
	"allow_paid_service_plans": {}, "standalone": {}, "service_broker": {},
	"requires_product_versions": {}, "org_quota": {}, "compilation_vm_disk_size": {},
	"pks_cli": {}, "helm_cli_version": {}, "kubectl_cli_version": {},
	"version": {}, "history": {},
}

// Load reads the product description, merges defaults and validates names.
// When no stemcell version is declared, stemcells is asked for the latest.
func Load(ctx context.Context, fsys billy.Basic, filePath string, stemcells StemcellIndex) (*Product, error) {
	f, err := fsys.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, failure.Wrap(failure.ConfigMissing, filePath, err)
		}
		return nil, err
	}
	defer closeAndIgnoreError(f)

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	product, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	if err := product.Validate(); err != nil {
		return nil, err
	}

	if product.StemcellCriteria.Version == "" && stemcells != nil {
		version, err := stemcells.LatestStemcellVersion(ctx, product.StemcellCriteria.OS)
		if err != nil {
			return nil, failure.Wrap(failure.UpstreamUnavailable, product.StemcellCriteria.OS, err)
		}
		product.StemcellCriteria.Version = version
	}

	return product, nil
}

// Parse decodes a product description and merges defaults. It does not
// contact upstream services.
func Parse(buf []byte) (*Product, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(buf, &document); err != nil {
		return nil, err
	}
	product := new(Product)
	if len(document.Content) == 0 {
		product.setDefaults()
		return product, nil
	}
	root := document.Content[0]
	if err := root.Decode(product); err != nil {
		return nil, err
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if _, known := knownKeys[key]; known {
			continue
		}
		valueNode, _ := yamlnode.LookupKey(root, key)
		var value any
		if err := valueNode.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to decode %q: %w", key, err)
		}
		if product.Passthrough == nil {
			product.Passthrough = make(map[string]any)
		}
		product.Passthrough[key] = value
	}

	product.setDefaults()
	return product, nil
}

func (product *Product) setDefaults() {
	if product.MetadataVersion == "" {
		product.MetadataVersion = DefaultMetadataVersion
	}
	if product.StemcellCriteria.OS == "" {
		product.StemcellCriteria.OS = DefaultStemcellOS
	}
	if product.CompilationVMDiskSize == 0 {
		product.CompilationVMDiskSize = DefaultCompilationVMDiskSize
	}
	if product.Label == "" {
		product.Label = product.Name
	}
	if product.Org == "" && product.Name != "" {
		product.Org = product.Name + "-org"
	}
	if product.Space == "" && product.Name != "" {
		product.Space = product.Name + "-space"
	}
	if product.Forms == nil {
		product.Forms = []Form{}
	}
	if product.Packages == nil {
		product.Packages = []*Package{}
	}
	product.TotalMemory = 0
	product.MaxMemory = 0

	product.Properties = normalizeProperties(product.Properties)
	all := append([]Property(nil), product.Properties...)
	for i := range product.Forms {
		product.Forms[i].Properties = normalizeProperties(product.Forms[i].Properties)
		all = append(all, product.Forms[i].Properties...)
	}
	for i := range product.ServicePlanForms {
		product.ServicePlanForms[i].Properties = normalizeProperties(product.ServicePlanForms[i].Properties)
	}
	product.AllProperties = all
}

func normalizeProperties(properties []Property) []Property {
	for i := range properties {
		properties[i].Name = CanonicalName(properties[i].Name)
		properties[i].PropertyBlueprints = normalizeProperties(properties[i].PropertyBlueprints)
		for j := range properties[i].OptionTemplates {
			properties[i].OptionTemplates[j].PropertyBlueprints = normalizeProperties(properties[i].OptionTemplates[j].PropertyBlueprints)
		}
	}
	return properties
}

// Validate checks the product and package names.
func (product *Product) Validate() error {
	if !ValidName(product.Name) {
		return failure.New(failure.InvalidName, product.Name, "product name must match %s", namePattern)
	}
	var errs []error
	for _, pkg := range product.Packages {
		if !ValidName(pkg.Name) {
			errs = append(errs, failure.New(failure.InvalidName, pkg.Name, "package name must match %s", namePattern))
		}
	}
	return errors.Join(errs...)
}

// UnmarshalYAML accepts the legacy shapes: a manifest given as a YAML
// string and auto_services given as a whitespace separated string.
func (pkg *Package) UnmarshalYAML(node *yaml.Node) error {
	type plain Package
	if err := node.Decode((*plain)(pkg)); err != nil {
		return err
	}

	if manifestNode, found := yamlnode.LookupKey(node, "manifest"); found {
		manifest, err := decodeManifest(manifestNode)
		if err != nil {
			return fmt.Errorf("package %s: %w", pkg.Name, err)
		}
		pkg.Manifest = manifest
	}

	if servicesNode, found := yamlnode.LookupKey(node, "auto_services"); found {
		services, err := decodeAutoServices(servicesNode)
		if err != nil {
			return fmt.Errorf("package %s: %w", pkg.Name, err)
		}
		pkg.AutoServices = services
	}
	return nil
}

// UnmarshalYAML accepts value as the legacy name of default.
func (property *Property) UnmarshalYAML(node *yaml.Node) error {
	type plain Property
	if err := node.Decode((*plain)(property)); err != nil {
		return err
	}
	if _, found := yamlnode.LookupKey(node, "default"); found {
		return nil
	}
	if valueNode, found := yamlnode.LookupKey(node, "value"); found {
		if err := valueNode.Decode(&property.Default); err != nil {
			return fmt.Errorf("property %s: %w", property.Name, err)
		}
	}
	return nil
}

func decodeManifest(node *yaml.Node) (map[string]any, error) {
	if node.Kind == yaml.ScalarNode {
		if node.Tag == "!!null" {
			return nil, nil
		}
		var inner yaml.Node
		if err := yaml.Unmarshal([]byte(node.Value), &inner); err != nil {
			return nil, fmt.Errorf("failed to parse manifest string: %w", err)
		}
		if len(inner.Content) == 0 {
			return nil, nil
		}
		node = inner.Content[0]
	}
	var manifest map[string]any
	if err := node.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("manifest must be a mapping: %w", err)
	}
	return manifest, nil
}

func decodeAutoServices(node *yaml.Node) ([]AutoService, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var services []AutoService
		for _, name := range strings.Fields(node.Value) {
			services = append(services, AutoService{Name: name})
		}
		return services, nil
	case yaml.SequenceNode:
		services := make([]AutoService, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind == yaml.ScalarNode {
				services = append(services, AutoService{Name: item.Value})
				continue
			}
			var service AutoService
			if err := item.Decode(&service); err != nil {
				return nil, err
			}
			services = append(services, service)
		}
		return services, nil
	}
	return nil, fmt.Errorf("auto_services must be a string or a list")
}

func closeAndIgnoreError(c io.Closer) { _ = c.Close() }
