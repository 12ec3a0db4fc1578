package builder

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/cf-platform-eng/tile-generator/internal/release"
	"github.com/cf-platform-eng/tile-generator/pkg/failure"
	"github.com/cf-platform-eng/tile-generator/pkg/product"
	"github.com/cf-platform-eng/tile-generator/pkg/proofing"
)

const (
	MinimumVersionForUpgrade = "0.0.1"
	Rank                     = 1
)

// MetadataInput is everything the metadata document is compiled from. The
// product is only read.
type MetadataInput struct {
	Product *product.Product
	Build   release.Result
	// IconImage is the base64 encoded icon.
	IconImage string
}

type MetadataCompiler struct{}

// Compile builds the Ops Manager metadata for a product whose flags have
// been applied and whose releases have been built.
func (MetadataCompiler) Compile(input MetadataInput) (proofing.ProductTemplate, error) {
	p := input.Product
	c := compilation{
		product:       p,
		build:         input.Build,
		releaseNames:  make(map[string]string),
		bags:          make(map[string]map[string]any),
		formNames:     make(map[string]bool),
		compileDiskMB: max(p.CompilationVMDiskSize, 4*input.Build.LargestAppMiB),
	}
	for _, tarball := range input.Build.Tarballs {
		c.releaseNames[tarball.Release] = tarball.Name
	}
	for _, form := range p.Forms {
		for _, property := range form.Properties {
			c.formNames[property.Name] = true
		}
	}
	for _, r := range p.Releases {
		for _, pkg := range r.Packages {
			c.bags[pkg.Name] = c.propertyBag(pkg)
		}
	}

	var err error
	c.singularInstances, err = metadataVersionAtLeast(p.MetadataVersion, "1.7")
	if err != nil {
		return proofing.ProductTemplate{}, err
	}
	c.noCompilationJob, err = metadataVersionAtLeast(p.MetadataVersion, "1.8")
	if err != nil {
		return proofing.ProductTemplate{}, err
	}

	template := proofing.ProductTemplate{
		Base: proofing.Base{
			Name:                     p.Name,
			ProductVersion:           p.Version,
			MinimumVersionForUpgrade: MinimumVersionForUpgrade,
			MetadataVersion:          p.MetadataVersion,
			Label:                    p.Label,
			Description:              p.Description,
			IconImage:                input.IconImage,
			Rank:                     Rank,
			Serial:                   true,
			ServiceBroker:            p.ServiceBroker,
			Releases:                 releases(input.Build.Tarballs),
			Passthrough:              p.Passthrough,
		},
		StemcellCriteria: proofing.StemcellCriteria{
			OS:          p.StemcellCriteria.OS,
			Version:     p.StemcellCriteria.Version,
			RequiresCPI: p.StemcellCriteria.RequiresCPI,
		},
		PostDeployErrands: postDeployErrands(p.PostDeployErrands),
		PreDeleteErrands:  preDeleteErrands(p.PreDeleteErrands),
	}
	for _, pv := range p.RequiresProductVersions {
		if _, err := semver.NewConstraint(pv.Version); err != nil {
			return proofing.ProductTemplate{}, fmt.Errorf("requires_product_versions %s: invalid constraint %q: %w", pv.Name, pv.Version, err)
		}
		template.RequiresProductVersions = append(template.RequiresProductVersions, proofing.ProductVersion{Name: pv.Name, Version: pv.Version})
	}

	template.PropertyBlueprints = c.propertyBlueprints()
	template.FormTypes = c.formTypes()
	template.JobTypes, err = c.jobTypes()
	if err != nil {
		return proofing.ProductTemplate{}, err
	}
	template.RuntimeConfigs, err = runtimeConfigs(p.RuntimeConfigs)
	if err != nil {
		return proofing.ProductTemplate{}, err
	}
	if err := checkTemplate(&template); err != nil {
		return proofing.ProductTemplate{}, err
	}
	return template, nil
}

// checkTemplate rejects documents Ops Manager would refuse to import.
// Property, form and job type names are unique, errands that are not
// colocated name a job type, and resource and instance defaults satisfy
// their constraints.
func checkTemplate(template *proofing.ProductTemplate) error {
	for i, blueprint := range template.PropertyBlueprints {
		name := blueprint.PropertyName()
		if _, index, _ := template.FindPropertyBlueprintWithName(name); index != i {
			return failure.New(failure.SchemaViolation, name, "more than one property is named %q", name)
		}
	}
	for _, errand := range slices.Concat(template.PostDeployErrands, template.PreDeleteErrands) {
		if !errand.CoLocated && !template.HasJobTypeWithName(errand.Name) {
			return failure.New(failure.SchemaViolation, errand.Name, "errand %q has no job", errand.Name)
		}
	}
	for i, form := range template.FormTypes {
		if _, index, _ := template.FindFormTypeWithName(form.Name); index != i {
			return failure.New(failure.SchemaViolation, form.Name, "more than one form is named %q", form.Name)
		}
	}
	for i, job := range template.JobTypes {
		if _, index, _ := template.FindJobTypeWithName(job.Name); index != i {
			return failure.New(failure.SchemaViolation, job.Name, "more than one job is named %q", job.Name)
		}
		for _, definition := range job.ResourceDefinitions {
			if err := definition.Check(); err != nil {
				return failure.New(failure.SchemaViolation, job.Name, "%s: %s", definition.Name, err)
			}
		}
		instances := job.InstanceDefinitions
		if job.InstanceDefinition != nil {
			instances = append(instances, *job.InstanceDefinition)
		}
		for _, definition := range instances {
			if err := definition.Check(); err != nil {
				return failure.New(failure.SchemaViolation, job.Name, "%s: %s", definition.Name, err)
			}
		}
	}
	return nil
}

// MarshalMetadata encodes the metadata document with two space indentation.
func MarshalMetadata(template proofing.ProductTemplate) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(template); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// compilation holds what the sections of one document share.
type compilation struct {
	product *product.Product
	build   release.Result

	// releaseNames maps product release names to release.MF names.
	releaseNames map[string]string
	// bags holds the deploy time property bag of each package.
	bags map[string]map[string]any
	// formNames is the set of properties declared on forms.
	formNames map[string]bool

	compileDiskMB     int
	singularInstances bool
	noCompilationJob  bool
}

func (c compilation) releaseName(name string) string {
	if n, ok := c.releaseNames[name]; ok {
		return n
	}
	return name
}

// propertyBag returns a copy of the package property bag with the app
// manifest path pointing at the file the release contains.
func (c compilation) propertyBag(pkg *product.Package) map[string]any {
	if pkg.Properties == nil {
		return nil
	}
	bag := make(map[string]any, len(pkg.Properties))
	for k, v := range pkg.Properties {
		bag[k] = v
	}
	if manifest, ok := bag["app_manifest"].(map[string]any); ok {
		if p, found := c.build.AppManifestPaths[pkg.Name]; found {
			updated := make(map[string]any, len(manifest)+1)
			for k, v := range manifest {
				updated[k] = v
			}
			updated["path"] = p
			bag["app_manifest"] = updated
		}
	}
	return bag
}

func releases(tarballs []release.Tarball) []proofing.Release {
	result := make([]proofing.Release, 0, len(tarballs))
	for _, t := range tarballs {
		result = append(result, proofing.Release{
			Name:    t.Name,
			File:    t.FileName(),
			Version: t.Version,
			SHA1:    t.SHA1,
		})
	}
	return result
}

// postDeployErrands puts deploy-all first. The other errands keep their
// order.
func postDeployErrands(errands []product.Errand) []proofing.ErrandTemplate {
	result := errandTemplates(errands)
	if i := slices.IndexFunc(result, isNamed(product.DeployAllJobName)); i > 0 {
		errand := result[i]
		result = slices.Delete(result, i, i+1)
		result = slices.Insert(result, 0, errand)
	}
	return result
}

// preDeleteErrands puts delete-all last.
func preDeleteErrands(errands []product.Errand) []proofing.ErrandTemplate {
	result := errandTemplates(errands)
	if i := slices.IndexFunc(result, isNamed(product.DeleteAllJobName)); i >= 0 && i < len(result)-1 {
		errand := result[i]
		result = slices.Delete(result, i, i+1)
		result = append(result, errand)
	}
	return result
}

func isNamed(name string) func(proofing.ErrandTemplate) bool {
	return func(e proofing.ErrandTemplate) bool { return e.Name == name }
}

func errandTemplates(errands []product.Errand) []proofing.ErrandTemplate {
	result := make([]proofing.ErrandTemplate, 0, len(errands))
	for _, e := range errands {
		result = append(result, proofing.ErrandTemplate{
			Name:        e.Name,
			CoLocated:   e.Colocated,
			RunDefault:  e.RunDefault,
			Instances:   e.Instances,
			Label:       e.Label,
			Description: e.Description,
		})
	}
	return result
}

func runtimeConfigs(configs []product.RuntimeConfig) ([]proofing.RuntimeConfigTemplate, error) {
	result := make([]proofing.RuntimeConfigTemplate, 0, len(configs))
	for _, rc := range configs {
		var block proofing.LiteralString
		switch v := rc.RuntimeConfig.(type) {
		case string:
			block = proofing.LiteralString(v)
		default:
			var err error
			block, err = proofing.NewLiteralYAML(v)
			if err != nil {
				return nil, fmt.Errorf("runtime config %s: %w", rc.Name, err)
			}
		}
		result = append(result, proofing.RuntimeConfigTemplate{Name: rc.Name, RuntimeConfig: block})
	}
	return result, nil
}

// metadataVersionAtLeast compares metadata versions like "1.8" and "1.10"
// as versions.
func metadataVersionAtLeast(version, minimum string) (bool, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("invalid metadata_version %q: %w", version, err)
	}
	return !v.LessThan(semver.MustParse(minimum)), nil
}
