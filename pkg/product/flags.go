package product

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cppforlife/go-patch/patch"
	"github.com/go-git/go-billy/v5"
	yamlv2 "gopkg.in/yaml.v2"
	"gopkg.in/yaml.v3"

	"github.com/cf-platform-eng/tile-generator/pkg/failure"
)

// Flag names a capability a package type carries.
type Flag string

const (
	FlagBoshRelease    Flag = "BoshRelease"
	FlagCf             Flag = "Cf"
	FlagDockerBosh     Flag = "DockerBosh"
	FlagDecorator      Flag = "Decorator"
	FlagApp            Flag = "App"
	FlagExternalBroker Flag = "ExternalBroker"
	FlagBroker         Flag = "Broker"
	FlagBuildpack      Flag = "Buildpack"
	FlagHelm           Flag = "Helm"
)

// Flags returns the capabilities of a package type in application order.
func Flags(t Type) []Flag {
	switch t {
	case TypeBoshRelease:
		return []Flag{FlagBoshRelease}
	case TypeDockerBosh:
		return []Flag{FlagDockerBosh}
	case TypeApp, TypeDockerApp:
		return []Flag{FlagCf, FlagApp}
	case TypeAppBroker, TypeDockerAppBroker:
		return []Flag{FlagCf, FlagApp, FlagBroker}
	case TypeBuildpack:
		return []Flag{FlagCf, FlagBuildpack}
	case TypeDecorator:
		return []Flag{FlagCf, FlagBuildpack, FlagDecorator}
	case TypeExternalBroker:
		return []Flag{FlagCf, FlagExternalBroker, FlagBroker}
	case TypeBlob:
		return []Flag{FlagCf}
	case TypeHelm:
		return []Flag{FlagHelm}
	}
	return nil
}

// Chart is what the Helm flag needs to know about a chart directory.
type Chart struct {
	Name    string
	Version string
	Images  []string
}

type ChartReader interface {
	ReadChart(chartDirectory string) (Chart, error)
}

// CLIVersionResolver finds the latest release of a GitHub repository.
type CLIVersionResolver interface {
	LatestVersion(ctx context.Context, owner, repo string) (string, error)
}

// Applicator normalizes packages and applies their flags to the product.
type Applicator struct {
	// FS is used to size local app artifacts. It may be nil.
	FS          billy.Basic
	Charts      ChartReader
	CLIVersions CLIVersionResolver
}

type flagFunc func(ctx context.Context, a Applicator, product *Product, pkg *Package, release *Release) error

var flagFuncs = map[Flag]flagFunc{
	FlagBoshRelease:    applyBoshRelease,
	FlagCf:             applyCf,
	FlagDockerBosh:     applyDockerBosh,
	FlagDecorator:      applyDecorator,
	FlagApp:            applyApp,
	FlagExternalBroker: applyExternalBroker,
	FlagBroker:         applyBroker,
	FlagBuildpack:      applyBuildpack,
	FlagHelm:           applyHelm,
}

// Apply normalizes every declared package and then applies flags in
// declaration order. Companion releases injected by a flag are appended to
// the package list, normalized and processed in turn.
func (a Applicator) Apply(ctx context.Context, product *Product) error {
	for _, pkg := range product.Packages {
		if err := Normalize(pkg); err != nil {
			return err
		}
	}
	declared := len(product.Packages)
	for i := 0; i < len(product.Packages); i++ {
		pkg := product.Packages[i]
		if i >= declared {
			if err := Normalize(pkg); err != nil {
				return err
			}
		}
		if err := a.ApplyFlags(ctx, product, pkg); err != nil {
			return err
		}
	}
	return ValidateMemoryQuota(product)
}

// ApplyFlags applies the flags of the package type. Applying a flag twice
// to the same package has no effect.
func (a Applicator) ApplyFlags(ctx context.Context, product *Product, pkg *Package) error {
	release, err := product.releaseFor(pkg)
	if err != nil {
		return err
	}
	pkg.Release = release.Name
	if pkg.Properties == nil {
		pkg.Properties = map[string]any{"name": pkg.Name}
	}

	for _, flag := range Flags(pkg.Type) {
		if slices.Contains(pkg.applied, flag) {
			continue
		}
		if err := flagFuncs[flag](ctx, a, product, pkg, release); err != nil {
			return err
		}
		pkg.applied = append(pkg.applied, flag)
	}
	return nil
}

// AppliedFlags lists the flags applied to the package so far.
func (pkg *Package) AppliedFlags() []Flag { return slices.Clone(pkg.applied) }

func (product *Product) releaseFor(pkg *Package) (*Release, error) {
	if pkg.Release != "" {
		if release, found := product.FindRelease(pkg.Release); found {
			return release, nil
		}
	}
	if pkg.Type == TypeBoshRelease {
		release, err := product.ensureRelease(pkg.Name, true)
		if err != nil {
			return nil, err
		}
		release.Path = pkg.Path
		return release, nil
	}
	release, err := product.ensureRelease(product.Name, false)
	if err != nil {
		return nil, err
	}
	release.addPackage(pkg)
	return release, nil
}

func (product *Product) ensureRelease(name string, external bool) (*Release, error) {
	if existing, found := product.FindRelease(name); found {
		if external || existing.IsExternal() {
			return nil, failure.New(failure.DuplicateRelease, name, "more than one release is named %q", name)
		}
		return existing, nil
	}
	release := &Release{Name: name}
	if external {
		release.PackageType = TypeBoshRelease
	}
	product.Releases = append(product.Releases, release)
	return release, nil
}

// ensureCompanion adds an injected release package unless the product
// already declares a package with that name.
func (product *Product) ensureCompanion(template Package) {
	if _, found := product.FindPackage(template.Name); found {
		return
	}
	product.Packages = append(product.Packages, companion(template))
}

func applyBoshRelease(_ context.Context, _ Applicator, product *Product, pkg *Package, release *Release) error {
	pkg.IsBoshRelease = true
	release.Packages = []*Package{pkg}
	for _, job := range pkg.Jobs {
		if job.Lifecycle == "" && (job.PostDeploy || job.PreDelete) {
			job.Lifecycle = LifecycleErrand
		}
		release.addJob(job)
		if !job.IsErrand() {
			continue
		}
		errand := Errand{
			Name:        job.Name,
			Colocated:   job.Colocated,
			Instances:   job.InstancesColocated,
			RunDefault:  job.RunDefault,
			Label:       job.Label,
			Description: job.Description,
		}
		if job.PostDeploy {
			product.addPostDeployErrand(errand)
		}
		if job.PreDelete {
			product.addPreDeleteErrand(errand)
		}
	}
	return nil
}

func applyCf(_ context.Context, _ Applicator, product *Product, pkg *Package, release *Release) error {
	pkg.IsCF = true
	release.IsCF = true
	product.ensureCompanion(cfCLIRelease)

	release.addJob(&Job{Name: DeployAllJobName, Type: DeployAllJobName, Template: DeployAllJobName, Lifecycle: LifecycleErrand})
	release.addJob(&Job{Name: DeleteAllJobName, Type: DeleteAllJobName, Template: DeleteAllJobName, Lifecycle: LifecycleErrand})
	product.addPostDeployErrand(Errand{Name: DeployAllJobName})
	product.addPreDeleteErrand(Errand{Name: DeleteAllJobName})
	product.requireProductVersion("cf", ">= 1.9")
	return nil
}

func applyDockerBosh(_ context.Context, _ Applicator, product *Product, pkg *Package, release *Release) error {
	pkg.IsDockerBosh = true
	product.RequiresDockerBosh = true
	release.RequiresDockerBosh = true
	product.ensureCompanion(dockerRelease)
	product.ensureCompanion(routingRelease)

	jobName := DockerBoshJobName(pkg)
	manifest, err := appendEnvFile(pkg.Manifest, fmt.Sprintf("/var/vcap/jobs/%s/bin/opsmgr.env", jobName))
	if err != nil {
		return failure.Wrap(failure.SchemaViolation, pkg.Name, err)
	}
	pkg.Manifest = manifest

	release.addJob(&Job{
		Name:      jobName,
		Type:      string(TypeDockerBosh),
		Template:  string(TypeDockerBosh),
		Lifecycle: LifecycleService,
		Package:   pkg,
	})
	return nil
}

// DockerBoshJobName is the name of the job deploying a docker-bosh package.
func DockerBoshJobName(pkg *Package) string { return "docker-bosh-" + pkg.Name }

// appendEnvFile adds envFile to the env_file list of every container. The
// document goes through yaml.v2 because go-patch operates on its map type.
func appendEnvFile(manifest map[string]any, envFile string) (map[string]any, error) {
	containers, _ := manifest["containers"].([]any)
	var ops patch.Ops
	for i, c := range containers {
		container, _ := c.(map[string]any)
		if existing, ok := container["env_file"].([]any); ok && slices.Contains(existing, any(envFile)) {
			continue
		}
		ops = append(ops, patch.ReplaceOp{
			Path:  patch.MustNewPointerFromString(fmt.Sprintf("/containers/%d/env_file?/-", i)),
			Value: envFile,
		})
	}
	if len(ops) == 0 {
		return manifest, nil
	}

	buf, err := yamlv2.Marshal(manifest)
	if err != nil {
		return nil, err
	}
	var document any
	if err := yamlv2.Unmarshal(buf, &document); err != nil {
		return nil, err
	}
	document, err = ops.Apply(document)
	if err != nil {
		return nil, fmt.Errorf("failed to add env_file to containers: %w", err)
	}
	buf, err = yamlv2.Marshal(document)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := yaml.Unmarshal(buf, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func applyDecorator(_ context.Context, _ Applicator, product *Product, pkg *Package, release *Release) error {
	pkg.IsDecorator = true
	release.RequiresMetaBuildpack = true
	product.ensureCompanion(metaBuildpackRelease)
	return nil
}

func applyApp(_ context.Context, a Applicator, product *Product, pkg *Package, release *Release) error {
	pkg.IsApp = true
	if pkg.Type == TypeDockerApp || pkg.Type == TypeDockerAppBroker {
		pkg.IsDocker = true
	}

	if len(pkg.Consumes) > 0 {
		if release.Consumes == nil {
			release.Consumes = make(map[string]any)
		}
		maps.Copy(release.Consumes, pkg.Consumes)
		if release.ConsumesForDeployment == nil {
			release.ConsumesForDeployment = make(map[string]any)
		}
		for name, declaration := range pkg.Consumes {
			release.ConsumesForDeployment[name] = deploymentLink(declaration)
		}
	}

	manifest := pkg.AppManifest()
	memory, err := ParseMemory(manifest["memory"])
	if err != nil {
		var fe *failure.Error
		if errors.As(err, &fe) {
			fe.Subject = pkg.Name + ": " + fe.Subject
		}
		return err
	}
	instances := 1
	if n, ok := manifest["instances"].(int); ok && n > 0 {
		instances = n
	}
	product.TotalMemory += memory * instances
	product.MaxMemory = max(product.MaxMemory, memory)

	if size := a.localArtifactMiB(pkg); size > 0 {
		product.CompilationVMDiskSize = max(product.CompilationVMDiskSize, 4*size)
	}

	pkg.Properties["app_manifest"] = manifest
	services := make([]map[string]any, 0, len(pkg.AutoServices))
	for _, s := range pkg.AutoServices {
		service := map[string]any{"name": s.Name}
		if s.Plan != "" {
			service["plan"] = s.Plan
		}
		services = append(services, service)
	}
	pkg.Properties["auto_services"] = services
	return nil
}

// deploymentLink drops the link type, which belongs to the release job spec
// and not to the deployment manifest.
func deploymentLink(declaration any) any {
	m, ok := declaration.(map[string]any)
	if !ok {
		return declaration
	}
	link := make(map[string]any, len(m))
	for k, v := range m {
		if k != "type" {
			link[k] = v
		}
	}
	return link
}

// localArtifactMiB is the size of the largest local file of the package
// rounded up to MiB. Remote files are sized when they are downloaded.
func (a Applicator) localArtifactMiB(pkg *Package) int {
	if a.FS == nil {
		return 0
	}
	var largest int64
	for _, f := range pkg.Files {
		if strings.Contains(f.Path, "://") || strings.HasPrefix(f.Path, DockerPathPrefix) {
			continue
		}
		info, err := a.FS.Stat(f.Path)
		if err != nil {
			continue
		}
		largest = max(largest, info.Size())
	}
	return int((largest + (1<<20 - 1)) >> 20)
}

func applyExternalBroker(_ context.Context, _ Applicator, _ *Product, pkg *Package, _ *Release) error {
	pkg.IsExternalBroker = true
	name := pkg.CanonicalName()
	pkg.Properties["url"] = propertyReference(name + "_url")
	pkg.Properties["user"] = propertyReference(name + "_user")
	pkg.Properties["password"] = propertyReference(name + "_password")
	return nil
}

func applyBroker(_ context.Context, _ Applicator, _ *Product, pkg *Package, _ *Release) error {
	pkg.IsBroker = true
	pkg.Properties["enable_global_access_to_plans"] = propertyReference(pkg.CanonicalName() + "_enable_global_access_to_plans")
	return nil
}

func applyBuildpack(_ context.Context, _ Applicator, _ *Product, pkg *Package, _ *Release) error {
	pkg.IsBuildpack = true
	pkg.Properties["buildpack_order"] = propertyReference(pkg.CanonicalName() + "_buildpack_order")
	return nil
}

func applyHelm(ctx context.Context, a Applicator, product *Product, pkg *Package, release *Release) error {
	if a.Charts == nil {
		return fmt.Errorf("no chart reader configured for helm package %s", pkg.Name)
	}
	chart, err := a.Charts.ReadChart(pkg.Path)
	if err != nil {
		return failure.Wrap(failure.SchemaViolation, pkg.Name, err)
	}
	pkg.IsHelm = true
	pkg.ChartName = chart.Name
	pkg.ChartVersion = chart.Version
	pkg.Images = chart.Images

	if product.PKSCLI == "" {
		return failure.New(failure.SchemaViolation, pkg.Name, "helm packages require pks_cli to be set")
	}

	imagePackage := &Package{Name: pkg.Name + "-images", Type: TypeBlob, Release: release.Name, DockerImages: chart.Images}
	if err := canonicalizeFiles(imagePackage); err != nil {
		return err
	}
	if len(imagePackage.Files) > 0 {
		release.addPackage(imagePackage)
	}

	helmVersion, err := a.pinCLIVersion(ctx, product.HelmCLIVersion, "helm", "helm")
	if err != nil {
		return err
	}
	kubectlVersion, err := a.pinCLIVersion(ctx, product.KubectlCLIVersion, "kubernetes", "kubernetes")
	if err != nil {
		return err
	}
	release.addPackage(&Package{Name: PKSCLIPackageName, Release: release.Name, Files: []File{
		{Path: product.PKSCLI, Name: "pks", Chmod: "+x"},
	}})
	release.addPackage(&Package{Name: HelmCLIPackageName, Release: release.Name, Files: []File{
		{Path: fmt.Sprintf(helmCLIURLFormat, helmVersion), Name: "helm-linux-amd64.tar.gz", Chmod: "+x", Untar: true},
	}})
	release.addPackage(&Package{Name: KubectlCLIPackageName, Release: release.Name, Files: []File{
		{Path: fmt.Sprintf(kubectlCLIURLFormat, kubectlVersion), Name: "kubectl", Chmod: "+x"},
	}})

	cliPackages := []string{PKSCLIPackageName, HelmCLIPackageName, KubectlCLIPackageName}
	release.addJob(&Job{Name: DeployChartsJobName, Type: DeployChartsJobName, Template: DeployChartsJobName, Lifecycle: LifecycleErrand, Packages: cliPackages})
	release.addJob(&Job{Name: DeleteChartsJobName, Type: DeleteChartsJobName, Template: DeleteChartsJobName, Lifecycle: LifecycleErrand, Packages: cliPackages})
	product.addPostDeployErrand(Errand{Name: DeployChartsJobName})
	product.addPreDeleteErrand(Errand{Name: DeleteChartsJobName})

	if !slices.ContainsFunc(product.Forms, func(f Form) bool { return f.Name == PKSConfigurationFormName }) {
		form := Form{
			Name:        PKSConfigurationFormName,
			Label:       "PKS Configuration",
			Description: "Cluster the Helm charts are deployed to",
			Properties: []Property{
				{Name: "pks_api", Type: "string", Label: "PKS API hostname"},
				{Name: "pks_cluster", Type: "string", Label: "PKS cluster name"},
				{Name: "pks_username", Type: "string", Label: "PKS API username"},
				{Name: "pks_password", Type: "secret", Label: "PKS API password"},
			},
		}
		product.Forms = append(product.Forms, form)
		product.AllProperties = append(product.AllProperties, form.Properties...)
	}
	product.requireProductVersion("pivotal-container-service", ">= 0.8")
	return nil
}

func (a Applicator) pinCLIVersion(ctx context.Context, pinned, owner, repo string) (string, error) {
	if pinned != "" {
		return strings.TrimPrefix(pinned, "v"), nil
	}
	if a.CLIVersions == nil {
		return "", failure.New(failure.UpstreamUnavailable, owner+"/"+repo, "no version pinned and no release feed configured")
	}
	version, err := a.CLIVersions.LatestVersion(ctx, owner, repo)
	if err != nil {
		return "", failure.Wrap(failure.UpstreamUnavailable, owner+"/"+repo, err)
	}
	return strings.TrimPrefix(version, "v"), nil
}

func propertyReference(name string) string {
	return fmt.Sprintf("(( .properties.%s.value ))", name)
}
