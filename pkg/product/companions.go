package product

// Releases injected when a flag needs jobs or packages that live outside
// the product release. Each is added as a bosh-release package so it goes
// through the same download path as a declared one.
var (
	cfCLIRelease = Package{
		Name: "cf-cli",
		Type: TypeBoshRelease,
		Path: "https://bosh.io/d/github.com/bosh-packages/cf-cli-release?v=1.62.0",
	}
	dockerRelease = Package{
		Name: "docker",
		Type: TypeBoshRelease,
		Path: "https://bosh.io/d/github.com/cloudfoundry-incubator/docker-boshrelease?v=35.3.4",
	}
	routingRelease = Package{
		Name: "routing",
		Type: TypeBoshRelease,
		Path: "https://bosh.io/d/github.com/cloudfoundry/routing-release?v=0.283.0",
	}
	metaBuildpackRelease = Package{
		Name: "meta-buildpack",
		Type: TypeBoshRelease,
		Path: "https://github.com/cf-platform-eng/meta-buildpack/releases/download/v1.0.0/meta-buildpack-1.0.0.tgz",
		Jobs: []*Job{
			{Name: "deploy-meta-buildpack", Label: "Deploy meta-buildpack", Lifecycle: LifecycleErrand, PostDeploy: true},
			{Name: "delete-meta-buildpack", Label: "Delete meta-buildpack", Lifecycle: LifecycleErrand, PreDelete: true},
		},
	}
)

const (
	// CFCLIJobName is the cf-cli release job colocated with deploy-all and
	// delete-all.
	CFCLIJobName = "cf-cli-6-linux"

	DeployAllJobName    = "deploy-all"
	DeleteAllJobName    = "delete-all"
	DeployChartsJobName = "deploy-charts"
	DeleteChartsJobName = "delete-charts"

	PKSCLIPackageName     = "pks_cli"
	HelmCLIPackageName    = "helm_cli"
	KubectlCLIPackageName = "kubectl_cli"

	PKSConfigurationFormName = "pks_configuration"

	helmCLIURLFormat    = "https://get.helm.sh/helm-v%s-linux-amd64.tar.gz"
	kubectlCLIURLFormat = "https://dl.k8s.io/release/v%s/bin/linux/amd64/kubectl"
)

func companion(template Package) *Package {
	pkg := template
	pkg.Jobs = nil
	for _, job := range template.Jobs {
		j := *job
		pkg.Jobs = append(pkg.Jobs, &j)
	}
	return &pkg
}
