package product

import (
	"fmt"
	"slices"
)

type Type string

const (
	TypeBoshRelease     Type = "bosh-release"
	TypeDockerBosh      Type = "docker-bosh"
	TypeApp             Type = "app"
	TypeAppBroker       Type = "app-broker"
	TypeBuildpack       Type = "buildpack"
	TypeDecorator       Type = "decorator"
	TypeExternalBroker  Type = "external-broker"
	TypeDockerApp       Type = "docker-app"
	TypeDockerAppBroker Type = "docker-app-broker"
	TypeBlob            Type = "blob"
	TypeHelm            Type = "helm"
)

var knownTypes = []Type{
	TypeBoshRelease, TypeDockerBosh, TypeApp, TypeAppBroker, TypeBuildpack, TypeDecorator,
	TypeExternalBroker, TypeDockerApp, TypeDockerAppBroker, TypeBlob, TypeHelm,
}

func (t Type) Known() bool { return slices.Contains(knownTypes, t) }

type Package struct {
	Name        string `yaml:"name"`
	Type        Type   `yaml:"type"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`

	Path         string         `yaml:"path"`
	Files        []File         `yaml:"files"`
	Manifest     map[string]any `yaml:"-"`
	DockerImages []string       `yaml:"docker_images"`

	// app, app-broker, docker-app and docker-app-broker
	Consumes     map[string]any `yaml:"consumes"`
	AutoServices []AutoService  `yaml:"-"`

	// docker-bosh
	Routes         []Route `yaml:"routes"`
	Memory         int     `yaml:"memory"`
	EphemeralDisk  int     `yaml:"ephemeral_disk"`
	PersistentDisk int     `yaml:"persistent_disk"`
	CPU            int     `yaml:"cpu"`
	Instances      int     `yaml:"instances"`

	// bosh-release
	Jobs []*Job `yaml:"jobs"`

	// Properties is the bag made available to the package at deploy time.
	Properties map[string]any `yaml:"properties"`

	IsApp            bool `yaml:"-"`
	IsBroker         bool `yaml:"-"`
	IsBuildpack      bool `yaml:"-"`
	IsDecorator      bool `yaml:"-"`
	IsDocker         bool `yaml:"-"`
	IsDockerBosh     bool `yaml:"-"`
	IsBoshRelease    bool `yaml:"-"`
	IsExternalBroker bool `yaml:"-"`
	IsCF             bool `yaml:"-"`
	IsHelm           bool `yaml:"-"`

	// Release is the name of the release that owns the package.
	Release string `yaml:"-"`
	// Images are the container images a helm chart references.
	Images       []string `yaml:"-"`
	ChartName    string   `yaml:"-"`
	ChartVersion string   `yaml:"-"`

	applied []Flag
}

type File struct {
	Path  string `yaml:"path"`
	Name  string `yaml:"name"`
	Chmod string `yaml:"chmod,omitempty"`
	Untar bool   `yaml:"untar,omitempty"`
}

type AutoService struct {
	Name string `yaml:"name"`
	Plan string `yaml:"plan,omitempty"`
}

type Route struct {
	Prefix string `yaml:"prefix"`
	Port   int    `yaml:"port"`
}

// CanonicalName is the package name with hyphens mapped to underscores.
func (pkg *Package) CanonicalName() string { return CanonicalName(pkg.Name) }

// AppManifest returns a shallow copy of the declared CF application
// manifest. Every key is kept.
func (pkg *Package) AppManifest() map[string]any {
	if pkg.Manifest == nil {
		return nil
	}
	result := make(map[string]any, len(pkg.Manifest))
	for k, v := range pkg.Manifest {
		result[k] = v
	}
	return result
}

func (pkg *Package) String() string { return fmt.Sprintf("%s (%s)", pkg.Name, pkg.Type) }

// Release is one tarball's worth of packages and jobs.
type Release struct {
	Name     string
	Packages []*Package
	Jobs     []*Job

	Consumes              map[string]any
	ConsumesForDeployment map[string]any
	RequiresMetaBuildpack bool
	RequiresDockerBosh    bool
	IsCF                  bool

	// PackageType is TypeBoshRelease for releases supplied as a tarball.
	PackageType Type
	// Path is the tarball location for releases supplied as a tarball.
	Path string
}

func (release *Release) IsExternal() bool { return release.PackageType == TypeBoshRelease }

func (release *Release) FindJob(name string) (*Job, bool) {
	index := slices.IndexFunc(release.Jobs, func(j *Job) bool { return j.Name == name })
	if index < 0 {
		return nil, false
	}
	return release.Jobs[index], true
}

func (release *Release) addJob(job *Job) {
	if _, found := release.FindJob(job.Name); found {
		return
	}
	// deploy-all and delete-all stay at the tail of the job list.
	if job.Name != "deploy-all" && job.Name != "delete-all" {
		if index := slices.IndexFunc(release.Jobs, func(j *Job) bool {
			return j.Name == "deploy-all" || j.Name == "delete-all"
		}); index >= 0 {
			release.Jobs = slices.Insert(release.Jobs, index, job)
			return
		}
	}
	release.Jobs = append(release.Jobs, job)
}

func (release *Release) addPackage(pkg *Package) {
	if slices.ContainsFunc(release.Packages, func(p *Package) bool { return p.Name == pkg.Name }) {
		return
	}
	release.Packages = append(release.Packages, pkg)
}

const (
	LifecycleErrand  = "errand"
	LifecycleService = "service"
)

// Job is either a job generated into the product release or a job
// declared on a bosh-release package.
type Job struct {
	Name        string `yaml:"name"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	Lifecycle   string `yaml:"lifecycle"`

	Templates      []JobTemplate  `yaml:"templates"`
	Memory         any            `yaml:"memory"`
	EphemeralDisk  int            `yaml:"ephemeral_disk"`
	PersistentDisk int            `yaml:"persistent_disk"`
	CPU            int            `yaml:"cpu"`
	Instances      *int           `yaml:"instances"`
	// InstanceConstraints bound the instance count an operator may choose,
	// with the keys of an Ops Manager instance_definition constraints block.
	InstanceConstraints map[string]any `yaml:"instance_constraints"`
	StaticIP       int            `yaml:"static_ip"`
	DynamicIP      int            `yaml:"dynamic_ip"`
	MaxInFlight    any            `yaml:"max_in_flight"`
	SingleAZOnly   bool           `yaml:"single_az_only"`
	Properties     map[string]any `yaml:"properties"`

	PostDeploy         bool     `yaml:"post_deploy"`
	PreDelete          bool     `yaml:"pre_delete"`
	Colocated          bool     `yaml:"colocated"`
	InstancesColocated []string `yaml:"instances_colocated"`
	RunDefault         any      `yaml:"run_default"`

	// Type and Template are set on generated jobs. Template names the job
	// script rendered into the release.
	Type     string   `yaml:"-"`
	Template string   `yaml:"-"`
	Packages []string `yaml:"-"`
	// Package is the docker-bosh package a generated job deploys.
	Package *Package `yaml:"-"`
}

type JobTemplate struct {
	Name     string `yaml:"name"`
	Release  string `yaml:"release"`
	Consumes any    `yaml:"consumes"`
	Provides any    `yaml:"provides"`
	Manifest any    `yaml:"manifest"`
}

func (job *Job) IsErrand() bool { return job.Lifecycle == LifecycleErrand }
