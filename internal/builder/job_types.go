package builder

import (
	"fmt"
	"maps"

	"github.com/cf-platform-eng/tile-generator/pkg/product"
	"github.com/cf-platform-eng/tile-generator/pkg/proofing"
)

const (
	CompilationJobName      = "compilation"
	AppCredentialsProperty  = "app_credentials"
	systemDomainAccessor    = "(( ..cf.cloud_controller.system_domain.value ))"
	appsDomainAccessor      = "(( ..cf.cloud_controller.apps_domain.value ))"
	skipCertVerifyAccessor  = "(( ..cf.ha_proxy.skip_cert_verify.value ))"
	cfDeploymentAccessor    = "(( ..cf.deployment_name ))"
	systemServicesReference = "..cf.uaa.system_services_credentials"
)

type resources struct {
	ram, ephemeralDisk, persistentDisk, cpu int
}

var (
	errandResources      = resources{ram: 1024, ephemeralDisk: 4096, persistentDisk: 0, cpu: 1}
	compilationResources = resources{ram: 4096, persistentDisk: 0, cpu: 2}
)

func (c compilation) jobTypes() ([]proofing.JobType, error) {
	var jobs []proofing.JobType
	if !c.noCompilationJob {
		jobs = append(jobs, c.compilationJob())
	}

	var errands []proofing.JobType
	for _, r := range c.product.Releases {
		if r.IsExternal() {
			continue
		}
		for _, job := range r.Jobs {
			if job.Package != nil && job.Package.IsDockerBosh {
				jobType, err := c.dockerBoshJob(r, job)
				if err != nil {
					return nil, err
				}
				jobs = append(jobs, jobType)
				continue
			}
			jobType, err := c.errandJob(r, job)
			if err != nil {
				return nil, err
			}
			errands = append(errands, jobType)
		}
	}

	for _, r := range c.product.Releases {
		if !r.IsExternal() {
			continue
		}
		for _, job := range r.Jobs {
			jobType, err := c.externalJob(r, job)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, jobType)
		}
	}
	return append(jobs, errands...), nil
}

func (c compilation) compilationJob() proofing.JobType {
	job := proofing.JobType{
		Name:          CompilationJobName,
		ResourceLabel: "Compilation",
		StaticIP:      0,
		DynamicIP:     1,
		MaxInFlight:   1,
		SingleAZOnly:  true,
		Templates:     []proofing.Template{},
	}
	disk := compilationResources
	disk.ephemeralDisk = c.compileDiskMB
	job.ResourceDefinitions = resourceDefinitions(disk, false)
	c.setInstances(&job, proofing.InstanceDefinition{Name: "instances", Type: "integer", Configurable: true, Default: 1})
	return job
}

func (c compilation) dockerBoshJob(r *product.Release, job *product.Job) (proofing.JobType, error) {
	pkg := job.Package
	declared := resources{ram: pkg.Memory, ephemeralDisk: pkg.EphemeralDisk, persistentDisk: pkg.PersistentDisk, cpu: pkg.CPU}
	instances := pkg.Instances
	if instances == 0 {
		instances = 1
	}

	manifest := make(map[string]any)
	maps.Copy(manifest, pkg.Manifest)
	routes := make([]map[string]any, 0, len(pkg.Routes))
	for _, route := range pkg.Routes {
		routes = append(routes, map[string]any{
			"name":                  pkg.Name,
			"port":                  route.Port,
			"registration_interval": "20s",
			"uris":                  []string{route.Prefix + "." + systemDomainAccessor},
		})
	}
	manifest["route_registrar"] = map[string]any{"routes": routes}
	c.addProductProperties(manifest)
	for _, form := range c.product.ServicePlanForms {
		manifest[form.Name] = accessor(".properties."+form.Name, "value")
	}
	manifest[GeneratedCertificateProperty] = propertyAccessor(".properties."+GeneratedCertificateProperty, product.Property{Type: "rsa_cert_credentials"})
	c.addPackageBags(manifest, r)
	c.addJobProperties(manifest, job.Name)

	literal, err := proofing.NewLiteralYAML(manifest)
	if err != nil {
		return proofing.JobType{}, fmt.Errorf("job %s: %w", job.Name, err)
	}
	label := pkg.Label
	if label == "" {
		label = pkg.Name
	}
	jobType := proofing.JobType{
		Name:          job.Name,
		ResourceLabel: label,
		Description:   pkg.Description,
		Templates: []proofing.Template{
			{Name: "containers", Release: c.releaseName("docker")},
			{Name: "docker", Release: c.releaseName("docker")},
			{Name: job.Name, Release: c.releaseName(r.Name)},
			{
				Name:     "route_registrar",
				Release:  c.releaseName("routing"),
				Consumes: proofing.LiteralString(fmt.Sprintf("nats:\n  from: nats\n  deployment: %s\n", cfDeploymentAccessor)),
			},
		},
		StaticIP:            0,
		DynamicIP:           1,
		MaxInFlight:         1,
		ResourceDefinitions: resourceDefinitions(withDefaults(declared, errandResources), true),
		PropertyBlueprints:  c.jobPropertyBlueprints(job.Name),
		Manifest:            literal,
	}
	c.setInstances(&jobType, proofing.InstanceDefinition{Name: "instances", Type: "integer", Configurable: true, Default: instances})
	return jobType, nil
}

func (c compilation) externalJob(r *product.Release, job *product.Job) (proofing.JobType, error) {
	memory, err := product.ParseMemory(job.Memory)
	if err != nil {
		return proofing.JobType{}, err
	}
	declared := resources{ram: memory, ephemeralDisk: job.EphemeralDisk, persistentDisk: job.PersistentDisk, cpu: job.CPU}

	templates := make([]proofing.Template, 0, len(job.Templates))
	for _, t := range job.Templates {
		template := proofing.Template{Name: t.Name, Release: t.Release}
		if template.Release == "" {
			template.Release = c.releaseName(r.Name)
		}
		if template.Consumes, err = literal(t.Consumes); err != nil {
			return proofing.JobType{}, fmt.Errorf("job %s template %s consumes: %w", job.Name, t.Name, err)
		}
		if template.Provides, err = literal(t.Provides); err != nil {
			return proofing.JobType{}, fmt.Errorf("job %s template %s provides: %w", job.Name, t.Name, err)
		}
		if template.Manifest, err = literal(t.Manifest); err != nil {
			return proofing.JobType{}, fmt.Errorf("job %s template %s manifest: %w", job.Name, t.Name, err)
		}
		templates = append(templates, template)
	}
	if len(templates) == 0 {
		templates = append(templates, proofing.Template{Name: job.Name, Release: c.releaseName(r.Name)})
	}

	var manifest proofing.LiteralString
	if len(job.Properties) > 0 {
		if manifest, err = proofing.NewLiteralYAML(job.Properties); err != nil {
			return proofing.JobType{}, fmt.Errorf("job %s properties: %w", job.Name, err)
		}
	}
	label := job.Label
	if label == "" {
		label = job.Name
	}
	maxInFlight := job.MaxInFlight
	if maxInFlight == nil {
		maxInFlight = 1
	}
	instances := 1
	if job.Instances != nil {
		instances = *job.Instances
	}

	jobType := proofing.JobType{
		Name:                job.Name,
		ResourceLabel:       label,
		Description:         job.Description,
		Templates:           templates,
		Errand:              job.IsErrand(),
		StaticIP:            job.StaticIP,
		DynamicIP:           job.DynamicIP,
		MaxInFlight:         maxInFlight,
		SingleAZOnly:        job.SingleAZOnly,
		ResourceDefinitions: resourceDefinitions(withDefaults(declared, errandResources), true),
		PropertyBlueprints:  c.jobPropertyBlueprints(job.Name),
		Manifest:            manifest,
	}
	if !job.IsErrand() && job.StaticIP == 0 && job.DynamicIP == 0 {
		jobType.DynamicIP = 1
	}
	c.setInstances(&jobType, proofing.InstanceDefinition{
		Name:         "instances",
		Type:         "integer",
		Configurable: !job.IsErrand(),
		Default:      instances,
		Constraints:  proofing.IntegerConstraintsFromMap(job.InstanceConstraints),
	})
	return jobType, nil
}

func (c compilation) errandJob(r *product.Release, job *product.Job) (proofing.JobType, error) {
	templates := []proofing.Template{{Name: job.Name, Release: c.releaseName(r.Name)}}
	if job.Name == product.DeployAllJobName || job.Name == product.DeleteAllJobName {
		templates = append(templates, proofing.Template{Name: product.CFCLIJobName, Release: c.releaseName("cf-cli")})
	}

	if job.Name == product.DeployAllJobName && len(r.ConsumesForDeployment) > 0 {
		consumes, err := proofing.NewLiteralYAML(r.ConsumesForDeployment)
		if err != nil {
			return proofing.JobType{}, fmt.Errorf("job %s consumes: %w", job.Name, err)
		}
		templates[0].Consumes = consumes
	}

	values := c.errandManifest(r)
	c.addJobProperties(values, job.Name)
	manifest, err := proofing.NewLiteralYAML(values)
	if err != nil {
		return proofing.JobType{}, fmt.Errorf("job %s: %w", job.Name, err)
	}
	label := job.Label
	if label == "" {
		label = job.Name
	}
	jobType := proofing.JobType{
		Name:                job.Name,
		ResourceLabel:       label,
		Description:         job.Description,
		Templates:           templates,
		Errand:              true,
		StaticIP:            0,
		DynamicIP:           1,
		MaxInFlight:         1,
		SingleAZOnly:        true,
		ResourceDefinitions: resourceDefinitions(errandResources, false),
		Manifest:            manifest,
	}
	if job.Name == product.DeployAllJobName {
		jobType.PropertyBlueprints = proofing.PropertyBlueprints{
			proofing.SimplePropertyBlueprint{Name: AppCredentialsProperty, Type: "simple_credentials"},
		}
	}
	jobType.PropertyBlueprints = append(jobType.PropertyBlueprints, c.jobPropertyBlueprints(job.Name)...)
	c.setInstances(&jobType, proofing.InstanceDefinition{Name: "instances", Type: "integer", Configurable: false, Default: 1})
	return jobType, nil
}

// errandManifest is the manifest of the errands generated into release.
// Its keys are the properties product.JobPropertyNames lists.
func (c compilation) errandManifest(r *product.Release) map[string]any {
	p := c.product
	manifest := map[string]any{
		product.JobPropertyDomain:    systemDomainAccessor,
		product.JobPropertyAppDomain: appsDomainAccessor,
		"ssl":                        map[string]any{"skip_cert_verify": skipCertVerifyAccessor},
		"cf": map[string]any{
			"admin_user":     accessor(systemServicesReference, "identity"),
			"admin_password": accessor(systemServicesReference, "password"),
		},
	}
	if _, found := r.FindJob(product.DeployAllJobName); found {
		reference := "." + product.DeployAllJobName + "." + AppCredentialsProperty
		manifest["security"] = map[string]any{
			"user":     accessor(reference, "identity"),
			"password": accessor(reference, "password"),
		}
	}
	if p.Standalone {
		manifest[product.JobPropertyOrg] = p.Org
		manifest[product.JobPropertySpace] = p.Space
		manifest[product.JobPropertyApplyOpenSecurityGroup] = p.ApplyOpenSecurityGroup
		manifest[product.JobPropertyAllowPaidServicePlans] = p.AllowPaidServicePlans
	} else {
		manifest[product.JobPropertyOrg] = accessor(".properties."+OrgProperty, "value")
		manifest[product.JobPropertySpace] = accessor(".properties."+SpaceProperty, "value")
		manifest[product.JobPropertyApplyOpenSecurityGroup] = accessor(".properties."+ApplyOpenSecurityGroupProperty, "value")
		manifest[product.JobPropertyAllowPaidServicePlans] = accessor(".properties."+AllowPaidServicePlansProperty, "value")
	}
	c.addProductProperties(manifest)
	c.addPackageBags(manifest, r)
	return manifest
}

func (c compilation) addProductProperties(manifest map[string]any) {
	for _, property := range c.product.AllProperties {
		if property.Job != "" {
			continue
		}
		manifest[property.Name] = propertyAccessor(propertyReference(property), property)
	}
}

// jobPropertyBlueprints are the blueprints of the properties scoped to job.
func (c compilation) jobPropertyBlueprints(job string) proofing.PropertyBlueprints {
	var blueprints proofing.PropertyBlueprints
	for _, property := range c.product.AllProperties {
		if property.Job == job {
			blueprints = append(blueprints, blueprint(property, c.formNames[property.Name]))
		}
	}
	return blueprints
}

func (c compilation) addJobProperties(manifest map[string]any, job string) {
	for _, property := range c.product.AllProperties {
		if property.Job == job {
			manifest[property.Name] = propertyAccessor(propertyReference(property), property)
		}
	}
}

func (c compilation) addPackageBags(manifest map[string]any, r *product.Release) {
	for _, pkg := range r.Packages {
		if bag := c.bags[pkg.Name]; bag != nil {
			manifest[pkg.CanonicalName()] = bag
		}
	}
}

func (c compilation) setInstances(job *proofing.JobType, definition proofing.InstanceDefinition) {
	if c.singularInstances {
		job.InstanceDefinition = &definition
		return
	}
	job.InstanceDefinitions = []proofing.InstanceDefinition{definition}
}

func withDefaults(declared, defaults resources) resources {
	if declared.ram == 0 {
		declared.ram = defaults.ram
	}
	if declared.ephemeralDisk == 0 {
		declared.ephemeralDisk = defaults.ephemeralDisk
	}
	if declared.cpu == 0 {
		declared.cpu = defaults.cpu
	}
	return declared
}

// resourceDefinitions lists ram, ephemeral_disk, persistent_disk and cpu.
// With minimums each default is also the smallest value accepted.
func resourceDefinitions(r resources, minimums bool) []proofing.ResourceDefinition {
	definition := func(name string, value int) proofing.ResourceDefinition {
		d := proofing.ResourceDefinition{Name: name, Type: "integer", Configurable: true, Default: value}
		if minimums {
			minimum := value
			d.Constraints = &proofing.IntegerConstraints{Min: &minimum}
		}
		return d
	}
	return []proofing.ResourceDefinition{
		definition("ram", r.ram),
		definition("ephemeral_disk", r.ephemeralDisk),
		definition("persistent_disk", r.persistentDisk),
		definition("cpu", r.cpu),
	}
}

func literal(value any) (proofing.LiteralString, error) {
	if s, ok := value.(string); ok {
		return proofing.LiteralString(s), nil
	}
	return proofing.NewLiteralYAML(value)
}
