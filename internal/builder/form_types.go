package builder

import (
	"fmt"

	"github.com/cf-platform-eng/tile-generator/pkg/product"
	"github.com/cf-platform-eng/tile-generator/pkg/proofing"
)

const (
	BuildpackFormName      = "buildpack_settings"
	ExternalBrokerFormName = "external_broker_settings"
	ServiceAccessFormName  = "service_access"
)

func (c compilation) formTypes() []proofing.FormType {
	p := c.product
	forms := make([]proofing.FormType, 0, len(p.Forms)+len(p.ServicePlanForms))

	for _, form := range p.Forms {
		forms = append(forms, proofing.FormType{
			Name:           form.Name,
			Label:          form.Label,
			Description:    form.Description,
			Markdown:       form.Markdown,
			PropertyInputs: propertyInputs(form.Properties),
		})
	}

	for _, form := range p.ServicePlanForms {
		plan := proofing.PropertyInputs{{Reference: "name", Label: "Plan name"}}
		for _, property := range form.Properties {
			plan = append(plan, proofing.PropertyInput{
				Reference:   property.Name,
				Label:       property.Label,
				Description: property.Description,
				Placeholder: property.Placeholder,
			})
		}
		forms = append(forms, proofing.FormType{
			Name:        form.Name,
			Label:       form.Label,
			Description: form.Description,
			Markdown:    form.Markdown,
			PropertyInputs: proofing.PropertyInputs{{
				Reference:      ".properties." + form.Name,
				Label:          form.Label,
				PropertyInputs: plan,
			}},
		})
	}

	var buildpacks, brokers, access proofing.PropertyInputs
	for _, pkg := range p.Packages {
		name := pkg.CanonicalName()
		if pkg.IsBuildpack {
			buildpacks = append(buildpacks, proofing.PropertyInput{
				Reference:   ".properties." + name + "_buildpack_order",
				Label:       fmt.Sprintf("Buildpack order for %s", pkg.Name),
				Description: "Position of the buildpack in the list of buildpacks",
			})
		}
		if pkg.IsExternalBroker {
			brokers = append(brokers,
				proofing.PropertyInput{Reference: ".properties." + name + "_url", Label: fmt.Sprintf("URL of %s", pkg.Name)},
				proofing.PropertyInput{Reference: ".properties." + name + "_user", Label: fmt.Sprintf("Username for %s", pkg.Name)},
				proofing.PropertyInput{Reference: ".properties." + name + "_password", Label: fmt.Sprintf("Password for %s", pkg.Name)},
			)
		}
		if pkg.IsBroker {
			access = append(access, proofing.PropertyInput{
				Reference: ".properties." + name + "_enable_global_access_to_plans",
				Label:     fmt.Sprintf("Enable global access to plans of %s", pkg.Name),
			})
		}
	}
	if len(buildpacks) > 0 {
		forms = append(forms, proofing.FormType{
			Name:           BuildpackFormName,
			Label:          "Buildpack Settings",
			Description:    "Configure the buildpacks this tile installs",
			PropertyInputs: buildpacks,
		})
	}
	if len(brokers) > 0 {
		forms = append(forms, proofing.FormType{
			Name:           ExternalBrokerFormName,
			Label:          "Broker Settings",
			Description:    "Where to find the service brokers this tile registers",
			PropertyInputs: brokers,
		})
	}
	if len(access) > 0 {
		forms = append(forms, proofing.FormType{
			Name:           ServiceAccessFormName,
			Label:          "Service Access",
			Description:    "Access to the plans of the service brokers this tile registers",
			PropertyInputs: access,
		})
	}
	return forms
}

func propertyInputs(properties []product.Property) proofing.PropertyInputs {
	inputs := make(proofing.PropertyInputs, 0, len(properties))
	for _, property := range properties {
		input := proofing.PropertyInput{
			Reference:   propertyReference(property),
			Label:       property.Label,
			Description: property.Description,
			Placeholder: property.Placeholder,
		}
		switch property.Type {
		case "selector":
			for _, option := range property.OptionTemplates {
				input.SelectorPropertyInputs = append(input.SelectorPropertyInputs, proofing.SelectorPropertyInput{
					Reference:      input.Reference + "." + option.Name,
					Label:          option.SelectValue,
					PropertyInputs: configurableInputs(input.Reference+"."+option.Name, option.PropertyBlueprints),
				})
			}
		case "collection":
			for _, sub := range property.PropertyBlueprints {
				input.PropertyInputs = append(input.PropertyInputs, proofing.PropertyInput{
					Reference:   sub.Name,
					Label:       sub.Label,
					Description: sub.Description,
					Placeholder: sub.Placeholder,
				})
			}
		}
		inputs = append(inputs, input)
	}
	return inputs
}

// configurableInputs leaves out properties the operator cannot set. The
// result is nil when none are left so the document carries null.
func configurableInputs(reference string, properties []product.Property) proofing.PropertyInputs {
	var inputs proofing.PropertyInputs
	for _, property := range properties {
		if !property.IsConfigurable(false) {
			continue
		}
		inputs = append(inputs, proofing.PropertyInput{
			Reference:   reference + "." + property.Name,
			Label:       property.Label,
			Description: property.Description,
			Placeholder: property.Placeholder,
		})
	}
	return inputs
}
