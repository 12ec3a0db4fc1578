package builder

import (
	"fmt"

	"github.com/cf-platform-eng/tile-generator/pkg/product"
	"github.com/cf-platform-eng/tile-generator/pkg/proofing"
)

// Properties of non standalone products.
const (
	OrgProperty                    = "org"
	SpaceProperty                  = "space"
	ApplyOpenSecurityGroupProperty = "apply_open_security_group"
	AllowPaidServicePlansProperty  = "allow_paid_service_plans"

	GeneratedCertificateProperty = "generated_rsa_cert_credentials"
)

func (c compilation) propertyBlueprints() proofing.PropertyBlueprints {
	p := c.product
	var blueprints proofing.PropertyBlueprints

	if !p.Standalone {
		blueprints = append(blueprints,
			proofing.SimplePropertyBlueprint{Name: OrgProperty, Type: "string", Configurable: true, Default: p.Org},
			proofing.SimplePropertyBlueprint{Name: SpaceProperty, Type: "string", Configurable: true, Default: p.Space},
			proofing.SimplePropertyBlueprint{Name: ApplyOpenSecurityGroupProperty, Type: "boolean", Configurable: true, Default: p.ApplyOpenSecurityGroup},
			proofing.SimplePropertyBlueprint{Name: AllowPaidServicePlansProperty, Type: "boolean", Configurable: true, Default: p.AllowPaidServicePlans},
		)
	}
	if p.RequiresDockerBosh {
		blueprints = append(blueprints, proofing.SimplePropertyBlueprint{
			Name:    GeneratedCertificateProperty,
			Type:    "rsa_cert_credentials",
			Default: map[string]any{
				"domains": []string{"*.(( ..cf.cloud_controller.system_domain.value ))"},
			},
		})
	}

	for _, form := range p.ServicePlanForms {
		nested := proofing.PropertyBlueprints{
			proofing.SimplePropertyBlueprint{Name: "guid", Type: "uuid", Unique: true},
			proofing.SimplePropertyBlueprint{Name: "name", Type: "string", Configurable: true, Unique: true},
		}
		for _, property := range form.Properties {
			nested = append(nested, blueprint(property, true))
		}
		blueprints = append(blueprints, proofing.CollectionPropertyBlueprint{
			SimplePropertyBlueprint: proofing.SimplePropertyBlueprint{Name: form.Name, Type: "collection", Configurable: true, Optional: true},
			PropertyBlueprints:      nested,
		})
	}

	for _, pkg := range p.Packages {
		name := pkg.CanonicalName()
		if pkg.IsBuildpack {
			blueprints = append(blueprints, proofing.SimplePropertyBlueprint{Name: name + "_buildpack_order", Type: "integer", Configurable: true, Default: 99})
		}
		if pkg.IsBroker {
			blueprints = append(blueprints, proofing.SimplePropertyBlueprint{Name: name + "_enable_global_access_to_plans", Type: "boolean", Configurable: true, Default: false})
		}
		if pkg.IsExternalBroker {
			blueprints = append(blueprints,
				proofing.SimplePropertyBlueprint{Name: name + "_url", Type: "string", Configurable: true},
				proofing.SimplePropertyBlueprint{Name: name + "_user", Type: "string", Configurable: true},
				proofing.SimplePropertyBlueprint{Name: name + "_password", Type: "secret", Configurable: true},
			)
		}
	}

	for _, property := range p.AllProperties {
		if property.Job != "" {
			continue
		}
		blueprints = append(blueprints, blueprint(property, c.formNames[property.Name]))
	}
	return blueprints
}

// blueprint converts a declared property. Properties on forms are
// configurable unless they say otherwise.
func blueprint(property product.Property, onForm bool) proofing.PropertyBlueprint {
	simple := proofing.SimplePropertyBlueprint{
		Name:         property.Name,
		Type:         property.Type,
		Configurable: property.IsConfigurable(onForm),
		Optional:     property.Optional,
		Default:      property.Default,
		Options:      property.Options,
		Constraints:  property.Constraints,
	}
	switch property.Type {
	case "selector":
		selector := proofing.SelectorPropertyBlueprint{SimplePropertyBlueprint: simple}
		for _, option := range property.OptionTemplates {
			template := proofing.SelectorPropertyOptionTemplate{Name: option.Name, SelectValue: option.SelectValue}
			for _, sub := range option.PropertyBlueprints {
				template.PropertyBlueprints = append(template.PropertyBlueprints, blueprint(sub, false))
			}
			selector.OptionTemplates = append(selector.OptionTemplates, template)
		}
		return selector
	case "collection":
		collection := proofing.CollectionPropertyBlueprint{SimplePropertyBlueprint: simple}
		for _, sub := range property.PropertyBlueprints {
			collection.PropertyBlueprints = append(collection.PropertyBlueprints, blueprint(sub, false))
		}
		return collection
	}
	return simple
}

// propertyReference is where Ops Manager keeps the value of a property.
func propertyReference(property product.Property) string {
	if property.Job != "" {
		return fmt.Sprintf(".%s.%s", property.Job, property.Name)
	}
	return ".properties." + property.Name
}

func accessor(reference, field string) string {
	return fmt.Sprintf("(( %s.%s ))", reference, field)
}

// propertyAccessor renders how a job manifest reads a property. The shape
// depends on the property type.
func propertyAccessor(reference string, property product.Property) any {
	switch property.Type {
	case "simple_credentials":
		return map[string]any{
			"identity": accessor(reference, "identity"),
			"password": accessor(reference, "password"),
		}
	case "salted_credentials":
		return map[string]any{
			"identity": accessor(reference, "identity"),
			"password": accessor(reference, "password"),
			"salt":     accessor(reference, "salt"),
		}
	case "rsa_cert_credentials":
		return map[string]any{
			"cert_pem":        accessor(reference, "cert_pem"),
			"private_key_pem": accessor(reference, "private_key_pem"),
		}
	case "rsa_pkey_credentials":
		return map[string]any{
			"private_key_pem": accessor(reference, "private_key_pem"),
			"public_key_pem":  accessor(reference, "public_key_pem"),
		}
	case "selector":
		result := map[string]any{"value": accessor(reference, "value")}
		for _, option := range property.OptionTemplates {
			options := make(map[string]any, len(option.PropertyBlueprints))
			for _, sub := range option.PropertyBlueprints {
				options[sub.Name] = propertyAccessor(reference+"."+option.Name+"."+sub.Name, sub)
			}
			result[option.Name] = options
		}
		return result
	}
	return accessor(reference, "value")
}
