package product

import (
	"slices"
	"sort"
)

// Properties every generated job declares. Their values come from the
// Elastic Runtime tile and the product's own settings.
const (
	JobPropertyDomain                 = "domain"
	JobPropertyAppDomain              = "app_domain"
	JobPropertyOrg                    = "org"
	JobPropertySpace                  = "space"
	JobPropertySkipCertVerify         = "ssl.skip_cert_verify"
	JobPropertyAdminUser              = "cf.admin_user"
	JobPropertyAdminPassword          = "cf.admin_password"
	JobPropertySecurityUser           = "security.user"
	JobPropertySecurityPassword       = "security.password"
	JobPropertyApplyOpenSecurityGroup = "apply_open_security_group"
	JobPropertyAllowPaidServicePlans  = "allow_paid_service_plans"
)

var standardJobProperties = []string{
	JobPropertyDomain,
	JobPropertyAppDomain,
	JobPropertyOrg,
	JobPropertySpace,
	JobPropertySkipCertVerify,
	JobPropertyAdminUser,
	JobPropertyAdminPassword,
	JobPropertySecurityUser,
	JobPropertySecurityPassword,
	JobPropertyApplyOpenSecurityGroup,
	JobPropertyAllowPaidServicePlans,
}

// JobPropertyNames lists the properties job reads when it is generated
// into release: the standard set, product properties that are unscoped or
// scoped to job, and <package>.<key> for the property bag of every package
// in the release.
func (product *Product) JobPropertyNames(release *Release, job string) []string {
	names := slices.Clone(standardJobProperties)
	for _, property := range product.AllProperties {
		if (property.Job != "" && property.Job != job) || slices.Contains(names, property.Name) {
			continue
		}
		names = append(names, property.Name)
	}
	for _, pkg := range release.Packages {
		keys := make([]string, 0, len(pkg.Properties))
		for key := range pkg.Properties {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			names = append(names, pkg.CanonicalName()+"."+key)
		}
	}
	return names
}
