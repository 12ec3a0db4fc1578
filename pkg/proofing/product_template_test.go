package proofing_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	"github.com/cf-platform-eng/tile-generator/pkg/proofing"
)

var _ = Describe("ProductTemplate", func() {
	var productTemplate proofing.ProductTemplate

	BeforeEach(func() {
		productTemplate = proofing.ProductTemplate{
			Base: proofing.Base{
				Name:            "my-tile",
				ProductVersion:  "1.2.3",
				MetadataVersion: "1.8",
				Label:           "My Tile",
				Releases: []proofing.Release{
					{Name: "my-release", File: "my-release-1.tgz", Version: "1"},
				},
				Passthrough: map[string]any{
					"zeta":  "last",
					"alpha": "first",
				},
			},
			StemcellCriteria: proofing.StemcellCriteria{OS: "ubuntu-jammy", Version: "1.1"},
			PropertyBlueprints: proofing.PropertyBlueprints{
				proofing.SimplePropertyBlueprint{Name: "org", Type: "string", Configurable: true},
			},
			FormTypes: []proofing.FormType{
				{Name: "config", Label: "Config"},
			},
			JobTypes: []proofing.JobType{
				{Name: "deploy-all", ResourceLabel: "Deploy All", Errand: true},
			},
			PostDeployErrands: []proofing.ErrandTemplate{{Name: "deploy-all"}},
			PreDeleteErrands:  []proofing.ErrandTemplate{{Name: "delete-all"}},
		}
	})

	It("emits sections in a fixed order", func() {
		buf, err := yaml.Marshal(productTemplate)
		Expect(err).NotTo(HaveOccurred())
		out := string(buf)

		order := []string{
			"\nname: my-tile", "\nreleases:", "\nalpha: first", "\nzeta: last",
			"\nstemcell_criteria:", "\nproperty_blueprints:", "\nform_types:",
			"\njob_types:", "\npost_deploy_errands:", "\npre_delete_errands:", "\nruntime_configs:",
		}
		last := -1
		for _, key := range order {
			index := strings.Index("\n"+out, key)
			Expect(index).To(BeNumerically(">", last), key)
			last = index
		}
	})

	It("emits a form without inputs as null", func() {
		buf, err := yaml.Marshal(productTemplate)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(buf)).To(ContainSubstring("property_inputs: null"))
	})

	It("finds things by name", func() {
		blueprint, index, err := productTemplate.FindPropertyBlueprintWithName("org")
		Expect(err).NotTo(HaveOccurred())
		Expect(index).To(Equal(0))
		Expect(blueprint.PropertyType()).To(Equal("string"))

		_, _, err = productTemplate.FindPropertyBlueprintWithName("missing")
		Expect(err).To(HaveOccurred())

		Expect(productTemplate.HasJobTypeWithName("deploy-all")).To(BeTrue())
		Expect(productTemplate.HasJobTypeWithName("nope")).To(BeFalse())
	})
})

var _ = Describe("LiteralString", func() {
	It("uses block style", func() {
		value, err := proofing.NewLiteralYAML(map[string]any{"a": 1})
		Expect(err).NotTo(HaveOccurred())

		buf, err := yaml.Marshal(map[string]any{"manifest": value})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(buf)).To(Equal("manifest: |\n    a: 1\n"))
	})
})

var _ = Describe("ResourceDefinition", func() {
	It("checks its default against its constraints", func() {
		definition := proofing.ResourceDefinition{Name: "ram", Type: "integer", Default: 512, Constraints: &proofing.IntegerConstraints{Min: ptr(1024)}}
		Expect(definition.Check()).To(MatchError(ContainSubstring("1024")))

		definition.Default = 2048
		Expect(definition.Check()).To(Succeed())
	})
})
