package builder_test

import (
	"encoding/base64"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cf-platform-eng/tile-generator/internal/builder"
	"github.com/cf-platform-eng/tile-generator/pkg/failure"
)

var _ = Describe("IconEncoder", func() {
	It("base64 encodes the icon", func() {
		fs := memfs.New()
		Expect(util.WriteFile(fs, "icon.png", []byte("this-is-some-data-to-encode"), 0o644)).To(Succeed())

		encoded, err := builder.NewIconEncoder(fs).Encode("icon.png")
		Expect(err).NotTo(HaveOccurred())
		Expect(encoded).To(Equal(base64.StdEncoding.EncodeToString([]byte("this-is-some-data-to-encode"))))
	})

	Context("when the icon is missing", func() {
		It("returns a MissingIcon error", func() {
			_, err := builder.NewIconEncoder(memfs.New()).Encode("icon.png")
			kind, ok := failure.KindOf(err)
			Expect(ok).To(BeTrue())
			Expect(kind).To(Equal(failure.MissingIcon))
		})
	})

	Context("when no icon is declared", func() {
		It("returns a MissingIcon error", func() {
			_, err := builder.NewIconEncoder(memfs.New()).Encode("")
			Expect(err).To(MatchError(ContainSubstring("MissingIcon: icon_file")))
		})
	})
})
