package commands_test

import (
	"bytes"
	"log"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cf-platform-eng/tile-generator/internal/commands"
	"github.com/cf-platform-eng/tile-generator/pkg/failure"
	"github.com/cf-platform-eng/tile-generator/pkg/product"
)

var _ = Describe("Init", func() {
	var (
		fs      billy.Filesystem
		output  *bytes.Buffer
		initCmd commands.Init
	)

	BeforeEach(func() {
		fs = memfs.New()
		output = new(bytes.Buffer)
		initCmd = commands.NewInit(fs, "/home/author/my-tile", log.New(output, "", 0))
	})

	readFile := func(name string) string {
		buf, err := util.ReadFile(fs, name)
		Expect(err).NotTo(HaveOccurred())
		return string(buf)
	}

	It("scaffolds the working directory", func() {
		Expect(initCmd.Execute(nil)).To(Succeed())

		manifest := readFile("tile.yml")
		Expect(manifest).To(ContainSubstring("name: my-tile"))

		p, err := product.Parse([]byte(manifest))
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Validate()).To(Succeed())
		Expect(p.Packages).To(HaveLen(1))
		Expect(p.Packages[0].Type).To(Equal(product.TypeApp))

		Expect(readFile(".gitignore")).To(ContainSubstring("product/\nrelease/\n*.pivotal"))
		Expect(output.String()).To(Equal("Generated tile.yml for tile my-tile\n"))
	})

	It("creates the named directory", func() {
		Expect(initCmd.Execute([]string{"other-tile"})).To(Succeed())

		Expect(readFile("other-tile/tile.yml")).To(ContainSubstring("name: other-tile"))
		Expect(readFile("other-tile/.gitignore")).To(ContainSubstring("*.pivotal"))
	})

	It("does not overwrite an existing tile.yml", func() {
		Expect(util.WriteFile(fs, "tile.yml", []byte("name: mine\n"), 0o644)).To(Succeed())

		Expect(initCmd.Execute(nil)).To(MatchError(ContainSubstring("tile.yml already exists")))
		Expect(readFile("tile.yml")).To(Equal("name: mine\n"))
	})

	It("rejects names that are not valid tile names", func() {
		err := initCmd.Execute([]string{"My_Tile"})

		kind, ok := failure.KindOf(err)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(failure.InvalidName))
	})

	It("rejects extra arguments", func() {
		Expect(initCmd.Execute([]string{"a", "b"})).To(MatchError(ContainSubstring("at most one argument")))
	})
})
