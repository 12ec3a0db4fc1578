package builder_test

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cf-platform-eng/tile-generator/internal/builder"
)

var _ = Describe("Zipper", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "zipper")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.RemoveAll(tmpDir)).To(Succeed())
	})

	Describe("SetPath", func() {
		It("creates the parent directory and writes beside the target until closed", func() {
			zipFile := filepath.Join(tmpDir, "product", "file.zip")

			zipper := builder.NewZipper()
			Expect(zipper.SetPath(zipFile)).To(Succeed())
			Expect(zipFile + ".partial").To(BeARegularFile())
			Expect(zipFile).NotTo(BeAnExistingFile())

			Expect(zipper.Close()).To(Succeed())
			Expect(zipFile).To(BeARegularFile())
			Expect(zipFile + ".partial").NotTo(BeAnExistingFile())
		})
	})

	Describe("Discard", func() {
		It("removes the unfinished archive", func() {
			zipFile := filepath.Join(tmpDir, "file.zip")

			zipper := builder.NewZipper()
			Expect(zipper.SetPath(zipFile)).To(Succeed())
			Expect(zipper.Add("metadata/my-tile.yml", strings.NewReader("name: my-tile"))).To(Succeed())
			Expect(zipper.Discard()).To(Succeed())

			Expect(zipFile).NotTo(BeAnExistingFile())
			Expect(zipFile + ".partial").NotTo(BeAnExistingFile())
			Expect(zipper.Add("file", strings.NewReader(""))).To(MatchError("zipper path must be set"))
		})

		It("does nothing when no path was set", func() {
			Expect(builder.NewZipper().Discard()).To(Succeed())
		})
	})

	Describe("Add and CreateFolder", func() {
		It("writes entries with a fixed modification date", func() {
			zipFile := filepath.Join(tmpDir, "tile.zip")

			zipper := builder.NewZipper()
			Expect(zipper.SetPath(zipFile)).To(Succeed())
			Expect(zipper.CreateFolder("migrations/v1")).To(Succeed())
			Expect(zipper.Add("metadata/my-tile.yml", strings.NewReader("name: my-tile"))).To(Succeed())
			Expect(zipper.Close()).To(Succeed())

			reader, err := zip.OpenReader(zipFile)
			Expect(err).NotTo(HaveOccurred())
			defer func() { _ = reader.Close() }()

			Expect(reader.File).To(HaveLen(2))
			Expect(reader.File[0].Name).To(Equal("migrations/v1/"))
			Expect(reader.File[0].FileInfo().IsDir()).To(BeTrue())
			Expect(reader.File[1].Name).To(Equal("metadata/my-tile.yml"))
			Expect(reader.File[1].Modified.Equal(builder.ZipHeaderModifiedDate())).To(BeTrue())

			f, err := reader.File[1].Open()
			Expect(err).NotTo(HaveOccurred())
			contents, err := io.ReadAll(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(contents)).To(Equal("name: my-tile"))
		})
	})

	Context("when no path was set", func() {
		It("returns an error", func() {
			zipper := builder.NewZipper()
			Expect(zipper.Add("file", strings.NewReader(""))).To(MatchError("zipper path must be set"))
			Expect(zipper.CreateFolder("dir")).To(MatchError("zipper path must be set"))
		})
	})
})
