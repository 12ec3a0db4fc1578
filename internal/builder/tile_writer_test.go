package builder_test

import (
	"bytes"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pivotal-cf-experimental/gomegamatchers"

	"github.com/cf-platform-eng/tile-generator/internal/builder"
	"github.com/cf-platform-eng/tile-generator/internal/builder/fakes"
	"github.com/cf-platform-eng/tile-generator/internal/release"
)

var _ = Describe("TileWriter", func() {
	var (
		zipper     *fakes.Zipper
		output     *bytes.Buffer
		tileWriter builder.TileWriter
		tile       builder.Tile
	)

	BeforeEach(func() {
		fs := memfs.New()
		Expect(util.WriteFile(fs, "/work/release/my-tile-1.2.3.tgz", []byte("release tarball"), 0o644)).To(Succeed())
		Expect(util.WriteFile(fs, "/work/release/cf-cli-1.62.0.tgz", []byte("cf-cli tarball"), 0o644)).To(Succeed())

		zipper = &fakes.Zipper{}
		output = new(bytes.Buffer)
		now := func() time.Time { return time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC) }
		tileWriter = builder.NewTileWriter(fs, zipper, log.New(output, "", 0), now)

		tile = builder.Tile{
			Name:     "my-tile",
			Version:  "1.2.3",
			History:  []string{"1.2.1", "1.2.2"},
			Metadata: []byte("name: my-tile\n"),
			Releases: []release.Tarball{
				{Release: "my-tile", Name: "my-tile", Version: "1.2.3", Path: "/work/release/my-tile-1.2.3.tgz"},
				{Release: "cf-cli", Name: "cf-cli", Version: "1.62.0", Path: "/work/release/cf-cli-1.62.0.tgz"},
			},
			OutputDir: "/work/product",
		}
	})

	It("writes the tile layout", func() {
		tilePath, err := tileWriter.Write(tile)
		Expect(err).NotTo(HaveOccurred())
		Expect(tilePath).To(Equal("/work/product/my-tile-1.2.3.pivotal"))

		Expect(zipper.SetPathCall.CallCount).To(Equal(1))
		Expect(zipper.SetPathCall.Receives.Path).To(Equal("/work/product/my-tile-1.2.3.pivotal"))
		Expect(zipper.CreateFolderCall.Receives).To(Equal([]string{"content_migrations", "metadata", "migrations/v1", "releases"}))

		Expect(zipper.AddCall.Calls).To(HaveLen(5))
		Expect(zipper.AddCall.Calls[0].Path).To(Equal("content_migrations/my-tile.yml"))
		Expect(zipper.AddCall.Calls[0].Contents).To(gomegamatchers.HelpfullyMatchYAML(`
product: my-tile
installation_schema_version: "1.6"
to_version: 1.2.3
migrations:
- from_version: 1.2.1
  rules:
  - type: update
    selector: product_version
    to: 1.2.3
- from_version: 1.2.2
  rules:
  - type: update
    selector: product_version
    to: 1.2.3
`))
		Expect(zipper.AddCall.Calls[1]).To(Equal(fakes.ZipperAddCall{Path: "metadata/my-tile.yml", Contents: "name: my-tile\n"}))
		Expect(zipper.AddCall.Calls[2].Path).To(Equal("migrations/v1/202403150930_noop.js"))
		Expect(zipper.AddCall.Calls[2].Contents).To(ContainSubstring("return input;"))
		Expect(zipper.AddCall.Calls[3]).To(Equal(fakes.ZipperAddCall{Path: "releases/cf-cli-1.62.0.tgz", Contents: "cf-cli tarball"}))
		Expect(zipper.AddCall.Calls[4]).To(Equal(fakes.ZipperAddCall{Path: "releases/my-tile-1.2.3.tgz", Contents: "release tarball"}))

		Expect(zipper.CloseCall.CallCount).To(Equal(1))
		Expect(output.String()).To(ContainSubstring("Adding releases/my-tile-1.2.3.tgz to .pivotal..."))
	})

	Context("when there is no history", func() {
		It("writes an empty migration list", func() {
			tile.History = nil
			_, err := tileWriter.Write(tile)
			Expect(err).NotTo(HaveOccurred())
			Expect(zipper.AddCall.Calls[0].Contents).To(ContainSubstring("migrations: []"))
		})
	})

	Context("failure cases", func() {
		It("returns an error before starting the archive when a release tarball is missing", func() {
			tile.Releases[0].Path = "/work/release/missing.tgz"
			_, err := tileWriter.Write(tile)
			Expect(err).To(MatchError(ContainSubstring("failed to open release my-tile")))
			Expect(zipper.SetPathCall.CallCount).To(Equal(0))
			Expect(zipper.CloseCall.CallCount).To(Equal(0))
		})

		It("discards the archive when an entry can not be added", func() {
			diskFull := errors.New("disk full")
			zipper.AddCall.Returns.Error = diskFull
			_, err := tileWriter.Write(tile)
			Expect(err).To(MatchError(diskFull))
			Expect(zipper.DiscardCall.CallCount).To(Equal(1))
			Expect(zipper.CloseCall.CallCount).To(Equal(0))
		})

		It("discards the archive when a folder can not be created", func() {
			zipper.CreateFolderCall.Returns.Error = errors.New("no space")
			_, err := tileWriter.Write(tile)
			Expect(err).To(MatchError("no space"))
			Expect(zipper.DiscardCall.CallCount).To(Equal(1))
			Expect(zipper.AddCall.Calls).To(BeEmpty())
		})

		It("returns the error from setting the path", func() {
			zipper.SetPathCall.Returns.Error = errors.New("read only")
			_, err := tileWriter.Write(tile)
			Expect(err).To(MatchError("read only"))
			Expect(zipper.DiscardCall.CallCount).To(Equal(0))
		})
	})

	Context("with the file system zipper", func() {
		var (
			workDir string
			osTile  builder.Tile
			writer  builder.TileWriter
		)

		BeforeEach(func() {
			workDir = GinkgoT().TempDir()
			releaseDir := filepath.Join(workDir, "release")
			Expect(os.MkdirAll(releaseDir, 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(releaseDir, "my-tile-1.2.3.tgz"), []byte("release tarball"), 0o644)).To(Succeed())

			writer = builder.NewTileWriter(osfs.New(""), builder.NewZipper(), log.New(io.Discard, "", 0), nil)
			osTile = builder.Tile{
				Name:     "my-tile",
				Version:  "1.2.3",
				Metadata: []byte("name: my-tile\n"),
				Releases: []release.Tarball{
					{Release: "my-tile", Name: "my-tile", Version: "1.2.3", Path: filepath.Join(releaseDir, "my-tile-1.2.3.tgz")},
				},
				OutputDir: filepath.Join(workDir, "product"),
			}
		})

		productFiles := func() []string {
			entries, err := os.ReadDir(filepath.Join(workDir, "product"))
			if os.IsNotExist(err) {
				return nil
			}
			Expect(err).NotTo(HaveOccurred())
			var names []string
			for _, e := range entries {
				names = append(names, e.Name())
			}
			return names
		}

		It("writes only the finished tile", func() {
			tilePath, err := writer.Write(osTile)
			Expect(err).NotTo(HaveOccurred())

			Expect(tilePath).To(BeARegularFile())
			Expect(productFiles()).To(Equal([]string{"my-tile-1.2.3.pivotal"}))
		})

		It("leaves no tile behind when a release tarball is missing", func() {
			osTile.Releases = append(osTile.Releases, release.Tarball{
				Release: "cf-cli", Name: "cf-cli", Version: "1.62.0", Path: filepath.Join(workDir, "release", "cf-cli-1.62.0.tgz"),
			})

			_, err := writer.Write(osTile)
			Expect(err).To(HaveOccurred())

			Expect(filepath.Join(workDir, "product", osTile.FileName())).NotTo(BeAnExistingFile())
			Expect(productFiles()).To(BeEmpty())
		})

		It("leaves no tile behind when a release tarball can not be read", func() {
			unreadable := filepath.Join(workDir, "release", "broken-1.0.0.tgz")
			Expect(os.Mkdir(unreadable, 0o755)).To(Succeed())
			osTile.Releases = append(osTile.Releases, release.Tarball{Release: "broken", Name: "broken", Version: "1.0.0", Path: unreadable})

			_, err := writer.Write(osTile)
			Expect(err).To(MatchError(ContainSubstring("failed to add releases/broken-1.0.0.tgz")))

			Expect(filepath.Join(workDir, "product", osTile.FileName())).NotTo(BeAnExistingFile())
			Expect(productFiles()).To(BeEmpty())
		})
	})
})
