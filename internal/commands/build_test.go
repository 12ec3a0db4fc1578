package commands_test

import (
	"bytes"
	"context"
	"errors"
	"log"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cf-platform-eng/tile-generator/internal/commands"
	"github.com/cf-platform-eng/tile-generator/internal/commands/fakes"
	"github.com/cf-platform-eng/tile-generator/internal/release"
	"github.com/cf-platform-eng/tile-generator/pkg/failure"
	"github.com/cf-platform-eng/tile-generator/pkg/history"
	productfakes "github.com/cf-platform-eng/tile-generator/pkg/product/fakes"
	"github.com/cf-platform-eng/tile-generator/pkg/proofing"
)

const buildTileManifest = `---
name: my-tile
icon_file: resources/icon.png
packages:
- name: my-app
  type: app
  manifest:
    path: resources/my-app.zip
    memory: 1G
`

var _ = Describe("Build", func() {
	var (
		fs        billy.Filesystem
		outBuffer *bytes.Buffer
		errBuffer *bytes.Buffer

		stemcells  *productfakes.StemcellIndex
		applicator *fakes.Applicator
		releases   *fakes.ReleaseBuilder
		icons      *fakes.IconEncoder
		compiler   *fakes.MetadataCompiler
		tiles      *fakes.TileWriter

		servicesErr     error
		receivedOptions commands.BuildOptions

		build *commands.Build
	)

	BeforeEach(func() {
		fs = memfs.New()
		Expect(util.WriteFile(fs, "tile.yml", []byte(buildTileManifest), 0o644)).To(Succeed())
		Expect(util.WriteFile(fs, "tile-history.yml", []byte("version: 1.0.0\nhistory:\n- 0.9.0\n"), 0o644)).To(Succeed())

		outBuffer = new(bytes.Buffer)
		errBuffer = new(bytes.Buffer)

		stemcells = &productfakes.StemcellIndex{}
		stemcells.LatestStemcellVersionCall.Returns.Version = "1.406"
		applicator = &fakes.Applicator{}
		releases = &fakes.ReleaseBuilder{}
		releases.BuildCall.Returns.Result = release.Result{
			Tarballs: []release.Tarball{
				{Release: "my-tile", Name: "my-tile", Version: "1.0.1", Path: "/tile/release/my-tile-1.0.1.tgz"},
			},
		}
		icons = &fakes.IconEncoder{}
		icons.EncodeCall.Returns.Encoded = "aWNvbg=="
		compiler = &fakes.MetadataCompiler{}
		compiler.CompileCall.Returns.Template = proofing.ProductTemplate{
			Base: proofing.Base{Name: "my-tile", ProductVersion: "1.0.1"},
		}
		tiles = &fakes.TileWriter{}
		tiles.WriteCall.Returns.Path = "/tile/product/my-tile-1.0.1.pivotal"

		servicesErr = nil
		receivedOptions = commands.BuildOptions{}

		services := func(_ context.Context, directory string, options commands.BuildOptions) (commands.BuildServices, error) {
			Expect(directory).To(Equal("/tile"))
			receivedOptions = options
			return commands.BuildServices{
				Stemcells:  stemcells,
				Applicator: applicator,
				Releases:   releases,
				Icons:      icons,
				Compiler:   compiler,
				Tiles:      tiles,
			}, servicesErr
		}

		build = commands.NewBuild(log.New(outBuffer, "", 0), log.New(errBuffer, "", 0), fs, "/tile", services)
	})

	readHistory := func() history.History {
		h, err := history.Read(fs, "tile-history.yml")
		Expect(err).NotTo(HaveOccurred())
		return h
	}

	Describe("Execute", func() {
		It("runs every stage and records the new version", func() {
			Expect(build.Execute(nil)).To(Succeed())

			Expect(stemcells.LatestStemcellVersionCall.CallCount).To(Equal(1))

			Expect(applicator.ApplyCall.CallCount).To(Equal(1))
			p := applicator.ApplyCall.Receives.Product
			Expect(p.Name).To(Equal("my-tile"))
			Expect(p.Version).To(Equal("1.0.1"))
			Expect(p.History).To(Equal([]string{"0.9.0", "1.0.0"}))
			Expect(p.StemcellCriteria.Version).To(Equal("1.406"))

			Expect(releases.BuildCall.Receives.Product).To(BeIdenticalTo(p))
			Expect(icons.EncodeCall.Receives.Path).To(Equal("resources/icon.png"))

			input := compiler.CompileCall.Receives.Input
			Expect(input.Product).To(BeIdenticalTo(p))
			Expect(input.IconImage).To(Equal("aWNvbg=="))
			Expect(input.Build).To(Equal(releases.BuildCall.Returns.Result))

			Expect(tiles.WriteCall.CallCount).To(Equal(1))
			tile := tiles.WriteCall.Receives.Tile
			Expect(tile.Name).To(Equal("my-tile"))
			Expect(tile.Version).To(Equal("1.0.1"))
			Expect(tile.History).To(Equal([]string{"0.9.0", "1.0.0"}))
			Expect(tile.OutputDir).To(Equal("/tile/product"))
			Expect(tile.Releases).To(Equal(releases.BuildCall.Returns.Result.Tarballs))
			Expect(string(tile.Metadata)).To(HavePrefix("---\n"))
			Expect(string(tile.Metadata)).To(ContainSubstring("name: my-tile"))
			Expect(string(tile.Metadata)).To(ContainSubstring("product_version: 1.0.1"))

			Expect(readHistory()).To(Equal(history.History{Version: "1.0.1", History: []string{"0.9.0", "1.0.0"}}))

			Expect(outBuffer.String()).To(ContainSubstring("Building my-tile version 1.0.1..."))
			Expect(outBuffer.String()).To(ContainSubstring("Built /tile/product/my-tile-1.0.1.pivotal"))
		})

		It("applies flag defaults", func() {
			Expect(build.Execute(nil)).To(Succeed())

			Expect(receivedOptions.ReleaseBuilder).To(Equal("bosh"))
			Expect(receivedOptions.OutputDirectory).To(Equal("product"))
			Expect(receivedOptions.DownloadThreads).To(Equal(4))
			Expect(receivedOptions.Verbose).To(BeFalse())
		})

		It("passes flags to the services", func() {
			Expect(build.Execute([]string{"--verbose", "--docker-cache", "s3://bucket/images", "--sha2", "--download-threads", "8", "minor"})).To(Succeed())

			Expect(receivedOptions.Verbose).To(BeTrue())
			Expect(receivedOptions.DockerCache).To(Equal("s3://bucket/images"))
			Expect(receivedOptions.SHA2).To(BeTrue())
			Expect(receivedOptions.DownloadThreads).To(Equal(8))
			Expect(readHistory().Version).To(Equal("1.1.0"))
		})

		It("parses flags given after the version argument", func() {
			cacheDir := GinkgoT().TempDir()

			Expect(build.Execute([]string{"minor", "--verbose", "--docker-cache", cacheDir})).To(Succeed())

			Expect(receivedOptions.Verbose).To(BeTrue())
			Expect(receivedOptions.DockerCache).To(Equal(cacheDir))
			Expect(receivedOptions.ReleaseBuilder).To(Equal("bosh"))
			Expect(readHistory().Version).To(Equal("1.1.0"))
		})

		It("parses flags on both sides of the version argument", func() {
			Expect(build.Execute([]string{"--sha2", "major", "-o", "dist", "--download-threads", "2"})).To(Succeed())

			Expect(receivedOptions.SHA2).To(BeTrue())
			Expect(receivedOptions.OutputDirectory).To(Equal("dist"))
			Expect(receivedOptions.DownloadThreads).To(Equal(2))
			Expect(tiles.WriteCall.Receives.Tile.OutputDir).To(Equal("/tile/dist"))
			Expect(readHistory().Version).To(Equal("2.0.0"))
		})

		It("treats arguments after -- as positional", func() {
			Expect(build.Execute([]string{"--verbose", "--", "patch"})).To(Succeed())

			Expect(receivedOptions.Verbose).To(BeTrue())
			Expect(readHistory().Version).To(Equal("1.0.1"))
		})

		It("accepts an explicit version", func() {
			Expect(build.Execute([]string{"2.0.0-rc.1"})).To(Succeed())

			Expect(applicator.ApplyCall.Receives.Product.Version).To(Equal("2.0.0-rc.1"))
			Expect(readHistory().Version).To(Equal("2.0.0-rc.1"))
		})

		It("removes the previous output directory", func() {
			Expect(util.WriteFile(fs, "product/old-tile-0.0.1.pivotal", []byte("stale"), 0o644)).To(Succeed())

			Expect(build.Execute(nil)).To(Succeed())

			_, err := fs.Stat("product/old-tile-0.0.1.pivotal")
			Expect(err).To(HaveOccurred())
		})

		When("the version argument is not a bump or a version", func() {
			It("fails before applying flags", func() {
				err := build.Execute([]string{"banana"})

				kind, ok := failure.KindOf(err)
				Expect(ok).To(BeTrue())
				Expect(kind).To(Equal(failure.IllegalBumpArgument))
				Expect(applicator.ApplyCall.CallCount).To(Equal(0))
				Expect(readHistory().Version).To(Equal("1.0.0"))
			})
		})

		When("more than one argument is given", func() {
			It("fails", func() {
				Expect(build.Execute([]string{"patch", "minor"})).To(MatchError(ContainSubstring("at most one version argument")))
				Expect(build.Execute([]string{"patch", "--verbose", "minor"})).To(MatchError(ContainSubstring("at most one version argument, got 2")))
			})
		})

		When("tile.yml is missing", func() {
			It("reports the missing config", func() {
				Expect(fs.Remove("tile.yml")).To(Succeed())

				err := build.Execute(nil)

				kind, _ := failure.KindOf(err)
				Expect(kind).To(Equal(failure.ConfigMissing))
			})

			It("reports the missing config before reading the history", func() {
				Expect(fs.Remove("tile.yml")).To(Succeed())
				Expect(fs.Remove("tile-history.yml")).To(Succeed())
				Expect(util.WriteFile(fs, "tile-history.yml", []byte("version: [\n"), 0o644)).To(Succeed())

				err := build.Execute([]string{"banana"})

				kind, _ := failure.KindOf(err)
				Expect(kind).To(Equal(failure.ConfigMissing))
			})
		})

		When("the services can not be created", func() {
			It("fails", func() {
				servicesErr = errors.New("no docker")

				Expect(build.Execute(nil)).To(MatchError("no docker"))
				Expect(applicator.ApplyCall.CallCount).To(Equal(0))
			})
		})

		When("a release fails to build", func() {
			It("keeps the prior history", func() {
				releases.BuildCall.Returns.Error = failure.New(failure.ReleaseBuildFailed, "my-tile", "create-release failed")

				err := build.Execute(nil)

				kind, _ := failure.KindOf(err)
				Expect(kind).To(Equal(failure.ReleaseBuildFailed))
				Expect(tiles.WriteCall.CallCount).To(Equal(0))
				Expect(readHistory()).To(Equal(history.History{Version: "1.0.0", History: []string{"0.9.0"}}))
			})
		})

		When("the icon can not be read", func() {
			It("fails before compiling metadata", func() {
				icons.EncodeCall.Returns.Error = failure.New(failure.MissingIcon, "resources/icon.png", "no such file")

				Expect(build.Execute(nil)).To(HaveOccurred())
				Expect(compiler.CompileCall.CallCount).To(Equal(0))
			})
		})

		When("the tile can not be written", func() {
			It("keeps the prior history", func() {
				tiles.WriteCall.Returns.Error = errors.New("disk full")

				Expect(build.Execute(nil)).To(MatchError("disk full"))
				Expect(readHistory().Version).To(Equal("1.0.0"))
			})
		})
	})

	Describe("Usage", func() {
		It("describes the flags", func() {
			usage := build.Usage()
			Expect(usage.ShortDescription).To(Equal("builds a tile"))
			Expect(usage.Flags).To(BeAssignableToTypeOf(commands.BuildOptions{}))
		})
	})
})
