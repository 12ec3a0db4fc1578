package commands

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pivotal-cf/jhanda"

	"github.com/cf-platform-eng/tile-generator/internal/builder"
	"github.com/cf-platform-eng/tile-generator/internal/release"
	"github.com/cf-platform-eng/tile-generator/pkg/bake"
	"github.com/cf-platform-eng/tile-generator/pkg/history"
	"github.com/cf-platform-eng/tile-generator/pkg/product"
	"github.com/cf-platform-eng/tile-generator/pkg/proofing"
)

type BuildOptions struct {
	Verbose              bool   `short:"v"  long:"verbose"                 description:"streams release builder output"`
	DockerCache          string `short:"dc" long:"docker-cache"            description:"directory or s3://bucket/prefix with saved docker images"`
	CacheRegion          string `           long:"cache-region"            description:"region of the S3 docker cache"`
	CacheAccessKeyID     string `           long:"cache-access-key-id"     description:"access key id for the S3 docker cache"`
	CacheSecretAccessKey string `           long:"cache-secret-access-key" description:"secret access key for the S3 docker cache"`
	SHA2                 bool   `           long:"sha2"                    description:"use sha256 digests in built releases"`
	ReleaseBuilder       string `           long:"release-builder"         description:"release builder executable"                  default:"bosh"`
	OutputDirectory      string `short:"o"  long:"output-directory"        description:"directory the tile is written to"            default:"product"`
	BakeRecord           bool   `           long:"bake-record"             description:"writes a build record to bake_records"`
	DownloadThreads      int    `short:"dt" long:"download-threads"        description:"number of parallel package file downloads" default:"4"`
}

type applicator interface {
	Apply(ctx context.Context, p *product.Product) error
}

type releaseBuilder interface {
	Build(ctx context.Context, p *product.Product) (release.Result, error)
}

type iconEncoder interface {
	Encode(path string) (string, error)
}

type metadataCompiler interface {
	Compile(input builder.MetadataInput) (proofing.ProductTemplate, error)
}

type tileWriter interface {
	Write(tile builder.Tile) (string, error)
}

// BuildServices are the pipeline stages of a build.
type BuildServices struct {
	Stemcells  product.StemcellIndex
	Applicator applicator
	Releases   releaseBuilder
	Icons      iconEncoder
	Compiler   metadataCompiler
	Tiles      tileWriter
}

type BuildServicesFunc func(ctx context.Context, directory string, options BuildOptions) (BuildServices, error)

type Build struct {
	Options BuildOptions

	outLogger *log.Logger
	errLogger *log.Logger

	// filesystem is rooted at directory.
	filesystem billy.Filesystem
	directory  string
	services   BuildServicesFunc
}

func NewBuild(outLogger, errLogger *log.Logger, filesystem billy.Filesystem, directory string, services BuildServicesFunc) *Build {
	return &Build{
		outLogger:  outLogger,
		errLogger:  errLogger,
		filesystem: filesystem,
		directory:  directory,
		services:   services,
	}
}

func (b *Build) Execute(args []string) error {
	positional, err := b.parseOptions(args)
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		return fmt.Errorf("expected at most one version argument, got %d", len(positional))
	}
	var bump string
	if len(positional) == 1 {
		bump = positional[0]
	}

	ctx := context.Background()

	services, err := b.services(ctx, b.directory, b.Options)
	if err != nil {
		return err
	}

	p, err := product.Load(ctx, b.filesystem, product.DefaultFileName, services.Stemcells)
	if err != nil {
		return err
	}

	h, err := history.Read(b.filesystem, history.DefaultFileName)
	if err != nil {
		return err
	}
	if err := history.Advance(&h, bump); err != nil {
		return err
	}
	p.Version = h.Version
	p.History = h.History

	b.outLogger.Printf("Building %s version %s...", p.Name, p.Version)

	if err := services.Applicator.Apply(ctx, p); err != nil {
		return err
	}

	if err := util.RemoveAll(b.filesystem, b.Options.OutputDirectory); err != nil {
		return fmt.Errorf("failed to clean %s: %w", b.Options.OutputDirectory, err)
	}

	result, err := services.Releases.Build(ctx, p)
	if err != nil {
		return err
	}

	icon, err := services.Icons.Encode(p.IconFile)
	if err != nil {
		return err
	}

	template, err := services.Compiler.Compile(builder.MetadataInput{
		Product:   p,
		Build:     result,
		IconImage: icon,
	})
	if err != nil {
		return err
	}
	metadata, err := builder.MarshalMetadata(template)
	if err != nil {
		return err
	}

	tilePath, err := services.Tiles.Write(builder.Tile{
		Name:      p.Name,
		Version:   p.Version,
		History:   p.History,
		Metadata:  metadata,
		Releases:  result.Tarballs,
		OutputDir: filepath.Join(b.directory, b.Options.OutputDirectory),
	})
	if err != nil {
		return err
	}

	if err := history.Write(b.filesystem, history.DefaultFileName, h); err != nil {
		return err
	}

	if b.Options.BakeRecord {
		record, err := bake.NewRecord(tilePath, b.directory, p.Name, p.Version)
		if err != nil {
			return err
		}
		if record.IsDevBuild() {
			b.errLogger.Printf("Skipping bake record, %s has uncommitted changes", b.directory)
		} else if err := record.WriteFile(b.directory); err != nil {
			return err
		}
	}

	b.outLogger.Printf("Built %s", tilePath)
	return nil
}

// parseOptions accepts flags on either side of the version argument. jhanda
// stops at the first non-flag and resets fields to their defaults on every
// call, so flag arguments are collected and parsed together.
func (b *Build) parseOptions(args []string) ([]string, error) {
	var flags, positional []string
	for len(args) > 0 {
		rest, err := jhanda.Parse(&b.Options, args)
		if err != nil {
			return nil, err
		}
		consumed := args[:len(args)-len(rest)]
		if n := len(consumed); n > 0 && consumed[n-1] == "--" {
			flags = append(flags, consumed[:n-1]...)
			positional = append(positional, rest...)
			break
		}
		flags = append(flags, consumed...)
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
	if _, err := jhanda.Parse(&b.Options, flags); err != nil {
		return nil, err
	}
	return positional, nil
}

func (b *Build) Usage() jhanda.Usage {
	return jhanda.Usage{
		Description:      "Builds the releases and metadata described by tile.yml into a .pivotal file and records the new version in tile-history.yml.",
		ShortDescription: "builds a tile",
		Flags:            b.Options,
	}
}

func (b *Build) Arguments() (string, []string) {
	return "[patch|minor|major|<version>]", []string{
		"patch\tincrements the patch version of tile-history.yml (the default)",
		"minor\tincrements the minor version and resets the patch version",
		"major\tincrements the major version and resets the others",
		"<version>\tbuilds exactly this semantic version, such as 2.0.0-rc.1",
	}
}

func (b *Build) Notes() []string {
	return []string{
		"Flags may come before or after the version argument.",
		"--docker-cache is a directory or an s3://bucket/prefix URL. Images found there are not pulled again,",
		"and images pulled during the build are saved there. The --cache-* flags configure the S3 client;",
		"without them the AWS_REGION, AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables apply.",
		"A ReleaseBuilderTooOld failure means the --release-builder executable reported a version older",
		"than 2.0, or none at all. Install a current bosh CLI or pass the path of one with --release-builder.",
		"tile-history.yml is only updated after the .pivotal file is written.",
	}
}
