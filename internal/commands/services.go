package commands

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	boshlog "github.com/cloudfoundry/bosh-utils/logger"
	boshsys "github.com/cloudfoundry/bosh-utils/system"
	"github.com/docker/docker/client"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/cf-platform-eng/tile-generator/internal/builder"
	"github.com/cf-platform-eng/tile-generator/internal/component"
	"github.com/cf-platform-eng/tile-generator/internal/fetcher"
	"github.com/cf-platform-eng/tile-generator/internal/helm"
	"github.com/cf-platform-eng/tile-generator/internal/release"
	"github.com/cf-platform-eng/tile-generator/pkg/product"
)

const gitHubTokenVariable = "GITHUB_TOKEN"

// DefaultBuildServices wires the production implementations of every
// build stage for a tile project in directory.
func DefaultBuildServices(outLogger *log.Logger) BuildServicesFunc {
	return func(ctx context.Context, directory string, options BuildOptions) (BuildServices, error) {
		gitHub := component.NewGitHubReleaseFeed(ctx, os.Getenv(gitHubTokenVariable))
		source := osfs.New(directory)

		cache, err := fetcher.NewCache(ctx, fetcher.CacheConfiguration{
			Location:        options.DockerCache,
			Region:          options.CacheRegion,
			AccessKeyID:     options.CacheAccessKeyID,
			SecretAccessKey: options.CacheSecretAccessKey,
		})
		if err != nil {
			return BuildServices{}, err
		}

		docker, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return BuildServices{}, fmt.Errorf("failed to create docker client: %w", err)
		}

		level := boshlog.LevelNone
		if options.Verbose {
			level = boshlog.LevelDebug
		}
		releases := &release.Builder{
			Logger: outLogger,
			Runner: boshsys.NewExecCmdRunner(boshlog.NewLogger(level)),
			Fetcher: &fetcher.Fetcher{
				Logger:  outLogger,
				Client:  http.DefaultClient,
				Docker:  docker,
				GitHub:  gitHub,
				Cache:   cache,
				Source:  source,
				Threads: options.DownloadThreads,
			},
			Root:    directory,
			Command: options.ReleaseBuilder,
			SHA2:    options.SHA2,
		}
		if options.Verbose {
			releases.Output = outLogger.Writer()
		}

		return BuildServices{
			Stemcells: component.NewBOSHIOStemcellIndex("", outLogger),
			Applicator: product.Applicator{
				FS:          source,
				Charts:      helm.NewReader(source),
				CLIVersions: gitHub,
			},
			Releases: releases,
			Icons:    builder.NewIconEncoder(source),
			Compiler: builder.MetadataCompiler{},
			Tiles:    builder.NewTileWriter(osfs.New(""), builder.NewZipper(), outLogger, nil),
		}, nil
	}
}
