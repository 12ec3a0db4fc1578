// Package release turns the releases of a product into BOSH release
// tarballs. The product release is generated and built with the bosh CLI,
// releases supplied as tarballs are downloaded and renamed.
package release

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	boshsys "github.com/cloudfoundry/bosh-utils/system"

	"github.com/cf-platform-eng/tile-generator/internal/fetcher"
	"github.com/cf-platform-eng/tile-generator/pkg/failure"
	"github.com/cf-platform-eng/tile-generator/pkg/product"
)

const (
	DefaultCommand = "bosh"
	DirectoryName  = "release"
)

// CommandRunner is implemented by boshsys.CmdRunner.
type CommandRunner interface {
	RunComplexCommand(cmd boshsys.Command) (string, string, int, error)
}

type BlobFetcher interface {
	FetchAll(ctx context.Context, files []product.File, directory string) ([][]fetcher.Blob, error)
}

// Tarball is a built or downloaded release.
type Tarball struct {
	// Release is the name the product uses for the release.
	Release string
	// Name and Version are read from the tarball's release.MF.
	Name    string
	Version string
	Path    string
	SHA1    string
}

// FileName is <name>-<version>.tgz.
func (t Tarball) FileName() string { return filepath.Base(t.Path) }

type Result struct {
	Tarballs []Tarball
	// LargestAppMiB is the size of the largest app artifact rounded up to
	// MiB. The compilation VM disk must hold four times this.
	LargestAppMiB int
	// AppManifestPaths maps app package names to the file name their
	// manifest path must refer to inside the package.
	AppManifestPaths map[string]string
}

type Builder struct {
	Logger  *log.Logger
	Runner  CommandRunner
	Fetcher BlobFetcher

	// Root is the build directory. The release directory below it is
	// removed when Build starts.
	Root string
	// Command is the bosh CLI executable.
	Command string
	SHA2    bool
	// Output receives the bosh CLI output when set.
	Output io.Writer

	tarballs map[string]Tarball
	result   Result
}

func (b *Builder) Directory() string { return filepath.Join(b.Root, DirectoryName) }

func (b *Builder) command() string {
	if b.Command == "" {
		return DefaultCommand
	}
	return b.Command
}

func (b *Builder) logf(format string, a ...any) {
	if b.Logger != nil {
		b.Logger.Printf(format, a...)
	}
}

// Build produces a tarball for every release of the product. Two tarballs
// with the same release name are refused.
func (b *Builder) Build(ctx context.Context, p *product.Product) (Result, error) {
	if err := b.CheckVersion(); err != nil {
		return Result{}, err
	}
	if err := os.RemoveAll(b.Directory()); err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(b.Directory(), 0o755); err != nil {
		return Result{}, err
	}
	b.tarballs = make(map[string]Tarball)
	b.result = Result{AppManifestPaths: make(map[string]string)}

	names := make(map[string]string)
	for _, release := range p.Releases {
		tarball, err := b.Tarball(ctx, p, release)
		if err != nil {
			return Result{}, err
		}
		if other, found := names[tarball.Name]; found {
			return Result{}, failure.New(failure.DuplicateRelease, tarball.Name, "releases %q and %q are both named %q", other, release.Name, tarball.Name)
		}
		names[tarball.Name] = release.Name
		b.result.Tarballs = append(b.result.Tarballs, tarball)
	}
	return b.result, nil
}

// Tarball returns the tarball of release, building or downloading it the
// first time it is asked for.
func (b *Builder) Tarball(ctx context.Context, p *product.Product, release *product.Release) (Tarball, error) {
	if tarball, found := b.tarballs[release.Name]; found {
		return tarball, nil
	}
	if b.tarballs == nil {
		b.tarballs = make(map[string]Tarball)
	}
	if b.result.AppManifestPaths == nil {
		b.result.AppManifestPaths = make(map[string]string)
	}

	var (
		tarball Tarball
		err     error
	)
	if release.IsExternal() {
		tarball, err = b.download(ctx, release)
	} else {
		tarball, err = b.build(ctx, p, release)
	}
	if err != nil {
		return Tarball{}, err
	}
	b.tarballs[release.Name] = tarball
	return tarball, nil
}

var versionPattern = regexp.MustCompile(`version\s+v?(\d+(\.\d+)*)`)

// CheckVersion fails when the bosh CLI is older than 2.0.
func (b *Builder) CheckVersion() error {
	stdout, stderr, status, err := b.Runner.RunComplexCommand(boshsys.Command{Name: b.command(), Args: []string{"--version"}})
	if err != nil || status != 0 {
		return b.commandFailed(b.command(), "--version", stdout, stderr, err)
	}
	match := versionPattern.FindStringSubmatch(stdout)
	if match == nil {
		return failure.New(failure.ReleaseBuilderTooOld, b.command(), "could not find a version in %q", strings.TrimSpace(stdout))
	}
	version, err := semver.NewVersion(match[1])
	if err != nil {
		return failure.Wrap(failure.ReleaseBuilderTooOld, b.command(), err)
	}
	if version.LessThan(semver.MustParse("2.0.0")) {
		return failure.New(failure.ReleaseBuilderTooOld, b.command(), "version %s is installed but 2.0 or newer is required", version)
	}
	return nil
}

func (b *Builder) run(dir string, args ...string) error {
	cmd := boshsys.Command{
		Name:       b.command(),
		Args:       append([]string{"--non-interactive"}, args...),
		WorkingDir: dir,
	}
	if b.Output != nil {
		cmd.Stdout = b.Output
		cmd.Stderr = b.Output
	}
	stdout, stderr, status, err := b.Runner.RunComplexCommand(cmd)
	if err != nil || status != 0 {
		return b.commandFailed(filepath.Base(dir), args[0], stdout, stderr, err)
	}
	return nil
}

func (b *Builder) commandFailed(subject, subcommand, stdout, stderr string, err error) error {
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		detail = strings.TrimSpace(stdout)
	}
	if err == nil {
		err = fmt.Errorf("%s %s exited with a non-zero status", b.command(), subcommand)
	}
	return failure.Wrap(failure.ReleaseBuildFailed, subject, err).WithDetail(detail)
}

func closeAndIgnoreError(c io.Closer) { _ = c.Close() }
