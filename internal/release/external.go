package release

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	boshrelease "github.com/cloudfoundry/bosh-cli/release/manifest"
	"gopkg.in/yaml.v2"

	"github.com/cf-platform-eng/tile-generator/pkg/failure"
	"github.com/cf-platform-eng/tile-generator/pkg/product"
)

const releaseManifestFileName = "release.MF"

func (b *Builder) download(ctx context.Context, release *product.Release) (Tarball, error) {
	directory := filepath.Join(b.Directory(), "downloads", release.Name)
	file := product.File{Path: release.Path, Name: release.Name + ".tgz"}
	results, err := b.Fetcher.FetchAll(ctx, []product.File{file}, directory)
	if err != nil {
		return Tarball{}, err
	}
	if len(results) != 1 || len(results[0]) != 1 {
		return Tarball{}, fmt.Errorf("expected one file for release %s", release.Name)
	}
	downloaded := results[0][0].Path

	manifest, err := ReadReleaseManifest(downloaded)
	if err != nil {
		return Tarball{}, err
	}
	tarballPath := filepath.Join(b.Directory(), fmt.Sprintf("%s-%s.tgz", manifest.Name, manifest.Version))
	if _, err := os.Stat(tarballPath); err == nil {
		return Tarball{}, failure.New(failure.DuplicateRelease, manifest.Name, "%s is supplied more than once", filepath.Base(tarballPath))
	}
	if err := os.Rename(downloaded, tarballPath); err != nil {
		return Tarball{}, err
	}
	return inspectTarball(release.Name, tarballPath)
}

func inspectTarball(releaseName, tarballPath string) (Tarball, error) {
	manifest, err := ReadReleaseManifest(tarballPath)
	if err != nil {
		return Tarball{}, err
	}
	sum, err := fileSHA1(tarballPath)
	if err != nil {
		return Tarball{}, err
	}
	return Tarball{
		Release: releaseName,
		Name:    manifest.Name,
		Version: manifest.Version,
		Path:    tarballPath,
		SHA1:    sum,
	}, nil
}

// ReadReleaseManifest decodes release.MF from a gzipped release tarball.
func ReadReleaseManifest(tarballPath string) (boshrelease.Manifest, error) {
	f, err := os.Open(tarballPath)
	if err != nil {
		return boshrelease.Manifest{}, err
	}
	defer closeAndIgnoreError(f)

	gz, err := gzip.NewReader(f)
	if err != nil {
		return boshrelease.Manifest{}, failure.Wrap(failure.MissingReleaseManifest, filepath.Base(tarballPath), err)
	}
	defer closeAndIgnoreError(gz)

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return boshrelease.Manifest{}, failure.Wrap(failure.MissingReleaseManifest, filepath.Base(tarballPath), err)
		}
		if path.Clean(header.Name) != releaseManifestFileName {
			continue
		}
		buf, err := io.ReadAll(tr)
		if err != nil {
			return boshrelease.Manifest{}, err
		}
		var manifest boshrelease.Manifest
		if err := yaml.Unmarshal(buf, &manifest); err != nil {
			return boshrelease.Manifest{}, fmt.Errorf("failed to parse %s in %s: %w", releaseManifestFileName, filepath.Base(tarballPath), err)
		}
		return manifest, nil
	}
	return boshrelease.Manifest{}, failure.New(failure.MissingReleaseManifest, filepath.Base(tarballPath), "no %s in release tarball", releaseManifestFileName)
}

func fileSHA1(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer closeAndIgnoreError(f)
	sum := sha1.New()
	if _, err := io.Copy(sum, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}
