package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/containerd/errdefs"
	"github.com/docker/docker/client"
	"github.com/go-git/go-billy/v5"
	"github.com/moby/go-archive"
	"github.com/moby/go-archive/compression"
	"golang.org/x/sync/errgroup"

	"github.com/cf-platform-eng/tile-generator/pkg/failure"
	"github.com/cf-platform-eng/tile-generator/pkg/product"
)

const DefaultThreads = 4

type ImageSaver interface {
	ImageSave(ctx context.Context, imageIDs []string, saveOpts ...client.ImageSaveOption) (io.ReadCloser, error)
}

type AssetResolver interface {
	AssetURL(ctx context.Context, githubURI string) (string, error)
}

// Blob is one file ready to be added to a release.
type Blob struct {
	// Name is the path of the blob below its package.
	Name string
	// Path is where the blob is on disk.
	Path string
	Size int64
}

// Fetcher acquires package files from URLs, GitHub releases, the local
// container daemon or the build directory.
type Fetcher struct {
	Logger *log.Logger
	Client *http.Client
	Docker ImageSaver
	GitHub AssetResolver
	Cache  Cache
	// Source holds files referenced by relative paths.
	Source  billy.Basic
	Threads int
}

// FetchAll fetches files concurrently into directory. The result has one
// entry per file in the order of files.
func (f *Fetcher) FetchAll(ctx context.Context, files []product.File, directory string) ([][]Blob, error) {
	results := make([][]Blob, len(files))
	g, ctx := errgroup.WithContext(ctx)
	threads := f.Threads
	if threads <= 0 {
		threads = DefaultThreads
	}
	g.SetLimit(threads)
	for i, file := range files {
		g.Go(func() error {
			blobs, err := f.Fetch(ctx, file, directory)
			if err != nil {
				return err
			}
			results[i] = blobs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Fetch writes file into directory. Files marked untar are extracted and
// every regular file in the archive becomes a blob.
func (f *Fetcher) Fetch(ctx context.Context, file product.File, directory string) ([]Blob, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, err
	}
	name := file.Name
	if name == "" {
		name = product.FileBaseName(file.Path)
	}
	destination := filepath.Join(directory, name)

	var err error
	switch {
	case strings.HasPrefix(file.Path, product.DockerPathPrefix):
		err = f.exportImage(ctx, strings.TrimPrefix(file.Path, product.DockerPathPrefix), destination)
	case strings.HasPrefix(file.Path, "github://"):
		err = f.downloadGitHubAsset(ctx, file.Path, destination)
	case strings.HasPrefix(file.Path, "http://"), strings.HasPrefix(file.Path, "https://"):
		err = f.download(ctx, file.Path, destination)
	default:
		err = f.copyLocal(file.Path, destination)
	}
	if err != nil {
		return nil, err
	}

	if !file.Untar {
		info, err := os.Stat(destination)
		if err != nil {
			return nil, err
		}
		return []Blob{{Name: name, Path: destination, Size: info.Size()}}, nil
	}
	return f.untar(destination, filepath.Join(directory, "untar-"+name))
}

func (f *Fetcher) logf(format string, a ...any) {
	if f.Logger != nil {
		f.Logger.Printf(format, a...)
	}
}

func (f *Fetcher) httpClient() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *Fetcher) download(ctx context.Context, u, destination string) error {
	if f.fromCache(ctx, filepath.Base(destination), destination) {
		return nil
	}
	f.logf("Downloading %s...", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return failure.Wrap(failure.DownloadFailed, u, err)
	}
	res, err := f.httpClient().Do(req)
	if err != nil {
		return failure.Wrap(failure.DownloadFailed, u, err)
	}
	defer closeAndIgnoreError(res.Body)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return failure.New(failure.DownloadFailed, u, "got status %d", res.StatusCode).WithDetail(string(body))
	}

	if err := writeFile(destination, res.Body); err != nil {
		return failure.Wrap(failure.DownloadFailed, u, err)
	}
	return nil
}

func (f *Fetcher) downloadGitHubAsset(ctx context.Context, uri, destination string) error {
	if f.GitHub == nil {
		return failure.New(failure.DownloadFailed, uri, "no GitHub client configured")
	}
	u, err := f.GitHub.AssetURL(ctx, uri)
	if err != nil {
		return failure.Wrap(failure.DownloadFailed, uri, err)
	}
	return f.download(ctx, u, destination)
}

// exportImage saves image from the local daemon as a gzipped tarball. When
// the daemon cannot provide it the cache is consulted.
func (f *Fetcher) exportImage(ctx context.Context, image, destination string) error {
	var saveErr error
	if f.Docker != nil {
		f.logf("Exporting docker image %s...", image)
		saveErr = f.saveImage(ctx, image, destination)
		if saveErr == nil {
			f.storeInCache(destination)
			return nil
		}
		if errdefs.IsNotFound(saveErr) {
			f.logf("Image %s is not present in the local daemon", image)
		}
	} else {
		saveErr = errors.New("no docker daemon configured")
	}

	if f.fromCache(ctx, filepath.Base(destination), destination) {
		return nil
	}
	return failure.Wrap(failure.DockerImageUnavailable, image, saveErr)
}

func (f *Fetcher) saveImage(ctx context.Context, image, destination string) error {
	rc, err := f.Docker.ImageSave(ctx, []string{image})
	if err != nil {
		return err
	}
	defer closeAndIgnoreError(rc)

	out, err := os.Create(destination)
	if err != nil {
		return err
	}
	defer closeAndIgnoreError(out)

	gz, err := compression.CompressStream(out, compression.Gzip)
	if err != nil {
		return err
	}
	if _, err := io.Copy(gz, rc); err != nil {
		closeAndIgnoreError(gz)
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Close()
}

func (f *Fetcher) fromCache(ctx context.Context, name, destination string) bool {
	if f.Cache == nil {
		return false
	}
	rc, err := f.Cache.Open(ctx, name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logf("Cache lookup for %s failed: %s", name, err)
		}
		return false
	}
	defer closeAndIgnoreError(rc)
	if err := writeFile(destination, rc); err != nil {
		f.logf("Failed to copy %s from the cache: %s", name, err)
		return false
	}
	f.logf("Using cached %s", name)
	return true
}

func (f *Fetcher) storeInCache(filePath string) {
	w, ok := f.Cache.(cacheWriter)
	if !ok {
		return
	}
	file, err := os.Open(filePath)
	if err != nil {
		return
	}
	defer closeAndIgnoreError(file)
	if err := w.Put(filepath.Base(filePath), file); err != nil {
		f.logf("Failed to cache %s: %s", filepath.Base(filePath), err)
	}
}

func (f *Fetcher) copyLocal(source, destination string) error {
	var (
		in  io.ReadCloser
		err error
	)
	if f.Source != nil && !filepath.IsAbs(source) {
		in, err = f.Source.Open(source)
	} else {
		in, err = os.Open(source)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", source, err)
	}
	defer closeAndIgnoreError(in)
	return writeFile(destination, in)
}

func (f *Fetcher) untar(archivePath, directory string) ([]Blob, error) {
	in, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer closeAndIgnoreError(in)

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, err
	}
	if err := archive.Untar(in, directory, &archive.TarOptions{NoLchown: true}); err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", filepath.Base(archivePath), err)
	}

	var blobs []Blob
	err = doublestar.GlobWalk(os.DirFS(directory), "**", func(p string, d fs.DirEntry) error {
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		blobs = append(blobs, Blob{Name: p, Path: filepath.Join(directory, filepath.FromSlash(p)), Size: info.Size()})
		return nil
	})
	return blobs, err
}

func writeFile(destination string, r io.Reader) error {
	out, err := os.Create(destination)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		closeAndIgnoreError(out)
		return err
	}
	return out.Close()
}

// IsArchive reports whether the file starts with a known archive header.
func IsArchive(filePath string) (bool, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer closeAndIgnoreError(f)
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return isArchiveHeader(head[:n]), nil
}

func closeAndIgnoreError(c io.Closer) { _ = c.Close() }
