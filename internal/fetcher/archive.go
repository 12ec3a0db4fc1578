package fetcher

import (
	"io"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
	"github.com/moby/go-archive"
	"github.com/moby/go-archive/compression"
)

func isArchiveHeader(head []byte) bool {
	return filetype.IsArchive(head)
}

// TarDirectory writes directory as a gzipped tarball to destination with
// the directory itself as the single top level entry, the layout helm
// package produces.
func TarDirectory(directory, destination string) error {
	rc, err := archive.TarWithOptions(filepath.Dir(directory), &archive.TarOptions{
		Compression:  compression.Gzip,
		IncludeFiles: []string{filepath.Base(directory)},
	})
	if err != nil {
		return err
	}
	defer closeAndIgnoreError(rc)

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return err
	}
	out, err := os.Create(destination)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		closeAndIgnoreError(out)
		return err
	}
	return out.Close()
}
