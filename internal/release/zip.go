package release

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/cf-platform-eng/tile-generator/internal/fetcher"
)

// zipBlobs writes the blobs into one zip at destination, each under its
// blob name.
func zipBlobs(blobs []fetcher.Blob, destination string) (fetcher.Blob, error) {
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fetcher.Blob{}, err
	}
	out, err := os.Create(destination)
	if err != nil {
		return fetcher.Blob{}, err
	}
	defer closeAndIgnoreError(out)

	zw := zip.NewWriter(out)
	for _, blob := range blobs {
		if err := addToZip(zw, blob); err != nil {
			return fetcher.Blob{}, err
		}
	}
	if err := zw.Close(); err != nil {
		return fetcher.Blob{}, err
	}
	if err := out.Close(); err != nil {
		return fetcher.Blob{}, err
	}
	info, err := os.Stat(destination)
	if err != nil {
		return fetcher.Blob{}, err
	}
	return fetcher.Blob{Name: filepath.Base(destination), Path: destination, Size: info.Size()}, nil
}

func addToZip(zw *zip.Writer, blob fetcher.Blob) error {
	in, err := os.Open(blob.Path)
	if err != nil {
		return err
	}
	defer closeAndIgnoreError(in)
	info, err := in.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(blob.Name)
	header.Method = zip.Deflate
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}
