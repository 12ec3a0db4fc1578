package builder

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Zipper writes the tile archive. Every entry carries the same modification
// date so two builds of the same inputs produce the same bytes.
//
// Entries go to a ".partial" file next to the target path. Close renames it
// into place and Discard removes it, so the target only exists once the
// archive is complete.
type Zipper struct {
	path   string
	file   *os.File
	writer *zip.Writer
}

const partialSuffix = ".partial"

func NewZipper() *Zipper {
	return &Zipper{}
}

func ZipHeaderModifiedDate() time.Time {
	return time.Date(2018, 4, 20, 0, 0, 0, 0, time.UTC)
}

func (z *Zipper) SetPath(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}
	file, err := os.Create(filePath + partialSuffix)
	if err != nil {
		return err
	}
	z.path = filePath
	z.file = file
	z.SetWriter(file)
	return nil
}

func (z *Zipper) SetWriter(writer io.Writer) {
	z.writer = zip.NewWriter(writer)
}

func (z *Zipper) Add(name string, file io.Reader) error {
	if z.writer == nil {
		return errors.New("zipper path must be set")
	}

	f, err := z.writer.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Modified: ZipHeaderModifiedDate(),
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(f, file)
	return err
}

func (z *Zipper) CreateFolder(name string) error {
	if z.writer == nil {
		return errors.New("zipper path must be set")
	}

	_, err := z.writer.CreateHeader(&zip.FileHeader{
		Name:     strings.TrimSuffix(path.Clean(name), "/") + "/",
		Modified: ZipHeaderModifiedDate(),
	})
	return err
}

func (z *Zipper) Close() error {
	if z.writer == nil {
		return errors.New("zipper path must be set")
	}
	err := z.writer.Close()
	z.writer = nil
	if z.file == nil {
		return err
	}
	err = errors.Join(err, z.file.Close())
	z.file = nil
	if err == nil {
		err = os.Rename(z.path+partialSuffix, z.path)
	}
	if err != nil {
		return errors.Join(err, z.removePartial())
	}
	z.path = ""
	return nil
}

// Discard abandons the archive and removes whatever was written so far.
func (z *Zipper) Discard() error {
	z.writer = nil
	var err error
	if z.file != nil {
		err = z.file.Close()
		z.file = nil
	}
	return errors.Join(err, z.removePartial())
}

func (z *Zipper) removePartial() error {
	if z.path == "" {
		return nil
	}
	err := os.Remove(z.path + partialSuffix)
	z.path = ""
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
