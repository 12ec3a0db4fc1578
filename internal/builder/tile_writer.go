package builder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/cf-platform-eng/tile-generator/internal/release"
)

const (
	ReleasesDirectory          = "releases"
	MetadataDirectory          = "metadata"
	ContentMigrationsDirectory = "content_migrations"
	MigrationsDirectory        = "migrations/v1"

	noopMigration = `exports.migrate = function(input) {
  return input;
};
`
)

type TileWriter struct {
	filesystem billy.Basic
	zipper     zipper
	logger     logger
	now        func() time.Time
}

type zipper interface {
	SetPath(path string) error
	Add(path string, file io.Reader) error
	CreateFolder(path string) error
	Close() error
	Discard() error
}

// Tile is what goes into a .pivotal file.
type Tile struct {
	Name      string
	Version   string
	History   []string
	Metadata  []byte
	Releases  []release.Tarball
	OutputDir string
}

func (tile Tile) FileName() string {
	return fmt.Sprintf("%s-%s.pivotal", tile.Name, tile.Version)
}

func NewTileWriter(filesystem billy.Basic, zipper zipper, logger logger, now func() time.Time) TileWriter {
	if now == nil {
		now = time.Now
	}
	return TileWriter{
		filesystem: filesystem,
		zipper:     zipper,
		logger:     logger,
		now:        now,
	}
}

// Write zips the tile and returns the path of the .pivotal file. Every
// input is opened before the archive is started, and a failed write leaves
// no .pivotal file behind.
func (w TileWriter) Write(tile Tile) (string, error) {
	w.logger.Println("Building .pivotal file...")

	files := map[string]io.Reader{}
	files[path.Join(MetadataDirectory, tile.Name+".yml")] = bytes.NewReader(tile.Metadata)

	contentMigrations, err := BuildContentMigrations(tile.Name, tile.Version, tile.History)
	if err != nil {
		return "", err
	}
	files[path.Join(ContentMigrationsDirectory, tile.Name+".yml")] = bytes.NewReader(contentMigrations)

	migration := fmt.Sprintf("%s_noop.js", w.now().UTC().Format("200601021504"))
	files[path.Join(MigrationsDirectory, migration)] = strings.NewReader(noopMigration)

	for _, tarball := range tile.Releases {
		file, err := w.filesystem.Open(tarball.Path)
		if err != nil {
			return "", fmt.Errorf("failed to open release %s: %w", tarball.Name, err)
		}
		defer closeAndIgnoreError(file)
		files[path.Join(ReleasesDirectory, filepath.Base(tarball.Path))] = file
	}

	tileFileName := filepath.Join(tile.OutputDir, tile.FileName())
	if err := w.zipper.SetPath(tileFileName); err != nil {
		return "", err
	}
	if err := w.writeEntries(files); err != nil {
		return "", errors.Join(err, w.zipper.Discard())
	}
	if err := w.zipper.Close(); err != nil {
		return "", err
	}
	return tileFileName, nil
}

func (w TileWriter) writeEntries(files map[string]io.Reader) error {
	for _, folder := range []string{ContentMigrationsDirectory, MetadataDirectory, MigrationsDirectory, ReleasesDirectory} {
		if err := w.zipper.CreateFolder(folder); err != nil {
			return err
		}
	}

	var paths []string
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		w.logger.Printf("Adding %s to .pivotal...", p)

		if err := w.zipper.Add(p, files[p]); err != nil {
			return fmt.Errorf("failed to add %s: %w", p, err)
		}
	}
	return nil
}
