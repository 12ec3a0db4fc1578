package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pivotal-cf/jhanda"

	"github.com/cf-platform-eng/tile-generator/internal/templates"
	"github.com/cf-platform-eng/tile-generator/pkg/failure"
	"github.com/cf-platform-eng/tile-generator/pkg/product"
)

const gitIgnoreFileName = ".gitignore"

// Init scaffolds a tile project. The filesystem is rooted at the working
// directory.
type Init struct {
	filesystem       billy.Filesystem
	workingDirectory string
	logger           *log.Logger
}

func NewInit(filesystem billy.Filesystem, workingDirectory string, logger *log.Logger) Init {
	return Init{
		filesystem:       filesystem,
		workingDirectory: workingDirectory,
		logger:           logger,
	}
}

func (i Init) Execute(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("expected at most one argument, got %d", len(args))
	}

	directory := ""
	name := filepath.Base(i.workingDirectory)
	if len(args) == 1 {
		directory = args[0]
		name = filepath.Base(directory)
	}
	if !product.ValidName(name) {
		return failure.New(failure.InvalidName, name, "tile names must start with a letter and contain only lowercase letters, digits and dashes")
	}

	manifestPath := filepath.Join(directory, product.DefaultFileName)
	if _, err := i.filesystem.Stat(manifestPath); err == nil {
		return fmt.Errorf("%s already exists", manifestPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if directory != "" {
		if err := i.filesystem.MkdirAll(directory, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", directory, err)
		}
	}

	manifest, err := templates.Render(templates.TileManifest, templates.Tile{Name: name})
	if err != nil {
		return err
	}
	if err := util.WriteFile(i.filesystem, manifestPath, manifest, 0o644); err != nil {
		return err
	}

	gitIgnore, err := templates.Render(templates.GitIgnore, nil)
	if err != nil {
		return err
	}
	if err := util.WriteFile(i.filesystem, filepath.Join(directory, gitIgnoreFileName), gitIgnore, 0o644); err != nil {
		return err
	}

	i.logger.Printf("Generated %s for tile %s", manifestPath, name)
	return nil
}

func (i Init) Usage() jhanda.Usage {
	return jhanda.Usage{
		Description:      "Writes a starting tile.yml and .gitignore into the named directory, or the current one.",
		ShortDescription: "creates a new tile project",
	}
}

func (i Init) Arguments() (string, []string) {
	return "[<name>]", []string{
		"<name>\tdirectory to create, its base name becomes the tile name (default: the current directory)",
	}
}
