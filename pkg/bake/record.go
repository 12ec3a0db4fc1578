package bake

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
)

// RecordsDirectory is a sibling of tile.yml.
const RecordsDirectory = "bake_records"

// DirtyWorktreeSHAValue is the source revision of a build from a work tree
// with uncommitted changes.
const DirtyWorktreeSHAValue = "DEVELOPMENT"

// Record describes one built tile.
type Record struct {
	// SourceRevision is the commit checked out when the build was run.
	SourceRevision string `yaml:"source_revision" json:"source_revision"`

	// Version is the tile version used for the product_version field.
	Version string `yaml:"version" json:"version"`

	TileName string `yaml:"tile_name,omitempty" json:"tile_name,omitempty"`

	// FileChecksum is the SHA256 checksum of the .pivotal file.
	FileChecksum string `yaml:"file_checksum,omitempty" json:"file_checksum,omitempty"`
}

// NewRecord checksums the tile and looks up the revision of the git
// repository containing sourceDirectory. Outside a repository the revision
// is left empty.
func NewRecord(tileFilepath, sourceDirectory, tileName, version string) (Record, error) {
	checksum, err := fileChecksum(tileFilepath)
	if err != nil {
		return Record{}, err
	}
	revision, err := SourceRevision(sourceDirectory)
	if err != nil {
		return Record{}, err
	}
	return Record{
		SourceRevision: revision,
		Version:        version,
		TileName:       tileName,
		FileChecksum:   checksum,
	}, nil
}

// SourceRevision returns the HEAD commit of the repository containing
// directory, or DirtyWorktreeSHAValue when the work tree has changes.
func SourceRevision(directory string) (string, error) {
	repository, err := git.PlainOpenWithOptions(directory, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", nil
		}
		return "", fmt.Errorf("failed to open git repository: %w", err)
	}
	worktree, err := repository.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to read git work tree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("failed to read git status: %w", err)
	}
	if !status.IsClean() {
		return DirtyWorktreeSHAValue, nil
	}
	head, err := repository.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD revision hash: %w", err)
	}
	return head.Hash().String(), nil
}

func fileChecksum(name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer closeAndIgnoreError(f)
	sum := sha256.New()
	_, err = io.Copy(sum, f)
	return hex.EncodeToString(sum.Sum(nil)), err
}

func ReadRecords(dir fs.FS) ([]Record, error) {
	infos, err := fs.ReadDir(dir, RecordsDirectory)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(infos))
	for _, info := range infos {
		buf, err := fs.ReadFile(dir, path.Join(RecordsDirectory, info.Name()))
		if err != nil {
			return nil, err
		}
		var record Record
		if err := json.Unmarshal(buf, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	slices.SortFunc(records, Record.CompareVersion)
	return records, nil
}

func (b Record) CompareVersion(o Record) int {
	bv, err := semver.NewVersion(b.Version)
	if err != nil {
		return strings.Compare(b.Version, o.Version)
	}
	ov, err := semver.NewVersion(o.Version)
	if err != nil {
		return strings.Compare(b.Version, o.Version)
	}
	return bv.Compare(ov)
}

func (b Record) IsDevBuild() bool {
	return b.SourceRevision == DirtyWorktreeSHAValue
}

// WriteFile writes the record to bake_records/<version>.json under
// tileSourceDirectory. Records are never overwritten.
func (b Record) WriteFile(tileSourceDirectory string) error {
	if b.Version == "" {
		return fmt.Errorf("missing required version field")
	}
	if b.IsDevBuild() {
		return fmt.Errorf("will not write development builds to %s directory", RecordsDirectory)
	}
	if err := os.MkdirAll(filepath.Join(tileSourceDirectory, RecordsDirectory), 0o755); err != nil {
		return err
	}
	buf, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	outputFilepath := filepath.Join(tileSourceDirectory, RecordsDirectory, b.Version+".json")
	if _, err := os.Stat(outputFilepath); err == nil {
		return fmt.Errorf("tile bake record already exists for %s", b.Version)
	}
	return os.WriteFile(outputFilepath, buf, 0o644)
}

func closeAndIgnoreError(closer io.Closer) {
	_ = closer.Close()
}
