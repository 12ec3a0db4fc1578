package history

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-billy/v5"
	"gopkg.in/yaml.v3"

	"github.com/cf-platform-eng/tile-generator/pkg/failure"
)

const (
	DefaultFileName = "tile-history.yml"

	BumpPatch = "patch"
	BumpMinor = "minor"
	BumpMajor = "major"

	initialPriorVersion = "0.0.0"
)

var (
	semverExp            = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+([-+][0-9A-Za-z]+(\.[0-9A-Za-z]+)*)*$`)
	unannotatedSemverExp = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)
)

// History is the persisted record of tile versions. History never contains
// Version.
type History struct {
	Version string   `yaml:"version,omitempty"`
	History []string `yaml:"history,omitempty"`
}

func IsSemver(s string) bool { return semverExp.MatchString(s) }

func IsUnannotatedSemver(s string) bool { return unannotatedSemverExp.MatchString(s) }

// Advance moves h to the next version. bump is one of patch, minor, major,
// an explicit semantic version, or empty (treated as patch). On error h is
// left unchanged.
func Advance(h *History, bump string) error {
	next, err := nextVersion(h.Version, bump)
	if err != nil {
		return err
	}
	if h.Version != "" && h.Version != next {
		h.History = append(h.History, h.Version)
	}
	h.History = slices.DeleteFunc(h.History, func(v string) bool { return v == next })
	if len(h.History) == 0 {
		h.History = nil
	}
	h.Version = next
	return nil
}

func nextVersion(prior, bump string) (string, error) {
	if bump == "" {
		bump = BumpPatch
	}
	switch bump {
	case BumpPatch, BumpMinor, BumpMajor:
	default:
		if IsSemver(bump) {
			return bump, nil
		}
		return "", failure.New(failure.IllegalBumpArgument, bump,
			`argument must specify "patch", "minor", "major", or a valid semver version (x.y.z)`)
	}

	if prior == "" {
		prior = initialPriorVersion
	}
	if !IsUnannotatedSemver(prior) {
		return "", failure.New(failure.IllegalPriorVersion, prior,
			"prior version was %s; to bump %s the prior version must be a plain x.y.z version, specify an explicit version instead", prior, bump)
	}
	v, err := semver.StrictNewVersion(prior)
	if err != nil {
		return "", failure.Wrap(failure.IllegalPriorVersion, prior, fmt.Errorf("prior version was %s: %w", prior, err))
	}

	var n semver.Version
	switch bump {
	case BumpMajor:
		n = v.IncMajor()
	case BumpMinor:
		n = v.IncMinor()
	default:
		n = v.IncPatch()
	}
	return n.String(), nil
}

// Read loads the history file. A missing file is an empty history.
func Read(fs billy.Basic, filePath string) (History, error) {
	f, err := fs.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return History{}, nil
		}
		return History{}, err
	}
	defer closeAndIgnoreError(f)

	buf, err := io.ReadAll(f)
	if err != nil {
		return History{}, err
	}
	var h History
	if err := yaml.Unmarshal(buf, &h); err != nil {
		return History{}, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	return h, nil
}

func Write(fs billy.Basic, filePath string, h History) error {
	buf, err := yaml.Marshal(h)
	if err != nil {
		return err
	}
	f, err := fs.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s for writing: %w", filePath, err)
	}
	_, err = f.Write(buf)
	return errors.Join(err, f.Close())
}

func closeAndIgnoreError(c io.Closer) { _ = c.Close() }
