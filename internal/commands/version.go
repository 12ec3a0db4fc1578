package commands

import (
	"fmt"
	"log"
	"runtime/debug"
	"strings"

	"github.com/pivotal-cf/jhanda"
)

const unknownVersion = "unknown"

// Version prints the release version stamped into the binary at link time.
// A binary built with go install has no stamp, so the module version from
// its build info is printed instead.
type Version struct {
	logger    *log.Logger
	version   string
	buildInfo func() (*debug.BuildInfo, bool)
}

func NewVersion(logger *log.Logger, version string) Version {
	return NewVersionWithBuildInfo(logger, version, debug.ReadBuildInfo)
}

func NewVersionWithBuildInfo(logger *log.Logger, version string, buildInfo func() (*debug.BuildInfo, bool)) Version {
	return Version{
		logger:    logger,
		version:   version,
		buildInfo: buildInfo,
	}
}

func (v Version) Execute(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("version takes no arguments, got %d", len(args))
	}
	v.logger.Printf("%s version %s", ToolName, v.resolve())
	return nil
}

func (v Version) resolve() string {
	if v.version != "" && v.version != unknownVersion {
		return v.version
	}
	if v.buildInfo == nil {
		return unknownVersion
	}
	info, ok := v.buildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return unknownVersion
	}
	return strings.TrimPrefix(info.Main.Version, "v")
}

func (v Version) Usage() jhanda.Usage {
	return jhanda.Usage{
		Description:      "Prints the tile-generator release version, or the module version of a binary built with go install.",
		ShortDescription: "prints the tile-generator release version",
	}
}
