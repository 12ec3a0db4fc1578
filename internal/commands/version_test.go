package commands_test

import (
	"log"
	"runtime/debug"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cf-platform-eng/tile-generator/internal/commands"
)

var _ = Describe("Version", func() {
	var (
		writer *strings.Builder
		logger *log.Logger
	)

	BeforeEach(func() {
		writer = new(strings.Builder)
		logger = log.New(writer, "", 0)
	})

	moduleVersion := func(version string) func() (*debug.BuildInfo, bool) {
		return func() (*debug.BuildInfo, bool) {
			return &debug.BuildInfo{Main: debug.Module{Path: "github.com/cf-platform-eng/tile-generator", Version: version}}, true
		}
	}

	Describe("Execute", func() {
		It("prints the stamped version", func() {
			version := commands.NewVersionWithBuildInfo(logger, "1.2.3-build.4", moduleVersion("v9.9.9"))

			Expect(version.Execute(nil)).To(Succeed())
			Expect(writer.String()).To(Equal("tile version 1.2.3-build.4\n"))
		})

		It("falls back to the module version of an unstamped binary", func() {
			version := commands.NewVersionWithBuildInfo(logger, "unknown", moduleVersion("v14.2.0"))

			Expect(version.Execute(nil)).To(Succeed())
			Expect(writer.String()).To(Equal("tile version 14.2.0\n"))
		})

		It("prints unknown for a development build", func() {
			version := commands.NewVersionWithBuildInfo(logger, "", moduleVersion("(devel)"))

			Expect(version.Execute(nil)).To(Succeed())
			Expect(writer.String()).To(Equal("tile version unknown\n"))
		})

		It("prints unknown without build info", func() {
			version := commands.NewVersionWithBuildInfo(logger, "", func() (*debug.BuildInfo, bool) { return nil, false })

			Expect(version.Execute(nil)).To(Succeed())
			Expect(writer.String()).To(Equal("tile version unknown\n"))
		})

		It("rejects arguments", func() {
			version := commands.NewVersion(logger, "1.0.0")

			Expect(version.Execute([]string{"now"})).To(MatchError("version takes no arguments, got 1"))
			Expect(writer.String()).To(BeEmpty())
		})
	})

	Describe("Usage", func() {
		It("has no flags", func() {
			usage := commands.NewVersion(nil, "").Usage()

			Expect(usage.ShortDescription).To(Equal("prints the tile-generator release version"))
			Expect(usage.Flags).To(BeNil())
		})
	})
})
