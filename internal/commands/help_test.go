package commands_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pivotal-cf/jhanda"

	"github.com/cf-platform-eng/tile-generator/internal/commands"
)

const globalUsage = `-h, --help     bool  prints this usage information
-v, --version  bool  prints the tile-generator release version`

var _ = Describe("Help", func() {
	var (
		output *bytes.Buffer
		help   commands.Help
	)

	BeforeEach(func() {
		output = new(bytes.Buffer)
		commandSet := jhanda.CommandSet{}
		commandSet["init"] = commands.NewInit(nil, "", nil)
		commandSet["build"] = commands.NewBuild(nil, nil, nil, "", nil)
		commandSet["version"] = commands.NewVersion(nil, "")
		help = commands.NewHelp(output, globalUsage, commandSet, map[string][]string{
			"Tile authoring": {"init", "build"},
			"Info":           {"version"},
			"Empty":          {},
		})
		commandSet["help"] = help
	})

	When("no command is given", func() {
		It("lists the commands by group", func() {
			Expect(help.Execute(nil)).To(Succeed())

			Expect(output.String()).To(Equal(`tile builds Ops Manager tiles from a tile.yml

Usage: tile [options] <command> [<args>]
  -h, --help     bool  prints this usage information
  -v, --version  bool  prints the tile-generator release version

Info:
  version  prints the tile-generator release version

Tile authoring:
  build  builds a tile
  init   creates a new tile project

Run "tile help <command>" for the arguments and flags of a command.
`))
		})
	})

	When("a command is given", func() {
		It("describes the version argument, flags and notes of build", func() {
			Expect(help.Execute([]string{"build"})).To(Succeed())

			page := output.String()
			Expect(page).To(HavePrefix("\ntile build\n\nBuilds the releases and metadata"))
			Expect(page).To(ContainSubstring("Usage: tile [options] build [patch|minor|major|<version>] [<flags>]\n  -h, --help"))
			Expect(page).To(ContainSubstring("\nArguments:\n  patch      increments the patch version"))
			Expect(page).To(ContainSubstring("  <version>  builds exactly this semantic version, such as 2.0.0-rc.1\n"))
			Expect(page).To(ContainSubstring("\nFlags:\n"))
			Expect(page).To(ContainSubstring("--docker-cache"))
			Expect(page).To(ContainSubstring("--cache-secret-access-key"))
			Expect(page).To(ContainSubstring("--release-builder"))
			Expect(page).To(ContainSubstring("(default: bosh)"))
			Expect(page).To(ContainSubstring("\nNotes:\n  Flags may come before or after the version argument.\n"))
			Expect(page).To(ContainSubstring("s3://bucket/prefix"))
			Expect(page).To(ContainSubstring("ReleaseBuilderTooOld"))
		})

		It("describes the name argument of init", func() {
			Expect(help.Execute([]string{"init"})).To(Succeed())

			page := output.String()
			Expect(page).To(ContainSubstring("Usage: tile [options] init [<name>]\n"))
			Expect(page).To(ContainSubstring("\nArguments:\n  <name>  directory to create"))
			Expect(page).NotTo(ContainSubstring("Flags:"))
			Expect(page).NotTo(ContainSubstring("Notes:"))
		})

		It("prints only the usage line of commands without arguments or flags", func() {
			Expect(help.Execute([]string{"version"})).To(Succeed())

			Expect(output.String()).To(ContainSubstring("Usage: tile [options] version\n"))
			Expect(output.String()).NotTo(ContainSubstring("Arguments:"))
		})

		It("fails for unknown commands", func() {
			Expect(help.Execute([]string{"bake"})).To(MatchError(`unknown command "bake", run "tile help" to list commands`))
			Expect(output.String()).To(BeEmpty())
		})

		It("fails for more than one command", func() {
			Expect(help.Execute([]string{"build", "init"})).To(MatchError(ContainSubstring("at most one command name")))
		})
	})
})
