package main

import (
	"log"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pivotal-cf/jhanda"

	"github.com/cf-platform-eng/tile-generator/internal/commands"
	"github.com/cf-platform-eng/tile-generator/pkg/failure"
)

var version = "unknown"

func main() {
	errLogger := log.New(os.Stderr, "", 0)
	outLogger := log.New(os.Stdout, "", 0)

	var global struct {
		Help    bool `short:"h" long:"help"    description:"prints this usage information"             default:"false"`
		Version bool `short:"v" long:"version" description:"prints the tile-generator release version" default:"false"`
	}

	args, err := jhanda.Parse(&global, os.Args[1:])
	if err != nil {
		errLogger.Fatal(err)
	}

	globalFlagsUsage, err := jhanda.PrintUsage(global)
	if err != nil {
		errLogger.Fatal(err)
	}

	var command string
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	if global.Version {
		command = "version"
	}

	if global.Help {
		command = "help"
	}

	if command == "" {
		command = "help"
	}

	workingDirectory, err := os.Getwd()
	if err != nil {
		errLogger.Fatal(err)
	}
	fs := osfs.New(workingDirectory)

	commandSet := jhanda.CommandSet{}
	commandSet["help"] = commands.NewHelp(os.Stdout, globalFlagsUsage, commandSet, map[string][]string{
		"Tile authoring": {"init", "build"},
		"Info":           {"help", "version"},
	})
	commandSet["version"] = commands.NewVersion(outLogger, version)
	commandSet["init"] = commands.NewInit(fs, workingDirectory, outLogger)
	commandSet["build"] = commands.NewBuild(outLogger, errLogger, fs, workingDirectory, commands.DefaultBuildServices(outLogger))

	if err := commandSet.Execute(command, args); err != nil {
		failure.Report(os.Stderr, err)
		os.Exit(1)
	}
}
