package commands

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/pivotal-cf/jhanda"
)

const ToolName = "tile"

// positionalArguments is implemented by commands that take arguments
// besides flags. Each line pairs a value with what it does, separated by a
// tab.
type positionalArguments interface {
	Arguments() (placeholder string, lines []string)
}

// commandNotes is implemented by commands with guidance that does not fit
// a flag description.
type commandNotes interface {
	Notes() []string
}

// helpSection is a titled block of tab separated lines. Columns are
// aligned when the page is written.
type helpSection struct {
	title string
	lines []string
}

type helpPage struct {
	heading     string
	description string
	usage       string
	globalFlags []string
	sections    []helpSection
	footer      string
}

func (page helpPage) write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if page.heading != "" {
		fmt.Fprintf(tw, "\n%s\n\n", page.heading)
	}
	if page.description != "" {
		fmt.Fprintf(tw, "%s\n\n", page.description)
	}
	fmt.Fprintf(tw, "Usage: %s\n", page.usage)
	for _, flag := range page.globalFlags {
		fmt.Fprintf(tw, "  %s\n", flag)
	}
	for _, section := range page.sections {
		fmt.Fprintf(tw, "\n%s:\n", section.title)
		for _, line := range section.lines {
			fmt.Fprintf(tw, "  %s\n", line)
		}
	}
	if page.footer != "" {
		fmt.Fprintf(tw, "\n%s\n", page.footer)
	}
	return tw.Flush()
}

type Help struct {
	output   io.Writer
	flags    string
	commands jhanda.CommandSet
	groups   map[string][]string
}

func NewHelp(output io.Writer, flags string, commands jhanda.CommandSet, groups map[string][]string) Help {
	return Help{
		output:   output,
		flags:    flags,
		commands: commands,
		groups:   groups,
	}
}

func (h Help) Execute(args []string) error {
	var (
		page helpPage
		err  error
	)
	switch len(args) {
	case 0:
		page = h.overview()
	case 1:
		page, err = h.commandPage(args[0])
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("help takes at most one command name, got %d", len(args))
	}
	page.globalFlags = h.globalFlags()
	return page.write(h.output)
}

func (h Help) Usage() jhanda.Usage {
	return jhanda.Usage{
		Description:      "Lists the commands, or describes the arguments, flags and notes of one command.",
		ShortDescription: "prints this usage information",
	}
}

func (h Help) Arguments() (string, []string) {
	return "[<command>]", []string{"<command>\tcommand to describe, omit it to list every command"}
}

func (h Help) globalFlags() []string {
	return slices.DeleteFunc(strings.Split(h.flags, "\n"), func(line string) bool { return line == "" })
}

func (h Help) overview() helpPage {
	page := helpPage{
		description: ToolName + " builds Ops Manager tiles from a tile.yml",
		usage:       ToolName + " [options] <command> [<args>]",
		footer:      fmt.Sprintf("Run %q for the arguments and flags of a command.", ToolName+" help <command>"),
	}

	groupNames := make([]string, 0, len(h.groups))
	for name, commands := range h.groups {
		if len(commands) > 0 {
			groupNames = append(groupNames, name)
		}
	}
	slices.Sort(groupNames)

	for _, group := range groupNames {
		section := helpSection{title: group}
		for _, name := range slices.Sorted(slices.Values(h.groups[group])) {
			command, ok := h.commands[name]
			if !ok {
				continue
			}
			section.lines = append(section.lines, name+"\t"+command.Usage().ShortDescription)
		}
		page.sections = append(page.sections, section)
	}
	return page
}

func (h Help) commandPage(name string) (helpPage, error) {
	command, ok := h.commands[name]
	if !ok {
		return helpPage{}, fmt.Errorf("unknown command %q, run %q to list commands", name, ToolName+" help")
	}
	usage := command.Usage()

	page := helpPage{
		heading:     ToolName + " " + name,
		description: usage.Description,
	}
	synopsis := []string{ToolName, "[options]", name}

	if args, ok := command.(positionalArguments); ok {
		placeholder, lines := args.Arguments()
		synopsis = append(synopsis, placeholder)
		if len(lines) > 0 {
			page.sections = append(page.sections, helpSection{title: "Arguments", lines: lines})
		}
	}

	if usage.Flags != nil {
		flagUsage, err := jhanda.PrintUsage(usage.Flags)
		if err != nil {
			return helpPage{}, err
		}
		var flags []string
		for _, line := range strings.Split(flagUsage, "\n") {
			if line != "" {
				flags = append(flags, line)
			}
		}
		if len(flags) > 0 {
			synopsis = append(synopsis, "[<flags>]")
			page.sections = append(page.sections, helpSection{title: "Flags", lines: flags})
		}
	}

	if notes, ok := command.(commandNotes); ok {
		if lines := notes.Notes(); len(lines) > 0 {
			page.sections = append(page.sections, helpSection{title: "Notes", lines: lines})
		}
	}

	page.usage = strings.Join(synopsis, " ")
	return page, nil
}
