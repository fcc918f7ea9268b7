package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/lineage/internal/cli/ui"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// Output formats accepted by --format
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// globalOptions holds the persistent flags shared by every subcommand
type globalOptions struct {
	configPath string
	graphPath  string
	format     string
	noColor    bool
	logLevel   string
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "lineage",
		Short: "Annotation lookup across type hierarchies",
		Long: `Lineage - annotation lookup across type hierarchies

Lineage loads a graph of classes and interfaces and answers where an
annotation applies, following superclasses, interfaces and overridden
methods the way an inherited-annotation lookup does.

Features:
  • Breadth-first hierarchy walks, superclass before interfaces
  • Override-aware method annotation lookup
  • Versioned graph snapshots in sqlite or postgres
  • Resolution cache in memory or redis
  • HTTP introspection API`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.noColor {
				color.NoColor = true
			}
			switch opts.format {
			case FormatTable, FormatJSON:
				return nil
			default:
				return errors.New("--format must be table or json")
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default: ./lineage.yml)")
	flags.StringVarP(&opts.graphPath, "graph", "g", "", "Graph file, overrides graph.path")
	flags.StringVar(&opts.format, "format", FormatTable, "Output format: table or json")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level, overrides log.level")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newInitCommand(opts))
	rootCmd.AddCommand(newValidateCommand(opts))
	rootCmd.AddCommand(newTypesCommand(opts))
	rootCmd.AddCommand(newAncestorsCommand(opts))
	rootCmd.AddCommand(newMembersCommand(opts))
	rootCmd.AddCommand(newFindCommand(opts))
	rootCmd.AddCommand(newSnapshotCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the lineage version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)

			titleColor.Fprint(out, "Lineage version: ")
			fmt.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		var report *reportError
		if errors.As(err, &report) {
			report.msg.Write(rootCmd.ErrOrStderr())
			return err
		}
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// reportError carries a formatted problem report up to Execute
type reportError struct {
	msg ui.Message
}

func (e *reportError) Error() string {
	return e.msg.Problem
}

func report(msg ui.Message) error {
	return &reportError{msg: msg}
}
