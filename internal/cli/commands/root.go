package commands

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath  string
	schemaFiles []string
	noColor     bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "neogm",
		Short: "Schema-driven object/graph mapping for Neo4j",
		Long: color.CyanString(`neogm - schema-driven object/graph mapping for Neo4j

Describe node types in YAML, then compile or run queries against them.
Relationships are fetched lazily unless an inclusion shape asks for them.

Examples:
  neogm schema --all
  neogm compile --label Movie --where '{"title":"The Matrix"}' --include '{"actors":true}'
  neogm find --label Person --where '{"born":{"gte":1960}}'`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (default: ./neogm.yaml)")
	rootCmd.PersistentFlags().StringSliceVarP(&flags.schemaFiles, "schema", "s", nil, "Schema definition file(s); overrides schema.files")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewSchemaCommand(flags))
	rootCmd.AddCommand(NewCompileCommand(flags))
	rootCmd.AddCommand(NewFindCommand(flags))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the neogm version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			w := cmd.OutOrStdout()

			titleColor.Fprint(w, "neogm version: ")
			fmt.Fprintln(w, Version)
			titleColor.Fprint(w, "Git commit: ")
			fmt.Fprintln(w, GitCommit)
			titleColor.Fprint(w, "Build date: ")
			fmt.Fprintln(w, BuildDate)
			titleColor.Fprint(w, "Go version: ")
			fmt.Fprintln(w, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		if _, rendered := err.(renderedError); !rendered {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}

// renderedError marks an error whose formatted report was already written
type renderedError struct {
	err error
}

func (e renderedError) Error() string { return e.err.Error() }

func (e renderedError) Unwrap() error { return e.err }
