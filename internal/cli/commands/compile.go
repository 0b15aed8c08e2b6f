package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/neogm/internal/cli/watch"
	"github.com/conduit-lang/neogm/internal/ogm/cypher"
	"github.com/conduit-lang/neogm/pkg/ogm"
)

type compileOptions struct {
	label   string
	op      string
	where   string
	include string
	values  string
	json    bool
	watch   bool
}

// NewCompileCommand creates the compile command
func NewCompileCommand(flags *globalFlags) *cobra.Command {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the Cypher statement for an operation",
		Long: `Compile an operation to Cypher without touching the database.

The predicate is a JSON object: field equality, operator objects such as
{"born": {"gte": 1960}}, and the combinators $and, $or and $not.`,
		Example: `  neogm compile --label Movie --where '{"title":"The Matrix"}' --include '{"actors":true}'
  neogm compile --label Person --op create --values '{"name":"Keanu","born":1964}'
  neogm compile --label Movie --include '{"actors":true}' --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.watch {
				return watchCompile(cmd, flags, opts)
			}
			return runCompile(cmd, flags, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.label, "label", "l", "", "Node label")
	cmd.Flags().StringVar(&opts.op, "op", "find", "Operation: find, create, update or delete")
	cmd.Flags().StringVarP(&opts.where, "where", "w", "", "Predicate as JSON")
	cmd.Flags().StringVarP(&opts.include, "include", "i", "", "Inclusion shape as JSON")
	cmd.Flags().StringVar(&opts.values, "values", "", "Field values as JSON (create, update)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print {cypher, params} as JSON")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Recompile whenever a schema file changes")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}

func runCompile(cmd *cobra.Command, flags *globalFlags, opts *compileOptions) error {
	env, err := loadEnvironment(cmd, flags)
	if err != nil {
		return err
	}

	whereDoc, err := parseObject("where", opts.where)
	if err != nil {
		return err
	}
	where, err := ogm.ParseWhere(whereDoc)
	if err != nil {
		return err
	}
	include, err := parseInclude(opts.include)
	if err != nil {
		return err
	}
	values, err := parseObject("values", opts.values)
	if err != nil {
		return err
	}

	// compiling never executes, so no executor is needed
	o, err := env.ogm(nil)
	if err != nil {
		return err
	}
	repo, err := env.repository(cmd, o, opts.label)
	if err != nil {
		return err
	}

	stmt, err := repo.Explain(opts.op, where, values, include)
	if err != nil {
		return report(cmd, err, repo.Schema().Names(), env.noColor)
	}

	w := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"cypher": stmt.Cypher, "params": stmt.Params})
	}

	fmt.Fprintln(w, stmt.Cypher)
	if len(stmt.Params) == 0 {
		return nil
	}
	heading := color.New(color.FgHiBlack)
	if env.noColor {
		heading.DisableColor()
	}
	fmt.Fprintln(w)
	heading.Fprintln(w, "// params")
	for _, name := range cypher.SortedKeys(stmt.Params) {
		value, err := json.Marshal(stmt.Params[name])
		if err != nil {
			return fmt.Errorf("failed to encode $%s: %w", name, err)
		}
		fmt.Fprintf(w, "$%s = %s\n", name, value)
	}
	return nil
}

// watchCompile compiles once, then again after every change to the schema
// files, until interrupted. Failures are reported and watching continues.
func watchCompile(cmd *cobra.Command, flags *globalFlags, opts *compileOptions) error {
	env, err := loadEnvironment(cmd, flags)
	if err != nil {
		return err
	}
	defer env.logger.Sync() //nolint:errcheck

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	var mu sync.Mutex
	compile := func() {
		mu.Lock()
		defer mu.Unlock()
		if err := runCompile(cmd, flags, opts); err != nil {
			var rendered renderedError
			if !errors.As(err, &rendered) {
				fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("Error: %v", err))
			}
		}
	}

	compile()
	w, err := watch.New(env.files, env.logger, func(changed []string) error {
		notice := color.New(color.FgHiBlack)
		if env.noColor {
			notice.DisableColor()
		}
		notice.Fprintf(cmd.ErrOrStderr(), "// %s changed, recompiling\n", strings.Join(changed, ", "))
		compile()
		return nil
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
