package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/neogm/internal/cli/telemetry"
	"github.com/conduit-lang/neogm/internal/cli/ui"
	"github.com/conduit-lang/neogm/internal/ogm/transport"
	"github.com/conduit-lang/neogm/pkg/ogm"
)

type findOptions struct {
	label   string
	where   string
	include string
}

// dialer opens the executor find runs against; tests replace it
var dialer = func(ctx context.Context, cfg transport.Config) (ogm.Executor, func() error, error) {
	db, err := transport.Dial(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, func() error { return db.Close(ctx) }, nil
}

// NewFindCommand creates the find command
func NewFindCommand(flags *globalFlags) *cobra.Command {
	opts := &findOptions{}

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Run a find against Neo4j and print the entities as JSON",
		Long: `Run a find against the configured Neo4j database.

Lazy relationships print as {"@lazy": {...}} placeholders; eager ones print as
nested entities with their relationship properties under "@relationship".`,
		Example: `  neogm find --label Movie --where '{"title":"The Matrix"}' --include '{"actors":true}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, flags, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.label, "label", "l", "", "Node label")
	cmd.Flags().StringVarP(&opts.where, "where", "w", "", "Predicate as JSON")
	cmd.Flags().StringVarP(&opts.include, "include", "i", "", "Inclusion shape as JSON")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}

func runFind(cmd *cobra.Command, flags *globalFlags, opts *findOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := loadEnvironment(cmd, flags)
	if err != nil {
		return err
	}
	defer env.logger.Sync() //nolint:errcheck

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

	shutdown, err := telemetry.Setup(ctx, env.cfg.Telemetry.Endpoint, env.cfg.Telemetry.Service)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			env.logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	exec, closeExec, err := dialer(ctx, transport.Config{
		URI:      env.cfg.Neo4j.URI,
		Username: env.cfg.Neo4j.Username,
		Password: env.cfg.Neo4j.Password,
		Database: env.cfg.Neo4j.Database,
	})
	if err != nil {
		return report(cmd, err, nil, env.noColor)
	}
	defer func() {
		if err := closeExec(); err != nil {
			env.logger.Warn("Closing the driver failed", zap.Error(err))
		}
	}()

	o, err := env.ogm(transport.WithLogging(exec, env.logger))
	if err != nil {
		return err
	}
	repo, err := env.repository(cmd, o, opts.label)
	if err != nil {
		return err
	}

	entities, findErr := repo.Find(ctx, where, include)
	var partial *ogm.PartialError
	if findErr != nil && !errors.As(findErr, &partial) {
		return report(cmd, findErr, repo.Schema().Names(), env.noColor)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(entities); err != nil {
		return err
	}

	if partial != nil {
		opts := ui.Describe(partial, nil)
		opts.NoColor = env.noColor
		ui.WriteError(cmd.ErrOrStderr(), opts)
	}
	return nil
}
