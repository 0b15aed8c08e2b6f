package commands

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/neogm/internal/cli/config"
	"github.com/conduit-lang/neogm/internal/cli/ui"
	"github.com/conduit-lang/neogm/internal/ogm/schema"
	"github.com/conduit-lang/neogm/pkg/ogm"
)

// environment is what every command works with: configuration, the loaded
// schemas and a logger
type environment struct {
	cfg      *config.Config
	registry *schema.Registry
	files    []string
	logger   *zap.Logger
	noColor  bool
}

func loadEnvironment(cmd *cobra.Command, flags *globalFlags) (*environment, error) {
	cfg, err := config.LoadFrom(flags.configPath)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), flags.noColor))
		return nil, renderedError{err}
	}

	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}

	files := flags.schemaFiles
	if len(files) == 0 {
		files = cfg.Schema.Files
	}
	if len(files) == 0 {
		err := fmt.Errorf("no schema files: pass --schema or set schema.files")
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), flags.noColor))
		return nil, renderedError{err}
	}

	reg := schema.NewRegistry()
	for _, path := range files {
		loaded, err := schema.LoadFile(path, reg)
		if err != nil {
			return nil, report(cmd, err, nil, flags.noColor)
		}
		logger.Debug("Loaded schema file", zap.String("path", path), zap.Int("nodes", len(loaded)))
	}
	logger.Debug("Schemas registered", zap.Int("count", reg.Count()))

	return &environment{cfg: cfg, registry: reg, files: files, logger: logger, noColor: flags.noColor}, nil
}

// ogm builds an OGM over exec with the mapping settings of the configuration
func (e *environment) ogm(exec ogm.Executor) (*ogm.OGM, error) {
	opts := []ogm.Option{
		ogm.WithRegistry(e.registry),
		ogm.WithLogger(e.logger),
		ogm.WithAcceptBigInt(e.cfg.Mapping.AcceptBigInt),
		ogm.WithPartialResults(e.cfg.Mapping.PartialResults),
		ogm.WithMaxDepth(e.cfg.Mapping.MaxDepth),
	}
	translate, err := e.cfg.Translator()
	if err != nil {
		return nil, err
	}
	if translate != nil {
		opts = append(opts, ogm.WithNaming(translate))
	}
	return ogm.New(exec, opts...), nil
}

// repository returns the repository of label, reporting unknown labels with
// suggestions
func (e *environment) repository(cmd *cobra.Command, o *ogm.OGM, label string) (*ogm.Repository, error) {
	if !e.registry.Exists(label) {
		fmt.Fprint(cmd.ErrOrStderr(), ui.LabelNotFoundError(label, e.registry.List(), e.noColor))
		return nil, renderedError{fmt.Errorf("unknown label %q", label)}
	}
	return o.Repository(label)
}

// report writes a formatted OGM error and marks it rendered
func report(cmd *cobra.Command, err error, fields []string, noColor bool) error {
	fmt.Fprint(cmd.ErrOrStderr(), ui.FormatOGMError(err, fields, noColor))
	return renderedError{err}
}

// parseObject decodes a JSON object flag. Integral numbers become int64 so
// they compare equal to integer properties in the graph.
func parseObject(flag, raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("--%s must be a JSON object: %w", flag, err)
	}
	return normalize(doc).(map[string]any), nil
}

func normalize(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	default:
		return v
	}
}

// parseInclude decodes an inclusion shape; nested objects are accepted as
// nested shapes
func parseInclude(raw string) (ogm.Include, error) {
	doc, err := parseObject("include", raw)
	if err != nil || doc == nil {
		return nil, err
	}
	return ogm.Include(doc), nil
}
