// Package ogm maps schema-described entities to a Neo4j graph. Register a
// schema to get a Repository; every repository operation compiles to one
// Cypher statement and hydrates the returned records into entities.
package ogm

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/conduit-lang/neogm/internal/ogm/cypher"
	"github.com/conduit-lang/neogm/internal/ogm/mapping"
	"github.com/conduit-lang/neogm/internal/ogm/query"
	"github.com/conduit-lang/neogm/internal/ogm/relationships"
	"github.com/conduit-lang/neogm/internal/ogm/rules"
	"github.com/conduit-lang/neogm/internal/ogm/schema"
	"github.com/conduit-lang/neogm/internal/ogm/transport"
)

const tracerName = "github.com/conduit-lang/neogm"

// OGM owns the configuration shared by its repositories: naming, number
// handling, logging and the executor. Instances are independent of each
// other.
type OGM struct {
	exec     transport.Executor
	logger   *zap.Logger
	tracer   trace.Tracer
	registry *schema.Registry

	naming   mapping.Translator
	number   mapping.NumberOptions
	partial  bool
	maxDepth int
	newID    func() string

	compiler *query.Compiler
	deriver  *rules.Deriver

	mu    sync.RWMutex
	repos map[string]*Repository
}

// Option configures an OGM
type Option func(*OGM)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *OGM) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets the tracer. The default comes from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *OGM) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithNaming sets the translator from field names to property keys
func WithNaming(t mapping.Translator) Option {
	return func(o *OGM) {
		if t != nil {
			o.naming = t
		}
	}
}

// WithAcceptBigInt admits *big.Int values in number fields
func WithAcceptBigInt(accept bool) Option {
	return func(o *OGM) {
		o.number.AcceptBigInt = accept
	}
}

// WithPartialResults makes record failures non-fatal: operations return the
// well-formed entities together with a *PartialError
func WithPartialResults(partial bool) Option {
	return func(o *OGM) {
		o.partial = partial
	}
}

// WithMaxDepth bounds eager relationship nesting
func WithMaxDepth(n int) Option {
	return func(o *OGM) {
		o.maxDepth = n
	}
}

// WithIDGenerator sets the generator of missing identity values on create
func WithIDGenerator(fn func() string) Option {
	return func(o *OGM) {
		o.newID = fn
	}
}

// WithRegistry sets the schema registry, e.g. one filled by schema.LoadFile
func WithRegistry(reg *schema.Registry) Option {
	return func(o *OGM) {
		if reg != nil {
			o.registry = reg
		}
	}
}

// New creates an OGM executing statements with exec
func New(exec transport.Executor, opts ...Option) *OGM {
	o := &OGM{
		exec:     exec,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
		registry: schema.NewRegistry(),
		naming:   mapping.Identity,
		maxDepth: query.DefaultMaxDepth,
		repos:    make(map[string]*Repository),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.compiler = query.NewCompiler(
		query.WithNaming(o.naming),
		query.WithMaxDepth(o.maxDepth),
		query.WithIDGenerator(o.newID),
	)
	o.deriver = rules.New(
		rules.WithHydrator(mapping.NewHydrator(mapping.WithNaming(o.naming))),
		rules.WithNumberOptions(o.number),
		rules.WithTraverser(o),
		rules.WithMaxDepth(o.maxDepth),
	)
	return o
}

// Registry returns the schema registry
func (o *OGM) Registry() *schema.Registry {
	return o.registry
}

// RegisterNode validates s, registers it and returns its repository. An
// invalid schema is refused with a *schema.SchemaError.
func (o *OGM) RegisterNode(s *schema.Schema) (*Repository, error) {
	if err := o.registry.Register(s); err != nil {
		return nil, err
	}
	repo := o.newRepository(s)

	o.mu.Lock()
	o.repos[s.Label] = repo
	o.mu.Unlock()

	o.logger.Debug("Registered node", zap.String("label", s.Label), zap.Strings("fields", s.Names()))
	return repo, nil
}

// Repository returns the repository of a registered label. Schemas added to
// the registry directly (e.g. loaded from YAML) get a repository on first
// request.
func (o *OGM) Repository(label string) (*Repository, error) {
	o.mu.RLock()
	repo, ok := o.repos[label]
	o.mu.RUnlock()
	if ok {
		return repo, nil
	}

	s, ok := o.registry.Get(label)
	if !ok {
		return nil, fmt.Errorf("%w: no schema registered for label %q", schema.ErrSchema, label)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if repo, ok := o.repos[label]; ok {
		return repo, nil
	}
	repo = o.newRepository(s)
	o.repos[label] = repo
	return repo, nil
}

// Traverse runs the follow-up query of a lazy relationship handle. Each
// returned entity carries the properties of the relationship it was reached
// through.
func (o *OGM) Traverse(ctx context.Context, h *relationships.Handle, where query.Predicate, include schema.Include) ([]*mapping.Entity, error) {
	plan, err := o.compiler.CompileTraverse(h.Owner(), h.OwnerID(), h.Field(), where, include)
	if err != nil {
		return nil, err
	}
	rs, err := o.deriver.Derive(plan.Schema)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, plan, rs, transport.Read)
}

// run executes a plan and hydrates the records
func (o *OGM) run(ctx context.Context, plan *query.Plan, rs mapping.Rules, mode transport.AccessMode) ([]*mapping.Entity, error) {
	op := plan.Op.String()
	ctx, span := o.tracer.Start(ctx, "neogm."+op, trace.WithAttributes(
		attribute.String("db.system", "neo4j"),
		attribute.String("neogm.label", plan.Label()),
		attribute.Int("neogm.depth", plan.Depth()),
	))
	defer span.End()

	stmt := plan.Statement()
	o.logger.Debug("Compiled statement",
		zap.String("label", plan.Label()),
		zap.String("op", op),
		zap.String("cypher", stmt.Cypher),
		zap.Int("params", len(stmt.Params)),
	)

	records, err := o.exec.Execute(ctx, transport.Request{Cypher: stmt.Cypher, Params: stmt.Params, Mode: mode})
	if err != nil {
		err = transport.Wrap(op, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("neogm.records", len(records)))

	entities, err := o.hydrate(plan, records, rs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return entities, err
}

func (o *OGM) hydrate(plan *query.Plan, records []mapping.Gettable, rs mapping.Rules) ([]*mapping.Entity, error) {
	results := o.deriver.Hydrator().HydrateAll(records, rs, plan.Label())

	entities := make([]*mapping.Entity, 0, len(results))
	var failures []RecordError
	for _, res := range results {
		if res.Err != nil {
			if !o.recordFailed(plan.Label(), res.Index, res.Err) {
				return nil, res.Err
			}
			failures = append(failures, RecordError{Index: res.Index, Err: res.Err})
			continue
		}
		if plan.Op == query.OpTraverse {
			raw, _ := records[res.Index].Get(query.RelationshipKey)
			props, _ := mapping.PropsOf(raw)
			res.Entity.SetRelationshipProperties(props)
		}
		entities = append(entities, res.Entity)
	}

	if len(failures) > 0 {
		return entities, &PartialError{Failures: failures}
	}
	return entities, nil
}

// recordFailed logs a record that failed to hydrate and reports whether the
// operation carries on without it
func (o *OGM) recordFailed(label string, index int, err error) bool {
	o.logger.Warn("Record failed to hydrate",
		zap.String("label", label),
		zap.Int("index", index),
		zap.Error(err),
	)
	return o.partial
}

// query runs a caller-written statement and reads column of every record
// with rule. The statement may write, so it runs in write mode.
func (o *OGM) query(ctx context.Context, label, statement string, params map[string]any, column string, rule mapping.Rule) ([]*mapping.Entity, error) {
	ctx, span := o.tracer.Start(ctx, "neogm.query", trace.WithAttributes(
		attribute.String("db.system", "neo4j"),
		attribute.String("neogm.label", label),
	))
	defer span.End()

	o.logger.Debug("Raw statement",
		zap.String("label", label),
		zap.String("cypher", statement),
		zap.Strings("params", cypher.SortedKeys(params)),
	)

	records, err := o.exec.Execute(ctx, transport.Request{Cypher: statement, Params: params, Mode: transport.Write})
	if err != nil {
		err = transport.Wrap("query", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("neogm.records", len(records)))

	entities := make([]*mapping.Entity, 0, len(records))
	var failures []RecordError
	for i, rec := range records {
		raw, ok := rec.Get(column)
		if !ok {
			err := fmt.Errorf("%s: record has no column %q", label, column)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		v, err := mapping.ValueAs(raw, fmt.Sprintf("%s[%d]", label, i), rule)
		if err != nil {
			if !o.recordFailed(label, i, err) {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			failures = append(failures, RecordError{Index: i, Err: err})
			continue
		}
		entities = append(entities, v.(*mapping.Entity))
	}
	if len(failures) > 0 {
		return entities, &PartialError{Failures: failures}
	}
	return entities, nil
}
