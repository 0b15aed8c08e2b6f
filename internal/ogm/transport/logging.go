package transport

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/neogm/internal/ogm/cypher"
	"github.com/conduit-lang/neogm/internal/ogm/mapping"
)

// Logging decorates an Executor with structured statement logs
type Logging struct {
	next   Executor
	logger *zap.Logger
}

// WithLogging wraps next. A nil logger disables logging.
func WithLogging(next Executor, logger *zap.Logger) *Logging {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logging{next: next, logger: logger}
}

// Execute implements Executor
func (l *Logging) Execute(ctx context.Context, req Request) ([]mapping.Gettable, error) {
	start := time.Now()
	records, err := l.next.Execute(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		l.logger.Error("Statement failed",
			zap.String("cypher", req.Cypher),
			zap.Stringer("mode", req.Mode),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	if ce := l.logger.Check(zap.DebugLevel, "Statement executed"); ce != nil {
		ce.Write(
			zap.String("cypher", req.Cypher),
			zap.Strings("params", cypher.SortedKeys(req.Params)),
			zap.Stringer("mode", req.Mode),
			zap.Int("records", len(records)),
			zap.Duration("elapsed", elapsed),
		)
	}
	return records, nil
}
