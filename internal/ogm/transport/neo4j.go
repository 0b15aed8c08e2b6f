package transport

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/conduit-lang/neogm/internal/ogm/mapping"
)

// Config holds the connection settings of a Neo4j executor
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4j executes statements through the official Neo4j driver, one
// auto-commit session per statement
type Neo4j struct {
	driver   neo4j.DriverWithContext
	database string
	owned    bool
}

// NewNeo4j wraps an existing driver. The caller keeps ownership of it.
func NewNeo4j(driver neo4j.DriverWithContext, database string) *Neo4j {
	return &Neo4j{driver: driver, database: database}
}

// Dial creates a driver from cfg and verifies connectivity
func Dial(ctx context.Context, cfg Config) (*Neo4j, error) {
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, Wrap("connect", fmt.Errorf("failed to create driver for %s: %w", cfg.URI, err))
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, Wrap("connect", fmt.Errorf("failed to reach %s: %w", cfg.URI, err))
	}

	return &Neo4j{driver: driver, database: cfg.Database, owned: true}, nil
}

// Execute implements Executor
func (n *Neo4j) Execute(ctx context.Context, req Request) ([]mapping.Gettable, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap("execute", err)
	}

	mode := neo4j.AccessModeRead
	if req.Mode == Write {
		mode = neo4j.AccessModeWrite
	}
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: n.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, req.Cypher, req.Params)
	if err != nil {
		return nil, Wrap("execute", fmt.Errorf("failed to run statement: %w", err))
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, Wrap("execute", fmt.Errorf("failed to collect records: %w", err))
	}

	out := make([]mapping.Gettable, len(records))
	for i, rec := range records {
		out[i] = rec
	}
	return out, nil
}

// Close closes the driver if Dial created it
func (n *Neo4j) Close(ctx context.Context) error {
	if !n.owned {
		return nil
	}
	if err := n.driver.Close(ctx); err != nil {
		return Wrap("close", err)
	}
	return nil
}
