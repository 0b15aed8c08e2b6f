package transport_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/neogm/internal/ogm/transport"
	"github.com/conduit-lang/neogm/internal/ogm/transport/transporttest"
)

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := transport.Wrap("execute", cause)

	assert.ErrorIs(t, err, transport.ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "execute: connection refused", err.Error())

	// wrapping twice keeps a single layer
	assert.Same(t, err, transport.Wrap("other", err))
	assert.NoError(t, transport.Wrap("execute", nil))
}

func TestScriptedExecutor(t *testing.T) {
	ctx := context.Background()
	exec := transporttest.New().
		Returns(map[string]any{"id": "1"}, map[string]any{"id": "2"}).
		Fails(errors.New("boom"))

	records, err := exec.Execute(ctx, transport.Request{Cypher: "MATCH (n) RETURN n.id AS id"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	v, ok := records[1].Get("id")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	_, err = exec.Execute(ctx, transport.Request{Cypher: "MATCH (n) DETACH DELETE n", Mode: transport.Write})
	assert.ErrorIs(t, err, transport.ErrTransport)

	records, err = exec.Execute(ctx, transport.Request{Cypher: "RETURN 1"})
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.Len(t, exec.Requests(), 3)
	last, ok := exec.Last()
	require.True(t, ok)
	assert.Equal(t, "RETURN 1", last.Cypher)
	assert.Equal(t, 0, exec.Pending())
}

func TestScriptedExecutorHandler(t *testing.T) {
	exec := transporttest.New().Handle(func(req transport.Request) ([]map[string]any, error) {
		return []map[string]any{{"mode": req.Mode.String()}}, nil
	})

	records, err := exec.Execute(context.Background(), transport.Request{Mode: transport.Write})
	require.NoError(t, err)
	v, _ := records[0].Get("mode")
	assert.Equal(t, "write", v)
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := transporttest.New().Returns().Execute(ctx, transport.Request{})
	assert.ErrorIs(t, err, transport.ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	exec := transport.WithLogging(
		transporttest.New().Returns(map[string]any{"id": "1"}).Fails(errors.New("boom")),
		zap.New(core),
	)

	_, err := exec.Execute(context.Background(), transport.Request{Cypher: "RETURN 1", Params: map[string]any{"param0": 1}})
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), transport.Request{Cypher: "RETURN 2"})
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Statement executed", entries[0].Message)
	assert.Equal(t, "RETURN 1", entries[0].ContextMap()["cypher"])
	assert.Equal(t, int64(1), entries[0].ContextMap()["records"])
	assert.Equal(t, []any{"param0"}, entries[0].ContextMap()["params"])
	assert.Equal(t, "Statement failed", entries[1].Message)
}

func TestDialRejectsUnsupportedScheme(t *testing.T) {
	_, err := transport.Dial(context.Background(), transport.Config{URI: "http://localhost:7474"})
	assert.ErrorIs(t, err, transport.ErrTransport)
}
