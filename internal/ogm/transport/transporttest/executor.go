// Package transporttest provides a scripted in-memory Executor for tests
package transporttest

import (
	"context"
	"sync"

	"github.com/conduit-lang/neogm/internal/ogm/mapping"
	"github.com/conduit-lang/neogm/internal/ogm/transport"
)

type response struct {
	records []map[string]any
	err     error
}

// Executor records every request and answers from a queue of scripted
// responses. Once the queue is empty it answers with no records, or with
// the handler's answer when one is set.
type Executor struct {
	mu        sync.Mutex
	requests  []transport.Request
	responses []response
	handler   func(req transport.Request) ([]map[string]any, error)
}

// New creates an executor with an empty script
func New() *Executor {
	return &Executor{}
}

// Returns queues a successful response
func (e *Executor) Returns(records ...map[string]any) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses = append(e.responses, response{records: records})
	return e
}

// Fails queues a failing response
func (e *Executor) Fails(err error) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses = append(e.responses, response{err: err})
	return e
}

// Handle sets the function answering requests once the queue is empty
func (e *Executor) Handle(fn func(req transport.Request) ([]map[string]any, error)) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = fn
	return e
}

// Execute implements transport.Executor
func (e *Executor) Execute(ctx context.Context, req transport.Request) ([]mapping.Gettable, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	var next response
	var scripted bool
	if len(e.responses) > 0 {
		next, scripted = e.responses[0], true
		e.responses = e.responses[1:]
	}
	handler := e.handler
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, transport.Wrap("execute", err)
	}

	if !scripted && handler != nil {
		next.records, next.err = handler(req)
	}
	if next.err != nil {
		return nil, transport.Wrap("execute", next.err)
	}

	out := make([]mapping.Gettable, len(next.records))
	for i, rec := range next.records {
		out[i] = mapping.MapRecord(rec)
	}
	return out, nil
}

// Requests returns every request received so far
func (e *Executor) Requests() []transport.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]transport.Request, len(e.requests))
	copy(out, e.requests)
	return out
}

// Last returns the most recent request
func (e *Executor) Last() (transport.Request, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.requests) == 0 {
		return transport.Request{}, false
	}
	return e.requests[len(e.requests)-1], true
}

// Pending returns the number of scripted responses not yet consumed
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.responses)
}
