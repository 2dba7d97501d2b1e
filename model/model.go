// Package model defines the text-completion client boundary. The client is an
// external decision oracle: it receives instructions, conversation history and
// a catalog of available record operations, and returns generated text plus an
// optional structured operation request. Only the contract is fixed here; the
// decision logic lives in the hosted model.
package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrMalformedOutput indicates the provider returned output that could not be
// parsed into text plus an optional operation request (unknown operation name,
// undecodable arguments). Callers must degrade gracefully, never crash.
var ErrMalformedOutput = errors.New("malformed model output")

// Message is a single conversation history entry.
type Message struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// OperationDefinition declaratively exposes a record operation to the model.
// Parameters is a JSON Schema object (minimal subset: type, properties,
// required).
type OperationDefinition struct {
	Name        string         `json:"name"`   // e.g. "create_project"
	Target      string         `json:"target"` // owning sub-agent
	Action      string         `json:"action"` // list, get, create or update
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// OperationRequest is the transient value produced by the model naming a
// target sub-agent, an action and a field mapping. It is consumed once by the
// coordinator and discarded.
type OperationRequest struct {
	Target string         `json:"target"`
	Action string         `json:"action"`
	Fields map[string]any `json:"fields"`
}

// Request captures the normalized model input produced by the coordinator.
type Request struct {
	Instructions string                `json:"instructions"`
	History      []Message             `json:"history"`
	Operations   []OperationDefinition `json:"operations,omitempty"`
}

// OperationByName resolves a catalog entry by its exposed name.
func (r Request) OperationByName(name string) (OperationDefinition, bool) {
	for _, op := range r.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return OperationDefinition{}, false
}

// Response is the model's answer: generated text and, if the model chose to,
// a structured operation request.
type Response struct {
	Text      string            `json:"text"`
	Operation *OperationRequest `json:"operation,omitempty"`
}

// Info contains metadata about a client implementation.
type Info struct {
	Name               string `json:"name"`
	Provider           string `json:"provider"` // "openai", "anthropic", "mock", ...
	SupportsOperations bool   `json:"supports_operations"`
}

// Client is the minimal interface required to drive generation.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)

	// Info returns information about the client implementation.
	Info() Info
}

// MockClient is a lightweight in-memory Client useful for tests & examples.
// Canned responses are keyed by the text of the last user message; unmatched
// prompts echo the input. Errors can be queued to exercise retry and
// degradation paths.
type MockClient struct {
	mu        sync.Mutex
	info      Info
	responses map[string]Response
	errQueue  []error
	Requests  []Request // every request received, in order
}

// NewMockClient constructs a MockClient with operation support enabled.
func NewMockClient() *MockClient {
	return &MockClient{
		info:      Info{Name: "mock", Provider: "mock", SupportsOperations: true},
		responses: make(map[string]Response),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockClient) AddResponse(prompt, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = Response{Text: text}
}

// AddOperation registers a canned operation request (with accompanying text)
// for an input prompt.
func (m *MockClient) AddOperation(prompt, text string, op OperationRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = Response{Text: text, Operation: &op}
}

// FailNext queues errors to be returned by the next len(errs) Complete calls
// before normal behavior resumes.
func (m *MockClient) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errQueue = append(m.errQueue, errs...)
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if len(m.errQueue) > 0 {
		err := m.errQueue[0]
		m.errQueue = m.errQueue[1:]
		return Response{}, err
	}

	var lastUser string
	for _, msg := range req.History {
		if msg.Role == "user" {
			lastUser = msg.Text
		}
	}
	if resp, ok := m.responses[lastUser]; ok {
		return resp, nil
	}
	return Response{Text: fmt.Sprintf("Mock response to: %s", lastUser)}, nil
}

// Info implements Client.
func (m *MockClient) Info() Info { return m.info }
