// Package reslab provides a high-level façade over the coordinator and its
// collaborators (record store, session store, model client & logging) for
// constructing the research lifecycle assistant. Most applications interact
// with this package by:
//  1. Creating an Assistant via New() (optionally overriding default in-memory services)
//  2. Driving chat turns through Chat()
//
// All defaults are safe for local development and testing; production
// deployments typically supply a durable record store, a real model provider
// and a structured logger.
package reslab

import (
	"context"

	"github.com/reslab/reslab/agent"
	"github.com/reslab/reslab/coordinator"
	"github.com/reslab/reslab/logging"
	"github.com/reslab/reslab/model"
	"github.com/reslab/reslab/record"
	"github.com/reslab/reslab/session"
)

// Options configures the Assistant instance.
type Options struct {
	// Client is the text-completion client (defaults to a MockClient).
	Client model.Client
	// RecordStore holds project and people documents (defaults to in-memory).
	RecordStore record.Store
	// SessionStore holds conversation state (defaults to in-memory).
	SessionStore session.Store
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Assistant aggregates the coordinator and its backing services.
type Assistant struct {
	Coordinator *coordinator.Coordinator
	Records     record.Store
	Sessions    session.Store
}

// New creates a new Assistant with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Assistant {
	opts := Options{
		Client:       model.NewMockClient(),
		RecordStore:  record.NewInMemoryStore(),
		SessionStore: session.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	agents := []agent.SubAgent{
		agent.NewProjectAgent(opts.RecordStore, func(o *agent.Options) { o.Logger = opts.Logger }),
		agent.NewPersonAgent(opts.RecordStore, func(o *agent.Options) { o.Logger = opts.Logger }),
		agent.NewAdministratorAgent(opts.RecordStore, opts.Client, func(o *agent.Options) { o.Logger = opts.Logger }),
	}

	coord := coordinator.New(opts.Client, opts.SessionStore, agents, func(o *coordinator.Options) {
		o.Logger = opts.Logger
	})

	return &Assistant{Coordinator: coord, Records: opts.RecordStore, Sessions: opts.SessionStore}
}

// Chat handles one conversational turn for the given session.
func (a *Assistant) Chat(ctx context.Context, sessionID, message string) (string, error) {
	return a.Coordinator.Respond(ctx, sessionID, message)
}
