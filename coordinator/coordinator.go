// Package coordinator implements the assistant's control loop. A coordinator
// receives a user utterance, asks the text-completion client to classify
// intent and optionally produce an operation request, dispatches that request
// synchronously to the matching record sub-agent, asks the client to compose a
// final answer from the result fragment, and appends the completed turn to the
// session. Model failures are retried once and then degraded to an apology;
// nothing in a turn is fatal to the process.
package coordinator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reslab/reslab/agent"
	"github.com/reslab/reslab/logging"
	"github.com/reslab/reslab/model"
	"github.com/reslab/reslab/session"
)

// DefaultApology is returned for a turn when the model cannot be reached or
// produces unusable output.
const DefaultApology = "Sorry, I ran into a problem handling that request. Please try again."

// Options configure a Coordinator.
type Options struct {
	// Logger receives structured turn lifecycle events.
	Logger logging.Logger
	// MaxRetries is the number of re-attempts after a failed model call.
	// The retry uses the same prompt; there is no backoff. Defaults to 1.
	MaxRetries int
	// Apology overrides the degraded response text.
	Apology string
}

// Coordinator routes user utterances to record sub-agents and composes final
// responses. It is safe for concurrent use across sessions; turns within one
// session are assumed to be serialized by the caller.
type Coordinator struct {
	client     model.Client
	sessions   session.Store
	agents     map[string]agent.SubAgent
	agentNames []string // sorted, for stable prompt rendering
	catalog    []model.OperationDefinition
	logger     logging.Logger
	maxRetries int
	apology    string
}

// New constructs a Coordinator over the given client, session store and
// sub-agents. The operation catalog exposed to the model is assembled from
// the sub-agents' declared operations.
func New(client model.Client, sessions session.Store, agents []agent.SubAgent, optFns ...func(o *Options)) *Coordinator {
	opts := Options{
		Logger:     logging.NoOpLogger{},
		MaxRetries: 1,
		Apology:    DefaultApology,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	byName := make(map[string]agent.SubAgent, len(agents))
	names := make([]string, 0, len(agents))
	var catalog []model.OperationDefinition
	for _, a := range agents {
		byName[a.Name()] = a
		names = append(names, a.Name())
		catalog = append(catalog, a.Operations()...)
	}
	sort.Strings(names)

	return &Coordinator{
		client:     client,
		sessions:   sessions,
		agents:     byName,
		agentNames: names,
		catalog:    catalog,
		logger:     opts.Logger,
		maxRetries: opts.MaxRetries,
		apology:    opts.Apology,
	}
}

// Respond handles one chat turn: it appends the utterance to the session's
// history, dispatches any operation the model requests, and returns the final
// natural-language answer. Model and sub-agent failures never surface as
// errors; the turn degrades to an apology or an explanatory fragment. The
// returned error is reserved for session store failures.
func (c *Coordinator) Respond(ctx context.Context, sessionID, utterance string) (string, error) {
	turnID := uuid.NewString()
	start := time.Now()
	c.logger.Debug("coordinator.turn.start", "session_id", sessionID, "turn_id", turnID)

	sess, err := c.sessions.Get(sessionID)
	if err != nil {
		return "", fmt.Errorf("getting session %q: %w", sessionID, err)
	}

	history := append(sess.History(), model.Message{Role: "user", Text: utterance})
	answer := c.answer(ctx, sess, history)

	if err := c.sessions.AppendTurn(sessionID, session.Turn{
		ID:        turnID,
		Utterance: utterance,
		Response:  answer,
	}); err != nil {
		return "", fmt.Errorf("appending turn to session %q: %w", sessionID, err)
	}

	c.logger.Info("coordinator.turn.complete",
		"session_id", sessionID, "turn_id", turnID,
		"duration_ms", time.Since(start).Milliseconds())
	return answer, nil
}

// answer runs the classify -> dispatch -> summarize pipeline for one turn.
func (c *Coordinator) answer(ctx context.Context, sess *session.Session, history []model.Message) string {
	resp, err := c.complete(ctx, model.Request{
		Instructions: c.dispatchInstructions(sess),
		History:      history,
		Operations:   c.catalog,
	})
	if err != nil {
		c.logger.Error("coordinator.classify.failed", "session_id", sess.ID, "error", err.Error())
		return c.apology
	}

	if resp.Operation == nil {
		if strings.TrimSpace(resp.Text) == "" {
			c.logger.Warn("coordinator.classify.empty", "session_id", sess.ID)
			return c.apology
		}
		return resp.Text
	}

	target, ok := c.agents[resp.Operation.Target]
	if !ok {
		c.logger.Warn("coordinator.dispatch.unknown_target",
			"session_id", sess.ID, "target", resp.Operation.Target)
		return c.apology
	}

	fragment := target.Execute(ctx, *resp.Operation)
	return c.summarize(ctx, sess, history, fragment)
}

// summarize asks the model to compose the final answer from the operation
// result. If that call fails, the fragment itself is returned: the operation
// already happened, so reporting its outcome beats apologizing for it.
func (c *Coordinator) summarize(ctx context.Context, sess *session.Session, history []model.Message, fragment string) string {
	summaryHistory := append(append([]model.Message{}, history...), model.Message{
		Role: "user",
		Text: "Operation result:\n" + fragment,
	})
	resp, err := c.complete(ctx, model.Request{
		Instructions: summarizeInstructions,
		History:      summaryHistory,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		if err != nil {
			c.logger.Warn("coordinator.summarize.failed", "session_id", sess.ID, "error", err.Error())
		}
		return fragment
	}
	return resp.Text
}

// complete calls the model client, re-attempting with the same prompt up to
// maxRetries times on failure. Best effort only; no backoff, no guarantee.
func (c *Coordinator) complete(ctx context.Context, req model.Request) (model.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		start := time.Now()
		resp, err := c.client.Complete(ctx, req)
		c.logModelCall(time.Since(start), err)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		c.logger.Warn("coordinator.model.attempt_failed",
			"attempt", attempt+1, "model", c.client.Info().Name,
			"duration_ms", time.Since(start).Milliseconds(), "error", err.Error())
		if ctx.Err() != nil {
			break
		}
	}
	return model.Response{}, lastErr
}

// logModelCall reports call metrics through the richer ModelCallLogger when
// the configured logger supports it.
func (c *Coordinator) logModelCall(dur time.Duration, err error) {
	if ml, ok := c.logger.(logging.ModelCallLogger); ok {
		ml.LogModelCall(c.client.Info().Name, dur, err == nil, err)
	}
}

// dispatchInstructions renders the coordinator system prompt, personalized
// from session state when a name or role is known. Sub-agents are listed in
// sorted name order so the prompt is stable across runs.
func (c *Coordinator) dispatchInstructions(sess *session.Session) string {
	var b strings.Builder
	b.WriteString("You are a research lifecycle management assistant. ")
	b.WriteString("You help users manage research project and people records and support research administration tasks.\n\n")
	b.WriteString("When the user asks to list, look up, create or update records, or to evaluate funding eligibility, call exactly one of the available operations. ")
	b.WriteString("Ask for any required fields that are missing instead of guessing. ")
	b.WriteString("Answer questions that need no data operation directly and concisely. ")
	b.WriteString("Respond in plain text, never in markup.\n")

	if name, ok := sess.GetState("name"); ok && name != "" {
		fmt.Fprintf(&b, "\nThe user's name is %s.", name)
	}
	if role, ok := sess.GetState("role"); ok && role != "" {
		fmt.Fprintf(&b, "\nThe user's role is %s.", role)
	}

	b.WriteString("\nAvailable sub-agents:\n")
	for _, name := range c.agentNames {
		fmt.Fprintf(&b, "- %s: %s\n", name, c.agents[name].Description())
	}
	return b.String()
}

const summarizeInstructions = "You are a research lifecycle management assistant. " +
	"The last message contains the result of a record operation you performed for the user. " +
	"Compose a short, friendly plain-text answer confirming what happened, keeping identifiers and record names from the result intact. " +
	"Do not invent data that is not in the result."
