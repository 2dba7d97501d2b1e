// Package server exposes the assistant over HTTP: one JSON chat endpoint plus
// a health probe. Responses are structured JSON documents, not markup.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reslab/reslab/logging"
	"github.com/reslab/reslab/session"
)

// Responder handles one chat turn. Satisfied by *coordinator.Coordinator.
type Responder interface {
	Respond(ctx context.Context, sessionID, utterance string) (string, error)
}

// ChatRequest is the body of POST /chat. SessionID may be empty on the first
// turn; the server then generates one and returns it so the client can keep
// the conversation going. Name and Role seed session state used to
// personalize responses.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role,omitempty"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

// errorResponse is the body of any non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// Options configure the Server.
type Options struct {
	Logger       logging.Logger
	AgentName    string        // reported by the health endpoint
	TurnTimeout  time.Duration // per-turn deadline covering model and store calls
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the assistant's HTTP front end.
type Server struct {
	addr      string
	responder Responder
	sessions  session.Store
	logger    logging.Logger
	opts      Options

	httpServer *http.Server
}

// New constructs a Server for the given responder and session store.
func New(addr string, responder Responder, sessions session.Store, optFns ...func(o *Options)) *Server {
	opts := Options{
		Logger:       logging.NoOpLogger{},
		AgentName:    "research_assistant",
		TurnTimeout:  60 * time.Second,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	s := &Server{
		addr:      addr,
		responder: responder,
		sessions:  sessions,
		logger:    opts.Logger,
		opts:      opts,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// Handler returns the route multiplexer, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// ListenAndServe runs the server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.listening", "addr", s.addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing message"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	if req.Name != "" || req.Role != "" {
		delta := map[string]string{}
		if req.Name != "" {
			delta["name"] = req.Name
		}
		if req.Role != "" {
			delta["role"] = req.Role
		}
		if err := s.sessions.ApplyState(req.SessionID, delta); err != nil {
			s.logger.Warn("server.chat.state_failed", "session_id", req.SessionID, "error", err.Error())
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.TurnTimeout)
	defer cancel()

	answer, err := s.responder.Respond(ctx, req.SessionID, req.Message)
	if err != nil {
		s.logger.Error("server.chat.failed", "session_id", req.SessionID, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{SessionID: req.SessionID, Response: answer})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "agent": s.opts.AgentName})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
