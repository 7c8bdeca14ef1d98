package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/tubelife"
	"github.com/aretw0/tubelife/internal/logging"
	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/aretw0/tubelife/pkg/library"
	"github.com/aretw0/tubelife/pkg/ports"
	"github.com/aretw0/tubelife/pkg/schema"
)

// Selector picks the library entry the next host load reads.
type Selector interface {
	Select(name string)
}

// Server exposes an engine over a JSON control API.
type Server struct {
	Engine   ports.Controller
	Streams  *StreamManager
	Library  *library.Manager
	Selector Selector
	Metrics  http.Handler

	logger *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLibrary enables the /api/library routes.
func WithLibrary(m *library.Manager) Option {
	return func(s *Server) { s.Library = m }
}

// WithSelector lets load requests choose the sequence the host delivers.
func WithSelector(sel Selector) Option {
	return func(s *Server) { s.Selector = sel }
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.Metrics = h }
}

// WithStreams shares a stream manager whose hooks are attached to the engine.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer builds a server around engine.
func NewServer(engine ports.Controller, opts ...Option) *Server {
	s := &Server{Engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	return s
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine ports.Controller, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Routes()
}

// Routes returns the chi router for the server.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/info", s.GetInfo)
		r.Get("/status", s.GetStatus)
		r.Get("/schema", s.GetSchema)
		r.Get("/events", s.SubscribeEvents)

		r.Post("/start", s.command(s.Engine.Start))
		r.Post("/pause", s.command(s.Engine.Pause))
		r.Post("/stop", s.command(s.Engine.Stop))
		r.Post("/reset", s.command(s.Engine.Reset))

		r.Get("/sequence", s.GetSequence)
		r.Put("/sequence", s.PutSequence)
		r.Post("/sequence/save", s.SaveSequence)
		r.Post("/sequence/load", s.RequestLoad)

		r.Post("/steps", s.AddStep)
		r.Put("/steps/order", s.Reorder)
		r.Patch("/steps/{id}", s.UpdateStep)
		r.Delete("/steps/{id}", s.RemoveStep)

		r.Put("/total_cycles", s.SetTotalCycles)
		r.Delete("/log", s.ClearLog)

		if s.Library != nil {
			r.Get("/library", s.ListLibrary)
			r.Get("/library/{name}", s.GetLibraryEntry)
			r.Delete("/library/{name}", s.DeleteLibraryEntry)
		}
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StatusResponse is the telemetry snapshot plus the current sequence.
type StatusResponse struct {
	domain.Snapshot
	Sequence schema.Payload `json:"sequence"`
}

// CommandResponse reports the outcome of a run-state command.
type CommandResponse struct {
	Changed bool            `json:"changed"`
	State   domain.RunState `json:"state"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /api/info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "tubelife-http",
		"version": strings.TrimSpace(tubelife.Version),
	})
}

// GetStatus handles GET /api/status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Engine.Snapshot()
	s.writeJSON(w, http.StatusOK, StatusResponse{Snapshot: snap, Sequence: schema.FromSequence(snap.Sequence)})
}

// GetSchema handles GET /api/schema.
func (s *Server) GetSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	_, _ = w.Write([]byte(schema.SchemaText()))
}

func (s *Server) command(fn func(ctx context.Context) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		changed := fn(r.Context())
		s.writeJSON(w, http.StatusOK, CommandResponse{Changed: changed, State: s.Engine.Snapshot().State})
	}
}

// GetSequence handles GET /api/sequence. ?name= overrides the payload name.
func (s *Server) GetSequence(w http.ResponseWriter, r *http.Request) {
	data, err := s.Engine.SerializePayload(r.URL.Query().Get("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// PutSequence handles PUT /api/sequence with a payload body.
func (s *Server) PutSequence(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !s.decode(w, r, &raw) {
		return
	}
	if err := s.Engine.LoadPayload(r.Context(), raw); err != nil {
		s.writeError(w, err)
		return
	}
	s.GetStatus(w, r)
}

type nameRequest struct {
	Name string `json:"name"`
}

// SaveSequence handles POST /api/sequence/save. The result lands in the log.
func (s *Server) SaveSequence(w http.ResponseWriter, r *http.Request) {
	var body nameRequest
	if r.ContentLength != 0 && !s.decode(w, r, &body) {
		return
	}
	if err := s.Engine.Save(r.Context(), body.Name); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// RequestLoad handles POST /api/sequence/load.
func (s *Server) RequestLoad(w http.ResponseWriter, r *http.Request) {
	var body nameRequest
	if r.ContentLength != 0 && !s.decode(w, r, &body) {
		return
	}
	if s.Engine.Snapshot().Locked {
		s.writeError(w, domain.ErrLocked)
		return
	}
	if body.Name != "" && s.Selector != nil {
		s.Selector.Select(body.Name)
	}
	if err := s.Engine.RequestLoad(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// AddStep handles POST /api/steps. A missing id is generated.
func (s *Server) AddStep(w http.ResponseWriter, r *http.Request) {
	var body schema.StepJSON
	if !s.decode(w, r, &body) {
		return
	}
	if body.ID == "" {
		body.ID = domain.NewStepID()
	}
	step, err := schema.StepFromJSON(body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	added, err := s.Engine.AddStep(r.Context(), step)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, schema.StepToJSON(added))
}

// UpdateStep handles PATCH /api/steps/{id} with a partial field map.
func (s *Server) UpdateStep(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if !s.decode(w, r, &fields) {
		return
	}
	step, err := s.Engine.UpdateStepFields(r.Context(), chi.URLParam(r, "id"), fields)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, schema.StepToJSON(step))
}

// RemoveStep handles DELETE /api/steps/{id}.
func (s *Server) RemoveStep(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.RemoveStep(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type orderRequest struct {
	IDs []string `json:"ids"`
}

// Reorder handles PUT /api/steps/order.
func (s *Server) Reorder(w http.ResponseWriter, r *http.Request) {
	var body orderRequest
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.Engine.Reorder(r.Context(), body.IDs); err != nil {
		s.writeError(w, err)
		return
	}
	s.GetSequence(w, r)
}

type totalRequest struct {
	Total json.RawMessage `json:"total"`
}

// SetTotalCycles handles PUT /api/total_cycles. The value may be a number
// or the raw text of the operator field.
func (s *Server) SetTotalCycles(w http.ResponseWriter, r *http.Request) {
	var body totalRequest
	if !s.decode(w, r, &body) {
		return
	}
	raw := strings.Trim(strings.TrimSpace(string(body.Total)), `"`)
	if err := s.Engine.SetTotalCyclesInput(r.Context(), raw); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Engine.Snapshot().Cycles)
}

// ClearLog handles DELETE /api/log.
func (s *Server) ClearLog(w http.ResponseWriter, r *http.Request) {
	s.Engine.ClearLog()
	w.WriteHeader(http.StatusNoContent)
}

// ListLibrary handles GET /api/library.
func (s *Server) ListLibrary(w http.ResponseWriter, r *http.Request) {
	names, err := s.Library.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, http.StatusOK, names)
}

// GetLibraryEntry handles GET /api/library/{name}.
func (s *Server) GetLibraryEntry(w http.ResponseWriter, r *http.Request) {
	seq, err := s.Library.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, schema.FromSequence(seq))
}

// DeleteLibraryEntry handles DELETE /api/library/{name}.
func (s *Server) DeleteLibraryEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.Library.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -- Helpers --

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

// StatusCode maps engine errors to HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStepNotFound), errors.Is(err, domain.ErrSequenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConfig):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoHost):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := StatusCode(err)
	resp := errorResponse{Error: err.Error()}
	for _, e := range domain.ValidationErrors(err) {
		resp.Details = append(resp.Details, e.Error())
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, code, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
