package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/tubelife"
	"github.com/aretw0/tubelife/internal/logging"
	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/aretw0/tubelife/pkg/ports"
	"github.com/aretw0/tubelife/pkg/schema"
)

// CommandResponse reports the outcome of a run-state command.
type CommandResponse struct {
	Changed bool   `json:"changed" jsonschema_description:"Whether the command changed the run state"`
	State   string `json:"state" jsonschema_description:"Run state after the command: IDLE, RUNNING or PAUSED"`
}

// StatusResponse is the telemetry snapshot exposed to agents.
type StatusResponse struct {
	State    string               `json:"state"`
	Locked   bool                 `json:"locked"`
	Cursor   int                  `json:"cursor" jsonschema_description:"Index of the step in progress, -1 when not started"`
	Cycles   domain.CycleCount    `json:"cycles"`
	A        domain.ActuatorState `json:"a"`
	B        domain.ActuatorState `json:"b"`
	Log      []domain.LogEntry    `json:"log"`
	Sequence schema.Payload       `json:"sequence"`
}

// Selector picks the library entry the next host load reads.
type Selector interface {
	Select(name string)
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    ports.Controller
	selector  Selector
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithSelector lets request_load choose the sequence the host delivers.
func WithSelector(sel Selector) Option {
	return func(s *Server) { s.selector = sel }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.Controller, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("tubelife-mcp", strings.TrimSpace(tubelife.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on addr using SSE and stops when ctx ends.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	for _, c := range []struct {
		name, desc string
		fn         func(context.Context) bool
	}{
		{"start", "Start the sequence, or resume it when paused.", s.engine.Start},
		{"pause", "Pause a running sequence, keeping the current step.", s.engine.Pause},
		{"stop", "Stop the sequence and rewind to the first step. Cycle count is kept.", s.engine.Stop},
		{"reset", "Stop, zero the cycle count and home both actuators.", s.engine.Reset},
	} {
		s.mcpServer.AddTool(mcp.NewTool(c.name,
			mcp.WithDescription(c.desc),
			mcp.WithOutputSchema[CommandResponse](),
		), mcp.NewStructuredToolHandler(s.command(c.fn)))
	}

	s.mcpServer.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Get run state, cycle count, actuator positions, the event log and the current sequence."),
		mcp.WithOutputSchema[StatusResponse](),
	), mcp.NewStructuredToolHandler(s.handleStatus))

	s.mcpServer.AddTool(mcp.NewTool("get_sequence",
		mcp.WithDescription("Get the current sequence as a JSON payload."),
		mcp.WithString("name", mcp.Description("Name to put in the payload (defaults to the current name)")),
	), s.handleGetSequence)

	s.mcpServer.AddTool(mcp.NewTool("load_sequence",
		mcp.WithDescription("Replace the sequence with a JSON payload {name, data}. Rejected while running or paused."),
		mcp.WithString("payload", mcp.Required(), mcp.Description("Sequence payload as JSON")),
	), s.handleLoadSequence)

	s.mcpServer.AddTool(mcp.NewTool("add_step",
		mcp.WithDescription("Append a step. MOVE_A/MOVE_B need pos, speed and force; DELAY needs time."),
		mcp.WithString("type", mcp.Required(), mcp.Enum(string(domain.StepMoveA), string(domain.StepMoveB), string(domain.StepDelay))),
		mcp.WithString("id", mcp.Description("Step id (generated when omitted)")),
		mcp.WithNumber("pos", mcp.Description("Target position in mm")),
		mcp.WithNumber("speed", mcp.Description("Speed in percent")),
		mcp.WithNumber("force", mcp.Description("Force limit in percent")),
		mcp.WithNumber("time", mcp.Description("Delay in seconds")),
	), s.handleAddStep)

	s.mcpServer.AddTool(mcp.NewTool("update_step",
		mcp.WithDescription("Change fields of a step."),
		mcp.WithString("id", mcp.Required()),
		mcp.WithString("fields", mcp.Required(), mcp.Description(`JSON object, e.g. {"pos": 12}`)),
	), s.handleUpdateStep)

	s.mcpServer.AddTool(mcp.NewTool("remove_step",
		mcp.WithDescription("Remove a step by id."),
		mcp.WithString("id", mcp.Required()),
	), s.handleRemoveStep)

	s.mcpServer.AddTool(mcp.NewTool("reorder_steps",
		mcp.WithDescription("Reorder steps. ids must list every current step id exactly once."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma-separated step ids in the new order")),
	), s.handleReorder)

	s.mcpServer.AddTool(mcp.NewTool("set_total_cycles",
		mcp.WithDescription("Set the operator cycle total. Must be a positive integer."),
		mcp.WithString("value", mcp.Required()),
	), s.handleSetTotal)

	s.mcpServer.AddTool(mcp.NewTool("clear_log",
		mcp.WithDescription("Empty the event log."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.engine.ClearLog()
		return mcp.NewToolResultText("log cleared"), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("save_sequence",
		mcp.WithDescription("Save the current sequence to the library. The outcome appears in the event log."),
		mcp.WithString("name", mcp.Description("Library name (defaults to the current name)")),
	), s.handleSave)

	s.mcpServer.AddTool(mcp.NewTool("request_load",
		mcp.WithDescription("Load a sequence from the library. Rejected while running or paused."),
		mcp.WithString("name", mcp.Description("Library name to load")),
	), s.handleRequestLoad)
}

func (s *Server) command(fn func(context.Context) bool) func(context.Context, mcp.CallToolRequest, map[string]any) (CommandResponse, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (CommandResponse, error) {
		changed := fn(ctx)
		return CommandResponse{Changed: changed, State: s.engine.Snapshot().State.String()}, nil
	}
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (StatusResponse, error) {
	return Status(s.engine.Snapshot()), nil
}

// Status converts a snapshot to the agent-facing shape.
func Status(snap domain.Snapshot) StatusResponse {
	return StatusResponse{
		State:    snap.State.String(),
		Locked:   snap.Locked,
		Cursor:   snap.Cursor,
		Cycles:   snap.Cycles,
		A:        snap.A,
		B:        snap.B,
		Log:      snap.Log,
		Sequence: schema.FromSequence(snap.Sequence),
	}
}

func (s *Server) handleGetSequence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.engine.SerializePayload(request.GetString("name", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleLoadSequence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload, err := request.RequireString("payload")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.engine.LoadPayload(ctx, []byte(payload)); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("loaded %d steps", len(s.engine.Snapshot().Sequence.Steps))), nil
}

func (s *Server) handleAddStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	j := schema.StepJSON{
		ID:   request.GetString("id", ""),
		Type: domain.StepType(request.GetString("type", "")),
	}
	if j.ID == "" {
		j.ID = domain.NewStepID()
	}
	args := request.GetArguments()
	for key, dst := range map[string]**float64{"pos": &j.Pos, "speed": &j.Speed, "force": &j.Force, "time": &j.Time} {
		if _, ok := args[key]; ok {
			v := request.GetFloat(key, 0)
			*dst = &v
		}
	}

	step, err := schema.StepFromJSON(j)
	if err != nil {
		return toolError(err), nil
	}
	added, err := s.engine.AddStep(ctx, step)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(schema.StepToJSON(added))
}

func (s *Server) handleUpdateStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(request.GetString("fields", "")), &fields); err != nil {
		return mcp.NewToolResultError("fields must be a JSON object: " + err.Error()), nil
	}
	step, err := s.engine.UpdateStepFields(ctx, id, fields)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(schema.StepToJSON(step))
}

func (s *Server) handleRemoveStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.engine.RemoveStep(ctx, id); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("removed " + id), nil
}

func (s *Server) handleReorder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if err := s.engine.Reorder(ctx, ids); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("reordered"), nil
}

func (s *Server) handleSetTotal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.engine.SetTotalCyclesInput(ctx, request.GetString("value", "")); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("total cycles: %d", s.engine.Snapshot().Cycles.Total)), nil
}

func (s *Server) handleSave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.engine.Save(ctx, request.GetString("name", "")); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("save requested"), nil
}

func (s *Server) handleRequestLoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.engine.Snapshot().Locked {
		return toolError(domain.ErrLocked), nil
	}
	if name := request.GetString("name", ""); name != "" && s.selector != nil {
		s.selector.Select(name)
	}
	if err := s.engine.RequestLoad(ctx); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("load requested"), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("tubelife://status", "Engine Status",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(Status(s.engine.Snapshot()))
		if err != nil {
			return nil, fmt.Errorf("failed to encode status: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: "tubelife://status", MIMEType: "application/json", Text: string(data)},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource("tubelife://schema", "Sequence Payload Schema",
		mcp.WithMIMEType("application/schema+json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: "tubelife://schema", MIMEType: "application/schema+json", Text: schema.SchemaText()},
		}, nil
	})
}

func toolError(err error) *mcp.CallToolResult {
	msg := err.Error()
	if details := domain.ValidationErrors(err); len(details) > 0 {
		lines := make([]string, 0, len(details))
		for _, d := range details {
			lines = append(lines, "- "+d.Error())
		}
		msg += "\n" + strings.Join(lines, "\n")
	}
	return mcp.NewToolResultError(msg)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
