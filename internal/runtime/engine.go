package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/aretw0/tubelife/pkg/ports"
	"github.com/aretw0/tubelife/pkg/schema"
)

// ErrNoHost is returned by Save and RequestLoad when no host is attached.
var ErrNoHost = domain.ErrNoHost

// Engine is the sequence execution engine. Every command and Tick run under
// one mutex, so a tick never observes a half-applied edit.
type Engine struct {
	mu sync.Mutex

	state   domain.RunState
	seq     domain.Sequence
	interp  *Interpreter
	axes    [2]*Actuator
	cycles  domain.CycleCount
	history [2]*History
	log     *EventLog
	ticks   uint64

	// configuration
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	pacer       Pacer
	pacing      pacingConfig
	laws        [2]Law
	convergence float64
	noise       Noise
	tickPeriod  time.Duration
	limits      domain.Limits
	stopAtTotal bool
	historySize int
	logSize     int
	now         func() time.Time
	host        ports.Host

	changes chan struct{}
	io      sync.WaitGroup
}

// NewEngine builds an IDLE engine holding seq.
func NewEngine(seq domain.Sequence, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		logger:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
		tickPeriod: DefaultTickPeriod,
		limits:     domain.DefaultLimits,
		cycles:     domain.CycleCount{Total: domain.DefaultTotalCycles},
		now:        time.Now,
		changes:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.limits.StrokeMax <= e.limits.StrokeMin {
		return nil, fmt.Errorf("%w: stroke range [%.2f, %.2f] is empty", domain.ErrConfig, e.limits.StrokeMin, e.limits.StrokeMax)
	}
	if err := domain.ValidateSteps(seq.Steps, e.limits); err != nil {
		return nil, fmt.Errorf("initial sequence: %w", err)
	}
	if seq.Name == "" {
		seq.Name = domain.DefaultSequenceName
	}
	e.seq = seq.Clone()

	if e.noise == nil {
		e.noise = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if e.pacer == nil {
		e.pacer = e.pacing.build(e.noise)
	}
	for i, ax := range []domain.Axis{domain.AxisA, domain.AxisB} {
		law := e.laws[i]
		if law == nil {
			law = NewSimulatedLaw(e.convergence, e.noise)
		}
		e.axes[i] = NewActuator(ax, law, e.limits)
		e.history[i] = NewHistory(e.historySize)
	}
	e.interp = NewInterpreter(e.pacer)
	e.log = NewEventLog(e.logSize)

	e.logger = e.logger.With("sequence", e.seq.Name)
	e.addLog(domain.LogSystem, "System initialized.")
	e.addLog(domain.LogSystem, "Ready.")
	return e, nil
}

// Start moves IDLE or PAUSED to RUNNING.
func (e *Engine) Start(ctx context.Context) bool { return e.command(ctx, domain.CommandStart) }

// Pause freezes a RUNNING engine without touching any state.
func (e *Engine) Pause(ctx context.Context) bool { return e.command(ctx, domain.CommandPause) }

// Stop returns to IDLE and clears the cursor.
func (e *Engine) Stop(ctx context.Context) bool { return e.command(ctx, domain.CommandStop) }

// Reset returns to IDLE and zeroes actuators, cursor and cycle count.
// History and log are kept.
func (e *Engine) Reset(ctx context.Context) bool { return e.command(ctx, domain.CommandReset) }

func (e *Engine) command(ctx context.Context, cmd domain.Command) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	from := e.state
	t := from.Next(cmd)
	if !t.Allowed {
		e.logger.Debug("command ignored", "command", cmd, "state", from)
		return false
	}
	e.state = t.To

	var msg string
	switch cmd {
	case domain.CommandStart:
		msg = "System Started."
		if from == domain.StatePaused {
			msg = "System Resumed."
		}
	case domain.CommandPause:
		msg = "System Paused."
	case domain.CommandStop:
		e.interp.Reset()
		msg = "System Stopped."
	case domain.CommandReset:
		e.interp.Reset()
		e.axes[0].Reset()
		e.axes[1].Reset()
		e.cycles.Current = 0
		msg = "System Reset Complete."
	}
	e.addLog(domain.LogSystem, msg)
	e.transitioned(ctx, from, cmd)
	return true
}

func (e *Engine) transitioned(ctx context.Context, from domain.RunState, cmd domain.Command) {
	e.logger.Info("state changed", "from", from, "to", e.state, "command", cmd)
	if e.hooks.OnStateChange != nil {
		e.hooks.OnStateChange(ctx, &domain.StateEvent{
			EventBase: e.event(domain.EventStateChange),
			From:      from,
			To:        e.state,
			Command:   cmd,
		})
	}
	select {
	case e.changes <- struct{}{}:
	default:
	}
}

// Tick applies one scheduler period: interpreter, actuator A, actuator B,
// history A, history B. A tick that arrives when the engine is not RUNNING
// is discarded and reported as false.
func (e *Engine) Tick(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != domain.StateRunning {
		return false
	}
	e.ticks++

	if adv, ok := e.interp.Tick(e.seq.Steps, e.tickPeriod, e.axes[0].State(), e.axes[1].State()); ok {
		if adv.TimedOut {
			prev := e.seq.Steps[adv.From]
			e.addLog(domain.LogWarn, fmt.Sprintf("[STEP %d] %s timed out.", adv.From+1, prev.Type()))
			e.logger.Warn("step timed out", "index", adv.From, "step_id", prev.StepID())
		}
		// The tick that reaches the total stops the engine without
		// dispatching; actuators and history still advance for it.
		if !adv.Wrapped || !e.completeCycle(ctx) {
			e.dispatch(ctx, adv)
		}
	}

	for i := range e.axes {
		e.axes[i].Update()
	}
	for i := range e.history {
		e.history[i].Push(e.axes[i].State().Force)
	}

	if e.hooks.OnTick != nil {
		e.hooks.OnTick(ctx, &domain.TickEvent{
			EventBase: e.event(domain.EventTick),
			Number:    e.ticks,
			A:         e.axes[0].State(),
			B:         e.axes[1].State(),
		})
	}
	return true
}

// completeCycle counts a wrap. It reports true when the engine stopped
// itself because the total was reached.
func (e *Engine) completeCycle(ctx context.Context) bool {
	e.cycles.Current++
	e.addLog(domain.LogCycle, fmt.Sprintf("Cycle %d/%d complete.", e.cycles.Current, e.cycles.Total))
	if e.hooks.OnCycleComplete != nil {
		e.hooks.OnCycleComplete(ctx, &domain.CycleEvent{
			EventBase: e.event(domain.EventCycleComplete),
			Cycles:    e.cycles,
		})
	}

	if !e.stopAtTotal || e.cycles.Total == 0 || e.cycles.Current < e.cycles.Total {
		return false
	}
	from := e.state
	e.state = domain.StateIdle
	e.interp.Reset()
	e.addLog(domain.LogSystem, fmt.Sprintf("Target of %d cycles reached. System Stopped.", e.cycles.Total))
	e.transitioned(ctx, from, domain.CommandStop)
	return true
}

func (e *Engine) dispatch(ctx context.Context, adv Advance) {
	if m, ok := adv.Step.(domain.Move); ok {
		e.axes[m.Axis].SetTarget(MoveCommand{Pos: m.Pos, Speed: m.Speed, Force: m.Force})
	}
	e.addLog(domain.LogStep, fmt.Sprintf("[STEP %d] %s Executing...", adv.Index+1, adv.Step.Type()))
	e.logger.Debug("step dispatched", "index", adv.Index, "step_id", adv.Step.StepID(), "type", adv.Step.Type())
	if e.hooks.OnStepEnter != nil {
		e.hooks.OnStepEnter(ctx, &domain.StepEvent{
			EventBase: e.event(domain.EventStepEnter),
			Index:     adv.Index,
			StepID:    adv.Step.StepID(),
			Kind:      adv.Step.Type(),
		})
	}
}

// AddStep appends a step. A step without an id receives a fresh one.
func (e *Engine) AddStep(ctx context.Context, step domain.Step) (domain.Step, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.unlocked(ctx, "add_step"); err != nil {
		return nil, err
	}
	if step == nil {
		return nil, e.reject(ctx, "add_step", &domain.StepError{Reason: "step is nil"})
	}
	if step.StepID() == "" {
		step = domain.WithID(step, domain.NewStepID())
	}
	if err := domain.ValidateStep(step, e.limits); err != nil {
		return nil, e.reject(ctx, "add_step", err)
	}
	if e.seq.Index(step.StepID()) >= 0 {
		return nil, e.reject(ctx, "add_step", &domain.StepError{StepID: step.StepID(), Field: "id", Reason: "duplicate id"})
	}
	e.seq.Steps = append(e.seq.Steps, step)
	return step, nil
}

// RemoveStep deletes the step with the given id.
func (e *Engine) RemoveStep(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.unlocked(ctx, "remove_step"); err != nil {
		return err
	}
	i := e.seq.Index(id)
	if i < 0 {
		return e.reject(ctx, "remove_step", fmt.Errorf("%w: %q", domain.ErrStepNotFound, id))
	}
	steps := make([]domain.Step, 0, len(e.seq.Steps)-1)
	steps = append(steps, e.seq.Steps[:i]...)
	e.seq.Steps = append(steps, e.seq.Steps[i+1:]...)
	return nil
}

// Reorder arranges the steps in the given id order, which must be a
// permutation of the current ids.
func (e *Engine) Reorder(ctx context.Context, ids []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.unlocked(ctx, "reorder"); err != nil {
		return err
	}
	if len(ids) != len(e.seq.Steps) {
		return e.reject(ctx, "reorder", &domain.OrderError{
			Reason: fmt.Sprintf("got %d ids, sequence has %d steps", len(ids), len(e.seq.Steps)),
		})
	}
	byID := make(map[string]domain.Step, len(e.seq.Steps))
	for _, s := range e.seq.Steps {
		byID[s.StepID()] = s
	}
	steps := make([]domain.Step, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return e.reject(ctx, "reorder", &domain.OrderError{Reason: fmt.Sprintf("unknown or repeated id %q", id)})
		}
		delete(byID, id)
		steps = append(steps, s)
	}
	e.seq.Steps = steps
	return nil
}

// UpdateStep merges patch into the step with the given id.
func (e *Engine) UpdateStep(ctx context.Context, id string, patch domain.StepPatch) (domain.Step, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.unlocked(ctx, "update_step"); err != nil {
		return nil, err
	}
	return e.applyPatch(ctx, id, func(domain.Step) (domain.StepPatch, error) { return patch, nil })
}

// UpdateStepFields is UpdateStep for loosely typed input such as a decoded
// JSON object.
func (e *Engine) UpdateStepFields(ctx context.Context, id string, fields map[string]any) (domain.Step, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.unlocked(ctx, "update_step"); err != nil {
		return nil, err
	}
	return e.applyPatch(ctx, id, func(s domain.Step) (domain.StepPatch, error) {
		return schema.DecodePatch(id, s.Type(), fields)
	})
}

func (e *Engine) applyPatch(ctx context.Context, id string, decode func(domain.Step) (domain.StepPatch, error)) (domain.Step, error) {
	i := e.seq.Index(id)
	if i < 0 {
		return nil, e.reject(ctx, "update_step", fmt.Errorf("%w: %q", domain.ErrStepNotFound, id))
	}
	patch, err := decode(e.seq.Steps[i])
	if err != nil {
		return nil, e.reject(ctx, "update_step", err)
	}
	updated, err := patch.Apply(e.seq.Steps[i])
	if err != nil {
		return nil, e.reject(ctx, "update_step", err)
	}
	if err := domain.ValidateStep(updated, e.limits); err != nil {
		return nil, e.reject(ctx, "update_step", err)
	}
	e.seq.Steps[i] = updated
	return updated, nil
}

// LoadSequence replaces the whole sequence. On any validation failure the
// current sequence is kept.
func (e *Engine) LoadSequence(ctx context.Context, name string, steps []domain.Step) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadLocked(ctx, name, steps)
}

func (e *Engine) loadLocked(ctx context.Context, name string, steps []domain.Step) error {
	if err := e.unlocked(ctx, "load"); err != nil {
		return err
	}
	if err := domain.ValidateSteps(steps, e.limits); err != nil {
		return e.reject(ctx, "load", err)
	}
	if name == "" {
		name = domain.DefaultSequenceName
	}
	e.seq = domain.Sequence{Name: name, Steps: steps}.Clone()
	e.interp.Reset()
	e.addLog(domain.LogIO, fmt.Sprintf("Loaded %q (%d steps).", name, len(steps)))
	e.logger.Info("sequence loaded", "name", name, "steps", len(steps))
	return nil
}

// LoadPayload decodes a JSON sequence document and loads it.
func (e *Engine) LoadPayload(ctx context.Context, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.unlocked(ctx, "load"); err != nil {
		return err
	}
	seq, err := schema.Unmarshal(data)
	if err != nil {
		return e.reject(ctx, "load", err)
	}
	return e.loadLocked(ctx, seq.Name, seq.Steps)
}

// SerializeSequence returns the wire document of the current sequence under
// the given name (the current name if empty). It is allowed in every state.
func (e *Engine) SerializeSequence(name string) schema.Payload {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.serializeLocked(name)
}

func (e *Engine) serializeLocked(name string) schema.Payload {
	seq := e.seq.Clone()
	if name != "" {
		seq.Name = name
	}
	return schema.FromSequence(seq)
}

// SerializePayload is SerializeSequence encoded as JSON.
func (e *Engine) SerializePayload(name string) ([]byte, error) {
	data, err := json.Marshal(e.SerializeSequence(name))
	if err != nil {
		return nil, fmt.Errorf("failed to encode sequence: %w", err)
	}
	return data, nil
}

// SetTotalCycles sets the operator total. Zero or negative values are
// rejected and the previous total stays in effect.
func (e *Engine) SetTotalCycles(ctx context.Context, total int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.unlocked(ctx, "set_total_cycles"); err != nil {
		return err
	}
	return e.setTotalLocked(ctx, total, strconv.FormatInt(total, 10))
}

// SetTotalCyclesInput parses raw operator text, such as a form field.
func (e *Engine) SetTotalCyclesInput(ctx context.Context, raw string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.unlocked(ctx, "set_total_cycles"); err != nil {
		return err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return e.reject(ctx, "set_total_cycles", &domain.ConfigError{Key: "total_cycles", Input: raw, Previous: e.cycles.Total})
	}
	return e.setTotalLocked(ctx, n, raw)
}

func (e *Engine) setTotalLocked(ctx context.Context, n int64, raw string) error {
	if n <= 0 {
		return e.reject(ctx, "set_total_cycles", &domain.ConfigError{Key: "total_cycles", Input: raw, Previous: e.cycles.Total})
	}
	e.cycles.Total = uint64(n)
	return nil
}

// ClearLog empties the operator log. Allowed in every state.
func (e *Engine) ClearLog() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log.Clear()
}

// Save hands the serialized sequence to the host without waiting for it.
// The outcome is reported in the event log.
func (e *Engine) Save(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.host == nil {
		return ErrNoHost
	}
	payload := e.serializeLocked(name)
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode sequence: %w", err)
	}

	host := e.host
	ctx = context.WithoutCancel(ctx)
	e.io.Add(1)
	go func() {
		defer e.io.Done()
		err := host.SaveSequence(ctx, data)

		e.mu.Lock()
		defer e.mu.Unlock()
		if err != nil {
			e.addLog(domain.LogError, fmt.Sprintf("Save failed: %v", err))
			e.logger.Error("save failed", "name", payload.Name, "error", err)
			return
		}
		e.addLog(domain.LogIO, fmt.Sprintf("Saved %q (%d steps).", payload.Name+".json", len(payload.Data)))
	}()
	return nil
}

// RequestLoad asks the host for a sequence and loads it when it arrives.
// It is rejected while locked, and the delivery is dropped if the engine
// became locked in the meantime.
func (e *Engine) RequestLoad(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.unlocked(ctx, "load"); err != nil {
		return err
	}
	if e.host == nil {
		return ErrNoHost
	}

	host := e.host
	ctx = context.WithoutCancel(ctx)
	e.io.Add(1)
	go func() {
		defer e.io.Done()
		data, err := host.LoadSequence(ctx)
		if err != nil {
			e.mu.Lock()
			e.addLog(domain.LogError, fmt.Sprintf("Load failed: %v", err))
			e.mu.Unlock()
			e.logger.Error("load failed", "error", err)
			return
		}
		if err := e.LoadPayload(ctx, data); err != nil {
			e.mu.Lock()
			if errors.Is(err, domain.ErrLocked) {
				e.addLog(domain.LogWarn, "Load discarded: sequence is locked.")
			} else {
				e.addLog(domain.LogError, fmt.Sprintf("Load failed: %v", err))
			}
			e.mu.Unlock()
		}
	}()
	return nil
}

// WaitIO blocks until every pending host save/load has finished.
func (e *Engine) WaitIO() {
	e.io.Wait()
}

// Snapshot returns a copy of everything the display layer reads.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return domain.Snapshot{
		State:    e.state,
		Locked:   e.state.Locked(),
		Cursor:   e.interp.Cursor(),
		Cycles:   e.cycles,
		A:        e.axes[0].State(),
		B:        e.axes[1].State(),
		HistoryA: e.history[0].Values(),
		HistoryB: e.history[1].Values(),
		Log:      e.log.Entries(),
		Sequence: e.seq.Clone(),
		Ticks:    e.ticks,
	}
}

// State returns the current run state.
func (e *Engine) State() domain.RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Locked reports whether edits are currently rejected.
func (e *Engine) Locked() bool {
	return e.State().Locked()
}

// Changes signals after every run-state transition. Signals coalesce.
func (e *Engine) Changes() <-chan struct{} {
	return e.changes
}

// TickPeriod returns the duration each tick accounts for.
func (e *Engine) TickPeriod() time.Duration {
	return e.tickPeriod
}

// Command returns the last motion request accepted by the given axis.
func (e *Engine) Command(ax domain.Axis) MoveCommand {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.axes[ax].Command()
}

func (e *Engine) unlocked(ctx context.Context, op string) error {
	if e.state.Locked() {
		return e.reject(ctx, op, fmt.Errorf("%w (state %s)", domain.ErrLocked, e.state))
	}
	return nil
}

func (e *Engine) reject(ctx context.Context, op string, err error) error {
	e.logger.Warn("command rejected", "op", op, "state", e.state, "error", err)
	if e.hooks.OnRejected != nil {
		e.hooks.OnRejected(ctx, &domain.RejectEvent{
			EventBase: e.event(domain.EventRejected),
			Operation: op,
			Err:       err,
		})
	}
	return err
}

func (e *Engine) addLog(cat domain.LogCategory, msg string) {
	e.log.Add(e.now(), cat, msg)
}

func (e *Engine) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: t, Sequence: e.seq.Name}
}
