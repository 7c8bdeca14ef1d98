package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/aretw0/tubelife/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.State.WithLabelValues("IDLE")))

	hooks.OnStateChange(ctx, &domain.StateEvent{From: domain.StateIdle, To: domain.StateRunning, Command: domain.CommandStart})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.State.WithLabelValues("IDLE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.State.WithLabelValues("RUNNING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("start")))

	hooks.OnStepEnter(ctx, &domain.StepEvent{Kind: domain.StepMoveA})
	hooks.OnStepEnter(ctx, &domain.StepEvent{Kind: domain.StepMoveA})
	hooks.OnStepEnter(ctx, &domain.StepEvent{Kind: domain.StepDelay})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Steps.WithLabelValues("MOVE_A")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Steps.WithLabelValues("DELAY")))

	t0 := time.Unix(1000, 0)
	hooks.OnCycleComplete(ctx, &domain.CycleEvent{EventBase: domain.EventBase{Timestamp: t0}})
	hooks.OnCycleComplete(ctx, &domain.CycleEvent{EventBase: domain.EventBase{Timestamp: t0.Add(3 * time.Second)}})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Cycles))
	var pb dto.Metric
	assert.NoError(t, m.CycleDuration.Write(&pb))
	assert.Equal(t, uint64(1), pb.GetHistogram().GetSampleCount())
	assert.Equal(t, 3.0, pb.GetHistogram().GetSampleSum())

	hooks.OnTick(ctx, &domain.TickEvent{A: domain.ActuatorState{Pos: 12, Force: 40}, B: domain.ActuatorState{Pos: 3}})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ticks))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.Position.WithLabelValues("A")))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.Force.WithLabelValues("A")))

	hooks.OnRejected(ctx, &domain.RejectEvent{Operation: "reorder"})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejected.WithLabelValues("reorder")))

	count, err := testutil.GatherAndCount(reg, "tubelife_cycles_completed_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
