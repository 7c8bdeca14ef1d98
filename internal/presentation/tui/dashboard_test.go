package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/tubelife/pkg/domain"
)

func TestSparkline(t *testing.T) {
	lim := domain.Limits{StrokeMin: 0, StrokeMax: 30}

	assert.Equal(t, "▁▁█", Sparkline([]float64{0, 1, 30}, lim, 0))
	assert.Equal(t, "▁█", Sparkline([]float64{-5, 45}, lim, 0), "out of range samples clamp")
	assert.Equal(t, "█", Sparkline([]float64{0, 0, 30}, lim, 1), "keeps the newest samples")
	assert.Equal(t, "", Sparkline(nil, lim, 10))
}

func TestStepColumns(t *testing.T) {
	assert.Equal(t, []string{"MOVE_A", "30", "50", "100", ""}, StepColumns(domain.MoveA("1", 30, 50, 100)))
	assert.Equal(t, []string{"DELAY", "", "", "", "1.5s"}, StepColumns(domain.Delay{ID: "2", Time: 1.5}))
}

func TestSequenceMarkdown(t *testing.T) {
	md := SequenceMarkdown(domain.DefaultSequence())

	assert.True(t, strings.HasPrefix(md, "# sequence_01\n"))
	assert.Contains(t, md, "| 1 | `1` | MOVE_A | 30 | 50 | 100 |  |")
	assert.Contains(t, md, "| 2 | `2` | DELAY |  |  |  | 1 |")
	assert.Contains(t, md, "6 steps, 2s of programmed delay per cycle.")

	assert.Contains(t, SequenceMarkdown(domain.Sequence{Name: "empty"}), "_No steps._")
}

func TestDashboard_Render(t *testing.T) {
	d := &Dashboard{Width: 100, Limits: domain.DefaultLimits, LogRows: 2}
	snap := domain.Snapshot{
		State:    domain.StateRunning,
		Locked:   true,
		Cursor:   1,
		Cycles:   domain.CycleCount{Current: 2, Total: 10},
		A:        domain.ActuatorState{Pos: 12.5, Target: 30, Force: 100},
		HistoryA: []float64{0, 15, 30},
		HistoryB: []float64{0, 0, 0},
		Sequence: domain.DefaultSequence(),
		Log: []domain.LogEntry{
			{Timestamp: time.Date(2024, 1, 1, 10, 0, 2, 0, time.UTC), Message: "[STEP 2] DELAY Executing...", Category: domain.LogStep},
			{Timestamp: time.Date(2024, 1, 1, 10, 0, 1, 0, time.UTC), Message: "Cycle 2/10 complete.", Category: domain.LogCycle},
			{Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), Message: "System Started.", Category: domain.LogSystem},
		},
	}

	out := d.Render(snap)

	assert.Contains(t, out, "RUNNING")
	assert.Contains(t, out, "sequence_01")
	assert.Contains(t, out, "cycle 2/10")
	assert.Contains(t, out, "locked")
	assert.Contains(t, out, "12.50")
	assert.Contains(t, out, "▶")
	assert.Contains(t, out, "10:00:02")
	assert.Contains(t, out, "Cycle 2/10 complete.")
	assert.NotContains(t, out, "System Started.", "only LogRows entries are shown")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
}
