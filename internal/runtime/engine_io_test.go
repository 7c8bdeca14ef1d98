package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/tubelife/internal/runtime"
	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/aretw0/tubelife/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	mu      sync.Mutex
	saved   [][]byte
	load    []byte
	saveErr error
	loadErr error
	gate    chan struct{}
}

func (h *fakeHost) SaveSequence(_ context.Context, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.saveErr != nil {
		return h.saveErr
	}
	h.saved = append(h.saved, payload)
	return nil
}

func (h *fakeHost) LoadSequence(context.Context) ([]byte, error) {
	if h.gate != nil {
		<-h.gate
	}
	return h.load, h.loadErr
}

func TestEngine_SaveIsFireAndForget(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	host := &fakeHost{}
	e := newTestEngine(t, domain.DefaultSequence(), runtime.WithHost(host))

	require.NoError(t, e.Save(ctx, "endurance"))
	cancel()
	e.WaitIO()

	require.Len(t, host.saved, 1)
	seq, err := schema.Unmarshal(host.saved[0])
	require.NoError(t, err)
	assert.Equal(t, "endurance", seq.Name)
	assert.Len(t, seq.Steps, 6)
	assert.Equal(t, `Saved "endurance.json" (6 steps).`, e.Snapshot().Log[0].Message)
}

func TestEngine_SaveWhileRunning(t *testing.T) {
	ctx := context.Background()
	host := &fakeHost{}
	e := newTestEngine(t, domain.DefaultSequence(), runtime.WithHost(host))
	e.Start(ctx)

	require.NoError(t, e.Save(ctx, ""))
	e.WaitIO()
	require.Len(t, host.saved, 1)
}

func TestEngine_SaveFailureIsLogged(t *testing.T) {
	host := &fakeHost{saveErr: errors.New("disk full")}
	e := newTestEngine(t, domain.DefaultSequence(), runtime.WithHost(host))

	require.NoError(t, e.Save(context.Background(), "x"))
	e.WaitIO()

	entry := e.Snapshot().Log[0]
	assert.Equal(t, domain.LogError, entry.Category)
	assert.Contains(t, entry.Message, "disk full")
}

func TestEngine_RequestLoad(t *testing.T) {
	ctx := context.Background()
	data, err := schema.Marshal(domain.Sequence{Name: "from_host", Steps: []domain.Step{domain.Delay{ID: "d", Time: 3}}})
	require.NoError(t, err)
	e := newTestEngine(t, domain.DefaultSequence(), runtime.WithHost(&fakeHost{load: data}))

	require.NoError(t, e.RequestLoad(ctx))
	e.WaitIO()
	assert.Equal(t, "from_host", e.Snapshot().Sequence.Name)
}

func TestEngine_RequestLoadRejectedWhileLocked(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, domain.DefaultSequence(), runtime.WithHost(&fakeHost{}))
	e.Start(ctx)
	assert.ErrorIs(t, e.RequestLoad(ctx), domain.ErrLocked)
}

func TestEngine_RequestLoadDroppedWhenLockedOnDelivery(t *testing.T) {
	ctx := context.Background()
	data, err := schema.Marshal(domain.Sequence{Name: "late", Steps: []domain.Step{domain.Delay{ID: "d", Time: 3}}})
	require.NoError(t, err)
	host := &fakeHost{load: data, gate: make(chan struct{})}
	e := newTestEngine(t, domain.DefaultSequence(), runtime.WithHost(host))

	require.NoError(t, e.RequestLoad(ctx))
	e.Start(ctx)
	close(host.gate)
	e.WaitIO()

	snap := e.Snapshot()
	assert.Equal(t, domain.DefaultSequenceName, snap.Sequence.Name)
	assert.Equal(t, "Load discarded: sequence is locked.", snap.Log[0].Message)
}

func TestEngine_NoHost(t *testing.T) {
	e := newTestEngine(t, domain.DefaultSequence())
	assert.ErrorIs(t, e.Save(context.Background(), "x"), runtime.ErrNoHost)
	assert.ErrorIs(t, e.RequestLoad(context.Background()), runtime.ErrNoHost)
}
