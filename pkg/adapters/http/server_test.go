package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/tubelife"
	tubehttp "github.com/aretw0/tubelife/pkg/adapters/http"
	"github.com/aretw0/tubelife/pkg/adapters/memory"
	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/aretw0/tubelife/pkg/library"
	"github.com/aretw0/tubelife/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine  *tubelife.Engine
	lib     *library.Manager
	host    *library.Host
	handler http.Handler
}

func newFixture(t *testing.T, withHost bool) *fixture {
	t.Helper()
	f := &fixture{lib: library.NewManager(memory.NewStore())}
	streams := tubehttp.NewStreamManager(nil)

	opts := []tubelife.Option{
		tubelife.WithSeed(1),
		tubelife.WithLifecycleHooks(streams.Hooks()),
	}
	if withHost {
		f.host = library.NewHost(f.lib, domain.DefaultSequenceName)
		opts = append(opts, tubelife.WithHost(f.host))
	}
	eng, err := tubelife.New(opts...)
	require.NoError(t, err)
	f.engine = eng

	srvOpts := []tubehttp.Option{tubehttp.WithStreams(streams), tubehttp.WithLibrary(f.lib)}
	if f.host != nil {
		srvOpts = append(srvOpts, tubehttp.WithSelector(f.host))
	}
	f.handler = tubehttp.NewHandler(eng, srvOpts...)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestStatus(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "IDLE", body["state"])
	assert.Equal(t, false, body["locked"])
	assert.EqualValues(t, -1, body["cursor"])

	seq := body["sequence"].(map[string]any)
	assert.Equal(t, domain.DefaultSequenceName, seq["name"])
	assert.Len(t, seq["data"], 6)
	assert.Len(t, body["history_a"], 60)
}

func TestCommands(t *testing.T) {
	f := newFixture(t, false)

	steps := []struct {
		path    string
		changed bool
		state   string
	}{
		{"/api/pause", false, "IDLE"},
		{"/api/start", true, "RUNNING"},
		{"/api/start", false, "RUNNING"},
		{"/api/pause", true, "PAUSED"},
		{"/api/start", true, "RUNNING"},
		{"/api/stop", true, "IDLE"},
		{"/api/reset", true, "IDLE"},
	}
	for _, s := range steps {
		w := f.do(t, http.MethodPost, s.path, "")
		require.Equal(t, http.StatusOK, w.Code, s.path)

		var resp struct {
			Changed bool   `json:"changed"`
			State   string `json:"state"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, s.changed, resp.Changed, s.path)
		assert.Equal(t, s.state, resp.State, s.path)
	}
}

func TestSteps_LockedWhileRunning(t *testing.T) {
	f := newFixture(t, false)
	f.engine.Start(context.Background())

	before := f.engine.Snapshot().Sequence

	w := f.do(t, http.MethodPost, "/api/steps", `{"type":"DELAY","time":2}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPut, "/api/steps/order", `{"ids":["6","5","4","3","2","1"]}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodDelete, "/api/steps/1", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, before, f.engine.Snapshot().Sequence)
}

func TestSteps_Edit(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodPost, "/api/steps", `{"type":"MOVE_B","pos":12,"speed":40,"force":80}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	added := decode[schema.StepJSON](t, w)
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, domain.StepMoveB, added.Type)

	w = f.do(t, http.MethodPatch, "/api/steps/"+added.ID, `{"pos":20}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	patched := decode[schema.StepJSON](t, w)
	require.NotNil(t, patched.Pos)
	assert.Equal(t, 20.0, *patched.Pos)

	w = f.do(t, http.MethodDelete, "/api/steps/"+added.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, f.engine.Snapshot().Sequence.Steps, 6)

	w = f.do(t, http.MethodPut, "/api/steps/order", `{"ids":["6","5","4","3","2","1"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	payload := decode[schema.Payload](t, w)
	assert.Equal(t, "6", payload.Data[0].ID)
}

func TestSteps_Errors(t *testing.T) {
	f := newFixture(t, false)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"missing pos", http.MethodPost, "/api/steps", `{"type":"MOVE_A","speed":50,"force":100}`, http.StatusUnprocessableEntity},
		{"out of stroke", http.MethodPost, "/api/steps", `{"type":"MOVE_A","pos":99,"speed":50,"force":100}`, http.StatusUnprocessableEntity},
		{"bad json", http.MethodPost, "/api/steps", `{"type":`, http.StatusBadRequest},
		{"unknown step", http.MethodPatch, "/api/steps/nope", `{"pos":1}`, http.StatusNotFound},
		{"remove unknown", http.MethodDelete, "/api/steps/nope", "", http.StatusNotFound},
		{"not a permutation", http.MethodPut, "/api/steps/order", `{"ids":["1","2"]}`, http.StatusUnprocessableEntity},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := f.do(t, c.method, c.path, c.body)
			assert.Equal(t, c.code, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
	assert.Len(t, f.engine.Snapshot().Sequence.Steps, 6)
}

func TestSequence_PutAndGet(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodPut, "/api/sequence", `{"name":"short","data":[{"id":"a","type":"DELAY","time":0.5}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/sequence", "")
	require.Equal(t, http.StatusOK, w.Code)
	payload := decode[schema.Payload](t, w)
	assert.Equal(t, "short", payload.Name)
	require.Len(t, payload.Data, 1)
	assert.Equal(t, domain.StepDelay, payload.Data[0].Type)

	w = f.do(t, http.MethodGet, "/api/sequence?name=renamed", "")
	assert.Equal(t, "renamed", decode[schema.Payload](t, w).Name)

	w = f.do(t, http.MethodPut, "/api/sequence", `{"name":"bad","data":[{"id":"a","type":"DELAY"},{"id":"a","type":"JUMP"}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "short", f.engine.Snapshot().Sequence.Name)
}

func TestTotalCycles(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodPut, "/api/total_cycles", `{"total":"25"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, uint64(25), decode[domain.CycleCount](t, w).Total)

	w = f.do(t, http.MethodPut, "/api/total_cycles", `{"total":40}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(40), decode[domain.CycleCount](t, w).Total)

	for _, bad := range []string{`{"total":"abc"}`, `{"total":0}`, `{"total":-3}`} {
		w = f.do(t, http.MethodPut, "/api/total_cycles", bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
	assert.Equal(t, uint64(40), f.engine.Snapshot().Cycles.Total)
}

func TestClearLog(t *testing.T) {
	f := newFixture(t, false)
	require.NotEmpty(t, f.engine.Snapshot().Log)

	w := f.do(t, http.MethodDelete, "/api/log", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, f.engine.Snapshot().Log)
}

func TestHostIO(t *testing.T) {
	t.Run("No Host", func(t *testing.T) {
		f := newFixture(t, false)
		assert.Equal(t, http.StatusNotImplemented, f.do(t, http.MethodPost, "/api/sequence/save", `{"name":"x"}`).Code)
		assert.Equal(t, http.StatusNotImplemented, f.do(t, http.MethodPost, "/api/sequence/load", "").Code)
	})

	t.Run("Save And Load Through Library", func(t *testing.T) {
		f := newFixture(t, true)
		ctx := context.Background()

		w := f.do(t, http.MethodPost, "/api/sequence/save", `{"name":"saved"}`)
		require.Equal(t, http.StatusAccepted, w.Code)
		f.engine.WaitIO()

		seq, err := f.lib.Load(ctx, "saved")
		require.NoError(t, err)
		assert.Len(t, seq.Steps, 6)

		require.NoError(t, f.lib.Save(ctx, domain.Sequence{Name: "other", Steps: []domain.Step{domain.Delay{ID: "d", Time: 3}}}))
		w = f.do(t, http.MethodPost, "/api/sequence/load", `{"name":"other"}`)
		require.Equal(t, http.StatusAccepted, w.Code)
		f.engine.WaitIO()

		snap := f.engine.Snapshot()
		assert.Equal(t, "other", snap.Sequence.Name)
		assert.Equal(t, "other", f.host.Selected())
	})

	t.Run("Load Rejected While Running", func(t *testing.T) {
		f := newFixture(t, true)
		f.engine.Start(context.Background())

		w := f.do(t, http.MethodPost, "/api/sequence/load", `{"name":"other"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, domain.DefaultSequenceName, f.host.Selected())
	})
}

func TestLibrary(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.lib.Save(ctx, domain.DefaultSequence()))

	w := f.do(t, http.MethodGet, "/api/library", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{domain.DefaultSequenceName}, decode[[]string](t, w))

	w = f.do(t, http.MethodGet, "/api/library/"+domain.DefaultSequenceName, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[schema.Payload](t, w).Data, 6)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/library/missing", "").Code)

	w = f.do(t, http.MethodDelete, "/api/library/"+domain.DefaultSequenceName, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{}, decode[[]string](t, f.do(t, http.MethodGet, "/api/library", "")))
}

func TestMetaRoutes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	eng, err := tubelife.New()
	require.NoError(t, err)
	h := tubehttp.NewHandler(eng, tubehttp.WithMetrics(metrics))

	for path, want := range map[string]string{
		"/health":     `"ok"`,
		"/api/info":   `"tubelife-http"`,
		"/api/schema": `"$schema"`,
		"/metrics":    "# metrics",
	} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), want, path)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/library", nil))
	assert.Equal(t, http.StatusNotFound, w.Code, "library routes need a manager")
}

func TestSubscribeEvents(t *testing.T) {
	f := newFixture(t, false)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	f.engine.Start(context.Background())

	var got []string
	for lines.Scan() {
		line := lines.Text()
		if strings.HasPrefix(line, "event: ") || strings.HasPrefix(line, "data: ") {
			got = append(got, line)
		}
		if strings.HasPrefix(line, "data: {") {
			break
		}
	}
	require.Len(t, got, 3)
	assert.Equal(t, "event: state_change", got[1])
	assert.Contains(t, got[2], `"to":"RUNNING"`)
}
