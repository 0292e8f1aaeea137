package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanverite/hotplugd/internal/core"
)

type mockSuspender struct {
	mock.Mock
}

func (m *mockSuspender) Suspended() bool {
	return m.Called().Bool(0)
}

func (m *mockSuspender) SetSuspended(on bool) {
	m.Called(on)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ServerOptions) (*Server, *core.State) {
	t.Helper()
	orig := TimeNow
	TimeNow = func() time.Time { return fixedNow }
	t.Cleanup(func() { TimeNow = orig })

	state := core.NewState(core.Tunables{Active: true, TouchBoost: true, Hysteresis: 8, FineShift: 3})
	opts.Logger = logr.Discard()
	return NewServer(state, opts), state
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, ServerOptions{})

	rec := do(t, s, http.MethodGet, "/v1/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])

	rec = do(t, s, http.MethodPost, "/v1/healthz", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method not allowed", decode[APIError](t, rec).Error)
}

func TestStatus(t *testing.T) {
	s, state := newTestServer(t, ServerOptions{})

	require.NoError(t, state.SetAgentState(core.StateActive))
	state.UpdateController(core.ControllerSnapshot{
		OnlineCount:    2,
		PossibleCount:  4,
		Target:         2,
		PersistCount:   3,
		SamplingPeriod: time.Second,
		Mode:           core.ModeFull,
		Cycles:         42,
		LastCycle:      fixedNow,
	})
	state.UpdateSuspend(core.SuspendSnapshot{Suspended: true, SavedMaxKHz: map[int]uint{0: 1500000}, Since: fixedNow})
	state.UpdateInputs(core.InputSnapshot{Devices: []string{"touchscreen"}})
	state.AppendWarning("display watcher disabled")

	rec := do(t, s, http.MethodGet, "/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[StatusResponse](t, rec)
	assert.Equal(t, "active", resp.State)
	assert.Equal(t, []string{"display watcher disabled"}, resp.Warnings)
	assert.Equal(t, 2, resp.Controller.Online)
	assert.Equal(t, 4, resp.Controller.Possible)
	assert.Equal(t, uint(3), resp.Controller.PersistCount)
	assert.Equal(t, int64(1000), resp.Controller.SamplingPeriodMs)
	assert.Equal(t, "full", resp.Controller.Mode)
	assert.Equal(t, uint64(42), resp.Controller.Cycles)
	assert.Equal(t, "2024-05-01T12:00:00Z", resp.Controller.LastCycle)
	assert.True(t, resp.Suspend.Suspended)
	assert.Equal(t, map[int]uint{0: 1500000}, resp.Suspend.SavedMaxKHz)
	assert.Equal(t, []string{"touchscreen"}, resp.InputDevices)
	assert.True(t, resp.Tunables.Active)
	assert.Equal(t, "2024-05-01T12:00:00Z", resp.GeneratedAt)
}

func TestTunablesPartialUpdate(t *testing.T) {
	s, state := newTestServer(t, ServerOptions{})

	rec := do(t, s, http.MethodPut, "/v1/tunables", `{"eco_mode":true,"screen_off_max_khz":800000,"fine_shift":99}`)
	require.Equal(t, http.StatusOK, rec.Code)

	view := decode[TunablesView](t, rec)
	assert.True(t, view.EcoMode)
	assert.True(t, view.Active, "absent fields are unchanged")
	assert.Equal(t, uint(800000), view.ScreenOffMaxKHz)
	assert.Equal(t, uint(99), view.FineShift, "no range validation")

	assert.Equal(t, core.ModeEco, state.Tunables().Mode())

	rec = do(t, s, http.MethodGet, "/v1/tunables", "")
	assert.Equal(t, view, decode[TunablesView](t, rec))
}

func TestTunablesRejectsBadJSON(t *testing.T) {
	s, state := newTestServer(t, ServerOptions{})
	before := state.Tunables()

	for _, body := range []string{`{"eco":true}`, `{"hysteresis":-1}`, `not json`} {
		rec := do(t, s, http.MethodPut, "/v1/tunables", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Equal(t, before, state.Tunables())
}

func TestSuspended(t *testing.T) {
	sus := new(mockSuspender)
	s, _ := newTestServer(t, ServerOptions{Suspender: sus})

	sus.On("SetSuspended", true).Once()
	sus.On("Suspended").Return(true).Once()

	rec := do(t, s, http.MethodPut, "/v1/suspended", `{"suspended":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[SuspendView](t, rec).Suspended)

	sus.On("Suspended").Return(true).Once()
	rec = do(t, s, http.MethodGet, "/v1/suspended", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPut, "/v1/suspended", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	sus.AssertExpectations(t)
	sus.AssertNumberOfCalls(t, "SetSuspended", 1)
}

func TestSuspendedWithoutController(t *testing.T) {
	s, _ := newTestServer(t, ServerOptions{})
	rec := do(t, s, http.MethodGet, "/v1/suspended", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProbe(t *testing.T) {
	summary := core.PlatformSummary{
		HotplugOK:   true,
		Possible:    4,
		Online:      1,
		LatenciesMs: map[string]int64{"topology": 1},
		LastChecked: fixedNow,
	}
	s, state := newTestServer(t, ServerOptions{
		Probe: func(context.Context) (core.PlatformSummary, error) { return summary, nil },
	})

	rec := do(t, s, http.MethodPost, "/v1/probe", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[PlatformView](t, rec)
	assert.True(t, view.HotplugOK)
	assert.Equal(t, 4, view.Possible)
	assert.Equal(t, map[string]int64{"topology": 1}, view.LatenciesMs)

	assert.Equal(t, 4, state.GetSnapshot().LastProbe.Possible)

	rec = do(t, s, http.MethodGet, "/v1/probe", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProbeFailureStoresPartialSummary(t *testing.T) {
	s, state := newTestServer(t, ServerOptions{
		Probe: func(context.Context) (core.PlatformSummary, error) {
			return core.PlatformSummary{Warnings: []string{"topology unreadable"}}, errors.New("no sysfs")
		},
	})

	rec := do(t, s, http.MethodPost, "/v1/probe", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode[APIError](t, rec).Error, "no sysfs")
	assert.Equal(t, []string{"topology unreadable"}, state.GetSnapshot().LastProbe.Warnings)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, ServerOptions{})
	rec := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestServeUntilCancelled(t *testing.T) {
	s, _ := newTestServer(t, ServerOptions{Addr: "127.0.0.1:0"})
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	resp, err := http.Get("http://" + s.Addr() + "/v1/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
