package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiofi-tools/jiobatt/pkg/config"
	"github.com/jiofi-tools/jiobatt/pkg/events"
	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
	"github.com/jiofi-tools/jiobatt/pkg/notify"
	"github.com/jiofi-tools/jiobatt/pkg/types"
	"github.com/jiofi-tools/jiobatt/pkg/utils/ptr"
)

type fakeDevice struct {
	mu         sync.Mutex
	snapshots  []jiofi.StatusSnapshot
	fetchErr   error
	fetches    int
	restartRes jiofi.RestartResult
	restartErr error
	restarts   int
}

func (f *fakeDevice) FetchStatus(context.Context) (jiofi.StatusSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return jiofi.NotAvailableSnapshot(), f.fetchErr
	}
	if len(f.snapshots) == 0 {
		return jiofi.Decode("50", "0"), nil
	}
	s := f.snapshots[0]
	if len(f.snapshots) > 1 {
		f.snapshots = f.snapshots[1:]
	}
	return s, nil
}

func (f *fakeDevice) TryRestart(context.Context) (jiofi.RestartResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts++
	return f.restartRes, f.restartErr
}

func (f *fakeDevice) restartCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.restarts
}

func (f *fakeDevice) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type alertRecorder struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (r *alertRecorder) Notify(_ context.Context, a notify.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

type testDaemon struct {
	*Daemon
	fake     *fakeDevice
	store    *notify.MemoryStore
	alerts   *alertRecorder
	confPath string
}

func newTestDaemon(t *testing.T, raw *config.RawFileConfig, now time.Time) *testDaemon {
	t.Helper()

	if raw == nil {
		raw = &config.RawFileConfig{}
	}
	if raw.QuietHours == nil {
		raw.QuietHours = &config.RawQuietHours{Enabled: ptr.To(false)}
	}
	confPath := filepath.Join(t.TempDir(), "config.json")
	conf := config.NewFileFromConfig(raw, confPath)

	td := &testDaemon{
		fake:     &fakeDevice{},
		store:    notify.NewMemoryStore(),
		alerts:   &alertRecorder{},
		confPath: confPath,
	}
	d, err := New(conf,
		WithDevice(td.fake),
		WithStore(td.store),
		WithNotifiers(td.alerts),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)
	t.Cleanup(d.scheduler.Stop)
	td.Daemon = d
	return td
}

func snapshot(pct int, state jiofi.ChargeState) jiofi.StatusSnapshot {
	return jiofi.StatusSnapshot{
		PercentageRaw:  pct,
		PercentageText: strconv.Itoa(pct) + "%",
		ChargeState:    state,
	}
}

var noon = time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

func TestRefreshFiresAlertOncePerBand(t *testing.T) {
	td := newTestDaemon(t, nil, noon)
	td.fake.snapshots = []jiofi.StatusSnapshot{
		snapshot(15, jiofi.Discharging),
		snapshot(15, jiofi.Discharging),
		snapshot(50, jiofi.Discharging),
		snapshot(95, jiofi.Charging),
	}

	ch := td.hub.Subscribe()
	defer td.hub.Unsubscribe(ch)

	var actions []string
	for i := 0; i < 4; i++ {
		actions = append(actions, td.refresh(context.Background(), TriggerLoop).Action)
	}
	assert.Equal(t, []string{"fire-low", "none", "reset", "fire-high"}, actions)

	require.Len(t, td.alerts.alerts, 2)
	assert.Equal(t, "Battery Low - 15%", td.alerts.alerts[0].Title)
	assert.Equal(t, "Battery Full - 95%", td.alerts.alerts[1].Title)

	s, err := td.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notify.KindHigh, s.LastFired)

	var alertEvents int
	for len(ch) > 0 {
		if ev := <-ch; ev.Name == events.AlertFired {
			alertEvents++
		}
	}
	assert.Equal(t, 2, alertEvents)
	assert.Len(t, td.history.Records(), 4)
}

func TestRefreshQuietHours(t *testing.T) {
	raw := &config.RawFileConfig{QuietHours: &config.RawQuietHours{}}
	td := newTestDaemon(t, raw, time.Date(2024, 3, 1, 23, 0, 0, 0, time.Local))
	td.fake.snapshots = []jiofi.StatusSnapshot{snapshot(10, jiofi.Discharging)}

	rec := td.refresh(context.Background(), TriggerLoop)
	assert.Equal(t, "none", rec.Action)
	assert.Empty(t, td.alerts.alerts)
}

func TestRefreshFetchError(t *testing.T) {
	td := newTestDaemon(t, nil, noon)
	require.NoError(t, td.store.Save(context.Background(), notify.State{LastFired: notify.KindLow}))
	td.fake.fetchErr = &jiofi.NetworkError{Op: "GET", URL: "http://jiofi.local.html/st_dev.w.xml", Err: errors.New("connection refused")}

	rec := td.refresh(context.Background(), TriggerLoop)
	assert.Equal(t, jiofi.NotAvailableSnapshot(), rec.Snapshot)
	assert.Equal(t, jiofi.LevelUnknown, rec.Level)
	assert.Contains(t, rec.Error, "connection refused")
	assert.Empty(t, rec.Action)

	// An unreachable router says nothing about the battery.
	s, err := td.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notify.KindLow, s.LastFired)
}

func TestCheckMissedRefreshes(t *testing.T) {
	td := newTestDaemon(t, nil, noon)
	assert.False(t, td.checkMissedRefreshes(10*time.Minute))

	td.history.Add(types.StatusRecord{UpdatedAt: noon.Add(-5 * time.Minute)})
	assert.False(t, td.checkMissedRefreshes(10*time.Minute))

	td.history.Add(types.StatusRecord{UpdatedAt: noon.Add(-time.Hour)})
	assert.True(t, td.checkMissedRefreshes(10*time.Minute))
}

func serve(t *testing.T, d *Daemon, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	d.setupRoutes().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGetStatusUsesCache(t *testing.T) {
	td := newTestDaemon(t, nil, noon)
	td.fake.snapshots = []jiofi.StatusSnapshot{snapshot(64, jiofi.Charging)}

	w := serve(t, td.Daemon, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[types.StatusRecord](t, w)
	assert.Equal(t, 64, rec.Snapshot.PercentageRaw)
	assert.Equal(t, jiofi.LevelGood, rec.Level)
	assert.Equal(t, TriggerAPI, rec.Trigger)

	serve(t, td.Daemon, http.MethodGet, "/status", "")
	assert.Equal(t, 1, td.fake.fetchCount())

	serve(t, td.Daemon, http.MethodGet, "/status?refresh=1", "")
	assert.Equal(t, 2, td.fake.fetchCount())

	w = serve(t, td.Daemon, http.MethodPost, "/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, td.fake.fetchCount())
}

func TestGetStatusWithoutCache(t *testing.T) {
	td := newTestDaemon(t, &config.RawFileConfig{CacheTTLSeconds: ptr.To(0)}, noon)

	serve(t, td.Daemon, http.MethodGet, "/status", "")
	serve(t, td.Daemon, http.MethodGet, "/status", "")
	assert.Equal(t, 2, td.fake.fetchCount())
}

func TestGetHistory(t *testing.T) {
	td := newTestDaemon(t, nil, noon)
	td.history.Add(types.StatusRecord{UpdatedAt: noon.Add(-2 * time.Hour)})
	td.history.Add(types.StatusRecord{UpdatedAt: noon.Add(-30 * time.Minute)})
	td.history.Add(types.StatusRecord{UpdatedAt: noon.Add(-10 * time.Minute)})

	w := serve(t, td.Daemon, http.MethodGet, "/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.StatusRecord](t, w), 3)

	w = serve(t, td.Daemon, http.MethodGet, "/history?since=1h", "")
	require.Equal(t, http.StatusOK, w.Code)
	records := decode[[]types.StatusRecord](t, w)
	require.Len(t, records, 2)
	assert.True(t, records[0].UpdatedAt.Before(records[1].UpdatedAt))

	w = serve(t, td.Daemon, http.MethodGet, "/history?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostRestart(t *testing.T) {
	td := newTestDaemon(t, nil, noon)

	td.fake.restartRes = jiofi.RestartResult{Success: true, Message: "Device restart initiated successfully"}
	w := serve(t, td.Daemon, http.MethodPost, "/restart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, td.fake.restartRes, decode[jiofi.RestartResult](t, w))

	td.fake.restartRes = jiofi.RestartResult{}
	td.fake.restartErr = jiofi.ErrRestartInProgress
	w = serve(t, td.Daemon, http.MethodPost, "/restart", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	td.fake.restartErr = &jiofi.RestartError{Step: 2, Err: jiofi.ErrTokenNotFound}
	w = serve(t, td.Daemon, http.MethodPost, "/restart", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Failed: csrf_token2 not found", decode[string](t, w))
}

func TestPostRestartWhileRestarting(t *testing.T) {
	td := newTestDaemon(t, nil, noon)
	ch := td.hub.Subscribe()
	defer td.hub.Unsubscribe(ch)

	td.restartMu.Lock()
	w := serve(t, td.Daemon, http.MethodPost, "/restart", "")
	td.restartMu.Unlock()

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, td.fake.restartCount())
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %s", ev.Name)
	default:
	}
}

func TestRestartEventsArePaired(t *testing.T) {
	tests := []struct {
		name    string
		res     jiofi.RestartResult
		err     error
		success bool
	}{
		{name: "success", res: jiofi.RestartResult{Success: true, Message: "Device restart initiated successfully"}, success: true},
		{name: "device answered", res: jiofi.RestartResult{Message: "Device restart failed: HTTP 200"}},
		{name: "client busy", err: jiofi.ErrRestartInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := newTestDaemon(t, nil, noon)
			td.fake.restartRes = tt.res
			td.fake.restartErr = tt.err
			ch := td.hub.Subscribe()
			defer td.hub.Unsubscribe(ch)

			_, _ = td.restart(context.Background(), triggerUser)

			var names []string
			var finished events.RestartEvent
			for len(names) < 2 {
				select {
				case ev := <-ch:
					names = append(names, ev.Name)
					if ev.Name == events.RestartFinished {
						var err error
						finished, err = events.DecodeAs[events.RestartEvent](ev)
						require.NoError(t, err)
					}
				case <-time.After(time.Second):
					t.Fatalf("got events %v, want started and finished", names)
				}
			}
			assert.Equal(t, []string{events.RestartStarted, events.RestartFinished}, names)
			assert.Equal(t, tt.success, finished.Success)
			assert.Equal(t, triggerUser, finished.Trigger)
		})
	}
}

func TestNotificationEndpoints(t *testing.T) {
	td := newTestDaemon(t, nil, noon)
	require.NoError(t, td.store.Save(context.Background(), notify.State{LastFired: notify.KindHigh}))

	w := serve(t, td.Daemon, http.MethodGet, "/notification", "")
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[types.NotificationStatus](t, w)
	assert.Equal(t, "high", st.LastFired)
	assert.Equal(t, "disabled", st.QuietHours)
	assert.Equal(t, 29, st.LowMax)
	assert.Equal(t, 90, st.HighMin)
	assert.Equal(t, 2, st.Notifiers)

	w = serve(t, td.Daemon, http.MethodDelete, "/notification", "")
	require.Equal(t, http.StatusOK, w.Code)
	s, err := td.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notify.KindNone, s.LastFired)
}

func TestScheduleEndpoints(t *testing.T) {
	td := newTestDaemon(t, nil, noon)

	w := serve(t, td.Daemon, http.MethodGet, "/schedule", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[types.ScheduleStatus](t, w).Enabled)

	w = serve(t, td.Daemon, http.MethodPut, "/schedule", `{"cron": "every day"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, td.Daemon, http.MethodPut, "/schedule", `{"cron": "0 4 * * *"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	st := decode[types.ScheduleStatus](t, w)
	assert.True(t, st.Enabled)
	assert.Equal(t, "0 4 * * *", st.Cron)
	require.Len(t, st.NextRuns, 3)

	b, err := os.ReadFile(td.confPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"restartCron": "0 4 * * *"`)

	w = serve(t, td.Daemon, http.MethodPost, "/schedule/skip", "")
	require.Equal(t, http.StatusOK, w.Code)
	skipped := decode[types.ScheduleStatus](t, w)
	assert.Equal(t, st.NextRuns[1], skipped.NextRuns[0])

	w = serve(t, td.Daemon, http.MethodPost, "/schedule/postpone", `{"minutes": 30}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(t, td.Daemon, http.MethodPost, "/schedule/postpone", `{"minutes": 3000}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, td.Daemon, http.MethodPut, "/schedule", `{"cron": ""}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, decode[types.ScheduleStatus](t, w).Enabled)
}

func TestGetConfig(t *testing.T) {
	td := newTestDaemon(t, &config.RawFileConfig{Host: ptr.To("192.168.225.1"), Password: ptr.To("secret")}, noon)

	w := serve(t, td.Daemon, http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	assert.Equal(t, "192.168.225.1", decode[types.ConfigView](t, w).Host)
}

func TestReloadKeepsInjectedDevice(t *testing.T) {
	td := newTestDaemon(t, nil, noon)
	require.NoError(t, os.WriteFile(td.confPath, []byte(`{"restartCron": "0 3 * * *"}`), 0600))

	require.NoError(t, td.Reload())
	assert.Same(t, td.fake, td.dev())
	_, expr, running := td.scheduler.Status()
	assert.Equal(t, "0 3 * * *", expr)
	assert.True(t, running)
}
