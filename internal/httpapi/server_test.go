package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garagem/internal/garagem"
	"garagem/internal/identity"
	"garagem/internal/testutil"
)

type testEnv struct {
	router     http.Handler
	service    *garagem.GarageService
	scheduler  *garagem.Scheduler
	dispatcher *testutil.FakeDispatcher
	ledger     garagem.DedupLedger
	timers     *testutil.ManualTimers
}

// newTestEnv wires the API over a migrated in-memory database. The clock
// reads 2025-06-07 10:30 UTC and ana@example.com is registered but not
// logged in.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDatabase(t)
	logger := garagem.NewNopLogger()
	clock := testutil.FixedClock()
	sessions := identity.NewSessionProvider(filepath.Join(t.TempDir(), "session.toml"), db, logger)
	svc := garagem.NewGarageService(db, sessions, logger, clock, testutil.NewStubIDGenerator(), time.UTC)
	dispatcher := testutil.NewFakeDispatcher()
	ledger := testutil.NewTestLedger()
	engine := garagem.NewReminderEngine(db, sessions, dispatcher, ledger, clock, logger,
		garagem.WithLocation(time.UTC),
		garagem.WithCheckRuns(db, testutil.NewStubIDGenerator()))
	timers := testutil.NewManualTimers()
	scheduler := garagem.NewScheduler(engine, timers, clock, logger, nil, garagem.SchedulerOptions{})
	t.Cleanup(func() {
		scheduler.Stop()
		scheduler.Wait()
	})

	_, err := svc.RegisterUser("ana@example.com", "Ana")
	require.NoError(t, err)

	return &testEnv{
		router: NewRouter(Options{
			Service:    svc,
			Engine:     engine,
			Scheduler:  scheduler,
			Sessions:   sessions,
			Dispatcher: dispatcher,
			Ledger:     ledger,
			Logger:     logger,
		}),
		service:    svc,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		ledger:     ledger,
		timers:     timers,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/session", LoginRequest{Email: "ana@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (e *testEnv) addVehicle(t *testing.T) VehicleDTO {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/vehicles", VehicleDTO{Brand: "Fiat", Model: "Uno", Year: 2012})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var v VehicleDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/health", nil)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "garagem_api_requests_total")
}

func TestSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[SessionDTO](t, rec).LoggedIn)

	rec = env.do(t, http.MethodPost, "/api/session", LoginRequest{Email: "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.scheduler.Status().IsRunning)

	env.login(t)
	assert.True(t, env.scheduler.Status().IsRunning, "login starts the scheduler")

	rec = env.do(t, http.MethodGet, "/api/session", nil)
	s := decodeBody[SessionDTO](t, rec)
	assert.True(t, s.LoggedIn)
	require.NotNil(t, s.User)
	assert.Equal(t, "ana@example.com", s.User.Email)

	rec = env.do(t, http.MethodDelete, "/api/session", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, env.scheduler.Status().IsRunning, "logout stops the scheduler")
}

func TestRequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/vehicles", "/api/maintenances", "/api/expenses", "/api/maintenances/stats"} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestVehicles(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	v := env.addVehicle(t)
	assert.Equal(t, "Fiat Uno", v.Name)

	rec := env.do(t, http.MethodGet, "/api/vehicles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]VehicleDTO](t, rec), 1)

	rec = env.do(t, http.MethodPost, "/api/vehicles", VehicleDTO{Model: "sem marca"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/vehicles/"+v.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/vehicles/"+v.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMaintenanceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	v := env.addVehicle(t)

	rec := env.do(t, http.MethodPost, "/api/maintenances", MaintenanceRequest{
		VehicleID: v.ID,
		Kind:      "scheduled",
		Date:      "2025-06-10",
		Title:     "Revisão",
		Items: []ItemDTO{
			{Description: "Óleo", Cost: decimal.RequireFromString("120.50")},
			{Description: "Filtro", Cost: decimal.RequireFromString("30")},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decodeBody[MaintenanceDTO](t, rec)
	assert.Equal(t, "2025-06-10", m.Date)
	assert.Equal(t, 3, m.DaysUntilDue)
	assert.True(t, m.TotalCost.Equal(decimal.RequireFromString("150.5")))

	rec = env.do(t, http.MethodGet, "/api/maintenances/upcoming?days=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]MaintenanceDTO](t, rec), 1)

	rec = env.do(t, http.MethodPost, "/api/maintenances/"+m.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decodeBody[MaintenanceDTO](t, rec).Kind)

	rec = env.do(t, http.MethodPut, "/api/maintenances/"+m.ID, MaintenanceRequest{
		VehicleID: v.ID, Kind: "scheduled", Date: "2025-06-10", Title: "Revisão",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/maintenances/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[StatsDTO](t, rec)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 0, stats.Upcoming)

	rec = env.do(t, http.MethodDelete, "/api/maintenances/"+m.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMaintenanceBadDate(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	v := env.addVehicle(t)

	rec := env.do(t, http.MethodPost, "/api/maintenances", MaintenanceRequest{
		VehicleID: v.ID, Kind: "scheduled", Date: "10/06/2025", Title: "Revisão",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExpenses(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	v := env.addVehicle(t)

	for _, e := range []ExpenseDTO{
		{VehicleID: v.ID, Category: "fuel", Amount: decimal.NewFromInt(200), Date: "2025-06-02"},
		{VehicleID: v.ID, Category: "tax", Amount: decimal.NewFromInt(100), Date: "2025-05-15"},
	} {
		rec := env.do(t, http.MethodPost, "/api/expenses", e)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/api/expenses/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	s := decodeBody[SummaryDTO](t, rec)
	assert.Equal(t, "2025-06-01", s.From)
	assert.Equal(t, "2025-06-30", s.To)
	assert.True(t, s.Total.Equal(decimal.NewFromInt(200)))
	assert.True(t, s.PreviousTotal.Equal(decimal.NewFromInt(100)))
	assert.True(t, s.PercentageChange.Equal(decimal.NewFromInt(100)))

	rec = env.do(t, http.MethodGet, "/api/expenses/summary?from=2025-06-30&to=2025-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/expenses", ExpenseDTO{VehicleID: v.ID, Category: "comida", Amount: decimal.NewFromInt(1), Date: "2025-06-02"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/expenses?vehicle_id="+v.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]ExpenseDTO](t, rec)
	require.Len(t, list, 2)

	rec = env.do(t, http.MethodDelete, "/api/expenses/"+list[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestReminders(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.scheduler.Wait()
	v := env.addVehicle(t)

	rec := env.do(t, http.MethodPost, "/api/maintenances", MaintenanceRequest{
		VehicleID: v.ID, Kind: "scheduled", Date: "2025-06-10", Title: "Revisão",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/reminders/check", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[ReportDTO](t, rec)
	assert.Equal(t, "ok", report.Result)
	assert.Equal(t, 1, report.Sent)
	assert.Len(t, env.dispatcher.Sent(), 1)

	// Checking again the same day sends nothing new.
	rec = env.do(t, http.MethodPost, "/api/reminders/check", nil)
	assert.Equal(t, 0, decodeBody[ReportDTO](t, rec).Sent)

	rec = env.do(t, http.MethodGet, "/api/reminders/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody[ReminderStatusDTO](t, rec)
	assert.True(t, st.IsRunning)
	assert.True(t, st.EmailConfigured)
	assert.True(t, st.LoggedIn)
	assert.Equal(t, 1, st.LedgerEntries)
	require.NotNil(t, st.LastReport)

	rec = env.do(t, http.MethodGet, "/api/reminders/history?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ReportDTO](t, rec), 2)

	rec = env.do(t, http.MethodPost, "/api/reminders/reset", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	n, err := env.ledger.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	rec = env.do(t, http.MethodPost, "/api/reminders/test", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.dispatcher.Sent(), 2)
}

func TestTestReminderNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.dispatcher.SetConfigured(false)

	rec := env.do(t, http.MethodPost, "/api/reminders/test", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInvalidJSON(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/session", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
