package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"garagem/internal/garagem"
	"garagem/internal/identity"
)

// Health reports that the process is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SESSION
// =============================================================================

// GetSession returns the logged-in user, if any.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.CurrentUser(r.Context())
	if errors.Is(err, garagem.ErrNotLoggedIn) {
		writeJSON(w, http.StatusOK, SessionDTO{})
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionDTO{LoggedIn: true, User: toUserDTO(user)})
}

// Login starts a session and the reminder scheduler.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.sessions.Login(req.Email)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.scheduler.Start(r.Context())
	writeJSON(w, http.StatusOK, SessionDTO{LoggedIn: true, User: toUserDTO(user)})
}

// Logout stops the reminder scheduler and ends the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()
	if err := h.sessions.Logout(); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REMINDERS
// =============================================================================

// ReminderStatus returns scheduler and ledger diagnostics.
func (h *Handler) ReminderStatus(w http.ResponseWriter, r *http.Request) {
	st := h.scheduler.Status()
	dto := ReminderStatusDTO{
		IsRunning:       st.IsRunning,
		EmailConfigured: h.dispatcher.IsConfigured(),
		LastReport:      toReportDTO(st.LastReport),
	}
	if !st.LastCheck.IsZero() {
		dto.LastCheck = st.LastCheck.Format(time.RFC3339)
	}
	if user, err := h.service.CurrentUser(r.Context()); err == nil && user != nil {
		dto.LoggedIn = true
	}
	n, err := h.ledger.Count()
	if err != nil {
		h.fail(w, err)
		return
	}
	dto.LedgerEntries = n
	writeJSON(w, http.StatusOK, dto)
}

// CheckReminders runs one evaluation cycle and returns its report.
func (h *Handler) CheckReminders(w http.ResponseWriter, r *http.Request) {
	report := h.scheduler.CheckNow(r.Context())
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// ResetReminders forgets every sent reminder.
func (h *Handler) ResetReminders(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ResetLedger(); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestReminder sends a sample reminder to the current user.
func (h *Handler) TestReminder(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.SendTestReminder(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

// ReminderHistory lists recent evaluation cycles.
func (h *Handler) ReminderHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		h.fail(w, err)
		return
	}
	runs, err := h.service.GetHistory(limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	dtos := make([]ReportDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// VEHICLES
// =============================================================================

// ListVehicles returns the current user's vehicles.
func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.service.ListVehicles(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	dtos := make([]VehicleDTO, len(vehicles))
	for i, v := range vehicles {
		dtos[i] = toVehicleDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateVehicle registers a vehicle.
func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req VehicleDTO
	if !decode(w, r, &req) {
		return
	}
	v, err := h.service.AddVehicle(r.Context(), req.toVehicle())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVehicleDTO(v))
}

// DeleteVehicle removes a vehicle and everything recorded for it.
func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteVehicle(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// ListMaintenance returns maintenance records, optionally for one vehicle.
func (h *Handler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListMaintenance(r.Context(), r.URL.Query().Get("vehicle_id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.maintenanceDTOs(records))
}

// CreateMaintenance stores a maintenance record.
func (h *Handler) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var req MaintenanceRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := req.toRecord("", h.service.Location())
	if err != nil {
		h.fail(w, err)
		return
	}
	m, err = h.service.AddMaintenance(r.Context(), m)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMaintenanceDTO(m, h.service.Today()))
}

// UpdateMaintenance replaces a maintenance record.
func (h *Handler) UpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	var req MaintenanceRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := req.toRecord(chi.URLParam(r, "id"), h.service.Location())
	if err != nil {
		h.fail(w, err)
		return
	}
	m, err = h.service.UpdateMaintenance(r.Context(), m)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMaintenanceDTO(m, h.service.Today()))
}

// CompleteMaintenance marks a record as done.
func (h *Handler) CompleteMaintenance(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.CompleteMaintenance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMaintenanceDTO(m, h.service.Today()))
}

// DeleteMaintenance removes a record.
func (h *Handler) DeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMaintenance(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpcomingMaintenance returns scheduled records due in the next ?days
// days (default 30).
func (h *Handler) UpcomingMaintenance(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 30)
	if err != nil {
		h.fail(w, err)
		return
	}
	records, err := h.service.UpcomingMaintenance(r.Context(), days)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.maintenanceDTOs(records))
}

// MaintenanceStats returns counters for the dashboard.
func (h *Handler) MaintenanceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.MaintenanceStats(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsDTO{
		Total:     stats.Total,
		ThisMonth: stats.ThisMonth,
		Upcoming:  stats.Upcoming,
		TotalCost: stats.TotalCost,
	})
}

func (h *Handler) maintenanceDTOs(records []*garagem.MaintenanceRecord) []MaintenanceDTO {
	today := h.service.Today()
	dtos := make([]MaintenanceDTO, len(records))
	for i, m := range records {
		dtos[i] = toMaintenanceDTO(m, today)
	}
	return dtos
}

// =============================================================================
// EXPENSES
// =============================================================================

// ListExpenses returns expenses, optionally for one vehicle.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.service.ListExpenses(r.Context(), r.URL.Query().Get("vehicle_id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateExpense stores an expense.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseDTO
	if !decode(w, r, &req) {
		return
	}
	e, err := req.toExpense(h.service.Location())
	if err != nil {
		h.fail(w, err)
		return
	}
	e, err = h.service.AddExpense(r.Context(), e)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(e))
}

// DeleteExpense removes an expense.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExpenseSummary summarizes ?from..?to, defaulting to the current month.
func (h *Handler) ExpenseSummary(w http.ResponseWriter, r *http.Request) {
	from, to := garagem.MonthRange(h.service.Today())
	var err error
	if s := r.URL.Query().Get("from"); s != "" {
		if from, err = parseDate("from", s); err != nil {
			h.fail(w, err)
			return
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if to, err = parseDate("to", s); err != nil {
			h.fail(w, err)
			return
		}
	}
	summary, err := h.service.ExpenseSummary(r.Context(), from, to)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps service errors to HTTP answers.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var verr *garagem.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error(), nil)
	case errors.Is(err, garagem.ErrNotLoggedIn):
		writeError(w, http.StatusUnauthorized, "not logged in", nil)
	case errors.Is(err, garagem.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not allowed", nil)
	case errors.Is(err, garagem.ErrNotFound), errors.Is(err, identity.ErrUnknownEmail):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, garagem.ErrEmailTaken), errors.Is(err, garagem.ErrInvalidKindTransition):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, garagem.ErrEmailNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "email is not configured", nil)
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &garagem.ValidationError{Field: key, Reason: "must be an integer"}
	}
	return n, nil
}
