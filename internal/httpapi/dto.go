package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"garagem/internal/garagem"
)

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// SessionDTO describes the current session.
type SessionDTO struct {
	LoggedIn bool     `json:"logged_in"`
	User     *UserDTO `json:"user,omitempty"`
}

// LoginRequest starts a session.
type LoginRequest struct {
	Email string `json:"email"`
}

// VehicleDTO is used for both requests and responses.
type VehicleDTO struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	LicensePlate string `json:"license_plate"`
	Color        string `json:"color"`
	Fuel         string `json:"fuel"`
	Mileage      int    `json:"mileage"`
	Transmission string `json:"transmission"`
	Doors        int    `json:"doors"`
	Observations string `json:"observations"`
}

// ItemDTO is one line of a maintenance record.
type ItemDTO struct {
	Description string          `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
}

// MaintenanceDTO represents a maintenance record in API responses.
type MaintenanceDTO struct {
	ID           string          `json:"id"`
	VehicleID    string          `json:"vehicle_id"`
	VehicleName  string          `json:"vehicle_name"`
	Kind         string          `json:"kind"`
	Date         string          `json:"date"`
	DaysUntilDue int             `json:"days_until_due"`
	Title        string          `json:"title"`
	Items        []ItemDTO       `json:"items"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Notes        string          `json:"notes"`
	CreatedAt    string          `json:"created_at"`
}

// MaintenanceRequest creates or replaces a maintenance record. A record
// with items gets its total from them.
type MaintenanceRequest struct {
	VehicleID string          `json:"vehicle_id"`
	Kind      string          `json:"kind"`
	Date      string          `json:"date"`
	Title     string          `json:"title"`
	Items     []ItemDTO       `json:"items"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Notes     string          `json:"notes"`
}

// StatsDTO represents maintenance statistics.
type StatsDTO struct {
	Total     int             `json:"total"`
	ThisMonth int             `json:"this_month"`
	Upcoming  int             `json:"upcoming"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// ExpenseDTO is used for both requests and responses.
type ExpenseDTO struct {
	ID          string          `json:"id,omitempty"`
	VehicleID   string          `json:"vehicle_id"`
	VehicleName string          `json:"vehicle_name,omitempty"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Odometer    int             `json:"odometer"`
	Notes       string          `json:"notes"`
}

// SummaryDTO represents an expense summary with its period comparison.
type SummaryDTO struct {
	From             string                     `json:"from"`
	To               string                     `json:"to"`
	Total            decimal.Decimal            `json:"total"`
	Count            int                        `json:"count"`
	Average          decimal.Decimal            `json:"average"`
	ByCategory       map[string]decimal.Decimal `json:"by_category"`
	PreviousFrom     string                     `json:"previous_from"`
	PreviousTo       string                     `json:"previous_to"`
	PreviousTotal    decimal.Decimal            `json:"previous_total"`
	PercentageChange decimal.Decimal            `json:"percentage_change"`
}

// ReportDTO represents one evaluation cycle.
type ReportDTO struct {
	Trigger    string `json:"trigger"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	Result     string `json:"result"`
	Skipped    string `json:"skipped,omitempty"`
	Evaluated  int    `json:"evaluated"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
}

// ReminderStatusDTO is the reminder diagnostics payload.
type ReminderStatusDTO struct {
	IsRunning       bool       `json:"is_running"`
	EmailConfigured bool       `json:"email_configured"`
	LoggedIn        bool       `json:"logged_in"`
	LedgerEntries   int        `json:"ledger_entries"`
	LastCheck       string     `json:"last_check,omitempty"`
	LastReport      *ReportDTO `json:"last_report,omitempty"`
}

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toUserDTO(u *garagem.User) *UserDTO {
	return &UserDTO{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}

func toVehicleDTO(v *garagem.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:           v.ID,
		Name:         v.Name(),
		Brand:        v.Brand,
		Model:        v.Model,
		Year:         v.Year,
		LicensePlate: v.LicensePlate,
		Color:        v.Color,
		Fuel:         v.Fuel,
		Mileage:      v.Mileage,
		Transmission: v.Transmission,
		Doors:        v.Doors,
		Observations: v.Observations,
	}
}

func (d VehicleDTO) toVehicle() *garagem.Vehicle {
	return &garagem.Vehicle{
		ID:           d.ID,
		Brand:        d.Brand,
		Model:        d.Model,
		Year:         d.Year,
		LicensePlate: d.LicensePlate,
		Color:        d.Color,
		Fuel:         d.Fuel,
		Mileage:      d.Mileage,
		Transmission: d.Transmission,
		Doors:        d.Doors,
		Observations: d.Observations,
	}
}

func toMaintenanceDTO(m *garagem.MaintenanceRecord, today garagem.Date) MaintenanceDTO {
	items := make([]ItemDTO, len(m.Items))
	for i, it := range m.Items {
		items[i] = ItemDTO{Description: it.Description, Cost: it.Cost}
	}
	due := garagem.DateOf(m.DueDate)
	return MaintenanceDTO{
		ID:           m.ID,
		VehicleID:    m.VehicleID,
		VehicleName:  m.VehicleName,
		Kind:         string(m.Kind),
		Date:         due.String(),
		DaysUntilDue: garagem.DaysBetween(today, due),
		Title:        m.Title,
		Items:        items,
		TotalCost:    m.TotalCost,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
	}
}

func (r MaintenanceRequest) toRecord(id string, loc *time.Location) (*garagem.MaintenanceRecord, error) {
	due, err := parseDate("date", r.Date)
	if err != nil {
		return nil, err
	}
	m := &garagem.MaintenanceRecord{
		ID:        id,
		VehicleID: r.VehicleID,
		Kind:      garagem.MaintenanceKind(r.Kind),
		DueDate:   due.In(loc),
		Title:     r.Title,
		TotalCost: r.TotalCost,
		Notes:     r.Notes,
	}
	for _, it := range r.Items {
		m.Items = append(m.Items, garagem.MaintenanceItem{Description: it.Description, Cost: it.Cost})
	}
	return m, nil
}

func toExpenseDTO(e *garagem.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:          e.ID,
		VehicleID:   e.VehicleID,
		VehicleName: e.VehicleName,
		Category:    string(e.Category),
		Subcategory: e.Subcategory,
		Description: e.Description,
		Amount:      e.Amount,
		Date:        garagem.DateOf(e.Date).String(),
		Odometer:    e.Odometer,
		Notes:       e.Notes,
	}
}

func (d ExpenseDTO) toExpense(loc *time.Location) (*garagem.Expense, error) {
	date, err := parseDate("date", d.Date)
	if err != nil {
		return nil, err
	}
	return &garagem.Expense{
		VehicleID:   d.VehicleID,
		Category:    garagem.ExpenseCategory(d.Category),
		Subcategory: d.Subcategory,
		Description: d.Description,
		Amount:      d.Amount,
		Date:        date.In(loc),
		Odometer:    d.Odometer,
		Notes:       d.Notes,
	}, nil
}

func toSummaryDTO(s *garagem.ExpenseSummary) SummaryDTO {
	by := make(map[string]decimal.Decimal, len(s.ByCategory))
	for c, v := range s.ByCategory {
		by[string(c)] = v
	}
	return SummaryDTO{
		From:             s.From.String(),
		To:               s.To.String(),
		Total:            s.Total,
		Count:            s.Count,
		Average:          s.Average,
		ByCategory:       by,
		PreviousFrom:     s.Comparison.PreviousFrom.String(),
		PreviousTo:       s.Comparison.PreviousTo.String(),
		PreviousTotal:    s.Comparison.Previous,
		PercentageChange: s.Comparison.PercentageChange,
	}
}

func toReportDTO(r *garagem.EvaluationReport) *ReportDTO {
	if r == nil {
		return nil
	}
	dto := &ReportDTO{
		Trigger:    string(r.Trigger),
		StartedAt:  r.StartedAt.Format(time.RFC3339),
		FinishedAt: r.FinishedAt.Format(time.RFC3339),
		Result:     r.Result(),
		Skipped:    r.Skipped,
		Evaluated:  r.Evaluated,
		Sent:       r.Sent,
		Failed:     r.Failed,
	}
	if r.Err != nil {
		dto.Error = r.Err.Error()
	}
	return dto
}

func toRunDTO(run *garagem.CheckRun) ReportDTO {
	return ReportDTO{
		Trigger:    run.Trigger,
		StartedAt:  run.StartedAt.Format(time.RFC3339),
		FinishedAt: run.FinishedAt.Format(time.RFC3339),
		Result:     run.Status,
		Evaluated:  run.Evaluated,
		Sent:       run.Sent,
		Failed:     run.Failed,
		Error:      run.Error,
	}
}

func parseDate(field, s string) (garagem.Date, error) {
	d, err := garagem.ParseDate(s)
	if err != nil {
		return garagem.Date{}, &garagem.ValidationError{Field: field, Reason: "expected YYYY-MM-DD"}
	}
	return d, nil
}
