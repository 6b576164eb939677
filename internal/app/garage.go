package app

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"garagem/internal/garagem"
)

// MaintenanceInput carries maintenance fields as typed on the command line.
// Items use the form "description=cost".
type MaintenanceInput struct {
	VehicleID string
	Kind      string
	Date      string
	Title     string
	Items     []string
	TotalCost string
	Notes     string
}

// ExpenseInput carries expense fields as typed on the command line. An
// empty Date means today.
type ExpenseInput struct {
	VehicleID   string
	Category    string
	Subcategory string
	Description string
	Amount      string
	Date        string
	Odometer    int
	Notes       string
}

// AddVehicle registers a vehicle for the current user.
func (a *GarageApp) AddVehicle(ctx context.Context, v *garagem.Vehicle) (*garagem.Vehicle, error) {
	return a.service.AddVehicle(ctx, v)
}

// ListVehicles returns the current user's vehicles.
func (a *GarageApp) ListVehicles(ctx context.Context) ([]*garagem.Vehicle, error) {
	return a.service.ListVehicles(ctx)
}

// DeleteVehicle removes a vehicle with its records.
func (a *GarageApp) DeleteVehicle(ctx context.Context, id string) error {
	return a.service.DeleteVehicle(ctx, id)
}

// AddMaintenance parses in and stores a new record. Kind defaults to
// scheduled.
func (a *GarageApp) AddMaintenance(ctx context.Context, in MaintenanceInput) (*garagem.MaintenanceRecord, error) {
	if in.Kind == "" {
		in.Kind = string(garagem.MaintenanceScheduled)
	}
	m := &garagem.MaintenanceRecord{VehicleID: in.VehicleID}
	if err := a.applyMaintenance(m, in); err != nil {
		return nil, err
	}
	if in.Date == "" {
		return nil, &garagem.ValidationError{Field: "date", Reason: "required"}
	}
	return a.service.AddMaintenance(ctx, m)
}

// EditMaintenance changes the non-empty fields of in on record id. Items,
// when given, replace the existing ones.
func (a *GarageApp) EditMaintenance(ctx context.Context, id string, in MaintenanceInput) (*garagem.MaintenanceRecord, error) {
	m, err := a.service.GetMaintenance(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.VehicleID != "" {
		m.VehicleID = in.VehicleID
	}
	if err := a.applyMaintenance(m, in); err != nil {
		return nil, err
	}
	return a.service.UpdateMaintenance(ctx, m)
}

func (a *GarageApp) applyMaintenance(m *garagem.MaintenanceRecord, in MaintenanceInput) error {
	if in.Kind != "" {
		kind, err := garagem.ParseMaintenanceKind(in.Kind)
		if err != nil {
			return err
		}
		m.Kind = kind
	}
	if in.Date != "" {
		d, err := parseDate("date", in.Date)
		if err != nil {
			return err
		}
		m.DueDate = d.In(a.service.Location())
	}
	if in.Title != "" {
		m.Title = in.Title
	}
	if in.Notes != "" {
		m.Notes = in.Notes
	}
	if in.TotalCost != "" {
		cost, err := parseMoney("total_cost", in.TotalCost)
		if err != nil {
			return err
		}
		m.TotalCost = cost
	}
	if in.Items != nil {
		items, err := parseItems(in.Items)
		if err != nil {
			return err
		}
		m.Items = items
	}
	return nil
}

// CompleteMaintenance marks a record as done.
func (a *GarageApp) CompleteMaintenance(ctx context.Context, id string) (*garagem.MaintenanceRecord, error) {
	return a.service.CompleteMaintenance(ctx, id)
}

// DeleteMaintenance removes a record.
func (a *GarageApp) DeleteMaintenance(ctx context.Context, id string) error {
	return a.service.DeleteMaintenance(ctx, id)
}

// ListMaintenance returns records, optionally for one vehicle.
func (a *GarageApp) ListMaintenance(ctx context.Context, vehicleID string) ([]*garagem.MaintenanceRecord, error) {
	return a.service.ListMaintenance(ctx, vehicleID)
}

// UpcomingMaintenance returns scheduled records due within days.
func (a *GarageApp) UpcomingMaintenance(ctx context.Context, days int) ([]*garagem.MaintenanceRecord, error) {
	return a.service.UpcomingMaintenance(ctx, days)
}

// MaintenanceStats returns the dashboard counters.
func (a *GarageApp) MaintenanceStats(ctx context.Context) (*garagem.MaintenanceStats, error) {
	return a.service.MaintenanceStats(ctx)
}

// DaysUntil returns the calendar days from today to the record's due date.
func (a *GarageApp) DaysUntil(m *garagem.MaintenanceRecord) int {
	return garagem.DaysBetween(a.service.Today(), garagem.DateOf(m.DueDate))
}

// AddExpense parses in and stores a new expense.
func (a *GarageApp) AddExpense(ctx context.Context, in ExpenseInput) (*garagem.Expense, error) {
	category, err := garagem.ParseExpenseCategory(in.Category)
	if err != nil {
		return nil, err
	}
	amount, err := parseMoney("amount", in.Amount)
	if err != nil {
		return nil, err
	}
	date := a.service.Today()
	if in.Date != "" {
		if date, err = parseDate("date", in.Date); err != nil {
			return nil, err
		}
	}
	return a.service.AddExpense(ctx, &garagem.Expense{
		VehicleID:   in.VehicleID,
		Category:    category,
		Subcategory: in.Subcategory,
		Description: in.Description,
		Amount:      amount,
		Date:        date.In(a.service.Location()),
		Odometer:    in.Odometer,
		Notes:       in.Notes,
	})
}

// ListExpenses returns expenses, optionally for one vehicle.
func (a *GarageApp) ListExpenses(ctx context.Context, vehicleID string) ([]*garagem.Expense, error) {
	return a.service.ListExpenses(ctx, vehicleID)
}

// DeleteExpense removes an expense.
func (a *GarageApp) DeleteExpense(ctx context.Context, id string) error {
	return a.service.DeleteExpense(ctx, id)
}

// ExpenseSummary summarizes from..to. Empty bounds default to the current
// month.
func (a *GarageApp) ExpenseSummary(ctx context.Context, from, to string) (*garagem.ExpenseSummary, error) {
	first, last := garagem.MonthRange(a.service.Today())
	var err error
	if from != "" {
		if first, err = parseDate("from", from); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if last, err = parseDate("to", to); err != nil {
			return nil, err
		}
	}
	return a.service.ExpenseSummary(ctx, first, last)
}

func parseDate(field, s string) (garagem.Date, error) {
	d, err := garagem.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return garagem.Date{}, &garagem.ValidationError{Field: field, Reason: "expected YYYY-MM-DD"}
	}
	return d, nil
}

// parseMoney accepts "1234.56" and the Brazilian "1234,56".
func parseMoney(field, s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &garagem.ValidationError{Field: field, Reason: "not a number: " + s}
	}
	return d, nil
}

func parseItems(raw []string) ([]garagem.MaintenanceItem, error) {
	items := make([]garagem.MaintenanceItem, 0, len(raw))
	for _, r := range raw {
		i := strings.LastIndex(r, "=")
		if i < 0 {
			return nil, &garagem.ValidationError{Field: "items", Reason: "expected description=cost, got " + r}
		}
		cost, err := parseMoney("items", r[i+1:])
		if err != nil {
			return nil, err
		}
		items = append(items, garagem.MaintenanceItem{Description: strings.TrimSpace(r[:i]), Cost: cost})
	}
	return items, nil
}
