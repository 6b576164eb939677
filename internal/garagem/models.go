package garagem

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a registered owner of vehicles.
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// Vehicle is a car or motorcycle owned by a user.
type Vehicle struct {
	ID           string
	UserID       string
	Brand        string
	Model        string
	Year         int
	LicensePlate string
	Color        string
	Fuel         string
	Mileage      int
	Transmission string
	Doors        int
	Observations string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Name is the label used in listings and reminder emails.
func (v *Vehicle) Name() string {
	if v.Model == "" {
		return v.Brand
	}
	return v.Brand + " " + v.Model
}

// MaintenanceKind says whether a maintenance is planned or already done.
type MaintenanceKind string

const (
	MaintenanceScheduled MaintenanceKind = "scheduled"
	MaintenanceCompleted MaintenanceKind = "completed"
)

// ParseMaintenanceKind validates a kind name.
func ParseMaintenanceKind(s string) (MaintenanceKind, error) {
	switch MaintenanceKind(s) {
	case MaintenanceScheduled, MaintenanceCompleted:
		return MaintenanceKind(s), nil
	}
	return "", &ValidationError{Field: "kind", Reason: "must be scheduled or completed"}
}

// MaintenanceItem is one line of a maintenance record.
type MaintenanceItem struct {
	Description string
	Cost        decimal.Decimal
}

// MaintenanceRecord is a scheduled or completed maintenance of a vehicle.
// DueDate only carries calendar significance; its time of day is ignored.
type MaintenanceRecord struct {
	ID          string
	UserID      string
	VehicleID   string
	VehicleName string
	Kind        MaintenanceKind
	DueDate     time.Time
	Title       string
	Items       []MaintenanceItem
	TotalCost   decimal.Decimal
	Notes       string
	CreatedAt   time.Time
}

// ItemsTotal sums the cost of every item.
func (m *MaintenanceRecord) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range m.Items {
		total = total.Add(it.Cost)
	}
	return total
}

// ReminderKind identifies one of the two reminders sent per maintenance.
type ReminderKind string

const (
	ReminderThreeDays ReminderKind = "three_days"
	ReminderDayOf     ReminderKind = "day_of"
)

// ReminderRecord tracks which reminders were already sent for a maintenance.
type ReminderRecord struct {
	MaintenanceID string    `json:"maintenance_id"`
	ThreeDaysSent bool      `json:"three_days_sent"`
	DayOfSent     bool      `json:"day_of_sent"`
	LastChecked   time.Time `json:"last_checked"`
}

// Sent reports the flag for the given kind.
func (r *ReminderRecord) Sent(kind ReminderKind) bool {
	switch kind {
	case ReminderThreeDays:
		return r.ThreeDaysSent
	case ReminderDayOf:
		return r.DayOfSent
	}
	return false
}

// MarkSent sets the flag for the given kind.
func (r *ReminderRecord) MarkSent(kind ReminderKind) {
	switch kind {
	case ReminderThreeDays:
		r.ThreeDaysSent = true
	case ReminderDayOf:
		r.DayOfSent = true
	}
}

// ExpenseCategory groups expenses in summaries.
type ExpenseCategory string

const (
	ExpenseMaintenance ExpenseCategory = "maintenance"
	ExpenseFuel        ExpenseCategory = "fuel"
	ExpenseEnergy      ExpenseCategory = "energy"
	ExpenseLabor       ExpenseCategory = "labor"
	ExpenseInsurance   ExpenseCategory = "insurance"
	ExpenseTax         ExpenseCategory = "tax"
	ExpenseOther       ExpenseCategory = "other"
)

// ExpenseCategories lists every category in display order.
var ExpenseCategories = []ExpenseCategory{
	ExpenseFuel,
	ExpenseEnergy,
	ExpenseMaintenance,
	ExpenseLabor,
	ExpenseInsurance,
	ExpenseTax,
	ExpenseOther,
}

// ParseExpenseCategory validates a category name.
func ParseExpenseCategory(s string) (ExpenseCategory, error) {
	for _, c := range ExpenseCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", &ValidationError{Field: "category", Reason: "unknown category " + s}
}

// Expense is money spent on a vehicle.
type Expense struct {
	ID          string
	UserID      string
	VehicleID   string
	VehicleName string
	Category    ExpenseCategory
	Subcategory string
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	Odometer    int
	Notes       string
	CreatedAt   time.Time
}

// CheckRun is the persisted outcome of one reminder evaluation cycle.
type CheckRun struct {
	ID         string
	Trigger    string
	StartedAt  time.Time
	FinishedAt time.Time
	Evaluated  int
	Sent       int
	Failed     int
	Status     string
	Error      string
}
