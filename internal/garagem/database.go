package garagem

import "context"

// RecordStore is the read side the reminder engine needs.
type RecordStore interface {
	// ListMaintenanceByUser returns every maintenance record owned by the
	// user, scheduled and completed alike.
	ListMaintenanceByUser(ctx context.Context, userID string) ([]*MaintenanceRecord, error)
}

// CheckRunStore persists evaluation cycle outcomes.
type CheckRunStore interface {
	CreateCheckRun(run *CheckRun) error
	// ListCheckRuns returns the most recent runs, newest first.
	ListCheckRuns(limit int) ([]*CheckRun, error)
}

// Database provides persistence for every garage record.
// Find* methods return (nil, nil) when nothing matches.
type Database interface {
	RecordStore
	CheckRunStore

	// User operations

	CreateUser(user *User) error
	FindUserByID(id string) (*User, error)
	FindUserByEmail(email string) (*User, error)

	// Vehicle operations

	CreateVehicle(vehicle *Vehicle) error
	UpdateVehicle(vehicle *Vehicle) error
	FindVehicleByID(id string) (*Vehicle, error)
	ListVehiclesByUser(userID string) ([]*Vehicle, error)
	// DeleteVehicle removes the vehicle together with its maintenance
	// records and expenses.
	DeleteVehicle(id string) error

	// Maintenance operations

	// CreateMaintenance stores the record and its items in one transaction.
	CreateMaintenance(record *MaintenanceRecord) error
	// UpdateMaintenance replaces the record and its items in one transaction.
	UpdateMaintenance(record *MaintenanceRecord) error
	FindMaintenanceByID(id string) (*MaintenanceRecord, error)
	DeleteMaintenance(id string) error

	// Expense operations

	CreateExpense(expense *Expense) error
	FindExpenseByID(id string) (*Expense, error)
	ListExpensesByUser(userID string) ([]*Expense, error)
	DeleteExpense(id string) error

	Close() error
}

// IdentityProvider exposes the logged-in user.
type IdentityProvider interface {
	// CurrentUser returns nil when nobody is logged in.
	CurrentUser(ctx context.Context) (*User, error)
}

// EmailDispatcher sends reminder emails.
type EmailDispatcher interface {
	// IsConfigured reports whether credentials are present. The engine
	// skips whole cycles when it is false.
	IsConfigured() bool
	// SendReminder returns nil only when the provider accepted the email.
	SendReminder(ctx context.Context, record *MaintenanceRecord, toEmail, toName string) error
}

// DedupLedger remembers which reminders were already sent.
type DedupLedger interface {
	// Get returns the stored entry, or a zero entry with both flags false
	// when the maintenance has never been evaluated.
	Get(maintenanceID string) (ReminderRecord, error)
	// Put overwrites the entry. It is durable once Put returns.
	Put(maintenanceID string, record ReminderRecord) error
	// ResetAll removes every entry.
	ResetAll() error
	// Count returns the number of stored entries.
	Count() (int, error)
	Close() error
}

// Recorder receives reminder metrics.
type Recorder interface {
	CheckFinished(trigger Trigger, result string, seconds float64)
	ReminderSent(kind ReminderKind)
	ReminderFailed(kind ReminderKind)
	SchedulerRunning(running bool)
}

// NopRecorder discards metrics.
type NopRecorder struct{}

func (NopRecorder) CheckFinished(Trigger, string, float64) {}
func (NopRecorder) ReminderSent(ReminderKind)              {}
func (NopRecorder) ReminderFailed(ReminderKind)            {}
func (NopRecorder) SchedulerRunning(bool)                  {}

// SecretStore keeps small credentials encrypted at rest.
type SecretStore interface {
	// Get returns "" with a nil error when the secret was never stored.
	Get(name string) (string, error)
	Put(name, value string) error
	IsConfigured() bool
}
