package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"garagem/internal/database/migrations"
	"garagem/internal/garagem"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const dateLayout = "2006-01-02"

// SQLiteDatabase implements the garagem.Database interface using SQLite.
type SQLiteDatabase struct {
	db       *sql.DB
	path     string
	location *time.Location
}

// NewSQLiteDatabase opens the database at path and migrates it to the
// latest schema. path can be a file path or ":memory:". Dates without a
// time of day are loaded as midnight in loc.
func NewSQLiteDatabase(path string, loc *time.Location) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return NewSQLiteDatabaseFromDB(db, path, loc), nil
}

// NewSQLiteDatabaseFromDB wraps an existing, already migrated connection.
func NewSQLiteDatabaseFromDB(db *sql.DB, path string, loc *time.Location) *SQLiteDatabase {
	if loc == nil {
		loc = time.Local
	}
	return &SQLiteDatabase{db: db, path: path, location: loc}
}

// OpenConnection opens and configures a SQLite database connection.
// In-memory databases are limited to one connection, since every new
// connection would otherwise see an empty database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

// CheckMigrations reports whether the schema matches this binary.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// User operations

func (s *SQLiteDatabase) CreateUser(user *garagem.User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, display_name, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, user.DisplayName, user.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return garagem.ErrEmailTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindUserByID(id string) (*garagem.User, error) {
	return s.findUser(`SELECT id, email, display_name, created_at FROM users WHERE id = ?`, id)
}

func (s *SQLiteDatabase) FindUserByEmail(email string) (*garagem.User, error) {
	return s.findUser(`SELECT id, email, display_name, created_at FROM users WHERE email = ?`, strings.ToLower(email))
}

func (s *SQLiteDatabase) findUser(query string, arg string) (*garagem.User, error) {
	var u garagem.User
	err := s.db.QueryRow(query, arg).Scan(&u.ID, &u.Email, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return &u, nil
}

// Vehicle operations

const vehicleColumns = `id, user_id, brand, model, year, license_plate, color, fuel,
	mileage, transmission, doors, observations, created_at, updated_at`

func (s *SQLiteDatabase) CreateVehicle(v *garagem.Vehicle) error {
	_, err := s.db.Exec(
		`INSERT INTO vehicles (`+vehicleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.UserID, v.Brand, v.Model, v.Year, v.LicensePlate, v.Color, v.Fuel,
		v.Mileage, v.Transmission, v.Doors, v.Observations, v.CreatedAt.UTC(), v.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting vehicle: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) UpdateVehicle(v *garagem.Vehicle) error {
	_, err := s.db.Exec(
		`UPDATE vehicles SET brand = ?, model = ?, year = ?, license_plate = ?, color = ?, fuel = ?,
			mileage = ?, transmission = ?, doors = ?, observations = ?, updated_at = ?
		WHERE id = ?`,
		v.Brand, v.Model, v.Year, v.LicensePlate, v.Color, v.Fuel,
		v.Mileage, v.Transmission, v.Doors, v.Observations, v.UpdatedAt.UTC(), v.ID,
	)
	if err != nil {
		return fmt.Errorf("updating vehicle: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindVehicleByID(id string) (*garagem.Vehicle, error) {
	row := s.db.QueryRow(`SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id)
	v, err := scanVehicle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding vehicle: %w", err)
	}
	return v, nil
}

func (s *SQLiteDatabase) ListVehiclesByUser(userID string) ([]*garagem.Vehicle, error) {
	rows, err := s.db.Query(`SELECT `+vehicleColumns+` FROM vehicles WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []*garagem.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// DeleteVehicle relies on ON DELETE CASCADE for maintenances and expenses.
func (s *SQLiteDatabase) DeleteVehicle(id string) error {
	if _, err := s.db.Exec(`DELETE FROM vehicles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting vehicle: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVehicle(sc scanner) (*garagem.Vehicle, error) {
	var v garagem.Vehicle
	err := sc.Scan(&v.ID, &v.UserID, &v.Brand, &v.Model, &v.Year, &v.LicensePlate, &v.Color, &v.Fuel,
		&v.Mileage, &v.Transmission, &v.Doors, &v.Observations, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Maintenance operations

const maintenanceSelect = `SELECT m.id, m.user_id, m.vehicle_id, v.brand, v.model, m.kind, m.due_date,
	m.title, m.total_cost, m.notes, m.created_at
	FROM maintenances m JOIN vehicles v ON v.id = m.vehicle_id`

func (s *SQLiteDatabase) CreateMaintenance(m *garagem.MaintenanceRecord) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO maintenances (id, user_id, vehicle_id, kind, due_date, title, total_cost, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.UserID, m.VehicleID, string(m.Kind), garagem.DateOf(m.DueDate).String(),
			m.Title, m.TotalCost.String(), m.Notes, m.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting maintenance: %w", err)
		}
		return insertItems(tx, m)
	})
}

func (s *SQLiteDatabase) UpdateMaintenance(m *garagem.MaintenanceRecord) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`UPDATE maintenances SET vehicle_id = ?, kind = ?, due_date = ?, title = ?, total_cost = ?, notes = ?
			WHERE id = ?`,
			m.VehicleID, string(m.Kind), garagem.DateOf(m.DueDate).String(),
			m.Title, m.TotalCost.String(), m.Notes, m.ID,
		)
		if err != nil {
			return fmt.Errorf("updating maintenance: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM maintenance_items WHERE maintenance_id = ?`, m.ID); err != nil {
			return fmt.Errorf("clearing maintenance items: %w", err)
		}
		return insertItems(tx, m)
	})
}

func insertItems(tx *sql.Tx, m *garagem.MaintenanceRecord) error {
	for i, it := range m.Items {
		_, err := tx.Exec(
			`INSERT INTO maintenance_items (maintenance_id, position, description, cost) VALUES (?, ?, ?, ?)`,
			m.ID, i, it.Description, it.Cost.String(),
		)
		if err != nil {
			return fmt.Errorf("inserting maintenance item: %w", err)
		}
	}
	return nil
}

func (s *SQLiteDatabase) FindMaintenanceByID(id string) (*garagem.MaintenanceRecord, error) {
	rows, err := s.db.Query(maintenanceSelect+` WHERE m.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("finding maintenance: %w", err)
	}
	records, err := s.collectMaintenances(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil // Not found
	}
	return records[0], nil
}

// ListMaintenanceByUser returns every record of the user ordered by due date.
func (s *SQLiteDatabase) ListMaintenanceByUser(ctx context.Context, userID string) ([]*garagem.MaintenanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, maintenanceSelect+` WHERE m.user_id = ? ORDER BY m.due_date, m.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing maintenances: %w", err)
	}
	return s.collectMaintenances(rows)
}

func (s *SQLiteDatabase) DeleteMaintenance(id string) error {
	if _, err := s.db.Exec(`DELETE FROM maintenances WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting maintenance: %w", err)
	}
	return nil
}

// collectMaintenances drains rows, then loads the items of every record.
// Items are fetched after rows is closed so an in-memory database with a
// single connection does not deadlock.
func (s *SQLiteDatabase) collectMaintenances(rows *sql.Rows) ([]*garagem.MaintenanceRecord, error) {
	var records []*garagem.MaintenanceRecord
	byID := make(map[string]*garagem.MaintenanceRecord)

	for rows.Next() {
		var (
			m            garagem.MaintenanceRecord
			brand, model string
			kind, due    string
			total        string
		)
		err := rows.Scan(&m.ID, &m.UserID, &m.VehicleID, &brand, &model, &kind, &due,
			&m.Title, &total, &m.Notes, &m.CreatedAt)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning maintenance: %w", err)
		}
		m.VehicleName = (&garagem.Vehicle{Brand: brand, Model: model}).Name()
		m.Kind = garagem.MaintenanceKind(kind)
		if m.DueDate, err = s.parseDate(due); err != nil {
			rows.Close()
			return nil, fmt.Errorf("maintenance %s: %w", m.ID, err)
		}
		if m.TotalCost, err = decimal.NewFromString(total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("maintenance %s total cost: %w", m.ID, err)
		}
		records = append(records, &m)
		byID[m.ID] = &m
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating maintenances: %w", err)
	}
	rows.Close()

	if len(records) == 0 {
		return records, nil
	}
	if err := s.loadItems(byID); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *SQLiteDatabase) loadItems(byID map[string]*garagem.MaintenanceRecord) error {
	ids := make([]any, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.db.Query(
		`SELECT maintenance_id, description, cost FROM maintenance_items
		WHERE maintenance_id IN (`+placeholders+`) ORDER BY maintenance_id, position`, ids...)
	if err != nil {
		return fmt.Errorf("loading maintenance items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, desc, cost string
		if err := rows.Scan(&id, &desc, &cost); err != nil {
			return fmt.Errorf("scanning maintenance item: %w", err)
		}
		amount, err := decimal.NewFromString(cost)
		if err != nil {
			return fmt.Errorf("maintenance %s item cost: %w", id, err)
		}
		m := byID[id]
		m.Items = append(m.Items, garagem.MaintenanceItem{Description: desc, Cost: amount})
	}
	return rows.Err()
}

// Expense operations

const expenseSelect = `SELECT e.id, e.user_id, e.vehicle_id, v.brand, v.model, e.category, e.subcategory,
	e.description, e.amount, e.date, e.odometer, e.notes, e.created_at
	FROM expenses e JOIN vehicles v ON v.id = e.vehicle_id`

func (s *SQLiteDatabase) CreateExpense(e *garagem.Expense) error {
	_, err := s.db.Exec(
		`INSERT INTO expenses (id, user_id, vehicle_id, category, subcategory, description, amount, date, odometer, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.VehicleID, string(e.Category), e.Subcategory, e.Description,
		e.Amount.String(), garagem.DateOf(e.Date).String(), e.Odometer, e.Notes, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting expense: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindExpenseByID(id string) (*garagem.Expense, error) {
	e, err := s.scanExpense(s.db.QueryRow(expenseSelect+` WHERE e.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding expense: %w", err)
	}
	return e, nil
}

// ListExpensesByUser returns the user's expenses, newest first.
func (s *SQLiteDatabase) ListExpensesByUser(userID string) ([]*garagem.Expense, error) {
	rows, err := s.db.Query(expenseSelect+` WHERE e.user_id = ? ORDER BY e.date DESC, e.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*garagem.Expense
	for rows.Next() {
		e, err := s.scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *SQLiteDatabase) DeleteExpense(id string) error {
	if _, err := s.db.Exec(`DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting expense: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) scanExpense(sc scanner) (*garagem.Expense, error) {
	var (
		e                      garagem.Expense
		brand, model, category string
		amount, date           string
	)
	err := sc.Scan(&e.ID, &e.UserID, &e.VehicleID, &brand, &model, &category, &e.Subcategory,
		&e.Description, &amount, &date, &e.Odometer, &e.Notes, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.VehicleName = (&garagem.Vehicle{Brand: brand, Model: model}).Name()
	e.Category = garagem.ExpenseCategory(category)
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("expense %s amount: %w", e.ID, err)
	}
	if e.Date, err = s.parseDate(date); err != nil {
		return nil, fmt.Errorf("expense %s: %w", e.ID, err)
	}
	return &e, nil
}

// Check run operations

func (s *SQLiteDatabase) CreateCheckRun(run *garagem.CheckRun) error {
	_, err := s.db.Exec(
		`INSERT INTO check_runs (id, source, started_at, finished_at, evaluated, sent, failed, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Trigger, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Evaluated, run.Sent, run.Failed, run.Status, run.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting check run: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListCheckRuns(limit int) ([]*garagem.CheckRun, error) {
	rows, err := s.db.Query(
		`SELECT id, source, started_at, finished_at, evaluated, sent, failed, status, error
		FROM check_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing check runs: %w", err)
	}
	defer rows.Close()

	var runs []*garagem.CheckRun
	for rows.Next() {
		var r garagem.CheckRun
		if err := rows.Scan(&r.ID, &r.Trigger, &r.StartedAt, &r.FinishedAt,
			&r.Evaluated, &r.Sent, &r.Failed, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning check run: %w", err)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// helpers

func (s *SQLiteDatabase) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) parseDate(v string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, v, s.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", v, err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Compile-time check that SQLiteDatabase implements garagem.Database interface
var _ garagem.Database = (*SQLiteDatabase)(nil)
