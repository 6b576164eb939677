package garagem

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// MaintenanceStats summarizes the current user's maintenance records.
type MaintenanceStats struct {
	Total     int
	ThisMonth int
	Upcoming  int
	TotalCost decimal.Decimal
}

// AddMaintenance stores a new maintenance record for one of the current
// user's vehicles.
func (s *GarageService) AddMaintenance(ctx context.Context, m *MaintenanceRecord) (*MaintenanceRecord, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.ownedVehicle(user, m.VehicleID)
	if err != nil {
		return nil, err
	}
	if err := s.normalizeMaintenance(m); err != nil {
		return nil, err
	}

	m.ID = s.idgen.New()
	m.UserID = user.ID
	m.VehicleName = vehicle.Name()
	m.CreatedAt = s.clock.Now()

	if err := s.database.CreateMaintenance(m); err != nil {
		return nil, fmt.Errorf("creating maintenance: %w", err)
	}
	s.logger.Info("maintenance added", "maintenance", m.ID, "kind", m.Kind, "due", DateOf(m.DueDate).String())
	s.afterSave(ctx, m)
	return m, nil
}

// UpdateMaintenance replaces a record with m. A completed record can never
// become scheduled again.
func (s *GarageService) UpdateMaintenance(ctx context.Context, m *MaintenanceRecord) (*MaintenanceRecord, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.ownedMaintenance(user, m.ID)
	if err != nil {
		return nil, err
	}
	if existing.Kind == MaintenanceCompleted && m.Kind == MaintenanceScheduled {
		return nil, ErrInvalidKindTransition
	}
	vehicle, err := s.ownedVehicle(user, m.VehicleID)
	if err != nil {
		return nil, err
	}
	if err := s.normalizeMaintenance(m); err != nil {
		return nil, err
	}

	m.UserID = existing.UserID
	m.CreatedAt = existing.CreatedAt
	m.VehicleName = vehicle.Name()

	if err := s.database.UpdateMaintenance(m); err != nil {
		return nil, fmt.Errorf("updating maintenance: %w", err)
	}
	s.logger.Info("maintenance updated", "maintenance", m.ID, "kind", m.Kind)
	s.afterSave(ctx, m)
	return m, nil
}

// CompleteMaintenance marks a scheduled record as completed. Completing a
// completed record is a no-op.
func (s *GarageService) CompleteMaintenance(ctx context.Context, id string) (*MaintenanceRecord, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.ownedMaintenance(user, id)
	if err != nil {
		return nil, err
	}
	if m.Kind == MaintenanceCompleted {
		return m, nil
	}

	m.Kind = MaintenanceCompleted
	if err := s.database.UpdateMaintenance(m); err != nil {
		return nil, fmt.Errorf("completing maintenance: %w", err)
	}
	s.logger.Info("maintenance completed", "maintenance", m.ID)
	return m, nil
}

// DeleteMaintenance removes a record. Its reminder ledger entry is left in
// place; orphaned entries are harmless.
func (s *GarageService) DeleteMaintenance(ctx context.Context, id string) error {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if _, err := s.ownedMaintenance(user, id); err != nil {
		return err
	}
	if err := s.database.DeleteMaintenance(id); err != nil {
		return fmt.Errorf("deleting maintenance: %w", err)
	}
	s.logger.Info("maintenance deleted", "maintenance", id)
	return nil
}

// GetMaintenance returns one of the current user's records.
func (s *GarageService) GetMaintenance(ctx context.Context, id string) (*MaintenanceRecord, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.ownedMaintenance(user, id)
}

// ListMaintenance returns the current user's records, latest due date first.
// A non-empty vehicleID restricts the list to that vehicle.
func (s *GarageService) ListMaintenance(ctx context.Context, vehicleID string) ([]*MaintenanceRecord, error) {
	records, err := s.userMaintenance(ctx)
	if err != nil {
		return nil, err
	}

	out := records[:0]
	for _, m := range records {
		if vehicleID == "" || m.VehicleID == vehicleID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.After(out[j].DueDate)
	})
	return out, nil
}

// UpcomingMaintenance returns scheduled records due between today and
// today+days, soonest first.
func (s *GarageService) UpcomingMaintenance(ctx context.Context, days int) ([]*MaintenanceRecord, error) {
	if days < 0 {
		return nil, &ValidationError{Field: "days", Reason: "cannot be negative"}
	}
	records, err := s.userMaintenance(ctx)
	if err != nil {
		return nil, err
	}

	today := s.today()
	var out []*MaintenanceRecord
	for _, m := range records {
		if m.Kind != MaintenanceScheduled {
			continue
		}
		if d := DaysBetween(today, DateOf(m.DueDate)); d >= 0 && d <= days {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out, nil
}

// MaintenanceStats counts the current user's records.
func (s *GarageService) MaintenanceStats(ctx context.Context) (*MaintenanceStats, error) {
	records, err := s.userMaintenance(ctx)
	if err != nil {
		return nil, err
	}

	today := s.today()
	stats := &MaintenanceStats{Total: len(records), TotalCost: decimal.Zero}
	for _, m := range records {
		due := DateOf(m.DueDate)
		if due.Year == today.Year && due.Month == today.Month {
			stats.ThisMonth++
		}
		if m.Kind == MaintenanceScheduled && DaysBetween(today, due) >= 0 {
			stats.Upcoming++
		}
		stats.TotalCost = stats.TotalCost.Add(m.TotalCost)
	}
	return stats, nil
}

func (s *GarageService) userMaintenance(ctx context.Context) ([]*MaintenanceRecord, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.database.ListMaintenanceByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing maintenance: %w", err)
	}
	return records, nil
}

func (s *GarageService) ownedMaintenance(user *User, id string) (*MaintenanceRecord, error) {
	m, err := s.database.FindMaintenanceByID(id)
	if err != nil {
		return nil, fmt.Errorf("finding maintenance: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("maintenance %s: %w", id, ErrNotFound)
	}
	if m.UserID != user.ID {
		return nil, fmt.Errorf("maintenance %s: %w", id, ErrNotOwner)
	}
	return m, nil
}

// normalizeMaintenance validates m, pins its due date to midnight in the
// service location and derives the total from the items.
func (s *GarageService) normalizeMaintenance(m *MaintenanceRecord) error {
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if _, err := ParseMaintenanceKind(string(m.Kind)); err != nil {
		return err
	}
	if m.DueDate.IsZero() {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	m.DueDate = DateOf(m.DueDate).In(s.location)

	for i := range m.Items {
		m.Items[i].Description = strings.TrimSpace(m.Items[i].Description)
		if m.Items[i].Description == "" {
			return &ValidationError{Field: "items", Reason: fmt.Sprintf("item %d has no description", i+1)}
		}
		if m.Items[i].Cost.IsNegative() {
			return &ValidationError{Field: "items", Reason: fmt.Sprintf("item %d has a negative cost", i+1)}
		}
	}
	if len(m.Items) > 0 {
		m.TotalCost = m.ItemsTotal()
	}
	if m.TotalCost.IsNegative() {
		return &ValidationError{Field: "total_cost", Reason: "cannot be negative"}
	}
	return nil
}

func (s *GarageService) afterSave(ctx context.Context, m *MaintenanceRecord) {
	if m.Kind == MaintenanceScheduled && s.onScheduledSave != nil {
		s.onScheduledSave(ctx)
	}
}
