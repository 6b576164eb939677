package garagem

import (
	"context"
	"fmt"
	"strings"
)

// AddVehicle registers a vehicle for the current user.
func (s *GarageService) AddVehicle(ctx context.Context, v *Vehicle) (*Vehicle, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateVehicle(v); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	v.ID = s.idgen.New()
	v.UserID = user.ID
	v.CreatedAt = now
	v.UpdatedAt = now

	if err := s.database.CreateVehicle(v); err != nil {
		return nil, fmt.Errorf("creating vehicle: %w", err)
	}
	s.logger.Info("vehicle added", "vehicle", v.ID, "name", v.Name())
	return v, nil
}

// ListVehicles returns the current user's vehicles.
func (s *GarageService) ListVehicles(ctx context.Context) ([]*Vehicle, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	vehicles, err := s.database.ListVehiclesByUser(user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing vehicles: %w", err)
	}
	return vehicles, nil
}

// GetVehicle returns one of the current user's vehicles.
func (s *GarageService) GetVehicle(ctx context.Context, id string) (*Vehicle, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.ownedVehicle(user, id)
}

// UpdateVehicle replaces the editable fields of a vehicle.
func (s *GarageService) UpdateVehicle(ctx context.Context, v *Vehicle) (*Vehicle, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.ownedVehicle(user, v.ID)
	if err != nil {
		return nil, err
	}
	if err := validateVehicle(v); err != nil {
		return nil, err
	}

	v.UserID = existing.UserID
	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = s.clock.Now()
	if err := s.database.UpdateVehicle(v); err != nil {
		return nil, fmt.Errorf("updating vehicle: %w", err)
	}
	return v, nil
}

// DeleteVehicle removes a vehicle with its maintenance records and expenses.
func (s *GarageService) DeleteVehicle(ctx context.Context, id string) error {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if _, err := s.ownedVehicle(user, id); err != nil {
		return err
	}
	if err := s.database.DeleteVehicle(id); err != nil {
		return fmt.Errorf("deleting vehicle: %w", err)
	}
	s.logger.Info("vehicle deleted", "vehicle", id)
	return nil
}

func (s *GarageService) ownedVehicle(user *User, id string) (*Vehicle, error) {
	v, err := s.database.FindVehicleByID(id)
	if err != nil {
		return nil, fmt.Errorf("finding vehicle: %w", err)
	}
	if v == nil {
		return nil, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	if v.UserID != user.ID {
		return nil, fmt.Errorf("vehicle %s: %w", id, ErrNotOwner)
	}
	return v, nil
}

func validateVehicle(v *Vehicle) error {
	v.Brand = strings.TrimSpace(v.Brand)
	v.Model = strings.TrimSpace(v.Model)
	if v.Brand == "" {
		return &ValidationError{Field: "brand", Reason: "required"}
	}
	if v.Year < 0 || v.Mileage < 0 || v.Doors < 0 {
		return &ValidationError{Field: "vehicle", Reason: "year, mileage and doors cannot be negative"}
	}
	return nil
}
