package garagem

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// GarageService is the orchestration layer behind the CLI and HTTP API. It
// resolves the current user for every operation and enforces ownership.
type GarageService struct {
	database Database
	identity IdentityProvider
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	location *time.Location

	onScheduledSave func(ctx context.Context)
}

// NewGarageService creates a new GarageService with the provided dependencies.
func NewGarageService(database Database, identity IdentityProvider, logger Logger, clock Clock, idgen IDGenerator, loc *time.Location) *GarageService {
	if loc == nil {
		loc = time.Local
	}
	return &GarageService{
		database: database,
		identity: identity,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		location: loc,
	}
}

// OnScheduledSave registers fn to run after a scheduled maintenance is
// created or edited, so reminders can be re-evaluated right away.
func (s *GarageService) OnScheduledSave(fn func(ctx context.Context)) {
	s.onScheduledSave = fn
}

// Location is the timezone used for calendar computations.
func (s *GarageService) Location() *time.Location {
	return s.location
}

// RegisterUser creates a new user. Emails are unique, case-insensitively.
func (s *GarageService) RegisterUser(email, displayName string) (*User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, &ValidationError{Field: "email", Reason: err.Error()}
	}

	user := &User{
		ID:          s.idgen.New(),
		Email:       strings.ToLower(addr.Address),
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   s.clock.Now(),
	}
	if user.DisplayName == "" {
		user.DisplayName = strings.SplitN(user.Email, "@", 2)[0]
	}

	if err := s.database.CreateUser(user); err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}
	s.logger.Info("user registered", "user", user.ID, "email", user.Email)
	return user, nil
}

// CurrentUser returns the logged-in user or ErrNotLoggedIn.
func (s *GarageService) CurrentUser(ctx context.Context) (*User, error) {
	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("looking up current user: %w", err)
	}
	if user == nil {
		return nil, ErrNotLoggedIn
	}
	return user, nil
}

func (s *GarageService) today() Date {
	return DateOf(s.clock.Now().In(s.location))
}

// Today is the current calendar day in the service location.
func (s *GarageService) Today() Date {
	return s.today()
}
