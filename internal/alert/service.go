package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/floodwatch/floodwatch/internal/changefeed"
	"github.com/floodwatch/floodwatch/internal/fault"
)

// Validation constants.
const (
	MaxTitleLength   = 120
	MaxMessageLength = 1000
)

// CreateInput holds the fields of a new alert.
type CreateInput struct {
	Title              string
	Message            string
	Severity           Severity
	Category           Category
	State              string
	District           string
	AffectedAreas      []string
	EvacuationRequired bool
	IssuedBy           string
	ExpiresAt          *time.Time
}

// ServiceConfig holds configuration for the alert service.
type ServiceConfig struct {
	Repository Repository
	// Publisher announces alert changes (default: changefeed.Discard).
	Publisher changefeed.Publisher
	Logger    zerolog.Logger
	Clock     clockwork.Clock
}

// Service provides alert operations.
type Service struct {
	repo      Repository
	publisher changefeed.Publisher
	logger    zerolog.Logger
	clock     clockwork.Clock
}

// NewService creates a new alert service.
func NewService(cfg ServiceConfig) *Service {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = changefeed.Discard
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		repo:      cfg.Repository,
		publisher: publisher,
		logger:    cfg.Logger,
		clock:     clock,
	}
}

// ListActive returns the alerts active now for a state, or all states when state is empty.
func (s *Service) ListActive(ctx context.Context, state string) ([]Alert, error) {
	alerts, err := s.repo.ListActive(ctx, state, s.clock.Now())
	if err != nil {
		return nil, fault.Unavailable("listing alerts", err)
	}
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, *a)
	}
	Sort(out)
	return out, nil
}

// Get retrieves an alert by ID.
func (s *Service) Get(ctx context.Context, id string) (*Alert, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new active alert.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Alert, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: expiresAt must be in the future", ErrInvalidAlert)
	}

	a := &Alert{
		ID:                 uuid.New().String(),
		Title:              in.Title,
		Message:            in.Message,
		Severity:           in.Severity,
		Category:           in.Category,
		State:              in.State,
		District:           in.District,
		AffectedAreas:      in.AffectedAreas,
		EvacuationRequired: in.EvacuationRequired,
		IssuedBy:           in.IssuedBy,
		IsActive:           true,
		CreatedAt:          now,
		ExpiresAt:          in.ExpiresAt,
	}
	if a.AffectedAreas == nil {
		a.AffectedAreas = []string{}
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("storing alert: %w", err)
	}

	s.logger.Info().
		Str("alert_id", a.ID).
		Str("state", a.State).
		Str("severity", string(a.Severity)).
		Str("category", string(a.Category)).
		Msg("alert created")
	s.announce(ctx, a)
	return a, nil
}

// Deactivate marks an alert inactive.
func (s *Service) Deactivate(ctx context.Context, id string) (*Alert, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return nil, err
	}
	a.IsActive = false

	s.logger.Info().Str("alert_id", id).Str("state", a.State).Msg("alert deactivated")
	s.announce(ctx, a)
	return a, nil
}

func (s *Service) announce(ctx context.Context, a *Alert) {
	err := s.publisher.Publish(ctx, changefeed.Change{
		Table: changefeed.TableAlerts,
		State: a.State,
		ID:    a.ID,
		At:    s.clock.Now(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("alert_id", a.ID).Msg("failed to publish alert change")
	}
}

func validateInput(in *CreateInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	in.State = strings.TrimSpace(in.State)

	switch {
	case in.Title == "" || len(in.Title) > MaxTitleLength:
		return fmt.Errorf("%w: title must be 1-%d characters", ErrInvalidAlert, MaxTitleLength)
	case in.Message == "" || len(in.Message) > MaxMessageLength:
		return fmt.Errorf("%w: message must be 1-%d characters", ErrInvalidAlert, MaxMessageLength)
	case in.State == "":
		return fmt.Errorf("%w: state is required", ErrInvalidAlert)
	case in.Severity.Rank() < 0:
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidAlert, in.Severity)
	}

	if in.Category == "" {
		in.Category = InferCategory(in.Title, in.Message)
	} else if !in.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidAlert, in.Category)
	}
	if in.Category == CategoryEvacuation {
		in.EvacuationRequired = true
	}
	return nil
}
