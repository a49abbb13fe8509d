package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"startingline/internal/participant/models"
	id "startingline/pkg/domain"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/requestcontext"
)

type Store interface {
	InsertIfAbsent(ctx context.Context, p *models.SavedParticipant) (*models.SavedParticipant, bool, error)
	ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.SavedParticipant, error)
}

// Service remembers participants against a profile for future prefill.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("saved participant store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// UpsertIfAbsent inserts details for the profile unless an entry with the
// same first name, last name and email already exists. An existing entry is
// returned untouched.
func (s *Service) UpsertIfAbsent(ctx context.Context, profileID id.ProfileID, details models.Details) (*models.SavedParticipant, error) {
	if profileID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "profile id is required")
	}
	details.FirstName = strings.TrimSpace(details.FirstName)
	details.LastName = strings.TrimSpace(details.LastName)
	details.Email = strings.TrimSpace(details.Email)
	if details.FirstName == "" || details.LastName == "" || details.Email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "saved participant needs first name, last name and email")
	}

	saved, created, err := s.store.InsertIfAbsent(ctx, &models.SavedParticipant{
		ID:        id.NewSavedParticipantID(),
		ProfileID: profileID,
		Details:   details,
		CreatedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save participant")
	}
	if created {
		s.logger.DebugContext(ctx, "saved participant recorded",
			"profile_id", profileID.String(),
			"saved_participant_id", saved.ID.String(),
		)
	}
	return saved, nil
}

func (s *Service) List(ctx context.Context, profileID id.ProfileID) ([]*models.SavedParticipant, error) {
	list, err := s.store.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list saved participants")
	}
	return list, nil
}
