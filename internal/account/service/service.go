// Package service resolves the purchasing account for a checkout: it reuses
// the authenticated or email-matched account, or provisions a new one with a
// profile in the caller's unit of work.
package service

import (
	"context"
	"errors"
	"log/slog"

	"startingline/internal/account/models"
	id "startingline/pkg/domain"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/email"
	"startingline/pkg/platform/sentinel"
	"startingline/pkg/requestcontext"
)

const defaultMinPasswordLength = 8

type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

type ProfileStore interface {
	CreateIfAbsent(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	FindByAccountID(ctx context.Context, accountID id.AccountID) (*models.Profile, error)
}

type Service struct {
	accounts          AccountStore
	profiles          ProfileStore
	hasher            PasswordHasher
	logger            *slog.Logger
	minPasswordLength int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPasswordHasher(hasher PasswordHasher) Option {
	return func(s *Service) {
		s.hasher = hasher
	}
}

func WithMinPasswordLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minPasswordLength = n
		}
	}
}

func New(accounts AccountStore, profiles ProfileStore, opts ...Option) (*Service, error) {
	if accounts == nil {
		return nil, errors.New("account store is required")
	}
	if profiles == nil {
		return nil, errors.New("profile store is required")
	}
	svc := &Service{
		accounts:          accounts,
		profiles:          profiles,
		hasher:            NewBcryptHasher(0),
		logger:            slog.Default(),
		minPasswordLength: defaultMinPasswordLength,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Resolve finds or creates the purchasing account. An authenticated caller is
// never re-provisioned. Otherwise the holder email is matched
// case-insensitively; a miss creates an account and profile, which requires a
// password. Existing accounts without a profile get one backfilled.
//
// Resolve performs no transaction management; callers run it inside their
// unit of work so an aborted checkout also discards a fresh account.
func (s *Service) Resolve(ctx context.Context, authenticated id.AccountID, holder models.Holder) (*models.Resolution, error) {
	if !authenticated.IsNil() {
		account, err := s.accounts.FindByID(ctx, authenticated)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeForbidden, "authenticated account no longer exists")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
		}
		return s.withProfile(ctx, account, holder, false)
	}

	address := email.Normalize(holder.Email)
	if address == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "account holder email is required")
	}
	if !email.LooksValid(address) {
		return nil, dErrors.New(dErrors.CodeValidation, "account holder email is invalid")
	}

	account, err := s.accounts.FindByEmail(ctx, address)
	switch {
	case err == nil:
		return s.withProfile(ctx, account, holder, false)
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}

	return s.provision(ctx, address, holder)
}

func (s *Service) provision(ctx context.Context, address string, holder models.Holder) (*models.Resolution, error) {
	if holder.Password == "" {
		return nil, dErrors.New(dErrors.CodeIdentity, "a password is required to create an account")
	}
	if len(holder.Password) < s.minPasswordLength {
		return nil, dErrors.New(dErrors.CodeIdentity, "password is too short")
	}

	hash, err := s.hasher.Hash(holder.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to secure password")
	}

	account := &models.Account{
		ID:            id.NewAccountID(),
		Email:         address,
		PasswordHash:  hash,
		Role:          models.RoleParticipant,
		EmailVerified: true,
		CreatedAt:     requestcontext.Now(ctx),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeIdentity, "an account with this email was created concurrently, please sign in")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	s.logger.InfoContext(ctx, "account provisioned at checkout",
		"account_id", account.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return s.withProfile(ctx, account, holder, true)
}

// withProfile returns the account's profile, creating one from the holder
// details when the account predates profiles.
func (s *Service) withProfile(ctx context.Context, account *models.Account, holder models.Holder, created bool) (*models.Resolution, error) {
	profile, err := s.profiles.FindByAccountID(ctx, account.ID)
	if err == nil {
		return &models.Resolution{Account: account, Profile: profile, Created: created}, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}

	profile, err = s.profiles.CreateIfAbsent(ctx, newProfile(ctx, account, holder))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
	}
	if !created {
		s.logger.InfoContext(ctx, "profile backfilled for existing account",
			"account_id", account.ID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return &models.Resolution{Account: account, Profile: profile, Created: created}, nil
}

func newProfile(ctx context.Context, account *models.Account, holder models.Holder) *models.Profile {
	first, last := holder.FirstName, holder.LastName
	if first == "" && last == "" {
		first, last = email.DeriveName(account.Email)
	}
	return &models.Profile{
		ID:                     id.NewProfileID(),
		AccountID:              account.ID,
		FirstName:              first,
		LastName:               last,
		Mobile:                 holder.Mobile,
		Company:                holder.Company,
		Address:                holder.Address,
		EmergencyContactName:   holder.EmergencyContactName,
		EmergencyContactNumber: holder.EmergencyContactNumber,
		CreatedAt:              requestcontext.Now(ctx),
	}
}
