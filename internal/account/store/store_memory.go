package store

import (
	"context"
	"sync"

	"startingline/internal/account/models"
	id "startingline/pkg/domain"
	"startingline/pkg/email"
	"startingline/pkg/platform/sentinel"
	"startingline/pkg/platform/tx"
)

// InMemoryAccountStore keeps accounts keyed by ID with a case-insensitive
// email index. Writes register undo actions with the unit of work in ctx, and
// an account created inside a unit stays invisible to other units until that
// unit commits.
type InMemoryAccountStore struct {
	mu      sync.RWMutex
	byID    map[id.AccountID]*models.Account
	byEmail map[string]id.AccountID
	pending map[id.AccountID]any
}

func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{
		byID:    make(map[id.AccountID]*models.Account),
		byEmail: make(map[string]id.AccountID),
		pending: make(map[id.AccountID]any),
	}
}

// visible reports whether accountID is committed or written by the unit in
// ctx. Callers hold s.mu.
func (s *InMemoryAccountStore) visible(ctx context.Context, accountID id.AccountID) bool {
	owner, uncommitted := s.pending[accountID]
	return !uncommitted || owner == tx.Unit(ctx)
}

func (s *InMemoryAccountStore) Create(ctx context.Context, account *models.Account) error {
	key := email.Normalize(account.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[key]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byID[account.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := *account
	s.byID[account.ID] = &stored
	s.byEmail[key] = account.ID

	if unit := tx.Unit(ctx); unit != nil {
		s.pending[account.ID] = unit
		tx.RecordCommit(ctx, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.pending, account.ID)
		})
	}
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.byID, account.ID)
		delete(s.byEmail, key)
		delete(s.pending, account.ID)
	})
	return nil
}

func (s *InMemoryAccountStore) FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.byID[accountID]; ok && s.visible(ctx, accountID) {
		found := *a
		return &found, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryAccountStore) FindByEmail(ctx context.Context, address string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accountID, ok := s.byEmail[email.Normalize(address)]
	if !ok || !s.visible(ctx, accountID) {
		return nil, sentinel.ErrNotFound
	}
	found := *s.byID[accountID]
	return &found, nil
}

// InMemoryProfileStore keeps one profile per account. Like accounts, a
// profile is hidden from other units until its creating unit commits.
type InMemoryProfileStore struct {
	mu        sync.RWMutex
	byAccount map[id.AccountID]*models.Profile
	pending   map[id.AccountID]any
}

func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{
		byAccount: make(map[id.AccountID]*models.Profile),
		pending:   make(map[id.AccountID]any),
	}
}

func (s *InMemoryProfileStore) visible(ctx context.Context, accountID id.AccountID) bool {
	owner, uncommitted := s.pending[accountID]
	return !uncommitted || owner == tx.Unit(ctx)
}

// CreateIfAbsent stores profile unless the account already has one, and
// returns whichever profile is now on record.
func (s *InMemoryProfileStore) CreateIfAbsent(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byAccount[profile.AccountID]; ok {
		if !s.visible(ctx, profile.AccountID) {
			return nil, sentinel.ErrConflict
		}
		found := *existing
		return &found, nil
	}
	stored := *profile
	s.byAccount[profile.AccountID] = &stored

	accountID := profile.AccountID
	if unit := tx.Unit(ctx); unit != nil {
		s.pending[accountID] = unit
		tx.RecordCommit(ctx, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.pending, accountID)
		})
	}
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.byAccount, accountID)
		delete(s.pending, accountID)
	})
	created := stored
	return &created, nil
}

func (s *InMemoryProfileStore) FindByAccountID(ctx context.Context, accountID id.AccountID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.byAccount[accountID]; ok && s.visible(ctx, accountID) {
		found := *p
		return &found, nil
	}
	return nil, sentinel.ErrNotFound
}
