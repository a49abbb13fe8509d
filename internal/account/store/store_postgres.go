package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"startingline/internal/account/models"
	"startingline/internal/platform/postgres"
	id "startingline/pkg/domain"
	"startingline/pkg/platform/sentinel"
)

// PostgresAccountStore persists accounts. It joins the unit of work carried
// by ctx when there is one.
type PostgresAccountStore struct {
	db *sql.DB
}

func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

func (s *PostgresAccountStore) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, role, email_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := postgres.Executor(ctx, s.db).ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		string(account.Role),
		account.EmailVerified,
		account.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	query := `
		SELECT id, email, password_hash, role, email_verified, created_at
		FROM accounts
		WHERE id = $1
	`
	return scanAccount(postgres.Executor(ctx, s.db).QueryRowContext(ctx, query, accountID))
}

func (s *PostgresAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `
		SELECT id, email, password_hash, role, email_verified, created_at
		FROM accounts
		WHERE lower(email) = lower($1)
	`
	return scanAccount(postgres.Executor(ctx, s.db).QueryRowContext(ctx, query, email))
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var (
		account models.Account
		role    string
	)
	err := row.Scan(&account.ID, &account.Email, &account.PasswordHash, &role, &account.EmailVerified, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	account.Role = models.Role(role)
	return &account, nil
}

// PostgresProfileStore persists profiles.
type PostgresProfileStore struct {
	db *sql.DB
}

func NewPostgresProfileStore(db *sql.DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

// CreateIfAbsent inserts profile unless the account already has one. The
// insert never raises a unique violation, so it is safe inside a transaction
// that must keep going.
func (s *PostgresProfileStore) CreateIfAbsent(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (id, account_id, first_name, last_name, mobile, company, address,
			emergency_contact_name, emergency_contact_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (account_id) DO NOTHING
	`
	_, err := postgres.Executor(ctx, s.db).ExecContext(ctx, query,
		profile.ID,
		profile.AccountID,
		profile.FirstName,
		profile.LastName,
		profile.Mobile,
		profile.Company,
		profile.Address,
		profile.EmergencyContactName,
		profile.EmergencyContactNumber,
		profile.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return s.FindByAccountID(ctx, profile.AccountID)
}

func (s *PostgresProfileStore) FindByAccountID(ctx context.Context, accountID id.AccountID) (*models.Profile, error) {
	query := `
		SELECT id, account_id, first_name, last_name, mobile, company, address,
			emergency_contact_name, emergency_contact_number, created_at
		FROM profiles
		WHERE account_id = $1
	`
	var p models.Profile
	err := postgres.Executor(ctx, s.db).QueryRowContext(ctx, query, accountID).Scan(
		&p.ID, &p.AccountID, &p.FirstName, &p.LastName, &p.Mobile, &p.Company, &p.Address,
		&p.EmergencyContactName, &p.EmergencyContactNumber, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}
