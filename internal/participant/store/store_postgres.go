package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"startingline/internal/participant/models"
	"startingline/internal/platform/postgres"
	id "startingline/pkg/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const savedParticipantColumns = `id, profile_id, first_name, last_name, email, mobile, date_of_birth, disabled,
	medical_aid_name, medical_aid_number, emergency_contact_name, emergency_contact_number, created_at`

// InsertIfAbsent relies on the unique (profile_id, first_name, last_name,
// email) index. ON CONFLICT DO NOTHING keeps a duplicate from aborting the
// surrounding transaction.
func (s *PostgresStore) InsertIfAbsent(ctx context.Context, p *models.SavedParticipant) (*models.SavedParticipant, bool, error) {
	exec := postgres.Executor(ctx, s.db)
	query := `
		INSERT INTO saved_participants (` + savedParticipantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (profile_id, first_name, last_name, email) DO NOTHING
		RETURNING ` + savedParticipantColumns

	var dob sql.NullTime
	if !p.DateOfBirth.IsZero() {
		dob = sql.NullTime{Time: p.DateOfBirth, Valid: true}
	}
	inserted, err := scanSavedParticipant(exec.QueryRowContext(ctx, query,
		p.ID, p.ProfileID, p.FirstName, p.LastName, p.Email, p.Mobile, dob, p.Disabled,
		p.MedicalAidName, p.MedicalAidNumber, p.EmergencyContactName, p.EmergencyContactNumber, p.CreatedAt,
	))
	if err == nil {
		return inserted, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert saved participant: %w", err)
	}

	existing, err := scanSavedParticipant(exec.QueryRowContext(ctx, `
		SELECT `+savedParticipantColumns+`
		FROM saved_participants
		WHERE profile_id = $1 AND first_name = $2 AND last_name = $3 AND email = $4
	`, p.ProfileID, p.FirstName, p.LastName, p.Email))
	if err != nil {
		return nil, false, fmt.Errorf("load saved participant: %w", err)
	}
	return existing, false, nil
}

func (s *PostgresStore) ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.SavedParticipant, error) {
	rows, err := postgres.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT `+savedParticipantColumns+`
		FROM saved_participants
		WHERE profile_id = $1
		ORDER BY last_name, first_name
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list saved participants: %w", err)
	}
	defer rows.Close()

	var out []*models.SavedParticipant
	for rows.Next() {
		p, err := scanSavedParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saved participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSavedParticipant(row scanner) (*models.SavedParticipant, error) {
	var (
		p   models.SavedParticipant
		dob sql.NullTime
	)
	err := row.Scan(&p.ID, &p.ProfileID, &p.FirstName, &p.LastName, &p.Email, &p.Mobile, &dob, &p.Disabled,
		&p.MedicalAidName, &p.MedicalAidNumber, &p.EmergencyContactName, &p.EmergencyContactNumber, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if dob.Valid {
		p.DateOfBirth = dob.Time
	}
	return &p, nil
}
