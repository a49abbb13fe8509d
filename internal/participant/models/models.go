package models

import (
	"time"

	id "startingline/pkg/domain"
)

// Details are the participant facts remembered for prefill.
type Details struct {
	FirstName              string    `json:"first_name"`
	LastName               string    `json:"last_name"`
	Email                  string    `json:"email"`
	Mobile                 string    `json:"mobile,omitempty"`
	DateOfBirth            time.Time `json:"date_of_birth"`
	Disabled               bool      `json:"disabled"`
	MedicalAidName         string    `json:"medical_aid_name,omitempty"`
	MedicalAidNumber       string    `json:"medical_aid_number,omitempty"`
	EmergencyContactName   string    `json:"emergency_contact_name,omitempty"`
	EmergencyContactNumber string    `json:"emergency_contact_number,omitempty"`
}

// SavedParticipant is a deduplicated snapshot of Details owned by a profile.
// It is keyed by (profile, first name, last name, email) compared exactly as
// stored.
type SavedParticipant struct {
	ID        id.SavedParticipantID `json:"id"`
	ProfileID id.ProfileID          `json:"profile_id"`
	Details
	CreatedAt time.Time `json:"created_at"`
}

// Key is the deduplication key of a saved participant.
type Key struct {
	ProfileID id.ProfileID
	FirstName string
	LastName  string
	Email     string
}

func (p *SavedParticipant) Key() Key {
	return Key{ProfileID: p.ProfileID, FirstName: p.FirstName, LastName: p.LastName, Email: p.Email}
}
