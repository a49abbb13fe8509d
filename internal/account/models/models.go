package models

import (
	"time"

	id "startingline/pkg/domain"
)

type Role string

const (
	RoleParticipant Role = "participant"
	RoleOrganiser   Role = "organiser"
	RoleAdmin       Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleParticipant, RoleOrganiser, RoleAdmin:
		return true
	}
	return false
}

// CanOverridePrice reports whether the role may set a ticket price by hand.
func (r Role) CanOverridePrice() bool {
	return r == RoleOrganiser || r == RoleAdmin
}

// Account is a login identity. It never exists without a Profile.
type Account struct {
	ID            id.AccountID
	Email         string
	PasswordHash  string `json:"-"`
	Role          Role
	EmailVerified bool
	CreatedAt     time.Time
}

// Profile holds contact details and owns saved participants.
type Profile struct {
	ID                     id.ProfileID
	AccountID              id.AccountID
	FirstName              string
	LastName               string
	Mobile                 string
	Company                string
	Address                string
	EmergencyContactName   string
	EmergencyContactNumber string
	CreatedAt              time.Time
}

// Holder is the account-holder bundle submitted with an anonymous checkout.
type Holder struct {
	FirstName              string
	LastName               string
	Email                  string
	Mobile                 string
	Company                string
	Address                string
	Password               string
	EmergencyContactName   string
	EmergencyContactNumber string
}

// Resolution is the outcome of find-or-create. Created is true only when the
// account was provisioned by this call.
type Resolution struct {
	Account *Account
	Profile *Profile
	Created bool
}
