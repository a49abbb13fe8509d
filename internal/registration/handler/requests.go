package handler

import (
	"time"

	accountmodels "startingline/internal/account/models"
	"startingline/internal/registration/models"
	id "startingline/pkg/domain"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/money"
)

const dateLayout = time.DateOnly

// RegisterRequest is the body of POST /registrations. Holder fields may be
// omitted by authenticated callers.
type RegisterRequest struct {
	EventID                string         `json:"event_id" validate:"required,uuid"`
	AccountHolderFirstName string         `json:"account_holder_first_name" validate:"max=100"`
	AccountHolderLastName  string         `json:"account_holder_last_name" validate:"max=100"`
	AccountHolderEmail     string         `json:"account_holder_email" validate:"omitempty,email,max=254"`
	AccountHolderMobile    string         `json:"account_holder_mobile" validate:"max=32"`
	AccountHolderCompany   string         `json:"account_holder_company" validate:"max=200"`
	AccountHolderAddress   string         `json:"account_holder_address" validate:"max=500"`
	AccountHolderPassword  string         `json:"account_holder_password,omitempty" validate:"max=72"`
	EmergencyContactName   string         `json:"emergency_contact_name" validate:"max=100"`
	EmergencyContactNumber string         `json:"emergency_contact_number" validate:"max=32"`
	LicenseFees            *money.Amount  `json:"license_fees,omitempty"`
	Participants           []EntryRequest `json:"participants" validate:"required,min=1,max=50,dive"`
}

type EntryRequest struct {
	DistanceID    string             `json:"distance_id" validate:"required,uuid"`
	Participant   ParticipantRequest `json:"participant"`
	AdjustedPrice *money.Amount      `json:"adjusted_price,omitempty"`
}

type ParticipantRequest struct {
	FirstName              string               `json:"first_name" validate:"required,max=100"`
	LastName               string               `json:"last_name" validate:"required,max=100"`
	Email                  string               `json:"email" validate:"required,email,max=254"`
	Mobile                 string               `json:"mobile" validate:"max=32"`
	DateOfBirth            string               `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Disabled               bool                 `json:"disabled"`
	MedicalAidName         string               `json:"medical_aid_name" validate:"max=100"`
	MedicalAidNumber       string               `json:"medical_aid_number" validate:"max=64"`
	EmergencyContactName   string               `json:"emergency_contact_name" validate:"max=100"`
	EmergencyContactNumber string               `json:"emergency_contact_number" validate:"max=32"`
	Merchandise            []MerchandiseRequest `json:"merchandise" validate:"max=20,dive"`
}

type MerchandiseRequest struct {
	MerchandiseID string        `json:"merchandise_id" validate:"required,uuid"`
	VariationID   string        `json:"variation_id" validate:"max=64"`
	Quantity      int           `json:"quantity" validate:"min=1,max=100"`
	UnitPrice     *money.Amount `json:"unit_price"`
}

// ToCart converts a validated request into a cart.
func (r *RegisterRequest) ToCart() (*models.Cart, error) {
	eventID, err := id.ParseEventID(r.EventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "event_id is invalid")
	}
	cart := &models.Cart{
		EventID: eventID,
		Holder: accountmodels.Holder{
			FirstName:              r.AccountHolderFirstName,
			LastName:               r.AccountHolderLastName,
			Email:                  r.AccountHolderEmail,
			Mobile:                 r.AccountHolderMobile,
			Company:                r.AccountHolderCompany,
			Address:                r.AccountHolderAddress,
			Password:               r.AccountHolderPassword,
			EmergencyContactName:   r.EmergencyContactName,
			EmergencyContactNumber: r.EmergencyContactNumber,
		},
		Lines: make([]models.CartLine, 0, len(r.Participants)),
	}
	if r.LicenseFees != nil {
		cart.LicenseFees = *r.LicenseFees
	}

	for _, entry := range r.Participants {
		line, err := entry.toLine()
		if err != nil {
			return nil, err
		}
		cart.Lines = append(cart.Lines, line)
	}
	return cart, nil
}

func (e EntryRequest) toLine() (models.CartLine, error) {
	distanceID, err := id.ParseDistanceID(e.DistanceID)
	if err != nil {
		return models.CartLine{}, dErrors.Wrap(err, dErrors.CodeValidation, "distance_id is invalid")
	}
	p := e.Participant
	dob, err := time.Parse(dateLayout, p.DateOfBirth)
	if err != nil {
		return models.CartLine{}, dErrors.Wrap(err, dErrors.CodeValidation, "date_of_birth must be YYYY-MM-DD")
	}

	line := models.CartLine{
		DistanceID: distanceID,
		Participant: models.Participant{
			FirstName:              p.FirstName,
			LastName:               p.LastName,
			Email:                  p.Email,
			Mobile:                 p.Mobile,
			DateOfBirth:            dob,
			Disabled:               p.Disabled,
			MedicalAidName:         p.MedicalAidName,
			MedicalAidNumber:       p.MedicalAidNumber,
			EmergencyContactName:   p.EmergencyContactName,
			EmergencyContactNumber: p.EmergencyContactNumber,
		},
		AdjustedPrice: e.AdjustedPrice,
	}
	for _, m := range p.Merchandise {
		itemID, err := id.ParseMerchandiseID(m.MerchandiseID)
		if err != nil {
			return models.CartLine{}, dErrors.Wrap(err, dErrors.CodeValidation, "merchandise_id is invalid")
		}
		req := models.MerchandiseRequest{
			MerchandiseID: itemID,
			VariationID:   m.VariationID,
			Quantity:      m.Quantity,
		}
		if m.UnitPrice != nil {
			req.UnitPrice = *m.UnitPrice
		}
		line.Merchandise = append(line.Merchandise, req)
	}
	return line, nil
}

// CapacityResponse is the body of GET /distances/{id}/capacity.
type CapacityResponse struct {
	DistanceID          string `json:"distance_id"`
	EntryLimit          *int   `json:"entry_limit"`
	CurrentParticipants int    `json:"current_participants"`
	IsFull              bool   `json:"is_full"`
	Remaining           *int   `json:"remaining"`
}

func toCapacityResponse(v *models.CapacityView) CapacityResponse {
	return CapacityResponse{
		DistanceID:          v.DistanceID.String(),
		EntryLimit:          v.EntryLimit,
		CurrentParticipants: v.CurrentParticipants,
		IsFull:              v.IsFull,
		Remaining:           v.Remaining,
	}
}
