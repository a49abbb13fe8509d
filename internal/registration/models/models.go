package models

import (
	"strings"
	"time"

	accountmodels "startingline/internal/account/models"
	id "startingline/pkg/domain"
	"startingline/pkg/money"
)

// Event is read-only catalog data for this module.
type Event struct {
	ID              id.EventID
	Name            string
	StartDate       time.Time
	StartTime       string
	City            string
	Category        string
	FreeForDisabled bool
}

// Distance is a priced, capacity-bounded sub-event. CurrentParticipants and
// IsFull change only through the capacity gate.
type Distance struct {
	ID                  id.DistanceID
	EventID             id.EventID
	Name                string
	Price               money.Amount
	MinAge              int
	EntryLimit          *int
	FreeForSeniors      bool
	SeniorAgeThreshold  int
	FreeForDisability   bool
	CurrentParticipants int
	IsFull              bool
}

// Limited reports whether the distance has an enforced entry limit. A nil or
// zero limit means unlimited.
func (d *Distance) Limited() bool {
	return d.EntryLimit != nil && *d.EntryLimit > 0
}

// Remaining returns the free places, or nil when unlimited.
func (d *Distance) Remaining() *int {
	if !d.Limited() {
		return nil
	}
	r := max(*d.EntryLimit-d.CurrentParticipants, 0)
	return &r
}

type Variation struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (v Variation) Label() string {
	switch {
	case v.Name == "":
		return v.Value
	case v.Value == "":
		return v.Name
	}
	return v.Name + ": " + v.Value
}

// MerchandiseItem is optional event merchandise. A nil CurrentStock means the
// stock level is unknown.
type MerchandiseItem struct {
	ID           id.MerchandiseID
	EventID      id.EventID
	Name         string
	Price        money.Amount
	CurrentStock *int
	Variations   []Variation
}

func (m *MerchandiseItem) Variation(variationID string) (Variation, bool) {
	for _, v := range m.Variations {
		if v.ID == variationID {
			return v, true
		}
	}
	return Variation{}, false
}

type OrderStatus string

const OrderPending OrderStatus = "pending"

type TicketStatus string

const (
	TicketActive    TicketStatus = "active"
	TicketCancelled TicketStatus = "cancelled"
	TicketRefunded  TicketStatus = "refunded"
)

// Order groups the tickets bought in one checkout. Total always equals the
// ticket amounts plus merchandise line totals plus license fees.
type Order struct {
	ID                     id.OrderID
	AccountID              id.AccountID
	EventID                id.EventID
	Total                  money.Amount
	LicenseFees            money.Amount
	Status                 OrderStatus
	Channel                string
	EmergencyContactName   string
	EmergencyContactNumber string
	CreatedAt              time.Time
}

// Participant carries the identity, contact and medical details of one entrant.
type Participant struct {
	FirstName              string
	LastName               string
	Email                  string
	Mobile                 string
	DateOfBirth            time.Time
	Disabled               bool
	MedicalAidName         string
	MedicalAidNumber       string
	EmergencyContactName   string
	EmergencyContactNumber string
}

func (p Participant) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Ticket is one participant's entry into a distance. Amount is what is owed;
// ComputedAmount is what the pricing rules produced and differs only when a
// privileged caller overrode the price.
type Ticket struct {
	ID             id.TicketID
	OrderID        id.OrderID
	DistanceID     id.DistanceID
	Participant    Participant
	Amount         money.Amount
	ComputedAmount money.Amount
	Waiver         string
	Status         TicketStatus
	CreatedAt      time.Time
}

type MerchandiseLine struct {
	ID             id.MerchandiseLineID
	TicketID       id.TicketID
	MerchandiseID  id.MerchandiseID
	VariationID    string
	VariationLabel string
	Quantity       int
	UnitPrice      money.Amount
	TotalPrice     money.Amount
}

// Cart is a submitted registration.
type Cart struct {
	EventID     id.EventID
	Holder      accountmodels.Holder
	LicenseFees money.Amount
	Lines       []CartLine
}

// CartLine ties one participant to a distance. AdjustedPrice is honoured only
// for organiser and admin callers.
type CartLine struct {
	DistanceID    id.DistanceID
	Participant   Participant
	Merchandise   []MerchandiseRequest
	AdjustedPrice *money.Amount
}

// MerchandiseRequest is a requested purchase. The unit price is always taken
// from the catalog; UnitPrice is only the price the client displayed.
type MerchandiseRequest struct {
	MerchandiseID id.MerchandiseID
	VariationID   string
	Quantity      int
	UnitPrice     money.Amount
}

// Result is a committed registration.
type Result struct {
	Order          *Order
	Event          *Event
	Tickets        []*Ticket
	Lines          []*MerchandiseLine
	Account        *accountmodels.Account
	AccountCreated bool
	Token          string
}

// LinesFor returns the merchandise lines attached to ticketID.
func (r *Result) LinesFor(ticketID id.TicketID) []*MerchandiseLine {
	var out []*MerchandiseLine
	for _, l := range r.Lines {
		if l.TicketID == ticketID {
			out = append(out, l)
		}
	}
	return out
}

// CapacityView is the listing read model of a distance's capacity.
type CapacityView struct {
	DistanceID          id.DistanceID
	EntryLimit          *int
	CurrentParticipants int
	IsFull              bool
	Remaining           *int
}
