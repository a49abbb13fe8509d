package service

import (
	"time"

	"startingline/internal/registration/models"
	"startingline/pkg/money"
)

// Response is the caller-facing shape of a committed registration.
type Response struct {
	Order   OrderView    `json:"order"`
	Tickets []TicketView `json:"tickets"`
	Auth    *AuthView    `json:"auth,omitempty"`
}

type OrderView struct {
	ID          string                `json:"id"`
	AccountID   string                `json:"account_id"`
	EventID     string                `json:"event_id"`
	Status      string                `json:"status"`
	Total       money.Amount          `json:"total_amount"`
	LicenseFees money.Amount          `json:"license_fees"`
	CreatedAt   time.Time             `json:"created_at"`
	EventName   string                `json:"event_name"`
	StartDate   string                `json:"start_date"`
	StartTime   string                `json:"start_time"`
	City        string                `json:"city"`
	Category    string                `json:"category"`
	Merchandise []MerchandiseLineView `json:"merchandise"`
}

type MerchandiseLineView struct {
	ID            string       `json:"id"`
	TicketID      string       `json:"ticket_id"`
	MerchandiseID string       `json:"merchandise_id"`
	VariationID   string       `json:"variation_id,omitempty"`
	Variation     string       `json:"variation,omitempty"`
	Quantity      int          `json:"quantity"`
	UnitPrice     money.Amount `json:"unit_price"`
	TotalPrice    money.Amount `json:"total_price"`
}

type TicketView struct {
	ID              string                `json:"id"`
	OrderID         string                `json:"order_id"`
	DistanceID      string                `json:"distance_id"`
	ParticipantName string                `json:"participant_name"`
	FirstName       string                `json:"first_name"`
	LastName        string                `json:"last_name"`
	Email           string                `json:"email"`
	Mobile          string                `json:"mobile,omitempty"`
	DateOfBirth     string                `json:"date_of_birth"`
	Amount          money.Amount          `json:"amount"`
	Waiver          string                `json:"waiver,omitempty"`
	Status          string                `json:"status"`
	Merchandise     []MerchandiseLineView `json:"merchandise"`
}

// AuthView is present only when the registration created the account.
type AuthView struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

type UserView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

const dateLayout = time.DateOnly

// AssembleResult shapes a committed result for the caller. Credentials other
// than the freshly minted token never leave the service.
func AssembleResult(r *models.Result) Response {
	lineViews := make([]MerchandiseLineView, 0, len(r.Lines))
	for _, l := range r.Lines {
		lineViews = append(lineViews, lineView(l))
	}

	resp := Response{
		Order: OrderView{
			ID:          r.Order.ID.String(),
			AccountID:   r.Order.AccountID.String(),
			EventID:     r.Order.EventID.String(),
			Status:      string(r.Order.Status),
			Total:       r.Order.Total,
			LicenseFees: r.Order.LicenseFees,
			CreatedAt:   r.Order.CreatedAt,
			EventName:   r.Event.Name,
			StartDate:   r.Event.StartDate.Format(dateLayout),
			StartTime:   r.Event.StartTime,
			City:        r.Event.City,
			Category:    r.Event.Category,
			Merchandise: lineViews,
		},
		Tickets: make([]TicketView, 0, len(r.Tickets)),
	}

	for _, t := range r.Tickets {
		ticketLines := make([]MerchandiseLineView, 0)
		for _, l := range r.LinesFor(t.ID) {
			ticketLines = append(ticketLines, lineView(l))
		}
		resp.Tickets = append(resp.Tickets, TicketView{
			ID:              t.ID.String(),
			OrderID:         t.OrderID.String(),
			DistanceID:      t.DistanceID.String(),
			ParticipantName: t.Participant.FullName(),
			FirstName:       t.Participant.FirstName,
			LastName:        t.Participant.LastName,
			Email:           t.Participant.Email,
			Mobile:          t.Participant.Mobile,
			DateOfBirth:     t.Participant.DateOfBirth.Format(dateLayout),
			Amount:          t.Amount,
			Waiver:          t.Waiver,
			Status:          string(t.Status),
			Merchandise:     ticketLines,
		})
	}

	if r.AccountCreated && r.Token != "" {
		resp.Auth = &AuthView{
			Token: r.Token,
			User: UserView{
				ID:    r.Account.ID.String(),
				Email: r.Account.Email,
				Role:  string(r.Account.Role),
			},
		}
	}
	return resp
}

func lineView(l *models.MerchandiseLine) MerchandiseLineView {
	return MerchandiseLineView{
		ID:            l.ID.String(),
		TicketID:      l.TicketID.String(),
		MerchandiseID: l.MerchandiseID.String(),
		VariationID:   l.VariationID,
		Variation:     l.VariationLabel,
		Quantity:      l.Quantity,
		UnitPrice:     l.UnitPrice,
		TotalPrice:    l.TotalPrice,
	}
}
