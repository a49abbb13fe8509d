package notification

import (
	"time"

	id "startingline/pkg/domain"
	"startingline/pkg/money"
)

// Confirmation is the post-commit message handed to the ticket mailer. It is
// built from committed rows only.
type Confirmation struct {
	OrderID     id.OrderID      `json:"order_id"`
	AccountID   id.AccountID    `json:"account_id"`
	Email       string          `json:"email"`
	EventName   string          `json:"event_name"`
	StartDate   time.Time       `json:"start_date"`
	Total       money.Amount    `json:"total"`
	Tickets     []TicketSummary `json:"tickets"`
	RequestID   string          `json:"request_id,omitempty"`
	CommittedAt time.Time       `json:"committed_at"`
}

type TicketSummary struct {
	TicketID        id.TicketID  `json:"ticket_id"`
	ParticipantName string       `json:"participant_name"`
	Email           string       `json:"email"`
	Distance        string       `json:"distance"`
	Amount          money.Amount `json:"amount"`
}
