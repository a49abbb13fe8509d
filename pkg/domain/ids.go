// Package domain holds typed identifiers shared across modules. Each ID is a
// distinct named type over uuid.UUID so an order ID can never be passed where
// a distance ID is expected.
package domain

import (
	"database/sql/driver"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "startingline/pkg/domain-errors"
)

const maxIDLength = 64

type (
	AccountID          uuid.UUID
	ProfileID          uuid.UUID
	EventID            uuid.UUID
	DistanceID         uuid.UUID
	MerchandiseID      uuid.UUID
	OrderID            uuid.UUID
	TicketID           uuid.UUID
	MerchandiseLineID  uuid.UUID
	SavedParticipantID uuid.UUID
)

// parseUUID enforces the shared invariant: valid, non-nil, bounded-length UUIDs.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" || strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	if len(s) > maxIDLength || !utf8.ValidString(s) {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be nil")
	}
	return parsed, nil
}

func unmarshalUUID(text []byte, kind string) (uuid.UUID, error) {
	if len(text) == 0 {
		return uuid.Nil, nil
	}
	return parseUUID(string(text), kind)
}

// ParseAccountID parses and validates an account identifier.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account")
	return AccountID(u), err
}

// NewAccountID returns a fresh random account identifier.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

func (id AccountID) String() string { return uuid.UUID(id).String() }
func (id AccountID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id AccountID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *AccountID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text, "account")
	if err != nil {
		return err
	}
	*id = AccountID(u)
	return nil
}

func (id AccountID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }

func (id *AccountID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }

// ParseProfileID parses and validates a profile identifier.
func ParseProfileID(s string) (ProfileID, error) {
	u, err := parseUUID(s, "profile")
	return ProfileID(u), err
}

// NewProfileID returns a fresh random profile identifier.
func NewProfileID() ProfileID { return ProfileID(uuid.New()) }

func (id ProfileID) String() string { return uuid.UUID(id).String() }
func (id ProfileID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ProfileID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *ProfileID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text, "profile")
	if err != nil {
		return err
	}
	*id = ProfileID(u)
	return nil
}

func (id ProfileID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }

func (id *ProfileID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }

// ParseEventID parses and validates an event identifier.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event")
	return EventID(u), err
}

// NewEventID returns a fresh random event identifier.
func NewEventID() EventID { return EventID(uuid.New()) }

func (id EventID) String() string { return uuid.UUID(id).String() }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id EventID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *EventID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text, "event")
	if err != nil {
		return err
	}
	*id = EventID(u)
	return nil
}

func (id EventID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }

func (id *EventID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }

// ParseDistanceID parses and validates a distance identifier.
func ParseDistanceID(s string) (DistanceID, error) {
	u, err := parseUUID(s, "distance")
	return DistanceID(u), err
}

// NewDistanceID returns a fresh random distance identifier.
func NewDistanceID() DistanceID { return DistanceID(uuid.New()) }

func (id DistanceID) String() string { return uuid.UUID(id).String() }
func (id DistanceID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id DistanceID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *DistanceID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text, "distance")
	if err != nil {
		return err
	}
	*id = DistanceID(u)
	return nil
}

func (id DistanceID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }

func (id *DistanceID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }

// ParseMerchandiseID parses and validates a merchandise identifier.
func ParseMerchandiseID(s string) (MerchandiseID, error) {
	u, err := parseUUID(s, "merchandise")
	return MerchandiseID(u), err
}

// NewMerchandiseID returns a fresh random merchandise identifier.
func NewMerchandiseID() MerchandiseID { return MerchandiseID(uuid.New()) }

func (id MerchandiseID) String() string { return uuid.UUID(id).String() }
func (id MerchandiseID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id MerchandiseID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *MerchandiseID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text, "merchandise")
	if err != nil {
		return err
	}
	*id = MerchandiseID(u)
	return nil
}

func (id MerchandiseID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }

func (id *MerchandiseID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }

// ParseOrderID parses and validates an order identifier.
func ParseOrderID(s string) (OrderID, error) {
	u, err := parseUUID(s, "order")
	return OrderID(u), err
}

// NewOrderID returns a fresh random order identifier.
func NewOrderID() OrderID { return OrderID(uuid.New()) }

func (id OrderID) String() string { return uuid.UUID(id).String() }
func (id OrderID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id OrderID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *OrderID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text, "order")
	if err != nil {
		return err
	}
	*id = OrderID(u)
	return nil
}

func (id OrderID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }

func (id *OrderID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }

// ParseTicketID parses and validates a ticket identifier.
func ParseTicketID(s string) (TicketID, error) {
	u, err := parseUUID(s, "ticket")
	return TicketID(u), err
}

// NewTicketID returns a fresh random ticket identifier.
func NewTicketID() TicketID { return TicketID(uuid.New()) }

func (id TicketID) String() string { return uuid.UUID(id).String() }
func (id TicketID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id TicketID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *TicketID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text, "ticket")
	if err != nil {
		return err
	}
	*id = TicketID(u)
	return nil
}

func (id TicketID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }

func (id *TicketID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }

// ParseMerchandiseLineID parses and validates a merchandise line identifier.
func ParseMerchandiseLineID(s string) (MerchandiseLineID, error) {
	u, err := parseUUID(s, "merchandise line")
	return MerchandiseLineID(u), err
}

// NewMerchandiseLineID returns a fresh random merchandise line identifier.
func NewMerchandiseLineID() MerchandiseLineID { return MerchandiseLineID(uuid.New()) }

func (id MerchandiseLineID) String() string { return uuid.UUID(id).String() }
func (id MerchandiseLineID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id MerchandiseLineID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *MerchandiseLineID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text, "merchandise line")
	if err != nil {
		return err
	}
	*id = MerchandiseLineID(u)
	return nil
}

func (id MerchandiseLineID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }

func (id *MerchandiseLineID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }

// ParseSavedParticipantID parses and validates a saved participant identifier.
func ParseSavedParticipantID(s string) (SavedParticipantID, error) {
	u, err := parseUUID(s, "saved participant")
	return SavedParticipantID(u), err
}

// NewSavedParticipantID returns a fresh random saved participant identifier.
func NewSavedParticipantID() SavedParticipantID { return SavedParticipantID(uuid.New()) }

func (id SavedParticipantID) String() string { return uuid.UUID(id).String() }
func (id SavedParticipantID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id SavedParticipantID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *SavedParticipantID) UnmarshalText(text []byte) error {
	u, err := unmarshalUUID(text, "saved participant")
	if err != nil {
		return err
	}
	*id = SavedParticipantID(u)
	return nil
}

func (id SavedParticipantID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }

func (id *SavedParticipantID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
