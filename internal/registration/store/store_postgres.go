package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"startingline/internal/platform/postgres"
	"startingline/internal/registration/models"
	id "startingline/pkg/domain"
	"startingline/pkg/money"
	"startingline/pkg/platform/sentinel"
)

// PostgresStore persists the catalog and registration records. Every method
// joins the unit of work carried by ctx when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	distanceColumns = `id, event_id, name, price_cents, min_age, entry_limit, free_for_seniors,
		senior_age_threshold, free_for_disability, current_participants, is_full`
	merchandiseColumns = `id, event_id, name, price_cents, current_stock, variations`
	ticketColumns      = `id, order_id, distance_id, first_name, last_name, email, mobile, date_of_birth, disabled,
		medical_aid_name, medical_aid_number, emergency_contact_name, emergency_contact_number,
		amount_cents, computed_amount_cents, waiver, status, created_at`
)

type scanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) SaveEvent(ctx context.Context, e *models.Event) error {
	query := `
		INSERT INTO events (id, name, start_date, start_time, city, category, free_for_disabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			start_date = EXCLUDED.start_date,
			start_time = EXCLUDED.start_time,
			city = EXCLUDED.city,
			category = EXCLUDED.category,
			free_for_disabled = EXCLUDED.free_for_disabled
	`
	_, err := postgres.Executor(ctx, s.db).ExecContext(ctx, query,
		e.ID, e.Name, e.StartDate, e.StartTime, e.City, e.Category, e.FreeForDisabled)
	if err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveDistance(ctx context.Context, d *models.Distance) error {
	query := `
		INSERT INTO distances (` + distanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price_cents = EXCLUDED.price_cents,
			min_age = EXCLUDED.min_age,
			entry_limit = EXCLUDED.entry_limit,
			free_for_seniors = EXCLUDED.free_for_seniors,
			senior_age_threshold = EXCLUDED.senior_age_threshold,
			free_for_disability = EXCLUDED.free_for_disability,
			current_participants = EXCLUDED.current_participants,
			is_full = EXCLUDED.is_full
	`
	_, err := postgres.Executor(ctx, s.db).ExecContext(ctx, query,
		d.ID, d.EventID, d.Name, d.Price.Cents(), d.MinAge, nullInt(d.EntryLimit), d.FreeForSeniors,
		d.SeniorAgeThreshold, d.FreeForDisability, d.CurrentParticipants, d.IsFull)
	if err != nil {
		return fmt.Errorf("save distance: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveMerchandise(ctx context.Context, m *models.MerchandiseItem) error {
	variations, err := json.Marshal(nonNilVariations(m.Variations))
	if err != nil {
		return fmt.Errorf("encode variations: %w", err)
	}
	query := `
		INSERT INTO merchandise_items (` + merchandiseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price_cents = EXCLUDED.price_cents,
			current_stock = EXCLUDED.current_stock,
			variations = EXCLUDED.variations
	`
	_, err = postgres.Executor(ctx, s.db).ExecContext(ctx, query,
		m.ID, m.EventID, m.Name, m.Price.Cents(), nullInt(m.CurrentStock), string(variations))
	if err != nil {
		return fmt.Errorf("save merchandise: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindEvent(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	var e models.Event
	err := postgres.Executor(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, name, start_date, start_time, city, category, free_for_disabled
		FROM events
		WHERE id = $1
	`, eventID).Scan(&e.ID, &e.Name, &e.StartDate, &e.StartTime, &e.City, &e.Category, &e.FreeForDisabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) FindDistance(ctx context.Context, distanceID id.DistanceID) (*models.Distance, error) {
	d, err := scanDistance(postgres.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+distanceColumns+` FROM distances WHERE id = $1`, distanceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find distance: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) FindMerchandise(ctx context.Context, itemID id.MerchandiseID) (*models.MerchandiseItem, error) {
	m, err := scanMerchandise(postgres.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+merchandiseColumns+` FROM merchandise_items WHERE id = $1`, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find merchandise: %w", err)
	}
	return m, nil
}

// IncrementParticipants claims a place with one conditional UPDATE. Two
// concurrent claims on the last place serialise on the row lock; the loser
// re-evaluates the WHERE clause against the committed counter and matches
// nothing.
func (s *PostgresStore) IncrementParticipants(ctx context.Context, distanceID id.DistanceID) (*models.Distance, error) {
	exec := postgres.Executor(ctx, s.db)
	query := `
		UPDATE distances
		SET current_participants = current_participants + 1,
			is_full = (entry_limit IS NOT NULL AND entry_limit > 0
				AND current_participants + 1 >= entry_limit)
		WHERE id = $1
		  AND (entry_limit IS NULL OR entry_limit = 0
			OR (NOT is_full AND current_participants < entry_limit))
		RETURNING ` + distanceColumns
	d, err := scanDistance(exec.QueryRowContext(ctx, query, distanceID))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("increment participants: %w", err)
	}
	return nil, s.missOrExhausted(ctx, exec, `SELECT EXISTS (SELECT 1 FROM distances WHERE id = $1)`, distanceID)
}

// DecrementStock takes quantity units with one conditional UPDATE. Unknown
// (NULL) stock never matches.
func (s *PostgresStore) DecrementStock(ctx context.Context, itemID id.MerchandiseID, quantity int) (*models.MerchandiseItem, error) {
	exec := postgres.Executor(ctx, s.db)
	query := `
		UPDATE merchandise_items
		SET current_stock = current_stock - $2
		WHERE id = $1
		  AND current_stock IS NOT NULL
		  AND current_stock >= $2
		RETURNING ` + merchandiseColumns
	m, err := scanMerchandise(exec.QueryRowContext(ctx, query, itemID, quantity))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		if postgres.IsCheckViolation(err) {
			return nil, sentinel.ErrExhausted
		}
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	return nil, s.missOrExhausted(ctx, exec, `SELECT EXISTS (SELECT 1 FROM merchandise_items WHERE id = $1)`, itemID)
}

func (s *PostgresStore) missOrExhausted(ctx context.Context, exec postgres.Queryer, query string, arg any) error {
	var exists bool
	if err := exec.QueryRowContext(ctx, query, arg).Scan(&exists); err != nil {
		return fmt.Errorf("check existence: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrExhausted
}

func (s *PostgresStore) CreateOrder(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (id, account_id, event_id, total_cents, license_fee_cents, status, channel,
			emergency_contact_name, emergency_contact_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := postgres.Executor(ctx, s.db).ExecContext(ctx, query,
		o.ID, o.AccountID, o.EventID, o.Total.Cents(), o.LicenseFees.Cents(), string(o.Status), o.Channel,
		o.EmergencyContactName, o.EmergencyContactNumber, o.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	p := t.Participant
	query := `INSERT INTO tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := postgres.Executor(ctx, s.db).ExecContext(ctx, query,
		t.ID, t.OrderID, t.DistanceID, p.FirstName, p.LastName, p.Email, p.Mobile, p.DateOfBirth, p.Disabled,
		p.MedicalAidName, p.MedicalAidNumber, p.EmergencyContactName, p.EmergencyContactNumber,
		t.Amount.Cents(), t.ComputedAmount.Cents(), t.Waiver, string(t.Status), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateMerchandiseLine(ctx context.Context, l *models.MerchandiseLine) error {
	query := `
		INSERT INTO merchandise_lines (id, ticket_id, merchandise_id, variation_id, variation_label,
			quantity, unit_price_cents, total_price_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := postgres.Executor(ctx, s.db).ExecContext(ctx, query,
		l.ID, l.TicketID, l.MerchandiseID, l.VariationID, l.VariationLabel,
		l.Quantity, l.UnitPrice.Cents(), l.TotalPrice.Cents())
	if err != nil {
		return fmt.Errorf("create merchandise line: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindOrder(ctx context.Context, orderID id.OrderID) (*models.Order, error) {
	var (
		o                  models.Order
		total, licenseFees int64
		status             string
	)
	err := postgres.Executor(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, account_id, event_id, total_cents, license_fee_cents, status, channel,
			emergency_contact_name, emergency_contact_number, created_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(&o.ID, &o.AccountID, &o.EventID, &total, &licenseFees, &status, &o.Channel,
		&o.EmergencyContactName, &o.EmergencyContactNumber, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	o.Total = money.FromCents(total)
	o.LicenseFees = money.FromCents(licenseFees)
	o.Status = models.OrderStatus(status)
	return &o, nil
}

func (s *PostgresStore) ListTicketsByOrder(ctx context.Context, orderID id.OrderID) ([]*models.Ticket, error) {
	return s.listTickets(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE order_id = $1 ORDER BY created_at, id`, orderID)
}

func (s *PostgresStore) ListTicketsByDistance(ctx context.Context, distanceID id.DistanceID) ([]*models.Ticket, error) {
	return s.listTickets(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE distance_id = $1 ORDER BY created_at, id`, distanceID)
}

func (s *PostgresStore) listTickets(ctx context.Context, query string, arg any) ([]*models.Ticket, error) {
	rows, err := postgres.Executor(ctx, s.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var out []*models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListMerchandiseLinesByTicket(ctx context.Context, ticketID id.TicketID) ([]*models.MerchandiseLine, error) {
	rows, err := postgres.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT id, ticket_id, merchandise_id, variation_id, variation_label, quantity,
			unit_price_cents, total_price_cents
		FROM merchandise_lines
		WHERE ticket_id = $1
		ORDER BY id
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list merchandise lines: %w", err)
	}
	defer rows.Close()

	var out []*models.MerchandiseLine
	for rows.Next() {
		var (
			l                 models.MerchandiseLine
			unitPrice, amount int64
		)
		if err := rows.Scan(&l.ID, &l.TicketID, &l.MerchandiseID, &l.VariationID, &l.VariationLabel,
			&l.Quantity, &unitPrice, &amount); err != nil {
			return nil, fmt.Errorf("scan merchandise line: %w", err)
		}
		l.UnitPrice = money.FromCents(unitPrice)
		l.TotalPrice = money.FromCents(amount)
		out = append(out, &l)
	}
	return out, rows.Err()
}

func scanDistance(row scanner) (*models.Distance, error) {
	var (
		d          models.Distance
		price      int64
		entryLimit sql.NullInt32
	)
	if err := row.Scan(&d.ID, &d.EventID, &d.Name, &price, &d.MinAge, &entryLimit, &d.FreeForSeniors,
		&d.SeniorAgeThreshold, &d.FreeForDisability, &d.CurrentParticipants, &d.IsFull); err != nil {
		return nil, err
	}
	d.Price = money.FromCents(price)
	d.EntryLimit = intPtr(entryLimit)
	return &d, nil
}

func scanMerchandise(row scanner) (*models.MerchandiseItem, error) {
	var (
		m          models.MerchandiseItem
		price      int64
		stock      sql.NullInt32
		variations []byte
	)
	if err := row.Scan(&m.ID, &m.EventID, &m.Name, &price, &stock, &variations); err != nil {
		return nil, err
	}
	m.Price = money.FromCents(price)
	m.CurrentStock = intPtr(stock)
	if len(variations) > 0 {
		if err := json.Unmarshal(variations, &m.Variations); err != nil {
			return nil, fmt.Errorf("decode variations: %w", err)
		}
	}
	return &m, nil
}

func scanTicket(row scanner) (*models.Ticket, error) {
	var (
		t                models.Ticket
		amount, computed int64
		status           string
	)
	p := &t.Participant
	if err := row.Scan(&t.ID, &t.OrderID, &t.DistanceID, &p.FirstName, &p.LastName, &p.Email, &p.Mobile,
		&p.DateOfBirth, &p.Disabled, &p.MedicalAidName, &p.MedicalAidNumber, &p.EmergencyContactName,
		&p.EmergencyContactNumber, &amount, &computed, &t.Waiver, &status, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Amount = money.FromCents(amount)
	t.ComputedAmount = money.FromCents(computed)
	t.Status = models.TicketStatus(status)
	return &t, nil
}

func intPtr(n sql.NullInt32) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}

func nullInt(n *int) sql.NullInt32 {
	if n == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*n), Valid: true}
}

func nonNilVariations(v []models.Variation) []models.Variation {
	if v == nil {
		return []models.Variation{}
	}
	return v
}
