package store

import (
	"context"
	"slices"
	"sync"

	"startingline/internal/registration/models"
	id "startingline/pkg/domain"
	"startingline/pkg/platform/sentinel"
	"startingline/pkg/platform/tx"
)

// InMemoryStore keeps the catalog and registration records in maps. Counter
// updates check and mutate under one lock, mirroring the conditional UPDATE of
// the Postgres store, and undo by inverse operation so concurrent units of
// work roll back independently.
type InMemoryStore struct {
	mu          sync.RWMutex
	events      map[id.EventID]*models.Event
	distances   map[id.DistanceID]*models.Distance
	merchandise map[id.MerchandiseID]*models.MerchandiseItem
	orders      map[id.OrderID]*models.Order
	tickets     []*models.Ticket
	lines       []*models.MerchandiseLine
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		events:      make(map[id.EventID]*models.Event),
		distances:   make(map[id.DistanceID]*models.Distance),
		merchandise: make(map[id.MerchandiseID]*models.MerchandiseItem),
		orders:      make(map[id.OrderID]*models.Order),
	}
}

func (s *InMemoryStore) SaveEvent(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *event
	s.events[event.ID] = &stored
	return nil
}

func (s *InMemoryStore) SaveDistance(_ context.Context, distance *models.Distance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.distances[distance.ID] = copyDistance(distance)
	return nil
}

func (s *InMemoryStore) SaveMerchandise(_ context.Context, item *models.MerchandiseItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merchandise[item.ID] = copyItem(item)
	return nil
}

func (s *InMemoryStore) FindEvent(_ context.Context, eventID id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.events[eventID]; ok {
		found := *e
		return &found, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindDistance(_ context.Context, distanceID id.DistanceID) (*models.Distance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.distances[distanceID]; ok {
		return copyDistance(d), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindMerchandise(_ context.Context, itemID id.MerchandiseID) (*models.MerchandiseItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.merchandise[itemID]; ok {
		return copyItem(m), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) IncrementParticipants(ctx context.Context, distanceID id.DistanceID) (*models.Distance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.distances[distanceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if d.Limited() && (d.IsFull || d.CurrentParticipants >= *d.EntryLimit) {
		return nil, sentinel.ErrExhausted
	}
	d.CurrentParticipants++
	d.IsFull = d.Limited() && d.CurrentParticipants >= *d.EntryLimit

	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		d.CurrentParticipants--
		d.IsFull = d.Limited() && d.CurrentParticipants >= *d.EntryLimit
	})
	return copyDistance(d), nil
}

func (s *InMemoryStore) DecrementStock(ctx context.Context, itemID id.MerchandiseID, quantity int) (*models.MerchandiseItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.merchandise[itemID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if m.CurrentStock == nil || *m.CurrentStock < quantity {
		return nil, sentinel.ErrExhausted
	}
	*m.CurrentStock -= quantity

	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		*m.CurrentStock += quantity
	})
	return copyItem(m), nil
}

func (s *InMemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[order.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := *order
	s.orders[order.ID] = &stored
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.orders, order.ID)
	})
	return nil
}

func (s *InMemoryStore) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *ticket
	s.tickets = append(s.tickets, &stored)
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tickets = slices.DeleteFunc(s.tickets, func(t *models.Ticket) bool { return t == &stored })
	})
	return nil
}

func (s *InMemoryStore) CreateMerchandiseLine(ctx context.Context, line *models.MerchandiseLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *line
	s.lines = append(s.lines, &stored)
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lines = slices.DeleteFunc(s.lines, func(l *models.MerchandiseLine) bool { return l == &stored })
	})
	return nil
}

func (s *InMemoryStore) FindOrder(_ context.Context, orderID id.OrderID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.orders[orderID]; ok {
		found := *o
		return &found, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListTicketsByOrder(_ context.Context, orderID id.OrderID) ([]*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Ticket
	for _, t := range s.tickets {
		if t.OrderID == orderID {
			found := *t
			out = append(out, &found)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListTicketsByDistance(_ context.Context, distanceID id.DistanceID) ([]*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Ticket
	for _, t := range s.tickets {
		if t.DistanceID == distanceID {
			found := *t
			out = append(out, &found)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListMerchandiseLinesByTicket(_ context.Context, ticketID id.TicketID) ([]*models.MerchandiseLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.MerchandiseLine
	for _, l := range s.lines {
		if l.TicketID == ticketID {
			found := *l
			out = append(out, &found)
		}
	}
	return out, nil
}

// CountOrders reports how many orders are on record.
func (s *InMemoryStore) CountOrders() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func copyDistance(d *models.Distance) *models.Distance {
	c := *d
	if d.EntryLimit != nil {
		limit := *d.EntryLimit
		c.EntryLimit = &limit
	}
	return &c
}

func copyItem(m *models.MerchandiseItem) *models.MerchandiseItem {
	c := *m
	if m.CurrentStock != nil {
		stock := *m.CurrentStock
		c.CurrentStock = &stock
	}
	c.Variations = slices.Clone(m.Variations)
	return &c
}
