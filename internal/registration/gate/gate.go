// Package gate guards the two shared counters a registration mutates:
// distance capacity and merchandise stock. Both gates delegate the
// check-and-mutate to a single atomic store operation; there is no
// read-compare-write path.
package gate

import (
	"context"
	"errors"
	"fmt"

	"startingline/internal/registration/models"
	id "startingline/pkg/domain"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/platform/sentinel"
)

// CapacityStore increments a distance's participant counter only while it is
// below its entry limit, returning the updated distance. It returns
// sentinel.ErrExhausted when no place is left and sentinel.ErrNotFound for an
// unknown distance.
type CapacityStore interface {
	IncrementParticipants(ctx context.Context, distanceID id.DistanceID) (*models.Distance, error)
}

// StockStore reads and atomically decrements merchandise stock. The decrement
// returns sentinel.ErrExhausted when stock is short or unknown.
type StockStore interface {
	FindMerchandise(ctx context.Context, itemID id.MerchandiseID) (*models.MerchandiseItem, error)
	DecrementStock(ctx context.Context, itemID id.MerchandiseID, quantity int) (*models.MerchandiseItem, error)
}

type Capacity struct {
	store CapacityStore
}

func NewCapacity(store CapacityStore) *Capacity {
	return &Capacity{store: store}
}

// Reserve claims one place on distance. Unlimited distances always grant.
func (c *Capacity) Reserve(ctx context.Context, distance *models.Distance) (*models.Distance, error) {
	if distance.Limited() && distance.IsFull {
		return nil, soldOut(distance)
	}
	updated, err := c.store.IncrementParticipants(ctx, distance.ID)
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, sentinel.ErrExhausted):
		return nil, soldOut(distance)
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("distance %s not found", distance.Name))
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve capacity")
	}
}

func soldOut(distance *models.Distance) error {
	return dErrors.New(dErrors.CodeCapacityExceeded, fmt.Sprintf("%s is sold out", distance.Name))
}

type Stock struct {
	store StockStore
}

func NewStock(store StockStore) *Stock {
	return &Stock{store: store}
}

// Check verifies that quantity units of item are on hand without reserving
// them. Reserve remains the authoritative check.
func (s *Stock) Check(ctx context.Context, item *models.MerchandiseItem, quantity int) error {
	current, err := s.store.FindMerchandise(ctx, item.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return notFound(item)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check stock")
	}
	if current.CurrentStock == nil {
		return notFound(item)
	}
	if *current.CurrentStock < quantity {
		return insufficient(item, *current.CurrentStock)
	}
	return nil
}

// Reserve atomically takes quantity units of item out of stock.
func (s *Stock) Reserve(ctx context.Context, item *models.MerchandiseItem, quantity int) (*models.MerchandiseItem, error) {
	if quantity <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "quantity must be at least 1")
	}
	updated, err := s.store.DecrementStock(ctx, item.ID, quantity)
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, sentinel.ErrExhausted):
		return nil, dErrors.New(dErrors.CodeStockInsufficient, fmt.Sprintf("not enough %s in stock", item.Name))
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, notFound(item)
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve stock")
	}
}

func notFound(item *models.MerchandiseItem) error {
	return dErrors.New(dErrors.CodeStockInsufficient, fmt.Sprintf("%s not found", item.Name))
}

func insufficient(item *models.MerchandiseItem, available int) error {
	return dErrors.New(dErrors.CodeStockInsufficient, fmt.Sprintf("not enough %s in stock (%d left)", item.Name, available))
}
