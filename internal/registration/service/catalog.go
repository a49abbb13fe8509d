package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"startingline/internal/registration/models"
	"startingline/internal/registration/pricing"
	id "startingline/pkg/domain"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/email"
	"startingline/pkg/platform/sentinel"
)

const catalogLoadConcurrency = 8

// catalog is the snapshot of catalog rows a cart refers to. Counters in it
// are informational; the gates re-check them atomically.
type catalog struct {
	event     *models.Event
	distances map[id.DistanceID]*models.Distance
	items     map[id.MerchandiseID]*models.MerchandiseItem
}

// validateCart checks the cart shape. It needs no store access.
func validateCart(cart *models.Cart) error {
	if cart == nil || cart.EventID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "event id is required")
	}
	if len(cart.Lines) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one participant is required")
	}
	if cart.LicenseFees.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "license fees must not be negative")
	}

	for i, line := range cart.Lines {
		n := i + 1
		if line.DistanceID.IsNil() {
			return lineError(n, "distance id is required")
		}
		p := line.Participant
		switch {
		case strings.TrimSpace(p.FirstName) == "":
			return lineError(n, "first name is required")
		case strings.TrimSpace(p.LastName) == "":
			return lineError(n, "last name is required")
		case strings.TrimSpace(p.Email) == "":
			return lineError(n, "email is required")
		case !email.LooksValid(p.Email):
			return lineError(n, "email is invalid")
		case p.DateOfBirth.IsZero():
			return lineError(n, "date of birth is required")
		}
		if line.AdjustedPrice != nil && line.AdjustedPrice.IsNegative() {
			return lineError(n, "adjusted price must not be negative")
		}
		for _, m := range line.Merchandise {
			if m.MerchandiseID.IsNil() {
				return lineError(n, "merchandise id is required")
			}
			if m.Quantity < 1 {
				return lineError(n, "merchandise quantity must be at least 1")
			}
		}
	}
	return nil
}

func lineError(n int, msg string) error {
	return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("participant %d: %s", n, msg))
}

// loadCatalog fetches the event and every distinct distance and item in
// parallel. It runs before the unit of work opens.
func (s *Service) loadCatalog(ctx context.Context, cart *models.Cart) (*catalog, error) {
	ctx, span := s.tracer.Start(ctx, "registration.loadCatalog")
	defer span.End()

	cat := &catalog{
		distances: make(map[id.DistanceID]*models.Distance),
		items:     make(map[id.MerchandiseID]*models.MerchandiseItem),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(catalogLoadConcurrency)

	g.Go(func() error {
		event, err := s.store.FindEvent(gctx, cart.EventID)
		if err != nil {
			return notFoundAs(err, "event not found", "failed to load event")
		}
		mu.Lock()
		cat.event = event
		mu.Unlock()
		return nil
	})

	seenDistances := make(map[id.DistanceID]bool)
	seenItems := make(map[id.MerchandiseID]bool)
	for _, line := range cart.Lines {
		if !seenDistances[line.DistanceID] {
			seenDistances[line.DistanceID] = true
			distanceID := line.DistanceID
			g.Go(func() error {
				d, err := s.store.FindDistance(gctx, distanceID)
				if err != nil {
					return notFoundAs(err, "distance not found", "failed to load distance")
				}
				mu.Lock()
				cat.distances[distanceID] = d
				mu.Unlock()
				return nil
			})
		}
		for _, m := range line.Merchandise {
			if seenItems[m.MerchandiseID] {
				continue
			}
			seenItems[m.MerchandiseID] = true
			itemID := m.MerchandiseID
			g.Go(func() error {
				item, err := s.store.FindMerchandise(gctx, itemID)
				if err != nil {
					return notFoundAs(err, "merchandise item not found", "failed to load merchandise")
				}
				mu.Lock()
				cat.items[itemID] = item
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cat, nil
}

func notFoundAs(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeValidation, notFoundMsg)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internalMsg)
}

// validate checks the cart against catalog rows: ownership by the event,
// known variations and minimum ages on today.
func (c *catalog) validate(cart *models.Cart, today time.Time) error {
	for i, line := range cart.Lines {
		n := i + 1
		d := c.distances[line.DistanceID]
		if d.EventID != c.event.ID {
			return lineError(n, fmt.Sprintf("distance %s does not belong to %s", d.Name, c.event.Name))
		}
		if line.Participant.DateOfBirth.After(today) {
			return lineError(n, "date of birth is in the future")
		}
		age := pricing.AgeOn(line.Participant.DateOfBirth, today)
		if !pricing.MeetsMinimumAge(d, age) {
			return lineError(n, fmt.Sprintf("%s must be at least %d years old for %s",
				line.Participant.FullName(), d.MinAge, d.Name))
		}
		for _, m := range line.Merchandise {
			item := c.items[m.MerchandiseID]
			if item.EventID != c.event.ID {
				return lineError(n, fmt.Sprintf("%s is not sold at %s", item.Name, c.event.Name))
			}
			if m.VariationID != "" {
				if _, ok := item.Variation(m.VariationID); !ok {
					return lineError(n, fmt.Sprintf("unknown option for %s", item.Name))
				}
			}
		}
	}
	return nil
}
