package service

import (
	"context"
	"time"

	accountmodels "startingline/internal/account/models"
	"startingline/internal/notification"
	participantmodels "startingline/internal/participant/models"
	"startingline/internal/registration/models"
	"startingline/internal/registration/pricing"
	id "startingline/pkg/domain"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/money"
	"startingline/pkg/requestcontext"
)

// pricedLine is one cart line after pricing, ready to persist.
type pricedLine struct {
	line     models.CartLine
	distance *models.Distance
	quote    pricing.Quote
	amount   money.Amount
	items    []pricedItem
}

type pricedItem struct {
	req       models.MerchandiseRequest
	item      *models.MerchandiseItem
	variation models.Variation
	total     money.Amount
}

// commit runs inside the unit of work. Any returned error rolls back every
// write made through ctx.
func (s *Service) commit(ctx context.Context, cart *models.Cart, cat *catalog, today time.Time) (*models.Result, error) {
	ctx, span := s.tracer.Start(ctx, "registration.commit")
	defer span.End()

	resolution, err := s.accounts.Resolve(ctx, requestcontext.AccountID(ctx), cart.Holder)
	if err != nil {
		return nil, err
	}

	if err := s.checkStock(ctx, cart, cat); err != nil {
		return nil, err
	}
	for _, line := range cart.Lines {
		if _, err := s.capacity.Reserve(ctx, cat.distances[line.DistanceID]); err != nil {
			return nil, err
		}
	}

	priced, total := s.price(ctx, cart, cat, resolution, today)

	now := requestcontext.Now(ctx)
	order := &models.Order{
		ID:                     id.NewOrderID(),
		AccountID:              resolution.Account.ID,
		EventID:                cat.event.ID,
		Total:                  total,
		LicenseFees:            cart.LicenseFees,
		Status:                 models.OrderPending,
		Channel:                requestcontext.Channel(ctx),
		EmergencyContactName:   cart.Holder.EmergencyContactName,
		EmergencyContactNumber: cart.Holder.EmergencyContactNumber,
		CreatedAt:              now,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create order")
	}

	result := &models.Result{
		Order:          order,
		Event:          cat.event,
		Account:        resolution.Account,
		AccountCreated: resolution.Created,
	}
	for _, pl := range priced {
		ticket := &models.Ticket{
			ID:             id.NewTicketID(),
			OrderID:        order.ID,
			DistanceID:     pl.distance.ID,
			Participant:    pl.line.Participant,
			Amount:         pl.amount,
			ComputedAmount: pl.quote.Amount,
			Waiver:         string(pl.quote.Waiver),
			Status:         models.TicketActive,
			CreatedAt:      now,
		}
		if err := s.store.CreateTicket(ctx, ticket); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create ticket")
		}
		result.Tickets = append(result.Tickets, ticket)

		for _, pi := range pl.items {
			if _, err := s.stock.Reserve(ctx, pi.item, pi.req.Quantity); err != nil {
				return nil, err
			}
			line := &models.MerchandiseLine{
				ID:             id.NewMerchandiseLineID(),
				TicketID:       ticket.ID,
				MerchandiseID:  pi.item.ID,
				VariationID:    pi.variation.ID,
				VariationLabel: pi.variation.Label(),
				Quantity:       pi.req.Quantity,
				UnitPrice:      pi.item.Price,
				TotalPrice:     pi.total,
			}
			if err := s.store.CreateMerchandiseLine(ctx, line); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create merchandise line")
			}
			result.Lines = append(result.Lines, line)
		}
	}

	if err := verifyTotal(result); err != nil {
		return nil, err
	}

	s.syncSavedParticipants(ctx, resolution.Profile.ID, cart)
	return result, nil
}

// checkStock pre-validates merchandise before any capacity is claimed, with
// quantities summed per item across the whole cart.
func (s *Service) checkStock(ctx context.Context, cart *models.Cart, cat *catalog) error {
	need := make(map[id.MerchandiseID]int)
	var order []id.MerchandiseID
	for _, line := range cart.Lines {
		for _, m := range line.Merchandise {
			if _, seen := need[m.MerchandiseID]; !seen {
				order = append(order, m.MerchandiseID)
			}
			need[m.MerchandiseID] += m.Quantity
		}
	}
	for _, itemID := range order {
		if err := s.stock.Check(ctx, cat.items[itemID], need[itemID]); err != nil {
			return err
		}
	}
	return nil
}

// price quotes every participant and merchandise line. The order total is
// the sum of ticket amounts, line totals and license fees.
func (s *Service) price(ctx context.Context, cart *models.Cart, cat *catalog, resolution *accountmodels.Resolution, today time.Time) ([]pricedLine, money.Amount) {
	mayOverride := !requestcontext.AccountID(ctx).IsNil() && resolution.Account.Role.CanOverridePrice()

	total := cart.LicenseFees
	priced := make([]pricedLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		d := cat.distances[line.DistanceID]
		quote := pricing.Price(d, cat.event, line.Participant, today)
		amount := quote.Amount

		if line.AdjustedPrice != nil {
			if mayOverride {
				amount = *line.AdjustedPrice
			} else {
				s.logger.WarnContext(ctx, "ignoring adjusted price from unprivileged caller",
					"distance_id", d.ID.String(),
					"requested", line.AdjustedPrice.String(),
					"computed", quote.Amount.String(),
					"request_id", requestcontext.RequestID(ctx),
				)
			}
		}

		pl := pricedLine{line: line, distance: d, quote: quote, amount: amount}
		total += amount
		for _, req := range line.Merchandise {
			item := cat.items[req.MerchandiseID]
			variation, _ := item.Variation(req.VariationID)
			lineTotal := item.Price.Mul(req.Quantity)
			pl.items = append(pl.items, pricedItem{req: req, item: item, variation: variation, total: lineTotal})
			total += lineTotal
		}
		priced = append(priced, pl)
	}
	return priced, total
}

// verifyTotal guards the order total invariant before commit.
func verifyTotal(r *models.Result) error {
	sum := r.Order.LicenseFees
	for _, t := range r.Tickets {
		sum += t.Amount
	}
	for _, l := range r.Lines {
		sum += l.TotalPrice
	}
	if sum != r.Order.Total {
		return dErrors.New(dErrors.CodeInvariantViolation, "order total does not match its tickets and merchandise")
	}
	return nil
}

// syncSavedParticipants remembers each participant for prefill. Each upsert
// runs in its own savepoint; a failure is logged and skipped.
func (s *Service) syncSavedParticipants(ctx context.Context, profileID id.ProfileID, cart *models.Cart) {
	if s.participants == nil {
		return
	}
	for _, line := range cart.Lines {
		p := line.Participant
		err := s.tx.RunInSavepoint(ctx, func(ctx context.Context) error {
			_, err := s.participants.UpsertIfAbsent(ctx, profileID, participantmodels.Details{
				FirstName:              p.FirstName,
				LastName:               p.LastName,
				Email:                  p.Email,
				Mobile:                 p.Mobile,
				DateOfBirth:            p.DateOfBirth,
				Disabled:               p.Disabled,
				MedicalAidName:         p.MedicalAidName,
				MedicalAidNumber:       p.MedicalAidNumber,
				EmergencyContactName:   p.EmergencyContactName,
				EmergencyContactNumber: p.EmergencyContactNumber,
			})
			return err
		})
		if err != nil {
			s.metrics.IncrementSavedParticipantFailures()
			s.logger.WarnContext(ctx, "failed to save participant for reuse",
				"error", err,
				"profile_id", profileID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
}

// afterCommit runs once the unit of work is durable. Nothing here can fail
// the registration.
func (s *Service) afterCommit(ctx context.Context, result *models.Result, cat *catalog) {
	if s.notifier != nil {
		s.notifier.Enqueue(ctx, confirmationFor(ctx, result, cat))
	}

	if !result.AccountCreated || s.tokens == nil {
		return
	}
	token, err := s.tokens.GenerateIdentityToken(result.Account.ID, result.Account.Email, string(result.Account.Role))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to mint identity token for new account",
			"error", err,
			"account_id", result.Account.ID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	result.Token = token
}

func confirmationFor(ctx context.Context, result *models.Result, cat *catalog) notification.Confirmation {
	c := notification.Confirmation{
		OrderID:     result.Order.ID,
		AccountID:   result.Account.ID,
		Email:       result.Account.Email,
		EventName:   cat.event.Name,
		StartDate:   cat.event.StartDate,
		Total:       result.Order.Total,
		RequestID:   requestcontext.RequestID(ctx),
		CommittedAt: result.Order.CreatedAt,
	}
	for _, t := range result.Tickets {
		c.Tickets = append(c.Tickets, notification.TicketSummary{
			TicketID:        t.ID,
			ParticipantName: t.Participant.FullName(),
			Email:           t.Participant.Email,
			Distance:        cat.distances[t.DistanceID].Name,
			Amount:          t.Amount,
		})
	}
	return c
}
