// Package service coordinates a registration: it validates the cart, resolves
// the purchasing account, reserves capacity and stock, prices every
// participant and writes the order, all inside one unit of work.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	accountmodels "startingline/internal/account/models"
	"startingline/internal/notification"
	participantmodels "startingline/internal/participant/models"
	"startingline/internal/platform/metrics"
	"startingline/internal/registration/gate"
	"startingline/internal/registration/models"
	id "startingline/pkg/domain"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/platform/sentinel"
	"startingline/pkg/platform/tx"
	"startingline/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks AccountResolver,ParticipantSync,Notifier,TokenIssuer

// Catalog reads events, distances and merchandise.
type Catalog interface {
	FindEvent(ctx context.Context, eventID id.EventID) (*models.Event, error)
	FindDistance(ctx context.Context, distanceID id.DistanceID) (*models.Distance, error)
	FindMerchandise(ctx context.Context, itemID id.MerchandiseID) (*models.MerchandiseItem, error)
}

// OrderWriter persists the records of a registration.
type OrderWriter interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	CreateMerchandiseLine(ctx context.Context, line *models.MerchandiseLine) error
}

// Store is everything the coordinator needs from persistence.
type Store interface {
	Catalog
	OrderWriter
	gate.CapacityStore
	gate.StockStore
}

type AccountResolver interface {
	Resolve(ctx context.Context, authenticated id.AccountID, holder accountmodels.Holder) (*accountmodels.Resolution, error)
}

type ParticipantSync interface {
	UpsertIfAbsent(ctx context.Context, profileID id.ProfileID, details participantmodels.Details) (*participantmodels.SavedParticipant, error)
}

type Notifier interface {
	Enqueue(ctx context.Context, c notification.Confirmation)
}

type TokenIssuer interface {
	GenerateIdentityToken(accountID id.AccountID, email, role string) (string, error)
}

type Service struct {
	store        Store
	accounts     AccountResolver
	tx           tx.Manager
	capacity     *gate.Capacity
	stock        *gate.Stock
	participants ParticipantSync
	notifier     Notifier
	tokens       TokenIssuer
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithParticipantSync(p ParticipantSync) Option {
	return func(s *Service) {
		s.participants = p
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithTokenIssuer(t TokenIssuer) Option {
	return func(s *Service) {
		s.tokens = t
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(store Store, accounts AccountResolver, txManager tx.Manager, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("registration store is required")
	}
	if accounts == nil {
		return nil, errors.New("account resolver is required")
	}
	if txManager == nil {
		return nil, errors.New("transaction manager is required")
	}
	svc := &Service{
		store:    store,
		accounts: accounts,
		tx:       txManager,
		capacity: gate.NewCapacity(store),
		stock:    gate.NewStock(store),
		logger:   slog.Default(),
		tracer:   otel.Tracer("startingline/internal/registration"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register turns cart into a committed order. On any error nothing is
// persisted: no account, order, ticket, stock or capacity change survives.
func (s *Service) Register(ctx context.Context, cart *models.Cart) (*models.Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "registration.Register",
		trace.WithAttributes(attribute.Int("registration.participants", len(cart.Lines))))
	defer span.End()

	result, err := s.register(ctx, cart)
	s.metrics.ObserveTransaction(start)
	s.metrics.ObserveRegistration(outcomeOf(err), requestcontext.Channel(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		s.logFailure(ctx, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("registration.order_id", result.Order.ID.String()),
		attribute.Bool("registration.account_created", result.AccountCreated),
	)
	s.metrics.AddTicketsIssued(len(result.Tickets))
	if result.AccountCreated {
		s.metrics.IncrementAccountsCreated()
	}
	s.logger.InfoContext(ctx, "registration committed",
		"order_id", result.Order.ID.String(),
		"event_id", result.Order.EventID.String(),
		"tickets", len(result.Tickets),
		"total", result.Order.Total.String(),
		"account_created", result.AccountCreated,
		"request_id", requestcontext.RequestID(ctx),
	)
	return result, nil
}

func (s *Service) register(ctx context.Context, cart *models.Cart) (*models.Result, error) {
	if err := validateCart(cart); err != nil {
		return nil, err
	}
	today := requestcontext.Now(ctx)

	cat, err := s.loadCatalog(ctx, cart)
	if err != nil {
		return nil, err
	}
	if err := cat.validate(cart, today); err != nil {
		return nil, err
	}

	var result *models.Result
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		result, txErr = s.commit(ctx, cart, cat, today)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, result, cat)
	return result, nil
}

// Capacity returns the capacity read model of a distance.
func (s *Service) Capacity(ctx context.Context, distanceID id.DistanceID) (*models.CapacityView, error) {
	d, err := s.store.FindDistance(ctx, distanceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "distance not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load distance")
	}
	return &models.CapacityView{
		DistanceID:          d.ID,
		EntryLimit:          d.EntryLimit,
		CurrentParticipants: d.CurrentParticipants,
		IsFull:              d.IsFull,
		Remaining:           d.Remaining(),
	}, nil
}

func (s *Service) logFailure(ctx context.Context, err error) {
	code := dErrors.CodeOf(err)
	attrs := []any{
		"code", string(code),
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	}
	switch code {
	case dErrors.CodeInternal, dErrors.CodeTimeout, dErrors.CodeInvariantViolation:
		s.logger.ErrorContext(ctx, "registration failed", attrs...)
	default:
		s.logger.InfoContext(ctx, "registration rejected", attrs...)
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeCommitted
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeNotFound:
		return metrics.OutcomeValidation
	case dErrors.CodeCapacityExceeded:
		return metrics.OutcomeCapacity
	case dErrors.CodeStockInsufficient:
		return metrics.OutcomeStock
	case dErrors.CodeIdentity, dErrors.CodeUnauthorized, dErrors.CodeForbidden:
		return metrics.OutcomeIdentity
	case dErrors.CodeTimeout:
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomePersistence
	}
}
