package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	accountmodels "startingline/internal/account/models"
	accountservice "startingline/internal/account/service"
	accountstore "startingline/internal/account/store"
	participantservice "startingline/internal/participant/service"
	participantstore "startingline/internal/participant/store"
	"startingline/internal/registration/models"
	"startingline/internal/registration/store"
	id "startingline/pkg/domain"
	"startingline/pkg/money"
	"startingline/pkg/platform/tx"
	"startingline/pkg/requestcontext"
)

var today = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

// fixture wires the coordinator to in-memory stores and seeds one event with
// a limited 10km, an unlimited 5km and a T-shirt with stock.
type fixture struct {
	store        *store.InMemoryStore
	accounts     *accountstore.InMemoryAccountStore
	profiles     *accountstore.InMemoryProfileStore
	participants *participantstore.InMemoryStore
	resolver     *accountservice.Service
	sync         *participantservice.Service
	tx           *tx.MemoryManager

	event    *models.Event
	tenK     *models.Distance
	fiveK    *models.Distance
	seniors  *models.Distance
	shirt    *models.MerchandiseItem
	otherEvt *models.Event
	otherD   *models.Distance
}

func intPtr(n int) *int { return &n }

func newFixture(t testing.TB) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:        store.NewInMemory(),
		accounts:     accountstore.NewInMemoryAccountStore(),
		profiles:     accountstore.NewInMemoryProfileStore(),
		participants: participantstore.NewInMemory(),
		tx:           tx.NewMemoryManager(),
	}

	var err error
	f.resolver, err = accountservice.New(f.accounts, f.profiles,
		accountservice.WithPasswordHasher(accountservice.NewBcryptHasher(bcrypt.MinCost)),
		accountservice.WithLogger(discardLogger()))
	require.NoError(t, err)
	f.sync, err = participantservice.New(f.participants, participantservice.WithLogger(discardLogger()))
	require.NoError(t, err)

	f.event = &models.Event{
		ID:        id.NewEventID(),
		Name:      "Harbour Run",
		StartDate: time.Date(2024, 7, 14, 0, 0, 0, 0, time.UTC),
		StartTime: "06:30",
		City:      "Cape Town",
		Category:  "road",
	}
	f.tenK = &models.Distance{ID: id.NewDistanceID(), EventID: f.event.ID, Name: "10km",
		Price: money.FromUnits(150), EntryLimit: intPtr(3), MinAge: 12}
	f.fiveK = &models.Distance{ID: id.NewDistanceID(), EventID: f.event.ID, Name: "5km",
		Price: money.FromUnits(80)}
	f.seniors = &models.Distance{ID: id.NewDistanceID(), EventID: f.event.ID, Name: "Seniors 10km",
		Price: money.FromUnits(150), FreeForSeniors: true, SeniorAgeThreshold: 65}
	f.shirt = &models.MerchandiseItem{ID: id.NewMerchandiseID(), EventID: f.event.ID, Name: "Race T-shirt",
		Price: money.FromCents(24999), CurrentStock: intPtr(5),
		Variations: []models.Variation{{ID: "m", Name: "Size", Value: "M"}, {ID: "l", Name: "Size", Value: "L"}}}
	f.otherEvt = &models.Event{ID: id.NewEventID(), Name: "Mountain Trail"}
	f.otherD = &models.Distance{ID: id.NewDistanceID(), EventID: f.otherEvt.ID, Name: "Trail 21km", Price: money.FromUnits(300)}

	for _, e := range []*models.Event{f.event, f.otherEvt} {
		require.NoError(t, f.store.SaveEvent(ctx, e))
	}
	for _, d := range []*models.Distance{f.tenK, f.fiveK, f.seniors, f.otherD} {
		require.NoError(t, f.store.SaveDistance(ctx, d))
	}
	require.NoError(t, f.store.SaveMerchandise(ctx, f.shirt))
	return f
}

func (f *fixture) service(t testing.TB, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithLogger(discardLogger()), WithParticipantSync(f.sync)}
	svc, err := New(f.store, f.resolver, f.tx, append(base, opts...)...)
	require.NoError(t, err)
	return svc
}

func (f *fixture) distance(t testing.TB, d *models.Distance) *models.Distance {
	t.Helper()
	got, err := f.store.FindDistance(context.Background(), d.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) stock(t testing.TB) int {
	t.Helper()
	got, err := f.store.FindMerchandise(context.Background(), f.shirt.ID)
	require.NoError(t, err)
	return *got.CurrentStock
}

func (f *fixture) ticketsFor(t testing.TB, d *models.Distance) []*models.Ticket {
	t.Helper()
	tickets, err := f.store.ListTicketsByDistance(context.Background(), d.ID)
	require.NoError(t, err)
	return tickets
}

func requestCtx() context.Context {
	ctx := requestcontext.WithTime(context.Background(), today)
	ctx = requestcontext.WithRequestID(ctx, "req-test")
	return requestcontext.WithClientMetadata(ctx, "203.0.113.7", "test-agent", "web")
}

func holder(address string) accountmodels.Holder {
	return accountmodels.Holder{
		FirstName:              "Lerato",
		LastName:               "Mokoena",
		Email:                  address,
		Mobile:                 "0820000000",
		Password:               "marathon-2024",
		EmergencyContactName:   "Kabelo Mokoena",
		EmergencyContactNumber: "0821111111",
	}
}

func participant(first string, dob time.Time) models.Participant {
	return models.Participant{
		FirstName:   first,
		LastName:    "Mokoena",
		Email:       first + "@example.com",
		DateOfBirth: dob,
	}
}

func adult(first string) models.Participant {
	return participant(first, time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC))
}

func (f *fixture) cart(address string, lines ...models.CartLine) *models.Cart {
	return &models.Cart{EventID: f.event.ID, Holder: holder(address), Lines: lines}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
