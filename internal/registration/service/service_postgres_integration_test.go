//go:build integration

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	accountservice "startingline/internal/account/service"
	accountstore "startingline/internal/account/store"
	participantservice "startingline/internal/participant/service"
	participantstore "startingline/internal/participant/store"
	"startingline/internal/platform/postgres"
	"startingline/internal/registration/models"
	"startingline/internal/registration/store"
	id "startingline/pkg/domain"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/money"
	"startingline/pkg/testutil/containers"
)

type PostgresRegisterSuite struct {
	suite.Suite
	postgres     *containers.PostgresContainer
	store        *store.PostgresStore
	participants *participantstore.PostgresStore
	profiles     *accountstore.PostgresProfileStore
	service      *Service
	event        *models.Event
	tenK         *models.Distance
	shirt        *models.MerchandiseItem
}

func TestPostgresRegisterSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRegisterSuite))
}

func (s *PostgresRegisterSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.Require().NoError(postgres.Migrate(context.Background(), s.postgres.DB))

	db := s.postgres.DB
	s.store = store.NewPostgres(db)
	s.participants = participantstore.NewPostgres(db)
	s.profiles = accountstore.NewPostgresProfileStore(db)

	accounts, err := accountservice.New(accountstore.NewPostgresAccountStore(db), s.profiles,
		accountservice.WithPasswordHasher(accountservice.NewBcryptHasher(bcrypt.MinCost)),
		accountservice.WithLogger(discardLogger()))
	s.Require().NoError(err)
	saved, err := participantservice.New(s.participants, participantservice.WithLogger(discardLogger()))
	s.Require().NoError(err)

	s.service, err = New(s.store, accounts, postgres.NewTxManager(db, 5*time.Second),
		WithLogger(discardLogger()), WithParticipantSync(saved))
	s.Require().NoError(err)
}

func (s *PostgresRegisterSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, postgres.Tables...))

	s.event = &models.Event{ID: id.NewEventID(), Name: "Harbour Run", StartDate: time.Date(2024, 7, 14, 0, 0, 0, 0, time.UTC)}
	s.tenK = &models.Distance{ID: id.NewDistanceID(), EventID: s.event.ID, Name: "10km",
		Price: money.FromUnits(150), EntryLimit: intPtr(1)}
	s.shirt = &models.MerchandiseItem{ID: id.NewMerchandiseID(), EventID: s.event.ID, Name: "Race T-shirt",
		Price: money.FromCents(24999), CurrentStock: intPtr(2)}
	s.Require().NoError(s.store.SaveEvent(ctx, s.event))
	s.Require().NoError(s.store.SaveDistance(ctx, s.tenK))
	s.Require().NoError(s.store.SaveMerchandise(ctx, s.shirt))
}

func (s *PostgresRegisterSuite) cart(address string, lines ...models.CartLine) *models.Cart {
	return &models.Cart{EventID: s.event.ID, Holder: holder(address), Lines: lines}
}

func (s *PostgresRegisterSuite) count(table string) int {
	var n int
	s.Require().NoError(s.postgres.DB.QueryRowContext(context.Background(), "SELECT count(*) FROM "+table).Scan(&n))
	return n
}

func (s *PostgresRegisterSuite) TestCommitPersistsEverything() {
	result, err := s.service.Register(requestCtx(), s.cart("lerato@example.com",
		models.CartLine{
			DistanceID:  s.tenK.ID,
			Participant: adult("lerato"),
			Merchandise: []models.MerchandiseRequest{{MerchandiseID: s.shirt.ID, Quantity: 2}},
		},
		models.CartLine{DistanceID: s.tenK.ID, Participant: adult("lerato")},
	))
	// The second line exceeds the single place.
	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
	s.Equal(0, s.count("orders"))
	s.Equal(0, s.count("accounts"))

	result, err = s.service.Register(requestCtx(), s.cart("lerato@example.com",
		models.CartLine{
			DistanceID:  s.tenK.ID,
			Participant: adult("lerato"),
			Merchandise: []models.MerchandiseRequest{{MerchandiseID: s.shirt.ID, Quantity: 2}},
		},
	))
	s.Require().NoError(err)
	s.Equal(money.FromCents(64998), result.Order.Total)

	order, err := s.store.FindOrder(context.Background(), result.Order.ID)
	s.Require().NoError(err)
	s.Equal(result.Order.Total, order.Total)

	tickets, err := s.store.ListTicketsByOrder(context.Background(), result.Order.ID)
	s.Require().NoError(err)
	s.Len(tickets, 1)
	lines, err := s.store.ListMerchandiseLinesByTicket(context.Background(), tickets[0].ID)
	s.Require().NoError(err)
	s.Len(lines, 1)

	d, err := s.store.FindDistance(context.Background(), s.tenK.ID)
	s.Require().NoError(err)
	s.True(d.IsFull)
	m, err := s.store.FindMerchandise(context.Background(), s.shirt.ID)
	s.Require().NoError(err)
	s.Equal(0, *m.CurrentStock)
}

func (s *PostgresRegisterSuite) TestDuplicateSavedParticipantDoesNotPoisonTransaction() {
	s.tenK.EntryLimit = nil
	s.Require().NoError(s.store.SaveDistance(context.Background(), s.tenK))

	twin := adult("twin")
	result, err := s.service.Register(requestCtx(), s.cart("twin@example.com",
		models.CartLine{DistanceID: s.tenK.ID, Participant: twin},
		models.CartLine{DistanceID: s.tenK.ID, Participant: twin},
	))
	s.Require().NoError(err)
	s.Len(result.Tickets, 2)

	profile, err := s.profiles.FindByAccountID(context.Background(), result.Account.ID)
	s.Require().NoError(err)
	saved, err := s.participants.ListByProfile(context.Background(), profile.ID)
	s.Require().NoError(err)
	s.Len(saved, 1)
}

func (s *PostgresRegisterSuite) TestRacersForLastPlace() {
	const racers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		soldOut int
	)
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := string(rune('a' + i))
			_, err := s.service.Register(requestCtx(), s.cart(name+"@example.com",
				models.CartLine{DistanceID: s.tenK.ID, Participant: adult(name)}))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case dErrors.HasCode(err, dErrors.CodeCapacityExceeded):
				soldOut++
			default:
				s.T().Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(1, ok)
	s.Equal(racers-1, soldOut)
	s.Equal(1, s.count("tickets"))
	s.Equal(1, s.count("orders"))
	s.Equal(1, s.count("accounts"))
}
