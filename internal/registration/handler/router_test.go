package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	accountservice "startingline/internal/account/service"
	accountstore "startingline/internal/account/store"
	"startingline/internal/idempotency"
	jwttoken "startingline/internal/jwt_token"
	participantservice "startingline/internal/participant/service"
	participantstore "startingline/internal/participant/store"
	"startingline/internal/registration/handler"
	"startingline/internal/registration/models"
	"startingline/internal/registration/service"
	"startingline/internal/registration/store"
	id "startingline/pkg/domain"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/money"
	"startingline/pkg/platform/middleware/auth"
	"startingline/pkg/platform/middleware/request"
	"startingline/pkg/platform/tx"
	"startingline/pkg/testutil"
)

type stack struct {
	router   chi.Router
	store    *store.InMemoryStore
	event    *models.Event
	distance *models.Distance
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	regStore := store.NewInMemory()
	event := &models.Event{ID: id.NewEventID(), Name: "Harbour Run", StartDate: time.Date(2030, 7, 14, 0, 0, 0, 0, time.UTC)}
	limit := 2
	distance := &models.Distance{ID: id.NewDistanceID(), EventID: event.ID, Name: "10km", Price: money.FromUnits(150), EntryLimit: &limit}
	require.NoError(t, regStore.SaveEvent(ctx, event))
	require.NoError(t, regStore.SaveDistance(ctx, distance))

	resolver, err := accountservice.New(accountstore.NewInMemoryAccountStore(), accountstore.NewInMemoryProfileStore(),
		accountservice.WithPasswordHasher(accountservice.NewBcryptHasher(bcrypt.MinCost)),
		accountservice.WithLogger(logger))
	require.NoError(t, err)
	saved, err := participantservice.New(participantstore.NewInMemory(), participantservice.WithLogger(logger))
	require.NoError(t, err)

	tokens := jwttoken.NewJWTService("router-test-signing-key", "startingline", "startingline-api", time.Hour)
	svc, err := service.New(regStore, resolver, tx.NewMemoryManager(),
		service.WithLogger(logger),
		service.WithParticipantSync(saved),
		service.WithTokenIssuer(tokens))
	require.NoError(t, err)

	guard := idempotency.NewGuard(idempotency.NewInMemoryStore(), idempotency.WithLogger(logger))
	r := chi.NewRouter()
	r.Use(request.RequestID, request.RequestTime)
	r.Use(auth.OptionalAuth(jwttoken.NewJWTServiceAdapter(tokens), logger))
	handler.New(svc, handler.NewValidator(), logger, guard.Middleware).Register(r)

	return &stack{router: r, store: regStore, event: event, distance: distance}
}

func (s *stack) body(first, holderEmail, password string) map[string]any {
	return map[string]any{
		"event_id":                  s.event.ID.String(),
		"account_holder_first_name": "Lerato",
		"account_holder_last_name":  "Mokoena",
		"account_holder_email":      holderEmail,
		"account_holder_password":   password,
		"participants": []map[string]any{{
			"distance_id": s.distance.ID.String(),
			"participant": map[string]any{
				"first_name":    first,
				"last_name":     "Mokoena",
				"email":         first + "@example.com",
				"date_of_birth": "1990-05-20",
			},
		}},
	}
}

func (s *stack) post(t *testing.T, body any, headers map[string]string) *http.Request {
	req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations", body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestRegistrationFlow(t *testing.T) {
	testutil.Scenario(t, "a new runner registers and comes back signed in", func(t *testing.T, steps testutil.Steps) {
		s := newStack(t)
		var first service.Response

		steps.When("an anonymous runner registers with a password", func() {
			rr := testutil.DoRequest(s.router, s.post(t, s.body("lerato", "lerato@example.com", "marathon-2024"), nil))
			first = testutil.AssertSuccess[service.Response](t, rr, http.StatusCreated)
		})
		steps.Then("the response carries a token for the new account", func() {
			require.NotNil(t, first.Auth)
			assert.NotEmpty(t, first.Auth.Token)
			assert.Equal(t, "lerato@example.com", first.Auth.User.Email)
			assert.Equal(t, "participant", first.Auth.User.Role)
			assert.Equal(t, first.Order.AccountID, first.Auth.User.ID)
			assert.Equal(t, "150.00", first.Order.Total.String())
		})

		var second service.Response
		steps.When("the runner registers a friend using that token", func() {
			body := s.body("thandi", "", "")
			rr := testutil.DoRequest(s.router, s.post(t, body, map[string]string{
				"Authorization": "Bearer " + first.Auth.Token,
			}))
			second = testutil.AssertSuccess[service.Response](t, rr, http.StatusCreated)
		})
		steps.Then("the order belongs to the same account and mints no new token", func() {
			assert.Equal(t, first.Order.AccountID, second.Order.AccountID)
			assert.Nil(t, second.Auth)
		})

		steps.And("the distance is now full", func() {
			rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodGet,
				"/distances/"+s.distance.ID.String()+"/capacity", nil))
			view := testutil.AssertSuccess[handler.CapacityResponse](t, rr, http.StatusOK)
			assert.Equal(t, 2, view.CurrentParticipants)
			assert.True(t, view.IsFull)
			require.NotNil(t, view.Remaining)
			assert.Zero(t, *view.Remaining)
		})

		steps.And("a third entrant is turned away by name", func() {
			rr := testutil.DoRequest(s.router, s.post(t, s.body("sipho", "sipho@example.com", "marathon-2024"), nil))
			msg := testutil.AssertFailure(t, rr, http.StatusBadRequest, string(dErrors.CodeCapacityExceeded))
			assert.Contains(t, msg, "10km")
			assert.Equal(t, 2, s.store.CountOrders())
		})
	})

	testutil.Scenario(t, "a tampered token never falls back to anonymous checkout", func(t *testing.T, steps testutil.Steps) {
		s := newStack(t)
		steps.When("the caller presents a token that does not verify", func() {
			rr := testutil.DoRequest(s.router, s.post(t, s.body("lerato", "lerato@example.com", "marathon-2024"),
				map[string]string{"Authorization": "Bearer not-a-token"}))
			testutil.AssertFailure(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
		})
		steps.Then("nothing is written", func() {
			assert.Zero(t, s.store.CountOrders())
		})
	})
}

func TestIdempotentSubmission(t *testing.T) {
	testutil.Scenario(t, "a retried submission replays the first order", func(t *testing.T, steps testutil.Steps) {
		s := newStack(t)
		body := s.body("lerato", "lerato@example.com", "marathon-2024")
		headers := map[string]string{idempotency.HeaderKey: "checkout-7f3a"}
		var first service.Response

		steps.Given("a registration submitted with an idempotency key", func() {
			rr := testutil.DoRequest(s.router, s.post(t, body, headers))
			first = testutil.AssertSuccess[service.Response](t, rr, http.StatusCreated)
			assert.Empty(t, rr.Header().Get(idempotency.HeaderReplayed))
		})
		steps.When("the client retries with the same key and body", func() {
			rr := testutil.DoRequest(s.router, s.post(t, body, headers))
			replay := testutil.AssertSuccess[service.Response](t, rr, http.StatusCreated)
			assert.Equal(t, "true", rr.Header().Get(idempotency.HeaderReplayed))
			assert.Equal(t, first.Order.ID, replay.Order.ID)
		})
		steps.Then("only one order exists and one place is taken", func() {
			assert.Equal(t, 1, s.store.CountOrders())
			d, err := s.store.FindDistance(context.Background(), s.distance.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, d.CurrentParticipants)
		})
		steps.And("reusing the key for a different cart is a conflict", func() {
			other := s.body("thandi", "lerato@example.com", "marathon-2024")
			rr := testutil.DoRequest(s.router, s.post(t, other, headers))
			testutil.AssertFailure(t, rr, http.StatusConflict, string(dErrors.CodeConflict))
			assert.Equal(t, 1, s.store.CountOrders())
		})
	})

	testutil.Scenario(t, "a rejected submission can be retried under the same key", func(t *testing.T, steps testutil.Steps) {
		s := newStack(t)
		headers := map[string]string{idempotency.HeaderKey: "checkout-91bc"}

		steps.Given("a submission rejected for a missing password", func() {
			rr := testutil.DoRequest(s.router, s.post(t, s.body("lerato", "lerato@example.com", ""), headers))
			testutil.AssertFailure(t, rr, http.StatusBadRequest, string(dErrors.CodeIdentity))
		})
		steps.When("the corrected submission reuses the key", func() {
			rr := testutil.DoRequest(s.router, s.post(t, s.body("lerato", "lerato@example.com", "marathon-2024"), headers))
			testutil.AssertSuccess[service.Response](t, rr, http.StatusCreated)
			assert.Empty(t, rr.Header().Get(idempotency.HeaderReplayed))
		})
		steps.Then("exactly one order is written", func() {
			assert.Equal(t, 1, s.store.CountOrders())
		})
	})
}
