package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	GET(path string, headers map[string]string) error
	ResponseField(path string) (any, error)
	RunID() string
	Email() string
	SetEmail(email string)
	Token() string
	SetToken(token string)
}

// IDs of the demo catalog loaded by the server in memory mode.
const (
	demoEventID = "5b0c1f7e-2a4d-4c61-9b7e-0d4f6a3c2e10"
	demoShirtID = "f6e3d0c9-8b7a-4d15-9c2e-4a1f7b0d3e54"
)

var demoDistances = map[string]string{
	"10km":          "8e2f6c1a-7d3b-4f0e-a5c9-1b6d2e4f8a21",
	"5km":           "3c7a9e5d-1f2b-4a6c-8d0e-7f5b3a1c9e32",
	"10km Veterans": "a1d4b7e0-3c6f-4e92-b5a8-2d7c0f3e6b43",
}

// RegisterSteps registers checkout step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &checkoutSteps{tc: tc}

	ctx.Step(`^a new runner with a unique email$`, steps.newRunner)
	ctx.Step(`^I register "([^"]*)" for the "([^"]*)" distance$`, steps.register)
	ctx.Step(`^I register "([^"]*)" born on "([^"]*)" for the "([^"]*)" distance$`, steps.registerBornOn)
	ctx.Step(`^I register "([^"]*)" for the "([^"]*)" distance with (\d+) "([^"]*)" T-shirts?$`, steps.registerWithShirts)
	ctx.Step(`^I register "([^"]*)" for the "([^"]*)" distance with idempotency key "([^"]*)"$`, steps.registerIdempotent)
	ctx.Step(`^I register "([^"]*)" as the signed-in runner for the "([^"]*)" distance$`, steps.registerSignedIn)
	ctx.Step(`^I submit a cart without participants$`, steps.submitEmptyCart)
	ctx.Step(`^I save the token$`, steps.saveToken)
	ctx.Step(`^the response has no auth block$`, steps.noAuthBlock)
	ctx.Step(`^I list my saved participants$`, steps.listSavedParticipants)
	ctx.Step(`^the response should list (\d+) saved participants?$`, steps.savedParticipantCount)
	ctx.Step(`^I check the capacity of the "([^"]*)" distance$`, steps.checkCapacity)
}

type checkoutSteps struct {
	tc TestContext
}

func (s *checkoutSteps) newRunner(context.Context) error {
	s.tc.SetEmail("runner-" + s.tc.RunID() + "@example.com")
	return nil
}

func (s *checkoutSteps) cart(first, dob, distance string, merchandise []map[string]any) (map[string]any, error) {
	distanceID, ok := demoDistances[distance]
	if !ok {
		return nil, fmt.Errorf("unknown demo distance %q", distance)
	}
	if merchandise == nil {
		merchandise = []map[string]any{}
	}
	return map[string]any{
		"event_id":                  demoEventID,
		"account_holder_first_name": "Lerato",
		"account_holder_last_name":  "Mokoena",
		"account_holder_email":      s.tc.Email(),
		"account_holder_password":   "marathon-2024",
		"emergency_contact_name":    "Kabelo Mokoena",
		"emergency_contact_number":  "0821111111",
		"participants": []map[string]any{{
			"distance_id": distanceID,
			"participant": map[string]any{
				"first_name":    first,
				"last_name":     "Mokoena",
				"email":         strings.ToLower(first) + "-" + s.tc.RunID() + "@example.com",
				"date_of_birth": dob,
				"merchandise":   merchandise,
			},
		}},
	}, nil
}

func (s *checkoutSteps) register(ctx context.Context, first, distance string) error {
	return s.registerBornOn(ctx, first, "1990-05-20", distance)
}

func (s *checkoutSteps) registerBornOn(_ context.Context, first, dob, distance string) error {
	body, err := s.cart(first, dob, distance, nil)
	if err != nil {
		return err
	}
	return s.tc.POST("/registrations", body, nil)
}

func (s *checkoutSteps) registerWithShirts(_ context.Context, first, distance string, qty int, size string) error {
	body, err := s.cart(first, "1990-05-20", distance, []map[string]any{{
		"merchandise_id": demoShirtID,
		"variation_id":   size,
		"quantity":       qty,
	}})
	if err != nil {
		return err
	}
	return s.tc.POST("/registrations", body, nil)
}

func (s *checkoutSteps) registerIdempotent(_ context.Context, first, distance, key string) error {
	body, err := s.cart(first, "1990-05-20", distance, nil)
	if err != nil {
		return err
	}
	return s.tc.POST("/registrations", body, map[string]string{
		"Idempotency-Key": key + "-" + s.tc.RunID(),
	})
}

func (s *checkoutSteps) registerSignedIn(_ context.Context, first, distance string) error {
	if s.tc.Token() == "" {
		return fmt.Errorf("no token saved")
	}
	body, err := s.cart(first, "1990-05-20", distance, nil)
	if err != nil {
		return err
	}
	for _, holderField := range []string{"account_holder_email", "account_holder_password"} {
		delete(body, holderField)
	}
	return s.tc.POST("/registrations", body, s.bearer())
}

func (s *checkoutSteps) submitEmptyCart(context.Context) error {
	return s.tc.POST("/registrations", map[string]any{
		"event_id":     demoEventID,
		"participants": []any{},
	}, nil)
}

func (s *checkoutSteps) saveToken(context.Context) error {
	token, err := s.tc.ResponseField("data.auth.token")
	if err != nil {
		return err
	}
	str, ok := token.(string)
	if !ok || str == "" {
		return fmt.Errorf("token missing from response")
	}
	s.tc.SetToken(str)
	return nil
}

func (s *checkoutSteps) noAuthBlock(context.Context) error {
	if v, err := s.tc.ResponseField("data.auth"); err == nil && v != nil {
		return fmt.Errorf("expected no auth block, got %v", v)
	}
	return nil
}

func (s *checkoutSteps) listSavedParticipants(context.Context) error {
	return s.tc.GET("/profiles/me/saved-participants", s.bearer())
}

func (s *checkoutSteps) savedParticipantCount(_ context.Context, want int) error {
	v, err := s.tc.ResponseField("data")
	if err != nil {
		return err
	}
	list, ok := v.([]any)
	if !ok {
		return fmt.Errorf("expected a list, got %T", v)
	}
	if len(list) != want {
		return fmt.Errorf("expected %d saved participants, got %d", want, len(list))
	}
	return nil
}

func (s *checkoutSteps) checkCapacity(_ context.Context, distance string) error {
	distanceID, ok := demoDistances[distance]
	if !ok {
		return fmt.Errorf("unknown demo distance %q", distance)
	}
	return s.tc.GET("/distances/"+distanceID+"/capacity", nil)
}

func (s *checkoutSteps) bearer() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.tc.Token()}
}
