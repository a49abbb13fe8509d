//go:build integration

package notification

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"startingline/internal/platform/config"
	"startingline/internal/platform/kafka"
	id "startingline/pkg/domain"
	"startingline/pkg/money"
	"startingline/pkg/testutil/containers"
)

type KafkaSenderSuite struct {
	suite.Suite
	broker string
	client *kafka.Client
}

func TestKafkaSenderSuite(t *testing.T) {
	suite.Run(t, new(KafkaSenderSuite))
}

func (s *KafkaSenderSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := kafka.New(ctx, config.KafkaConfig{
		Brokers:  []string{s.broker},
		ClientID: "startingline-test",
	})
	s.Require().NoError(err)
	s.Require().NotNil(client)
	s.client = client
}

func (s *KafkaSenderSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *KafkaSenderSuite) consume(topic string, want int) []*kgo.Record {
	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	var records []*kgo.Record
	for len(records) < want {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err(), "timed out with %d of %d records", len(records), want)
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})
	}
	return records
}

func (s *KafkaSenderSuite) TestEnsureTopicIsRepeatable() {
	ctx := context.Background()
	topic := "confirmations-ensure-" + id.NewOrderID().String()
	s.Require().NoError(s.client.EnsureTopic(ctx, topic, 3, 1))
	s.Require().NoError(s.client.EnsureTopic(ctx, topic, 3, 1))
	s.Require().NoError(s.client.Health(ctx))
}

func (s *KafkaSenderSuite) TestDispatcherPublishesConfirmations() {
	ctx := context.Background()
	topic := "confirmations-" + id.NewOrderID().String()
	s.Require().NoError(s.client.EnsureTopic(ctx, topic, 1, 1))

	dispatcher := NewDispatcher(NewKafkaSender(s.client, topic),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = dispatcher.Run(runCtx) }()

	sent := []Confirmation{
		{
			OrderID:   id.NewOrderID(),
			AccountID: id.NewAccountID(),
			Email:     "lerato@example.com",
			EventName: "Harbour Run",
			Total:     money.FromUnits(150),
			Tickets: []TicketSummary{{
				TicketID:        id.NewTicketID(),
				ParticipantName: "Lerato Mokoena",
				Distance:        "10km",
				Amount:          money.FromUnits(150),
			}},
			RequestID: "req-1",
		},
		{
			OrderID:   id.NewOrderID(),
			AccountID: id.NewAccountID(),
			Email:     "sipho@example.com",
			EventName: "Harbour Run",
			Total:     money.Amount(0),
			RequestID: "req-2",
		},
	}
	for _, c := range sent {
		dispatcher.Enqueue(ctx, c)
	}

	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	s.Require().NoError(dispatcher.Close(closeCtx))

	records := s.consume(topic, len(sent))
	s.Require().Len(records, len(sent))
	for i, r := range records {
		s.Equal(sent[i].OrderID.String(), string(r.Key))

		var got Confirmation
		s.Require().NoError(json.Unmarshal(r.Value, &got))
		s.Equal(sent[i].OrderID, got.OrderID)
		s.Equal(sent[i].Email, got.Email)
		s.Equal(sent[i].Total, got.Total)
		s.Equal(sent[i].RequestID, got.RequestID)

		headers := map[string]string{}
		for _, h := range r.Headers {
			headers[h.Key] = string(h.Value)
		}
		s.Equal("registration.confirmed", headers["event-type"])
	}
}
