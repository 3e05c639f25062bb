package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"StableMint/internal/observability"
	"StableMint/internal/oracle"
)

// PriceUpdate is the inbound wire shape on stablemint.prices.{asset}.
// Price is a decimal string at feed precision (1e8).
type PriceUpdate struct {
	Asset     string    `json:"asset"`
	Price     string    `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceSubscriber consumes oracle price updates from JetStream and pushes
// them into the registered in-process feeds. Unparseable or unknown-asset
// messages are acked and dropped; redelivery cannot fix them.
type PriceSubscriber struct {
	js       jetstream.JetStream
	feeds    map[string]*oracle.MemoryFeed
	consumer jetstream.ConsumeContext
	log      zerolog.Logger
}

func NewPriceSubscriber(js jetstream.JetStream, feeds map[string]*oracle.MemoryFeed) *PriceSubscriber {
	return &PriceSubscriber{
		js:    js,
		feeds: feeds,
		log:   observability.NewLogger("prices"),
	}
}

// Subscribe creates the durable consumer and starts delivery. Stop cancels it.
func (s *PriceSubscriber) Subscribe(ctx context.Context) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, "STABLEMINT_PRICES", jetstream.ConsumerConfig{
		Durable:       "mint-prices",
		FilterSubject: "stablemint.prices.>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create price consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		s.handle(msg)
	})
	if err != nil {
		return fmt.Errorf("consume prices: %w", err)
	}

	s.consumer = cc
	s.log.Info().Msg("subscribed to price updates")
	return nil
}

func (s *PriceSubscriber) handle(msg jetstream.Msg) {
	var update PriceUpdate
	if err := json.Unmarshal(msg.Data(), &update); err != nil {
		s.log.Warn().Err(err).Str("subject", msg.Subject()).Msg("malformed price update")
		msg.Ack()
		return
	}

	feed, ok := s.feeds[update.Asset]
	if !ok {
		s.log.Warn().Str("asset", update.Asset).Msg("price update for unregistered asset")
		msg.Ack()
		return
	}

	price, ok := new(big.Int).SetString(update.Price, 10)
	if !ok || price.Sign() <= 0 {
		s.log.Warn().Str("asset", update.Asset).Str("price", update.Price).Msg("invalid price value")
		msg.Ack()
		return
	}

	ts := update.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	feed.Push(price, ts)

	s.log.Debug().Str("asset", update.Asset).Str("price", update.Price).Msg("price updated")
	msg.Ack()
}

// Stop gracefully stops the consumer.
func (s *PriceSubscriber) Stop() {
	if s.consumer != nil {
		s.consumer.Stop()
	}
}

// EnsurePriceStream creates the inbound price stream.
func EnsurePriceStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "STABLEMINT_PRICES",
		Subjects:  []string{"stablemint.prices.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create price stream: %w", err)
	}
	return nil
}
