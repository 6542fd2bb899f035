// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package dashboard implements the downstream broker egress sink (§4.5,
// §9 Design Note "Broker client"): a channel abstraction exposing a
// single publish(topic, payload) -> Result operation, kept off the
// optimizer hot path, with best-effort delivery bounded by retries and a
// timeout.
package dashboard

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"mitigated.example.com/engine/internal/errors"
)

// Result is the outcome of one publish attempt sequence. CorrelationID
// ties together the attempts and retry log lines for one logical publish,
// since Publish may be called concurrently across attacks sharing one
// Broker.
type Result struct {
	CorrelationID string
	Delivered     bool
	Attempts      int
	Err           error
}

// Config carries the dashboard egress settings named in §6
// (dashboardHost/.../dashboardTopic, dashboardAttempts/dashboardRetryDelay).
type Config struct {
	Addr       string
	Password   string
	DB         int
	Topic      string
	Attempts   int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Broker is the channel abstraction with its own connection supervisor,
// grounded on the same Redis Pub/Sub client used by the message adapter
// (no AMQP library exists in the pack; see DESIGN.md).
type Broker struct {
	cfg     Config
	client  *redis.Client
	limiter *rate.Limiter
}

// NewBroker creates a broker client. The limiter paces reconnect/retry
// attempts at a fixed rate derived from RetryDelay (§5 "fixed retry delay").
func NewBroker(cfg Config) *Broker {
	return &Broker{
		cfg:     cfg,
		client:  redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		limiter: rate.NewLimiter(rate.Every(cfg.RetryDelay), 1),
	}
}

// Close releases the underlying connection.
func (b *Broker) Close() error {
	return b.client.Close()
}

// Publish sends payload to topic, making up to cfg.Attempts attempts,
// bounded overall by cfg.Timeout so the pipeline is never blocked beyond
// it (§4.5: "must not block the pipeline beyond a configurable timeout").
// Retries are paced by the Broker's shared limiter, which allows one
// retry per RetryDelay across all Publish calls; the limiter starts with
// one token, so the first retry after an idle period is not delayed.
func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) Result {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	correlationID := uuid.New().String()

	var lastErr error
	for attempt := 1; attempt <= b.cfg.Attempts; attempt++ {
		if attempt > 1 {
			if err := b.limiter.Wait(ctx); err != nil {
				return Result{CorrelationID: correlationID, Delivered: false, Attempts: attempt - 1, Err: ctx.Err()}
			}
		}
		if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
			lastErr = err
			log.Printf("[DASHBOARD] %s: publish attempt %d/%d to %s failed: %v", correlationID, attempt, b.cfg.Attempts, topic, err)
			continue
		}
		return Result{CorrelationID: correlationID, Delivered: true, Attempts: attempt}
	}

	return Result{
		CorrelationID: correlationID,
		Delivered:     false,
		Attempts:      b.cfg.Attempts,
		Err:           errors.Wrapf(lastErr, errors.KindTransport, "dashboard: publish %s to %s failed after %d attempts", correlationID, topic, b.cfg.Attempts),
	}
}
