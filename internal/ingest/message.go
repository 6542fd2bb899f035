// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ingest

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"mitigated.example.com/engine/internal/errors"
	"mitigated.example.com/engine/internal/eventmodel"
	"mitigated.example.com/engine/internal/plugin"
)

// MessageAdapterConfig carries the broker ingress settings named in §6
// (serverAddress/serverPort/.../serverTopic) plus the reconnect policy.
type MessageAdapterConfig struct {
	Addr        string
	Password    string
	DB          int
	Topic       string
	RetryDelay  time.Duration
	MaxAttempts int
}

// MessageAdapter consumes a topic stream of CSV lines framing attack
// start/event/stop life-cycles (§4.1), grounded on the Redis Pub/Sub
// shape used elsewhere in the retrieved pack for streamed session state
// (no AMQP/message-broker library exists in the pack; see DESIGN.md).
type MessageAdapter struct {
	cfg  MessageAdapterConfig
	reg  *plugin.Registry
	acc  *Accumulator
	emit func(*eventmodel.Attack)

	closing bool
}

// NewMessageAdapter creates a message adapter. acc is the
// Accumulator instance this adapter owns exclusively (§5, §9 Design Note
// "component instance threaded through the adapters").
func NewMessageAdapter(cfg MessageAdapterConfig, reg *plugin.Registry, acc *Accumulator, emit func(*eventmodel.Attack)) *MessageAdapter {
	return &MessageAdapter{cfg: cfg, reg: reg, acc: acc, emit: emit}
}

// Close sets the closing flag, preventing reconnect storms on intentional
// shutdown (§5 "Cancellation").
func (m *MessageAdapter) Close() {
	m.closing = true
}

// Run connects and consumes the topic stream, reconnecting with a fixed
// delay up to MaxAttempts on disconnect (§4.1: "replaced by a reconnect
// loop with a fixed retry delay and an upward-bounded attempt count").
func (m *MessageAdapter) Run(ctx context.Context) error {
	attempts := 0
	for {
		if m.closing {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := m.runOnce(ctx); err != nil {
			attempts++
			if attempts > m.cfg.MaxAttempts {
				return errors.Wrap(err, errors.KindTransport, "ingest: message adapter exhausted reconnect attempts")
			}
			log.Printf("[INGEST] message adapter disconnected (attempt %d/%d): %v", attempts, m.cfg.MaxAttempts, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.cfg.RetryDelay):
			}
			continue
		}
		attempts = 0
		if m.closing {
			return nil
		}
	}
}

func (m *MessageAdapter) runOnce(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     m.cfg.Addr,
		Password: m.cfg.Password,
		DB:       m.cfg.DB,
	})
	defer client.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return err
	}

	sub := client.Subscribe(ctx, m.cfg.Topic)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			m.handleLine(msg.Payload)
		}
	}
}

// handleLine applies §4.1's frame contract: [id, severity, type,
// marker, ...]. marker="start" begins accumulation; marker="stop" closes
// and emits; anything else is appended as one event body.
func (m *MessageAdapter) handleLine(line string) {
	fields := strings.Split(line, ",")
	if len(fields) < 4 {
		log.Printf("[INGEST] message adapter: malformed frame: %q", line)
		return
	}

	id := fields[0]
	severity, ok := eventmodel.ParseSeverityPhrase(fields[1])
	if !ok {
		log.Printf("[INGEST] message adapter: unknown severity %q", fields[1])
		return
	}
	attype := fields[2]
	marker := fields[3]

	switch strings.ToLower(strings.TrimSpace(marker)) {
	case "start":
		if _, started := m.acc.Start(id, severity, attype); !started {
			log.Printf("[INGEST] message adapter: duplicate start for (%s,%v,%s)", id, severity, attype)
		}
	case "stop":
		attack, ok := m.acc.Stop(id, severity, attype)
		if !ok {
			log.Printf("[INGEST] message adapter: stop without start for (%s,%v,%s)", id, severity, attype)
			return
		}
		m.emit(attack)
	default:
		parser, ok := m.reg.ParserFor(attype)
		if !ok {
			log.Printf("[INGEST] message adapter: no parser plug-in for type %q", attype)
			return
		}
		body := append([]string{marker}, fields[4:]...)
		ev, ok, err := parser.Parse(2, body)
		if err != nil {
			log.Printf("[INGEST] message adapter: %v", err)
			return
		}
		if !ok {
			return
		}
		if !m.acc.Append(id, severity, attype, ev) {
			log.Printf("[INGEST] message adapter: event without start for (%s,%v,%s)", id, severity, attype)
		}
	}
}
