/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/bragi_sequencer/internal/events"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL   string
	Token string
	// Connection options
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // Unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// subjectPrefix namespaces our events on a shared NATS server.
const subjectPrefix = "bragi.events."

// NATSBus implements a NATS-backed event bus for distributed deployments.
// Falls back to the in-memory bus if NATS is unavailable.
type NATSBus struct {
	conn     *nats.Conn
	logger   zerolog.Logger
	fallback *events.Bus
	nodeID   string

	mu       sync.RWMutex
	subs     map[events.EventType][]events.Subscriber
	natsSubs map[events.EventType]*nats.Subscription
}

// NewNATSBus creates a NATS-backed event bus.
func NewNATSBus(cfg NATSConfig, nodeID string, logger zerolog.Logger) (*NATSBus, error) {
	if nodeID == "" {
		nodeID = generateNodeID()
	}

	nb := &NATSBus{
		logger:   logger.With().Str("component", "nats_bus").Logger(),
		fallback: events.NewBus(),
		nodeID:   nodeID,
		subs:     make(map[events.EventType][]events.Subscriber),
		natsSubs: make(map[events.EventType]*nats.Subscription),
	}

	opts := []nats.Option{
		nats.Name("bragi-sequencer-" + nodeID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			nb.logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			nb.logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		nb.logger.Warn().Err(err).Str("url", cfg.URL).Msg("NATS connection failed, using in-memory fallback")
		return nb, nil
	}

	nb.conn = conn
	nb.logger.Info().Str("url", cfg.URL).Msg("NATS event bus initialized")
	return nb, nil
}

// Subscribe registers a subscriber for an event type. The first local
// subscriber for a type also opens the NATS subject subscription.
func (nb *NATSBus) Subscribe(eventType events.EventType) events.Subscriber {
	sub := nb.fallback.Subscribe(eventType)

	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.subs[eventType] = append(nb.subs[eventType], sub)

	if nb.conn == nil {
		return sub
	}
	if _, exists := nb.natsSubs[eventType]; exists {
		return sub
	}

	subject := subjectPrefix + string(eventType)
	natsSub, err := nb.conn.Subscribe(subject, func(msg *nats.Msg) {
		nb.deliverRemote(eventType, msg.Data)
	})
	if err != nil {
		nb.logger.Error().Err(err).Str("subject", subject).Msg("NATS subscribe failed")
		return sub
	}
	nb.natsSubs[eventType] = natsSub
	return sub
}

// deliverRemote fans a remote message out to local subscribers via the
// in-memory bus, skipping our own echoes.
func (nb *NATSBus) deliverRemote(eventType events.EventType, data []byte) {
	msg, err := unmarshalNATSMessage(data)
	if err != nil {
		nb.logger.Error().Err(err).Msg("failed to unmarshal NATS message")
		return
	}
	if msg.NodeID == nb.nodeID {
		return
	}
	nb.fallback.Publish(eventType, msg.Payload)
}

// Publish sends an event payload to local and remote subscribers.
func (nb *NATSBus) Publish(eventType events.EventType, payload events.Payload) {
	// Local subscribers always get the event directly.
	nb.fallback.Publish(eventType, payload)

	if nb.conn == nil {
		return
	}

	data, err := marshalNATSMessage(eventType, payload, nb.nodeID)
	if err != nil {
		nb.logger.Error().Err(err).Msg("failed to marshal NATS message")
		return
	}

	subject := subjectPrefix + string(eventType)
	if err := nb.conn.Publish(subject, data); err != nil {
		nb.logger.Error().Err(err).Str("subject", subject).Msg("failed to publish to NATS")
	}
}

// Unsubscribe removes a subscriber. The NATS subject subscription closes
// when the last local subscriber for the type leaves.
func (nb *NATSBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	nb.mu.Lock()
	subs := nb.subs[eventType]
	for i, s := range subs {
		if s == sub {
			nb.subs[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	remaining := len(nb.subs[eventType])
	if remaining == 0 {
		if natsSub, exists := nb.natsSubs[eventType]; exists {
			_ = natsSub.Unsubscribe()
			delete(nb.natsSubs, eventType)
		}
	}
	nb.mu.Unlock()

	nb.fallback.Unsubscribe(eventType, sub)
}

// Close drains the NATS connection.
func (nb *NATSBus) Close() error {
	nb.mu.Lock()
	for eventType, natsSub := range nb.natsSubs {
		_ = natsSub.Unsubscribe()
		delete(nb.natsSubs, eventType)
	}
	nb.mu.Unlock()

	if nb.conn != nil {
		if err := nb.conn.Drain(); err != nil {
			nb.logger.Error().Err(err).Msg("failed to drain NATS connection")
			return err
		}
	}
	nb.logger.Info().Msg("NATS event bus closed")
	return nil
}

// natsMessage represents a message published to NATS.
type natsMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"` // For deduplication
}

// marshalNATSMessage converts payload to NATS message format.
func marshalNATSMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	msg := natsMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	}
	return json.Marshal(msg)
}

// unmarshalNATSMessage parses a NATS message.
func unmarshalNATSMessage(data []byte) (*natsMessage, error) {
	var msg natsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal nats message: %w", err)
	}
	return &msg, nil
}

func generateNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return uuid.NewString()
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
