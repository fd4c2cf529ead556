/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventHealth EventType = "health"

	EventStrategyCreated  EventType = "strategy.created"
	EventStrategyUpdated  EventType = "strategy.updated"
	EventStrategyAssigned EventType = "strategy.assigned"

	EventSequenceSaved   EventType = "sequence.saved"
	EventSequenceLoaded  EventType = "sequence.loaded"
	EventSequenceDeleted EventType = "sequence.deleted"

	// Cache invalidation events
	EventChannelUpdated  EventType = "cache.channel_updated"
	EventChannelCreated  EventType = "cache.channel_created"
	EventChannelDeleted  EventType = "cache.channel_deleted"
	EventTrackUpdated    EventType = "cache.track_updated"
	EventTrackDeleted    EventType = "cache.track_deleted"
	EventStrategyCached  EventType = "cache.strategy_updated"
	EventStrategyRemoved EventType = "cache.strategy_deleted"

	// Audit events (for operations that need explicit audit logging)
	EventAuditAPIKeyCreate   EventType = "audit.apikey.create"
	EventAuditAPIKeyRevoke   EventType = "audit.apikey.revoke"
	EventAuditStrategyAssign EventType = "audit.strategy.assign"
	EventAuditSequenceSave   EventType = "audit.sequence.save"
	EventAuditSequenceLoad   EventType = "audit.sequence.load"
	EventAuditSequenceDelete EventType = "audit.sequence.delete"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Broker is the publish/subscribe surface shared by the in-process bus
// and the Redis/NATS-backed buses.
type Broker interface {
	Subscribe(eventType EventType) Subscriber
	Publish(eventType EventType, payload Payload)
	Unsubscribe(eventType EventType, sub Subscriber)
}

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
