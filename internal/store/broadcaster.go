// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventType classifies a store mutation.
type EventType string

const (
	EventConversationCreated EventType = "conversation_created"
	EventConversationRenamed EventType = "conversation_renamed"
	EventMessageAppended     EventType = "message_appended"
	EventMessageUpdated      EventType = "message_updated"
)

// Event describes a single store mutation. Version is the store version
// after the mutation; versions are strictly increasing, so an observer can
// detect missed events.
type Event struct {
	Type           EventType
	ConversationID string
	// OldConversationID is set only on rename events.
	OldConversationID string
	MessageID         string
	Version           uint64
}

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// =============================================================================
// BROADCASTER
// =============================================================================

// Broadcaster provides in-memory pub/sub for store events. Publishing never
// blocks; events are dropped for subscribers whose channels are full.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]chan Event),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber for all store events. Returns the event
// channel and a subscription ID for later unsubscription. The subscription
// is automatically cleaned up when ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish sends an event to all subscribers. Non-blocking.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	targets := make([]chan Event, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- event:
		default:
			// Subscriber channel full, drop the event for this subscriber
			b.logger.Debug("dropped event for slow subscriber",
				"type", event.Type,
				"conversation_id", event.ConversationID)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subID, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, subID)
	}
	b.logger.Debug("broadcaster closed")
}
