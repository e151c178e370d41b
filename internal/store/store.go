// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/solacechat/solace-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrConversationNotFound indicates the conversation ID is unknown.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrDuplicateMessageID indicates an append would violate global
	// message-ID uniqueness.
	ErrDuplicateMessageID = errors.New("duplicate message ID")
)

// =============================================================================
// STORE
// =============================================================================

// Store owns every conversation in memory and serializes all mutation.
//
// Message IDs are unique across the whole store; messageIndex maps each
// message ID to its containing conversation so targeted updates never scan.
// The version counter increases on every successful mutation.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
	messageIndex  map[string]string // message ID -> conversation ID
	version       uint64

	broadcaster *Broadcaster
	logger      *slog.Logger
}

// New creates an empty store. Pass nil logger for default.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		conversations: make(map[string]*model.Conversation),
		messageIndex:  make(map[string]string),
		broadcaster:   NewBroadcaster(logger),
		logger:        logger.With("component", "store"),
	}
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers an observer for store change events.
func (s *Store) Subscribe(ctx context.Context) (<-chan Event, string) {
	return s.broadcaster.Subscribe(ctx)
}

// Unsubscribe removes an observer.
func (s *Store) Unsubscribe(subID string) {
	s.broadcaster.Unsubscribe(subID)
}

// Close releases all subscriber channels.
func (s *Store) Close() {
	s.broadcaster.Close()
}

// Version returns the current store version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// Create adds a new temporary conversation and returns it.
func (s *Store) Create() *model.Conversation {
	conv := model.NewConversation()

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.version++
	version := s.version
	s.mu.Unlock()

	s.logger.Debug("conversation created", "conversation_id", conv.ID)
	s.broadcaster.Publish(Event{
		Type:           EventConversationCreated,
		ConversationID: conv.ID,
		Version:        version,
	})
	return conv
}

// Get returns the conversation with the given ID, or nil if absent.
//
// The returned pointer is live: its messages keep mutating under the
// store lock while a stream is in flight. Observers on other goroutines
// must read through Snapshot instead.
func (s *Store) Get(id string) *model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversations[id]
}

// Snapshot returns a point-in-time copy of the identified conversation,
// safe to read while streams keep mutating the original. Returns nil for
// unknown IDs.
func (s *Store) Snapshot(id string) *model.ConversationSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil
	}
	snap := conv.Snapshot()
	return &snap
}

// List returns all conversations, most recently updated first.
func (s *Store) List() []*model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// RenameConversation atomically rebinds a conversation to a new ID and
// clears its temporary flag, reporting whether the rebind happened. A
// collision with an existing ID is logged and refused; the conversation
// keeps its old identity. Unknown old IDs are likewise refused.
func (s *Store) RenameConversation(oldID, newID string) bool {
	if oldID == newID {
		return false
	}

	s.mu.Lock()
	conv, ok := s.conversations[oldID]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("rename of unknown conversation", "conversation_id", oldID)
		return false
	}
	if _, exists := s.conversations[newID]; exists {
		s.mu.Unlock()
		s.logger.Warn("rename collision, keeping old identity",
			"old_id", oldID, "new_id", newID)
		return false
	}

	delete(s.conversations, oldID)
	conv.Promote(newID)
	s.conversations[newID] = conv
	for _, msg := range conv.Messages {
		s.messageIndex[msg.ID] = newID
	}
	s.version++
	version := s.version
	s.mu.Unlock()

	s.logger.Debug("conversation renamed", "old_id", oldID, "new_id", newID)
	s.broadcaster.Publish(Event{
		Type:              EventConversationRenamed,
		ConversationID:    newID,
		OldConversationID: oldID,
		Version:           version,
	})
	return true
}

// =============================================================================
// MESSAGE MUTATION
// =============================================================================

// Append adds a message to the identified conversation.
func (s *Store) Append(conversationID string, msg *model.Message) error {
	s.mu.Lock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	if _, dup := s.messageIndex[msg.ID]; dup {
		s.mu.Unlock()
		return ErrDuplicateMessageID
	}

	conv.AddMessage(msg)
	s.messageIndex[msg.ID] = conversationID
	s.version++
	version := s.version
	s.mu.Unlock()

	s.broadcaster.Publish(Event{
		Type:           EventMessageAppended,
		ConversationID: conversationID,
		MessageID:      msg.ID,
		Version:        version,
	})
	return nil
}

// UpdateByMessageID applies mutate to the single message with the given ID,
// wherever it lives. A no-op when the ID is unknown (the conversation may
// have been discarded mid-stream). The mutator runs under the store lock
// and must not call back into the store.
func (s *Store) UpdateByMessageID(messageID string, mutate func(*model.Message)) bool {
	s.mu.Lock()
	conversationID, ok := s.messageIndex[messageID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	conv := s.conversations[conversationID]
	msg := conv.GetMessageByID(messageID)
	if msg == nil {
		s.mu.Unlock()
		return false
	}

	mutate(msg)
	s.version++
	version := s.version
	s.mu.Unlock()

	s.broadcaster.Publish(Event{
		Type:           EventMessageUpdated,
		ConversationID: conversationID,
		MessageID:      messageID,
		Version:        version,
	})
	return true
}

// ContainsStreaming reports whether the identified conversation currently
// has a message mid-stream. Unknown conversations report false.
func (s *Store) ContainsStreaming(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return false
	}
	return conv.HasStreamingMessage()
}

// ConversationOf returns the ID of the conversation containing the given
// message, or empty string if unknown.
func (s *Store) ConversationOf(messageID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messageIndex[messageID]
}
