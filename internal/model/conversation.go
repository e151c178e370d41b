// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a chat conversation with history and metadata.
//
// ID is either a locally generated temporary identifier (IsTemporary true)
// or a backend-assigned persistent identifier. Promotion from temporary to
// permanent happens exactly once, by renaming in place.
type Conversation struct {
	// Identity
	ID          string    `json:"id"`
	IsTemporary bool      `json:"is_temporary"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Messages, append-only and monotonic
	Messages []*Message `json:"messages"`
}

// NewConversation creates a new temporary conversation with a generated ID.
func NewConversation() *Conversation {
	return &Conversation{
		ID:          GenerateConversationID(),
		IsTemporary: true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Messages:    make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message to the conversation.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTitle()
}

// GetLastMessage returns the most recent message, or nil if empty.
func (c *Conversation) GetLastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// GetMessageByID returns a message by its ID, or nil if absent.
func (c *Conversation) GetMessageByID(id string) *Message {
	for _, msg := range c.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// ContainsMessage returns true if a message with the given ID is present.
func (c *Conversation) ContainsMessage(id string) bool {
	return c.GetMessageByID(id) != nil
}

// HasStreamingMessage returns true if any message is still streaming.
// At most one message per conversation streams at any instant; the submit
// path enforces this by refusing new sends while one is active.
func (c *Conversation) HasStreamingMessage() bool {
	for _, msg := range c.Messages {
		if msg.IsStreaming {
			return true
		}
	}
	return false
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// PROMOTION
// =============================================================================

// Promote renames the conversation to a backend-assigned identifier and
// clears the temporary flag. The message list is untouched.
func (c *Conversation) Promote(persistentID string) {
	c.ID = persistentID
	c.IsTemporary = false
	c.UpdatedAt = time.Now()
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// ConversationSnapshot is a point-in-time copy of a conversation for
// observers, safe to read from any goroutine.
type ConversationSnapshot struct {
	ID          string
	IsTemporary bool
	Title       string
	Messages    []MessageSnapshot
}

// Snapshot copies the conversation's current state, including every
// message. The caller must hold the lock that guards mutation.
func (c *Conversation) Snapshot() ConversationSnapshot {
	snap := ConversationSnapshot{
		ID:          c.ID,
		IsTemporary: c.IsTemporary,
		Title:       c.GetTitle(),
		Messages:    make([]MessageSnapshot, 0, len(c.Messages)),
	}
	for _, msg := range c.Messages {
		snap.Messages = append(snap.Messages, msg.Snapshot())
	}
	return snap
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// titlePrefixes are greeting and filler openers stripped before deriving a
// title from the first user message.
var titlePrefixes = []string{
	"hi", "hello", "hey", "greetings",
	"i want to", "i need to", "can you", "could you",
	"please", "help me",
}

var (
	titleSentenceRe = regexp.MustCompile(`^([^.!?]+[.!?])`)
	titleClauseRe   = regexp.MustCompile(`^([^,]+)`)
)

// updateTitle auto-generates a title from the first user message if not set.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			c.Title = TitleFromMessage(msg.Content, 50)
			return
		}
	}
}

// SetTitle manually sets the conversation title.
func (c *Conversation) SetTitle(title string) {
	c.Title = title
	c.UpdatedAt = time.Now()
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// TitleFromMessage derives a conversation title from the first user message:
// strip common greeting prefixes, take the first sentence or clause, truncate
// to maxLength runes, capitalize.
func TitleFromMessage(message string, maxLength int) string {
	cleaned := strings.TrimSpace(message)
	if cleaned == "" {
		return "New Conversation"
	}

	lower := strings.ToLower(cleaned)
	for _, prefix := range titlePrefixes {
		if strings.HasPrefix(lower, prefix) {
			cleaned = strings.TrimLeft(cleaned[len(prefix):], ",.:;!? \t")
			break
		}
	}

	title := cleaned
	if m := titleSentenceRe.FindStringSubmatch(cleaned); m != nil {
		title = strings.TrimSpace(m[1])
	} else if m := titleClauseRe.FindStringSubmatch(cleaned); m != nil {
		title = strings.TrimSpace(m[1])
	}

	// Strip the sentence period before truncation so the appended
	// ellipsis survives intact
	title = strings.TrimSuffix(title, ".")

	runes := []rune(title)
	if len(runes) > maxLength {
		truncated := string(runes[:maxLength])
		if idx := strings.LastIndex(truncated, " "); idx > 0 {
			truncated = truncated[:idx]
		}
		title = truncated + "..."
	}

	if title != "" {
		r := []rune(title)
		title = strings.ToUpper(string(r[0])) + string(r[1:])
	}

	if len([]rune(title)) < 3 {
		return "New Conversation"
	}
	return title
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GenerateConversationID creates a unique temporary conversation ID.
func GenerateConversationID() string {
	return "tmp_" + uuid.New().String()
}
