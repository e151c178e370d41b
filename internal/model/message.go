// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Solace"
	default:
		return string(r)
	}
}

// =============================================================================
// UPLOAD STATUS
// =============================================================================

// UploadStatus is the lifecycle state of a file attachment transfer.
type UploadStatus string

const (
	UploadPending    UploadStatus = "pending"
	UploadProcessing UploadStatus = "processing"
	UploadReady      UploadStatus = "ready"
	UploadFailed     UploadStatus = "failed"
)

// String returns the string representation of the upload status.
func (s UploadStatus) String() string {
	return string(s)
}

// =============================================================================
// FILE ATTACHMENT
// =============================================================================

// FileAttachment references a document uploaded out of band.
//
// DocID is an opaque server-side handle; extracted document content never
// enters client state. DocID is empty until the upload reaches UploadReady.
type FileAttachment struct {
	Filename string       `json:"filename"`
	Status   UploadStatus `json:"upload_status"`
	DocID    string       `json:"doc_id,omitempty"`
}

// IsReady returns true when the attachment can be referenced in a send.
func (a *FileAttachment) IsReady() bool {
	return a != nil && a.Status == UploadReady && a.DocID != ""
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// Message IDs are unique across the entire store, not just within one
// conversation: targeted mutation locates a conversation by scanning for a
// contained message ID.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// Optional attachment reference (user messages only)
	Attachment *FileAttachment `json:"attachment,omitempty"`

	// Streaming state (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`
}

// NewUserMessage creates a new user message with immutable content.
func NewUserMessage(content string) *Message {
	return &Message{
		ID:        GenerateMessageID(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessageWithAttachment creates a user message carrying an attachment
// reference.
func NewUserMessageWithAttachment(content string, attachment *FileAttachment) *Message {
	msg := NewUserMessage(content)
	msg.Attachment = attachment
	return msg
}

// NewAssistantPlaceholder creates the empty assistant message that a
// streaming session mutates. It is the only message kind created with
// IsStreaming set.
func NewAssistantPlaceholder() *Message {
	return &Message{
		ID:          GenerateMessageID(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// SetStreamContent replaces the in-flight content of a streaming message
// with the full accumulated buffer. A no-op once streaming has finished.
func (m *Message) SetStreamContent(content string) {
	if !m.IsStreaming {
		return
	}
	m.streamContent.Reset()
	m.streamContent.WriteString(content)
}

// FinalizeStream completes streaming, freezing the accumulated content.
// Safe to call more than once; only the first call has an effect.
func (m *Message) FinalizeStream() {
	if !m.IsStreaming {
		return
	}
	m.Content = m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false
}

// FinalizeStreamWithError completes streaming with an error-labeled content
// string, replacing whatever partial content had accumulated.
func (m *Message) FinalizeStreamWithError(message string) {
	if !m.IsStreaming {
		return
	}
	m.streamContent.Reset()
	m.streamContent.WriteString("Error: " + message)
	m.FinalizeStream()
}

// GetDisplayContent returns the content to display (streaming or final).
func (m *Message) GetDisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := m.GetDisplayContent()
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// MessageSnapshot is a point-in-time copy of a message for observers.
// Unlike a live *Message, a snapshot is safe to read from any goroutine:
// in-flight stream content is materialized at copy time.
type MessageSnapshot struct {
	ID          string
	Role        Role
	Content     string
	IsStreaming bool
	Attachment  *FileAttachment
	Timestamp   time.Time
}

// Snapshot copies the message's current state. The caller must hold the
// lock that guards mutation of this message.
func (m *Message) Snapshot() MessageSnapshot {
	snap := MessageSnapshot{
		ID:          m.ID,
		Role:        m.Role,
		Content:     m.GetDisplayContent(),
		IsStreaming: m.IsStreaming,
		Timestamp:   m.Timestamp,
	}
	if m.Attachment != nil {
		a := *m.Attachment
		snap.Attachment = &a
	}
	return snap
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GenerateMessageID creates a unique message ID.
func GenerateMessageID() string {
	return "msg_" + uuid.New().String()
}
