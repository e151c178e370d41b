// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/solacechat/solace-tui/internal/model"
	"github.com/solacechat/solace-tui/internal/store"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// chatRequest is the body of a streaming chat POST. ConversationID is
// omitted for a conversation's first exchange; the server assigns the
// persistent identity and announces it in the done frame.
type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	DocID          string `json:"doc_id,omitempty"`
}

// SwitchFunc is notified when a conversation's identity changes mid-session,
// so the caller can follow its active selection to the new ID.
type SwitchFunc func(oldID, newID string)

// =============================================================================
// SESSION
// =============================================================================

// Session drives streaming chat exchanges against the store.
//
// One Session serves any number of sequential or concurrent exchanges;
// per-exchange state lives on the stack of Initiate. All store writes go
// through message-ID targeting, so concurrent exchanges on different
// conversations never interfere.
type Session struct {
	client     *Client
	store      *store.Store
	reconciler *Reconciler
	onSwitch   SwitchFunc
	logger     *slog.Logger
}

// NewSession creates a session. The reconciler may be nil to disable the
// post-stream reconciliation fetch.
func NewSession(client *Client, st *store.Store, reconciler *Reconciler, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		client:     client,
		store:      st,
		reconciler: reconciler,
		logger:     logger.With("component", "session"),
	}
}

// OnConversationSwitch registers the identity-switch callback.
func (s *Session) OnConversationSwitch(fn SwitchFunc) {
	s.onSwitch = fn
}

// =============================================================================
// INITIATE
// =============================================================================

// Initiate runs one full streaming exchange: it appends the placeholder
// assistant message, POSTs the user's message, and folds response frames
// into the placeholder until the stream ends. Blocks until the exchange is
// over; run it on its own goroutine.
//
// Rejects with ErrStreamActive when the conversation already has a
// response in flight. On every path the placeholder stops streaming
// exactly once. Cancel ctx to abandon the exchange; partial content
// received so far is kept.
func (s *Session) Initiate(ctx context.Context, conversationID, message, docID string) error {
	if !s.client.IsConfigured() {
		return ErrNotConfigured
	}
	conv := s.store.Get(conversationID)
	if conv == nil {
		return store.ErrConversationNotFound
	}
	if s.store.ContainsStreaming(conversationID) {
		return ErrStreamActive
	}

	reqBody := chatRequest{Message: message, DocID: docID}
	if !conv.IsTemporary {
		reqBody.ConversationID = conversationID
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	placeholder := model.NewAssistantPlaceholder()
	if err := s.store.Append(conversationID, placeholder); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.client.BaseURL()+"/api/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		s.failPlaceholder(placeholder.ID, "could not build request")
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.client.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	// PERFORMANCE: shared streaming client, no timeout, lifetime via ctx
	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		s.failPlaceholder(placeholder.ID, "could not reach server")
		return &TransportError{Op: "chat", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := s.client.handleErrorResponse(resp.StatusCode, resp.Body)
		s.failPlaceholder(placeholder.ID, err.Error())
		return err
	}

	return s.consume(ctx, resp.Body, conversationID, placeholder.ID)
}

// consume reads frames until a terminal frame, EOF, or read failure.
func (s *Session) consume(ctx context.Context, body io.Reader, conversationID, messageID string) error {
	reader := NewFrameReader(body, s.logger)
	var accumulated strings.Builder

	for {
		select {
		case <-ctx.Done():
			s.finishPlaceholder(messageID)
			return ctx.Err()
		default:
		}

		frame, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				// Stream ended without a done frame; keep what arrived
				s.logger.Warn("stream ended without done frame",
					"conversation_id", conversationID)
				s.finishPlaceholder(messageID)
				return nil
			}
			if errors.Is(err, context.Canceled) {
				s.finishPlaceholder(messageID)
				return err
			}
			s.failPlaceholder(messageID, "connection lost")
			return &TransportError{Op: "stream", Err: err}
		}

		switch frame.Type {
		case FrameChunk:
			// Zero-length chunks are valid and change nothing
			if frame.Content == "" {
				continue
			}
			accumulated.WriteString(frame.Content)
			full := accumulated.String()
			s.store.UpdateByMessageID(messageID, func(m *model.Message) {
				m.SetStreamContent(full)
			})

		case FrameDone:
			finalID := s.promote(conversationID, frame.ConversationID)
			s.finishPlaceholder(messageID)
			if s.reconciler != nil {
				s.reconciler.Schedule(finalID)
			}
			return nil

		case FrameError:
			s.failPlaceholder(messageID, frame.Message)
			return &ServerError{Message: frame.Message}
		}
	}
}

// promote applies a server-announced conversation identity, returning the
// ID the conversation answers to afterwards. A refused rename (collision,
// discarded conversation) keeps the current identity; the switch callback
// only fires when the store actually rebound.
func (s *Session) promote(currentID, announcedID string) string {
	if announcedID == "" || announcedID == currentID {
		return currentID
	}

	if !s.store.RenameConversation(currentID, announcedID) {
		s.logger.Warn("promotion refused, keeping local identity",
			"old_id", currentID, "new_id", announcedID)
		return currentID
	}
	s.logger.Info("conversation promoted",
		"old_id", currentID, "new_id", announcedID)
	if s.onSwitch != nil {
		s.onSwitch(currentID, announcedID)
	}
	return announcedID
}

// finishPlaceholder ends streaming, keeping accumulated content.
func (s *Session) finishPlaceholder(messageID string) {
	s.store.UpdateByMessageID(messageID, func(m *model.Message) {
		m.FinalizeStream()
	})
}

// failPlaceholder ends streaming with an error-labeled content string.
func (s *Session) failPlaceholder(messageID, message string) {
	s.store.UpdateByMessageID(messageID, func(m *model.Message) {
		m.FinalizeStreamWithError(message)
	})
}
