// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/solacechat/solace-tui/internal/model"
	"github.com/solacechat/solace-tui/internal/store"
	"github.com/solacechat/solace-tui/internal/tasks"
)

// DefaultReconcileDelay is how long after a completed stream the
// authoritative re-read runs. The server needs a moment to persist the
// exchange before the read is useful.
const DefaultReconcileDelay = time.Second

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// conversationResponse is the authoritative server view of a conversation.
type conversationResponse struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Messages []remoteMessage `json:"messages"`
}

type remoteMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler re-reads a conversation from the server after a stream
// completes and folds the authoritative assistant text back into local
// state. The fetched text wins whenever it differs from what accumulated
// locally; when the fetch fails, local content stands.
type Reconciler struct {
	client *Client
	store  *store.Store
	runner *tasks.Runner
	delay  time.Duration
	logger *slog.Logger
}

// NewReconciler creates a reconciler using the default delay.
func NewReconciler(client *Client, st *store.Store, runner *tasks.Runner, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		client: client,
		store:  st,
		runner: runner,
		delay:  DefaultReconcileDelay,
		logger: logger.With("component", "reconcile"),
	}
}

// WithDelay overrides the fetch delay.
func (r *Reconciler) WithDelay(delay time.Duration) *Reconciler {
	r.delay = delay
	return r
}

// Schedule queues a reconciliation fetch for the conversation.
func (r *Reconciler) Schedule(conversationID string) *tasks.Task {
	return r.runner.After(r.delay, "reconcile "+conversationID,
		func(ctx context.Context, task *tasks.Task) error {
			task.ConversationID = conversationID
			return r.Reconcile(ctx, conversationID)
		})
}

// Reconcile fetches the authoritative conversation and applies the merge
// immediately.
func (r *Reconciler) Reconcile(ctx context.Context, conversationID string) error {
	remote, err := r.fetch(ctx, conversationID)
	if err != nil {
		// Local content stands on any fetch failure
		r.logger.Warn("reconciliation fetch failed, keeping local content",
			"conversation_id", conversationID, "error", err)
		return err
	}
	r.merge(conversationID, remote)
	return nil
}

// fetch performs the authoritative read.
func (r *Reconciler) fetch(ctx context.Context, conversationID string) (*conversationResponse, error) {
	url := r.client.BaseURL() + "/api/conversations/" + conversationID

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	r.client.setHeaders(req)

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "reconcile", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, r.client.handleErrorResponse(resp.StatusCode, resp.Body)
	}

	var remote conversationResponse
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	if err := json.NewDecoder(limited).Decode(&remote); err != nil {
		return nil, &ProtocolError{Line: "conversation body", Err: err}
	}
	return &remote, nil
}

// merge replaces the last local assistant text with the server's when they
// differ. Messages still streaming are never touched.
func (r *Reconciler) merge(conversationID string, remote *conversationResponse) {
	conv := r.store.Get(conversationID)
	if conv == nil {
		r.logger.Debug("reconciled conversation no longer present",
			"conversation_id", conversationID)
		return
	}

	remoteText, ok := lastAssistantText(remote)
	if !ok {
		return
	}

	local := lastFinalAssistantMessage(conv)
	if local == nil || local.Content == remoteText {
		return
	}

	r.logger.Info("authoritative content differs, replacing local",
		"conversation_id", conversationID,
		"message_id", local.ID)
	r.store.UpdateByMessageID(local.ID, func(m *model.Message) {
		m.Content = remoteText
	})
}

// lastAssistantText returns the content of the last assistant message in
// the server view.
func lastAssistantText(remote *conversationResponse) (string, bool) {
	for i := len(remote.Messages) - 1; i >= 0; i-- {
		if remote.Messages[i].Role == model.RoleAssistant.String() {
			return remote.Messages[i].Content, true
		}
	}
	return "", false
}

// lastFinalAssistantMessage returns the most recent non-streaming
// assistant message, or nil.
func lastFinalAssistantMessage(conv *model.Conversation) *model.Message {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		msg := conv.Messages[i]
		if msg.Role == model.RoleAssistant && !msg.IsStreaming {
			return msg
		}
	}
	return nil
}
