// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/solacechat/solace-tui/internal/model"
	"github.com/solacechat/solace-tui/internal/store"
	"github.com/solacechat/solace-tui/internal/tasks"
)

func seedConversation(t *testing.T, st *store.Store, assistantText string) *model.Conversation {
	t.Helper()
	conv := st.Create()
	st.RenameConversation(conv.ID, "abc123")
	if err := st.Append("abc123", model.NewUserMessage("hi")); err != nil {
		t.Fatal(err)
	}
	msg := model.NewAssistantPlaceholder()
	if err := st.Append("abc123", msg); err != nil {
		t.Fatal(err)
	}
	msg.SetStreamContent(assistantText)
	msg.FinalizeStream()
	return conv
}

func newTestReconciler(st *store.Store, serverURL string) *Reconciler {
	client := NewClient(serverURL, nil).WithToken("test-token")
	return NewReconciler(client, st, tasks.NewRunner(nil), nil)
}

func TestReconcileReplacesDivergedContent(t *testing.T) {
	st := store.New(nil)
	defer st.Close()
	conv := seedConversation(t, st, "local draft")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/conversations/abc123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(conversationResponse{
			ID: "abc123",
			Messages: []remoteMessage{
				{Role: "user", Content: "hi"},
				{Role: "assistant", Content: "authoritative"},
			},
		})
	}))
	defer server.Close()

	r := newTestReconciler(st, server.URL)
	if err := r.Reconcile(context.Background(), "abc123"); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if got := conv.GetLastMessage().Content; got != "authoritative" {
		t.Errorf("content = %q, want authoritative replacement", got)
	}
}

func TestReconcileMatchingContentUntouched(t *testing.T) {
	st := store.New(nil)
	defer st.Close()
	seedConversation(t, st, "same text")

	before := st.Version()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(conversationResponse{
			ID: "abc123",
			Messages: []remoteMessage{
				{Role: "assistant", Content: "same text"},
			},
		})
	}))
	defer server.Close()

	r := newTestReconciler(st, server.URL)
	if err := r.Reconcile(context.Background(), "abc123"); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if st.Version() != before {
		t.Error("matching content must not produce a store mutation")
	}
}

func TestReconcileFetchFailureKeepsLocal(t *testing.T) {
	st := store.New(nil)
	defer st.Close()
	conv := seedConversation(t, st, "local stands")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	r := newTestReconciler(st, server.URL)
	if err := r.Reconcile(context.Background(), "abc123"); err == nil {
		t.Fatal("expected an error from the failed fetch")
	}

	if got := conv.GetLastMessage().Content; got != "local stands" {
		t.Errorf("content = %q, local content must survive fetch failure", got)
	}
}

func TestReconcileUnknownLocalConversation(t *testing.T) {
	st := store.New(nil)
	defer st.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(conversationResponse{ID: "gone"})
	}))
	defer server.Close()

	r := newTestReconciler(st, server.URL)
	// The conversation was discarded locally; the merge is a no-op
	if err := r.Reconcile(context.Background(), "gone"); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
}
