// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/solacechat/solace-tui/internal/model"
)

func TestCreateAndGet(t *testing.T) {
	s := New(nil)

	conv := s.Create()
	if conv == nil {
		t.Fatal("Create returned nil")
	}
	if !conv.IsTemporary {
		t.Error("New conversations must be temporary")
	}
	if got := s.Get(conv.ID); got != conv {
		t.Error("Get should return the created conversation")
	}
	if got := s.Get("conv_missing"); got != nil {
		t.Error("Get should return nil for unknown IDs")
	}
}

func TestAppendUnknownConversation(t *testing.T) {
	s := New(nil)

	err := s.Append("conv_missing", model.NewUserMessage("hi"))
	if err != ErrConversationNotFound {
		t.Errorf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestAppendDuplicateMessageID(t *testing.T) {
	s := New(nil)
	a := s.Create()
	b := s.Create()

	msg := model.NewUserMessage("hi")
	if err := s.Append(a.ID, msg); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if err := s.Append(b.ID, msg); err != ErrDuplicateMessageID {
		t.Errorf("err = %v, want ErrDuplicateMessageID", err)
	}
}

func TestUpdateByMessageIDIsolation(t *testing.T) {
	s := New(nil)
	a := s.Create()
	b := s.Create()

	msgA := model.NewAssistantPlaceholder()
	msgB := model.NewAssistantPlaceholder()
	if err := s.Append(a.ID, msgA); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(b.ID, msgB); err != nil {
		t.Fatal(err)
	}

	ok := s.UpdateByMessageID(msgA.ID, func(m *model.Message) {
		m.SetStreamContent("only A")
	})
	if !ok {
		t.Fatal("update should find the message")
	}

	if got := msgA.GetDisplayContent(); got != "only A" {
		t.Errorf("msgA content = %q", got)
	}
	if got := msgB.GetDisplayContent(); got != "" {
		t.Errorf("msgB content = %q, want empty", got)
	}
}

func TestUpdateByMessageIDUnknown(t *testing.T) {
	s := New(nil)

	called := false
	ok := s.UpdateByMessageID("msg_missing", func(m *model.Message) {
		called = true
	})
	if ok || called {
		t.Error("unknown message ID must be a no-op")
	}
}

func TestRenameConversation(t *testing.T) {
	s := New(nil)
	conv := s.Create()
	msg := model.NewAssistantPlaceholder()
	if err := s.Append(conv.ID, msg); err != nil {
		t.Fatal(err)
	}
	oldID := conv.ID

	if !s.RenameConversation(oldID, "abc123") {
		t.Fatal("rename should report success")
	}

	if s.Get(oldID) != nil {
		t.Error("old ID should no longer resolve")
	}
	if got := s.Get("abc123"); got != conv {
		t.Error("new ID should resolve to the same conversation")
	}
	if conv.IsTemporary {
		t.Error("rename must clear the temporary flag")
	}

	// Message index follows the rename
	if !s.UpdateByMessageID(msg.ID, func(m *model.Message) { m.SetStreamContent("x") }) {
		t.Error("message should still be addressable after rename")
	}
	if got := s.ConversationOf(msg.ID); got != "abc123" {
		t.Errorf("ConversationOf = %q, want abc123", got)
	}
}

func TestRenameCollision(t *testing.T) {
	s := New(nil)
	a := s.Create()
	b := s.Create()

	if s.RenameConversation(a.ID, b.ID) {
		t.Error("colliding rename must report failure")
	}

	// Both keep their identities; the collision is log-only
	if s.Get(a.ID) != a {
		t.Error("colliding rename must leave the old identity intact")
	}
	if s.Get(b.ID) != b {
		t.Error("colliding rename must not disturb the target")
	}
	if !a.IsTemporary {
		t.Error("failed rename must not clear the temporary flag")
	}
}

func TestRenameUnknown(t *testing.T) {
	s := New(nil)
	if s.RenameConversation("conv_missing", "abc123") {
		t.Error("renaming an unknown conversation must report failure")
	}
	if s.Get("abc123") != nil {
		t.Error("renaming an unknown conversation must not create one")
	}
}

func TestContainsStreaming(t *testing.T) {
	s := New(nil)
	conv := s.Create()

	if s.ContainsStreaming(conv.ID) {
		t.Error("empty conversation should not stream")
	}

	placeholder := model.NewAssistantPlaceholder()
	if err := s.Append(conv.ID, placeholder); err != nil {
		t.Fatal(err)
	}
	if !s.ContainsStreaming(conv.ID) {
		t.Error("expected a streaming message")
	}

	s.UpdateByMessageID(placeholder.ID, func(m *model.Message) {
		m.FinalizeStream()
	})
	if s.ContainsStreaming(conv.ID) {
		t.Error("finalized message must not count as streaming")
	}

	if s.ContainsStreaming("conv_missing") {
		t.Error("unknown conversation should report false")
	}
}

func TestVersionMonotonic(t *testing.T) {
	s := New(nil)

	v0 := s.Version()
	conv := s.Create()
	v1 := s.Version()
	if v1 <= v0 {
		t.Errorf("version did not advance on create: %d -> %d", v0, v1)
	}

	if err := s.Append(conv.ID, model.NewUserMessage("hi")); err != nil {
		t.Fatal(err)
	}
	v2 := s.Version()
	if v2 <= v1 {
		t.Errorf("version did not advance on append: %d -> %d", v1, v2)
	}
}

func TestConcurrentMutation(t *testing.T) {
	s := New(nil)
	a := s.Create()
	b := s.Create()

	msgA := model.NewAssistantPlaceholder()
	msgB := model.NewAssistantPlaceholder()
	if err := s.Append(a.ID, msgA); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(b.ID, msgB); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.UpdateByMessageID(msgA.ID, func(m *model.Message) {
				m.SetStreamContent("A")
			})
		}()
		go func() {
			defer wg.Done()
			s.UpdateByMessageID(msgB.ID, func(m *model.Message) {
				m.SetStreamContent("B")
			})
		}()
	}
	wg.Wait()

	if got := msgA.GetDisplayContent(); got != "A" {
		t.Errorf("msgA = %q", got)
	}
	if got := msgB.GetDisplayContent(); got != "B" {
		t.Errorf("msgB = %q", got)
	}
}

func TestSnapshotUnknown(t *testing.T) {
	s := New(nil)
	if s.Snapshot("conv_missing") != nil {
		t.Error("unknown conversation should snapshot to nil")
	}
}

func TestSnapshotCopiesStreamContent(t *testing.T) {
	s := New(nil)
	conv := s.Create()
	msg := model.NewAssistantPlaceholder()
	if err := s.Append(conv.ID, msg); err != nil {
		t.Fatal(err)
	}
	s.UpdateByMessageID(msg.ID, func(m *model.Message) {
		m.SetStreamContent("partial")
	})

	snap := s.Snapshot(conv.ID)
	if snap == nil {
		t.Fatal("snapshot missing")
	}
	last := snap.Messages[len(snap.Messages)-1]
	if last.Content != "partial" || !last.IsStreaming {
		t.Errorf("snapshot = %+v, want streaming partial content", last)
	}

	// The copy does not follow later mutation
	s.UpdateByMessageID(msg.ID, func(m *model.Message) {
		m.SetStreamContent("partial grew")
	})
	if last.Content != "partial" {
		t.Error("snapshot must not track the live message")
	}
}

func TestSnapshotReadsDuringStreaming(t *testing.T) {
	s := New(nil)
	defer s.Close()
	conv := s.Create()
	msg := model.NewAssistantPlaceholder()
	if err := s.Append(conv.ID, msg); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _ := s.Subscribe(ctx)

	// An observer reads a snapshot on every update, the way the UI does,
	// while the writer keeps streaming chunks into the same message
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if ev.Type != EventMessageUpdated {
				continue
			}
			if snap := s.Snapshot(ev.ConversationID); snap != nil {
				_ = snap.Messages[len(snap.Messages)-1].Content
			}
		}
	}()

	var content strings.Builder
	for i := 0; i < 200; i++ {
		content.WriteString("chunk ")
		full := content.String()
		s.UpdateByMessageID(msg.ID, func(m *model.Message) {
			m.SetStreamContent(full)
		})
	}
	s.UpdateByMessageID(msg.ID, func(m *model.Message) {
		m.FinalizeStream()
	})
	cancel()
	<-done

	snap := s.Snapshot(conv.ID)
	last := snap.Messages[len(snap.Messages)-1]
	if last.IsStreaming {
		t.Error("message should be finalized")
	}
	if !strings.HasPrefix(last.Content, "chunk ") {
		t.Errorf("content lost: %q", last.Content)
	}
}
