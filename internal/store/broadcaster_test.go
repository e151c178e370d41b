// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"testing"
	"time"
)

func TestSubscribeReceivesEvents(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _ := b.Subscribe(ctx)
	b.Publish(Event{Type: EventMessageAppended, ConversationID: "c1", Version: 1})

	select {
	case ev := <-ch:
		if ev.Type != EventMessageAppended || ev.ConversationID != "c1" {
			t.Errorf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ch, subID := b.Subscribe(context.Background())
	b.Unsubscribe(subID)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}

	// Second unsubscribe is a no-op
	b.Unsubscribe(subID)
}

func TestContextCancelUnsubscribes(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after context cancel")
		}
	}
}

func TestSlowSubscriberDropsNotBlocks(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Subscribe(ctx) // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBufferSize*2; i++ {
			b.Publish(Event{Type: EventMessageUpdated, Version: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestStoreEventsFlow(t *testing.T) {
	s := New(nil)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, _ := s.Subscribe(ctx)

	conv := s.Create()

	select {
	case ev := <-ch:
		if ev.Type != EventConversationCreated || ev.ConversationID != conv.ID {
			t.Errorf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no create event")
	}

	oldID := conv.ID
	s.RenameConversation(oldID, "abc123")

	select {
	case ev := <-ch:
		if ev.Type != EventConversationRenamed {
			t.Errorf("Type = %q, want rename", ev.Type)
		}
		if ev.OldConversationID != oldID || ev.ConversationID != "abc123" {
			t.Errorf("unexpected rename event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no rename event")
	}
}
