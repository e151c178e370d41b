// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/solacechat/solace-tui/internal/store"
	"github.com/solacechat/solace-tui/internal/upload"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// StoreEventMsg carries a store change into the update loop.
type StoreEventMsg store.Event

// StreamDoneMsg reports that a streaming exchange finished.
type StreamDoneMsg struct {
	ConversationID string
	Err            error
}

// UploadProgressMsg reports attachment transfer progress.
type UploadProgressMsg struct {
	Filename string
	Percent  int
}

// UploadDoneMsg reports the resolved outcome of an attachment upload.
type UploadDoneMsg struct {
	Filename string
	Result   *upload.Result
	Err      error
}

// TranscriptMsg carries one inbound voice transcript fragment.
type TranscriptMsg struct {
	Text string
}

// VoiceStateMsg reports the voice channel opening or closing.
type VoiceStateMsg struct {
	Active bool
	Err    error
}

// RecordDoneMsg reports that an outbound capture finished.
type RecordDoneMsg struct {
	Err error
}
