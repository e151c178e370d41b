// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// and file attachments.
//
// A Conversation starts life with a locally generated temporary identifier
// and is promoted in place to a backend-assigned identifier when the first
// streaming response completes. Messages are append-only; an assistant
// message is created empty with IsStreaming set, accumulates content while
// the stream runs, and becomes immutable once the stream finishes.
package model
