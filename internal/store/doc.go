// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds all in-memory conversation state and is the single
// point of mutation for it.
//
// Every change goes through a locked Store method; concurrent streaming
// sessions, uploads, and UI reads never touch a Conversation directly.
// Observers subscribe to a fan-out broadcaster and receive change events
// instead of polling.
package store
