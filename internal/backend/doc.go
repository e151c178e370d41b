// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend talks to the Solace server: the streaming chat endpoint,
// the reconciliation read, and the shared HTTP plumbing underneath them.
//
// A chat exchange is one POST whose chunked response body carries
// newline-delimited "data: <json>" frames. Session drives the exchange end
// to end: it creates the placeholder assistant message, folds chunk frames
// into it through the store, and handles the identity promotion that a done
// frame can announce for a conversation's first exchange.
package backend
