// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload transfers attachment files to the server out of band.
//
// An upload starts the moment the user selects a file and runs on its own
// goroutine, decoupled from message sends. The caller watches progress
// through a callback and gates sends on the resulting document handle.
package upload
