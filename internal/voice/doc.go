// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice runs the duplex voice channel: one websocket carrying
// UTF-8 transcript frames and binary audio frames in both directions.
//
// The channel opens when voice mode activates and closes when it
// deactivates; there is no automatic reconnection. Inbound transcript text
// arrives word by word and is appended to the transcript log in arrival
// order. Inbound audio is queued and played strictly in arrival order.
// Outbound audio is cut into fixed-length segments by the capture
// segmenter; segments produced while the channel is closed are dropped,
// never buffered.
package voice
