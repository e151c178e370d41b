// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"context"
	"log/slog"
	"sync"
)

// playbackQueueSize bounds how many undelivered segments wait for the
// player before new arrivals are dropped.
const playbackQueueSize = 64

// Player consumes one audio segment at a time. Implementations own the
// audio device; tests substitute a recorder of calls.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// NopPlayer discards audio. Stands in when no output device is wired, so
// the transcript side of voice mode still works.
type NopPlayer struct{}

// Play implements Player.
func (NopPlayer) Play(ctx context.Context, audio []byte) error { return nil }

// =============================================================================
// PLAYBACK QUEUE
// =============================================================================

// playbackQueue serializes inbound audio onto a single goroutine so
// segments play strictly in arrival order, even when frames arrive faster
// than they play.
type playbackQueue struct {
	player  Player
	pending chan []byte
	wg      sync.WaitGroup
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

func newPlaybackQueue(player Player, logger *slog.Logger) *playbackQueue {
	return &playbackQueue{
		player:  player,
		pending: make(chan []byte, playbackQueueSize),
		logger:  logger,
	}
}

// start launches the playback goroutine. Playback stops when ctx is
// canceled or the queue closes.
func (q *playbackQueue) start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case audio, ok := <-q.pending:
				if !ok {
					return
				}
				if err := q.player.Play(ctx, audio); err != nil {
					q.logger.Warn("playback failed", "bytes", len(audio), "error", err)
				}
			}
		}
	}()
}

// enqueue schedules a segment for playback. Drops the segment when the
// queue is full or closed. The lock orders enqueue against close so a
// send never races the channel close.
func (q *playbackQueue) enqueue(audio []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.pending <- audio:
	default:
		q.logger.Warn("playback queue full, segment dropped", "bytes", len(audio))
	}
}

// close stops accepting segments and waits for the goroutine to exit.
func (q *playbackQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.pending)
	q.mu.Unlock()

	q.wg.Wait()
}
