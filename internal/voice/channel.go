// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/solacechat/solace-tui/internal/backend"
)

// outboundQueueSize bounds segments waiting on the rate limiter.
const outboundQueueSize = 8

// ErrNotActive indicates the channel is not open.
var ErrNotActive = errors.New("voice channel not active")

// TranscriptFunc receives each inbound transcript fragment, in arrival
// order, already NFC-normalized.
type TranscriptFunc func(text string)

// =============================================================================
// CHANNEL
// =============================================================================

// Channel is the duplex voice connection. One Activate/Deactivate cycle
// owns one websocket; a connection that drops stays down until the user
// activates again.
type Channel struct {
	client       *backend.Client
	player       Player
	limiter      *rate.Limiter
	onTranscript TranscriptFunc
	logger       *slog.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	queue      *playbackQueue
	outbound   chan []byte
	runCtx     context.Context
	cancel     context.CancelFunc
	transcript []string
	wg         sync.WaitGroup
}

// NewChannel creates an inactive channel.
func NewChannel(client *backend.Client, player Player, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		client: client,
		player: player,
		// A segment spans several seconds of speech; this limit only
		// stops a backlogged recorder from flooding the socket.
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 4),
		logger:  logger.With("component", "voice"),
	}
}

// OnTranscript registers the transcript fragment callback.
func (c *Channel) OnTranscript(fn TranscriptFunc) {
	c.onTranscript = fn
}

// IsActive reports whether the websocket is open.
func (c *Channel) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// wsURL derives the websocket endpoint from the configured base URL.
func (c *Channel) wsURL() string {
	base := c.client.BaseURL()
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/voice"
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Activate dials the voice endpoint and starts the duplex pumps.
func (c *Channel) Activate(ctx context.Context) error {
	if !c.client.IsConfigured() {
		return backend.ErrNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	conn, _, err := websocket.Dial(ctx, c.wsURL(), &websocket.DialOptions{
		HTTPHeader: c.client.AuthHeader(),
	})
	if err != nil {
		return &backend.TransportError{Op: "voice dial", Err: err}
	}
	// Audio segments exceed the library's 32KB default read limit
	conn.SetReadLimit(2 * SegmentBytes)

	runCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.runCtx = runCtx
	c.cancel = cancel
	c.outbound = make(chan []byte, outboundQueueSize)
	c.queue = newPlaybackQueue(c.player, c.logger)
	c.queue.start(runCtx)

	c.wg.Add(2)
	go c.readLoop(runCtx, conn)
	go c.writeLoop(runCtx, conn, c.outbound)

	c.logger.Info("voice channel active")
	return nil
}

// Deactivate closes the websocket and stops both pumps. Safe to call when
// already inactive.
func (c *Channel) Deactivate() {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	cancel := c.cancel
	queue := c.queue
	c.mu.Unlock()

	cancel()
	conn.Close(websocket.StatusNormalClosure, "deactivated")
	queue.close()
	c.wg.Wait()

	c.logger.Info("voice channel closed")
}

// =============================================================================
// OUTBOUND
// =============================================================================

// Send ships one completed capture segment as a binary frame. Segments
// offered while the channel is closed are dropped, never buffered.
func (c *Channel) Send(segment []byte) {
	c.mu.Lock()
	outbound := c.outbound
	open := c.conn != nil
	c.mu.Unlock()

	if !open {
		c.logger.Debug("segment dropped, channel closed", "bytes", len(segment))
		return
	}
	select {
	case outbound <- segment:
	default:
		c.logger.Warn("outbound queue full, segment dropped", "bytes", len(segment))
	}
}

// Record opens the recorder and ships its capture stream as outbound
// segments until ctx is canceled, the capture ends, or the channel
// deactivates. Blocks for the duration; run it on its own goroutine.
func (c *Channel) Record(ctx context.Context, rec Recorder) error {
	c.mu.Lock()
	runCtx := c.runCtx
	open := c.conn != nil
	c.mu.Unlock()
	if !open {
		return ErrNotActive
	}

	stream, err := rec.Start(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	// Deactivation ends the capture along with the pumps
	recCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-runCtx.Done():
			cancel()
		case <-recCtx.Done():
		}
	}()

	err = NewSegmenter(c.logger).Run(recCtx, stream, c.Send)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// writeLoop drains outbound segments through the rate limiter.
func (c *Channel) writeLoop(ctx context.Context, conn *websocket.Conn, outbound <-chan []byte) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case segment := <-outbound:
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
			if err := conn.Write(ctx, websocket.MessageBinary, segment); err != nil {
				c.logger.Warn("voice send failed", "error", err)
				return
			}
		}
	}
}

// =============================================================================
// INBOUND
// =============================================================================

// readLoop pumps inbound frames until the connection ends.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("voice connection lost", "error", err)
			}
			return
		}

		switch typ {
		case websocket.MessageText:
			c.appendTranscript(string(data))
		case websocket.MessageBinary:
			c.queue.enqueue(data)
		}
	}
}

// appendTranscript records a fragment in arrival order.
func (c *Channel) appendTranscript(text string) {
	text = norm.NFC.String(text)

	c.mu.Lock()
	c.transcript = append(c.transcript, text)
	c.mu.Unlock()

	if c.onTranscript != nil {
		c.onTranscript(text)
	}
}

// Transcript returns the accumulated transcript text.
func (c *Channel) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.transcript, "")
}
