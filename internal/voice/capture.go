// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Capture format constants. The mic delivers 16kHz 16-bit mono PCM.
const (
	SampleRate     = 16000
	BytesPerSample = 2

	// SegmentSeconds is the fixed length of each outbound audio segment.
	SegmentSeconds = 5

	// SegmentBytes is the byte size of one complete segment.
	SegmentBytes = SampleRate * BytesPerSample * SegmentSeconds
)

// Recorder opens the microphone and returns its raw PCM stream.
// Implementations own the audio device; tests substitute canned readers.
type Recorder interface {
	Start(ctx context.Context) (io.ReadCloser, error)
}

// FileRecorder replays a raw PCM capture from disk. Stands in when no
// input device is wired, so the outbound path can still be exercised
// against a live server.
type FileRecorder struct {
	Path string
}

// Start implements Recorder.
func (r FileRecorder) Start(ctx context.Context) (io.ReadCloser, error) {
	return os.Open(r.Path)
}

// =============================================================================
// SEGMENTER
// =============================================================================

// SegmentFunc receives each completed audio segment.
type SegmentFunc func(segment []byte)

// Segmenter cuts a raw capture stream into fixed-length segments. A short
// final segment is emitted when the stream ends mid-interval.
type Segmenter struct {
	segmentBytes int
	logger       *slog.Logger
}

// NewSegmenter creates a segmenter using the standard segment length.
func NewSegmenter(logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Segmenter{
		segmentBytes: SegmentBytes,
		logger:       logger.With("component", "capture"),
	}
}

// withSegmentBytes overrides the segment size, for tests.
func (s *Segmenter) withSegmentBytes(n int) *Segmenter {
	s.segmentBytes = n
	return s
}

// Run reads the capture stream until EOF or ctx cancellation, invoking
// emit once per completed segment. Each emitted slice is freshly
// allocated; the callback may retain it.
func (s *Segmenter) Run(ctx context.Context, capture io.Reader, emit SegmentFunc) error {
	buf := make([]byte, s.segmentBytes)
	filled := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := capture.Read(buf[filled:])
		filled += n
		if filled == s.segmentBytes {
			segment := make([]byte, s.segmentBytes)
			copy(segment, buf)
			emit(segment)
			filled = 0
		}
		if err != nil {
			if err == io.EOF {
				if filled > 0 {
					segment := make([]byte, filled)
					copy(segment, buf[:filled])
					emit(segment)
				}
				return nil
			}
			return err
		}
	}
}
