// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
)

// STREAMING: Robust frame parsing with per-frame error recovery

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// MaxFrameSize is the maximum allowed size for a single frame line (64KB).
const MaxFrameSize = 64 * 1024

// framePrefix marks a payload line in the response body.
const framePrefix = "data: "

// =============================================================================
// FRAME TYPES
// =============================================================================

// FrameType discriminates the streaming payload union.
type FrameType string

const (
	FrameChunk FrameType = "chunk"
	FrameDone  FrameType = "done"
	FrameError FrameType = "error"
)

// Frame is one parsed streaming payload.
//
// Chunk frames carry Content (possibly empty). Done frames may carry a
// ConversationID when the server assigned a persistent identity to the
// conversation. Error frames carry Message.
type Frame struct {
	Type           FrameType `json:"type"`
	Content        string    `json:"content,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Message        string    `json:"message,omitempty"`
}

// IsTerminal returns true for frames that end the stream.
func (f *Frame) IsTerminal() bool {
	return f.Type == FrameDone || f.Type == FrameError
}

// =============================================================================
// FRAME READER
// =============================================================================

// FrameReader incrementally parses "data: <json>" lines from a chunked
// response body. Reads may split a line at any byte boundary; the buffered
// reader holds the trailing partial line until the rest arrives. Lines
// that fail to parse are logged and skipped, never fatal.
type FrameReader struct {
	reader *bufio.Reader
	logger *slog.Logger
}

// NewFrameReader creates a frame reader over a response body.
func NewFrameReader(r io.Reader, logger *slog.Logger) *FrameReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameReader{
		reader: bufio.NewReader(r),
		logger: logger.With("component", "stream"),
	}
}

// Next returns the next well-formed frame, or io.EOF when the body ends.
// A final line lacking its newline is still parsed if it forms a complete
// frame.
func (fr *FrameReader) Next() (*Frame, error) {
	for {
		line, err := fr.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}

		frame, ok := fr.parseLine(line)
		if ok {
			return frame, nil
		}
		if err == io.EOF {
			return nil, io.EOF
		}
	}
}

// parseLine parses a single line into a frame. Returns false for blank
// lines, non-payload lines, and malformed payloads.
func (fr *FrameReader) parseLine(line string) (*Frame, bool) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, false
	}
	if len(line) > MaxFrameSize {
		fr.logger.Warn("oversized frame skipped", "bytes", len(line))
		return nil, false
	}
	if !strings.HasPrefix(line, framePrefix) {
		fr.logger.Debug("non-payload line skipped")
		return nil, false
	}

	data := strings.TrimPrefix(line, framePrefix)
	var frame Frame
	if err := json.Unmarshal([]byte(data), &frame); err != nil {
		fr.logger.Warn("malformed frame skipped", "error", err)
		return nil, false
	}

	switch frame.Type {
	case FrameChunk, FrameDone, FrameError:
		return &frame, true
	default:
		fr.logger.Warn("unknown frame type skipped", "type", string(frame.Type))
		return nil, false
	}
}
