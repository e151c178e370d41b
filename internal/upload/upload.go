// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/solacechat/solace-tui/internal/backend"
	"github.com/solacechat/solace-tui/internal/model"
)

// indeterminateProgress is reported while bytes are moving but the total
// size is unknown.
const indeterminateProgress = 10

// =============================================================================
// TYPES
// =============================================================================

// ProgressFunc receives upload progress, 0-100. Values never decrease.
type ProgressFunc func(percent int)

// File is the attachment being transferred. Size may be zero when unknown;
// progress then stays indeterminate until completion.
type File struct {
	Name   string
	Reader io.Reader
	Size   int64
}

// Result is the resolved outcome of an upload.
type Result struct {
	Status model.UploadStatus
	DocID  string
}

// UploadError wraps a failed transfer.
type UploadError struct {
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %q failed: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// uploadResponse is the server's JSON reply.
type uploadResponse struct {
	Status string `json:"status"`
	DocID  string `json:"doc_id,omitempty"`
}

// =============================================================================
// UPLOADER
// =============================================================================

// Uploader sends attachment files to the server.
type Uploader struct {
	client *backend.Client
	logger *slog.Logger
}

// NewUploader creates an uploader. Pass nil logger for default.
func NewUploader(client *backend.Client, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		client: client,
		logger: logger.With("component", "upload"),
	}
}

// Upload transfers the file as a multipart POST and resolves the server's
// verdict. Blocks until the transfer finishes; run it on its own goroutine.
// The progress callback is invoked with monotonically non-decreasing values
// and reaches 100 only on success. No retry on failure.
func (u *Uploader) Upload(ctx context.Context, file File, progress ProgressFunc) (*Result, error) {
	reporter := newProgressReporter(progress)

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", file.Name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		counted := reporter.wrap(file.Reader, file.Size)
		if _, err := io.Copy(part, counted); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		u.client.BaseURL()+"/api/upload", pr)
	if err != nil {
		return failed(), &UploadError{Filename: file.Name, Err: err}
	}
	u.client.Authorize(req)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		u.logger.Warn("upload transport failure", "filename", file.Name, "error", err)
		return failed(), &UploadError{Filename: file.Name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		u.logger.Warn("upload rejected", "filename", file.Name, "status", resp.StatusCode)
		return failed(), &UploadError{Filename: file.Name, Err: err}
	}

	var reply uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, backend.MaxResponseSize)).Decode(&reply); err != nil {
		return failed(), &UploadError{Filename: file.Name, Err: err}
	}
	if reply.DocID == "" {
		return failed(), &UploadError{Filename: file.Name, Err: fmt.Errorf("server returned status %q without doc_id", reply.Status)}
	}

	reporter.complete()
	u.logger.Info("upload complete", "filename", file.Name, "doc_id", reply.DocID)
	return &Result{Status: model.UploadReady, DocID: reply.DocID}, nil
}

func failed() *Result {
	return &Result{Status: model.UploadFailed}
}

// =============================================================================
// PROGRESS
// =============================================================================

// progressReporter enforces monotone progress and caps transfer-phase
// reports below 100 so completion alone reaches it.
type progressReporter struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last int
}

func newProgressReporter(fn ProgressFunc) *progressReporter {
	return &progressReporter{fn: fn}
}

func (p *progressReporter) report(percent int) {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if percent <= p.last {
		return
	}
	p.last = percent
	p.fn(percent)
}

func (p *progressReporter) complete() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last < 100 {
		p.last = 100
		p.fn(100)
	}
}

// wrap returns a reader that reports progress as bytes pass through.
func (p *progressReporter) wrap(r io.Reader, total int64) io.Reader {
	return &countingReader{reader: r, total: total, reporter: p}
}

type countingReader struct {
	reader   io.Reader
	total    int64
	read     int64
	reporter *progressReporter
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.reader.Read(b)
	if n > 0 {
		c.read += int64(n)
		if c.total > 0 {
			percent := int(c.read * 100 / c.total)
			if percent > 99 {
				percent = 99
			}
			c.reporter.report(percent)
		} else {
			c.reporter.report(indeterminateProgress)
		}
	}
	return n, err
}
