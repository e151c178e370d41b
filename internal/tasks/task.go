// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks tracks background work the engine runs off the hot path,
// such as attachment uploads and the delayed reconciliation fetch that
// follows a completed stream.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// TASK STATUS
// =============================================================================

// Status represents the current state of a background task.
type Status string

const (
	// StatusQueued indicates the task is waiting to be executed
	StatusQueued Status = "Queued"

	// StatusRunning indicates the task is currently executing
	StatusRunning Status = "Running"

	// StatusComplete indicates the task finished successfully
	StatusComplete Status = "Complete"

	// StatusFailed indicates the task encountered an error
	StatusFailed Status = "Failed"

	// StatusCanceled indicates the task was canceled
	StatusCanceled Status = "Canceled"
)

// String returns the string representation of the task status.
func (s Status) String() string {
	return string(s)
}

// =============================================================================
// TASK STRUCTURE
// =============================================================================

// Task is a unit of background work with observable progress.
type Task struct {
	// ID is a unique identifier for this task
	ID string

	// Description is a human-readable description of what this task does
	Description string

	// ConversationID is the conversation this task was started for, if any
	ConversationID string

	// Status is the current state of the task
	Status Status

	// StartTime is when the task started running
	StartTime time.Time

	// EndTime is when the task completed or failed
	EndTime time.Time

	// Error is the error message if the task failed
	Error string

	// Progress is a progress percentage (0-100)
	Progress int

	cancel context.CancelFunc
	mu     sync.RWMutex
}

// New creates a queued task with the given description.
func New(description string) *Task {
	return &Task{
		ID:          uuid.New().String(),
		Description: description,
		Status:      StatusQueued,
	}
}

// =============================================================================
// TASK METHODS
// =============================================================================

// SetStatus updates the task status, validating the transition.
// Valid transitions: Queued -> Running -> Complete/Failed/Canceled.
func (t *Task) SetStatus(status Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !validTransition(t.Status, status) {
		return fmt.Errorf("invalid status transition from %s to %s", t.Status, status)
	}
	t.Status = status
	return nil
}

// validTransition checks if a status transition is allowed.
func validTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusQueued:
		return to == StatusRunning || to == StatusCanceled
	case StatusRunning:
		return to == StatusComplete || to == StatusFailed || to == StatusCanceled
	default:
		// Terminal states
		return false
	}
}

// GetStatus returns the current task status.
func (t *Task) GetStatus() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status
}

// SetProgress updates the task progress, clamped to 0-100.
func (t *Task) SetProgress(progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	t.Progress = progress
}

// GetProgress returns the current progress.
func (t *Task) GetProgress() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Progress
}

// markStarted marks the task as running.
func (t *Task) markStarted(cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = StatusRunning
	t.StartTime = time.Now()
	t.cancel = cancel
}

// markComplete marks the task as successfully completed.
func (t *Task) markComplete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = StatusComplete
	t.EndTime = time.Now()
	t.Progress = 100
}

// markFailed records the error and marks the task failed.
func (t *Task) markFailed(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Error = err.Error()
	t.Status = StatusFailed
	t.EndTime = time.Now()
}

// Cancel cancels the task if it has not finished.
// Returns true if the task was canceled.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Status != StatusRunning && t.Status != StatusQueued {
		return false
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.Status = StatusCanceled
	t.EndTime = time.Now()
	return true
}

// GetError returns the error message.
func (t *Task) GetError() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Error
}

// Duration returns how long the task has been running or took to complete.
func (t *Task) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.StartTime.IsZero() {
		return 0
	}
	if t.EndTime.IsZero() {
		return time.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}

// IsComplete returns true if the task has finished in any terminal state.
func (t *Task) IsComplete() bool {
	status := t.GetStatus()
	return status == StatusComplete || status == StatusFailed || status == StatusCanceled
}

// Summary returns a one-line summary of the task.
func (t *Task) Summary() string {
	status := t.GetStatus()
	summary := fmt.Sprintf("[%s] %s - %s", t.ID[:8], t.Description, status)
	if d := t.Duration(); d > 0 {
		summary += fmt.Sprintf(" (%.1fs)", d.Seconds())
	}
	return summary
}
