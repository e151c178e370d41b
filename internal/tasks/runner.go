// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// =============================================================================
// RUNNER
// =============================================================================

// Fn is the work a task performs. A non-nil error marks the task failed.
type Fn func(ctx context.Context, task *Task) error

// Runner launches tasks on goroutines and tracks them until shutdown.
type Runner struct {
	mu     sync.Mutex
	tasks  map[string]*Task
	wg     sync.WaitGroup
	ctx    context.Context
	stop   context.CancelFunc
	logger *slog.Logger
}

// NewRunner creates a runner. Pass nil logger for default.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Runner{
		tasks:  make(map[string]*Task),
		ctx:    ctx,
		stop:   stop,
		logger: logger.With("component", "tasks"),
	}
}

// Go starts fn immediately on its own goroutine.
func (r *Runner) Go(description string, fn Fn) *Task {
	return r.launch(description, 0, fn)
}

// After starts fn once the delay has elapsed. Canceling the task or
// shutting down the runner during the delay skips the work entirely.
func (r *Runner) After(delay time.Duration, description string, fn Fn) *Task {
	return r.launch(description, delay, fn)
}

func (r *Runner) launch(description string, delay time.Duration, fn Fn) *Task {
	task := New(description)

	ctx, cancel := context.WithCancel(r.ctx)
	task.markStarted(cancel)

	r.mu.Lock()
	r.tasks[task.ID] = task
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				r.logger.Debug("task canceled during delay", "task_id", task.ID)
				return
			}
		}

		if err := fn(ctx, task); err != nil {
			task.markFailed(err)
			r.logger.Warn("task failed",
				"task_id", task.ID,
				"description", description,
				"error", err)
			return
		}
		task.markComplete()
		r.logger.Debug("task complete", "task_id", task.ID, "description", description)
	}()

	return task
}

// Get returns a tracked task by ID, or nil.
func (r *Runner) Get(id string) *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[id]
}

// List returns all tracked tasks.
func (r *Runner) List() []*Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	return out
}

// Wait blocks until all launched tasks have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown cancels every running task and waits for goroutines to exit.
func (r *Runner) Shutdown() {
	r.stop()
	r.wg.Wait()
}
