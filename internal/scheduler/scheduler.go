// Package scheduler runs named periodic tasks on independent timers and
// exposes a manual trigger for operator use.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Task names the engine arms.
const (
	TaskFullSync = "full-sync"
	TaskStats    = "stats"
)

type task struct {
	interval time.Duration
	run      func(context.Context) error
	cancel   context.CancelFunc
}

// Scheduler owns a small set of named periodic tasks.
type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]*task
}

// New constructs an empty scheduler.
func New() *Scheduler {
	return &Scheduler{tasks: make(map[string]*task)}
}

// Every arms a named periodic task. Re-arming an existing name cancels the
// prior timer first, so starting twice never creates duplicate timers.
func (s *Scheduler) Every(ctx context.Context, name string, interval time.Duration, run func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.tasks[name]; ok {
		prior.cancel()
	}
	tctx, cancel := context.WithCancel(ctx)
	s.tasks[name] = &task{interval: interval, run: run, cancel: cancel}
	go s.loop(tctx, name, interval, run)
	slog.Info("task armed", "task", name, "interval", interval.String())
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, name, run)
		}
	}
}

// runOnce wraps one pass so an error or panic never kills the timer.
func (s *Scheduler) runOnce(ctx context.Context, name string, run func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("task panicked", "task", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	started := time.Now()
	if err := run(ctx); err != nil {
		slog.Error("task failed", "task", name, "err", err)
		return
	}
	slog.Info("task completed", "task", name, "duration", time.Since(started).String())
}

// Trigger runs a named task once, synchronously, outside its timer.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	armed, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no task named %q", name)
	}
	s.runOnce(ctx, name, armed.run)
	return nil
}

// Armed reports the names of currently armed tasks, sorted.
func (s *Scheduler) Armed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stop cancels every armed task.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, armed := range s.tasks {
		armed.cancel()
		delete(s.tasks, name)
	}
}
