/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package reconciler drives periodic and settings-file-triggered
// reservation cycles with bounded retries.
package reconciler

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

// EventType represents the type of reconciliation event
type EventType string

const (
	// SettingsEvent fires when the device settings file changes.
	SettingsEvent EventType = "settings"
	// ResyncEvent fires on the periodic resync timer.
	ResyncEvent EventType = "resync"
)

// Event represents a reconciliation event
type Event struct {
	Type EventType
	Key  string
}

// Handler defines the interface for reconciliation logic
type Handler interface {
	Reconcile(ctx context.Context, event Event) error
}

// HandlerFunc is a function adapter for Handler
type HandlerFunc func(ctx context.Context, event Event) error

// Reconcile calls the HandlerFunc with the given parameters
func (f HandlerFunc) Reconcile(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Config holds configuration for the reconciler
type Config struct {
	// SettingsPath is the device settings file to watch, optional.
	SettingsPath string
	// ResyncInterval triggers a periodic full cycle, optional.
	ResyncInterval time.Duration

	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	Logger logr.Logger
}

// DefaultConfig returns a default reconciler configuration
func DefaultConfig(logger logr.Logger) Config {
	return Config{
		ResyncInterval: 60 * time.Second,
		MaxRetries:     5,
		BaseDelay:      2 * time.Second,
		MaxDelay:       30 * time.Second,
		Logger:         logger,
	}
}

type pendingEvent struct {
	event     Event
	attempts  int
	nextRetry time.Time
}

// Reconciler manages the reconciliation process
type Reconciler struct {
	config  Config
	handler Handler
	logger  logr.Logger

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewReconciler creates a new reconciliation scheduler
func NewReconciler(config Config, handler Handler) (*Reconciler, error) {
	return &Reconciler{
		config:  config,
		handler: handler,
		logger:  config.Logger,
	}, nil
}

// Start begins the reconciliation loop. It returns once the loop is
// running, the loop itself stops when the context is canceled.
func (r *Reconciler) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	events := make(chan Event, 16)

	if r.config.SettingsPath != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}

		// Watch the directory, not the file. A watch on the file itself
		// fails when the file does not exist yet and dies with the inode
		// when the file is replaced by write-then-rename.
		dir := filepath.Dir(r.config.SettingsPath)

		if err := watcher.Add(dir); err != nil {
			watcher.Close()

			return fmt.Errorf("failed to watch path %s: %w", dir, err)
		}

		r.watcher = watcher

		r.wg.Add(1)
		go r.watchSettings(ctx, events)
	}

	r.wg.Add(1)
	go r.run(ctx, events)

	// Initial cycle so the slot is published before the first tick.
	events <- Event{Type: ResyncEvent, Key: "initial"}

	return nil
}

// Stop gracefully stops the reconciliation loop
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}

	if r.watcher != nil {
		r.watcher.Close()
	}

	r.wg.Wait()
}

// watchSettings forwards settings file changes as events
func (r *Reconciler) watchSettings(ctx context.Context, events chan<- Event) {
	defer r.wg.Done()

	r.logger.V(1).Info("Starting settings watcher", "path", r.config.SettingsPath)

	relevantOps := fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != filepath.Clean(r.config.SettingsPath) {
				continue
			}

			if event.Op&relevantOps > 0 {
				r.logger.V(3).Info("Settings file changed", "name", event.Name, "op", event.Op)

				select {
				case events <- Event{Type: SettingsEvent, Key: event.Name}:
				case <-ctx.Done():
					return
				}
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}

			r.logger.Error(err, "Settings watcher error")

		case <-ctx.Done():
			r.logger.V(1).Info("Settings watcher shutting down")

			return
		}
	}
}

// run processes events, the resync timer and retries in one loop
func (r *Reconciler) run(ctx context.Context, events <-chan Event) {
	defer r.wg.Done()

	resync := make(<-chan time.Time)

	if r.config.ResyncInterval > 0 {
		ticker := time.NewTicker(r.config.ResyncInterval)
		defer ticker.Stop()

		resync = ticker.C
	}

	retryTicker := time.NewTicker(time.Second)
	defer retryTicker.Stop()

	// Pending retries, deduplicated by event type and key.
	pending := map[Event]pendingEvent{}

	for {
		select {
		case event := <-events:
			// A fresh event supersedes a pending retry of the same kind.
			delete(pending, event)
			r.reconcile(ctx, pendingEvent{event: event}, pending)

		case <-resync:
			r.logger.V(3).Info("Resync timer fired")
			r.reconcile(ctx, pendingEvent{event: Event{Type: ResyncEvent, Key: "resync"}}, pending)

		case <-retryTicker.C:
			now := time.Now()

			for key, p := range pending {
				if now.After(p.nextRetry) {
					delete(pending, key)
					r.reconcile(ctx, p, pending)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// reconcile runs the handler once, scheduling a retry on failure
func (r *Reconciler) reconcile(ctx context.Context, p pendingEvent, pending map[Event]pendingEvent) {
	err := r.handler.Reconcile(ctx, p.event)
	if err == nil {
		r.logger.V(1).Info("Reconciliation succeeded", "type", p.event.Type, "key", p.event.Key)

		return
	}

	if p.attempts >= r.config.MaxRetries {
		r.logger.Error(err, "Reconciliation permanently failed", "attempts", p.attempts)

		return
	}

	delay := time.Duration(float64(r.config.BaseDelay) * math.Pow(2, float64(p.attempts)))
	delay = min(delay, r.config.MaxDelay)

	r.logger.Error(err, "Reconciliation failed, scheduling retry",
		"attempt", p.attempts+1,
		"maxRetries", r.config.MaxRetries,
		"retryIn", delay)

	pending[p.event] = pendingEvent{
		event:     p.event,
		attempts:  p.attempts + 1,
		nextRetry: time.Now().Add(delay),
	}
}
