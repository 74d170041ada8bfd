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

package reconciler_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/utils/reconciler"
)

func TestInitialAndResyncCycles(t *testing.T) {
	t.Parallel()

	var cycles atomic.Int32

	handler := reconciler.HandlerFunc(func(_ context.Context, event reconciler.Event) error {
		assert.Equal(t, reconciler.ResyncEvent, event.Type)
		cycles.Add(1)

		return nil
	})

	config := reconciler.DefaultConfig(logr.Discard())
	config.ResyncInterval = 50 * time.Millisecond

	r, err := reconciler.NewReconciler(config, handler)
	assert.NoError(t, err)

	assert.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	// One initial cycle plus at least one timer cycle.
	assert.Eventually(t, func() bool {
		return cycles.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSettingsFileTriggersCycle(t *testing.T) {
	t.Parallel()

	name := filepath.Join(t.TempDir(), "devices.json")
	assert.NoError(t, os.WriteFile(name, []byte(`{}`), 0o644))

	var settingsCycles atomic.Int32

	handler := reconciler.HandlerFunc(func(_ context.Context, event reconciler.Event) error {
		if event.Type == reconciler.SettingsEvent {
			settingsCycles.Add(1)
		}

		return nil
	})

	config := reconciler.DefaultConfig(logr.Discard())
	config.ResyncInterval = 0
	config.SettingsPath = name

	r, err := reconciler.NewReconciler(config, handler)
	assert.NoError(t, err)

	assert.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	assert.NoError(t, os.WriteFile(name, []byte(`{"0":{"mode":"auto"}}`), 0o644))

	assert.Eventually(t, func() bool {
		return settingsCycles.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSettingsFileMissingAtStart(t *testing.T) {
	t.Parallel()

	name := filepath.Join(t.TempDir(), "devices.json")

	var settingsCycles atomic.Int32

	handler := reconciler.HandlerFunc(func(_ context.Context, event reconciler.Event) error {
		if event.Type == reconciler.SettingsEvent {
			settingsCycles.Add(1)
		}

		return nil
	})

	config := reconciler.DefaultConfig(logr.Discard())
	config.ResyncInterval = 0
	config.SettingsPath = name

	r, err := reconciler.NewReconciler(config, handler)
	assert.NoError(t, err)

	// The file does not exist yet, starting must still succeed.
	assert.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	assert.NoError(t, os.WriteFile(name, []byte(`{}`), 0o644))

	assert.Eventually(t, func() bool {
		return settingsCycles.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSettingsFileRenameReplace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	name := filepath.Join(dir, "devices.json")
	assert.NoError(t, os.WriteFile(name, []byte(`{}`), 0o644))

	var settingsCycles atomic.Int32

	handler := reconciler.HandlerFunc(func(_ context.Context, event reconciler.Event) error {
		if event.Type == reconciler.SettingsEvent {
			settingsCycles.Add(1)
		}

		return nil
	})

	config := reconciler.DefaultConfig(logr.Discard())
	config.ResyncInterval = 0
	config.SettingsPath = name

	r, err := reconciler.NewReconciler(config, handler)
	assert.NoError(t, err)

	assert.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	// Replace the file the way atomic writers do, temp file + rename.
	tmp := filepath.Join(dir, "devices.json.tmp")
	assert.NoError(t, os.WriteFile(tmp, []byte(`{"0":{"mode":"auto"}}`), 0o644))
	assert.NoError(t, os.Rename(tmp, name))

	assert.Eventually(t, func() bool {
		return settingsCycles.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// The watch survives the replacement, later edits still fire.
	seen := settingsCycles.Load()
	assert.NoError(t, os.WriteFile(name, []byte(`{"0":{"mode":"smart"}}`), 0o644))

	assert.Eventually(t, func() bool {
		return settingsCycles.Load() > seen
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRetryWithBackoff(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	handler := reconciler.HandlerFunc(func(_ context.Context, _ reconciler.Event) error {
		if attempts.Add(1) < 3 {
			return fmt.Errorf("transient failure")
		}

		return nil
	})

	config := reconciler.DefaultConfig(logr.Discard())
	config.ResyncInterval = 0
	config.BaseDelay = time.Millisecond
	config.MaxDelay = 10 * time.Millisecond

	r, err := reconciler.NewReconciler(config, handler)
	assert.NoError(t, err)

	assert.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	assert.Eventually(t, func() bool {
		return attempts.Load() >= 3
	}, 10*time.Second, 50*time.Millisecond)
}

func TestRetriesStopAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	handler := reconciler.HandlerFunc(func(_ context.Context, _ reconciler.Event) error {
		attempts.Add(1)

		return fmt.Errorf("permanent failure")
	})

	config := reconciler.DefaultConfig(logr.Discard())
	config.ResyncInterval = 0
	config.MaxRetries = 2
	config.BaseDelay = time.Millisecond
	config.MaxDelay = 10 * time.Millisecond

	r, err := reconciler.NewReconciler(config, handler)
	assert.NoError(t, err)

	assert.NoError(t, r.Start(context.Background()))

	// Initial attempt plus two retries, then the event is dropped.
	assert.Eventually(t, func() bool {
		return attempts.Load() == 3
	}, 10*time.Second, 50*time.Millisecond)

	time.Sleep(2 * time.Second)
	assert.Equal(t, int32(3), attempts.Load())

	r.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	handler := reconciler.HandlerFunc(func(_ context.Context, _ reconciler.Event) error {
		return nil
	})

	r, err := reconciler.NewReconciler(reconciler.DefaultConfig(logr.Discard()), handler)
	assert.NoError(t, err)

	assert.NoError(t, r.Start(context.Background()))

	r.Stop()
	r.Stop()
}
