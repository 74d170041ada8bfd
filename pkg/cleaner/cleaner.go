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

// Package cleaner releases cached but unused device allocations and
// reports how much memory each pass freed.
package cleaner

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/gpu"
)

// Purger is the cache-clearing primitive. The cleaner only observes its
// outcome through before/after snapshots, it has no dependency on how
// the caches are released.
type Purger interface {
	Purge(ctx context.Context, device int) error
}

// PurgerFunc is a function adapter for Purger.
type PurgerFunc func(ctx context.Context, device int) error

// Purge calls the PurgerFunc with the given parameters.
func (f PurgerFunc) Purge(ctx context.Context, device int) error {
	return f(ctx, device)
}

// Cleaner serializes cache clearing across callers so freed-memory
// accounting is not interleaved.
type Cleaner struct {
	mu sync.Mutex

	querier gpu.Querier
	purgers []Purger

	log logr.Logger
}

func NewCleaner(querier gpu.Querier, log logr.Logger, purgers ...Purger) *Cleaner {
	return &Cleaner{
		querier: querier,
		purgers: purgers,
		log:     log.WithName("cleaner"),
	}
}

// Clear purges the caches of one device and reports the freed amount.
func (c *Cleaner) Clear(ctx context.Context, device int) (*Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.clearLocked(ctx, device)
}

// ClearAll purges the caches of every visible device. Per-device
// failures are collected, devices that purge successfully still count.
func (c *Cleaner) ClearAll(ctx context.Context) (*Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	count, err := c.querier.DeviceCount()
	if err != nil {
		return nil, fmt.Errorf("failed to get device count: %w", err)
	}

	total := &Report{}

	var errs []error

	for device := 0; device < count; device++ {
		report, err := c.clearLocked(ctx, device)
		if err != nil {
			errs = append(errs, fmt.Errorf("device %d: %w", device, err))

			continue
		}

		total.Devices = append(total.Devices, report.Devices...)
		total.FreedBytes += report.FreedBytes
	}

	return total, multierr.Combine(errs...)
}

func (c *Cleaner) clearLocked(ctx context.Context, device int) (*Report, error) {
	before, err := c.snapshot(device)
	if err != nil {
		c.log.V(1).Info("No memory snapshot before purge", "device", device, "reason", err)
	}

	var errs []error

	for _, purger := range c.purgers {
		if err := purger.Purge(ctx, device); err != nil {
			errs = append(errs, err)
		}
	}

	if err := multierr.Combine(errs...); err != nil {
		return nil, fmt.Errorf("failed to purge device %d: %w", device, err)
	}

	after, err := c.snapshot(device)
	if err != nil {
		c.log.V(1).Info("No memory snapshot after purge", "device", device, "reason", err)
	}

	report := &Report{
		Devices: []DeviceReport{{
			Device: device,
			Before: before,
			After:  after,
		}},
	}

	if before != nil && after != nil && before.Used > after.Used {
		report.Devices[0].FreedBytes = before.Used - after.Used
		report.FreedBytes = report.Devices[0].FreedBytes
	}

	c.log.V(1).Info("Cache purge finished", "device", device,
		"freed", fmt.Sprintf("%dM", report.FreedBytes/1024/1024))

	return report, nil
}

func (c *Cleaner) snapshot(device int) (*gpu.MemorySnapshot, error) {
	snapshot, err := c.querier.MemoryInfo(device)
	if err != nil {
		return nil, err
	}

	return &snapshot, nil
}
