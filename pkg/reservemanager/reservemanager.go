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

// Package reservemanager runs the reservation cycle: query the device,
// compute a decision, publish it to the host-owned slot.
package reservemanager

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/cleaner"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/gpu"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/reservation"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/sink"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/utils/locks"
)

type ReserveManager interface {
	// Reserve runs one reservation cycle and returns the decision made.
	Reserve(ctx context.Context, req Request) (reservation.Decision, error)

	Status() string
}

type reserveManager struct {
	querier gpu.Querier
	sink    sink.Sink
	cleaner *cleaner.Cleaner

	// One lock per device so the read-decide-write sequence of
	// concurrent callers never interleaves.
	locks *locks.Locks

	log logr.Logger
}

var _ ReserveManager = &reserveManager{}

// NewReserveManager creates a reserve manager. The cleaner is optional,
// without it ClearFirst requests skip the purge step.
func NewReserveManager(querier gpu.Querier, memSink sink.Sink, cln *cleaner.Cleaner, log logr.Logger) ReserveManager {
	return &reserveManager{
		querier: querier,
		sink:    memSink,
		cleaner: cln,
		locks:   locks.NewLocks(),
		log:     log.WithName("reservemanager"),
	}
}

// Reserve implements ReserveManager.
func (m *reserveManager) Reserve(ctx context.Context, req Request) (reservation.Decision, error) {
	device := req.Device

	if err := gpu.ValidateDeviceIndex(m.querier, device); err != nil {
		m.log.Info("Invalid device index, falling back to device 0", "device", device, "reason", err.Error())

		device = 0
	}

	m.locks.Lock(device)
	defer m.locks.Unlock(device)

	if req.ClearFirst && m.cleaner != nil {
		report, err := m.cleaner.Clear(ctx, device)
		if err != nil {
			m.log.Error(err, "Cache purge before reservation failed", "device", device)
		} else if report.FreedBytes > 0 {
			m.log.Info("Cache purge freed memory", "device", device,
				"freed", fmt.Sprintf("%dM", report.FreedBytes/1024/1024))
		}
	}

	var snapshot *gpu.MemorySnapshot

	if snap, err := m.querier.MemoryInfo(device); err != nil {
		m.log.Info("Device memory query failed, using degraded path", "device", device, "reason", err.Error())
	} else {
		snapshot = &snap
	}

	decision := m.compute(req.policyRequest(device), snapshot)

	if err := m.sink.SetReservedMemory(decision.ReservedBytes); err != nil {
		return decision, fmt.Errorf("failed to publish reserved memory: %w", err)
	}

	m.log.Info("Reserved memory published", "device", device,
		"reserved", fmt.Sprintf("%dM", decision.ReservedBytes/1024/1024),
		"rationale", decision.Rationale,
		"degraded", decision.Degraded)

	return decision, nil
}

func (m *reserveManager) compute(req reservation.Request, snapshot *gpu.MemorySnapshot) reservation.Decision {
	policy, err := reservation.PolicyFor(req.Mode)
	if err != nil {
		m.log.Info("Unknown reservation mode, using default", "mode", req.Mode)

		reserved := max(req.ReservedBytes, req.MinSafeReserveBytes)

		return reservation.Decision{
			ReservedBytes: reserved,
			Rationale:     fmt.Sprintf("default: unknown mode %q", req.Mode),
			Degraded:      true,
		}
	}

	return policy.Compute(req, snapshot)
}

// Status implements ReserveManager.
func (m *reserveManager) Status() string {
	devices, err := m.querier.DeviceCount()
	if err != nil {
		devices = 0
	}

	return fmt.Sprintf("devices: %d, reserved: %dM", devices, m.sink.ReservedMemory()/1024/1024)
}
