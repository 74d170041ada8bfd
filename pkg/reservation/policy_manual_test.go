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

package reservation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/gpu"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/reservation"
	testDevice "github.com/sergelogvinov/gpu-memory-manager/test/device"
)

const gib = uint64(1024 * 1024 * 1024)

func TestManualCompute(t *testing.T) {
	t.Parallel()

	total24g := float64(24 * gib)

	testCases := []struct {
		name     string
		request  reservation.Request
		snapshot *gpu.MemorySnapshot

		reserved uint64
		degraded bool
	}{
		{
			name: "requested above floor",
			request: reservation.Request{
				ReservedBytes:       2*gib + 512*1024*1024,
				MinSafeReserveBytes: 2 * gib,
			},
			snapshot: &testDevice.Snap24GLight,
			reserved: 2*gib + 512*1024*1024,
		},
		{
			name: "floor above requested",
			request: reservation.Request{
				ReservedBytes:       1 * gib,
				MinSafeReserveBytes: 2 * gib,
			},
			snapshot: &testDevice.Snap24GLight,
			reserved: 2 * gib,
		},
		{
			name: "capped at 90% of total",
			request: reservation.Request{
				ReservedBytes:       30 * gib,
				MinSafeReserveBytes: 2 * gib,
			},
			snapshot: &testDevice.Snap24GLight,
			reserved: uint64(total24g * 0.90),
		},
		{
			name: "safety floor exceeds the cap",
			request: reservation.Request{
				ReservedBytes:       1 * gib,
				MinSafeReserveBytes: 23 * gib,
			},
			snapshot: &testDevice.Snap24GLight,
			reserved: 23 * gib,
		},
		{
			name: "no snapshot falls back to safe default",
			request: reservation.Request{
				ReservedBytes:       8 * gib,
				MinSafeReserveBytes: 2 * gib,
			},
			reserved: 2 * gib,
			degraded: true,
		},
		{
			name: "degenerate snapshot falls back to safe default",
			request: reservation.Request{
				ReservedBytes:       8 * gib,
				MinSafeReserveBytes: 512 * 1024 * 1024,
			},
			snapshot: &gpu.MemorySnapshot{Total: 0, Used: 0, Free: 0},
			reserved: 1 * gib,
			degraded: true,
		},
	}

	policy := reservation.NewManualPolicy()
	assert.Equal(t, "manual", policy.Name())

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			decision := policy.Compute(tc.request, tc.snapshot)

			assert.Equal(t, tc.reserved, decision.ReservedBytes)
			assert.Equal(t, tc.degraded, decision.Degraded)
			assert.NotEmpty(t, decision.Rationale)
		})
	}
}

func TestComputeIdempotent(t *testing.T) {
	t.Parallel()

	request := reservation.Request{
		ReservedBytes:       1 * gib,
		MinSafeReserveBytes: 2 * gib,
	}

	for _, mode := range []reservation.Mode{reservation.ModeManual, reservation.ModeAuto, reservation.ModeSmart} {
		policy, err := reservation.PolicyFor(mode)
		assert.NoError(t, err)

		first := policy.Compute(request, &testDevice.Snap24GModerate)
		second := policy.Compute(request, &testDevice.Snap24GModerate)

		assert.Equal(t, first, second, "mode %s", mode)
	}
}

func TestPolicyFor(t *testing.T) {
	t.Parallel()

	_, err := reservation.PolicyFor(reservation.Mode("turbo"))
	assert.Error(t, err)

	for _, mode := range []reservation.Mode{reservation.ModeManual, reservation.ModeAuto, reservation.ModeSmart} {
		policy, err := reservation.PolicyFor(mode)
		assert.NoError(t, err)
		assert.Equal(t, string(mode), policy.Name())
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	mode, err := reservation.ParseMode("smart")
	assert.NoError(t, err)
	assert.Equal(t, reservation.ModeSmart, mode)

	_, err = reservation.ParseMode("turbo")
	assert.Error(t, err)
}
