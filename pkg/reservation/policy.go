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

// Package reservation computes how much device memory to reserve for the
// host before it allocates. Policies are pure functions over a request
// and a fresh memory snapshot.
package reservation

import (
	"fmt"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/gpu"
)

type policyName string

const (
	// GiB is one gibibyte in bytes.
	GiB = uint64(1024 * 1024 * 1024)

	// DefaultReservedBytes is the safe reservation used when no device
	// information is available.
	DefaultReservedBytes = 1 * GiB

	// MaxReservedRatio caps manual and smart reservations.
	MaxReservedRatio = 0.90
	// AutoMaxReservedRatio caps auto reservations.
	AutoMaxReservedRatio = 0.85

	// tightAvailableRatio marks memory pressure below 20% free.
	tightAvailableRatio = 0.20
	// moderateAvailableRatio marks memory pressure below 40% free.
	moderateAvailableRatio = 0.40

	// tightReservedRatio is the flat reservation under tight memory pressure.
	tightReservedRatio = 0.80
)

// Policy computes a reservation decision from a request and a snapshot.
// A nil or invalid snapshot means the device query failed, in which case
// every policy falls back to a safe default and marks the decision
// degraded instead of returning an error.
type Policy interface {
	Name() string

	Compute(req Request, snapshot *gpu.MemorySnapshot) Decision
}

// PolicyFor returns the policy implementing the requested mode.
func PolicyFor(mode Mode) (Policy, error) {
	switch mode {
	case ModeManual:
		return NewManualPolicy(), nil
	case ModeAuto:
		return NewAutoPolicy(), nil
	case ModeSmart:
		return NewSmartPolicy(), nil
	}

	return nil, fmt.Errorf("unknown reservation mode %q", mode)
}

// fallbackDecision is the degraded path shared by all policies.
func fallbackDecision(name policyName, req Request) Decision {
	reserved := max(DefaultReservedBytes, req.MinSafeReserveBytes)

	return Decision{
		ReservedBytes: reserved,
		Rationale:     fmt.Sprintf("%s: no device information, using safe default %.2fG", name, gib(reserved)),
		Degraded:      true,
	}
}

// clampToCeiling enforces floor <= reserved <= ceiling. When the floor
// exceeds the ceiling the safety floor wins.
func clampToCeiling(reserved, floor, ceiling uint64) (uint64, bool) {
	reserved = max(reserved, floor)

	if reserved > ceiling {
		if floor > ceiling {
			return floor, true
		}

		return ceiling, false
	}

	return reserved, false
}

func ratioBytes(total uint64, ratio float64) uint64 {
	return uint64(float64(total) * ratio)
}

func gib(bytes uint64) float64 {
	return float64(bytes) / float64(GiB)
}
