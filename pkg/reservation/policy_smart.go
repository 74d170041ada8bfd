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

package reservation

import (
	"fmt"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/gpu"
)

type smartPolicy struct{}

var _ Policy = &smartPolicy{}

// PolicySmart name of smart policy
const PolicySmart policyName = "smart"

// NewSmartPolicy returns a policy tiering the reservation by the
// available memory ratio.
func NewSmartPolicy() Policy {
	return &smartPolicy{}
}

func (p *smartPolicy) Name() string {
	return string(PolicySmart)
}

func (p *smartPolicy) Compute(req Request, snapshot *gpu.MemorySnapshot) Decision {
	if !snapshot.Valid() {
		return fallbackDecision(PolicySmart, req)
	}

	availableRatio := snapshot.AvailableRatio()

	var (
		reserved uint64
		branch   string
	)

	switch {
	case availableRatio < tightAvailableRatio:
		branch = "tight"
		reserved = ratioBytes(snapshot.Total, tightReservedRatio)
	case availableRatio < moderateAvailableRatio:
		branch = "moderate"
		reserved = snapshot.Used + req.ReservedBytes
	default:
		branch = "ample"
		reserved = max(snapshot.Used+req.ReservedBytes, req.MinSafeReserveBytes)
	}

	ceiling := ratioBytes(snapshot.Total, MaxReservedRatio)

	reserved, floorWins := clampToCeiling(reserved, req.MinSafeReserveBytes, ceiling)

	rationale := fmt.Sprintf("smart: %.2fG (%s, available %.2fG/%.2fG = %.1f%%)",
		gib(reserved), branch, gib(snapshot.Free), gib(snapshot.Total), availableRatio*100)

	if floorWins {
		rationale = fmt.Sprintf("smart: %.2fG (%s), safety floor exceeds %.0f%% of total %.2fG",
			gib(reserved), branch, MaxReservedRatio*100, gib(snapshot.Total))
	}

	return Decision{
		ReservedBytes: reserved,
		Rationale:     rationale,
	}
}
