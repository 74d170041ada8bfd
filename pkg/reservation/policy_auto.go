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

type autoPolicy struct{}

var _ Policy = &autoPolicy{}

// PolicyAuto name of auto policy
const PolicyAuto policyName = "auto"

// NewAutoPolicy returns a policy reserving the current usage plus a buffer.
func NewAutoPolicy() Policy {
	return &autoPolicy{}
}

func (p *autoPolicy) Name() string {
	return string(PolicyAuto)
}

func (p *autoPolicy) Compute(req Request, snapshot *gpu.MemorySnapshot) Decision {
	if !snapshot.Valid() {
		return fallbackDecision(PolicyAuto, req)
	}

	base := snapshot.Used + req.ReservedBytes
	ceiling := ratioBytes(snapshot.Total, AutoMaxReservedRatio)

	reserved, floorWins := clampToCeiling(base, req.MinSafeReserveBytes, ceiling)

	rationale := fmt.Sprintf("auto: %.2fG (used %.2fG + buffer %.2fG)",
		gib(reserved), gib(snapshot.Used), gib(req.ReservedBytes))

	switch {
	case floorWins:
		rationale = fmt.Sprintf("auto: %.2fG, safety floor exceeds %.0f%% of total %.2fG",
			gib(reserved), AutoMaxReservedRatio*100, gib(snapshot.Total))
	case reserved == ceiling && base > ceiling:
		rationale = fmt.Sprintf("auto: %.2fG -> %.2fG (used %.2fG + buffer %.2fG, capped at %.0f%%)",
			gib(base), gib(reserved), gib(snapshot.Used), gib(req.ReservedBytes), AutoMaxReservedRatio*100)
	}

	return Decision{
		ReservedBytes: reserved,
		Rationale:     rationale,
	}
}
