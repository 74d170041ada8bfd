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

type manualPolicy struct{}

var _ Policy = &manualPolicy{}

// PolicyManual name of manual policy
const PolicyManual policyName = "manual"

// NewManualPolicy returns a policy reserving a fixed caller-supplied amount.
func NewManualPolicy() Policy {
	return &manualPolicy{}
}

func (p *manualPolicy) Name() string {
	return string(PolicyManual)
}

func (p *manualPolicy) Compute(req Request, snapshot *gpu.MemorySnapshot) Decision {
	if !snapshot.Valid() {
		return fallbackDecision(PolicyManual, req)
	}

	ceiling := ratioBytes(snapshot.Total, MaxReservedRatio)

	reserved, floorWins := clampToCeiling(req.ReservedBytes, req.MinSafeReserveBytes, ceiling)

	rationale := fmt.Sprintf("manual: %.2fG (total %.2fG, used %.2fG)",
		gib(reserved), gib(snapshot.Total), gib(snapshot.Used))

	switch {
	case floorWins:
		rationale = fmt.Sprintf("manual: %.2fG, safety floor exceeds %.0f%% of total %.2fG",
			gib(reserved), MaxReservedRatio*100, gib(snapshot.Total))
	case reserved == ceiling && req.ReservedBytes > ceiling:
		rationale = fmt.Sprintf("manual: %.2fG -> %.2fG, capped at %.0f%% of total %.2fG",
			gib(req.ReservedBytes), gib(reserved), MaxReservedRatio*100, gib(snapshot.Total))
	}

	return Decision{
		ReservedBytes: reserved,
		Rationale:     rationale,
	}
}
