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
)

// Mode selects the reservation strategy.
type Mode string

const (
	// ModeManual reserves a fixed caller-supplied amount.
	ModeManual Mode = "manual"
	// ModeAuto reserves the current usage plus a fixed buffer.
	ModeAuto Mode = "auto"
	// ModeSmart tiers the reservation by the available memory ratio.
	ModeSmart Mode = "smart"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeManual, ModeAuto, ModeSmart:
		return Mode(s), nil
	}

	return "", fmt.Errorf("unknown reservation mode %q, valid modes: manual, auto, smart", s)
}

// Request describes one reservation computation.
type Request struct {
	// Device is the target device index.
	Device int
	// Mode is the reservation strategy.
	Mode Mode
	// ReservedBytes is the caller-supplied amount. Manual mode reserves
	// it directly, auto and smart modes treat it as a buffer on top of
	// the current usage.
	ReservedBytes uint64
	// MinSafeReserveBytes is the floor the decision never goes below.
	MinSafeReserveBytes uint64
}

// Decision is the outcome of a reservation computation.
type Decision struct {
	// ReservedBytes is the amount to publish to the host.
	ReservedBytes uint64
	// Rationale names the branch taken and the figures used.
	Rationale string
	// Degraded is set when device information was unavailable and the
	// safe default path was taken.
	Degraded bool
}

func (d Decision) String() string {
	return fmt.Sprintf("%.2fG (%s)", gib(d.ReservedBytes), d.Rationale)
}
