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

package reservemanager

import (
	"github.com/sergelogvinov/gpu-memory-manager/pkg/reservation"
)

// Request describes one reservation cycle.
type Request struct {
	// Device is the target device index. An out-of-range index is
	// substituted with 0 and logged, the cycle still proceeds.
	Device int
	// Mode is the reservation strategy.
	Mode reservation.Mode
	// ReservedBytes is the caller-supplied amount or buffer.
	ReservedBytes uint64
	// MinSafeReserveBytes is the floor the decision never goes below.
	MinSafeReserveBytes uint64
	// ClearFirst purges device caches before taking the snapshot.
	ClearFirst bool
}

func (r Request) policyRequest(device int) reservation.Request {
	return reservation.Request{
		Device:              device,
		Mode:                r.Mode,
		ReservedBytes:       r.ReservedBytes,
		MinSafeReserveBytes: r.MinSafeReserveBytes,
	}
}
