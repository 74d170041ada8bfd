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

package gpu

import (
	"fmt"
)

// MemorySnapshot is a point-in-time view of device memory, in bytes.
// It is produced fresh on every query and never mutated.
type MemorySnapshot struct {
	// Total is the total device memory capacity.
	Total uint64 `json:"total" yaml:"total"`
	// Used is the currently allocated device memory.
	Used uint64 `json:"used" yaml:"used"`
	// Free is the currently available device memory.
	Free uint64 `json:"free" yaml:"free"`
}

// snapshotTolerance allows for driver rounding between used+free and total.
const snapshotTolerance = 64 * 1024 * 1024

// Valid reports whether the snapshot figures are usable for policy math.
func (s *MemorySnapshot) Valid() bool {
	if s == nil || s.Total == 0 || s.Used > s.Total {
		return false
	}

	sum := s.Used + s.Free

	var diff uint64
	if sum > s.Total {
		diff = sum - s.Total
	} else {
		diff = s.Total - sum
	}

	return diff <= snapshotTolerance
}

// AvailableRatio returns free/total, or 0 for a degenerate snapshot.
func (s *MemorySnapshot) AvailableRatio() float64 {
	if !s.Valid() {
		return 0
	}

	return float64(s.Free) / float64(s.Total)
}

// UsedPercent returns used/total in percent, or 0 for a degenerate snapshot.
func (s *MemorySnapshot) UsedPercent() float64 {
	if !s.Valid() {
		return 0
	}

	return float64(s.Used) / float64(s.Total) * 100
}

func (s *MemorySnapshot) String() string {
	return fmt.Sprintf("%.2fG/%.2fG used, %.2fG free",
		float64(s.Used)/1024/1024/1024,
		float64(s.Total)/1024/1024/1024,
		float64(s.Free)/1024/1024/1024,
	)
}

// DeviceInfo is the aggregated status of one device. Temperature and
// Utilization are best effort and stay nil when the driver query fails.
type DeviceInfo struct {
	// Index is the device index.
	Index int `json:"index" yaml:"index"`
	// Name is the device product name.
	Name string `json:"name" yaml:"name"`
	// Memory is the device memory snapshot.
	Memory MemorySnapshot `json:"memory" yaml:"memory"`
	// Temperature is the device temperature in degrees Celsius.
	Temperature *uint32 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	// Utilization is the device compute utilization in percent.
	Utilization *uint32 `json:"utilization,omitempty" yaml:"utilization,omitempty"`
}
