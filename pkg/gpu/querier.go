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

// Package gpu provides device memory queries for NVIDIA accelerators.
package gpu

import (
	"fmt"
)

// Querier is the device memory query collaborator. Every call is
// idempotent and side-effect free. A single long-lived instance is
// constructed at process start and shared by reference.
type Querier interface {
	// DeviceCount returns the number of devices visible to the driver.
	DeviceCount() (int, error)
	// MemoryInfo returns a fresh memory snapshot for the device.
	MemoryInfo(index int) (MemorySnapshot, error)
	// Name returns the device product name.
	Name(index int) (string, error)
	// Temperature returns the device temperature in degrees Celsius.
	Temperature(index int) (uint32, error)
	// Utilization returns the device compute utilization in percent.
	Utilization(index int) (uint32, error)

	// Close releases the driver handle.
	Close() error
}

// ValidateDeviceIndex checks the index against the device count.
func ValidateDeviceIndex(q Querier, index int) error {
	count, err := q.DeviceCount()
	if err != nil {
		return fmt.Errorf("failed to get device count: %w", err)
	}

	if index < 0 || index >= count {
		return fmt.Errorf("invalid device index %d, valid range 0-%d", index, count-1)
	}

	return nil
}

// DeviceInfoFor collects the full status of one device. Memory figures
// are required, temperature and utilization are best effort.
func DeviceInfoFor(q Querier, index int) (*DeviceInfo, error) {
	info := &DeviceInfo{
		Index: index,
	}

	mem, err := q.MemoryInfo(index)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory for device %d: %w", index, err)
	}

	info.Memory = mem

	if name, err := q.Name(index); err == nil {
		info.Name = name
	}

	if temp, err := q.Temperature(index); err == nil {
		info.Temperature = &temp
	}

	if util, err := q.Utilization(index); err == nil {
		info.Utilization = &util
	}

	return info, nil
}
