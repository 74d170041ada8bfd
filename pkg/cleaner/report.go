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

package cleaner

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/gpu"
)

// DeviceReport is the purge outcome for one device.
type DeviceReport struct {
	// Device is the device index.
	Device int `json:"device" yaml:"device"`
	// Before is the memory snapshot taken before the purge, if any.
	Before *gpu.MemorySnapshot `json:"before,omitempty" yaml:"before,omitempty"`
	// After is the memory snapshot taken after the purge, if any.
	After *gpu.MemorySnapshot `json:"after,omitempty" yaml:"after,omitempty"`
	// FreedBytes is the drop in used memory across the purge. A purge
	// that freed nothing extra reports zero, never a negative amount.
	FreedBytes uint64 `json:"freedBytes" yaml:"freedBytes"`
}

// Report aggregates purge outcomes across devices.
type Report struct {
	Devices    []DeviceReport `json:"devices" yaml:"devices"`
	FreedBytes uint64         `json:"freedBytes" yaml:"freedBytes"`
}

func (r *Report) String() string {
	lines := lo.Map(r.Devices, func(d DeviceReport, _ int) string {
		return fmt.Sprintf("device %d: freed %.2fG", d.Device, float64(d.FreedBytes)/1024/1024/1024)
	})

	if len(r.Devices) > 1 {
		lines = append(lines, fmt.Sprintf("total freed: %.2fG", float64(r.FreedBytes)/1024/1024/1024))
	}

	return strings.Join(lines, "\n")
}
