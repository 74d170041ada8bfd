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

// Package device provides canned device fixtures for tests.
package device

import (
	"fmt"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/gpu"
)

const (
	mib = uint64(1024 * 1024)
	gib = 1024 * mib
)

var (
	// Snap24GAmple is a 24G device with 10G used, available ratio ~0.58.
	Snap24GAmple = gpu.MemorySnapshot{
		Total: 24 * gib,
		Used:  10 * gib,
		Free:  14 * gib,
	}

	// Snap24GModerate is a 24G device with 16G used, available ratio ~0.33.
	Snap24GModerate = gpu.MemorySnapshot{
		Total: 24 * gib,
		Used:  16 * gib,
		Free:  8 * gib,
	}

	// Snap24GTight is a 24G device with 20G used, available ratio ~0.17.
	Snap24GTight = gpu.MemorySnapshot{
		Total: 24 * gib,
		Used:  20 * gib,
		Free:  4 * gib,
	}

	// Snap24GLight is a 24G device with 8.5G used.
	Snap24GLight = gpu.MemorySnapshot{
		Total: 24 * gib,
		Used:  8704 * mib,
		Free:  24*gib - 8704*mib,
	}
)

// FakeQuerier is an in-memory gpu.Querier for tests. Devices are
// indexed 0..len(Snapshots)-1, optional failure knobs simulate driver
// errors.
type FakeQuerier struct {
	Snapshots []gpu.MemorySnapshot
	Names     []string

	TemperatureC       uint32
	UtilizationPercent uint32

	FailCount  bool
	FailMemory bool

	MemoryCalls int
}

var _ gpu.Querier = &FakeQuerier{}

// NewFakeQuerier returns a querier over the given snapshots.
func NewFakeQuerier(snapshots ...gpu.MemorySnapshot) *FakeQuerier {
	return &FakeQuerier{
		Snapshots:          snapshots,
		TemperatureC:       55,
		UtilizationPercent: 30,
	}
}

func (q *FakeQuerier) DeviceCount() (int, error) {
	if q.FailCount {
		return 0, fmt.Errorf("device count unavailable")
	}

	return len(q.Snapshots), nil
}

func (q *FakeQuerier) MemoryInfo(index int) (gpu.MemorySnapshot, error) {
	q.MemoryCalls++

	if q.FailMemory {
		return gpu.MemorySnapshot{}, fmt.Errorf("memory query failed for device %d", index)
	}

	if index < 0 || index >= len(q.Snapshots) {
		return gpu.MemorySnapshot{}, fmt.Errorf("no such device %d", index)
	}

	return q.Snapshots[index], nil
}

func (q *FakeQuerier) Name(index int) (string, error) {
	if index < len(q.Names) {
		return q.Names[index], nil
	}

	return fmt.Sprintf("Fake GPU %d", index), nil
}

func (q *FakeQuerier) Temperature(_ int) (uint32, error) {
	return q.TemperatureC, nil
}

func (q *FakeQuerier) Utilization(_ int) (uint32, error) {
	return q.UtilizationPercent, nil
}

func (q *FakeQuerier) Close() error {
	return nil
}
