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
	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/pkg/errors"
)

type nvmlQuerier struct{}

var _ Querier = &nvmlQuerier{}

// NewNVMLQuerier initializes the NVML library and returns a querier
// bound to it. The caller owns the handle and must Close it on exit.
func NewNVMLQuerier() (Querier, error) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, errors.Errorf("failed to initialize NVML: %s", nvml.ErrorString(ret))
	}

	return &nvmlQuerier{}, nil
}

func (q *nvmlQuerier) DeviceCount() (int, error) {
	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return 0, errors.Errorf("failed to get device count: %s", nvml.ErrorString(ret))
	}

	return count, nil
}

func (q *nvmlQuerier) MemoryInfo(index int) (MemorySnapshot, error) {
	device, err := q.device(index)
	if err != nil {
		return MemorySnapshot{}, err
	}

	mem, ret := device.GetMemoryInfo()
	if ret != nvml.SUCCESS {
		return MemorySnapshot{}, errors.Errorf("failed to get memory info for device %d: %s", index, nvml.ErrorString(ret))
	}

	return MemorySnapshot{
		Total: mem.Total,
		Used:  mem.Used,
		Free:  mem.Free,
	}, nil
}

func (q *nvmlQuerier) Name(index int) (string, error) {
	device, err := q.device(index)
	if err != nil {
		return "", err
	}

	name, ret := device.GetName()
	if ret != nvml.SUCCESS {
		return "", errors.Errorf("failed to get name for device %d: %s", index, nvml.ErrorString(ret))
	}

	return name, nil
}

func (q *nvmlQuerier) Temperature(index int) (uint32, error) {
	device, err := q.device(index)
	if err != nil {
		return 0, err
	}

	temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU)
	if ret != nvml.SUCCESS {
		return 0, errors.Errorf("failed to get temperature for device %d: %s", index, nvml.ErrorString(ret))
	}

	return temp, nil
}

func (q *nvmlQuerier) Utilization(index int) (uint32, error) {
	device, err := q.device(index)
	if err != nil {
		return 0, err
	}

	util, ret := device.GetUtilizationRates()
	if ret != nvml.SUCCESS {
		return 0, errors.Errorf("failed to get utilization for device %d: %s", index, nvml.ErrorString(ret))
	}

	return util.Gpu, nil
}

func (q *nvmlQuerier) Close() error {
	if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
		return errors.Errorf("failed to shutdown NVML: %s", nvml.ErrorString(ret))
	}

	return nil
}

func (q *nvmlQuerier) device(index int) (nvml.Device, error) {
	device, ret := nvml.DeviceGetHandleByIndex(index)
	if ret != nvml.SUCCESS {
		return device, errors.Errorf("failed to get handle for device %d: %s", index, nvml.ErrorString(ret))
	}

	return device, nil
}
