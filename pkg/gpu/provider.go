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
	"context"
	"sort"
	"sync"

	"github.com/go-logr/logr"
)

// Provider caches per-device capacity information between refreshes.
type Provider interface {
	// UpdateDeviceCapacity refreshes the cached information for all devices.
	UpdateDeviceCapacity(ctx context.Context) error

	// Devices returns the cached information for all devices, ordered by index.
	Devices() []DeviceInfo
	// GetDevice returns the cached information for one device.
	GetDevice(index int) *DeviceInfo
}

type DefaultProvider struct {
	querier Querier

	muDeviceInfo sync.RWMutex
	deviceInfo   map[int]DeviceInfo

	log logr.Logger
}

var _ Provider = &DefaultProvider{}

func NewProvider(querier Querier, log logr.Logger) *DefaultProvider {
	return &DefaultProvider{
		querier: querier,
		log:     log.WithName("devicecapacity"),
	}
}

func (p *DefaultProvider) UpdateDeviceCapacity(_ context.Context) error {
	log := p.log.WithName("UpdateDeviceCapacity()")

	count, err := p.querier.DeviceCount()
	if err != nil {
		return err
	}

	deviceInfo := make(map[int]DeviceInfo, count)

	for index := 0; index < count; index++ {
		info, err := DeviceInfoFor(p.querier, index)
		if err != nil {
			log.Error(err, "Failed to query device", "device", index)

			continue
		}

		deviceInfo[index] = *info

		log.V(4).Info("Device capacity available", "device", index,
			"name", info.Name, "memory", info.Memory.String())
	}

	log.V(1).Info("Syncing finished", "devices", len(deviceInfo))

	p.muDeviceInfo.Lock()
	defer p.muDeviceInfo.Unlock()

	p.deviceInfo = deviceInfo

	return nil
}

func (p *DefaultProvider) Devices() []DeviceInfo {
	p.muDeviceInfo.RLock()
	defer p.muDeviceInfo.RUnlock()

	devices := make([]DeviceInfo, 0, len(p.deviceInfo))
	for _, info := range p.deviceInfo {
		devices = append(devices, info)
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Index < devices[j].Index
	})

	return devices
}

func (p *DefaultProvider) GetDevice(index int) *DeviceInfo {
	p.muDeviceInfo.RLock()
	defer p.muDeviceInfo.RUnlock()

	if info, ok := p.deviceInfo[index]; ok {
		device := info

		return &device
	}

	return nil
}
