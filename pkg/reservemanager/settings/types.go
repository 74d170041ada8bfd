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

package settings

import (
	"strconv"
)

// DeviceSettings represents the reservation settings of one device.
type DeviceSettings struct {
	// Mode is the reservation strategy: manual, auto or smart.
	Mode string `json:"mode,omitempty"`
	// ReservedBytes is the reserved amount or buffer in bytes.
	ReservedBytes uint64 `json:"reservedmemory,omitempty"`
	// MinSafeReserveBytes is the safety floor in bytes.
	MinSafeReserveBytes uint64 `json:"minsafereserve,omitempty"`
	// ClearBeforeReserve purges device caches before each reservation.
	ClearBeforeReserve bool `json:"clearbeforereserve,omitempty"`
}

// DeviceSettingsConfig is a map from device index (or "*") to DeviceSettings.
type DeviceSettingsConfig map[string]DeviceSettings

// ForDevice returns the settings for a device index, falling back to
// the "*" wildcard entry. Returns nil when neither is present.
func (c DeviceSettingsConfig) ForDevice(device int) *DeviceSettings {
	if params, ok := c[strconv.Itoa(device)]; ok {
		return &params
	}

	if params, ok := c["*"]; ok {
		return &params
	}

	return nil
}

// json config example
// {
//   "0": {
//     "mode": "smart",
//     "reservedmemory": 1073741824,
//     "minsafereserve": 2147483648
//   },
//   "*": {
//     "mode": "auto",
//     "reservedmemory": 1073741824
//   }
// }
