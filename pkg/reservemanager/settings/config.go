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
	"encoding/json"
	"fmt"
	"os"
)

// LoadDeviceSettingsFromFile loads the settings of one device from a file.
func LoadDeviceSettingsFromFile(name string, device int) (*DeviceSettings, error) {
	if name == "" {
		return nil, nil
	}

	config, err := LoadConfigFromFile(name)
	if err != nil {
		return nil, err
	}

	return config.ForDevice(device), nil
}

// LoadConfigFromFile loads the settings of all devices from a file.
func LoadConfigFromFile(name string) (DeviceSettingsConfig, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read device settings file %s: %w", name, err)
	}

	config := DeviceSettingsConfig{}

	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device settings %s: %w", name, err)
	}

	return config, nil
}
