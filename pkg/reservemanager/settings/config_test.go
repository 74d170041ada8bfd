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

package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/reservemanager/settings"
)

const settingsJSON = `{
  "0": {
    "mode": "manual",
    "reservedmemory": 3221225472,
    "minsafereserve": 2147483648,
    "clearbeforereserve": true
  },
  "*": {
    "mode": "smart",
    "reservedmemory": 1073741824
  }
}`

func writeSettings(t *testing.T, content string) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "devices.json")
	assert.NoError(t, os.WriteFile(name, []byte(content), 0o644))

	return name
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	config, err := settings.LoadConfigFromFile(writeSettings(t, settingsJSON))
	assert.NoError(t, err)

	expected := settings.DeviceSettingsConfig{
		"0": {
			Mode:                "manual",
			ReservedBytes:       3 * 1024 * 1024 * 1024,
			MinSafeReserveBytes: 2 * 1024 * 1024 * 1024,
			ClearBeforeReserve:  true,
		},
		"*": {
			Mode:          "smart",
			ReservedBytes: 1 * 1024 * 1024 * 1024,
		},
	}

	if diff := cmp.Diff(expected, config); diff != "" {
		t.Errorf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestForDevice(t *testing.T) {
	t.Parallel()

	config, err := settings.LoadConfigFromFile(writeSettings(t, settingsJSON))
	assert.NoError(t, err)

	testCases := []struct {
		name   string
		device int

		expected *settings.DeviceSettings
	}{
		{
			name:   "explicit entry",
			device: 0,
			expected: &settings.DeviceSettings{
				Mode:                "manual",
				ReservedBytes:       3 * 1024 * 1024 * 1024,
				MinSafeReserveBytes: 2 * 1024 * 1024 * 1024,
				ClearBeforeReserve:  true,
			},
		},
		{
			name:   "wildcard fallback",
			device: 3,
			expected: &settings.DeviceSettings{
				Mode:          "smart",
				ReservedBytes: 1 * 1024 * 1024 * 1024,
			},
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			params := config.ForDevice(tc.device)

			if diff := cmp.Diff(tc.expected, params); diff != "" {
				t.Errorf("unexpected settings (-want +got):\n%s", diff)
			}
		})
	}
}

func TestForDeviceNoMatch(t *testing.T) {
	t.Parallel()

	config, err := settings.LoadConfigFromFile(writeSettings(t, `{"1": {"mode": "auto"}}`))
	assert.NoError(t, err)

	assert.Nil(t, config.ForDevice(0))
}

func TestLoadDeviceSettingsFromFile(t *testing.T) {
	t.Parallel()

	params, err := settings.LoadDeviceSettingsFromFile("", 0)
	assert.NoError(t, err)
	assert.Nil(t, params)

	params, err = settings.LoadDeviceSettingsFromFile(writeSettings(t, settingsJSON), 2)
	assert.NoError(t, err)
	assert.Equal(t, "smart", params.Mode)

	_, err = settings.LoadDeviceSettingsFromFile(writeSettings(t, "not json"), 0)
	assert.Error(t, err)
}
