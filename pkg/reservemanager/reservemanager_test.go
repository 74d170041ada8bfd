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

package reservemanager_test

import (
	"context"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/reservation"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/reservemanager"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/sink"
	testDevice "github.com/sergelogvinov/gpu-memory-manager/test/device"
)

const gib = uint64(1024 * 1024 * 1024)

func TestReserve(t *testing.T) {
	t.Parallel()

	total24g := float64(24 * gib)

	testCases := []struct {
		name    string
		request reservemanager.Request

		reserved uint64
		degraded bool
	}{
		{
			name: "manual reservation on device 0",
			request: reservemanager.Request{
				Device:              0,
				Mode:                reservation.ModeManual,
				ReservedBytes:       3 * gib,
				MinSafeReserveBytes: 2 * gib,
			},
			reserved: 3 * gib,
		},
		{
			name: "smart reservation on tight device",
			request: reservemanager.Request{
				Device:              1,
				Mode:                reservation.ModeSmart,
				ReservedBytes:       1 * gib,
				MinSafeReserveBytes: 2 * gib,
			},
			reserved: uint64(total24g * 0.80),
		},
		{
			name: "out of range device substituted with device 0",
			request: reservemanager.Request{
				Device:              5,
				Mode:                reservation.ModeAuto,
				ReservedBytes:       1 * gib,
				MinSafeReserveBytes: 2 * gib,
			},
			reserved: 11 * gib,
		},
		{
			name: "unknown mode publishes the default",
			request: reservemanager.Request{
				Device:              0,
				Mode:                reservation.Mode("turbo"),
				ReservedBytes:       3 * gib,
				MinSafeReserveBytes: 2 * gib,
			},
			reserved: 3 * gib,
			degraded: true,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			querier := testDevice.NewFakeQuerier(testDevice.Snap24GAmple, testDevice.Snap24GTight)
			memSink := sink.NewMemorySink()
			manager := reservemanager.NewReserveManager(querier, memSink, nil, logr.Discard())

			decision, err := manager.Reserve(context.Background(), tc.request)
			assert.NoError(t, err)

			assert.Equal(t, tc.reserved, decision.ReservedBytes)
			assert.Equal(t, tc.degraded, decision.Degraded)
			assert.Equal(t, tc.reserved, memSink.ReservedMemory())
		})
	}
}

func TestReserveDegradedQuery(t *testing.T) {
	t.Parallel()

	querier := testDevice.NewFakeQuerier(testDevice.Snap24GAmple)
	querier.FailMemory = true

	memSink := sink.NewMemorySink()
	manager := reservemanager.NewReserveManager(querier, memSink, nil, logr.Discard())

	decision, err := manager.Reserve(context.Background(), reservemanager.Request{
		Mode:                reservation.ModeSmart,
		ReservedBytes:       1 * gib,
		MinSafeReserveBytes: 2 * gib,
	})

	assert.NoError(t, err)
	assert.True(t, decision.Degraded)
	assert.Equal(t, 2*gib, decision.ReservedBytes)
	assert.Equal(t, 2*gib, memSink.ReservedMemory())
}

func TestReserveConcurrent(t *testing.T) {
	t.Parallel()

	querier := testDevice.NewFakeQuerier(testDevice.Snap24GAmple)
	memSink := sink.NewMemorySink()
	manager := reservemanager.NewReserveManager(querier, memSink, nil, logr.Discard())

	request := reservemanager.Request{
		Mode:                reservation.ModeAuto,
		ReservedBytes:       1 * gib,
		MinSafeReserveBytes: 2 * gib,
	}

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := manager.Reserve(context.Background(), request)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, 11*gib, memSink.ReservedMemory())
}

func TestStatus(t *testing.T) {
	t.Parallel()

	querier := testDevice.NewFakeQuerier(testDevice.Snap24GAmple, testDevice.Snap24GTight)
	memSink := sink.NewMemorySink()
	manager := reservemanager.NewReserveManager(querier, memSink, nil, logr.Discard())

	assert.Equal(t, "devices: 2, reserved: 0M", manager.Status())
}
