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

package reservemanager

import (
	"context"
	"errors"
	"io/fs"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/gpu"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/reservation"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/reservemanager/settings"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/utils/reconciler"
)

// SettingsHandler re-runs the reservation cycle for every configured
// device whenever the settings file changes or the resync timer fires.
type SettingsHandler struct {
	querier      gpu.Querier
	provider     gpu.Provider
	manager      ReserveManager
	settingsFile string

	log logr.Logger
}

var _ reconciler.Handler = &SettingsHandler{}

func NewSettingsHandler(querier gpu.Querier, provider gpu.Provider, manager ReserveManager, settingsFile string, log logr.Logger) *SettingsHandler {
	return &SettingsHandler{
		querier:      querier,
		provider:     provider,
		manager:      manager,
		settingsFile: settingsFile,
		log:          log.WithName("handler"),
	}
}

// Reconcile implements reconciler.Handler.
func (h *SettingsHandler) Reconcile(ctx context.Context, event reconciler.Event) error {
	h.log.V(1).Info("Reconciling reservations", "type", event.Type, "key", event.Key)

	if err := h.provider.UpdateDeviceCapacity(ctx); err != nil {
		return err
	}

	count, err := h.querier.DeviceCount()
	if err != nil {
		return err
	}

	config, err := settings.LoadConfigFromFile(h.settingsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			h.log.V(1).Info("No settings file, skipping cycle", "path", h.settingsFile)

			return nil
		}

		return err
	}

	var errs []error

	for device := 0; device < count; device++ {
		params := config.ForDevice(device)
		if params == nil {
			continue
		}

		req := Request{
			Device:              device,
			Mode:                reservation.ModeSmart,
			ReservedBytes:       reservation.DefaultReservedBytes,
			MinSafeReserveBytes: 2 * reservation.GiB,
		}

		req.ApplySettings(params)

		if _, err := h.manager.Reserve(ctx, req); err != nil {
			errs = append(errs, err)
		}
	}

	h.log.V(1).Info("Reconcile finished", "status", h.manager.Status())

	return multierr.Combine(errs...)
}

// ApplySettings overrides the request fields present in the settings.
func (r *Request) ApplySettings(params *settings.DeviceSettings) {
	if params.Mode != "" {
		if mode, err := reservation.ParseMode(params.Mode); err == nil {
			r.Mode = mode
		}
	}

	if params.ReservedBytes > 0 {
		r.ReservedBytes = params.ReservedBytes
	}

	if params.MinSafeReserveBytes > 0 {
		r.MinSafeReserveBytes = params.MinSafeReserveBytes
	}

	if params.ClearBeforeReserve {
		r.ClearFirst = true
	}
}
