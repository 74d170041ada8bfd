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

package main

import (
	"fmt"

	cobra "github.com/spf13/cobra"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/cleaner"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/gpu"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/reservation"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/reservemanager"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/reservemanager/settings"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/sink"
)

type reserveCmd struct {
	device       int
	mode         string
	reservedGiB  float64
	minSafeGiB   float64
	clearFirst   bool
	settingsFile string
}

func buildReserveCmd() *cobra.Command {
	c := &reserveCmd{}

	cmd := cobra.Command{
		Use:           "reserve",
		Aliases:       []string{"r"},
		Short:         "Compute a reservation and publish it to the host",
		Args:          cobra.ExactArgs(0),
		RunE:          c.runReserve,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.IntVarP(&c.device, "device", "d", 0, "device index")
	flags.StringVarP(&c.mode, "mode", "m", "smart", "reservation mode: manual, auto or smart")
	flags.Float64VarP(&c.reservedGiB, "reserved", "r", 1.0, "reserved amount in GiB (manual: fixed value, auto/smart: buffer)")
	flags.Float64Var(&c.minSafeGiB, "min-safe-reserve", 2.0, "safety floor in GiB the reservation never goes below")
	flags.BoolVar(&c.clearFirst, "clear", false, "purge device caches before taking the snapshot")
	flags.StringVar(&c.settingsFile, "settings", "", "device settings file overriding the flags")

	return &cmd
}

func (c *reserveCmd) runReserve(cmd *cobra.Command, _ []string) error {
	req, err := c.request()
	if err != nil {
		return err
	}

	querier, err := gpu.NewNVMLQuerier()
	if err != nil {
		return err
	}
	defer querier.Close() //nolint:errcheck

	slotPath, err := cmd.Flags().GetString("reserved-memory-file")
	if err != nil {
		return err
	}

	memSink, err := sink.NewFileSink(slotPath)
	if err != nil {
		return err
	}

	cln := cleaner.NewCleaner(querier, logger, cleaner.NewHostPurger())
	manager := reservemanager.NewReserveManager(querier, memSink, cln, logger)

	decision, err := manager.Reserve(cmd.Context(), req)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "reserved %s\n", decision.String())

	return nil
}

func (c *reserveCmd) request() (reservemanager.Request, error) {
	req := reservemanager.Request{
		Device:              c.device,
		ReservedBytes:       gibToBytes(c.reservedGiB),
		MinSafeReserveBytes: gibToBytes(c.minSafeGiB),
		ClearFirst:          c.clearFirst,
	}

	mode, err := reservation.ParseMode(c.mode)
	if err != nil {
		return req, err
	}

	req.Mode = mode

	if c.settingsFile == "" {
		return req, nil
	}

	params, err := settings.LoadDeviceSettingsFromFile(c.settingsFile, c.device)
	if err != nil {
		return req, err
	}

	if params != nil {
		req.ApplySettings(params)
	}

	return req, nil
}

func gibToBytes(gib float64) uint64 {
	if gib <= 0 {
		return 0
	}

	return uint64(gib * float64(reservation.GiB))
}
