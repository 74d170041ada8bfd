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
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cobra "github.com/spf13/cobra"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/cleaner"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/gpu"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/reservemanager"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/sink"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/utils/reconciler"
)

type watchCmd struct {
	settingsFile   string
	resyncInterval time.Duration
	maxRetries     int
}

func buildWatchCmd() *cobra.Command {
	c := &watchCmd{}

	cmd := cobra.Command{
		Use:           "watch",
		Aliases:       []string{"w"},
		Short:         "Keep reservations in sync with the settings file and device state",
		Args:          cobra.ExactArgs(0),
		RunE:          c.runWatch,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.StringVar(&c.settingsFile, "settings", "/etc/gpu-memory-manager/devices.json", "device settings file to watch")
	flags.DurationVar(&c.resyncInterval, "resync-interval", 60*time.Second, "interval between full reservation cycles")
	flags.IntVar(&c.maxRetries, "max-retries", 5, "maximum number of retry attempts")

	return &cmd
}

func (c *watchCmd) runWatch(cmd *cobra.Command, _ []string) error {
	logger.Info("GPU memory manager", "version", version, "settings", c.settingsFile)

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
	provider := gpu.NewProvider(querier, logger)

	handler := reservemanager.NewSettingsHandler(querier, provider, manager, c.settingsFile, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	config := reconciler.DefaultConfig(logger)
	config.SettingsPath = c.settingsFile
	config.ResyncInterval = c.resyncInterval
	config.MaxRetries = c.maxRetries

	rec, err := reconciler.NewReconciler(config, handler)
	if err != nil {
		logger.Error(err, "Failed to create reconciler")

		return err
	}

	if err := rec.Start(ctx); err != nil {
		logger.Error(err, "Failed to start reconciler")

		return err
	}

	logger.Info("Reconciler started successfully")

	select {
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down gracefully", "signal", sig)
	case <-ctx.Done():
		logger.Info("Context canceled, shutting down")
	}

	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)

		rec.Stop()
	}()

	select {
	case <-done:
		logger.Info("Reconciler stopped gracefully")
	case <-time.After(30 * time.Second):
		logger.Info("Shutdown timeout exceeded, forcing exit")
	}

	return nil
}
