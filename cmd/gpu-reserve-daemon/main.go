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

// Package main implements the standalone reservation daemon. It keeps
// the host-owned reserved memory slot in sync with the device settings
// file and the actual device state.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/cleaner"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/gpu"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/reservemanager"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/sink"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/utils/reconciler"
)

const (
	verbosityEnvVarName = "VERBOSITY"
	verbosityFlagName   = "verbosity"

	settingsEnvVarName = "SETTINGS_FILE"
	settingsFlagName   = "settings"

	slotEnvVarName = "RESERVED_MEMORY_FILE"
	slotFlagName   = "reserved-memory-file"

	maxRetriesEnvVarName = "MAX_RETRIES"
	maxRetriesFlagName   = "max-retries"

	resyncIntervalEnvVarName = "RESYNC_INTERVAL"
	resyncIntervalFlagName   = "resync-interval"
)

var (
	// Version of the gpu-reserve-daemon
	Version = "edge"

	showVersion = pflag.Bool("version", false, "Print the version and exit.")

	verbosity      = pflag.IntP(verbosityFlagName, "v", envInt(verbosityEnvVarName, 0), "Verbosity level (0=info, 1=debug, 2=trace, -1=errors only)")
	settingsFile   = pflag.String(settingsFlagName, envString(settingsEnvVarName, "/etc/gpu-memory-manager/devices.json"), "Device settings file to watch")
	slotFile       = pflag.String(slotFlagName, envString(slotEnvVarName, "/run/gpu-memory-manager/reserved.json"), "Path of the reserved memory slot the inference host reads")
	maxRetries     = pflag.Int(maxRetriesFlagName, envInt(maxRetriesEnvVarName, 5), "Maximum number of retry attempts")
	resyncInterval = pflag.Duration(resyncIntervalFlagName, envDuration(resyncIntervalEnvVarName, 60*time.Second), "Resync interval")
)

func main() {
	pflag.Parse()

	if *showVersion {
		fmt.Printf("gpu-reserve-daemon %s\n", Version)
		os.Exit(0)
	}

	logger := setupLogger(*verbosity)
	logger.Info("GPU reservation daemon", "version", Version, "verbosity", *verbosity)

	querier, err := gpu.NewNVMLQuerier()
	if err != nil {
		logger.Error(err, "Failed to initialize device library")
		os.Exit(1)
	}
	defer querier.Close() //nolint:errcheck

	memSink, err := sink.NewFileSink(*slotFile)
	if err != nil {
		logger.Error(err, "Failed to open reserved memory slot", "path", *slotFile)
		os.Exit(1)
	}

	cln := cleaner.NewCleaner(querier, logger, cleaner.NewHostPurger())
	manager := reservemanager.NewReserveManager(querier, memSink, cln, logger)
	provider := gpu.NewProvider(querier, logger)

	handler := reservemanager.NewSettingsHandler(querier, provider, manager, *settingsFile, logger)

	if err := daemon(handler, logger); err != nil {
		logger.Error(err, "Reconciler encountered an error")
		os.Exit(1)
	}
}

func daemon(handler *reservemanager.SettingsHandler, logger logr.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	config := reconciler.DefaultConfig(logger)
	config.SettingsPath = *settingsFile
	config.ResyncInterval = *resyncInterval
	config.MaxRetries = *maxRetries

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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)

		rec.Stop()
	}()

	select {
	case <-done:
		logger.Info("Reconciler stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Info("Shutdown timeout exceeded, forcing exit")
	}

	return nil
}
