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
	"time"

	cobra "github.com/spf13/cobra"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/cleaner"
	"github.com/sergelogvinov/gpu-memory-manager/pkg/gpu"
)

type clearCmd struct {
	device     int
	allGPUs    bool
	aggressive bool
	purgeURL   string
}

func buildClearCmd() *cobra.Command {
	c := &clearCmd{}

	cmd := cobra.Command{
		Use:           "clear",
		Aliases:       []string{"c"},
		Short:         "Release cached device allocations and report the freed amount",
		Args:          cobra.ExactArgs(0),
		RunE:          c.runClear,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.IntVarP(&c.device, "device", "d", 0, "device index")
	flags.BoolVar(&c.allGPUs, "all-gpus", false, "clear every visible device")
	flags.BoolVar(&c.aggressive, "aggressive", false, "also run a host-process garbage collection pass")
	flags.StringVar(&c.purgeURL, "purge-url", "", "inference runtime admin endpoint that releases device caches")

	return &cmd
}

func (c *clearCmd) runClear(cmd *cobra.Command, _ []string) error {
	querier, err := gpu.NewNVMLQuerier()
	if err != nil {
		return err
	}
	defer querier.Close() //nolint:errcheck

	purgers := []cleaner.Purger{}

	if c.purgeURL != "" {
		purgers = append(purgers, cleaner.NewHTTPPurger(c.purgeURL, 30*time.Second))
	}

	if c.aggressive || len(purgers) == 0 {
		purgers = append(purgers, cleaner.NewHostPurger())
	}

	cln := cleaner.NewCleaner(querier, logger, purgers...)

	var report *cleaner.Report

	if c.allGPUs {
		report, err = cln.ClearAll(cmd.Context())
	} else {
		report, err = cln.Clear(cmd.Context(), c.device)
	}

	if report != nil {
		fmt.Fprintln(cmd.OutOrStdout(), report.String())
	}

	return err
}
