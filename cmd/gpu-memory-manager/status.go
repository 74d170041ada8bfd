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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
	cobra "github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"

	"github.com/sergelogvinov/gpu-memory-manager/pkg/gpu"
)

type statusCmd struct {
	output string
}

func buildStatusCmd() *cobra.Command {
	c := &statusCmd{}

	cmd := cobra.Command{
		Use:           "status",
		Aliases:       []string{"s"},
		Short:         "Show per-device memory, temperature and utilization",
		Args:          cobra.ExactArgs(0),
		RunE:          c.runStatus,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.StringVarP(&c.output, "output", "o", "text", "output format: text, json or yaml")

	return &cmd
}

func (c *statusCmd) runStatus(cmd *cobra.Command, _ []string) error {
	querier, err := gpu.NewNVMLQuerier()
	if err != nil {
		return err
	}
	defer querier.Close() //nolint:errcheck

	provider := gpu.NewProvider(querier, logger)

	if err := provider.UpdateDeviceCapacity(cmd.Context()); err != nil {
		return err
	}

	devices := provider.Devices()

	switch c.output {
	case "json":
		data, err := json.MarshalIndent(devices, "", "  ")
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	case "yaml":
		data, err := yaml.Marshal(devices)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), string(data))
	case "text":
		fmt.Fprint(cmd.OutOrStdout(), formatDevices(devices))
	default:
		return fmt.Errorf("unknown output format %q, valid formats: text, json, yaml", c.output)
	}

	return nil
}

func formatDevices(devices []gpu.DeviceInfo) string {
	if len(devices) == 0 {
		return "no devices available\n"
	}

	blocks := lo.Map(devices, func(d gpu.DeviceInfo, _ int) string {
		lines := []string{
			fmt.Sprintf("=== GPU %d ===", d.Index),
			fmt.Sprintf("name:        %s", lo.Ternary(d.Name != "", d.Name, "unknown")),
			fmt.Sprintf("memory:      %s (%.1f%% used)", d.Memory.String(), d.Memory.UsedPercent()),
		}

		if d.Temperature != nil {
			lines = append(lines, fmt.Sprintf("temperature: %dC", *d.Temperature))
		}

		if d.Utilization != nil {
			lines = append(lines, fmt.Sprintf("utilization: %d%%", *d.Utilization))
		}

		return strings.Join(lines, "\n")
	})

	return strings.Join(blocks, "\n") + "\n"
}
