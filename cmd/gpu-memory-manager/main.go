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

// Package main implements the GPU memory manager command-line tool.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	cobra "github.com/spf13/cobra"
)

var (
	command = "gpu-memory-manager"
	version = "v0.0.0"
	commit  = "none"
)

var logger logr.Logger

func main() {
	if exitCode := run(); exitCode != 0 {
		os.Exit(exitCode)
	}
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var verbosity int

	cmd := cobra.Command{
		Use:     command,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Short:   "Reserve, monitor and clear GPU memory for an inference host",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger = setupLogger(verbosity)

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.IntVarP(&verbosity, "verbosity", "v", 0, "Verbosity level (0=info, 1=debug, 2=trace, -1=errors only)")
	flags.String("reserved-memory-file", "/run/gpu-memory-manager/reserved.json", "path of the reserved memory slot the inference host reads")

	cmd.AddCommand(buildStatusCmd())
	cmd.AddCommand(buildReserveCmd())
	cmd.AddCommand(buildClearCmd())
	cmd.AddCommand(buildWatchCmd())

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		errorString := err.Error()
		if strings.Contains(errorString, "arg(s)") || strings.Contains(errorString, "flag") || strings.Contains(errorString, "command") {
			fmt.Fprintf(os.Stderr, "Error: %s\n\n", errorString)
			fmt.Fprintln(os.Stderr, cmd.UsageString())
		} else {
			fmt.Fprintln(os.Stderr, "Execute error:", err)
		}

		return 1
	}

	return 0
}
