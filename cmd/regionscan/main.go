// Copyright 2024 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command regionscan plans and runs region-restricted scans over block
// compressed, coordinate indexed genomic files.
package main

import (
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var profileDir string
	var profiler interface{ Stop() }

	root := &cobra.Command{
		Use:          "regionscan",
		Short:        "Plan and run region-restricted scans over indexed genomic files",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if profileDir != "" {
				profiler = profile.Start(profile.CPUProfile, profile.ProfilePath(profileDir))
			}
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if profiler != nil {
				profiler.Stop()
			}
		},
	}
	root.PersistentFlags().StringVar(&profileDir, "profile", "", "write a CPU profile to this directory")
	root.AddCommand(newPlanCommand(), newQueryCommand(), newServeCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
