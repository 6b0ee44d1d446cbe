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

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/googlegenomics/regionscan/bam"
	"github.com/googlegenomics/regionscan/genomics"
	"github.com/googlegenomics/regionscan/scan"
)

func newPlanCommand() *cobra.Command {
	flags := &storeFlags{}
	var blockSize uint64

	cmd := &cobra.Command{
		Use:   "plan <data-url> <index-url> <region>",
		Short: "Print the byte ranges a region scan would fetch",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			region, err := genomics.ParseRegion(args[2])
			if err != nil {
				return fmt.Errorf("parsing region: %v", err)
			}
			store, err := flags.newStore(cmd.Context())
			if err != nil {
				return err
			}

			planner := scan.NewPlanner(scan.StoreLoader(store), bam.StoreNamer(store))
			planner.SizeLimit = blockSize
			tasks, err := planner.Plan(cmd.Context(), region, []scan.File{{Data: args[0], Index: args[1]}})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, task := range tasks {
				if task.Range == nil {
					fmt.Fprintf(out, "%s\twhole file\n", task.Object)
					continue
				}
				fmt.Fprintf(out, "%s\t%d\t%d\t%s\n", task.Object, task.Range.Start, task.Range.End, task.Start)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Uint64Var(&blockSize, "block-size", 0, "soft limit on bytes per planned range")
	return cmd
}
