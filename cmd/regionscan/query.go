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
	"log"

	"github.com/spf13/cobra"

	"github.com/googlegenomics/regionscan/bam"
	"github.com/googlegenomics/regionscan/genomics"
	"github.com/googlegenomics/regionscan/scan"
)

func newQueryCommand() *cobra.Command {
	flags := &storeFlags{}
	var (
		blockSize   uint64
		parallelism int
		show        int
	)

	cmd := &cobra.Command{
		Use:   "query <data-url> <index-url> <region>",
		Short: "Run a region scan and print the matching records",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			region, err := genomics.ParseRegion(args[2])
			if err != nil {
				return fmt.Errorf("parsing region: %v", err)
			}
			store, err := flags.newStore(ctx)
			if err != nil {
				return err
			}

			namer := bam.StoreNamer(store)
			planner := scan.NewPlanner(scan.StoreLoader(store), namer)
			planner.SizeLimit = blockSize
			tasks, err := planner.Plan(ctx, region, []scan.File{{Data: args[0], Index: args[1]}})
			if err != nil {
				return err
			}

			// Ranged tasks skip the file header, so the decoder needs the
			// reference names up front.
			var names []string
			if region.Name != "" {
				if names, err = namer.ReferenceNames(ctx, args[0]); err != nil {
					return fmt.Errorf("reading reference names: %v", err)
				}
			}

			results := scan.ExecuteAll(ctx, tasks, store, func() scan.Decoder {
				return bam.NewRecordDecoder(names)
			}, parallelism)

			out := cmd.OutOrStdout()
			var total, failed, printed int
			for i, result := range results {
				if result.Err != nil {
					log.Printf("Task %d failed: %v", i, result.Err)
					failed++
					continue
				}
				for _, rec := range result.Records {
					if printed < show {
						fmt.Fprintf(out, "%s\t%d\t%d\n", rec.ReferenceName(), rec.Start(), rec.End())
						printed++
					}
					total++
				}
			}
			fmt.Fprintf(out, "%d records in %d tasks\n", total, len(tasks))
			if failed > 0 {
				return fmt.Errorf("%d of %d tasks failed", failed, len(tasks))
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Uint64Var(&blockSize, "block-size", 0, "soft limit on bytes per planned range")
	cmd.Flags().IntVar(&parallelism, "parallelism", 4, "maximum concurrent tasks (0 for unlimited)")
	cmd.Flags().IntVar(&show, "show", 10, "number of records to print")
	return cmd
}
