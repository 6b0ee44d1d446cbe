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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/googlegenomics/regionscan/api"
	"github.com/googlegenomics/regionscan/storage"
)

func newServeCommand() *cobra.Command {
	var (
		port      uint
		directory string
		blockSize uint64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve scan plans over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if directory == "" {
				return fmt.Errorf("the --directory flag is required")
			}

			router := gin.Default()
			server := api.NewServer(&storage.FileStore{Root: directory}, blockSize)
			server.Register(router)

			log.Printf("Serving plans for %s on port %d", directory, port)
			return router.Run(fmt.Sprintf(":%d", port))
		},
	}
	cmd.Flags().UintVar(&port, "port", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&directory, "directory", "", "directory containing data and index files")
	cmd.Flags().Uint64Var(&blockSize, "block-size", 1<<30, "soft limit on bytes per planned range")
	return cmd
}
