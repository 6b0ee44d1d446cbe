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
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/googlegenomics/regionscan/storage"
)

// storeFlags configures the object store backends shared by the plan and
// query commands.  Local paths always work; gs:// and s3:// URLs need their
// backend enabled.
type storeFlags struct {
	gcs       bool
	gcsPublic bool

	s3Endpoint  string
	s3AccessKey string
	s3SecretKey string
	s3Insecure  bool
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.gcs, "gcs", false, "enable gs:// URLs using application default credentials")
	cmd.Flags().BoolVar(&f.gcsPublic, "gcs-public", false, "enable gs:// URLs without authentication")
	cmd.Flags().StringVar(&f.s3Endpoint, "s3-endpoint", "", "enable s3:// URLs against this endpoint")
	cmd.Flags().StringVar(&f.s3AccessKey, "s3-access-key", "", "S3 access key")
	cmd.Flags().StringVar(&f.s3SecretKey, "s3-secret-key", "", "S3 secret key")
	cmd.Flags().BoolVar(&f.s3Insecure, "s3-insecure", false, "use plain HTTP for S3 requests")
}

func (f *storeFlags) newStore(ctx context.Context) (storage.Store, error) {
	mux := storage.Mux{
		"":     &storage.FileStore{},
		"file": &storage.FileStore{},
	}
	switch {
	case f.gcsPublic:
		gcs, err := storage.NewPublicGCSStore(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating public GCS store: %v", err)
		}
		mux["gs"] = gcs
	case f.gcs:
		gcs, err := storage.NewGCSStore(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating GCS store: %v", err)
		}
		mux["gs"] = gcs
	}
	if f.s3Endpoint != "" {
		s3, err := storage.NewS3Store(f.s3Endpoint, f.s3AccessKey, f.s3SecretKey, !f.s3Insecure)
		if err != nil {
			return nil, fmt.Errorf("creating S3 store: %v", err)
		}
		mux["s3"] = s3
	}
	return mux, nil
}
