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

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	gcs "cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSStore serves objects from Google Cloud Storage.  Object names take the
// form bucket/key.
type GCSStore struct {
	client *gcs.Client
}

// NewGCSStore returns a store that uses the application default credentials.
func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	return newGCSStore(ctx)
}

// NewPublicGCSStore returns a store that does not use any form of client
// authorization.  It can only read publicly-readable objects.
func NewPublicGCSStore(ctx context.Context) (*GCSStore, error) {
	return newGCSStore(ctx, option.WithHTTPClient(http.DefaultClient))
}

// NewGCSStoreWithToken returns a store that authenticates each request with
// the provided OAuth2 bearer token.
func NewGCSStoreWithToken(ctx context.Context, token string) (*GCSStore, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{
		TokenType:   "Bearer",
		AccessToken: token,
	})
	return newGCSStore(ctx, option.WithTokenSource(source))
}

func newGCSStore(ctx context.Context, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %v", err)
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) Open(_ context.Context, name string) (Object, error) {
	bucket, key, err := splitBucket(name)
	if err != nil {
		return nil, err
	}
	return gcsObject{s.client.Bucket(bucket).Object(key)}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

type gcsObject struct {
	handle *gcs.ObjectHandle
}

func (o gcsObject) NewRangeReader(ctx context.Context, offset, length int64) (io.ReadCloser, error) {
	r, err := o.handle.NewRangeReader(ctx, offset, length)
	if err != nil {
		return nil, classifyGCSError(err)
	}
	return r, nil
}

// classifyGCSError maps service errors onto the os sentinel errors so that
// callers can test for missing objects and denied access uniformly across
// backends.
func classifyGCSError(err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("object does not exist: %w", os.ErrNotExist)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("access denied: %w", os.ErrPermission)
		}
	}
	return err
}
