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
	"fmt"
	"io"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Store serves objects from any S3-compatible service.  Object names take
// the form bucket/key.
type S3Store struct {
	client *minio.Client
}

// NewS3Store connects to an S3-compatible endpoint.  Empty credentials
// produce anonymous access.
func NewS3Store(endpoint, accessKey, secretKey string, secure bool) (*S3Store, error) {
	var creds *credentials.Credentials
	if accessKey != "" {
		creds = credentials.NewStaticV4(accessKey, secretKey, "")
	} else {
		creds = credentials.NewStaticV4("", "", "")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("creating S3 client: %v", err)
	}
	return &S3Store{client: client}, nil
}

func (s *S3Store) Open(ctx context.Context, name string) (Object, error) {
	bucket, key, err := splitBucket(name)
	if err != nil {
		return nil, err
	}
	if _, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, classifyS3Error(err)
	}
	return s3Object{client: s.client, bucket: bucket, key: key}, nil
}

type s3Object struct {
	client *minio.Client
	bucket string
	key    string
}

func (o s3Object) NewRangeReader(ctx context.Context, offset, length int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if length < 0 {
		// A zero end reads from offset to the end of the object.
		if err := opts.SetRange(offset, 0); err != nil {
			return nil, fmt.Errorf("setting range: %v", err)
		}
	} else {
		if err := opts.SetRange(offset, offset+length-1); err != nil {
			return nil, fmt.Errorf("setting range: %v", err)
		}
	}
	obj, err := o.client.GetObject(ctx, o.bucket, o.key, opts)
	if err != nil {
		return nil, classifyS3Error(err)
	}
	return obj, nil
}

func classifyS3Error(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return fmt.Errorf("object does not exist: %w", os.ErrNotExist)
	case "AccessDenied":
		return fmt.Errorf("access denied: %w", os.ErrPermission)
	}
	return err
}
