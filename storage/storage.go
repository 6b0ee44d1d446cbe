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

// Package storage provides range-read access to objects stored on the local
// filesystem, Google Cloud Storage, or any S3-compatible service.  Objects
// are named by URL: gs://bucket/key, s3://bucket/key, or a plain file path.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnsupportedScheme is returned when an object URL names a scheme that no
// configured backend handles.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// Object provides random range reads over a single stored object.
type Object interface {
	// NewRangeReader returns a reader over length bytes starting at
	// offset.  A negative length reads to the end of the object.
	NewRangeReader(ctx context.Context, offset, length int64) (io.ReadCloser, error)
}

// Store resolves object names (without any URL scheme) to objects.
type Store interface {
	Open(ctx context.Context, name string) (Object, error)
}

// Mux dispatches object URLs to backend stores by scheme.  The empty scheme
// key handles plain paths.
type Mux map[string]Store

// Open splits url into scheme and name and opens the name against the
// matching backend.
func (m Mux) Open(ctx context.Context, url string) (Object, error) {
	scheme, name := splitScheme(url)
	store, ok := m[scheme]
	if !ok {
		if scheme == "" {
			return nil, fmt.Errorf("opening %q: no plain path backend: %w", url, ErrUnsupportedScheme)
		}
		return nil, fmt.Errorf("opening %q: scheme %q: %w", url, scheme, ErrUnsupportedScheme)
	}
	return store.Open(ctx, name)
}

func splitScheme(url string) (scheme, name string) {
	i := strings.Index(url, "://")
	if i < 0 {
		return "", url
	}
	return url[:i], url[i+3:]
}

// splitBucket separates the leading bucket component from an object name.
func splitBucket(name string) (bucket, key string, err error) {
	i := strings.Index(name, "/")
	if i <= 0 || i == len(name)-1 {
		return "", "", fmt.Errorf("invalid object name %q: want bucket/key", name)
	}
	return name[:i], name[i+1:], nil
}
