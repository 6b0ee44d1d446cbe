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
	"path/filepath"
)

// FileStore serves objects from the local filesystem.  When Root is set all
// names are resolved relative to it.
type FileStore struct {
	Root string
}

func (s *FileStore) Open(_ context.Context, name string) (Object, error) {
	path := name
	if s.Root != "" {
		path = filepath.Join(s.Root, name)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening %q: %w", name, err)
	}
	return fileObject(path), nil
}

// fileObject opens a fresh handle per range read so concurrent readers never
// share a file position.
type fileObject string

func (f fileObject) NewRangeReader(_ context.Context, offset, length int64) (io.ReadCloser, error) {
	file, err := os.Open(string(f))
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", string(f), err)
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seeking to %d in %q: %w", offset, string(f), err)
	}
	if length < 0 {
		return file, nil
	}
	return &limitedFileReader{Reader: io.LimitReader(file, length), file: file}, nil
}

type limitedFileReader struct {
	io.Reader
	file *os.File
}

func (r *limitedFileReader) Close() error {
	return r.file.Close()
}
