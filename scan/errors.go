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

package scan

import (
	"fmt"

	"github.com/googlegenomics/regionscan/genomics"
)

// UnknownReferenceError indicates that a region names a reference sequence
// absent from both the index and the file's name table.
type UnknownReferenceError struct {
	Name string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown reference %q", e.Name)
}

// FetchError indicates that a byte range could not be read from the object
// store.
type FetchError struct {
	Object string
	Range  ByteRange
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s of %q: %v", e.Range, e.Object, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError indicates that fetched bytes could not be decompressed or
// decoded into records.
type DecodeError struct {
	Object string
	Region genomics.Region
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %q for region %s: %v", e.Object, e.Region, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
