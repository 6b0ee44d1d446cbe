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
	"context"

	"github.com/googlegenomics/regionscan/index"
	"github.com/googlegenomics/regionscan/storage"
)

// StoreLoader returns an index loader that reads whole index objects from
// store.  Index files are small relative to the data they index, so they are
// always fetched in full.
func StoreLoader(store storage.Store) IndexLoader {
	return LoaderFunc(func(ctx context.Context, url string) (*index.Index, error) {
		obj, err := store.Open(ctx, url)
		if err != nil {
			return nil, err
		}
		r, err := obj.NewRangeReader(ctx, 0, -1)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return index.Read(r)
	})
}
