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

package bam

import (
	"context"

	"github.com/googlegenomics/regionscan/scan"
	"github.com/googlegenomics/regionscan/storage"
)

type storeNamer struct {
	store storage.Store
}

// StoreNamer returns a reference namer that reads the header of BAM objects
// in store.  Only the header blocks are fetched; the read is abandoned as
// soon as the name table is complete.
func StoreNamer(store storage.Store) scan.ReferenceNamer {
	return &storeNamer{store: store}
}

func (n *storeNamer) ReferenceNames(ctx context.Context, url string) ([]string, error) {
	obj, err := n.store.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	r, err := obj.NewRangeReader(ctx, 0, -1)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ReferenceNames(r)
}
