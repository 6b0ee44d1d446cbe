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

// Package scan plans and executes region-restricted scans over block
// compressed, coordinate indexed genomic files.  Planning turns a region and
// a decoded index into the minimal sorted set of compressed byte ranges to
// fetch; execution fetches each range, decompresses its blocks, and filters
// the decoded records against the exact region boundary.
package scan

import (
	"fmt"

	"github.com/googlegenomics/regionscan/bgzf"
	"github.com/googlegenomics/regionscan/genomics"
	"github.com/googlegenomics/regionscan/index"
)

// ByteRange is a half-open interval of compressed file offsets.
type ByteRange struct {
	Start uint64
	End   uint64
}

// Size returns the number of bytes covered by the range.
func (r ByteRange) Size() uint64 {
	return r.End - r.Start
}

func (r ByteRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// ChunkPlan pairs a compressed byte range with the virtual address of the
// first record inside it.  The range is block granular: it begins at the
// start of the block containing the first record and extends one byte past
// the start of the block containing the last one, so decoding must skip
// Start.DataOffset() bytes of the first block.
type ChunkPlan struct {
	Range ByteRange
	Start bgzf.Address
}

// PlanChunks returns the merged, ascending byte ranges that cover every
// record of region in the indexed file.  The reference is resolved against
// names first (the file's own name table, required for BAI indexes which
// carry none) and then against any names stored in the index itself.  A
// non-zero sizeLimit keeps adjacent chunks apart once a merged chunk would
// exceed that many compressed bytes, trading fewer bytes per fetch for more
// fetches.  A region without a position interval selects every chunk of the
// reference; the result may still be several ranges when the chunks are far
// apart, skipping the compressed blocks between them.  An empty plan means
// the index holds no records for the region;
// an unresolvable reference name is an UnknownReferenceError.
func PlanChunks(region genomics.Region, idx *index.Index, names []string, sizeLimit uint64) ([]ChunkPlan, error) {
	id := -1
	for i, name := range names {
		if name == region.Name {
			id = i
			break
		}
	}
	if id < 0 {
		var ok bool
		if id, ok = idx.ReferenceID(region.Name); !ok {
			return nil, &UnknownReferenceError{Name: region.Name}
		}
	}
	ref, ok := idx.Reference(id)
	if !ok {
		return nil, &UnknownReferenceError{Name: region.Name}
	}

	chunks := bgzf.Merge(ref.CandidateChunks(region.Start, region.End, idx.MinShift, idx.Depth), sizeLimit)
	plans := make([]ChunkPlan, 0, len(chunks))
	for _, chunk := range chunks {
		plans = append(plans, ChunkPlan{
			Range: ByteRange{
				Start: chunk.Start.BlockOffset(),
				End:   chunk.End.BlockOffset() + 1,
			},
			Start: chunk.Start,
		})
	}
	return plans, nil
}
