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

package index

import (
	"io"

	"github.com/googlegenomics/regionscan/bgzf"
	"github.com/googlegenomics/regionscan/internal/binary"
)

const (
	baiMagic = "BAI\x01"

	// The fixed binning scheme used by BAI and Tabix indexes, as specified
	// in the SAM specification sections 5.1.1 and 5.1.3.
	baiMinShift = 14
	baiDepth    = 5
)

// ReadBAI decodes a BAI format index from r.
func ReadBAI(r io.Reader) (*Index, error) {
	if err := binary.ExpectBytes(r, []byte(baiMagic)); err != nil {
		return nil, formatErrorf("BAI", "reading magic: %v", err)
	}

	references, err := readReferences(r, "BAI")
	if err != nil {
		return nil, err
	}
	return &Index{
		MinShift:   baiMinShift,
		Depth:      baiDepth,
		References: references,
	}, nil
}

// readReferences decodes the shared BAI/Tabix reference layout: a reference
// count followed by per-reference bins (uint32 ID plus chunk list) and a
// linear index of virtual offsets.
func readReferences(r io.Reader, format string) ([]Reference, error) {
	var count int32
	if err := binary.Read(r, &count); err != nil {
		return nil, formatErrorf(format, "reading reference count: %v", err)
	}
	if count < 0 || count > maximumReferenceCount {
		return nil, formatErrorf(format, "invalid reference count (%d references)", count)
	}

	limit := binLimit(baiDepth)
	references := make([]Reference, count)
	for i := int32(0); i < count; i++ {
		var binCount int32
		if err := binary.Read(r, &binCount); err != nil {
			return nil, formatErrorf(format, "reading bin count: %v", err)
		}
		if binCount < 0 || binCount > maximumBinCount {
			return nil, formatErrorf(format, "invalid bin count (%d bins)", binCount)
		}

		bins := make(map[uint32][]bgzf.Chunk)
		for j := int32(0); j < binCount; j++ {
			var bin struct {
				ID     uint32
				Chunks int32
			}
			if err := binary.Read(r, &bin); err != nil {
				return nil, formatErrorf(format, "reading bin header: %v", err)
			}
			if bin.Chunks < 0 {
				return nil, formatErrorf(format, "invalid chunk count (%d chunks) in bin %d", bin.Chunks, bin.ID)
			}
			chunks, err := readChunks(r, format, bin.Chunks)
			if err != nil {
				return nil, err
			}
			// Bin IDs past the scheme limit hold metadata, not records.
			if bin.ID >= limit {
				continue
			}
			bins[bin.ID] = chunks
		}

		var intervals int32
		if err := binary.Read(r, &intervals); err != nil {
			return nil, formatErrorf(format, "reading interval count: %v", err)
		}
		if intervals < 0 {
			return nil, formatErrorf(format, "invalid interval count (%d intervals)", intervals)
		}
		offsets := make([]uint64, intervals)
		if err := binary.Read(r, &offsets); err != nil {
			return nil, formatErrorf(format, "reading linear index: %v", err)
		}
		linear := make([]bgzf.Address, intervals)
		for k, offset := range offsets {
			linear[k] = bgzf.Address(offset)
		}

		references[i] = Reference{Bins: bins, Intervals: linear}
	}
	return references, nil
}

func readChunks(r io.Reader, format string, count int32) ([]bgzf.Chunk, error) {
	chunks := make([]bgzf.Chunk, 0, count)
	for k := int32(0); k < count; k++ {
		var chunk bgzf.Chunk
		if err := binary.Read(r, &chunk); err != nil {
			return nil, formatErrorf(format, "reading chunk: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}
