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

// Package index decodes binned genomic coordinate indexes (BAI, CSI and
// Tabix) into an immutable in-memory model that supports candidate chunk
// selection for region queries.
package index

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/googlegenomics/regionscan/bgzf"
)

// This is just to prevent arbitrarily long allocations due to malformed
// data.  No index should exceed these counts in practice.
const (
	maximumReferenceCount = 1 << 20
	maximumBinCount       = 1 << 26
	maximumDepth          = 10
)

// FormatError indicates that index data did not conform to the expected
// binary layout.
type FormatError struct {
	Format string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed %s index: %v", e.Format, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErrorf(format, spec string, args ...interface{}) error {
	return &FormatError{Format: format, Err: fmt.Errorf(spec, args...)}
}

// Reference holds the index data for a single reference sequence.
type Reference struct {
	// Bins maps bin IDs to the chunks registered against them, in the order
	// they appear in the index file.
	Bins map[uint32][]bgzf.Chunk
	// BinOffsets holds the per-bin minimum virtual offset (CSI loffset).
	// It is nil for formats that carry a linear index instead.
	BinOffsets map[uint32]bgzf.Address
	// Intervals is the linear index: the minimum virtual offset of any
	// record starting at or after each fixed-size coordinate window.  It is
	// nil for CSI indexes.
	Intervals []bgzf.Address
}

// Index is the decoded form of a binned coordinate index.  It is immutable
// once constructed and safe for concurrent readers.
type Index struct {
	// MinShift is the number of coordinate bits covered by the finest bin
	// level; Depth is the number of levels above it.
	MinShift, Depth int32
	// Names holds the reference sequence names when the index carries them
	// (Tabix).  It is nil otherwise.
	Names []string
	// References holds one entry per reference sequence, ordered to match
	// the companion data file's header.
	References []Reference
}

// Reference returns the index data for the reference sequence with the given
// ID, or false if the ID is out of range.
func (idx *Index) Reference(id int) (*Reference, bool) {
	if id < 0 || id >= len(idx.References) {
		return nil, false
	}
	return &idx.References[id], true
}

// ReferenceID resolves a reference sequence name against the index's own
// name table.  It returns false when the index carries no names or the name
// is absent.
func (idx *Index) ReferenceID(name string) (int, bool) {
	for id, candidate := range idx.Names {
		if candidate == name {
			return id, true
		}
	}
	return 0, false
}

// Read sniffs the format of the index data in r (BAI, CSI or Tabix) and
// decodes it.
func Read(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil {
		return nil, formatErrorf("unknown", "reading magic: %v", err)
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		// CSI and Tabix indexes are gzip compressed; BAI is not.
		data, err := gunzip(br)
		if err != nil {
			return nil, err
		}
		if len(data) >= 4 && string(data[:4]) == tbiMagic {
			return readTabix(data)
		}
		return readCSI(data)
	}
	return ReadBAI(br)
}

// CandidateChunks returns the chunks from all bins overlapping the half-open
// interval [start, end), discarding chunks that provably end before the first
// possibly-overlapping record.  A zero start and end selects every chunk on
// the reference.  Chunk order within each bin is preserved; chunks from
// different bins are not globally sorted.
func (ref *Reference) CandidateChunks(start, end uint32, minShift, depth int32) []bgzf.Chunk {
	var minOffset bgzf.Address
	if window := int(start >> uint(minShift)); window < len(ref.Intervals) {
		minOffset = ref.Intervals[window]
	}

	var bins []uint32
	if start == 0 && end == 0 {
		for id := range ref.Bins {
			bins = append(bins, id)
		}
		sort.Slice(bins, func(i, j int) bool { return bins[i] < bins[j] })
	} else {
		bins = binsForRange(start, end, minShift, depth)
	}

	var chunks []bgzf.Chunk
	for _, id := range bins {
		binChunks, ok := ref.Bins[id]
		if !ok {
			continue
		}
		binOffset := ref.BinOffsets[id]
		for _, chunk := range binChunks {
			if chunk.End < minOffset || chunk.End < binOffset {
				continue
			}
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// This is derived from the C examples in the CSI index specification.
func binsForRange(start, end uint32, minShift, depth int32) []uint32 {
	maxWidth := maximumBinWidth(minShift, depth)
	if end == 0 || end > maxWidth {
		end = maxWidth
	}
	if end <= start || start > maxWidth {
		return nil
	}

	end--
	var bins []uint32
	for l, t, s := uint(0), uint(0), uint(minShift+depth*3); l <= uint(depth); l++ {
		b := t + (uint(start) >> s)
		e := t + (uint(end) >> s)
		for i := b; i <= e; i++ {
			bins = append(bins, uint32(i))
		}
		s -= 3
		t += 1 << (l * 3)
	}
	return bins
}

func maximumBinWidth(minShift, depth int32) uint32 {
	width := uint64(1) << uint(minShift+depth*3)
	if width > 1<<31 {
		return 1 << 31
	}
	return uint32(width)
}

// binLimit returns the number of real bins in a scheme of the given depth.
// Bin IDs at or above the limit identify virtual metadata bins.
func binLimit(depth int32) uint32 {
	return uint32((1<<uint(3*(depth+1)) - 1) / 7)
}
