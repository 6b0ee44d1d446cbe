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
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/googlegenomics/regionscan/bgzf"
	"github.com/googlegenomics/regionscan/internal/binary"
)

const csiMagic = "CSI\x01"

// ReadCSI decodes a CSI format index (http://samtools.github.io/hts-specs/CSIv1.pdf)
// from r.
func ReadCSI(r io.Reader) (*Index, error) {
	data, err := gunzip(r)
	if err != nil {
		return nil, err
	}
	return readCSI(data)
}

func readCSI(data []byte) (*Index, error) {
	r := bytes.NewReader(data)
	if err := binary.ExpectBytes(r, []byte(csiMagic)); err != nil {
		return nil, formatErrorf("CSI", "reading magic: %v", err)
	}

	var header struct {
		MinShift        int32
		Depth           int32
		AuxiliaryLength int32
	}
	if err := binary.Read(r, &header); err != nil {
		return nil, formatErrorf("CSI", "reading header: %v", err)
	}
	if header.MinShift < 0 || header.Depth < 0 || header.Depth > maximumDepth {
		return nil, formatErrorf("CSI", "invalid binning scheme (shift %d, depth %d)", header.MinShift, header.Depth)
	}
	if header.AuxiliaryLength < 0 {
		return nil, formatErrorf("CSI", "invalid auxiliary length (%d bytes)", header.AuxiliaryLength)
	}
	if _, err := r.Seek(int64(header.AuxiliaryLength), io.SeekCurrent); err != nil {
		return nil, formatErrorf("CSI", "reading past auxiliary data: %v", err)
	}

	var count int32
	if err := binary.Read(r, &count); err != nil {
		return nil, formatErrorf("CSI", "reading reference count: %v", err)
	}
	if count < 0 || count > maximumReferenceCount {
		return nil, formatErrorf("CSI", "invalid reference count (%d references)", count)
	}

	limit := binLimit(header.Depth)
	references := make([]Reference, count)
	for i := int32(0); i < count; i++ {
		var binCount int32
		if err := binary.Read(r, &binCount); err != nil {
			return nil, formatErrorf("CSI", "reading bin count: %v", err)
		}
		if binCount < 0 || binCount > maximumBinCount {
			return nil, formatErrorf("CSI", "invalid bin count (%d bins)", binCount)
		}

		bins := make(map[uint32][]bgzf.Chunk)
		offsets := make(map[uint32]bgzf.Address)
		for j := int32(0); j < binCount; j++ {
			var bin struct {
				ID     uint32
				Offset uint64
				Chunks int32
			}
			if err := binary.Read(r, &bin); err != nil {
				return nil, formatErrorf("CSI", "reading bin header: %v", err)
			}
			if bin.Chunks < 0 {
				return nil, formatErrorf("CSI", "invalid chunk count (%d chunks) in bin %d", bin.Chunks, bin.ID)
			}
			chunks, err := readChunks(r, "CSI", bin.Chunks)
			if err != nil {
				return nil, err
			}
			if bin.ID >= limit {
				continue
			}
			bins[bin.ID] = chunks
			offsets[bin.ID] = bgzf.Address(bin.Offset)
		}
		references[i] = Reference{Bins: bins, BinOffsets: offsets}
	}
	return &Index{
		MinShift:   header.MinShift,
		Depth:      header.Depth,
		References: references,
	}, nil
}

// gunzip fully decompresses a gzip stream, as used by the CSI and Tabix
// envelope formats.
func gunzip(r io.Reader) ([]byte, error) {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return nil, formatErrorf("compressed", "initializing gzip reader: %v", err)
	}
	defer gzr.Close()

	var buffer bytes.Buffer
	if _, err := io.Copy(&buffer, gzr); err != nil {
		return nil, formatErrorf("compressed", "decompressing index: %v", err)
	}
	return buffer.Bytes(), nil
}
