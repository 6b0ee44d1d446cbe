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

	"github.com/googlegenomics/regionscan/internal/binary"
)

const tbiMagic = "TBI\x01"

// ReadTabix decodes a Tabix format index (http://samtools.github.io/hts-specs/tabix.pdf)
// from r.  Unlike BAI, Tabix indexes carry their own reference name table,
// which is exposed through Index.Names.
func ReadTabix(r io.Reader) (*Index, error) {
	data, err := gunzip(r)
	if err != nil {
		return nil, err
	}
	return readTabix(data)
}

func readTabix(data []byte) (*Index, error) {
	r := bytes.NewReader(data)
	if err := binary.ExpectBytes(r, []byte(tbiMagic)); err != nil {
		return nil, formatErrorf("Tabix", "reading magic: %v", err)
	}

	var header struct {
		References     int32
		Format         int32
		SequenceColumn int32
		BeginColumn    int32
		EndColumn      int32
		CommentChar    int32
		SkipLines      int32
		NamesLength    int32
	}
	if err := binary.Read(r, &header); err != nil {
		return nil, formatErrorf("Tabix", "reading header: %v", err)
	}
	if header.References < 0 || header.References > maximumReferenceCount {
		return nil, formatErrorf("Tabix", "invalid reference count (%d references)", header.References)
	}
	if header.NamesLength < 0 {
		return nil, formatErrorf("Tabix", "invalid name table length (%d bytes)", header.NamesLength)
	}

	packed := make([]byte, header.NamesLength)
	if _, err := io.ReadFull(r, packed); err != nil {
		return nil, formatErrorf("Tabix", "reading name table: %v", err)
	}
	names, err := splitNames(packed, int(header.References))
	if err != nil {
		return nil, err
	}

	// The remaining layout matches BAI, minus the magic and count we
	// already consumed, so synthesize the count back in front.
	var prefix bytes.Buffer
	count := header.References
	prefix.Write([]byte{byte(count), byte(count >> 8), byte(count >> 16), byte(count >> 24)})
	references, err := readReferences(io.MultiReader(&prefix, r), "Tabix")
	if err != nil {
		return nil, err
	}

	return &Index{
		MinShift:   baiMinShift,
		Depth:      baiDepth,
		Names:      names,
		References: references,
	}, nil
}

// splitNames unpacks the null-delimited reference name table.
func splitNames(packed []byte, want int) ([]string, error) {
	if len(packed) > 0 && packed[len(packed)-1] != 0 {
		return nil, formatErrorf("Tabix", "name table is not null terminated")
	}
	var names []string
	for len(packed) > 0 {
		end := bytes.IndexByte(packed, 0)
		names = append(names, string(packed[:end]))
		packed = packed[end+1:]
	}
	if len(names) != want {
		return nil, formatErrorf("Tabix", "wrong name count (got %d names, want %d)", len(names), want)
	}
	return names, nil
}
