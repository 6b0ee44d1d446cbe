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

// Package bam provides support for parsing BAM files.
package bam

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/googlegenomics/regionscan/scan"
)

const (
	bamMagic = "BAM\x01"

	// This is just to prevent arbitrarily long allocations due to
	// malformed data.  No reference name should be longer than this in
	// practice.
	maximumNameLength = 1024

	maximumReferenceCount = 1 << 20
)

// ReferenceNames reads the header of the BGZF compressed BAM file in r and
// returns its reference sequence names in file order.
func ReferenceNames(r io.Reader) ([]string, error) {
	bam, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %v", err)
	}

	magic := make([]byte, 4)
	if _, err := io.ReadFull(bam, magic); err != nil {
		return nil, fmt.Errorf("reading magic: %v", err)
	}
	if !bytes.Equal(magic, []byte(bamMagic)) {
		return nil, fmt.Errorf("invalid magic %q", magic)
	}
	var length int32
	if err := binary.Read(bam, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("reading SAM header length: %v", err)
	}
	if _, err := io.CopyN(io.Discard, bam, int64(length)); err != nil {
		return nil, fmt.Errorf("reading past SAM header: %v", err)
	}
	var count int32
	if err := binary.Read(bam, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("reading references count: %v", err)
	}
	if count < 0 || count > maximumReferenceCount {
		return nil, fmt.Errorf("invalid reference count (%d)", count)
	}

	names := make([]string, 0, count)
	for i := int32(0); i < count; i++ {
		if err := binary.Read(bam, binary.LittleEndian, &length); err != nil {
			return nil, fmt.Errorf("reading name length: %v", err)
		}
		// The name length includes a null terminating character.
		if length < 1 || length > maximumNameLength {
			return nil, fmt.Errorf("invalid name length (%d bytes)", length)
		}
		name := make([]byte, length)
		if _, err := io.ReadFull(bam, name); err != nil {
			return nil, fmt.Errorf("reading name: %v", err)
		}
		names = append(names, string(name[:length-1]))
		// Read and discard the reference length (4 bytes).
		if err := binary.Read(bam, binary.LittleEndian, &length); err != nil {
			return nil, fmt.Errorf("reading reference length: %v", err)
		}
	}
	return names, nil
}

// Record is a single decoded alignment.  Positions are 0-based and the
// alignment interval is half-open.
type Record struct {
	Reference string
	Pos       uint32
	AlignEnd  uint32
	MapQ      uint8
	Flag      uint16
}

func (r *Record) ReferenceName() string { return r.Reference }
func (r *Record) Start() uint32         { return r.Pos }
func (r *Record) End() uint32           { return r.AlignEnd }

// RecordDecoder decodes uncompressed BAM record bytes into records.  With a
// nil name table the decoder first consumes a BAM header from the stream and
// takes its names from there, which is the whole-file case; a byte range
// scan must supply the names up front.  A decoder carries partial state
// between calls and must not be shared across streams.
type RecordDecoder struct {
	names      []string
	needHeader bool
}

// NewRecordDecoder returns a decoder resolving reference IDs against names.
func NewRecordDecoder(names []string) *RecordDecoder {
	return &RecordDecoder{names: names, needHeader: names == nil}
}

// Decode parses all complete records in buf and returns them along with the
// number of bytes consumed.  A trailing partial record is left for the next
// call.
func (d *RecordDecoder) Decode(buf []byte) ([]scan.Record, int, error) {
	var consumed int
	if d.needHeader {
		names, n, err := parseHeader(buf)
		if err != nil {
			return nil, 0, err
		}
		if n == 0 {
			// The header does not fit in buf yet.
			return nil, 0, nil
		}
		d.names = names
		d.needHeader = false
		consumed = n
	}

	var records []scan.Record
	for {
		rec, n, err := d.decodeRecord(buf[consumed:])
		if err != nil {
			return nil, 0, err
		}
		if n == 0 {
			break
		}
		consumed += n
		records = append(records, rec)
	}
	return records, consumed, nil
}

// The fixed portion of a BAM alignment record that follows the 4-byte block
// size, per the SAM specification section 4.2.
const recordCoreSize = 32

func (d *RecordDecoder) decodeRecord(buf []byte) (*Record, int, error) {
	if len(buf) < 4 {
		return nil, 0, nil
	}
	size := int(int32(binary.LittleEndian.Uint32(buf)))
	if size < recordCoreSize {
		return nil, 0, fmt.Errorf("invalid record size (%d bytes)", size)
	}
	if len(buf) < 4+size {
		return nil, 0, nil
	}
	body := buf[4 : 4+size]

	refID := int32(binary.LittleEndian.Uint32(body))
	pos := int32(binary.LittleEndian.Uint32(body[4:]))
	nameLength := int(body[8])
	mapq := body[9]
	cigarOps := int(binary.LittleEndian.Uint16(body[12:]))
	flag := binary.LittleEndian.Uint16(body[14:])

	if nameLength < 1 || recordCoreSize+nameLength+4*cigarOps > size {
		return nil, 0, fmt.Errorf("record fields exceed record size (%d bytes)", size)
	}

	rec := &Record{MapQ: mapq, Flag: flag}
	if refID >= 0 {
		if int(refID) >= len(d.names) {
			return nil, 0, fmt.Errorf("record reference ID %d out of range (%d references)", refID, len(d.names))
		}
		rec.Reference = d.names[refID]
	}
	if pos >= 0 {
		rec.Pos = uint32(pos)
	}

	cigar := body[recordCoreSize+nameLength:]
	span := alignmentSpan(cigar, cigarOps)
	if span == 0 {
		// Unmapped or placed-only records still occupy one position so
		// interval overlap tests behave.
		span = 1
	}
	rec.AlignEnd = rec.Pos + span

	return rec, 4 + size, nil
}

// alignmentSpan returns the number of reference bases covered by a CIGAR
// string.  Only M, D, N, = and X operations consume reference positions.
func alignmentSpan(cigar []byte, ops int) uint32 {
	var span uint32
	for i := 0; i < ops; i++ {
		op := binary.LittleEndian.Uint32(cigar[4*i:])
		switch op & 0xf {
		case 0, 2, 3, 7, 8:
			span += op >> 4
		}
	}
	return span
}

func parseHeader(buf []byte) (names []string, consumed int, err error) {
	if len(buf) < 8 {
		return nil, 0, nil
	}
	if string(buf[:4]) != bamMagic {
		return nil, 0, fmt.Errorf("invalid magic %q", buf[:4])
	}
	text := int(int32(binary.LittleEndian.Uint32(buf[4:])))
	if text < 0 {
		return nil, 0, fmt.Errorf("invalid SAM header length (%d bytes)", text)
	}

	offset := 8 + text
	if len(buf) < offset+4 {
		return nil, 0, nil
	}
	count := int(int32(binary.LittleEndian.Uint32(buf[offset:])))
	if count < 0 || count > maximumReferenceCount {
		return nil, 0, fmt.Errorf("invalid reference count (%d)", count)
	}
	offset += 4

	names = make([]string, 0, count)
	for i := 0; i < count; i++ {
		if len(buf) < offset+4 {
			return nil, 0, nil
		}
		length := int(int32(binary.LittleEndian.Uint32(buf[offset:])))
		if length < 1 || length > maximumNameLength {
			return nil, 0, fmt.Errorf("invalid name length (%d bytes)", length)
		}
		offset += 4
		if len(buf) < offset+length+4 {
			return nil, 0, nil
		}
		names = append(names, string(buf[offset:offset+length-1]))
		offset += length + 4
	}
	return names, offset, nil
}
