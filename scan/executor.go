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
	"bufio"
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/googlegenomics/regionscan/bgzf"
	"github.com/googlegenomics/regionscan/storage"
)

// Record is one decoded genomic record with half-open alignment bounds.
type Record interface {
	ReferenceName() string
	Start() uint32
	End() uint32
}

// A Decoder turns uncompressed block bytes into records.  Decode parses as
// many complete records as buf holds and reports the bytes it consumed; the
// executor carries any unconsumed suffix into the next block.  Decoders may
// keep state between calls, so each task needs its own.
type Decoder interface {
	Decode(buf []byte) ([]Record, int, error)
}

// Execute runs a single scan task: one range fetch, sequential block
// decompression, record decoding, and an exact region filter over the
// decoded records.  Byte ranges are block granular and records are not, so
// the filter is what establishes the region boundary; decoded order is
// preserved.  Fetch failures are reported as *FetchError and corrupt blocks
// or records as *DecodeError.
func Execute(ctx context.Context, task Task, store storage.Store, dec Decoder) ([]Record, error) {
	var fetch ByteRange
	if task.Range != nil {
		fetch = *task.Range
	}

	obj, err := store.Open(ctx, task.Object)
	if err != nil {
		return nil, &FetchError{Object: task.Object, Range: fetch, Err: err}
	}

	offset, length := int64(0), int64(-1)
	if task.Range != nil {
		offset = int64(task.Range.Start)
		// The range ends one byte into the final block, which may extend
		// up to a full block size past it.
		length = int64(task.Range.Size()) + bgzf.MaximumBlockSize
	}
	r, err := obj.NewRangeReader(ctx, offset, length)
	if err != nil {
		return nil, &FetchError{Object: task.Object, Range: fetch, Err: err}
	}
	defer r.Close()

	// bufio.Reader implements io.ByteReader, which keeps DecodeBlock from
	// reading past each block boundary.
	br := bufio.NewReaderSize(r, bgzf.MaximumBlockSize)

	var (
		records []Record
		pending []byte
		first   = true
		pos     = uint64(offset)
	)
	for task.Range == nil || pos < task.Range.End {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, size, err := bgzf.DecodeBlock(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecodeError{Object: task.Object, Region: task.Region, Err: err}
		}
		if size == 0 {
			// BSIZE wraps to zero for a maximum-size block.
			pos += bgzf.MaximumBlockSize
		} else {
			pos += uint64(size)
		}

		if first {
			first = false
			if skip := int(task.Start.DataOffset()); skip > 0 {
				if skip > len(data) {
					err := fmt.Errorf("start offset %d beyond block of %d bytes", skip, len(data))
					return nil, &DecodeError{Object: task.Object, Region: task.Region, Err: err}
				}
				data = data[skip:]
			}
		}
		if len(pending) > 0 {
			data = append(pending, data...)
		}

		recs, consumed, err := dec.Decode(data)
		if err != nil {
			return nil, &DecodeError{Object: task.Object, Region: task.Region, Err: err}
		}
		for _, rec := range recs {
			if task.Region.Overlaps(rec.ReferenceName(), rec.Start(), rec.End()) {
				records = append(records, rec)
			}
		}
		pending = append([]byte(nil), data[consumed:]...)
	}

	// A ranged task stops at the chunk boundary, so bytes of records that
	// begin past it are expected left over.  A whole-file task must consume
	// everything.
	if len(pending) > 0 && task.Range == nil {
		err := fmt.Errorf("%d trailing bytes after last record", len(pending))
		return nil, &DecodeError{Object: task.Object, Region: task.Region, Err: err}
	}
	return records, nil
}

// Result is the outcome of one task.
type Result struct {
	Records []Record
	Err     error
}

// ExecuteAll runs every task with at most parallelism of them in flight at
// once (unlimited when parallelism is zero or less), constructing a fresh
// decoder per task.  Results are returned in task order.  A failed task
// records its error in its own slot and never disturbs the others; only
// cancellation of ctx stops the remaining tasks early.
func ExecuteAll(ctx context.Context, tasks []Task, store storage.Store, newDecoder func() Decoder, parallelism int) []Result {
	results := make([]Result, len(tasks))

	var g errgroup.Group
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			records, err := Execute(ctx, task, store, newDecoder())
			results[i] = Result{Records: records, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}
