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
	"errors"
	"testing"

	"github.com/googlegenomics/regionscan/bgzf"
	"github.com/googlegenomics/regionscan/genomics"
	"github.com/googlegenomics/regionscan/index"
)

func chunk(startBlock uint64, startData uint16, endBlock uint64, endData uint16) bgzf.Chunk {
	return bgzf.Chunk{
		Start: bgzf.NewAddress(startBlock, startData),
		End:   bgzf.NewAddress(endBlock, endData),
	}
}

// twoChunkIndex covers reference "1" with one chunk in each of the first two
// leaf bins and a linear index that prunes nothing.
func twoChunkIndex() *index.Index {
	return &index.Index{
		MinShift: 14,
		Depth:    5,
		Names:    []string{"1"},
		References: []index.Reference{{
			Bins: map[uint32][]bgzf.Chunk{
				4681: {chunk(0, 0, 1000, 0)},
				4682: {chunk(1000, 0, 2000, 50)},
			},
			Intervals: []bgzf.Address{0, 0},
		}},
	}
}

func TestPlanChunks(t *testing.T) {
	testCases := []struct {
		name   string
		region genomics.Region
		idx    *index.Index
		names  []string
		want   []ChunkPlan
	}{
		{
			"whole reference merges adjacent chunks",
			genomics.Region{Name: "1"},
			twoChunkIndex(),
			nil,
			[]ChunkPlan{{Range: ByteRange{0, 2001}, Start: 0}},
		},
		{
			"interval inside the first chunk prunes the second",
			genomics.Region{Name: "1", Start: 100, End: 200},
			twoChunkIndex(),
			nil,
			[]ChunkPlan{{Range: ByteRange{0, 1001}, Start: 0}},
		},
		{
			"distant chunks stay separate",
			genomics.Region{Name: "1"},
			&index.Index{
				MinShift: 14,
				Depth:    5,
				Names:    []string{"1"},
				References: []index.Reference{{
					Bins: map[uint32][]bgzf.Chunk{
						4681: {chunk(0, 0, 1000, 0)},
						4690: {chunk(100000, 10, 200000, 0)},
					},
				}},
			},
			nil,
			[]ChunkPlan{
				{Range: ByteRange{0, 1001}, Start: 0},
				{Range: ByteRange{100000, 200001}, Start: bgzf.NewAddress(100000, 10)},
			},
		},
		{
			"reference resolved through the file name table",
			genomics.Region{Name: "chr9"},
			&index.Index{
				MinShift: 14,
				Depth:    5,
				References: []index.Reference{{
					Bins: map[uint32][]bgzf.Chunk{4681: {chunk(0, 0, 500, 0)}},
				}},
			},
			[]string{"chr9"},
			[]ChunkPlan{{Range: ByteRange{0, 501}, Start: 0}},
		},
		{
			"reference with no indexed records",
			genomics.Region{Name: "1", Start: 5, End: 10},
			&index.Index{
				MinShift:   14,
				Depth:      5,
				Names:      []string{"1"},
				References: []index.Reference{{}},
			},
			nil,
			nil,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plans, err := PlanChunks(tc.region, tc.idx, tc.names, 0)
			if err != nil {
				t.Fatalf("PlanChunks() failed: %v", err)
			}
			if len(plans) != len(tc.want) {
				t.Fatalf("Wrong plan count: got %d (%v), want %d (%v)", len(plans), plans, len(tc.want), tc.want)
			}
			for i := range plans {
				if plans[i] != tc.want[i] {
					t.Errorf("Plan %d: got %+v, want %+v", i, plans[i], tc.want[i])
				}
			}
			for i := 1; i < len(plans); i++ {
				if plans[i].Range.Start < plans[i-1].Range.End {
					t.Errorf("Plans %d and %d overlap or are out of order", i-1, i)
				}
			}
		})
	}
}

func TestPlanChunks_SizeLimit(t *testing.T) {
	// Without a limit the two chunks merge; a limit below their combined
	// size keeps them as separate ranges.
	plans, err := PlanChunks(genomics.Region{Name: "1"}, twoChunkIndex(), nil, 1500)
	if err != nil {
		t.Fatalf("PlanChunks() failed: %v", err)
	}
	want := []ChunkPlan{
		{Range: ByteRange{0, 1001}, Start: 0},
		{Range: ByteRange{1000, 2001}, Start: bgzf.NewAddress(1000, 0)},
	}
	if len(plans) != len(want) {
		t.Fatalf("Wrong plan count: got %d (%v), want %d", len(plans), plans, len(want))
	}
	for i := range plans {
		if plans[i] != want[i] {
			t.Errorf("Plan %d: got %+v, want %+v", i, plans[i], want[i])
		}
	}
}

func TestPlanChunks_UnknownReference(t *testing.T) {
	testCases := []struct {
		name   string
		region genomics.Region
		idx    *index.Index
		names  []string
	}{
		{
			"name in neither table",
			genomics.Region{Name: "2"},
			twoChunkIndex(),
			nil,
		},
		{
			"name known but reference missing from index",
			genomics.Region{Name: "2"},
			twoChunkIndex(),
			[]string{"1", "2"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PlanChunks(tc.region, tc.idx, tc.names, 0)
			var unknown *UnknownReferenceError
			if !errors.As(err, &unknown) {
				t.Fatalf("PlanChunks() = %v, want UnknownReferenceError", err)
			}
			if unknown.Name != tc.region.Name {
				t.Errorf("Wrong reference name: got %q, want %q", unknown.Name, tc.region.Name)
			}
		})
	}
}

func TestByteRange(t *testing.T) {
	r := ByteRange{Start: 100, End: 2001}
	if got := r.Size(); got != 1901 {
		t.Errorf("Size() = %d, want 1901", got)
	}
	if got, want := r.String(), "[100, 2001)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
