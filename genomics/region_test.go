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

package genomics

import "testing"

func TestParseRegion_RoundTrip(t *testing.T) {
	testCases := []struct {
		input string
		want  Region
	}{
		{"1", Region{Name: "1"}},
		{"chrX", Region{Name: "chrX"}},
		{"1:100-200", Region{Name: "1", Start: 100, End: 200}},
		{"HLA-DRB1*15:03:01:1-100", Region{Name: "HLA-DRB1*15:03:01", Start: 1, End: 100}},
		{"20:0-0", Region{Name: "20"}},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseRegion(tc.input)
			if err != nil {
				t.Fatalf("ParseRegion(%q) returned error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("ParseRegion(%q) = %v, want %v", tc.input, got, tc.want)
			}
			reparsed, err := ParseRegion(got.String())
			if err != nil {
				t.Fatalf("ParseRegion(%q) returned error: %v", got.String(), err)
			}
			if reparsed != got {
				t.Errorf("Round trip through %q = %v, want %v", got.String(), reparsed, got)
			}
		})
	}
}

func TestParseRegion_Errors(t *testing.T) {
	testCases := []string{
		"",
		":1-100",
		"1:100",
		"1:abc-200",
		"1:100-abc",
		"1:200-100",
		"1:100-100",
	}
	for _, input := range testCases {
		t.Run(input, func(t *testing.T) {
			if got, err := ParseRegion(input); err == nil {
				t.Errorf("Unexpected success: got %v, wanted error", got)
			}
		})
	}
}

func TestRegionOverlaps(t *testing.T) {
	testCases := []struct {
		name       string
		region     Region
		ref        string
		start, end uint32
		want       bool
	}{
		{"any reference matches empty region", Region{}, "1", 0, 10, true},
		{"name only, matching", Region{Name: "1"}, "1", 500, 600, true},
		{"name only, mismatched", Region{Name: "1"}, "2", 500, 600, false},
		{"record inside interval", Region{Name: "1", Start: 100, End: 200}, "1", 150, 160, true},
		{"record straddles start", Region{Name: "1", Start: 100, End: 200}, "1", 90, 110, true},
		{"record straddles end", Region{Name: "1", Start: 100, End: 200}, "1", 190, 210, true},
		{"record before interval", Region{Name: "1", Start: 100, End: 200}, "1", 50, 100, false},
		{"record at exclusive end", Region{Name: "1", Start: 100, End: 200}, "1", 200, 210, false},
		{"record touching start is excluded", Region{Name: "1", Start: 100, End: 200}, "1", 90, 100, false},
		{"unbounded end", Region{Name: "1", Start: 100, End: 0}, "1", 1 << 28, 1<<28 + 10, true},
		{"unmapped record never matches named region", Region{Name: "1"}, "", 0, 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.region.Overlaps(tc.ref, tc.start, tc.end); got != tc.want {
				t.Errorf("Overlaps(%q, %d, %d) = %t, want %t", tc.ref, tc.start, tc.end, got, tc.want)
			}
		})
	}
}
