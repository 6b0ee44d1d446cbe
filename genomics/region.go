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

// Package genomics contains definitions related to genomic data.
package genomics

import (
	"fmt"
	"strconv"
	"strings"
)

// AllMappedReads defines a Region that matches all mapped reads.
var AllMappedReads = Region{}

// Region defines a region of genomic interest.  Positions are 0-based and the
// interval is half-open: a record overlaps the region if it covers any base
// in [Start, End).
type Region struct {
	// Name specifies the reference sequence to match.  If it is empty, any
	// reference matches the region.
	Name string
	// Start and End specify the interval (in base pairs) relative to the
	// reference.  If End is zero, it is treated as though it was set to the
	// last possible read position.
	Start, End uint32
}

// WholeReference reports whether the region covers its entire reference
// sequence (no position interval was specified).
func (region Region) WholeReference() bool {
	return region.Start == 0 && region.End == 0
}

// Overlaps reports whether a record on the named reference covering the
// half-open interval [start, end) overlaps the region.
func (region Region) Overlaps(name string, start, end uint32) bool {
	if region.Name != "" && region.Name != name {
		return false
	}
	if region.WholeReference() {
		return true
	}
	if region.End != 0 && start >= region.End {
		return false
	}
	return end > region.Start
}

// String returns a representation of the region that can be parsed with
// ParseRegion.
func (region Region) String() string {
	if region.WholeReference() {
		return region.Name
	}
	return fmt.Sprintf("%s:%d-%d", region.Name, region.Start, region.End)
}

// ParseRegion parses input in the form "name" or "name:start-end" into a
// Region.  An end position of zero leaves the interval unbounded above.
func ParseRegion(input string) (Region, error) {
	colon := strings.LastIndex(input, ":")
	if colon < 0 {
		if input == "" {
			return Region{}, fmt.Errorf("empty region")
		}
		return Region{Name: input}, nil
	}

	name, interval := input[:colon], input[colon+1:]
	if name == "" {
		return Region{}, fmt.Errorf("missing reference name in %q", input)
	}
	bounds := strings.SplitN(interval, "-", 2)
	if len(bounds) != 2 {
		return Region{}, fmt.Errorf("malformed interval %q (want start-end)", interval)
	}
	start, err := strconv.ParseUint(bounds[0], 10, 32)
	if err != nil {
		return Region{}, fmt.Errorf("parsing start: %v", err)
	}
	end, err := strconv.ParseUint(bounds[1], 10, 32)
	if err != nil {
		return Region{}, fmt.Errorf("parsing end: %v", err)
	}
	if end != 0 && end <= start {
		return Region{}, fmt.Errorf("empty interval [%d, %d)", start, end)
	}
	return Region{Name: name, Start: uint32(start), End: uint32(end)}, nil
}
