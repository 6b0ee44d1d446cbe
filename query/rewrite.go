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

package query

import (
	"math"

	"github.com/googlegenomics/regionscan/genomics"
)

// Rewriter recognizes region-shaped predicates and normalizes each into a
// single RegionFilter node.  The supported shapes are:
//
//	chrom = 'name' (either operand order)
//	pos BETWEEN low AND high
//	a conjunction of position bounds (pos >= low AND pos < high, and the
//	inclusive/strict variants)
//	a conjunction of the canonical forms above
//
// Any other shape is left untouched and falls through to generic predicate
// evaluation.  Rewriting is idempotent: RegionFilter nodes pass through
// unchanged, so re-running the pass on its own output is a no-op.
type Rewriter struct {
	// ChromColumn and PosColumn name the reference and position columns in
	// the scanned schema.
	ChromColumn string
	PosColumn   string
}

// NewRewriter returns a Rewriter using the conventional column names
// "chrom" and "pos".
func NewRewriter() *Rewriter {
	return &Rewriter{ChromColumn: "chrom", PosColumn: "pos"}
}

// Rewrite returns expr with every recognized region predicate replaced by a
// RegionFilter.  The input tree is never modified; when nothing is
// recognized the result is expr itself.
func (rw *Rewriter) Rewrite(expr Expr) Expr {
	switch e := expr.(type) {
	case *RegionFilter:
		return e

	case *Between:
		if region, ok := rw.betweenRegion(e); ok {
			return &RegionFilter{Region: region, Input: e}
		}
		return e

	case *Binary:
		switch e.Op {
		case Eq:
			if region, ok := rw.chromEquality(e); ok {
				return &RegionFilter{Region: region, Input: e}
			}
			return e

		case And:
			left := rw.Rewrite(e.Left)
			right := rw.Rewrite(e.Right)

			lf, lok := left.(*RegionFilter)
			rf, rok := right.(*RegionFilter)
			if lok && rok {
				// Two distinct regions ANDed merge only when provably
				// compatible; otherwise fail closed and keep the original
				// predicate for generic evaluation.
				if region, ok := mergeRegions(lf.Region, rf.Region); ok {
					return &RegionFilter{Region: region, Input: e}
				}
				return e
			}
			if region, ok := rw.boundConjunction(e); ok {
				return &RegionFilter{Region: region, Input: e}
			}
			if left != e.Left || right != e.Right {
				return &Binary{Op: And, Left: left, Right: right}
			}
			return e

		case Or:
			left := rw.Rewrite(e.Left)
			right := rw.Rewrite(e.Right)
			if left != e.Left || right != e.Right {
				return &Binary{Op: Or, Left: left, Right: right}
			}
			return e
		}
		return e
	}
	return expr
}

// ExtractRegion returns the single pushdown region carried by a rewritten
// predicate.  It reports false when the tree has no RegionFilter or more
// than one, since exactly one region per scan is supported.
func ExtractRegion(expr Expr) (genomics.Region, bool) {
	filters := collectFilters(expr, nil)
	if len(filters) != 1 {
		return genomics.Region{}, false
	}
	return filters[0].Region, true
}

func collectFilters(expr Expr, filters []*RegionFilter) []*RegionFilter {
	switch e := expr.(type) {
	case *RegionFilter:
		return append(filters, e)
	case *Binary:
		if e.Op == And {
			return collectFilters(e.Right, collectFilters(e.Left, filters))
		}
	}
	return filters
}

func (rw *Rewriter) chromEquality(b *Binary) (genomics.Region, bool) {
	name, ok := columnLiteral(b.Left, b.Right, rw.ChromColumn)
	if !ok {
		name, ok = columnLiteral(b.Right, b.Left, rw.ChromColumn)
	}
	if !ok || name == "" {
		return genomics.Region{}, false
	}
	return genomics.Region{Name: name}, true
}

func columnLiteral(left, right Expr, column string) (string, bool) {
	col, ok := left.(*Column)
	if !ok || col.Name != column {
		return "", false
	}
	lit, ok := right.(*Literal)
	if !ok {
		return "", false
	}
	name, ok := lit.Value.(string)
	return name, ok
}

func (rw *Rewriter) betweenRegion(b *Between) (genomics.Region, bool) {
	if b.Negated {
		return genomics.Region{}, false
	}
	col, ok := b.Expr.(*Column)
	if !ok || col.Name != rw.PosColumn {
		return genomics.Region{}, false
	}
	low, ok := intLiteral(b.Low)
	if !ok {
		return genomics.Region{}, false
	}
	high, ok := intLiteral(b.High)
	if !ok {
		return genomics.Region{}, false
	}
	return positionInterval(low, high)
}

// boundConjunction recognizes `pos >= low AND pos <= high` and its strict
// variants, in either operand and conjunct order.
func (rw *Rewriter) boundConjunction(b *Binary) (genomics.Region, bool) {
	lower1, upper1, ok := rw.positionBound(b.Left)
	if !ok {
		return genomics.Region{}, false
	}
	lower2, upper2, ok := rw.positionBound(b.Right)
	if !ok {
		return genomics.Region{}, false
	}

	var low, high *int64
	switch {
	case lower1 != nil && upper2 != nil:
		low, high = lower1, upper2
	case lower2 != nil && upper1 != nil:
		low, high = lower2, upper1
	default:
		return genomics.Region{}, false
	}
	return positionInterval(*low, *high)
}

// positionBound interprets a single comparison as a lower or upper bound on
// the position column.  Exactly one of the returned bounds is set on
// success.
func (rw *Rewriter) positionBound(expr Expr) (lower, upper *int64, ok bool) {
	b, isBinary := expr.(*Binary)
	if !isBinary {
		return nil, nil, false
	}

	op := b.Op
	left, right := b.Left, b.Right
	if _, isColumn := right.(*Column); isColumn {
		// Normalize `literal op pos` to `pos op' literal`.
		left, right = right, left
		switch op {
		case Lt:
			op = Gt
		case LtEq:
			op = GtEq
		case Gt:
			op = Lt
		case GtEq:
			op = LtEq
		}
	}

	col, isColumn := left.(*Column)
	if !isColumn || col.Name != rw.PosColumn {
		return nil, nil, false
	}
	value, isInt := intLiteral(right)
	if !isInt {
		return nil, nil, false
	}

	switch op {
	case GtEq:
		return &value, nil, true
	case Gt:
		value++
		return &value, nil, true
	case LtEq, Lt:
		// Both map to an exclusive upper bound: BETWEEN and its >=/<=
		// conjunction form produce the half-open interval [low, high).
		return nil, &value, true
	}
	return nil, nil, false
}

func intLiteral(expr Expr) (int64, bool) {
	lit, ok := expr.(*Literal)
	if !ok {
		return 0, false
	}
	switch v := lit.Value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint32:
		return int64(v), true
	}
	return 0, false
}

// positionInterval converts literal bounds to the half-open interval
// [low, high).  Bounds that cannot be represented decline the rewrite.
func positionInterval(low, high int64) (genomics.Region, bool) {
	if low < 0 || high <= 0 || low >= high || high > math.MaxUint32 {
		return genomics.Region{}, false
	}
	return genomics.Region{Start: uint32(low), End: uint32(high)}, true
}

// mergeRegions combines two region constraints joined by AND.  It declines
// when the reference names conflict or the intervals cannot be proven to
// intersect.
func mergeRegions(a, b genomics.Region) (genomics.Region, bool) {
	merged := genomics.Region{Name: a.Name}
	if b.Name != "" {
		if a.Name != "" && a.Name != b.Name {
			return genomics.Region{}, false
		}
		merged.Name = b.Name
	}

	switch {
	case a.WholeReference():
		merged.Start, merged.End = b.Start, b.End
	case b.WholeReference():
		merged.Start, merged.End = a.Start, a.End
	default:
		merged.Start = max32(a.Start, b.Start)
		merged.End = minEnd(a.End, b.End)
		if merged.End != 0 && merged.Start >= merged.End {
			return genomics.Region{}, false
		}
	}
	return merged, true
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// minEnd treats a zero end as unbounded.
func minEnd(a, b uint32) uint32 {
	if a == 0 {
		return b
	}
	if b == 0 || a < b {
		return a
	}
	return b
}
