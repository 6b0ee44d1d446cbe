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
	"testing"

	"github.com/googlegenomics/regionscan/genomics"
)

func and(left, right Expr) Expr { return &Binary{Op: And, Left: left, Right: right} }
func or(left, right Expr) Expr  { return &Binary{Op: Or, Left: left, Right: right} }
func eq(left, right Expr) Expr  { return &Binary{Op: Eq, Left: left, Right: right} }

func cmp(op Op, left, right Expr) Expr { return &Binary{Op: op, Left: left, Right: right} }

func between(col string, low, high int64) Expr {
	return &Between{Expr: Col(col), Low: Int(low), High: Int(high)}
}

func TestRewrite_RecognizedShapes(t *testing.T) {
	testCases := []struct {
		name  string
		input Expr
		want  genomics.Region
	}{
		{
			"chromosome equality",
			eq(Col("chrom"), Str("1")),
			genomics.Region{Name: "1"},
		},
		{
			"chromosome equality, literal first",
			eq(Str("chrX"), Col("chrom")),
			genomics.Region{Name: "chrX"},
		},
		{
			"position between",
			between("pos", 100, 200),
			genomics.Region{Start: 100, End: 200},
		},
		{
			"bound conjunction",
			and(cmp(GtEq, Col("pos"), Int(100)), cmp(LtEq, Col("pos"), Int(200))),
			genomics.Region{Start: 100, End: 200},
		},
		{
			"bound conjunction, reversed conjuncts",
			and(cmp(LtEq, Col("pos"), Int(200)), cmp(GtEq, Col("pos"), Int(100))),
			genomics.Region{Start: 100, End: 200},
		},
		{
			"strict bounds",
			and(cmp(Gt, Col("pos"), Int(99)), cmp(Lt, Col("pos"), Int(200))),
			genomics.Region{Start: 100, End: 200},
		},
		{
			"bounds with literal first",
			and(cmp(LtEq, Int(100), Col("pos")), cmp(GtEq, Int(200), Col("pos"))),
			genomics.Region{Start: 100, End: 200},
		},
		{
			"chromosome and interval",
			and(eq(Col("chrom"), Str("1")), between("pos", 100, 200)),
			genomics.Region{Name: "1", Start: 100, End: 200},
		},
		{
			"interval and chromosome",
			and(between("pos", 100, 200), eq(Col("chrom"), Str("1"))),
			genomics.Region{Name: "1", Start: 100, End: 200},
		},
		{
			"same chromosome twice",
			and(eq(Col("chrom"), Str("1")), eq(Col("chrom"), Str("1"))),
			genomics.Region{Name: "1"},
		},
		{
			"intersecting intervals",
			and(between("pos", 100, 300), between("pos", 200, 400)),
			genomics.Region{Start: 200, End: 300},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rw := NewRewriter()
			got := rw.Rewrite(tc.input)
			filter, ok := got.(*RegionFilter)
			if !ok {
				t.Fatalf("Rewrite(%s) = %s, want RegionFilter", tc.input, got)
			}
			if filter.Region != tc.want {
				t.Errorf("Wrong region: got %v, want %v", filter.Region, tc.want)
			}
			if filter.Input == nil {
				t.Error("RegionFilter lost its input predicate")
			}
		})
	}
}

func TestRewrite_UnrecognizedShapes(t *testing.T) {
	testCases := []struct {
		name  string
		input Expr
	}{
		{"disjunction of chromosomes", or(eq(Col("chrom"), Str("1")), eq(Col("chrom"), Str("2")))},
		{"different column equality", eq(Col("sample"), Str("NA12878"))},
		{"column compared to column", eq(Col("chrom"), Col("other"))},
		{"integer chromosome literal", eq(Col("chrom"), Int(1))},
		{"between on other column", between("qual", 10, 20)},
		{"negated between", &Between{Expr: Col("pos"), Low: Int(1), High: Int(10), Negated: true}},
		{"two lower bounds", and(cmp(GtEq, Col("pos"), Int(100)), cmp(GtEq, Col("pos"), Int(200)))},
		{"single bound", cmp(GtEq, Col("pos"), Int(100))},
		{"inverted interval", between("pos", 200, 100)},
		{"conflicting chromosomes", and(eq(Col("chrom"), Str("1")), eq(Col("chrom"), Str("2")))},
		{
			"disjoint intervals",
			and(between("pos", 100, 200), between("pos", 300, 400)),
		},
		{
			"conflicting chromosomes with intervals",
			and(
				and(eq(Col("chrom"), Str("1")), between("pos", 100, 200)),
				eq(Col("chrom"), Str("2")),
			),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rw := NewRewriter()
			if got := rw.Rewrite(tc.input); got != tc.input {
				t.Errorf("Rewrite(%s) = %s, want unchanged input", tc.input, got)
			}
		})
	}
}

func TestRewrite_Idempotent(t *testing.T) {
	testCases := []struct {
		name  string
		input Expr
	}{
		{"full region predicate", and(eq(Col("chrom"), Str("1")), between("pos", 100, 200))},
		{"chromosome only", eq(Col("chrom"), Str("20"))},
		{"unrecognized predicate", or(eq(Col("chrom"), Str("1")), eq(Col("chrom"), Str("2")))},
		{"mixed tree", and(eq(Col("chrom"), Str("1")), eq(Col("sample"), Str("NA12878")))},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rw := NewRewriter()
			once := rw.Rewrite(tc.input)
			twice := rw.Rewrite(once)
			if twice != once {
				t.Errorf("Rewrite is not idempotent: %s != %s", twice, once)
			}
		})
	}
}

func TestRewrite_CustomColumnNames(t *testing.T) {
	rw := &Rewriter{ChromColumn: "contig", PosColumn: "position"}
	got := rw.Rewrite(and(eq(Col("contig"), Str("7")), between("position", 10, 20)))
	filter, ok := got.(*RegionFilter)
	if !ok {
		t.Fatalf("Rewrite() = %s, want RegionFilter", got)
	}
	if want := (genomics.Region{Name: "7", Start: 10, End: 20}); filter.Region != want {
		t.Errorf("Wrong region: got %v, want %v", filter.Region, want)
	}
	if got := rw.Rewrite(eq(Col("chrom"), Str("1"))); got != nil {
		if _, ok := got.(*RegionFilter); ok {
			t.Errorf("Default column name unexpectedly recognized: %s", got)
		}
	}
}

func TestRewrite_PartialTree(t *testing.T) {
	// Only the chrom conjunct is recognized; the tree is rebuilt around it
	// and the other predicate survives untouched.
	other := eq(Col("sample"), Str("NA12878"))
	input := and(eq(Col("chrom"), Str("1")), other)

	got := NewRewriter().Rewrite(input)
	b, ok := got.(*Binary)
	if !ok || b.Op != And {
		t.Fatalf("Rewrite() = %s, want AND node", got)
	}
	if _, ok := b.Left.(*RegionFilter); !ok {
		t.Errorf("Left conjunct = %s, want RegionFilter", b.Left)
	}
	if b.Right != other {
		t.Errorf("Right conjunct = %s, want original predicate", b.Right)
	}
}

func TestExtractRegion(t *testing.T) {
	rw := NewRewriter()

	full := rw.Rewrite(and(eq(Col("chrom"), Str("1")), between("pos", 100, 200)))
	if region, ok := ExtractRegion(full); !ok || region != (genomics.Region{Name: "1", Start: 100, End: 200}) {
		t.Errorf("ExtractRegion() = %v, %t, want region 1:100-200", region, ok)
	}

	mixed := rw.Rewrite(and(eq(Col("chrom"), Str("1")), eq(Col("sample"), Str("NA12878"))))
	if region, ok := ExtractRegion(mixed); !ok || region != (genomics.Region{Name: "1"}) {
		t.Errorf("ExtractRegion() = %v, %t, want region 1", region, ok)
	}

	if _, ok := ExtractRegion(eq(Col("sample"), Str("NA12878"))); ok {
		t.Error("ExtractRegion() unexpectedly succeeded without a region filter")
	}
}
