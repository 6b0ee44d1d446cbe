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

// Package query provides a boolean predicate expression tree and the rewrite
// pass that recognizes genomic region predicates for index pushdown.
package query

import (
	"fmt"

	"github.com/googlegenomics/regionscan/genomics"
)

// Expr is a node in a predicate expression tree.  Trees are immutable:
// rewrites return new nodes and never modify their inputs.
type Expr interface {
	fmt.Stringer
	isExpr()
}

// Column references a named column of the scanned file.
type Column struct {
	Name string
}

func (c *Column) isExpr()        {}
func (c *Column) String() string { return c.Name }

// Literal is a constant string or integer value.
type Literal struct {
	Value interface{}
}

func (l *Literal) isExpr() {}

func (l *Literal) String() string {
	if s, ok := l.Value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", l.Value)
}

// Op identifies a binary operator.
type Op int

// Binary operators understood by the rewriter.
const (
	Eq Op = iota
	And
	Or
	Lt
	LtEq
	Gt
	GtEq
)

func (op Op) String() string {
	switch op {
	case Eq:
		return "="
	case And:
		return "AND"
	case Or:
		return "OR"
	case Lt:
		return "<"
	case LtEq:
		return "<="
	case Gt:
		return ">"
	case GtEq:
		return ">="
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// Binary applies an operator to two subexpressions.
type Binary struct {
	Op          Op
	Left, Right Expr
}

func (b *Binary) isExpr() {}

func (b *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// Between tests whether Expr lies in the inclusive range [Low, High].
type Between struct {
	Expr      Expr
	Low, High Expr
	Negated   bool
}

func (b *Between) isExpr() {}

func (b *Between) String() string {
	not := ""
	if b.Negated {
		not = "NOT "
	}
	return fmt.Sprintf("(%s %sBETWEEN %s AND %s)", b.Expr, not, b.Low, b.High)
}

// RegionFilter is the canonical region predicate produced by the rewriter.
// It restricts rows to exactly Region and is eligible for index pushdown.
// Input preserves the predicate the filter was derived from, so evaluation
// never depends on the rewrite having happened.
type RegionFilter struct {
	Region genomics.Region
	Input  Expr
}

func (r *RegionFilter) isExpr() {}

func (r *RegionFilter) String() string {
	return fmt.Sprintf("region(%s)", r.Region)
}

// Col returns a column reference expression.
func Col(name string) *Column { return &Column{Name: name} }

// Str returns a string literal expression.
func Str(value string) *Literal { return &Literal{Value: value} }

// Int returns an integer literal expression.
func Int(value int64) *Literal { return &Literal{Value: value} }
