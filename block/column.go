// Copyright 2024 The vecsort Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

// Package block implements the column-major data model shared by the
// whole sort pipeline: Block, Column, SortKey and SortDescription, and
// the comparator that powers partial sort, the pruning heap and the
// merge heap alike.
package block

import "golang.org/x/exp/constraints"

// Column is one type-erased column of a Block. The sort core never
// inspects a column's concrete element type; it only moves rows between
// columns and compares values through CompareValue.
type Column interface {
	// Len returns the number of rows currently stored.
	Len() int

	// ByteSize estimates the column's resident size in bytes, used to
	// drive RunBuffer's byte threshold.
	ByteSize() int64

	// IsNull reports whether row i holds a SQL NULL.
	IsNull(i int) bool

	// CompareValue compares non-null row i of c against non-null row j
	// of other, which must share c's concrete type. The result follows
	// the usual three-way convention: <0, 0, >0.
	CompareValue(i int, other Column, j int) int

	// NewEmpty returns a zero-length column of the same concrete type,
	// used as scratch storage when permuting or merging.
	NewEmpty() Column

	// Gather replaces c's contents with len(indices) rows taken from
	// src at the given row indices, in order.
	Gather(src Column, indices []int)

	// AppendAll appends every row of src to c, in order.
	AppendAll(src Column)

	// AppendFrom appends the selected rows of src to c, in order.
	AppendFrom(src Column, rows []int)

	// Slice returns a zero-copy view of length rows starting at offset.
	Slice(offset, length int) Column

	// Swap exchanges c's underlying storage with other's. Both columns
	// must share the same concrete type.
	Swap(other Column)
}

// OrderedColumn is a generic Column over any constraints.Ordered type
// (integers, floats, strings). It is the only concrete column
// implementation this package ships; a real query engine would plug in
// one column type per physical storage format, but the sort core is
// indifferent to that choice.
type OrderedColumn[T constraints.Ordered] struct {
	values []T
	nulls  []bool
}

// NewOrderedColumn builds a column from parallel value/null slices.
// nulls may be nil, meaning no row is null.
func NewOrderedColumn[T constraints.Ordered](values []T, nulls []bool) *OrderedColumn[T] {
	return &OrderedColumn[T]{values: values, nulls: nulls}
}

func (c *OrderedColumn[T]) Len() int { return len(c.values) }

func (c *OrderedColumn[T]) ByteSize() int64 {
	var zero T
	return int64(len(c.values))*int64(sizeOf(zero)) + int64(len(c.nulls))
}

func (c *OrderedColumn[T]) IsNull(i int) bool {
	return c.nulls != nil && c.nulls[i]
}

func (c *OrderedColumn[T]) CompareValue(i int, other Column, j int) int {
	o := other.(*OrderedColumn[T])
	a, b := c.values[i], o.values[j]
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (c *OrderedColumn[T]) NewEmpty() Column {
	return &OrderedColumn[T]{}
}

func (c *OrderedColumn[T]) Gather(src Column, indices []int) {
	s := src.(*OrderedColumn[T])
	values := make([]T, len(indices))
	var nulls []bool
	if s.nulls != nil {
		nulls = make([]bool, len(indices))
	}
	for k, idx := range indices {
		values[k] = s.values[idx]
		if nulls != nil {
			nulls[k] = s.nulls[idx]
		}
	}
	c.values, c.nulls = values, nulls
}

func (c *OrderedColumn[T]) AppendAll(src Column) {
	s := src.(*OrderedColumn[T])
	c.appendRows(s, allIndices(s.Len()))
}

func (c *OrderedColumn[T]) AppendFrom(src Column, rows []int) {
	c.appendRows(src.(*OrderedColumn[T]), rows)
}

func (c *OrderedColumn[T]) appendRows(s *OrderedColumn[T], rows []int) {
	if s.nulls != nil && c.nulls == nil {
		c.nulls = make([]bool, len(c.values))
	}
	for _, idx := range rows {
		c.values = append(c.values, s.values[idx])
		if c.nulls != nil {
			var null bool
			if s.nulls != nil {
				null = s.nulls[idx]
			}
			c.nulls = append(c.nulls, null)
		}
	}
}

func (c *OrderedColumn[T]) Slice(offset, length int) Column {
	out := &OrderedColumn[T]{values: c.values[offset : offset+length]}
	if c.nulls != nil {
		out.nulls = c.nulls[offset : offset+length]
	}
	return out
}

func (c *OrderedColumn[T]) Swap(other Column) {
	o := other.(*OrderedColumn[T])
	c.values, o.values = o.values, c.values
	c.nulls, o.nulls = o.nulls, c.nulls
}

// Value returns the value stored at row i. Callers must check IsNull
// first; the value of a null row is unspecified.
func (c *OrderedColumn[T]) Value(i int) T { return c.values[i] }

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func sizeOf(v any) int {
	switch v.(type) {
	case int64, float64:
		return 8
	case int32, float32:
		return 4
	case string:
		return 16 // header only; the backing bytes are not double-counted here
	default:
		return 8
	}
}
