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

// Package cursor implements BlockCursor, a position inside one sorted
// Run plus the forward and reverse comparators used by the merge
// reader's min-heap and the run set's pruning max-heap respectively.
package cursor

import "github.com/colexec/vecsort/block"

// BlockCursor tracks a position inside one Run. pos advances
// monotonically during a merge; it never wraps or resets.
type BlockCursor struct {
	run  *block.Run
	pos  int
	desc block.SortDescription
}

// New returns a cursor for run positioned at row 0.
func New(run *block.Run, desc block.SortDescription) *BlockCursor {
	return &BlockCursor{run: run, pos: 0, desc: desc}
}

// NewAt returns a cursor for run positioned at row pos.
func NewAt(run *block.Run, desc block.SortDescription, pos int) *BlockCursor {
	return &BlockCursor{run: run, pos: pos, desc: desc}
}

// Block returns the Run's underlying Block, for copying the current row
// into a downstream output block.
func (c *BlockCursor) Block() *block.Block { return c.run.Block }

// Pos returns the cursor's current row index.
func (c *BlockCursor) Pos() int { return c.pos }

// RowCount returns the number of rows in the underlying run.
func (c *BlockCursor) RowCount() int { return c.run.NumRows() }

// IsLast reports whether the cursor sits on the run's final row.
func (c *BlockCursor) IsLast() bool { return c.pos == c.run.NumRows()-1 }

// Next advances the cursor by one row. Callers must not call Next past
// IsLast.
func (c *BlockCursor) Next() { c.pos++ }

// CurrentLess reports whether c's current row sorts strictly before
// other's current row, under the forward SortDescription order.
func (c *BlockCursor) CurrentLess(other *BlockCursor) bool {
	return compare(c, other) < 0
}

// CurrentGreaterOrEqualAll reports whether c's current row already
// exceeds (or equals) every row other could still contribute. It is
// used by RunSet's admission check with c positioned at a candidate
// run's first (smallest) row and other positioned at the pruning heap
// top's last (largest) row: a true result means every row of c's run
// dominates the current top-K candidate set and the whole run can be
// discarded.
func (c *BlockCursor) CurrentGreaterOrEqualAll(other *BlockCursor) bool {
	return compare(c, other) >= 0
}

func compare(a, b *BlockCursor) int {
	return block.CompareRows(a.desc, a.run.Keys, a.pos, b.run.Keys, b.pos)
}

// Forward is the `less` function for MergeReader's min-heap: a sorts
// before b under the forward SortDescription order.
func Forward(a, b *BlockCursor) bool {
	return compare(a, b) < 0
}

// Reverse is the `less` function for RunSet's pruning max-heap. Feeding
// this to a min-heap implementation makes its "smallest" element the
// cursor with the numerically greatest row, i.e. the heap top is always
// the current largest admitted last-row value.
func Reverse(a, b *BlockCursor) bool {
	return compare(a, b) > 0
}
