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

package sortexec

import (
	"github.com/SnellerInc/sneller/heap"

	"github.com/colexec/vecsort/block"
	"github.com/colexec/vecsort/cursor"
)

// MergeReader performs the k-way merge over a RunSet's admitted runs
// (spec.md §4.6). It is only used when more than one run survives the
// build phase; the Operator's single-run fast path bypasses it.
type MergeReader struct {
	desc    block.SortDescription
	cursors []*cursor.BlockCursor // min-heap under cursor.Forward
	offset  int                   // rows still to skip before emitting
	schema  []block.Column        // empty template columns, one per output column
}

// NewMergeReader builds a cursor per non-empty run, heapifies them under
// the forward comparator, and prepares to skip offset rows before the
// first row is emitted.
func NewMergeReader(runs []*block.Run, desc block.SortDescription, offset int) *MergeReader {
	cursors := make([]*cursor.BlockCursor, 0, len(runs))
	for _, r := range runs {
		if r.NumRows() == 0 {
			continue
		}
		cursors = append(cursors, cursor.New(r, desc))
	}
	heap.OrderSlice(cursors, cursor.Forward)

	var schema []block.Column
	if len(runs) > 0 {
		blk := runs[0].Block
		schema = make([]block.Column, blk.NumColumns())
		for i := range schema {
			schema[i] = blk.Column(i).NewEmpty()
		}
	}

	return &MergeReader{desc: desc, cursors: cursors, offset: offset, schema: schema}
}

// EmitBatch pops up to target_rows rows in sorted order, skipping the
// reader's remaining offset first. It reports eos=true when no row was
// emitted and the heap ran dry, per spec.md §4.6.
func (m *MergeReader) EmitBatch(target int) (out *block.Block, eos bool) {
	out = block.NewBlock(freshColumns(m.schema))
	emitted := 0
	for len(m.cursors) > 0 && emitted < target {
		c := heap.PopSlice(&m.cursors, cursor.Forward)
		if m.offset > 0 {
			m.offset--
		} else {
			out.AppendRowFrom(c.Block(), c.Pos())
			emitted++
		}
		if !c.IsLast() {
			c.Next()
			heap.PushSlice(&m.cursors, c, cursor.Forward)
		}
	}
	if emitted == 0 {
		return nil, true
	}
	return out, false
}

// Exhausted reports whether every cursor has been fully consumed.
func (m *MergeReader) Exhausted() bool { return len(m.cursors) == 0 }

func freshColumns(schema []block.Column) []block.Column {
	out := make([]block.Column, len(schema))
	for i, c := range schema {
		out[i] = c.NewEmpty()
	}
	return out
}
