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

// Package runbuffer accumulates upstream blocks into a mutable column
// store until a run threshold is reached, mirroring the teacher's
// chunk.RowContainer accumulation step minus its disk-spill path (out
// of scope per spec.md's Non-goals).
package runbuffer

import "github.com/colexec/vecsort/block"

// Default thresholds per spec.md §4.3.
const (
	DefaultRunRowThreshold  = 1024 * 1024
	DefaultRunByteThreshold = 64 * 1024 * 1024
)

// RunBuffer is a mutable column store with the schema of the upstream
// row descriptor. The Operator owns exactly one RunBuffer at a time.
type RunBuffer struct {
	cols []block.Column
	rows int
}

// New builds an empty RunBuffer whose columns are fresh instances of
// the same concrete type as each entry of schema.
func New(schema []block.Column) *RunBuffer {
	cols := make([]block.Column, len(schema))
	for i, c := range schema {
		cols[i] = c.NewEmpty()
	}
	return &RunBuffer{cols: cols}
}

// Append column-wise appends every row of blk to the buffer.
func (b *RunBuffer) Append(blk *block.Block) {
	for i, c := range b.cols {
		c.AppendAll(blk.Column(i))
	}
	b.rows += blk.NumRows()
}

// RowCount returns the number of rows currently buffered.
func (b *RunBuffer) RowCount() int { return b.rows }

// ByteSize estimates the buffer's resident size in bytes.
func (b *RunBuffer) ByteSize() int64 {
	var total int64
	for _, c := range b.cols {
		total += c.ByteSize()
	}
	return total
}

// Extract moves the buffer's contents out as an immutable Block and
// resets the buffer to empty, ready to accumulate the next run.
func (b *RunBuffer) Extract() *block.Block {
	out := block.NewBlock(b.cols)
	fresh := make([]block.Column, len(b.cols))
	for i, c := range b.cols {
		fresh[i] = c.NewEmpty()
	}
	b.cols = fresh
	b.rows = 0
	return out
}
