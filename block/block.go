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

package block

// Block is a contiguous column-major chunk of rows sharing one schema.
// It supports zero-copy column sharing (Slice), row slicing, and a swap
// operation used to hand the contents to a caller without copying.
type Block struct {
	cols []Column
	rows int
}

// NewBlock wraps cols into a Block. All columns must have equal length.
func NewBlock(cols []Column) *Block {
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	return &Block{cols: cols, rows: rows}
}

// NumColumns returns the column count.
func (b *Block) NumColumns() int { return len(b.cols) }

// NumRows returns the row count.
func (b *Block) NumRows() int { return b.rows }

// Column returns the i-th column.
func (b *Block) Column(i int) Column { return b.cols[i] }

// ByteSize sums the byte size of every column.
func (b *Block) ByteSize() int64 {
	var total int64
	for _, c := range b.cols {
		total += c.ByteSize()
	}
	return total
}

// Slice returns a zero-copy row range [offset:offset+length) of b.
func (b *Block) Slice(offset, length int) *Block {
	out := make([]Column, len(b.cols))
	for i, c := range b.cols {
		out[i] = c.Slice(offset, length)
	}
	return &Block{cols: out, rows: length}
}

// Swap exchanges b's column storage with other's.
func (b *Block) Swap(other *Block) {
	b.cols, other.cols = other.cols, b.cols
	b.rows, other.rows = other.rows, b.rows
}

// AppendRowFrom appends a single row taken from src at row index row to
// every column of b, column-wise ("insert_from" in the merge reader).
func (b *Block) AppendRowFrom(src *Block, row int) {
	idx := [1]int{row}
	for i, c := range b.cols {
		c.AppendFrom(src.cols[i], idx[:])
	}
	b.rows++
}

// AppendAll appends every row of src to b, column-wise.
func (b *Block) AppendAll(src *Block) {
	for i, c := range b.cols {
		c.AppendAll(src.cols[i])
	}
	b.rows += src.rows
}

// Permute reorders every column of b according to perm, so that the new
// row i is the old row perm[i]. All columns are permuted, not only key
// columns, per the partial-sort contract.
func (b *Block) Permute(perm []int) {
	for idx, c := range b.cols {
		tmp := c.NewEmpty()
		tmp.Gather(c, perm)
		c.Swap(tmp)
		b.cols[idx] = c
	}
}
