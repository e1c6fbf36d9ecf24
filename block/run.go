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

// Run is an owned, sorted Block: rows within a Run are non-decreasing
// under its SortDescription. Runs are immutable once they enter a
// RunSet. Keys holds one materialized key column per SortKey entry,
// aligned 1:1 with Block's rows — kept alongside Block (rather than
// re-derived) so BlockCursor comparisons never re-run the sort-key
// projection.
type Run struct {
	Block *Block
	Keys  []Column
}

// NumRows returns the row count of the underlying Block.
func (r *Run) NumRows() int { return r.Block.NumRows() }

// Permute reorders both Block and Keys by perm in lockstep, so the
// materialized key columns stay aligned to the rows they describe. A key
// column that is one of the Block's own columns is permuted only once,
// as part of the Block.
func (r *Run) Permute(perm []int) {
	r.Block.Permute(perm)
	for idx, k := range r.Keys {
		if r.sharesBlockColumn(k) {
			continue
		}
		tmp := k.NewEmpty()
		tmp.Gather(k, perm)
		k.Swap(tmp)
		r.Keys[idx] = k
	}
}

func (r *Run) sharesBlockColumn(k Column) bool {
	for _, c := range r.Block.cols {
		if c == k {
			return true
		}
	}
	return false
}
