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
	"golang.org/x/exp/slices"

	"github.com/SnellerInc/sneller/heap"

	"github.com/colexec/vecsort/block"
)

// PartialSorter sorts one run in place under a SortDescription.
type PartialSorter struct{}

// Sort permutes run's Block and Keys into sorted order. When limitHint
// is non-negative (top-N mode only) the implementation may leave rows
// at indices >= limitHint unordered among themselves — the Block still
// retains every row, and every such row sorts at or after the first
// limitHint rows, which is all the pruning heap (row 0 and the last row)
// and the merge need.
func (PartialSorter) Sort(run *block.Run, desc block.SortDescription, limitHint int) {
	n := run.NumRows()
	if n <= 1 {
		return
	}
	perm := sortPermutation(run.Keys, desc, n, limitHint)
	run.Permute(perm)
}

// sortPermutation returns, for each output position, the input row
// index that should land there. With no limitHint (or one covering the
// whole run) it is a plain index sort via golang.org/x/exp/slices. With
// a limitHint smaller than n it instead keeps only the limitHint
// smallest rows (by desc) meaningfully ordered, using a bounded max-heap
// exactly like the teacher's TopNExec.processChildChk — but scoped to a
// single run instead of the whole operator.
func sortPermutation(keys []block.Column, desc block.SortDescription, n int, limitHint int) []int {
	less := func(a, b int) bool { return block.CompareRows(desc, keys, a, keys, b) < 0 }

	if limitHint < 0 || limitHint >= n {
		perm := identityPerm(n)
		slices.SortFunc(perm, less)
		return perm
	}

	// limitHint == 0 means a LIMIT 0 query: nothing can ever be kept, so
	// there is no head row to compare against and no ordering to do.
	if limitHint == 0 {
		return identityPerm(n)
	}

	greater := func(a, b int) bool { return block.CompareRows(desc, keys, a, keys, b) > 0 }

	head := make([]int, limitHint)
	copy(head, identityPerm(limitHint))
	heap.OrderSlice(head, greater)

	kept := make([]bool, n)
	for _, idx := range head {
		kept[idx] = true
	}

	for idx := limitHint; idx < n; idx++ {
		if greater(head[0], idx) {
			kept[head[0]] = false
			head[0] = idx
			kept[idx] = true
			heap.FixSlice(head, 0, greater)
		}
	}

	sortedHead := make([]int, limitHint)
	scratch := append([]int(nil), head...)
	for i := limitHint - 1; i >= 0; i-- {
		sortedHead[i] = heap.PopSlice(&scratch, greater)
	}

	perm := make([]int, 0, n)
	perm = append(perm, sortedHead...)
	for idx := 0; idx < n; idx++ {
		if !kept[idx] {
			perm = append(perm, idx)
		}
	}
	return perm
}

func identityPerm(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return perm
}
