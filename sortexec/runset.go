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

// RunSet holds the ordered list of admitted sorted runs, plus — in
// top-N mode — a max-heap of per-run cursors used to discard runs that
// cannot contribute to the final top-K (spec.md §4.5).
type RunSet struct {
	desc      block.SortDescription
	limitHint int // -1 in plain-sort mode

	runs        []*block.Run
	totalRows   int
	pruningHeap []*cursor.BlockCursor // positioned at each admitted run's last row
	discarded   int
}

// NewRunSet creates an empty RunSet. limitHint is offset+limit in top-N
// mode, or -1 to disable pruning entirely.
func NewRunSet(desc block.SortDescription, limitHint int) *RunSet {
	return &RunSet{desc: desc, limitHint: limitHint}
}

// Len returns the number of currently admitted runs.
func (rs *RunSet) Len() int { return len(rs.runs) }

// Runs returns the admitted runs in admission order.
func (rs *RunSet) Runs() []*block.Run { return rs.runs }

// DiscardedCount returns how many runs were pruned without ever being
// admitted, for diagnostics/logging.
func (rs *RunSet) DiscardedCount() int { return rs.discarded }

// Admit applies the run-set admission rule (spec.md §4.5) to run, which
// must already be sorted under rs.desc. It returns false when run was
// discarded instead of admitted.
func (rs *RunSet) Admit(run *block.Run) bool {
	if rs.limitHint < 0 {
		rs.appendRun(run)
		return true
	}

	if rs.totalRows < rs.limitHint {
		rs.appendRun(run)
		rs.pushCursor(run)
		return true
	}

	// limitHint == 0 reaches here on the very first run (0 < 0 is
	// false) with nothing ever pushed onto pruningHeap: a 0-row top-K
	// can never be contributed to, so every run is discarded.
	if len(rs.pruningHeap) == 0 {
		rs.discarded++
		return false
	}

	first := cursor.New(run, rs.desc)
	top := rs.pruningHeap[0]
	if first.CurrentGreaterOrEqualAll(top) {
		rs.discarded++
		return false
	}

	rs.appendRun(run)
	rs.pushCursor(run)
	return true
}

func (rs *RunSet) appendRun(run *block.Run) {
	rs.runs = append(rs.runs, run)
	rs.totalRows += run.NumRows()
}

func (rs *RunSet) pushCursor(run *block.Run) {
	lastRow := run.NumRows() - 1
	c := cursor.NewAt(run, rs.desc, lastRow)
	heap.PushSlice(&rs.pruningHeap, c, cursor.Reverse)
}
