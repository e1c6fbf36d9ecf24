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
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/colexec/vecsort/block"
	"github.com/colexec/vecsort/logutil"
	"github.com/colexec/vecsort/runbuffer"
	"github.com/colexec/vecsort/sorterrors"
)

// state is the operator's lifecycle state (spec.md §4.7).
type state int

const (
	stateInit state = iota
	stateOpen
	stateBuilding
	stateMergedReady
	stateSingleRunReady
	stateDraining
	stateEOS
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "INIT"
	case stateOpen:
		return "OPEN"
	case stateBuilding:
		return "BUILDING"
	case stateMergedReady:
		return "MERGED_READY"
	case stateSingleRunReady:
		return "SINGLE_RUN_READY"
	case stateDraining:
		return "DRAINING"
	case stateEOS:
		return "EOS"
	case stateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Operator is the vectorized sort operator: it drains Upstream into
// bounded runs, partial-sorts each run, admits it into a RunSet (with
// top-N pruning when configured), and on drain either delivers the
// lone surviving run directly or k-way merges the survivors through a
// MergeReader. Adapted from the teacher's executor.SortExec /
// executor.TopNExec (executor/sort.go) state machine.
type Operator struct {
	id uuid.UUID

	cfg        Config
	desc       block.SortDescription
	upstream   Upstream
	projector  KeyProjector
	runtime    RuntimeState
	memTracker MemTracker

	st state

	buf    *runbuffer.RunBuffer
	runSet *RunSet

	singleRun   *block.Run
	singleRunAt int
	merger      *MergeReader

	skipRemaining int // offset not yet satisfied, cleared by Reset
	emitted       int
}

// New constructs an Operator. desc must name valid key-column indices
// once projector materializes them.
func New(cfg Config, desc block.SortDescription, upstream Upstream, projector KeyProjector, runtime RuntimeState, memTracker MemTracker) *Operator {
	return &Operator{
		id:            uuid.New(),
		cfg:           cfg,
		desc:          desc,
		upstream:      upstream,
		projector:     projector,
		runtime:       runtime,
		memTracker:    memTracker,
		st:            stateInit,
		skipRemaining: cfg.Offset,
	}
}

// String implements fmt.Stringer for logging.
func (op *Operator) String() string {
	return fmt.Sprintf("sortexec.Operator{id=%s state=%s}", op.id, op.st)
}

// Open runs the build phase to completion: drain Upstream into runs,
// partial-sort and admit each one, then close Upstream (spec.md §4.7).
func (op *Operator) Open(ctx context.Context) error {
	if op.st != stateInit {
		return sorterrors.Wrap(sorterrors.ErrInternal, fmt.Errorf("Open called in state %s", op.st))
	}
	span, ctx := startSpan(ctx, op.runtime, "sortexec.Open")
	defer span.Finish()

	op.st = stateOpen
	op.buf = runbuffer.New(op.upstream.RowDescriptor())
	op.runSet = NewRunSet(op.desc, op.cfg.LimitHint())
	op.st = stateBuilding

	if err := op.build(ctx); err != nil {
		return err
	}

	if err := op.upstream.Close(); err != nil {
		return sorterrors.Wrap(sorterrors.ErrUpstream, err)
	}

	switch op.runSet.Len() {
	case 0:
		op.st = stateEOS
	case 1:
		op.singleRun = op.runSet.Runs()[0]
		op.singleRunAt = 0
		if op.skipRemaining > 0 {
			n := op.singleRun.NumRows()
			skip := op.skipRemaining
			if skip > n {
				skip = n
			}
			op.singleRunAt = skip
			op.skipRemaining -= skip
		}
		op.st = stateSingleRunReady
	default:
		op.merger = NewMergeReader(op.runSet.Runs(), op.desc, op.skipRemaining)
		op.skipRemaining = 0
		op.st = stateMergedReady
	}
	return nil
}

// build repeatedly pulls from Upstream, materializes sort keys,
// accumulates into the RunBuffer, and flushes a run whenever a
// threshold is crossed or Upstream reaches EOS.
func (op *Operator) build(ctx context.Context) error {
	for {
		if err := op.checkCancel(ctx); err != nil {
			return err
		}

		blk, eos, err := op.upstream.Next(ctx)
		if err != nil {
			return sorterrors.Wrap(sorterrors.ErrUpstream, err)
		}
		if blk != nil && blk.NumRows() > 0 {
			op.buf.Append(blk)
			if op.memTracker != nil {
				op.memTracker.Consume(blk.ByteSize())
			}
		}

		if op.shouldFlush(eos) {
			if err := op.flushRun(ctx); err != nil {
				return err
			}
		}

		if eos {
			return nil
		}
	}
}

// shouldFlush reports whether the accumulated RunBuffer should be
// extracted into a run now: either threshold crossed, or upstream EOS
// with at least one buffered row (spec.md §4.3).
func (op *Operator) shouldFlush(upstreamEOS bool) bool {
	if op.buf.RowCount() == 0 {
		return false
	}
	if op.buf.RowCount() >= op.cfg.RunRowThreshold {
		return true
	}
	if op.cfg.RunByteThreshold > 0 && op.buf.ByteSize() >= op.cfg.RunByteThreshold {
		return true
	}
	return upstreamEOS
}

// flushRun extracts the buffer into a Block, materializes its sort-key
// columns, partial-sorts it, and admits it into the RunSet.
func (op *Operator) flushRun(ctx context.Context) error {
	if err := op.checkCancel(ctx); err != nil {
		return err
	}

	blk := op.buf.Extract()
	keys, err := op.projector.Project(blk)
	if err != nil {
		return sorterrors.Wrap(sorterrors.ErrExpression, err)
	}

	run := &block.Run{Block: blk, Keys: keys}
	var sorter PartialSorter
	sorter.Sort(run, op.desc, op.cfg.LimitHint())

	if !op.runSet.Admit(run) {
		logutil.BgLogger().Warn("sortexec: run discarded by pruning heap",
			zap.String("operator", op.id.String()),
			zap.Int("rows", run.NumRows()),
			zap.Int("total_discarded", op.runSet.DiscardedCount()))
		if op.memTracker != nil {
			op.memTracker.Release(blk.ByteSize())
		}
	}
	return nil
}

// Next delivers up to runtime.BatchSize() rows, applying the
// operator's configured limit on every delivery (spec.md §4.7).
func (op *Operator) Next(ctx context.Context) (*block.Block, bool, error) {
	if err := op.checkCancel(ctx); err != nil {
		return nil, false, err
	}

	switch op.st {
	case stateEOS:
		return nil, true, nil
	case stateSingleRunReady:
		return op.nextSingleRun(ctx)
	case stateMergedReady:
		return op.nextMerged(ctx)
	case stateDraining:
		if op.merger != nil {
			return op.nextMerged(ctx)
		}
		return op.nextSingleRun(ctx)
	default:
		return nil, false, sorterrors.Wrap(sorterrors.ErrInternal, fmt.Errorf("Next called in state %s", op.st))
	}
}

// nextSingleRun implements the fast path (spec.md §4.6): no heap, just
// a slice of the lone surviving run.
func (op *Operator) nextSingleRun(ctx context.Context) (*block.Block, bool, error) {
	op.st = stateDraining
	target := op.batchTarget()
	if target <= 0 {
		op.st = stateEOS
		return nil, true, nil
	}

	remaining := op.singleRun.NumRows() - op.singleRunAt
	if remaining <= 0 {
		op.st = stateEOS
		return nil, true, nil
	}
	n := target
	if n > remaining {
		n = remaining
	}

	out := op.singleRun.Block.Slice(op.singleRunAt, n)
	op.singleRunAt += n
	op.emitted += n

	eos := op.singleRunAt >= op.singleRun.NumRows() || op.reachedLimit()
	if eos {
		op.st = stateEOS
	}
	return out, eos, nil
}

// nextMerged delegates to the MergeReader, proactively capping the
// requested row count so cumulative emission never exceeds the
// configured limit — equivalent to, but simpler than, the teacher's
// separate reached_limit truncation wrapper.
func (op *Operator) nextMerged(ctx context.Context) (*block.Block, bool, error) {
	op.st = stateDraining
	target := op.batchTarget()
	if target <= 0 {
		op.st = stateEOS
		return nil, true, nil
	}

	if op.merger.Exhausted() {
		op.st = stateEOS
		return nil, true, nil
	}

	out, eos := op.merger.EmitBatch(target)
	if out != nil {
		op.emitted += out.NumRows()
	}
	if eos || op.reachedLimit() {
		op.st = stateEOS
		return out, true, nil
	}
	return out, false, nil
}

// batchTarget returns how many rows may still be requested this call:
// the runtime's batch size, capped by the operator's remaining limit
// budget when top-N pruning is active.
func (op *Operator) batchTarget() int {
	target := op.runtime.BatchSize()
	if op.cfg.TopN() {
		remaining := op.cfg.Limit - op.emitted
		if remaining < target {
			target = remaining
		}
	}
	return target
}

func (op *Operator) reachedLimit() bool {
	return op.cfg.TopN() && op.emitted >= op.cfg.Limit
}

// checkCancel polls the runtime's cancellation flag and fails fast
// (spec.md §4.8, §5): once per build iteration, and before Next begins
// any heap or slice work.
func (op *Operator) checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return sorterrors.Wrap(sorterrors.ErrCancelled, ctx.Err())
	default:
	}
	if op.runtime != nil {
		if op.runtime.IsCancelled() {
			return sorterrors.ErrCancelled
		}
		if err := op.runtime.CheckQueryState(ctx); err != nil {
			return sorterrors.Wrap(sorterrors.ErrCancelled, err)
		}
	}
	return nil
}

// Reset restores the skipped-row counter to the configured offset and
// zeroes the emitted count, then re-derives the single-run position or
// a fresh MergeReader from the already-built RunSet. The RunSet, its
// runs and the RunBuffer are left untouched and the build phase is not
// re-run (full teardown is Close's job, not Reset's).
func (op *Operator) Reset() error {
	op.skipRemaining = op.cfg.Offset
	op.emitted = 0

	switch {
	case op.runSet == nil:
		return nil
	case op.runSet.Len() == 1:
		op.singleRun = op.runSet.Runs()[0]
		op.singleRunAt = 0
		if op.skipRemaining > 0 {
			n := op.singleRun.NumRows()
			skip := op.skipRemaining
			if skip > n {
				skip = n
			}
			op.singleRunAt = skip
			op.skipRemaining -= skip
		}
		op.st = stateSingleRunReady
	case op.runSet.Len() > 1:
		op.merger = NewMergeReader(op.runSet.Runs(), op.desc, op.skipRemaining)
		op.skipRemaining = 0
		op.st = stateMergedReady
	default:
		op.st = stateEOS
	}
	return nil
}

// Close is idempotent: it releases the RunSet's runs and the RunBuffer
// from memory accounting, then marks the operator closed.
func (op *Operator) Close() error {
	if op.st == stateClosed {
		return nil
	}
	if op.memTracker != nil && op.runSet != nil {
		for _, run := range op.runSet.Runs() {
			op.memTracker.Release(run.Block.ByteSize())
		}
	}
	if op.memTracker != nil && op.buf != nil {
		op.memTracker.Release(op.buf.ByteSize())
	}
	op.runSet = nil
	op.singleRun = nil
	op.merger = nil
	op.buf = nil
	op.st = stateClosed
	return nil
}
