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
	"errors"
	"testing"

	. "github.com/pingcap/check"
	"github.com/opentracing/opentracing-go"

	"github.com/colexec/vecsort/block"
	"github.com/colexec/vecsort/sorterrors"
)

func TestT(t *testing.T) {
	TestingT(t)
}

var _ = Suite(&operatorTestSuite{})

type operatorTestSuite struct{}

// fakeUpstream replays a fixed list of blocks, one per Next call.
type fakeUpstream struct {
	blocks []*block.Block
	idx    int
	schema []block.Column
	closed bool

	cancelAfter int // cancel runtime once idx reaches this value; 0 disables
	runtime     *fakeRuntime
}

func (u *fakeUpstream) Next(ctx context.Context) (*block.Block, bool, error) {
	if u.idx >= len(u.blocks) {
		return nil, true, nil
	}
	blk := u.blocks[u.idx]
	u.idx++
	if u.cancelAfter > 0 && u.idx >= u.cancelAfter && u.runtime != nil {
		u.runtime.cancelled = true
	}
	return blk, u.idx >= len(u.blocks), nil
}

func (u *fakeUpstream) RowDescriptor() []block.Column { return u.schema }
func (u *fakeUpstream) Close() error                  { u.closed = true; return nil }

// fakeProjector treats every column of the upstream schema as a sort key
// column, in order — no reduction, no expression evaluation.
type fakeProjector struct{}

func (fakeProjector) NeedMaterializeTuple() bool { return false }

func (fakeProjector) Project(blk *block.Block) ([]block.Column, error) {
	cols := make([]block.Column, blk.NumColumns())
	for i := range cols {
		cols[i] = blk.Column(i)
	}
	return cols, nil
}

type fakeRuntime struct {
	batchSize int
	cancelled bool
}

func (r *fakeRuntime) BatchSize() int                            { return r.batchSize }
func (r *fakeRuntime) IsCancelled() bool                         { return r.cancelled }
func (r *fakeRuntime) CheckQueryState(ctx context.Context) error { return nil }
func (r *fakeRuntime) GetTracer() opentracing.Tracer             { return nil }

type fakeMemTracker struct{ consumed int64 }

func (t *fakeMemTracker) Consume(b int64)      { t.consumed += b }
func (t *fakeMemTracker) Release(b int64)      { t.consumed -= b }
func (t *fakeMemTracker) BytesConsumed() int64 { return t.consumed }

type cellVal struct {
	val  int64
	null bool
}

func rowOfInts(vals ...int64) []cellVal {
	row := make([]cellVal, len(vals))
	for i, v := range vals {
		row[i] = cellVal{val: v}
	}
	return row
}

func extractRows(blk *block.Block) [][]cellVal {
	rows := make([][]cellVal, blk.NumRows())
	for r := 0; r < blk.NumRows(); r++ {
		row := make([]cellVal, blk.NumColumns())
		for ci := 0; ci < blk.NumColumns(); ci++ {
			col := blk.Column(ci).(*block.OrderedColumn[int64])
			row[ci] = cellVal{val: col.Value(r), null: col.IsNull(r)}
		}
		rows[r] = row
	}
	return rows
}

func drain(op *Operator, ctx context.Context) ([][]cellVal, error) {
	var out [][]cellVal
	for {
		blk, eos, err := op.Next(ctx)
		if err != nil {
			return out, err
		}
		if blk != nil {
			out = append(out, extractRows(blk)...)
		}
		if eos {
			break
		}
	}
	return out, nil
}

func singleColBlock(values ...int64) *block.Block {
	col := block.NewOrderedColumn(append([]int64(nil), values...), nil)
	return block.NewBlock([]block.Column{col})
}

func singleColBlockWithNulls(values []int64, nulls []bool) *block.Block {
	col := block.NewOrderedColumn(append([]int64(nil), values...), append([]bool(nil), nulls...))
	return block.NewBlock([]block.Column{col})
}

func twoColBlock(a, b []int64) *block.Block {
	ca := block.NewOrderedColumn(append([]int64(nil), a...), nil)
	cb := block.NewOrderedColumn(append([]int64(nil), b...), nil)
	return block.NewBlock([]block.Column{ca, cb})
}

func runOperator(c *C, cfg Config, desc block.SortDescription, blocks []*block.Block) ([][]cellVal, error) {
	schema := make([]block.Column, blocks[0].NumColumns())
	for i := range schema {
		schema[i] = blocks[0].Column(i).NewEmpty()
	}
	up := &fakeUpstream{blocks: blocks, schema: schema}
	rt := &fakeRuntime{batchSize: 1024}
	up.runtime = rt
	mt := &fakeMemTracker{}

	op := New(cfg, desc, up, fakeProjector{}, rt, mt)
	ctx := context.Background()
	err := op.Open(ctx)
	c.Assert(err, IsNil)
	c.Assert(up.closed, Equals, true)

	return drain(op, ctx)
}

// Scenario 1: plain ascending sort, two buffered blocks merge into one run.
func (s *operatorTestSuite) TestPlainAscendingSort(c *C) {
	cfg := DefaultConfig()
	desc := block.SortDescription{{ColumnIndex: 0, Direction: block.Ascending, NullsFirst: false}}
	rows, err := runOperator(c, cfg, desc, []*block.Block{singleColBlock(3, 1, 2), singleColBlock(5, 4)})
	c.Assert(err, IsNil)
	want := [][]cellVal{rowOfInts(1), rowOfInts(2), rowOfInts(3), rowOfInts(4), rowOfInts(5)}
	c.Assert(rows, DeepEquals, want)
}

// Scenario 2: descending order with nulls first.
func (s *operatorTestSuite) TestDescendingNullsFirst(c *C) {
	cfg := DefaultConfig()
	desc := block.SortDescription{{ColumnIndex: 0, Direction: block.Descending, NullsFirst: true}}
	blocks := []*block.Block{
		singleColBlockWithNulls([]int64{0, 1}, []bool{true, false}),
		singleColBlockWithNulls([]int64{2, 0}, []bool{false, true}),
	}
	rows, err := runOperator(c, cfg, desc, blocks)
	c.Assert(err, IsNil)
	c.Assert(len(rows), Equals, 4)
	c.Assert(rows[0][0].null, Equals, true)
	c.Assert(rows[1][0].null, Equals, true)
	c.Assert(rows[2][0].null, Equals, false)
	c.Assert(rows[2][0].val, Equals, int64(2))
	c.Assert(rows[3][0].null, Equals, false)
	c.Assert(rows[3][0].val, Equals, int64(1))
}

// Scenario 3: multi-key tie-break, col0 asc nulls_last then col1 desc nulls_last.
func (s *operatorTestSuite) TestMultiKeyTieBreak(c *C) {
	cfg := DefaultConfig()
	desc := block.SortDescription{
		{ColumnIndex: 0, Direction: block.Ascending, NullsFirst: false},
		{ColumnIndex: 1, Direction: block.Descending, NullsFirst: false},
	}
	blocks := []*block.Block{
		twoColBlock([]int64{1, 1}, []int64{9, 7}),
		twoColBlock([]int64{1, 2}, []int64{8, 0}),
	}
	rows, err := runOperator(c, cfg, desc, blocks)
	c.Assert(err, IsNil)
	want := [][]cellVal{
		rowOfInts(1, 9),
		rowOfInts(1, 8),
		rowOfInts(1, 7),
		rowOfInts(2, 0),
	}
	c.Assert(rows, DeepEquals, want)
}

// Scenario 4: offset+limit truncation on the single-run fast path.
func (s *operatorTestSuite) TestOffsetAndLimit(c *C) {
	cfg := DefaultConfig()
	cfg.Offset = 2
	cfg.Limit = 2
	desc := block.SortDescription{{ColumnIndex: 0, Direction: block.Ascending, NullsFirst: false}}
	rows, err := runOperator(c, cfg, desc, []*block.Block{singleColBlock(5, 4, 3, 2, 1)})
	c.Assert(err, IsNil)
	want := [][]cellVal{rowOfInts(3), rowOfInts(4)}
	c.Assert(rows, DeepEquals, want)
}

// Scenario 5: top-N pruning discards a run every one of whose rows is
// dominated by the current pruning-heap top. Runs 1 and 2 fall below
// the offset+limit row-count threshold and are admitted unconditionally
// (pruning heap top ends at 300, run2's last row); run3's smallest row
// (400) dominates that top and the whole run is discarded (spec.md
// §4.5, §8 scenario 5).
func (s *operatorTestSuite) TestTopNPruningDiscardsDominatedRun(c *C) {
	cfg := DefaultConfig()
	cfg.Limit = 5
	cfg.RunRowThreshold = 1 // flush a run per upstream block

	desc := block.SortDescription{{ColumnIndex: 0, Direction: block.Ascending, NullsFirst: false}}
	rows, err := runOperator(c, cfg, desc, []*block.Block{
		singleColBlock(1, 2),
		singleColBlock(3, 4, 5, 300),
		singleColBlock(400, 500),
	})
	c.Assert(err, IsNil)
	want := [][]cellVal{rowOfInts(1), rowOfInts(2), rowOfInts(3), rowOfInts(4), rowOfInts(5)}
	c.Assert(rows, DeepEquals, want)
}

// Scenario 6: the first run is built successfully (Open succeeds), then
// cancellation is observed on the next drain checkpoint: Next returns a
// cancellation error and Close releases state without panic.
func (s *operatorTestSuite) TestCancellationDuringDrain(c *C) {
	cfg := DefaultConfig()
	desc := block.SortDescription{{ColumnIndex: 0, Direction: block.Ascending, NullsFirst: false}}

	blocks := []*block.Block{singleColBlock(1, 2)}
	schema := []block.Column{blocks[0].Column(0).NewEmpty()}
	rt := &fakeRuntime{batchSize: 16}
	up := &fakeUpstream{blocks: blocks, schema: schema, runtime: rt}
	mt := &fakeMemTracker{}

	op := New(cfg, desc, up, fakeProjector{}, rt, mt)
	err := op.Open(context.Background())
	c.Assert(err, IsNil)

	rt.cancelled = true
	_, _, nextErr := op.Next(context.Background())
	c.Assert(nextErr, NotNil)
	c.Assert(errors.Is(nextErr, sorterrors.ErrCancelled), Equals, true)

	closeErr := op.Close()
	c.Assert(closeErr, IsNil)
}

// LIMIT 0 is a legal top-N query: nothing can ever be kept, so every run
// must be sorted trivially (identity) and discarded outright rather than
// indexing an empty bounded-heap head or an empty pruning heap.
func (s *operatorTestSuite) TestLimitZeroDiscardsEveryRun(c *C) {
	cfg := DefaultConfig()
	cfg.Limit = 0
	cfg.RunRowThreshold = 1 // flush a run per upstream block

	desc := block.SortDescription{{ColumnIndex: 0, Direction: block.Ascending, NullsFirst: false}}
	rows, err := runOperator(c, cfg, desc, []*block.Block{
		singleColBlock(3, 1, 2),
		singleColBlock(5),
	})
	c.Assert(err, IsNil)
	c.Assert(rows, HasLen, 0)
}

func (s *operatorTestSuite) TestRunSetDiscardedCount(c *C) {
	desc := block.SortDescription{{ColumnIndex: 0, Direction: block.Ascending, NullsFirst: false}}
	rs := NewRunSet(desc, 5)

	admitRun := func(values ...int64) bool {
		blk := singleColBlock(values...)
		run := &block.Run{Block: blk, Keys: []block.Column{blk.Column(0)}}
		return rs.Admit(run)
	}

	c.Assert(admitRun(1, 2), Equals, true)
	c.Assert(admitRun(3, 4, 5, 300), Equals, true)
	c.Assert(rs.DiscardedCount(), Equals, 0)

	c.Assert(admitRun(400, 500), Equals, false)
	c.Assert(rs.DiscardedCount(), Equals, 1)

	c.Assert(admitRun(1000), Equals, false)
	c.Assert(rs.DiscardedCount(), Equals, 2)
}

func (s *operatorTestSuite) TestRunSetLimitZeroAlwaysDiscards(c *C) {
	desc := block.SortDescription{{ColumnIndex: 0, Direction: block.Ascending, NullsFirst: false}}
	rs := NewRunSet(desc, 0)

	blk := singleColBlock(1)
	run := &block.Run{Block: blk, Keys: []block.Column{blk.Column(0)}}
	c.Assert(rs.Admit(run), Equals, false)
	c.Assert(rs.DiscardedCount(), Equals, 1)
	c.Assert(rs.Len(), Equals, 0)
}

func (s *operatorTestSuite) TestMergeReaderExhausted(c *C) {
	desc := block.SortDescription{{ColumnIndex: 0, Direction: block.Ascending, NullsFirst: false}}
	runA := &block.Run{Block: singleColBlock(1, 3)}
	runA.Keys = []block.Column{runA.Block.Column(0)}
	runB := &block.Run{Block: singleColBlock(2, 4)}
	runB.Keys = []block.Column{runB.Block.Column(0)}

	merger := NewMergeReader([]*block.Run{runA, runB}, desc, 0)
	c.Assert(merger.Exhausted(), Equals, false)

	out, eos := merger.EmitBatch(4)
	c.Assert(eos, Equals, false)
	c.Assert(out.NumRows(), Equals, 4)
	c.Assert(merger.Exhausted(), Equals, true)

	out, eos = merger.EmitBatch(4)
	c.Assert(eos, Equals, true)
	c.Assert(out, IsNil)
}
