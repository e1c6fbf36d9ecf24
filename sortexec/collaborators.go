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

	"github.com/opentracing/opentracing-go"

	"github.com/colexec/vecsort/block"
)

// Upstream is the producer the Operator drains during the build phase
// (spec.md §6, "Upstream contract"). Next may return a non-nil empty
// block with eos=false; callers must treat that as "continue", not EOS.
type Upstream interface {
	Next(ctx context.Context) (blk *block.Block, eos bool, err error)
	// RowDescriptor returns one zero-length Column per upstream output
	// column, used to pre-size the RunBuffer.
	RowDescriptor() []block.Column
	// Close releases the upstream child. The Operator calls this
	// unconditionally once the build phase completes (spec.md §9 Open
	// Question: close-after-build is unconditional, not gated on a
	// subplan check).
	Close() error
}

// KeyProjector is the sort-exec-expressions collaborator (spec.md §6):
// it evaluates the SortDescription's projection expressions against a
// Block and returns one materialized key Column per SortKey, aligned to
// the Block's rows.
type KeyProjector interface {
	NeedMaterializeTuple() bool
	Project(blk *block.Block) ([]block.Column, error)
}

// RuntimeState is the runtime/engine collaborator (spec.md §6):
// downstream batch sizing, cancellation, and optional tracing.
type RuntimeState interface {
	BatchSize() int
	IsCancelled() bool
	CheckQueryState(ctx context.Context) error
	// GetTracer may return nil, meaning no span is recorded.
	GetTracer() opentracing.Tracer
}

// MemTracker is the memory-tracking collaborator (spec.md §6). A nil
// MemTracker is valid and disables accounting entirely.
type MemTracker interface {
	Consume(bytes int64)
	Release(bytes int64)
	BytesConsumed() int64
}
