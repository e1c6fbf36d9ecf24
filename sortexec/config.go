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

// Package sortexec implements the operator core: PartialSorter, RunSet,
// MergeReader and the Operator state machine that orchestrates them,
// adapted from the teacher's executor.SortExec / executor.TopNExec
// (executor/sort.go) onto this module's own block.Block column model.
package sortexec

import (
	"github.com/colexec/vecsort/runbuffer"
	"github.com/colexec/vecsort/sysmem"
)

// Config holds the operator's recognized options, spec.md §6.
type Config struct {
	Offset           int
	Limit            int // -1 disables top-N pruning and the full-result path
	RunRowThreshold  int
	RunByteThreshold int64
}

// DefaultConfig returns spec.md §4.3's default thresholds with no
// OFFSET/LIMIT applied.
func DefaultConfig() Config {
	return Config{
		Offset:           0,
		Limit:            -1,
		RunRowThreshold:  runbuffer.DefaultRunRowThreshold,
		RunByteThreshold: runbuffer.DefaultRunByteThreshold,
	}
}

// DefaultConfigForHost is DefaultConfig with RunByteThreshold scaled to
// the host's (or container's) actual available memory, rather than the
// fixed spec default, via sysmem.
func DefaultConfigForHost() Config {
	cfg := DefaultConfig()
	cfg.RunByteThreshold = sysmem.DefaultRunByteThreshold(cfg.RunByteThreshold)
	return cfg
}

// TopN reports whether LIMIT pruning is active.
func (c Config) TopN() bool { return c.Limit >= 0 }

// LimitHint returns offset+limit when top-N pruning is active, or -1
// otherwise — the value PartialSorter and RunSet use to bound work.
func (c Config) LimitHint() int {
	if !c.TopN() {
		return -1
	}
	return c.Offset + c.Limit
}
