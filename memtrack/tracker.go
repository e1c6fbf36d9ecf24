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

// Package memtrack is the default implementation of the memory-tracking
// collaborator spec.md §6 treats as external to the sort core. It is
// adapted from the teacher's util/memory/action.go Tracker/ActionOnExceed
// pair, with the disk-spill fallback path removed — spilling to
// persistent storage is a spec.md Non-goal, so the only action this
// package ships logs the overage rather than triggering a spill.
package memtrack

import (
	"sync"

	"go.uber.org/zap"

	"github.com/colexec/vecsort/logutil"
)

// ActionOnExceed is invoked when a Tracker's consumption crosses its
// configured limit. Implementations must be safe for concurrent use,
// matching the teacher's contract on memory.ActionOnExceed.
type ActionOnExceed interface {
	Action(t *Tracker)
}

// Tracker accounts bytes consumed by one component (a RunBuffer, a
// RunSet's admitted runs, ...) and escalates to an ActionOnExceed once
// when its limit is crossed.
type Tracker struct {
	mu         sync.Mutex
	label      string
	bytesLimit int64 // <=0 means unlimited
	consumed   int64
	action     ActionOnExceed
	acted      bool
}

// NewTracker creates a Tracker with the given label and byte limit.
func NewTracker(label string, bytesLimit int64) *Tracker {
	return &Tracker{label: label, bytesLimit: bytesLimit}
}

// SetActionOnExceed installs the action triggered the first time
// BytesConsumed crosses bytesLimit.
func (t *Tracker) SetActionOnExceed(a ActionOnExceed) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.action = a
}

// Consume adds delta (negative to release) to the tracked total.
func (t *Tracker) Consume(delta int64) {
	t.mu.Lock()
	t.consumed += delta
	exceeded := t.bytesLimit > 0 && t.consumed > t.bytesLimit && !t.acted
	action := t.action
	if exceeded {
		t.acted = true
	}
	t.mu.Unlock()
	if exceeded && action != nil {
		action.Action(t)
	}
}

// Release is shorthand for Consume(-bytes).
func (t *Tracker) Release(bytes int64) { t.Consume(-bytes) }

// BytesConsumed returns the current tracked total.
func (t *Tracker) BytesConsumed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consumed
}

// GetBytesLimit returns the configured limit.
func (t *Tracker) GetBytesLimit() int64 { return t.bytesLimit }

// LogOnExceed logs a warning exactly once when a Tracker's consumption
// exceeds its quota, mirroring the teacher's LogOnExceed in
// util/memory/action.go.
type LogOnExceed struct{}

// Action implements ActionOnExceed.
func (LogOnExceed) Action(t *Tracker) {
	logutil.BgLogger().Warn("memory exceeds quota",
		zap.String("label", t.label),
		zap.Int64("consumed", t.BytesConsumed()),
		zap.Int64("limit", t.GetBytesLimit()))
}
