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

// Package logutil wraps go.uber.org/zap with a package-level logger, the
// same shape as the teacher's logutil.BgLogger() call sites in
// util/chunk/row_container.go and util/memory/action.go (zap.Error,
// zap.Int64, zap.String fields passed to Warn/Info).
package logutil

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var global atomic.Value

func init() {
	global.Store(zap.NewNop())
}

// SetLogger installs l as the background logger used by BgLogger.
func SetLogger(l *zap.Logger) {
	global.Store(l)
}

// BgLogger returns the current background logger. Callers that never
// call SetLogger get a no-op logger, so library code can log
// unconditionally without requiring test setup.
func BgLogger() *zap.Logger {
	return global.Load().(*zap.Logger)
}
