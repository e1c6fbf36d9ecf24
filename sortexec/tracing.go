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
)

// startSpan opens a profiling span for op using runtime's tracer when
// one is configured, or a no-op tracer otherwise. Tracing is treated as
// an optional external collaborator per spec.md §6 ("get_tracer(),
// optional"); the operator never depends on spans being recorded.
func startSpan(ctx context.Context, runtime RuntimeState, op string) (opentracing.Span, context.Context) {
	var tracer opentracing.Tracer
	if runtime != nil {
		tracer = runtime.GetTracer()
	}
	if tracer == nil {
		tracer = opentracing.NoopTracer{}
	}
	return opentracing.StartSpanFromContextWithTracer(ctx, tracer, op)
}
