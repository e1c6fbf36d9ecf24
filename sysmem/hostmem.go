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

package sysmem

import "github.com/shirou/gopsutil/mem"

// TotalMemoryBytes reports the memory budget this process should plan
// against: the memory cgroup's limit when running in a container (and
// one is mounted), the host's total physical memory otherwise.
func TotalMemoryBytes() (uint64, error) {
	if InContainer() {
		if limit := NewDetector().MemoryLimitBytes(); limit > 0 {
			return limit, nil
		}
	}
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return v.Total, nil
}

// DefaultRunByteThreshold sizes RUN_BYTE_THRESHOLD as a fraction of the
// host's available memory, so a single buffered run cannot dominate it.
// fallback is returned verbatim when the host budget cannot be
// determined or one sixteenth of it is smaller than fallback.
func DefaultRunByteThreshold(fallback int64) int64 {
	total, err := TotalMemoryBytes()
	if err != nil || total == 0 {
		return fallback
	}
	const fraction = 16 // one run should not claim more than ~1/16th of RAM
	quota := int64(total / fraction)
	if quota < fallback {
		return fallback
	}
	return quota
}
