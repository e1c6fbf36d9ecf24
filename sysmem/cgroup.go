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

// Package sysmem detects how much memory the host (or the container the
// process runs in) actually makes available, so the operator's run
// thresholds can default to a fraction of real capacity instead of a
// fixed constant. Adapted from the teacher's util/sys/cgroup/cgroup.go
// and util/memory/meminfo.go.
package sysmem

import (
	"bufio"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pingcap/errors"
)

const (
	cGroupPath      = "/proc/self/cgroup"
	cGroupMountInfo = "/proc/self/mountinfo"
	cGroupFsType    = "cgroup"

	memSubSys       = "memory"
	memLimitInBytes = "memory.limit_in_bytes"
	memUsageInBytes = "memory.usage_in_bytes"

	mountInfoSep      = " "
	optionsSep        = ","
	optionalFieldsSep = "-"

	cGroupSep = ":"
	subSysSep = ","
)

const (
	subSysFieldsID = iota
	subSysFieldsSubSystems
	subSysFieldsName

	subSysFieldsCount
)

const (
	mountInfoFieldMountID = iota
	mountInfoFieldParentID
	mountInfoFieldDeviceID
	mountInfoFieldRoot
	mountInfoFieldMountPoint
	mountInfoFieldOptions
	mountInfoFieldOptionalFields

	mountInfoFieldPart1Count
)

const (
	mountInfoFieldFSType = iota
	mountInfoFieldMountSource
	mountInfoFieldSuperOptions

	mountInfoFieldPart2Count
)

// cGroup is one cgroup subsystem's mounted control directory.
type cGroup struct {
	path string
}

func (cg *cGroup) readNum(param string) (uint64, error) {
	v, err := os.ReadFile(path.Join(cg.path, param))
	if err != nil {
		return 0, err
	}
	return parseUint(strings.TrimSpace(string(v)))
}

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		// cgroup files report "-1" or very large negative numbers for
		// "unlimited"; treat any negative value as unlimited (0).
		if intValue, intErr := strconv.ParseInt(s, 10, 64); intErr == nil && intValue < 0 {
			return 0, nil
		}
		return 0, err
	}
	return v, nil
}

type cGroupSubSys struct {
	id         uint64
	subSystems []string
	name       string
}

// Detector resolves the memory cgroup's limit and usage files, once, at
// construction. A Detector with no memory subsystem mounted reports zero
// for both (caller interprets zero as "unknown / unlimited").
type Detector struct {
	memory *cGroup
}

// NewDetector parses cGroupPath/mountInfoPath to locate this process's
// memory cgroup mount point. A line that fails to parse ends the scan of
// its file, and the lines read before it are still used; an unreadable
// cgroup file yields a Detector that always reports zero. No error is
// returned — host memory detection is a best-effort default, never a
// hard requirement.
func NewDetector() *Detector {
	return newDetector(cGroupPath, cGroupMountInfo)
}

func newDetector(cGroupFile, mountInfoFile string) *Detector {
	subSystems := make(map[string]*cGroupSubSys)
	if err := scanLines(cGroupFile, func(line string) bool {
		sub, err := parseSubSysFromString(line)
		if err != nil {
			return false
		}
		for _, name := range sub.subSystems {
			subSystems[name] = sub
		}
		return true
	}); err != nil {
		return &Detector{}
	}

	var memCGroup *cGroup
	_ = scanLines(mountInfoFile, func(line string) bool {
		mp, err := parseMountPointFromString(line)
		if err != nil {
			return false
		}
		if mp.fsType != cGroupFsType {
			return true
		}
		for _, opt := range mp.superOptions {
			sub, ok := subSystems[opt]
			if !ok || opt != memSubSys {
				continue
			}
			if subPath, err := mp.translate(sub.name); err == nil {
				memCGroup = &cGroup{path: subPath}
			}
		}
		return true
	})

	return &Detector{memory: memCGroup}
}

func scanLines(path string, each func(line string) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	br := bufio.NewReader(f)
	for {
		line, _, err := br.ReadLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if !each(string(line)) {
			return nil
		}
	}
}

type mountPoint struct {
	root         string
	mountPoint   string
	fsType       string
	superOptions []string
}

func (mp *mountPoint) translate(absPath string) (string, error) {
	rel, err := filepath.Rel(mp.root, absPath)
	if err != nil {
		return "", err
	}
	return path.Join(mp.mountPoint, rel), nil
}

// MemoryLimitBytes returns the memory cgroup's configured limit, or 0 if
// none is mounted or the limit could not be read.
func (d *Detector) MemoryLimitBytes() uint64 {
	if d.memory == nil {
		return 0
	}
	limit, err := d.memory.readNum(memLimitInBytes)
	if err != nil {
		return 0
	}
	return limit
}

// MemoryUsageBytes returns the memory cgroup's current usage, or 0 if
// none is mounted or the usage could not be read.
func (d *Detector) MemoryUsageBytes() uint64 {
	if d.memory == nil {
		return 0
	}
	usage, err := d.memory.readNum(memUsageInBytes)
	if err != nil {
		return 0
	}
	return usage
}

// InContainer reports whether this process's cgroup membership looks
// like a container runtime (docker, kubernetes, containerd).
func InContainer() bool {
	v, err := os.ReadFile(cGroupPath)
	if err != nil {
		return false
	}
	s := string(v)
	return strings.Contains(s, "docker") || strings.Contains(s, "kubepods") || strings.Contains(s, "containerd")
}

func parseSubSysFromString(line string) (*cGroupSubSys, error) {
	fields := strings.Split(line, cGroupSep)
	if len(fields) != subSysFieldsCount {
		return nil, errors.New("sysmem: subsystem line format invalid")
	}
	id, err := parseUint(fields[subSysFieldsID])
	if err != nil {
		return nil, err
	}
	return &cGroupSubSys{
		id:         id,
		subSystems: strings.Split(fields[subSysFieldsSubSystems], subSysSep),
		name:       fields[subSysFieldsName],
	}, nil
}

func parseMountPointFromString(line string) (*mountPoint, error) {
	fields := strings.Split(line, mountInfoSep)
	if len(fields) < mountInfoFieldPart1Count+mountInfoFieldPart2Count {
		return nil, errors.New("sysmem: mount info line format invalid")
	}

	sepPos := mountInfoFieldOptionalFields
	found := false
	for _, field := range fields[mountInfoFieldOptionalFields:] {
		if field == optionalFieldsSep {
			found = true
			break
		}
		sepPos++
	}
	if !found {
		return nil, errors.New("sysmem: mount info optional-fields separator not found")
	}
	fsStart := sepPos + 1

	return &mountPoint{
		root:         fields[mountInfoFieldRoot],
		mountPoint:   fields[mountInfoFieldMountPoint],
		fsType:       fields[fsStart+mountInfoFieldFSType],
		superOptions: strings.Split(fields[fsStart+mountInfoFieldSuperOptions], optionsSep),
	}, nil
}
