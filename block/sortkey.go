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

package block

// Direction encodes a column's sort direction.
type Direction int8

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// SortKey describes the ordering of one column: which column, which
// direction, and where its nulls sort.
type SortKey struct {
	// ColumnIndex is the position of this key's materialized column
	// within the slice of key columns evaluated for a Block (not
	// necessarily the column's index in the original upstream schema).
	ColumnIndex int
	Direction   Direction
	NullsFirst  bool
}

// NullsDirection returns the encoded nulls direction: the opposite sign
// of Direction when NullsFirst, the same sign otherwise. CompareRows
// multiplies it by Direction, so nulls compare as -1 (first) when
// NullsFirst and +1 (last) otherwise.
func (k SortKey) NullsDirection() Direction {
	if k.NullsFirst {
		return -k.Direction
	}
	return k.Direction
}

// SortDescription is an ordered list of SortKeys; list order is
// major-to-minor precedence.
type SortDescription []SortKey
