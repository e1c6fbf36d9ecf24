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

// CompareRows compares row i of the left key columns against row j of
// the right key columns, both evaluated against the same desc. This one
// comparator powers partial sort, the pruning heap and the merge heap;
// only the direction of the "less" wrapper around it differs.
//
// Null handling: if both values are null the key contributes no
// ordering and comparison falls through to the next key; if exactly one
// is null, the result is desc[k].NullsDirection() times desc[k].Direction
// (positive meaning the null sorts after the non-null value, negative
// meaning before), so NullsFirst places nulls first in either direction.
// Each key reads the key column at its ColumnIndex.
func CompareRows(desc SortDescription, left []Column, i int, right []Column, j int) int {
	for _, sk := range desc {
		lc, rc := left[sk.ColumnIndex], right[sk.ColumnIndex]
		ln, rn := lc.IsNull(i), rc.IsNull(j)
		switch {
		case ln && rn:
			continue
		case ln:
			return int(sk.NullsDirection()) * int(sk.Direction)
		case rn:
			return -int(sk.NullsDirection()) * int(sk.Direction)
		}
		if c := lc.CompareValue(i, rc, j) * int(sk.Direction); c != 0 {
			return c
		}
	}
	return 0
}
