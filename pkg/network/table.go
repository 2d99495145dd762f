// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package network

import (
	"fmt"
	"sort"
)

// Table is a column-oriented collection of components of one kind.  Rows are
// keyed by a unique string identifier and kept in insertion order; columns are
// typed (float, string or bool) and can be created dynamically with a default
// value which applies to rows added later.  This mirrors the column-major
// layout used for traces, where all values of one attribute are stored
// contiguously.
type Table struct {
	index []string
	pos   map[string]int
	//
	floats   map[string][]float64
	strings  map[string][]string
	bools    map[string][]bool
	floatDef map[string]float64
	strDef   map[string]string
	boolDef  map[string]bool
}

// NewTable constructs an empty component table.
func NewTable() *Table {
	return &Table{
		pos:      make(map[string]int),
		floats:   make(map[string][]float64),
		strings:  make(map[string][]string),
		bools:    make(map[string][]bool),
		floatDef: make(map[string]float64),
		strDef:   make(map[string]string),
		boolDef:  make(map[string]bool),
	}
}

// Len returns the number of rows in this table.
func (t *Table) Len() int {
	return len(t.index)
}

// Index returns a copy of the row identifiers in insertion order.  A copy is
// returned so callers may mutate the table whilst iterating.
func (t *Table) Index() []string {
	idx := make([]string, len(t.index))
	copy(idx, t.index)
	//
	return idx
}

// Has checks whether a row with the given identifier exists.
func (t *Table) Has(id string) bool {
	_, ok := t.pos[id]
	return ok
}

// AddRow appends a new row, extending every existing column with its default
// value.  Identifiers must be unique within a table.
func (t *Table) AddRow(id string) error {
	if _, ok := t.pos[id]; ok {
		return fmt.Errorf("duplicate component identifier %q", id)
	}
	//
	t.pos[id] = len(t.index)
	t.index = append(t.index, id)
	//
	for col := range t.floats {
		t.floats[col] = append(t.floats[col], t.floatDef[col])
	}

	for col := range t.strings {
		t.strings[col] = append(t.strings[col], t.strDef[col])
	}

	for col := range t.bools {
		t.bools[col] = append(t.bools[col], t.boolDef[col])
	}
	// Done
	return nil
}

// RemoveRows deletes the given rows (identifiers not present are ignored),
// compacting all columns.
func (t *Table) RemoveRows(ids ...string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	//
	keep := make([]int, 0, len(t.index))

	for i, id := range t.index {
		if !drop[id] {
			keep = append(keep, i)
		}
	}
	// Compact index
	index := make([]string, len(keep))
	for j, i := range keep {
		index[j] = t.index[i]
	}
	//
	t.index = index
	t.pos = make(map[string]int, len(index))

	for j, id := range index {
		t.pos[id] = j
	}
	// Compact columns
	for col, data := range t.floats {
		t.floats[col] = compact(data, keep)
	}

	for col, data := range t.strings {
		t.strings[col] = compact(data, keep)
	}

	for col, data := range t.bools {
		t.bools[col] = compact(data, keep)
	}
}

func compact[T any](data []T, keep []int) []T {
	out := make([]T, len(keep))
	for j, i := range keep {
		out[j] = data[i]
	}
	//
	return out
}

// EnsureFloat creates a float column filled with the given default, if it does
// not already exist.
func (t *Table) EnsureFloat(col string, def float64) {
	if _, ok := t.floats[col]; ok {
		return
	}
	//
	data := make([]float64, len(t.index))
	for i := range data {
		data[i] = def
	}
	//
	t.floats[col] = data
	t.floatDef[col] = def
}

// EnsureString creates a string column filled with the given default, if it
// does not already exist.
func (t *Table) EnsureString(col string, def string) {
	if _, ok := t.strings[col]; ok {
		return
	}
	//
	data := make([]string, len(t.index))

	if def != "" {
		for i := range data {
			data[i] = def
		}
	}
	//
	t.strings[col] = data
	t.strDef[col] = def
}

// EnsureBool creates a bool column filled with the given default, if it does
// not already exist.
func (t *Table) EnsureBool(col string, def bool) {
	if _, ok := t.bools[col]; ok {
		return
	}
	//
	data := make([]bool, len(t.index))

	if def {
		for i := range data {
			data[i] = def
		}
	}
	//
	t.bools[col] = data
	t.boolDef[col] = def
}

// HasFloat checks whether a float column exists.
func (t *Table) HasFloat(col string) bool {
	_, ok := t.floats[col]
	return ok
}

// HasBool checks whether a bool column exists.
func (t *Table) HasBool(col string) bool {
	_, ok := t.bools[col]
	return ok
}

// HasString checks whether a string column exists.
func (t *Table) HasString(col string) bool {
	_, ok := t.strings[col]
	return ok
}

// Float reads a float attribute, returning the column default when the column
// is absent.
func (t *Table) Float(id, col string) float64 {
	if data, ok := t.floats[col]; ok {
		return data[t.pos[id]]
	}
	//
	return t.floatDef[col]
}

// FloatOr reads a float attribute, returning the given fallback when the
// column is absent.  This resolves standard attribute defaults (e.g. p_max_pu
// defaults to one) for networks which never materialised the column.
func (t *Table) FloatOr(id, col string, def float64) float64 {
	if data, ok := t.floats[col]; ok {
		return data[t.pos[id]]
	}
	//
	return def
}

// SetFloat writes a float attribute, creating the column (default zero) on
// first use.
func (t *Table) SetFloat(id, col string, v float64) {
	t.EnsureFloat(col, 0)
	t.floats[col][t.pos[id]] = v
}

// String reads a string attribute ("" when the column is absent).
func (t *Table) String(id, col string) string {
	if data, ok := t.strings[col]; ok {
		return data[t.pos[id]]
	}
	//
	return ""
}

// SetString writes a string attribute, creating the column on first use.
func (t *Table) SetString(id, col string, v string) {
	t.EnsureString(col, "")
	t.strings[col][t.pos[id]] = v
}

// Bool reads a bool attribute (false when the column is absent).
func (t *Table) Bool(id, col string) bool {
	if data, ok := t.bools[col]; ok {
		return data[t.pos[id]]
	}
	//
	return false
}

// SetBool writes a bool attribute, creating the column on first use.
func (t *Table) SetBool(id, col string, v bool) {
	t.EnsureBool(col, false)
	t.bools[col][t.pos[id]] = v
}

// FloatColumns returns the names of all float columns in sorted order.
func (t *Table) FloatColumns() []string {
	cols := make([]string, 0, len(t.floats))
	for col := range t.floats {
		cols = append(cols, col)
	}
	//
	sort.Strings(cols)
	//
	return cols
}

// StringColumns returns the names of all string columns in sorted order.
func (t *Table) StringColumns() []string {
	cols := make([]string, 0, len(t.strings))
	for col := range t.strings {
		cols = append(cols, col)
	}
	//
	sort.Strings(cols)
	//
	return cols
}

// BoolColumns returns the names of all bool columns in sorted order.
func (t *Table) BoolColumns() []string {
	cols := make([]string, 0, len(t.bools))
	for col := range t.bools {
		cols = append(cols, col)
	}
	//
	sort.Strings(cols)
	//
	return cols
}

// DropFloatColumns removes the given float columns entirely.
func (t *Table) DropFloatColumns(cols ...string) {
	for _, col := range cols {
		delete(t.floats, col)
		delete(t.floatDef, col)
	}
}

// DropBoolColumns removes the given bool columns entirely.
func (t *Table) DropBoolColumns(cols ...string) {
	for _, col := range cols {
		delete(t.bools, col)
		delete(t.boolDef, col)
	}
}

// Filter returns (in insertion order) the identifiers of all rows matching the
// given predicate.
func (t *Table) Filter(pred func(id string) bool) []string {
	var out []string
	//
	for _, id := range t.index {
		if pred(id) {
			out = append(out, id)
		}
	}
	//
	return out
}

// GroupSumFloat sums a float attribute over groups determined by the given key
// function.  Rows for which the key function returns "" are skipped.
func (t *Table) GroupSumFloat(col string, key func(id string) string) map[string]float64 {
	sums := make(map[string]float64)
	//
	for _, id := range t.index {
		if k := key(id); k != "" {
			sums[k] += t.Float(id, col)
		}
	}
	//
	return sums
}
