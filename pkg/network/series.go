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
	"gonum.org/v1/gonum/mat"
)

// Series holds one time-varying attribute for a set of components: a dense
// snapshots x components matrix together with the component identifiers
// labelling its columns.  The column set must always be a subset of the
// corresponding static table's index.
type Series struct {
	cols []string
	pos  map[string]int
	data *mat.Dense
}

// NewSeries constructs an empty series spanning the given number of
// snapshots.
func NewSeries(nsnapshots int) *Series {
	return &Series{
		pos:  make(map[string]int),
		data: mat.NewDense(nsnapshots, 1, nil),
	}
}

// Len returns the number of component columns held by this series.
func (s *Series) Len() int {
	return len(s.cols)
}

// Snapshots returns the number of snapshots this series spans.
func (s *Series) Snapshots() int {
	r, _ := s.data.Dims()
	return r
}

// Columns returns a copy of the component identifiers labelling this series.
func (s *Series) Columns() []string {
	cols := make([]string, len(s.cols))
	copy(cols, s.cols)
	//
	return cols
}

// Has checks whether the series holds a column for the given component.
func (s *Series) Has(id string) bool {
	_, ok := s.pos[id]
	return ok
}

// At reads the value for a given snapshot and component.  Components without a
// column yield zero.
func (s *Series) At(t int, id string) float64 {
	if j, ok := s.pos[id]; ok {
		return s.data.At(t, j)
	}
	//
	return 0
}

// Set writes the value for a given snapshot and component, creating the
// column (zero filled) on first use.
func (s *Series) Set(t int, id string, v float64) {
	j, ok := s.pos[id]
	if !ok {
		j = s.addColumn(id)
	}
	//
	s.data.Set(t, j, v)
}

// Column returns a copy of the full snapshot vector for a given component, or
// nil if no column exists.
func (s *Series) Column(id string) []float64 {
	j, ok := s.pos[id]
	if !ok {
		return nil
	}
	//
	out := make([]float64, s.Snapshots())
	mat.Col(out, j, s.data)
	//
	return out
}

// SetColumn writes a full snapshot vector for a given component, creating the
// column on first use.
func (s *Series) SetColumn(id string, values []float64) {
	j, ok := s.pos[id]
	if !ok {
		j = s.addColumn(id)
	}
	//
	s.data.SetCol(j, values)
}

// ScaleColumn multiplies every value of a component's column by the given
// factor.  Missing columns are ignored.
func (s *Series) ScaleColumn(id string, factor float64) {
	j, ok := s.pos[id]
	if !ok {
		return
	}
	//
	for t := 0; t < s.Snapshots(); t++ {
		s.data.Set(t, j, s.data.At(t, j)*factor)
	}
}

// RemoveColumns drops the columns for the given components (missing columns
// are ignored).
func (s *Series) RemoveColumns(ids ...string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	//
	var keep []string

	for _, id := range s.cols {
		if !drop[id] {
			keep = append(keep, id)
		}
	}
	//
	if len(keep) == len(s.cols) {
		return
	}
	//
	nrows := s.Snapshots()
	data := mat.NewDense(nrows, max(1, len(keep)), nil)

	for j, id := range keep {
		for t := 0; t < nrows; t++ {
			data.Set(t, j, s.data.At(t, s.pos[id]))
		}
	}
	//
	s.cols = keep
	s.pos = make(map[string]int, len(keep))

	for j, id := range keep {
		s.pos[id] = j
	}
	//
	s.data = data
}

// Truncate restricts this series to its first nsnapshots rows.
func (s *Series) Truncate(nsnapshots int) {
	ncols := max(1, len(s.cols))
	data := mat.NewDense(nsnapshots, ncols, nil)
	data.Copy(s.data.Slice(0, nsnapshots, 0, ncols))
	s.data = data
}

// addColumn grows the underlying matrix by one column for the given
// component.
func (s *Series) addColumn(id string) int {
	nrows := s.Snapshots()
	j := len(s.cols)
	//
	data := mat.NewDense(nrows, j+1, nil)
	if j > 0 {
		data.Slice(0, nrows, 0, j).(*mat.Dense).Copy(s.data)
	}
	//
	s.cols = append(s.cols, id)
	s.pos[id] = j
	s.data = data
	//
	return j
}
