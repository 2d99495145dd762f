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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeriesSetAndAt(t *testing.T) {
	s := NewSeries(3)
	//
	assert.Equal(t, 3, s.Snapshots())
	assert.Equal(t, 0, s.Len())
	// Absent columns read as zero
	assert.Equal(t, 0.0, s.At(0, "a"))
	//
	s.Set(1, "a", 0.5)
	//
	assert.True(t, s.Has("a"))
	assert.Equal(t, 0.0, s.At(0, "a"))
	assert.Equal(t, 0.5, s.At(1, "a"))
}

func TestSeriesColumns(t *testing.T) {
	s := NewSeries(2)
	//
	s.SetColumn("a", []float64{1, 2})
	s.SetColumn("b", []float64{3, 4})
	//
	assert.Equal(t, []string{"a", "b"}, s.Columns())
	assert.Equal(t, []float64{1, 2}, s.Column("a"))
	assert.Nil(t, s.Column("missing"))
	//
	s.ScaleColumn("b", 0.5)
	assert.Equal(t, []float64{1.5, 2}, s.Column("b"))
	// Columns for earlier components survive later additions
	s.SetColumn("c", []float64{5, 6})
	assert.Equal(t, []float64{1, 2}, s.Column("a"))
}

func TestSeriesRemoveColumns(t *testing.T) {
	s := NewSeries(2)
	//
	s.SetColumn("a", []float64{1, 2})
	s.SetColumn("b", []float64{3, 4})
	s.SetColumn("c", []float64{5, 6})
	//
	s.RemoveColumns("b")
	//
	assert.Equal(t, []string{"a", "c"}, s.Columns())
	assert.Equal(t, []float64{1, 2}, s.Column("a"))
	assert.Equal(t, []float64{5, 6}, s.Column("c"))
	assert.False(t, s.Has("b"))
}

func TestSeriesTruncate(t *testing.T) {
	s := NewSeries(4)
	s.SetColumn("a", []float64{1, 2, 3, 4})
	//
	s.Truncate(2)
	//
	assert.Equal(t, 2, s.Snapshots())
	assert.Equal(t, []float64{1, 2}, s.Column("a"))
}
