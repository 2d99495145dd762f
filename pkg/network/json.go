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
	"encoding/json"
	"fmt"
	"math"
)

// jfloat wraps float64 so that non-finite values survive a JSON round trip.
// Infinities are common as capacity bounds ("no technical limit").
type jfloat float64

// MarshalJSON encodes non-finite values as strings.
func (f jfloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	//
	switch {
	case math.IsNaN(v):
		return []byte(`"nan"`), nil
	case math.IsInf(v, 1):
		return []byte(`"inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-inf"`), nil
	default:
		return json.Marshal(v)
	}
}

// UnmarshalJSON decodes values encoded by MarshalJSON.
func (f *jfloat) UnmarshalJSON(data []byte) error {
	var v float64
	//
	if err := json.Unmarshal(data, &v); err == nil {
		*f = jfloat(v)
		return nil
	}
	//
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	//
	switch s {
	case "nan":
		*f = jfloat(math.NaN())
	case "inf":
		*f = jfloat(math.Inf(1))
	case "-inf":
		*f = jfloat(math.Inf(-1))
	default:
		return fmt.Errorf("invalid float value %q", s)
	}
	//
	return nil
}

func toJFloats(values []float64) []jfloat {
	out := make([]jfloat, len(values))
	for i, v := range values {
		out[i] = jfloat(v)
	}
	//
	return out
}

// jsonNetwork is the serialized container format: component tables keyed by
// kind, series keyed by kind then attribute.  The format is attribute
// preserving, so a round trip loses nothing.
type jsonNetwork struct {
	Snapshots                  []Snapshot                 `json:"snapshots"`
	SnapshotWeightings         []Weighting                `json:"snapshot_weightings"`
	InvestmentPeriods          []int                      `json:"investment_periods,omitempty"`
	InvestmentPeriodWeightings map[int]PeriodWeighting    `json:"investment_period_weightings,omitempty"`
	Components                 map[Kind]*jsonTable        `json:"components"`
	Series                     map[Kind]map[string]*jsonSeries `json:"series"`
	Meta                       map[string]any             `json:"meta,omitempty"`
}

type jsonTable struct {
	Index   []string             `json:"index"`
	Floats  map[string][]jfloat  `json:"floats,omitempty"`
	Strings map[string][]string  `json:"strings,omitempty"`
	Bools   map[string][]bool    `json:"bools,omitempty"`
}

type jsonSeries struct {
	Columns []string   `json:"columns"`
	Data    [][]jfloat `json:"data"`
}

// allKinds fixes the serialisation order of component kinds.
var allKinds = []Kind{
	BusKind, CarrierKind, GeneratorKind, GlobalConstraintKind,
	LineKind, LinkKind, LoadKind, StorageUnitKind, StoreKind,
}

// ToBytes serialises a network into its JSON container format.
func ToBytes(n *Network) ([]byte, error) {
	jn := jsonNetwork{
		Snapshots:                  n.Snapshots,
		SnapshotWeightings:         n.SnapshotWeightings,
		InvestmentPeriods:          n.InvestmentPeriods,
		InvestmentPeriodWeightings: n.InvestmentPeriodWeightings,
		Components:                 make(map[Kind]*jsonTable),
		Series:                     make(map[Kind]map[string]*jsonSeries),
		Meta:                       n.Meta,
	}
	//
	for _, kind := range allKinds {
		tbl := n.Static(kind)
		if tbl == nil || tbl.Len() == 0 {
			continue
		}
		//
		jt := &jsonTable{
			Index:   tbl.Index(),
			Floats:  make(map[string][]jfloat),
			Strings: make(map[string][]string),
			Bools:   make(map[string][]bool),
		}
		//
		for _, col := range tbl.FloatColumns() {
			jt.Floats[col] = toJFloats(columnFloats(tbl, col))
		}

		for _, col := range tbl.StringColumns() {
			jt.Strings[col] = columnStrings(tbl, col)
		}

		for _, col := range tbl.BoolColumns() {
			jt.Bools[col] = columnBools(tbl, col)
		}
		//
		jn.Components[kind] = jt
		//
		dyn := n.Dynamic(kind)
		if len(dyn) == 0 {
			continue
		}
		//
		js := make(map[string]*jsonSeries)

		for attr, s := range dyn {
			if s.Len() == 0 {
				continue
			}
			//
			rows := make([][]jfloat, s.Snapshots())

			for t := range rows {
				row := make([]jfloat, s.Len())
				for j, id := range s.cols {
					row[j] = jfloat(s.At(t, id))
				}
				//
				rows[t] = row
			}
			//
			js[attr] = &jsonSeries{Columns: s.Columns(), Data: rows}
		}
		//
		jn.Series[kind] = js
	}
	// Serialise
	return json.MarshalIndent(jn, "", " ")
}

// FromBytes parses a network expressed in the JSON container format.
func FromBytes(data []byte) (*Network, error) {
	var jn jsonNetwork
	//
	if err := json.Unmarshal(data, &jn); err != nil {
		return nil, err
	}
	//
	n := New(jn.Snapshots)
	n.SnapshotWeightings = jn.SnapshotWeightings
	n.InvestmentPeriods = jn.InvestmentPeriods

	if jn.InvestmentPeriodWeightings != nil {
		n.InvestmentPeriodWeightings = jn.InvestmentPeriodWeightings
	}

	if jn.Meta != nil {
		n.Meta = jn.Meta
	}
	//
	for kind, jt := range jn.Components {
		tbl := n.Static(kind)
		if tbl == nil {
			return nil, fmt.Errorf("unknown component kind %q", kind)
		}
		//
		for _, id := range jt.Index {
			if err := tbl.AddRow(id); err != nil {
				return nil, err
			}
		}
		//
		for col, data := range jt.Floats {
			for i, id := range jt.Index {
				tbl.SetFloat(id, col, float64(data[i]))
			}
		}

		for col, data := range jt.Strings {
			for i, id := range jt.Index {
				tbl.SetString(id, col, data[i])
			}
		}

		for col, data := range jt.Bools {
			for i, id := range jt.Index {
				tbl.SetBool(id, col, data[i])
			}
		}
	}
	//
	for kind, attrs := range jn.Series {
		if n.Dynamic(kind) == nil {
			return nil, fmt.Errorf("component kind %q has no time-varying data", kind)
		}
		//
		for attr, js := range attrs {
			s := n.SeriesFor(kind, attr)

			for j, id := range js.Columns {
				col := make([]float64, len(js.Data))
				for t := range js.Data {
					col[t] = float64(js.Data[t][j])
				}
				//
				s.SetColumn(id, col)
			}
		}
	}
	//
	return n, nil
}

func columnFloats(tbl *Table, col string) []float64 {
	out := make([]float64, tbl.Len())
	for i, id := range tbl.Index() {
		out[i] = tbl.Float(id, col)
	}
	//
	return out
}

func columnStrings(tbl *Table, col string) []string {
	out := make([]string, tbl.Len())
	for i, id := range tbl.Index() {
		out[i] = tbl.String(id, col)
	}
	//
	return out
}

func columnBools(tbl *Table, col string) []bool {
	out := make([]bool, tbl.Len())
	for i, id := range tbl.Index() {
		out[i] = tbl.Bool(id, col)
	}
	//
	return out
}
