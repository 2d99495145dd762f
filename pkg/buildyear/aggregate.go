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

package buildyear

import (
	"fmt"
	"time"

	"github.com/consensys/go-gridplan/pkg/network"
	log "github.com/sirupsen/logrus"
)

// Indices remembers, per component kind, the full pre-aggregation component
// index.  Disaggregation uses it to tell genuine components from aggregates.
type Indices map[network.Kind][]string

// Aggregate merges, for every component kind except lines, the components
// that are identical in all but build year (named "<base>-<year>") into one
// component per base name.  Components of excluded carriers are left alone.
// Non-extendable members pin their capacity into the aggregate's bounds, so
// already-built capacity can never be re-optimised away.  Returns the
// pre-aggregation indices needed to undo the merge.
func Aggregate(n *network.Network, excludeCarriers []string) Indices {
	var (
		start   = time.Now()
		indices = make(Indices)
	)
	//
	excluded := make(map[string]bool, len(excludeCarriers))
	for _, c := range excludeCarriers {
		excluded[c] = true
	}
	//
	for _, kind := range network.OptimisableKinds() {
		if kind == network.LineKind {
			continue
		}
		//
		tbl := n.Static(kind)
		if !hasBuildYears(tbl) {
			continue
		}
		//
		indices[kind] = tbl.Index()
		aggregateKind(n, kind, excluded)
	}
	//
	log.Infof("aggregated build years in %.1f seconds", time.Since(start).Seconds())
	//
	return indices
}

// hasBuildYears reports whether any component in the table carries a build
// year.
func hasBuildYears(tbl *network.Table) bool {
	if !tbl.HasFloat("build_year") {
		return false
	}
	//
	for _, id := range tbl.Index() {
		if tbl.Float(id, "build_year") > 0 {
			return true
		}
	}
	//
	return false
}

func aggregateKind(n *network.Network, kind network.Kind, excluded map[string]bool) {
	var (
		tbl     = n.Static(kind)
		nominal = network.NominalAttr(kind)
	)
	//
	aggID := func(id string) string {
		if excluded[tbl.String(id, "carrier")] {
			return id
		}
		//
		return stripYear(id)
	}
	// Pin standing capacity: for non-extendable members the aggregate must
	// treat the current capacity as both floor and ceiling.
	for _, id := range tbl.Index() {
		if excluded[tbl.String(id, "carrier")] || tbl.Bool(id, nominal+"_extendable") {
			continue
		}
		//
		capacity := tbl.Float(id, nominal)
		tbl.SetFloat(id, nominal+"_min", capacity)
		tbl.SetFloat(id, nominal+"_max", capacity)
	}
	// Group members by aggregate identifier, in insertion order.
	var (
		order  []string
		groups = make(map[string][]string)
	)
	//
	for _, id := range tbl.Index() {
		key := aggID(id)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		//
		groups[key] = append(groups[key], id)
	}
	// Merge static columns.
	merged := network.NewTable()

	for _, key := range order {
		if err := merged.AddRow(key); err != nil {
			// Unreachable: keys are unique by construction.
			panic(err)
		}
		//
		var (
			members = groups[key]
			years   = make([]float64, len(members))
		)
		//
		for i, id := range members {
			years[i] = tbl.Float(id, "build_year")
		}
		//
		for _, col := range tbl.FloatColumns() {
			values := make([]float64, len(members))
			for i, id := range members {
				values[i] = tbl.Float(id, col)
			}
			//
			merged.SetFloat(key, col, mergeFloats(staticFloat(col, nominal), values, years))
		}

		for _, col := range tbl.StringColumns() {
			// Control modes are not meaningful on aggregates.
			if col == "control" {
				merged.SetString(key, col, "")
			} else {
				merged.SetString(key, col, tbl.String(members[0], col))
			}
		}

		for _, col := range tbl.BoolColumns() {
			merged.SetBool(key, col, mergeBools(col, nominal, tbl, members))
		}
	}
	// Stash per-year attributes in side columns for exact disaggregation.
	for _, attr := range expandNominal(storedAttrs, nominal) {
		if !tbl.HasFloat(attr) {
			continue
		}
		//
		for _, id := range tbl.Index() {
			year := int(tbl.Float(id, "build_year"))
			if year <= 0 {
				continue
			}
			//
			merged.SetFloat(aggID(id), fmt.Sprintf("%s-%d", attr, year), tbl.Float(id, attr))
		}
	}

	for _, attr := range expandNominal(storedBoolAttrs, nominal) {
		if !tbl.HasBool(attr) {
			continue
		}
		//
		for _, id := range tbl.Index() {
			year := int(tbl.Float(id, "build_year"))
			if year <= 0 {
				continue
			}
			//
			merged.SetBool(aggID(id), fmt.Sprintf("%s-%d", attr, year), tbl.Bool(id, attr))
		}
	}
	// Merge time-varying data: per-unit profiles average across members,
	// everything else (power, energy, inflow) adds up.
	dynamic := make(map[string]*network.Series)

	for attr, series := range n.Dynamic(kind) {
		out := network.NewSeries(len(n.Snapshots))

		for _, key := range order {
			var present []string

			for _, id := range groups[key] {
				if series.Has(id) {
					present = append(present, id)
				}
			}
			//
			if len(present) == 0 {
				continue
			}
			//
			column := make([]float64, len(n.Snapshots))

			for t := range column {
				for _, id := range present {
					column[t] += series.At(t, id)
				}
				//
				if perUnitSeries(attr) {
					column[t] /= float64(len(present))
				}
			}
			//
			out.SetColumn(key, column)
		}
		//
		dynamic[attr] = out
	}
	//
	n.SetStatic(kind, merged)
	n.SetDynamic(kind, dynamic)
}

// mergeBools merges one bool column across a group: extendability and the
// reversed flag hold if any member holds, everything else follows the first
// member.
func mergeBools(col, nominal string, tbl *network.Table, members []string) bool {
	if col == nominal+"_extendable" || col == "reversed" {
		for _, id := range members {
			if tbl.Bool(id, col) {
				return true
			}
		}
		//
		return false
	}
	//
	return tbl.Bool(members[0], col)
}

// perUnitSeries recognises time-varying attributes expressed per unit of
// nominal capacity, which must be averaged rather than summed when merging.
func perUnitSeries(attr string) bool {
	switch attr {
	case "p_max_pu", "p_min_pu", "e_max_pu", "e_min_pu", "s_max_pu":
		return true
	default:
		return false
	}
}
