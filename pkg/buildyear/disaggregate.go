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
	"math"
	"time"

	"github.com/consensys/go-gridplan/pkg/network"
	log "github.com/sirupsen/logrus"
)

// Disaggregate undoes a build-year aggregation on a solved network: merged
// components are split back into their per-year members, stashed attributes
// are restored exactly, and optimisation outputs are distributed across the
// members.  Capacity optimised in the given planning horizon is what remains
// of the aggregate's optimum after earlier build years take back their stashed
// capacity; output series are rescaled in proportion to capacity.
func Disaggregate(n *network.Network, indices Indices, planningHorizon int) {
	start := time.Now()
	//
	for _, kind := range network.OptimisableKinds() {
		original, ok := indices[kind]
		if !ok {
			continue
		}
		//
		disaggregateKind(n, kind, original, planningHorizon)
	}
	//
	log.Infof("disaggregated build years in %.1f seconds", time.Since(start).Seconds())
}

func disaggregateKind(n *network.Network, kind network.Kind, original []string, planningHorizon int) {
	var (
		tbl     = n.Static(kind)
		nominal = network.NominalAttr(kind)
		aggOf   = make(map[string]string)
	)
	// Components of the original index no longer present were merged into an
	// aggregate; they are the ones to restore.
	var restored []string

	for _, id := range original {
		if !tbl.Has(id) {
			restored = append(restored, id)
			aggOf[id] = stripYear(id)
		}
	}
	// Summed capacity stashed for build years before the planning horizon;
	// whatever the aggregate's optimum holds beyond this was built now.
	priorYears := func() []string {
		var cols []string

		for _, col := range tbl.FloatColumns() {
			if year := suffixYear(col); year > 0 && year < planningHorizon &&
				stripYear(col) == nominal {
				cols = append(cols, col)
			}
		}
		//
		return cols
	}()
	//
	for _, id := range restored {
		var (
			agg  = aggOf[id]
			year = suffixYear(id)
		)
		//
		if err := tbl.AddRow(id); err != nil {
			// Unreachable: restored ids are absent from the table.
			panic(err)
		}
		// Start from a copy of the aggregate row.
		for _, col := range tbl.FloatColumns() {
			tbl.SetFloat(id, col, tbl.Float(agg, col))
		}

		for _, col := range tbl.StringColumns() {
			tbl.SetString(id, col, tbl.String(agg, col))
		}

		for _, col := range tbl.BoolColumns() {
			tbl.SetBool(id, col, tbl.Bool(agg, col))
		}
		//
		tbl.SetFloat(id, "build_year", float64(year))
		// Restore the stashed per-year attributes exactly.
		for _, attr := range expandNominal(storedAttrs, nominal) {
			if col := fmt.Sprintf("%s-%d", attr, year); tbl.HasFloat(col) {
				tbl.SetFloat(id, attr, tbl.Float(agg, col))
			}
		}

		for _, attr := range expandNominal(storedBoolAttrs, nominal) {
			if col := fmt.Sprintf("%s-%d", attr, year); tbl.HasBool(col) {
				tbl.SetBool(id, attr, tbl.Bool(agg, col))
			}
		}
		//
		if year == planningHorizon {
			// The capacity built this horizon is the aggregate optimum minus
			// what earlier build years contributed.
			opt := tbl.Float(agg, nominal+"_opt")
			for _, col := range priorYears {
				opt -= tbl.Float(agg, col)
			}
			//
			tbl.SetFloat(id, nominal+"_opt", opt)
			tbl.SetBool(id, nominal+"_extendable", true)
		} else {
			tbl.SetFloat(id, nominal+"_opt", tbl.Float(id, nominal))
		}
	}
	// Distribute time-varying data: each member inherits the aggregate's
	// series, with outputs rescaled by its share of capacity.  Shadow price
	// series are duplicated unscaled.
	for attr, series := range n.Dynamic(kind) {
		for _, id := range restored {
			agg := aggOf[id]
			if !series.Has(agg) {
				continue
			}
			//
			series.SetColumn(id, series.Column(agg))
			//
			if network.IsOutputSeries(kind, attr) && !network.IsShadowPriceSeries(attr) {
				series.ScaleColumn(id, capacityShare(tbl, nominal, id, agg))
			}
		}
	}
	// Drop the stash columns and the aggregate rows themselves.
	var stale []string

	for _, col := range tbl.FloatColumns() {
		if suffixYear(col) > 0 {
			stale = append(stale, col)
		}
	}
	//
	tbl.DropFloatColumns(stale...)
	//
	stale = stale[:0]

	for _, col := range tbl.BoolColumns() {
		if suffixYear(col) > 0 {
			stale = append(stale, col)
		}
	}
	//
	tbl.DropBoolColumns(stale...)
	//
	keep := make(map[string]bool, len(original))
	for _, id := range original {
		keep[id] = true
	}
	//
	var aggregates []string

	for _, id := range tbl.Index() {
		if !keep[id] {
			aggregates = append(aggregates, id)
		}
	}
	//
	tbl.RemoveRows(aggregates...)

	for _, series := range n.Dynamic(kind) {
		series.RemoveColumns(aggregates...)
	}
}

// capacityShare computes a restored member's share of its aggregate's
// capacity, using optimised capacity when the aggregate was extendable and
// nominal capacity otherwise.  A zero-capacity aggregate shares nothing.
func capacityShare(tbl *network.Table, nominal, id, agg string) float64 {
	attr := nominal
	if tbl.Bool(agg, nominal+"_extendable") {
		attr = nominal + "_opt"
	}
	//
	total := tbl.Float(agg, attr)
	if total == 0 || math.IsNaN(total) {
		return 0
	}
	//
	return tbl.Float(id, attr) / total
}
