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

package constraints

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/consensys/go-gridplan/pkg/config"
	"github.com/consensys/go-gridplan/pkg/model"
	"github.com/consensys/go-gridplan/pkg/network"
	log "github.com/sirupsen/logrus"
)

// AddBAUConstraints enforces a minimal overall capacity per carrier across
// all nodes, e.g. at least 100 GW of OCGT in total.
func AddBAUConstraints(m *model.Model, n *network.Network, mincaps map[string]float64) {
	block := nominalBlock(m, network.GeneratorKind)
	if block == nil {
		return
	}
	// Capacity expression per extendable carrier.
	exprs := make(map[string]model.LinExpr)

	for _, id := range block.Ids() {
		carrier := n.Generators.String(id, "carrier")

		expr, ok := exprs[carrier]
		if !ok {
			expr = model.NewLinExpr()
		}
		//
		exprs[carrier] = expr.Add(block.At(id), 1)
	}
	//
	carriers := make([]string, 0, len(exprs))
	for carrier := range exprs {
		carriers = append(carriers, carrier)
	}
	//
	sort.Strings(carriers)

	for _, carrier := range carriers {
		mincap, ok := mincaps[carrier]
		if !ok {
			continue
		}
		//
		m.AddConstraint("bau_mincaps", carrier, exprs[carrier], model.GreaterEqual, mincap)
	}
}

// AddSAFEConstraints requires conventional capacity to cover peak demand plus
// a reserve margin.  Renewables and storage do not contribute, and network
// transfers are ignored.
func AddSAFEConstraints(m *model.Model, n *network.Network, reserveMargin float64, conventionalCarriers []string) {
	block := nominalBlock(m, network.GeneratorKind)
	if block == nil {
		return
	}
	//
	conventional := make(map[string]bool, len(conventionalCarriers))
	for _, c := range conventionalCarriers {
		conventional[c] = true
	}
	// Peak total demand over the horizon.
	peak := 0.0

	for t := range n.Snapshots {
		total := 0.0
		for _, id := range n.Loads.Index() {
			total += n.SeriesAt(network.LoadKind, "p_set", t, id)
		}
		//
		peak = math.Max(peak, total)
	}
	//
	var (
		expr     = model.NewLinExpr()
		existing = 0.0
	)
	//
	for _, id := range n.Generators.Index() {
		if !conventional[n.Generators.String(id, "carrier")] {
			continue
		}
		//
		if block.Has(id) {
			expr = expr.Add(block.At(id), 1)
		} else {
			existing += n.Generators.Float(id, "p_nom")
		}
	}
	//
	if expr.Len() == 0 {
		warnEmpty("safe_mintotalcap")
		return
	}
	//
	rhs := peak*(1+reserveMargin) - existing
	m.AddConstraint("safe_mintotalcap", "total", expr, model.GreaterEqual, rhs)
}

// offwindAggregated maps all offshore wind variants onto a single carrier
// name for country/carrier capacity accounting.
func offwindAggregated(carrier string) string {
	switch carrier {
	case "offwind", "offwind-ac", "offwind-dc":
		return "offwind-all"
	default:
		return carrier
	}
}

// AddCCLConstraints enforces per-country, per-carrier bounds on generator
// nominal capacity, read from the configured capacity bounds file.  When
// existing capacity is included, standing plants still alive in the current
// horizon use up part of each bound.
func AddCCLConstraints(m *model.Model, n *network.Network, bounds config.CapacityBounds,
	opts config.AggPNomLimits, currentHorizon int) {
	block := nominalBlock(m, network.GeneratorKind)
	if block == nil {
		return
	}
	//
	log.Info("adding generation capacity constraints per carrier and country")
	//
	carrierOf := func(id string) string {
		carrier := n.Generators.String(id, "carrier")
		if opts.AggOffwind {
			carrier = offwindAggregated(carrier)
		}
		//
		return carrier
	}
	// Extendable capacity expression per (country, carrier) group.
	exprs := make(map[string]model.LinExpr)

	for _, id := range block.Ids() {
		country := busCountry(n, n.Generators.String(id, "bus"))
		if country == "" {
			continue
		}
		//
		key := config.BoundKey(country, carrierOf(id))

		expr, ok := exprs[key]
		if !ok {
			expr = model.NewLinExpr()
		}
		//
		exprs[key] = expr.Add(block.At(id), 1)
	}
	// Standing capacity per group, restricted to plants still alive.
	existing := make(map[string]float64)

	if opts.IncludeExisting {
		for _, id := range n.Generators.Index() {
			if n.Generators.Bool(id, "p_nom_extendable") {
				continue
			}
			//
			var (
				buildYear = n.Generators.Float(id, "build_year")
				lifetime  = n.Generators.FloatOr(id, "lifetime", math.Inf(1))
			)
			//
			if buildYear+lifetime < float64(currentHorizon) {
				continue
			}
			//
			country := busCountry(n, n.Generators.String(id, "bus"))
			if country == "" {
				continue
			}
			//
			existing[config.BoundKey(country, carrierOf(id))] += n.Generators.Float(id, "p_nom")
		}
	}
	//
	keys := make([]string, 0, len(exprs))
	for key := range exprs {
		keys = append(keys, key)
	}
	//
	sort.Strings(keys)

	for _, key := range keys {
		bound, ok := bounds[key]
		if !ok {
			continue
		}
		//
		if !math.IsNaN(bound.Min) {
			rhs := math.Max(0, bound.Min-existing[key])
			m.AddConstraint("agg_p_nom_min", key, exprs[key], model.GreaterEqual, rhs)
		}

		if !math.IsNaN(bound.Max) {
			rhs := math.Max(0, bound.Max-existing[key])
			m.AddConstraint("agg_p_nom_max", key, exprs[key], model.LessEqual, rhs)
		}
	}
}

// eqScaling rescales the equity constraint rows to keep their coefficients
// close to unity.
const eqScaling = 1e-1

var eqLevelRegex = regexp.MustCompile(`[0-9]*\.?[0-9]+`)

// AddEQConstraints requires each country (suffix "c") or node to produce, on
// average, a minimal share of its own consumption.  For example "0.7c"
// demands every country to produce at least 70% of what it consumes.
// Hydro inflow counts towards production, so spilled inflow is subtracted.
func AddEQConstraints(m *model.Model, n *network.Network, o string, scaling float64) error {
	match := eqLevelRegex.FindString(o)
	if match == "" {
		return fmt.Errorf("invalid equity level %q", o)
	}
	//
	level, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return fmt.Errorf("invalid equity level %q: %w", o, err)
	}
	//
	byCountry := len(o) > 0 && o[len(o)-1] == 'c'
	grouper := func(bus string) string {
		if byCountry {
			return busCountry(n, bus)
		}
		//
		return bus
	}
	//
	var (
		dispatch = m.Block("Generator-p")
		spill    = m.Block("StorageUnit-spill")
		inflow   = n.Dynamic(network.StorageUnitKind)["inflow"]
	)
	//
	if dispatch == nil {
		return nil
	}
	// Weighted consumption and inflow per group.
	var (
		load      = make(map[string]float64)
		inflowSum = make(map[string]float64)
	)
	//
	for t := range n.Snapshots {
		w := n.SnapshotWeightings[t].Generators

		for _, id := range n.Loads.Index() {
			group := grouper(n.Loads.String(id, "bus"))
			load[group] += w * n.SeriesAt(network.LoadKind, "p_set", t, id)
		}
	}
	//
	if inflow != nil {
		for t := range n.Snapshots {
			w := n.SnapshotWeightings[t].Stores

			for _, id := range inflow.Columns() {
				group := grouper(n.StorageUnits.String(id, "bus"))
				inflowSum[group] += w * inflow.At(t, id)
			}
		}
	}
	// Weighted production per group.
	exprs := make(map[string]model.LinExpr)
	at := func(group string) model.LinExpr {
		expr, ok := exprs[group]
		if !ok {
			expr = model.NewLinExpr()
			exprs[group] = expr
		}
		//
		return expr
	}
	//
	for _, id := range n.Generators.Index() {
		group := grouper(n.Generators.String(id, "bus"))
		if _, ok := load[group]; !ok {
			continue
		}
		//
		expr := at(group)
		for t := range n.Snapshots {
			expr.Add(dispatch.AtT(t, id), scaling*n.SnapshotWeightings[t].Generators)
		}
	}
	//
	if spill != nil {
		for _, id := range spill.Ids() {
			group := grouper(n.StorageUnits.String(id, "bus"))
			if _, ok := exprs[group]; !ok {
				continue
			}
			//
			expr := exprs[group]
			for t := range n.Snapshots {
				expr.Add(spill.AtT(t, id), -scaling*n.SnapshotWeightings[t].Stores)
			}
		}
	}
	//
	groups := make([]string, 0, len(exprs))
	for group := range exprs {
		groups = append(groups, group)
	}
	//
	sort.Strings(groups)

	for _, group := range groups {
		rhs := scaling * (level*load[group] - inflowSum[group])
		m.AddConstraint("equity_min", group, exprs[group], model.GreaterEqual, rhs)
	}
	//
	return nil
}

// AddGreenImportsLimConstraint limits total green fuel imports to the total
// amount of green hydrogen produced by electrolysis.
func AddGreenImportsLimConstraint(m *model.Model, n *network.Network, sector config.Sector) {
	if !sector.GreenImports {
		return
	}
	//
	dispatch := m.Block("Link-p")
	if dispatch == nil {
		return
	}
	//
	importCarriers := make(map[string]bool, len(sector.GreenImportCarriers))
	for _, c := range sector.GreenImportCarriers {
		importCarriers[c+" green import"] = true
	}
	//
	expr := model.NewLinExpr()
	found := false

	for _, id := range n.Links.Index() {
		var (
			carrier = n.Links.String(id, "carrier")
			eff     = n.Links.FloatOr(id, "efficiency", 1)
		)
		//
		switch {
		case importCarriers[carrier]:
			found = true

			for t := range n.Snapshots {
				expr = expr.Add(dispatch.AtT(t, id), n.SnapshotWeightings[t].Generators)
			}
		case carrier == "H2 Electrolysis":
			for t := range n.Snapshots {
				expr = expr.Add(dispatch.AtT(t, id), -eff*n.SnapshotWeightings[t].Generators)
			}
		}
	}
	//
	if !found {
		return
	}
	//
	m.AddConstraint("green_imports_limit", "total", expr, model.LessEqual, 0)
}

// AddOperationalReserveMargin builds reserve margin constraints following the
// GenX reserve formulation: reserve variables per generator and snapshot, a
// system-wide reserve requirement proportional to load and variable renewable
// output plus a fixed contingency, and a capacity limit on dispatch plus
// reserve.
func AddOperationalReserveMargin(m *model.Model, n *network.Network, opts config.OperationalReserve) {
	var (
		dispatch = m.Block("Generator-p")
		capacity = nominalBlock(m, network.GeneratorKind)
		maxPu    = n.Dynamic(network.GeneratorKind)["p_max_pu"]
	)
	//
	if dispatch == nil {
		return
	}
	//
	reserve := m.AddVariables("Generator-r", network.GeneratorKind,
		n.Generators.Index(), len(n.Snapshots), 0, math.Inf(1))
	// Variable renewables are the generators with a capacity factor series.
	vres := func(id string) bool {
		return maxPu != nil && maxPu.Has(id)
	}
	//
	for t := range n.Snapshots {
		var (
			expr      = model.NewLinExpr()
			demand    = 0.0
			potential = 0.0
		)
		//
		for _, id := range n.Generators.Index() {
			expr = expr.Add(reserve.AtT(t, id), 1)
			//
			if !vres(id) {
				continue
			}
			// Extendable renewables contribute their (variable) capacity to
			// the requirement; standing ones contribute a constant potential.
			if capacity != nil && capacity.Has(id) {
				expr = expr.Add(capacity.At(id), -opts.EpsilonVRES*maxPu.At(t, id))
			} else {
				potential += maxPu.At(t, id) * n.Generators.Float(id, "p_nom")
			}
		}
		//
		for _, id := range n.Loads.Index() {
			demand += n.SeriesAt(network.LoadKind, "p_set", t, id)
		}
		//
		rhs := opts.EpsilonLoad*demand + opts.EpsilonVRES*potential + opts.Contingency
		m.AddConstraint("reserve_margin", strconv.Itoa(t), expr, model.GreaterEqual, rhs)
	}
	// Dispatch plus reserve must stay within available capacity.
	for _, id := range n.Generators.Index() {
		for t := range n.Snapshots {
			var (
				pu   = seriesMaxPu(n, t, id)
				expr = model.NewLinExpr().
					Add(dispatch.AtT(t, id), 1).
					Add(reserve.AtT(t, id), 1)
			)
			//
			if capacity != nil && capacity.Has(id) {
				expr = expr.Add(capacity.At(id), -pu)
				m.AddConstraint("Generator-p-reserve-upper", fmt.Sprintf("%s/%d", id, t), expr, model.LessEqual, 0)
			} else {
				rhs := pu * n.Generators.Float(id, "p_nom")
				m.AddConstraint("Generator-p-reserve-upper", fmt.Sprintf("%s/%d", id, t), expr, model.LessEqual, rhs)
			}
		}
	}
}

// seriesMaxPu resolves the per-unit availability of a generator at one
// snapshot.
func seriesMaxPu(n *network.Network, t int, id string) float64 {
	if s, ok := n.Dynamic(network.GeneratorKind)["p_max_pu"]; ok && s.Has(id) {
		return s.At(t, id)
	}
	//
	return n.Generators.FloatOr(id, "p_max_pu", 1)
}
