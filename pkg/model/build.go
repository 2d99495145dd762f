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
package model

import (
	"fmt"
	"math"

	"github.com/consensys/go-gridplan/pkg/network"
)

// Build assembles the base optimisation model for a network: dispatch and
// nominal capacity variables, dispatch-capacity coupling, nodal balance,
// storage dynamics, global constraint records and the cost objective.  The
// constraint library runs afterwards and only appends to the result.
func Build(n *network.Network) (*Model, error) {
	m := NewModel()
	b := builder{m: m, n: n, nsnaps: len(n.Snapshots)}
	//
	b.addGenerators()
	b.addLinks()
	b.addLines()
	b.addStores()
	b.addStorageUnits()
	b.addNodalBalance()
	//
	if err := b.addGlobalConstraints(); err != nil {
		return nil, err
	}
	//
	b.addGrowthLimits()
	//
	return m, nil
}

type builder struct {
	m      *Model
	n      *network.Network
	nsnaps int
}

// extendable partitions a table's index by its capacity extendability flag.
func extendable(tbl *network.Table, attr string) (ext, fix []string) {
	for _, id := range tbl.Index() {
		if tbl.Bool(id, attr+"_extendable") {
			ext = append(ext, id)
		} else {
			fix = append(fix, id)
		}
	}
	//
	return ext, fix
}

// addDispatchBlock creates a time-varying dispatch block plus (for extendable
// components) a static nominal capacity block, wiring the standard coupling:
// for fixed components the per-unit profile bounds dispatch directly, for
// extendable ones via coupling rows against the nominal variable.  Inactive
// snapshots (outside a component's build-year/lifetime window) pin dispatch
// to zero.
func (b *builder) addDispatchBlock(kind network.Kind, dispatchAttr string, minDef, maxDef float64) {
	var (
		tbl  = b.n.Static(kind)
		attr = network.NominalAttr(kind)
	)
	//
	if tbl.Len() == 0 {
		return
	}
	//
	ext, _ := extendable(tbl, attr)
	name := fmt.Sprintf("%s-%s", kind, dispatchAttr)
	dispatch := b.m.AddVariables(name, kind, tbl.Index(), b.nsnaps, math.Inf(-1), math.Inf(1))
	//
	var nominal *VarBlock
	if len(ext) > 0 {
		nominal = b.m.AddVariables(fmt.Sprintf("%s-%s", kind, attr), kind, ext, 0, 0, 0)

		for _, id := range ext {
			v := nominal.At(id)
			b.m.SetLower(v, tbl.FloatOr(id, attr+"_min", 0))
			b.m.SetUpper(v, tbl.FloatOr(id, attr+"_max", math.Inf(1)))
			b.m.AddObjective(v, tbl.Float(id, "capital_cost"))
		}
	}
	//
	for _, id := range tbl.Index() {
		var (
			active   = b.n.ActivityMask(kind, id)
			isExt    = tbl.Bool(id, attr+"_extendable")
			pnom     = tbl.Float(id, attr)
			marginal = tbl.Float(id, "marginal_cost")
		)
		//
		for t := 0; t < b.nsnaps; t++ {
			v := dispatch.AtT(t, id)
			//
			if !active.Test(uint(t)) {
				b.m.Fix(v, 0)
				continue
			}
			//
			maxPu := seriesOr(b.n, kind, dispatchAttr+"_max_pu", t, id, maxDef)
			minPu := seriesOr(b.n, kind, dispatchAttr+"_min_pu", t, id, minDef)
			//
			if isExt {
				pn := nominal.At(id)
				//
				upper := NewLinExpr().Add(v, 1).Add(pn, -maxPu)
				b.m.AddConstraint(fmt.Sprintf("%s-ext-%s-upper", kind, dispatchAttr),
					fmt.Sprintf("%s/%d", id, t), upper, LessEqual, 0)
				//
				lower := NewLinExpr().Add(v, -1).Add(pn, minPu)
				b.m.AddConstraint(fmt.Sprintf("%s-ext-%s-lower", kind, dispatchAttr),
					fmt.Sprintf("%s/%d", id, t), lower, LessEqual, 0)
			} else {
				b.m.SetLower(v, minPu*pnom)
				b.m.SetUpper(v, maxPu*pnom)
			}
			//
			if marginal != 0 {
				b.m.AddObjective(v, marginal*b.n.SnapshotWeightings[t].Objective)
			}
		}
	}
}

// seriesOr resolves a switchable per-unit attribute: time-varying column
// first, then static column, then the kind's default.
func seriesOr(n *network.Network, kind network.Kind, attr string, t int, id string, def float64) float64 {
	if s, ok := n.Dynamic(kind)[attr]; ok && s.Has(id) {
		return s.At(t, id)
	}
	//
	return n.Static(kind).FloatOr(id, attr, def)
}

func (b *builder) addGenerators() {
	b.addDispatchBlock(network.GeneratorKind, "p", 0, 1)
}

func (b *builder) addLinks() {
	b.addDispatchBlock(network.LinkKind, "p", 0, 1)
}

// addLines gives each line a free flow variable bounded symmetrically by its
// nominal capacity.
func (b *builder) addLines() {
	tbl := b.n.Lines
	if tbl.Len() == 0 {
		return
	}
	//
	ext, fix := extendable(tbl, "s_nom")
	flow := b.m.AddVariables("Line-s", network.LineKind, tbl.Index(), b.nsnaps, math.Inf(-1), math.Inf(1))
	//
	var nominal *VarBlock
	if len(ext) > 0 {
		nominal = b.m.AddVariables("Line-s_nom", network.LineKind, ext, 0, 0, 0)

		for _, id := range ext {
			v := nominal.At(id)
			b.m.SetLower(v, tbl.FloatOr(id, "s_nom_min", 0))
			b.m.SetUpper(v, tbl.FloatOr(id, "s_nom_max", math.Inf(1)))
			b.m.AddObjective(v, tbl.Float(id, "capital_cost"))
		}
	}
	//
	for t := 0; t < b.nsnaps; t++ {
		for _, id := range ext {
			var (
				v     = flow.AtT(t, id)
				sMax  = seriesOr(b.n, network.LineKind, "s_max_pu", t, id, 1)
				upper = NewLinExpr().Add(v, 1).Add(nominal.At(id), -sMax)
				lower = NewLinExpr().Add(v, -1).Add(nominal.At(id), -sMax)
			)
			//
			b.m.AddConstraint("Line-ext-s-upper", fmt.Sprintf("%s/%d", id, t), upper, LessEqual, 0)
			b.m.AddConstraint("Line-ext-s-lower", fmt.Sprintf("%s/%d", id, t), lower, LessEqual, 0)
		}
		//
		for _, id := range fix {
			var (
				v    = flow.AtT(t, id)
				sMax = seriesOr(b.n, network.LineKind, "s_max_pu", t, id, 1)
				snom = tbl.Float(id, "s_nom")
			)
			//
			b.m.SetLower(v, -sMax*snom)
			b.m.SetUpper(v, sMax*snom)
		}
	}
}

// addStores creates energy-level and power variables for stores, with the
// energy balance e(t) = (1 - standing_loss) * e(t-1) - w(t) * p(t) and
// either cyclic closure or an initial level.
func (b *builder) addStores() {
	tbl := b.n.Stores
	if tbl.Len() == 0 {
		return
	}
	//
	ext, fix := extendable(tbl, "e_nom")
	energy := b.m.AddVariables("Store-e", network.StoreKind, tbl.Index(), b.nsnaps, math.Inf(-1), math.Inf(1))
	power := b.m.AddVariables("Store-p", network.StoreKind, tbl.Index(), b.nsnaps, math.Inf(-1), math.Inf(1))
	//
	var nominal *VarBlock
	if len(ext) > 0 {
		nominal = b.m.AddVariables("Store-e_nom", network.StoreKind, ext, 0, 0, 0)

		for _, id := range ext {
			v := nominal.At(id)
			b.m.SetLower(v, tbl.FloatOr(id, "e_nom_min", 0))
			b.m.SetUpper(v, tbl.FloatOr(id, "e_nom_max", math.Inf(1)))
			b.m.AddObjective(v, tbl.Float(id, "capital_cost"))
		}
	}
	//
	for t := 0; t < b.nsnaps; t++ {
		for _, id := range ext {
			var (
				e     = energy.AtT(t, id)
				eMax  = seriesOr(b.n, network.StoreKind, "e_max_pu", t, id, 1)
				eMin  = seriesOr(b.n, network.StoreKind, "e_min_pu", t, id, 0)
				upper = NewLinExpr().Add(e, 1).Add(nominal.At(id), -eMax)
				lower = NewLinExpr().Add(e, -1).Add(nominal.At(id), eMin)
			)
			//
			b.m.AddConstraint("Store-ext-e-upper", fmt.Sprintf("%s/%d", id, t), upper, LessEqual, 0)
			b.m.AddConstraint("Store-ext-e-lower", fmt.Sprintf("%s/%d", id, t), lower, LessEqual, 0)
		}
		//
		for _, id := range fix {
			var (
				e    = energy.AtT(t, id)
				enom = tbl.Float(id, "e_nom")
				eMax = seriesOr(b.n, network.StoreKind, "e_max_pu", t, id, 1)
				eMin = seriesOr(b.n, network.StoreKind, "e_min_pu", t, id, 0)
			)
			//
			b.m.SetLower(e, eMin*enom)
			b.m.SetUpper(e, eMax*enom)
		}
	}
	// Energy balance
	for _, id := range tbl.Index() {
		var (
			loss     = tbl.Float(id, "standing_loss")
			cyclic   = tbl.Bool(id, "e_cyclic")
			marginal = tbl.Float(id, "marginal_cost")
		)
		//
		for t := 0; t < b.nsnaps; t++ {
			w := b.n.SnapshotWeightings[t].Stores
			expr := NewLinExpr().Add(energy.AtT(t, id), 1).Add(power.AtT(t, id), w)
			rhs := 0.0
			//
			switch {
			case t > 0:
				expr = expr.Add(energy.AtT(t-1, id), -(1 - loss))
			case cyclic:
				expr = expr.Add(energy.AtT(b.nsnaps-1, id), -(1 - loss))
			default:
				rhs = (1 - loss) * tbl.Float(id, "e_initial")
			}
			//
			b.m.AddConstraint("Store-energy-balance", fmt.Sprintf("%s/%d", id, t), expr, Equal, rhs)
			//
			if marginal != 0 {
				b.m.AddObjective(power.AtT(t, id), marginal*b.n.SnapshotWeightings[t].Objective)
			}
		}
	}
}

// addStorageUnits creates dispatch, charging, state-of-charge and (for units
// with inflow) spill variables, with the state-of-charge balance carrying
// inflow minus spillage.
func (b *builder) addStorageUnits() {
	tbl := b.n.StorageUnits
	if tbl.Len() == 0 {
		return
	}
	//
	var (
		ext, fix = extendable(tbl, "p_nom")
		inflow   = b.n.Dynamic(network.StorageUnitKind)["inflow"]
		dispatch = b.m.AddVariables("StorageUnit-p_dispatch", network.StorageUnitKind, tbl.Index(), b.nsnaps, 0, math.Inf(1))
		store    = b.m.AddVariables("StorageUnit-p_store", network.StorageUnitKind, tbl.Index(), b.nsnaps, 0, math.Inf(1))
		soc      = b.m.AddVariables("StorageUnit-state_of_charge", network.StorageUnitKind, tbl.Index(), b.nsnaps, 0, math.Inf(1))
	)
	//
	var spill *VarBlock
	if inflow != nil && inflow.Len() > 0 {
		spill = b.m.AddVariables("StorageUnit-spill", network.StorageUnitKind, inflow.Columns(), b.nsnaps, 0, 0)

		for _, id := range inflow.Columns() {
			for t := 0; t < b.nsnaps; t++ {
				b.m.SetUpper(spill.AtT(t, id), math.Max(0, inflow.At(t, id)))
			}
		}
	}
	//
	var nominal *VarBlock
	if len(ext) > 0 {
		nominal = b.m.AddVariables("StorageUnit-p_nom", network.StorageUnitKind, ext, 0, 0, 0)

		for _, id := range ext {
			v := nominal.At(id)
			b.m.SetLower(v, tbl.FloatOr(id, "p_nom_min", 0))
			b.m.SetUpper(v, tbl.FloatOr(id, "p_nom_max", math.Inf(1)))
			b.m.AddObjective(v, tbl.Float(id, "capital_cost"))
		}
	}
	//
	for t := 0; t < b.nsnaps; t++ {
		for _, id := range ext {
			var (
				maxPu    = seriesOr(b.n, network.StorageUnitKind, "p_max_pu", t, id, 1)
				minPu    = seriesOr(b.n, network.StorageUnitKind, "p_min_pu", t, id, -1)
				maxHours = tbl.FloatOr(id, "max_hours", 1)
				pn       = nominal.At(id)
			)
			//
			b.m.AddConstraint("StorageUnit-ext-p_dispatch-upper", fmt.Sprintf("%s/%d", id, t),
				NewLinExpr().Add(dispatch.AtT(t, id), 1).Add(pn, -maxPu), LessEqual, 0)
			b.m.AddConstraint("StorageUnit-ext-p_store-upper", fmt.Sprintf("%s/%d", id, t),
				NewLinExpr().Add(store.AtT(t, id), 1).Add(pn, minPu), LessEqual, 0)
			b.m.AddConstraint("StorageUnit-ext-state_of_charge-upper", fmt.Sprintf("%s/%d", id, t),
				NewLinExpr().Add(soc.AtT(t, id), 1).Add(pn, -maxHours), LessEqual, 0)
		}
		//
		for _, id := range fix {
			var (
				pnom     = tbl.Float(id, "p_nom")
				maxPu    = seriesOr(b.n, network.StorageUnitKind, "p_max_pu", t, id, 1)
				minPu    = seriesOr(b.n, network.StorageUnitKind, "p_min_pu", t, id, -1)
				maxHours = tbl.FloatOr(id, "max_hours", 1)
			)
			//
			b.m.SetUpper(dispatch.AtT(t, id), maxPu*pnom)
			b.m.SetUpper(store.AtT(t, id), -minPu*pnom)
			b.m.SetUpper(soc.AtT(t, id), maxHours*pnom)
		}
	}
	// State-of-charge balance
	for _, id := range tbl.Index() {
		var (
			loss     = tbl.Float(id, "standing_loss")
			cyclic   = tbl.Bool(id, "cyclic_state_of_charge")
			effStore = tbl.FloatOr(id, "efficiency_store", 1)
			effDisp  = tbl.FloatOr(id, "efficiency_dispatch", 1)
			marginal = tbl.Float(id, "marginal_cost")
		)
		//
		for t := 0; t < b.nsnaps; t++ {
			w := b.n.SnapshotWeightings[t].Stores
			expr := NewLinExpr().
				Add(soc.AtT(t, id), 1).
				Add(store.AtT(t, id), -w*effStore).
				Add(dispatch.AtT(t, id), w/effDisp)
			//
			rhs := 0.0
			if inflow != nil && inflow.Has(id) {
				rhs = w * inflow.At(t, id)
				expr = expr.Add(spill.AtT(t, id), w)
			}
			//
			switch {
			case t > 0:
				expr = expr.Add(soc.AtT(t-1, id), -(1 - loss))
			case cyclic:
				expr = expr.Add(soc.AtT(b.nsnaps-1, id), -(1 - loss))
			default:
				rhs += (1 - loss) * tbl.Float(id, "state_of_charge_initial")
			}
			//
			b.m.AddConstraint("StorageUnit-soc-balance", fmt.Sprintf("%s/%d", id, t), expr, Equal, rhs)
			//
			if marginal != 0 {
				b.m.AddObjective(dispatch.AtT(t, id), marginal*b.n.SnapshotWeightings[t].Objective)
			}
		}
	}
}

// addNodalBalance asserts, per bus and snapshot, that generation, link flows,
// line flows and storage exchange equal demand.
func (b *builder) addNodalBalance() {
	if b.n.Buses.Len() == 0 {
		return
	}
	//
	type contribution struct {
		index int
		coeff float64
	}
	//
	balance := make(map[string][]contribution, b.n.Buses.Len())
	for _, bus := range b.n.Buses.Index() {
		balance[bus] = nil
	}
	//
	demand := make(map[string][]float64)
	for _, bus := range b.n.Buses.Index() {
		demand[bus] = make([]float64, b.nsnaps)
	}
	//
	for t := 0; t < b.nsnaps; t++ {
		perBus := make(map[string]LinExpr, len(balance))
		expr := func(bus string) LinExpr {
			e, ok := perBus[bus]
			if !ok {
				e = NewLinExpr()
				perBus[bus] = e
			}
			//
			return e
		}
		// Generators
		if block := b.m.Block("Generator-p"); block != nil {
			for _, id := range b.n.Generators.Index() {
				bus := b.n.Generators.String(id, "bus")
				if _, ok := balance[bus]; ok {
					sign := b.n.Generators.FloatOr(id, "sign", 1)
					expr(bus).Add(block.AtT(t, id), sign)
				}
			}
		}
		// Links: power drawn at bus0, delivered (scaled by efficiency) at
		// bus1 and onwards.
		if block := b.m.Block("Link-p"); block != nil {
			for _, id := range b.n.Links.Index() {
				if bus := b.n.Links.String(id, "bus0"); bus != "" {
					if _, ok := balance[bus]; ok {
						expr(bus).Add(block.AtT(t, id), -1)
					}
				}
				//
				for i, effAttr := range []string{"efficiency", "efficiency2", "efficiency3", "efficiency4"} {
					bus := b.n.Links.String(id, fmt.Sprintf("bus%d", i+1))
					if bus == "" {
						continue
					}
					//
					if _, ok := balance[bus]; ok {
						eff := b.n.Links.FloatOr(id, effAttr, 1)
						if math.IsNaN(eff) {
							continue
						}
						//
						expr(bus).Add(block.AtT(t, id), eff)
					}
				}
			}
		}
		// Lines
		if block := b.m.Block("Line-s"); block != nil {
			for _, id := range b.n.Lines.Index() {
				if bus := b.n.Lines.String(id, "bus0"); bus != "" {
					expr(bus).Add(block.AtT(t, id), -1)
				}

				if bus := b.n.Lines.String(id, "bus1"); bus != "" {
					expr(bus).Add(block.AtT(t, id), 1)
				}
			}
		}
		// Stores
		if block := b.m.Block("Store-p"); block != nil {
			for _, id := range b.n.Stores.Index() {
				if bus := b.n.Stores.String(id, "bus"); bus != "" {
					expr(bus).Add(block.AtT(t, id), 1)
				}
			}
		}
		// Storage units
		if dispatch := b.m.Block("StorageUnit-p_dispatch"); dispatch != nil {
			store := b.m.Block("StorageUnit-p_store")

			for _, id := range b.n.StorageUnits.Index() {
				if bus := b.n.StorageUnits.String(id, "bus"); bus != "" {
					expr(bus).Add(dispatch.AtT(t, id), 1).Add(store.AtT(t, id), -1)
				}
			}
		}
		// Loads
		for _, id := range b.n.Loads.Index() {
			bus := b.n.Loads.String(id, "bus")
			if _, ok := demand[bus]; ok {
				demand[bus][t] += b.n.SeriesAt(network.LoadKind, "p_set", t, id)
			}
		}
		//
		for _, bus := range b.n.Buses.Index() {
			e, ok := perBus[bus]
			if !ok {
				continue
			}
			//
			b.m.AddConstraint("Bus-nodal-balance", fmt.Sprintf("%s/%d", bus, t), e, Equal, demand[bus][t])
		}
	}
}

// addGlobalConstraints materialises the primary-energy and operational-limit
// global constraint records.  Atmosphere/budget records are handled by the
// constraint library instead.
func (b *builder) addGlobalConstraints() error {
	gcs := b.n.GlobalConstraints
	//
	for _, name := range gcs.Index() {
		switch gcs.String(name, "type") {
		case "primary_energy":
			if err := b.addPrimaryEnergyLimit(name); err != nil {
				return err
			}
		case "operational_limit":
			if err := b.addOperationalLimit(name); err != nil {
				return err
			}
		}
	}
	//
	return nil
}

// addPrimaryEnergyLimit bounds total emissions attributed to generator fuel
// consumption, using the carrier attribute named by the record (typically
// co2_emissions).
func (b *builder) addPrimaryEnergyLimit(name string) error {
	var (
		gcs      = b.n.GlobalConstraints
		carattr  = gcs.String(name, "carrier_attribute")
		period   = int(gcs.FloatOr(name, "investment_period", -1))
		dispatch = b.m.Block("Generator-p")
	)
	//
	if dispatch == nil || !b.n.Carriers.HasFloat(carattr) {
		return nil
	}
	//
	sense, err := SenseFromString(gcs.String(name, "sense"))
	if err != nil {
		return err
	}
	//
	expr := NewLinExpr()

	for _, id := range b.n.Generators.Index() {
		var (
			carrier   = b.n.Generators.String(id, "carrier")
			emissions = b.n.Carriers.Float(carrier, carattr)
		)
		//
		if !b.n.Carriers.Has(carrier) || emissions == 0 {
			continue
		}
		//
		efficiency := b.n.Generators.FloatOr(id, "efficiency", 1)

		for t := range b.n.Snapshots {
			if period >= 0 && b.n.Snapshots[t].Period != period {
				continue
			}
			//
			expr = expr.Add(dispatch.AtT(t, id), emissions/efficiency*b.n.SnapshotWeightings[t].Generators)
		}
	}
	//
	if expr.Len() > 0 {
		b.m.AddConstraint("GlobalConstraint-"+name, name, expr, sense, gcs.Float(name, "constant"))
	}
	//
	return nil
}

// addOperationalLimit bounds the final energy level of all stores of the
// record's carrier within the record's investment period (or the whole
// horizon for single-period models).
func (b *builder) addOperationalLimit(name string) error {
	var (
		gcs     = b.n.GlobalConstraints
		carrier = gcs.String(name, "carrier_attribute")
		period  = int(gcs.FloatOr(name, "investment_period", -1))
		energy  = b.m.Block("Store-e")
	)
	//
	if energy == nil {
		return nil
	}
	//
	sense, err := SenseFromString(gcs.String(name, "sense"))
	if err != nil {
		return err
	}
	//
	last := len(b.n.Snapshots) - 1
	if period >= 0 {
		if last = b.n.LastPeriodSnapshot(period); last < 0 {
			return nil
		}
	}
	//
	expr := NewLinExpr()

	for _, id := range b.n.Stores.Index() {
		if b.n.Stores.String(id, "carrier") == carrier {
			expr = expr.Add(energy.AtT(last, id), 1)
		}
	}
	//
	if expr.Len() > 0 {
		b.m.AddConstraint("GlobalConstraint-"+name, name, expr, sense, gcs.Float(name, "constant"))
	}
	//
	return nil
}

// addGrowthLimits bounds, per carrier and investment period, the capacity
// newly built in that period: absolutely via max_growth and relative to the
// previous period's installed capacity via max_relative_growth.
func (b *builder) addGrowthLimits() {
	if !b.n.MultiInvest() || b.n.Carriers.Len() == 0 {
		return
	}
	//
	for _, carrier := range b.n.Carriers.Index() {
		var (
			maxGrowth   = b.n.Carriers.FloatOr(carrier, "max_growth", math.Inf(1))
			maxRelative = b.n.Carriers.FloatOr(carrier, "max_relative_growth", 0)
		)
		//
		if math.IsInf(maxGrowth, 1) && maxRelative <= 0 {
			continue
		}
		//
		for pi, period := range b.n.InvestmentPeriods {
			expr := NewLinExpr()
			rhs := maxGrowth
			//
			for _, kind := range network.OptimisableKinds() {
				var (
					tbl   = b.n.Static(kind)
					attr  = network.NominalAttr(kind)
					block = b.m.Block(fmt.Sprintf("%s-%s", kind, attr))
				)
				//
				if block == nil {
					continue
				}
				//
				for _, id := range tbl.Index() {
					if tbl.String(id, "carrier") != carrier || !block.Has(id) {
						continue
					}
					//
					buildYear := int(tbl.Float(id, "build_year"))
					//
					if buildYear == period {
						expr = expr.Add(block.At(id), 1)
					}
					// Previous-period installed capacity relaxes the bound
					// when relative growth is allowed.
					if maxRelative > 0 && pi > 0 && buildYear == b.n.InvestmentPeriods[pi-1] {
						expr = expr.Add(block.At(id), -maxRelative)
					}
				}
				//
				if maxRelative > 0 && pi > 0 {
					for _, id := range tbl.Index() {
						if tbl.String(id, "carrier") != carrier || block.Has(id) {
							continue
						}
						//
						if int(tbl.Float(id, "build_year")) == b.n.InvestmentPeriods[pi-1] {
							rhs += maxRelative * tbl.Float(id, attr)
						}
					}
				}
			}
			//
			if expr.Len() > 0 && !math.IsInf(rhs, 1) {
				b.m.AddConstraint("Carrier-growth-limit", fmt.Sprintf("%s/%d", carrier, period), expr, LessEqual, rhs)
			}
		}
	}
}
