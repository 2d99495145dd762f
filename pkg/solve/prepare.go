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

// Package solve drives the optimisation of a prepared network: the prepare
// step (numerical clean-up, load shedding, land use), model assembly with the
// constraint library, the three solve modes (single shot, iterative
// transmission expansion, rolling horizon) and the write-back of results.
package solve

import (
	"fmt"
	"math/rand"

	"github.com/consensys/go-gridplan/pkg/config"
	"github.com/consensys/go-gridplan/pkg/constraints"
	"github.com/consensys/go-gridplan/pkg/network"
	log "github.com/sirupsen/logrus"
)

// yearHours is the number of hours in an unabridged planning year.
const yearHours = 8760.0

// Prepare applies the pre-solve transformations configured for a network:
// clipping of tiny availabilities, load shedding and curtailment generators,
// cost noise, horizon truncation, land-use adjustments and the sequestration
// limit.  It mutates the network in place.
func Prepare(n *network.Network, cfg *config.Config, currentHorizon int) error {
	opts := cfg.Solving.Options
	//
	if opts.ClipPMaxPu > 0 {
		clipSeries(n, opts.ClipPMaxPu)
	}

	if opts.LoadShedding {
		addLoadShedding(n, opts.LoadSheddingPrice)
	}

	if opts.CurtailmentMode {
		addCurtailment(n)
	}

	if opts.NoisyCosts {
		addCostNoise(n, opts.Seed)
	}

	if opts.NHours > 0 {
		truncateHorizon(n, opts.NHours)
	}
	//
	switch cfg.Foresight {
	case "myopic":
		constraints.AddLandUseConstraint(n, currentHorizon)
	case "perfect":
		if cfg.Sector.LimitMaxGrowth.Enable {
			constraints.SetMaxGrowth(n, cfg.Sector.LimitMaxGrowth)
		}
	}
	//
	if hasSequestrationStore(n) {
		err := constraints.AddCO2SequestrationLimit(n, cfg.Sector.CO2SequestrationPotential, currentHorizon)
		if err != nil {
			return fmt.Errorf("adding sequestration limit: %w", err)
		}
	}
	//
	return nil
}

// clipSeries zeroes availability and inflow values at or below the clipping
// threshold, removing numerically irrelevant columns from the problem.
func clipSeries(n *network.Network, threshold float64) {
	targets := []struct {
		kind network.Kind
		attr string
	}{
		{network.GeneratorKind, "p_max_pu"},
		{network.GeneratorKind, "p_min_pu"},
		{network.LinkKind, "p_max_pu"},
		{network.LinkKind, "p_min_pu"},
		{network.StorageUnitKind, "inflow"},
	}
	//
	for _, target := range targets {
		series, ok := n.Dynamic(target.kind)[target.attr]
		if !ok {
			continue
		}
		//
		for _, id := range series.Columns() {
			for t := 0; t < series.Snapshots(); t++ {
				if series.At(t, id) <= threshold {
					series.Set(t, id, 0)
				}
			}
		}
	}
}

// addLoadShedding attaches a load shedding generator to every bus.  Shedding
// is priced per kWh, so the generator's sign scales its power to kW.
func addLoadShedding(n *network.Network, price float64) {
	if price == 0 {
		// Intersection of macroeconomic and survey-based willingness to pay.
		price = 1e2
	}
	//
	addCarrier(n, "load", "#dd2e23", "Load shedding")

	for _, bus := range n.Buses.Index() {
		id := bus + " load"
		if n.Generators.Has(id) {
			continue
		}
		//
		if err := n.Generators.AddRow(id); err != nil {
			continue
		}
		//
		n.Generators.SetString(id, "bus", bus)
		n.Generators.SetString(id, "carrier", "load")
		n.Generators.SetFloat(id, "sign", 1e-3)
		n.Generators.SetFloat(id, "marginal_cost", price)
		n.Generators.SetFloat(id, "p_nom", 1e9)
	}
}

// addCurtailment switches the model into curtailment accounting: renewable
// dispatch is pinned to its availability and explicit curtailment generators
// absorb the surplus at a small reward.
func addCurtailment(n *network.Network) {
	addCarrier(n, "curtailment", "#fedfed", "Curtailment")
	// Pin dispatch to availability.
	if maxPu, ok := n.GeneratorsT["p_max_pu"]; ok {
		minPu := n.SeriesFor(network.GeneratorKind, "p_min_pu")
		for _, id := range maxPu.Columns() {
			minPu.SetColumn(id, maxPu.Column(id))
		}
	}
	//
	for _, bus := range n.Buses.Index() {
		if n.Buses.String(bus, "carrier") != "AC" {
			continue
		}
		//
		id := bus + " curtailment"
		if err := n.Generators.AddRow(id); err != nil {
			continue
		}
		//
		n.Generators.SetString(id, "bus", bus)
		n.Generators.SetString(id, "carrier", "curtailment")
		n.Generators.SetFloat(id, "p_min_pu", -1)
		n.Generators.SetFloat(id, "p_max_pu", 0)
		n.Generators.SetFloat(id, "marginal_cost", -0.1)
		n.Generators.SetFloat(id, "p_nom", 1e6)
	}
}

// addCostNoise perturbs marginal costs (and, for lines and links, capital
// costs per unit length) with small deterministic noise to break degenerate
// optima.
func addCostNoise(n *network.Network, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	//
	for _, kind := range network.OptimisableKinds() {
		tbl := n.Static(kind)
		if !tbl.HasFloat("marginal_cost") {
			continue
		}
		//
		for _, id := range tbl.Index() {
			noise := 1e-2 + 2e-3*(rng.Float64()-0.5)
			tbl.SetFloat(id, "marginal_cost", tbl.Float(id, "marginal_cost")+noise)
		}
	}
	//
	for _, kind := range []network.Kind{network.LineKind, network.LinkKind} {
		tbl := n.Static(kind)

		for _, id := range tbl.Index() {
			noise := (1e-1 + 2e-2*(rng.Float64()-0.5)) * tbl.Float(id, "length")
			tbl.SetFloat(id, "capital_cost", tbl.Float(id, "capital_cost")+noise)
		}
	}
}

// truncateHorizon shortens the network to its first nhours snapshots,
// reweighting them so totals still represent a full year.
func truncateHorizon(n *network.Network, nhours int) {
	if nhours >= len(n.Snapshots) {
		return
	}
	//
	log.Infof("truncating snapshots to the first %d hours", nhours)
	//
	n.Snapshots = n.Snapshots[:nhours]
	n.SnapshotWeightings = n.SnapshotWeightings[:nhours]
	//
	weight := yearHours / float64(nhours)
	for t := range n.SnapshotWeightings {
		n.SnapshotWeightings[t] = network.Weighting{Objective: weight, Generators: weight, Stores: weight}
	}
	//
	for _, kind := range []network.Kind{
		network.BusKind, network.GeneratorKind, network.LineKind, network.LinkKind,
		network.LoadKind, network.StorageUnitKind, network.StoreKind,
	} {
		for _, series := range n.Dynamic(kind) {
			series.Truncate(nhours)
		}
	}
}

// hasSequestrationStore reports whether the network models CO2 sequestration.
func hasSequestrationStore(n *network.Network) bool {
	for _, id := range n.Stores.Index() {
		if n.Stores.String(id, "carrier") == "co2 sequestered" {
			return true
		}
	}
	//
	return false
}

// addCarrier registers a carrier with display metadata, ignoring duplicates.
func addCarrier(n *network.Network, name, color, niceName string) {
	if n.Carriers.Has(name) {
		return
	}

	if err := n.Carriers.AddRow(name); err != nil {
		return
	}
	//
	n.Carriers.SetString(name, "color", color)
	n.Carriers.SetString(name, "nice_name", niceName)
}
