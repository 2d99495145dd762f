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
	"regexp"
	"strings"

	"github.com/consensys/go-gridplan/pkg/model"
	"github.com/consensys/go-gridplan/pkg/network"
	log "github.com/sirupsen/logrus"
)

// AddBatteryConstraints ties battery charger and discharger capacity
// together: charger_size - efficiency * discharger_size = 0, so a battery's
// two sides are always expanded in lockstep.
func AddBatteryConstraints(m *model.Model, n *network.Network) {
	block := nominalBlock(m, network.LinkKind)
	if block == nil {
		return
	}
	//
	for _, id := range block.Ids() {
		if !strings.Contains(id, "battery charger") {
			continue
		}
		//
		discharger := strings.Replace(id, "battery charger", "battery discharger", 1)
		if !block.Has(discharger) {
			continue
		}
		//
		eff := n.Links.FloatOr(discharger, "efficiency", 1)
		expr := model.NewLinExpr().
			Add(block.At(id), 1).
			Add(block.At(discharger), -eff)
		//
		m.AddConstraint("Link-charger_ratio", id, expr, model.Equal, 0)
	}
}

var buildYearSuffix = regexp.MustCompile(`-(\d{4})$`)

// reversedLinkName derives the name of a link's reversed counterpart,
// keeping any build-year suffix at the end.
func reversedLinkName(id string) string {
	if buildYearSuffix.MatchString(id) {
		return buildYearSuffix.ReplaceAllString(id, "-reversed-$1")
	}
	//
	return id + "-reversed"
}

// AddLossyBidirectionalLinkConstraints keeps the two directions of a lossy
// bidirectional link expanded symmetrically: the reversed link's capacity
// always equals its forward counterpart's.
func AddLossyBidirectionalLinkConstraints(m *model.Model, n *network.Network) {
	block := nominalBlock(m, network.LinkKind)
	if block == nil || !n.Links.HasBool("reversed") {
		return
	}
	// Carriers modelled with an explicit reverse direction.
	carriers := make(map[string]bool)

	for _, id := range n.Links.Index() {
		if n.Links.Bool(id, "reversed") {
			carriers[n.Links.String(id, "carrier")] = true
		}
	}
	//
	for _, id := range block.Ids() {
		if n.Links.Bool(id, "reversed") || !carriers[n.Links.String(id, "carrier")] {
			continue
		}
		//
		backward := reversedLinkName(id)
		if !block.Has(backward) {
			continue
		}
		//
		expr := model.NewLinExpr().
			Add(block.At(backward), 1).
			Add(block.At(id), -1)
		//
		m.AddConstraint("Link-bidirectional_sync", id, expr, model.Equal, 0)
	}
}

// chpHeatLink derives the heat link paired with an urban central CHP
// electric link.
func chpHeatLink(electric string) string {
	return strings.Replace(electric, "electric", "heat", 1)
}

// isCHPElectric recognises the electric side of an urban central CHP link.
func isCHPElectric(id string) bool {
	return strings.Contains(id, "urban central") &&
		strings.Contains(id, "CHP") &&
		strings.Contains(id, "electric")
}

// AddCHPConstraints couples the electric and heat output links of combined
// heat and power plants: a fixed capacity ratio for extendable plants, the
// top iso-fuel line bounding combined output by plant capacity, and the
// back-pressure line tying heat output to electric output.
func AddCHPConstraints(m *model.Model, n *network.Network) {
	dispatch := m.Block("Link-p")
	if dispatch == nil {
		return
	}
	//
	capacity := nominalBlock(m, network.LinkKind)

	for _, electric := range n.Links.Index() {
		if !isCHPElectric(electric) {
			continue
		}
		//
		heat := chpHeatLink(electric)
		if !n.Links.Has(heat) {
			continue
		}
		//
		var (
			effE = n.Links.FloatOr(electric, "efficiency", 1)
			effH = n.Links.FloatOr(heat, "efficiency", 1)
			ext  = capacity != nil && capacity.Has(electric) && capacity.Has(heat)
		)
		//
		if ext {
			// Fixed output ratio between heat and electricity.
			ratio := n.Links.FloatOr(electric, "p_nom_ratio", 1)
			expr := model.NewLinExpr().
				Add(capacity.At(electric), ratio*effE).
				Add(capacity.At(heat), -effH)
			//
			m.AddConstraint("chplink-fix_p_nom_ratio", electric, expr, model.Equal, 0)
			// Top iso-fuel line: combined fuel use within plant capacity.
			for t := range n.Snapshots {
				expr := model.NewLinExpr().
					Add(dispatch.AtT(t, electric), 1).
					Add(dispatch.AtT(t, heat), 1).
					Add(capacity.At(electric), -1)
				//
				m.AddConstraint("chplink-top_iso_fuel_line_ext", fmt.Sprintf("%s/%d", electric, t),
					expr, model.LessEqual, 0)
			}
		} else {
			pnom := n.Links.Float(electric, "p_nom")

			for t := range n.Snapshots {
				expr := model.NewLinExpr().
					Add(dispatch.AtT(t, electric), 1).
					Add(dispatch.AtT(t, heat), 1)
				//
				m.AddConstraint("chplink-top_iso_fuel_line_fix", fmt.Sprintf("%s/%d", electric, t),
					expr, model.LessEqual, pnom)
			}
		}
		// Back-pressure line.
		cb := n.Links.FloatOr(electric, "c_b", 1)

		for t := range n.Snapshots {
			expr := model.NewLinExpr().
				Add(dispatch.AtT(t, heat), cb*effH).
				Add(dispatch.AtT(t, electric), -effE)
			//
			m.AddConstraint("chplink-backpressure", fmt.Sprintf("%s/%d", electric, t),
				expr, model.LessEqual, 0)
		}
	}
}

// AddPipeRetrofitConstraint lets existing CH4 pipelines be retrofitted to H2
// pipelines: remaining gas capacity plus retrofitted H2 capacity (scaled to
// CH4 terms) must equal the original pipeline capacity.
func AddPipeRetrofitConstraint(m *model.Model, n *network.Network, capacityPerCH4 float64) {
	block := nominalBlock(m, network.LinkKind)
	if block == nil || capacityPerCH4 == 0 {
		return
	}
	//
	ch4PerH2 := 1 / capacityPerCH4

	for _, id := range block.Ids() {
		if n.Links.String(id, "carrier") != "gas pipeline" || n.Links.Bool(id, "reversed") {
			continue
		}
		//
		retrofitted := strings.Replace(id, "gas pipeline", "H2 pipeline retrofitted", 1)
		if !block.Has(retrofitted) || n.Links.String(retrofitted, "carrier") != "H2 pipeline retrofitted" {
			continue
		}
		//
		expr := model.NewLinExpr().
			Add(block.At(id), 1).
			Add(block.At(retrofitted), ch4PerH2)
		//
		m.AddConstraint("Link-pipe_retrofit", id, expr, model.Equal, n.Links.Float(id, "p_nom"))
	}
}

// AddFlexibleEGSConstraint upper-bounds the charging capacity of a
// geothermal reservoir by the capacity of the wells feeding it.
func AddFlexibleEGSConstraint(m *model.Model, n *network.Network) {
	var (
		wells     = nominalBlock(m, network.LinkKind)
		reservoir = nominalBlock(m, network.StorageUnitKind)
	)
	//
	if wells == nil || reservoir == nil {
		return
	}
	// Well capacity per delivery bus.
	wellAt := make(map[string]string)

	for _, id := range wells.Ids() {
		if n.Links.String(id, "carrier") == "geothermal heat" {
			wellAt[n.Links.String(id, "bus1")] = id
		}
	}
	//
	for _, id := range reservoir.Ids() {
		if n.StorageUnits.String(id, "carrier") != "geothermal heat" {
			continue
		}
		//
		well, ok := wellAt[n.StorageUnits.String(id, "bus")]
		if !ok {
			continue
		}
		//
		expr := model.NewLinExpr().
			Add(reservoir.At(id), 1).
			Add(wells.At(well), -1)
		//
		m.AddConstraint("upper_bound_charging_capacity_of_geothermal_reservoir", id,
			expr, model.LessEqual, 0)
	}
}

// AddRetrofitGasBoilerConstraint allows retrofitting existing gas boilers to
// H2 boilers: the two must jointly follow the local heat demand profile
// scaled to the original boiler capacity, so retrofitted capacity displaces
// gas capacity one for one.
func AddRetrofitGasBoilerConstraint(m *model.Model, n *network.Network) {
	dispatch := m.Block("Link-p")
	if dispatch == nil {
		return
	}
	//
	var gas, h2 []string

	for _, id := range n.Links.Index() {
		carrier := n.Links.String(id, "carrier")
		//
		switch {
		case strings.Contains(carrier, "retrofitted H2 boiler"):
			h2 = append(h2, id)
		case strings.Contains(carrier, "gas boiler") && !n.Links.Bool(id, "p_nom_extendable"):
			gas = append(gas, id)
		}
	}
	//
	if len(gas) == 0 || len(h2) == 0 {
		return
	}
	//
	log.Info("adding constraint for retrofitting gas boilers to H2 boilers")
	// The H2 boiler serving the same heat bus as a given gas boiler.
	h2At := make(map[string]string, len(h2))
	for _, id := range h2 {
		h2At[n.Links.String(id, "bus1")] = id
	}
	// Existing gas boilers become retirable: their dispatch is pinned to the
	// demand profile below instead of their standing capacity.
	for _, id := range gas {
		var (
			bus     = n.Links.String(id, "bus1")
			pnom    = n.Links.Float(id, "p_nom")
			active  = n.ActivityMask(network.LinkKind, id)
			partner = h2At[bus]
		)
		//
		if partner == "" {
			continue
		}
		//
		n.Links.SetBool(id, "p_nom_extendable", true)
		n.Links.SetFloat(id, "p_nom", 0)
		//
		profile := heatDemandProfile(n, bus)

		for t := range n.Snapshots {
			if !active.Test(uint(t)) {
				continue
			}
			//
			expr := model.NewLinExpr().
				Add(dispatch.AtT(t, id), 1).
				Add(dispatch.AtT(t, partner), 1)
			//
			m.AddConstraint("gas_retrofit", fmt.Sprintf("%s/%d", id, t),
				expr, model.Equal, profile[t]*pnom)
		}
	}
}

// heatDemandProfile computes the normalised heat demand profile at a bus:
// residential and service heat loads divided by their per-period peak.
// Industry and agriculture heat demand is flat and excluded.
func heatDemandProfile(n *network.Network, bus string) []float64 {
	profile := make([]float64, len(n.Snapshots))

	for _, id := range n.Loads.Index() {
		if n.Loads.String(id, "bus") != bus {
			continue
		}

		if !strings.Contains(id, "heat") ||
			strings.Contains(id, "industry") ||
			strings.Contains(id, "agriculture") {
			continue
		}
		//
		for t := range n.Snapshots {
			profile[t] += n.SeriesAt(network.LoadKind, "p_set", t, id)
		}
	}
	// Normalise within each investment period.
	periods := n.InvestmentPeriods
	if len(periods) == 0 {
		periods = []int{0}
	}
	//
	for _, period := range periods {
		var (
			snaps = n.PeriodSnapshots(period)
			peak  = 0.0
		)
		//
		for _, t := range snaps {
			if profile[t] > peak {
				peak = profile[t]
			}
		}
		//
		for _, t := range snaps {
			if peak > 0 {
				profile[t] /= peak
			} else {
				profile[t] = 0
			}
		}
	}
	//
	return profile
}
