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
	"testing"

	"github.com/consensys/go-gridplan/pkg/config"
	"github.com/consensys/go-gridplan/pkg/model"
	"github.com/consensys/go-gridplan/pkg/network"
	"github.com/stretchr/testify/assert"
)

// emptyNetwork builds a network with the given buses and one snapshot.
func emptyNetwork(buses ...string) *network.Network {
	n := network.New([]network.Snapshot{{Timestep: "t0"}})
	//
	for _, bus := range buses {
		n.Buses.AddRow(bus)
	}
	//
	return n
}

func addLink(n *network.Network, id, bus0, bus1, carrier string, ext bool) {
	n.Links.AddRow(id)
	n.Links.SetString(id, "bus0", bus0)
	n.Links.SetString(id, "bus1", bus1)
	n.Links.SetString(id, "carrier", carrier)
	n.Links.SetBool(id, "p_nom_extendable", ext)
}

func addGenerator(n *network.Network, id, bus, carrier string, pnom float64, ext bool) {
	n.Generators.AddRow(id)
	n.Generators.SetString(id, "bus", bus)
	n.Generators.SetString(id, "carrier", carrier)
	n.Generators.SetFloat(id, "p_nom", pnom)
	n.Generators.SetBool(id, "p_nom_extendable", ext)
}

func addLoad(n *network.Network, id, bus string, pset float64) {
	n.Loads.AddRow(id)
	n.Loads.SetString(id, "bus", bus)
	n.Loads.SetFloat(id, "p_set", pset)
}

// mustBuild assembles the base model, failing the test on error.
func mustBuild(t *testing.T, n *network.Network) *model.Model {
	t.Helper()
	//
	m, err := model.Build(n)
	assert.NoError(t, err)
	//
	return m
}

// rows collects the constraints added under a given name.
func rows(m *model.Model, name string) []model.Constraint {
	var out []model.Constraint

	for _, c := range m.Constraints() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	//
	return out
}

func TestBatteryConstraints(t *testing.T) {
	n := emptyNetwork("elec", "battery")
	//
	addLink(n, "X battery charger", "elec", "battery", "battery charger", true)
	addLink(n, "X battery discharger", "battery", "elec", "battery discharger", true)
	n.Links.SetFloat("X battery discharger", "efficiency", 0.9)
	// An unpaired charger is skipped
	addLink(n, "Y battery charger", "elec", "battery", "battery charger", true)
	//
	m := mustBuild(t, n)
	AddBatteryConstraints(m, n)
	//
	got := rows(m, "Link-charger_ratio")
	assert.Len(t, got, 1)
	//
	var (
		block = m.Block("Link-p_nom")
		c     = got[0]
	)
	//
	assert.Equal(t, model.Equal, c.Sense)
	assert.Equal(t, 0.0, c.RHS)
	assert.Equal(t, 1.0, c.Expr.Coeff(block.At("X battery charger")))
	assert.Equal(t, -0.9, c.Expr.Coeff(block.At("X battery discharger")))
}

func TestReversedLinkName(t *testing.T) {
	assert.Equal(t, "H2 pipeline DE-FR-reversed", reversedLinkName("H2 pipeline DE-FR"))
	assert.Equal(t, "H2 pipeline DE-FR-reversed-2040", reversedLinkName("H2 pipeline DE-FR-2040"))
}

func TestLossyBidirectionalLinkConstraints(t *testing.T) {
	n := emptyNetwork("a", "b")
	//
	addLink(n, "H2 pipeline a-b", "a", "b", "H2 pipeline", true)
	addLink(n, "H2 pipeline a-b-reversed", "b", "a", "H2 pipeline", true)
	n.Links.SetBool("H2 pipeline a-b-reversed", "reversed", true)
	//
	m := mustBuild(t, n)
	AddLossyBidirectionalLinkConstraints(m, n)
	//
	got := rows(m, "Link-bidirectional_sync")
	assert.Len(t, got, 1)
	//
	block := m.Block("Link-p_nom")
	assert.Equal(t, 1.0, got[0].Expr.Coeff(block.At("H2 pipeline a-b-reversed")))
	assert.Equal(t, -1.0, got[0].Expr.Coeff(block.At("H2 pipeline a-b")))
}

func TestCHPConstraints(t *testing.T) {
	n := emptyNetwork("gas", "elec", "heat")
	//
	addLink(n, "DE urban central CHP electric", "gas", "elec", "urban central CHP", true)
	addLink(n, "DE urban central CHP heat", "gas", "heat", "urban central CHP heat", true)
	n.Links.SetFloat("DE urban central CHP electric", "efficiency", 0.45)
	n.Links.SetFloat("DE urban central CHP heat", "efficiency", 0.35)
	n.Links.SetFloat("DE urban central CHP electric", "p_nom_ratio", 1)
	n.Links.SetFloat("DE urban central CHP electric", "c_b", 0.6)
	//
	m := mustBuild(t, n)
	AddCHPConstraints(m, n)
	//
	var (
		capacity = m.Block("Link-p_nom")
		dispatch = m.Block("Link-p")
	)
	// Fixed capacity ratio between the two sides
	ratio := rows(m, "chplink-fix_p_nom_ratio")
	assert.Len(t, ratio, 1)
	assert.InDelta(t, 0.45, ratio[0].Expr.Coeff(capacity.At("DE urban central CHP electric")), 1e-9)
	assert.InDelta(t, -0.35, ratio[0].Expr.Coeff(capacity.At("DE urban central CHP heat")), 1e-9)
	// Combined output within plant capacity, one row per snapshot
	top := rows(m, "chplink-top_iso_fuel_line_ext")
	assert.Len(t, top, 1)
	assert.Equal(t, 1.0, top[0].Expr.Coeff(dispatch.AtT(0, "DE urban central CHP electric")))
	assert.Equal(t, 1.0, top[0].Expr.Coeff(dispatch.AtT(0, "DE urban central CHP heat")))
	assert.Equal(t, -1.0, top[0].Expr.Coeff(capacity.At("DE urban central CHP electric")))
	// Back-pressure line
	bp := rows(m, "chplink-backpressure")
	assert.Len(t, bp, 1)
	assert.InDelta(t, 0.6*0.35, bp[0].Expr.Coeff(dispatch.AtT(0, "DE urban central CHP heat")), 1e-9)
	assert.InDelta(t, -0.45, bp[0].Expr.Coeff(dispatch.AtT(0, "DE urban central CHP electric")), 1e-9)
	assert.Equal(t, 0.0, bp[0].RHS)
}

func TestCHPConstraintsFixedPlant(t *testing.T) {
	n := emptyNetwork("gas", "elec", "heat")
	//
	addLink(n, "DE urban central CHP electric", "gas", "elec", "urban central CHP", false)
	addLink(n, "DE urban central CHP heat", "gas", "heat", "urban central CHP heat", false)
	n.Links.SetFloat("DE urban central CHP electric", "p_nom", 300)
	//
	m := mustBuild(t, n)
	AddCHPConstraints(m, n)
	//
	top := rows(m, "chplink-top_iso_fuel_line_fix")
	assert.Len(t, top, 1)
	assert.Equal(t, 300.0, top[0].RHS)
	assert.Empty(t, rows(m, "chplink-fix_p_nom_ratio"), "fixed plants have no capacity ratio row")
}

func TestPipeRetrofitConstraint(t *testing.T) {
	n := emptyNetwork("a", "b")
	//
	addLink(n, "gas pipeline a-b", "a", "b", "gas pipeline", true)
	n.Links.SetFloat("gas pipeline a-b", "p_nom", 1000)
	addLink(n, "H2 pipeline retrofitted a-b", "a", "b", "H2 pipeline retrofitted", true)
	//
	m := mustBuild(t, n)
	AddPipeRetrofitConstraint(m, n, 0.8)
	//
	got := rows(m, "Link-pipe_retrofit")
	assert.Len(t, got, 1)
	//
	var (
		block = m.Block("Link-p_nom")
		c     = got[0]
	)
	//
	assert.Equal(t, model.Equal, c.Sense)
	assert.Equal(t, 1000.0, c.RHS)
	assert.Equal(t, 1.0, c.Expr.Coeff(block.At("gas pipeline a-b")))
	assert.InDelta(t, 1.25, c.Expr.Coeff(block.At("H2 pipeline retrofitted a-b")), 1e-9)
}

func TestPipeRetrofitDisabled(t *testing.T) {
	n := emptyNetwork("a", "b")
	addLink(n, "gas pipeline a-b", "a", "b", "gas pipeline", true)
	//
	m := mustBuild(t, n)
	AddPipeRetrofitConstraint(m, n, 0)
	//
	assert.Empty(t, rows(m, "Link-pipe_retrofit"))
}

func TestLandUseConstraint(t *testing.T) {
	n := emptyNetwork("DE0 0")
	// Standing solar eats into the 2030 extendable potential
	addGenerator(n, "DE0 0 solar", "DE0 0", "solar", 100, false)
	addGenerator(n, "DE0 0 solar-2030", "DE0 0", "solar", 0, true)
	n.Generators.SetFloat("DE0 0 solar-2030", "p_nom_max", 300)
	// Standing onwind exceeds its estimated potential
	addGenerator(n, "DE0 0 onwind", "DE0 0", "onwind", 400, false)
	addGenerator(n, "DE0 0 onwind-2030", "DE0 0", "onwind", 0, true)
	n.Generators.SetFloat("DE0 0 onwind-2030", "p_nom_max", 300)
	//
	AddLandUseConstraint(n, 2030)
	//
	assert.Equal(t, 200.0, n.Generators.Float("DE0 0 solar-2030", "p_nom_max"))
	assert.Equal(t, 0.0, n.Generators.Float("DE0 0 onwind-2030", "p_nom_max"),
		"potentials never go negative")
}

func TestLandUsePerfectConstraint(t *testing.T) {
	n := emptyNetwork("b0")
	//
	addGenerator(n, "b0 onwind-2030", "b0", "onwind", 0, true)
	addGenerator(n, "b0 onwind-2040", "b0", "onwind", 0, true)
	n.Generators.SetFloat("b0 onwind-2030", "p_nom_max", 250)
	n.Generators.SetFloat("b0 onwind-2040", "p_nom_max", 250)
	//
	m := mustBuild(t, n)
	AddLandUsePerfectConstraint(m, n)
	//
	got := rows(m, "Generator-land-use")
	assert.Len(t, got, 1)
	assert.Equal(t, model.LessEqual, got[0].Sense)
	assert.Equal(t, 250.0, got[0].RHS, "all build years share one potential")
	//
	block := m.Block("Generator-p_nom")
	assert.Equal(t, 1.0, got[0].Expr.Coeff(block.At("b0 onwind-2030")))
	assert.Equal(t, 1.0, got[0].Expr.Coeff(block.At("b0 onwind-2040")))
}

func TestBAUConstraints(t *testing.T) {
	n := emptyNetwork("b0", "b1")
	//
	addGenerator(n, "b0 OCGT", "b0", "OCGT", 0, true)
	addGenerator(n, "b1 OCGT", "b1", "OCGT", 0, true)
	addGenerator(n, "b0 solar", "b0", "solar", 0, true)
	//
	m := mustBuild(t, n)
	AddBAUConstraints(m, n, map[string]float64{"OCGT": 100000})
	//
	got := rows(m, "bau_mincaps")
	assert.Len(t, got, 1)
	assert.Equal(t, "OCGT", got[0].Label)
	assert.Equal(t, model.GreaterEqual, got[0].Sense)
	assert.Equal(t, 100000.0, got[0].RHS)
	//
	block := m.Block("Generator-p_nom")
	assert.Equal(t, 1.0, got[0].Expr.Coeff(block.At("b0 OCGT")))
	assert.Equal(t, 1.0, got[0].Expr.Coeff(block.At("b1 OCGT")))
	assert.Equal(t, 0.0, got[0].Expr.Coeff(block.At("b0 solar")))
}

func TestSAFEConstraints(t *testing.T) {
	n := network.New([]network.Snapshot{{Timestep: "t0"}, {Timestep: "t1"}})
	n.Buses.AddRow("b0")
	//
	addGenerator(n, "coal", "b0", "coal", 200, false)
	addGenerator(n, "ocgt", "b0", "OCGT", 0, true)
	addGenerator(n, "solar", "b0", "solar", 0, true)
	//
	addLoad(n, "demand", "b0", 0)
	n.SeriesFor(network.LoadKind, "p_set").SetColumn("demand", []float64{500, 400})
	//
	m := mustBuild(t, n)
	AddSAFEConstraints(m, n, 0.1, []string{"coal", "OCGT"})
	//
	got := rows(m, "safe_mintotalcap")
	assert.Len(t, got, 1)
	// peak 500 * (1 + 0.1) minus 200 standing conventional
	assert.Equal(t, model.GreaterEqual, got[0].Sense)
	assert.InDelta(t, 350, got[0].RHS, 1e-9)
	//
	block := m.Block("Generator-p_nom")
	assert.Equal(t, 1.0, got[0].Expr.Coeff(block.At("ocgt")))
	assert.Equal(t, 0.0, got[0].Expr.Coeff(block.At("solar")), "renewables do not contribute")
}

func TestCCLConstraints(t *testing.T) {
	n := emptyNetwork("b0")
	n.Buses.SetString("b0", "country", "DE")
	//
	addGenerator(n, "b0 onwind", "b0", "onwind", 0, true)
	addGenerator(n, "b0 old onwind", "b0", "onwind", 50, false)
	n.Generators.SetFloat("b0 old onwind", "build_year", 2020)
	n.Generators.SetFloat("b0 old onwind", "lifetime", 25)
	//
	bounds := config.CapacityBounds{
		config.BoundKey("DE", "onwind"): {Min: 100, Max: 5000},
	}
	//
	m := mustBuild(t, n)
	AddCCLConstraints(m, n, bounds, config.AggPNomLimits{IncludeExisting: true}, 2030)
	// Standing capacity still alive in 2030 uses up part of each bound
	min := rows(m, "agg_p_nom_min")
	assert.Len(t, min, 1)
	assert.Equal(t, 50.0, min[0].RHS)
	//
	max := rows(m, "agg_p_nom_max")
	assert.Len(t, max, 1)
	assert.Equal(t, 4950.0, max[0].RHS)
}

func TestEQConstraints(t *testing.T) {
	n := emptyNetwork("b0")
	//
	addGenerator(n, "b0 gas", "b0", "gas", 100, false)
	addLoad(n, "b0 demand", "b0", 100)
	//
	m := mustBuild(t, n)
	assert.NoError(t, AddEQConstraints(m, n, "0.7", 0.1))
	//
	got := rows(m, "equity_min")
	assert.Len(t, got, 1)
	assert.Equal(t, "b0", got[0].Label)
	assert.Equal(t, model.GreaterEqual, got[0].Sense)
	// scaling * level * weighted load = 0.1 * 0.7 * 100
	assert.InDelta(t, 7, got[0].RHS, 1e-9)
	assert.InDelta(t, 0.1, got[0].Expr.Coeff(m.Block("Generator-p").AtT(0, "b0 gas")), 1e-9)
}

func TestEQConstraintsRejectsBadLevel(t *testing.T) {
	n := emptyNetwork("b0")
	addGenerator(n, "b0 gas", "b0", "gas", 100, false)
	//
	m := mustBuild(t, n)
	assert.Error(t, AddEQConstraints(m, n, "c", 0.1))
}

func TestOperationalReserveMargin(t *testing.T) {
	n := emptyNetwork("b0")
	//
	addGenerator(n, "gas", "b0", "gas", 100, false)
	addLoad(n, "demand", "b0", 100)
	//
	m := mustBuild(t, n)
	AddOperationalReserveMargin(m, n, config.OperationalReserve{
		Activate:    true,
		EpsilonLoad: 0.02,
		EpsilonVRES: 0.05,
		Contingency: 400000,
	})
	//
	assert.NotNil(t, m.Block("Generator-r"), "reserve variables are created per generator")
	//
	margin := rows(m, "reserve_margin")
	assert.Len(t, margin, 1)
	assert.Equal(t, model.GreaterEqual, margin[0].Sense)
	assert.InDelta(t, 0.02*100+400000, margin[0].RHS, 1e-9)
	// Dispatch plus reserve must fit within standing capacity
	upper := rows(m, "Generator-p-reserve-upper")
	assert.Len(t, upper, 1)
	assert.Equal(t, 100.0, upper[0].RHS)
}

// carbonNetwork builds a two-period network with a CO2 accounting store.
func carbonNetwork() *network.Network {
	n := network.New([]network.Snapshot{
		{Period: 2030, Timestep: "t0"},
		{Period: 2030, Timestep: "t1"},
		{Period: 2040, Timestep: "t0"},
		{Period: 2040, Timestep: "t1"},
	})
	n.InvestmentPeriods = []int{2030, 2040}
	n.InvestmentPeriodWeightings[2030] = network.PeriodWeighting{Years: 10, Objective: 1}
	n.InvestmentPeriodWeightings[2040] = network.PeriodWeighting{Years: 10, Objective: 1}
	//
	n.Buses.AddRow("co2 atmosphere")
	n.Buses.SetString("co2 atmosphere", "carrier", "co2")
	n.Carriers.AddRow("co2")
	n.Carriers.SetFloat("co2", "co2_emissions", -1)
	//
	n.Stores.AddRow("co2 atmosphere")
	n.Stores.SetString("co2 atmosphere", "bus", "co2 atmosphere")
	n.Stores.SetString("co2 atmosphere", "carrier", "co2")
	n.Stores.SetBool("co2 atmosphere", "e_nom_extendable", true)
	//
	return n
}

func TestCarbonConstraint(t *testing.T) {
	n := carbonNetwork()
	assert.NoError(t, n.AddGlobalConstraint("CO2Limit2040", "co2_atmosphere", "co2_emissions", "<=", 100, 2040))
	//
	m := mustBuild(t, n)
	AddCarbonConstraint(m, n)
	//
	got := rows(m, "GlobalConstraint-CO2Limit2040")
	assert.Len(t, got, 1)
	assert.Equal(t, model.LessEqual, got[0].Sense)
	assert.Equal(t, 100.0, got[0].RHS)
	// Emissions added during 2040: the store level at the period's last
	// snapshot minus the level at the end of 2030
	energy := m.Block("Store-e")
	assert.Equal(t, 1.0, got[0].Expr.Coeff(energy.AtT(3, "co2 atmosphere")))
	assert.Equal(t, -1.0, got[0].Expr.Coeff(energy.AtT(1, "co2 atmosphere")))
	assert.Equal(t, 0.0, got[0].Expr.Coeff(energy.AtT(2, "co2 atmosphere")))
}

func TestCarbonConstraintFirstPeriod(t *testing.T) {
	n := carbonNetwork()
	assert.NoError(t, n.AddGlobalConstraint("CO2Limit2030", "co2_atmosphere", "co2_emissions", "<=", 100, 2030))
	//
	m := mustBuild(t, n)
	AddCarbonConstraint(m, n)
	//
	got := rows(m, "GlobalConstraint-CO2Limit2030")
	assert.Len(t, got, 1)
	// No preceding period to subtract
	energy := m.Block("Store-e")
	assert.Equal(t, 1.0, got[0].Expr.Coeff(energy.AtT(1, "co2 atmosphere")))
	assert.Equal(t, 1, got[0].Expr.Len())
}

func TestCarbonBudgetConstraint(t *testing.T) {
	n := carbonNetwork()
	assert.NoError(t, n.AddGlobalConstraint("CO2Budget", "Co2Budget", "co2_emissions", "<=", 500, 2040))
	//
	m := mustBuild(t, n)
	AddCarbonBudgetConstraint(m, n)
	//
	got := rows(m, "GlobalConstraint-CO2Budget")
	assert.Len(t, got, 1)
	assert.Equal(t, 500.0, got[0].RHS)
	// The final level is weighted by the years the period represents
	energy := m.Block("Store-e")
	assert.Equal(t, 10.0, got[0].Expr.Coeff(energy.AtT(3, "co2 atmosphere")))
}

func TestCO2AtmosphereConstraint(t *testing.T) {
	n := network.New([]network.Snapshot{{Timestep: "t0"}, {Timestep: "t1"}})
	//
	n.Buses.AddRow("co2 atmosphere")
	n.Buses.SetString("co2 atmosphere", "carrier", "co2")
	n.Carriers.AddRow("co2")
	n.Carriers.SetFloat("co2", "co2_emissions", -1)
	//
	n.Stores.AddRow("co2 atmosphere")
	n.Stores.SetString("co2 atmosphere", "bus", "co2 atmosphere")
	n.Stores.SetString("co2 atmosphere", "carrier", "co2")
	n.Stores.SetBool("co2 atmosphere", "e_nom_extendable", true)
	//
	assert.NoError(t, n.AddGlobalConstraint("CO2Limit", "co2_atmosphere", "co2_emissions", "<=", 1e7, -1))
	//
	m := mustBuild(t, n)
	AddCO2AtmosphereConstraint(m, n)
	//
	got := rows(m, "GlobalConstraint-CO2Limit")
	assert.Len(t, got, 1)
	assert.Equal(t, 1e7, got[0].RHS)
	// Only the final energy level is bounded
	energy := m.Block("Store-e")
	assert.Equal(t, 1.0, got[0].Expr.Coeff(energy.AtT(1, "co2 atmosphere")))
	assert.Equal(t, 0.0, got[0].Expr.Coeff(energy.AtT(0, "co2 atmosphere")))
}

func TestCO2SequestrationLimit(t *testing.T) {
	n := emptyNetwork("b0")
	//
	assert.NoError(t, AddCO2SequestrationLimit(n, map[int]float64{2030: 150}, 2030))
	//
	gcs := n.GlobalConstraints
	assert.True(t, gcs.Has("co2_sequestration_limit"))
	assert.Equal(t, "operational_limit", gcs.String("co2_sequestration_limit", "type"))
	assert.Equal(t, "co2 sequestered", gcs.String("co2_sequestration_limit", "carrier_attribute"))
	assert.Equal(t, ">=", gcs.String("co2_sequestration_limit", "sense"))
	assert.Equal(t, -150e6, gcs.Float("co2_sequestration_limit", "constant"))
}

func TestCO2SequestrationLimitDefault(t *testing.T) {
	n := emptyNetwork("b0")
	//
	assert.NoError(t, AddCO2SequestrationLimit(n, nil, 2030))
	assert.Equal(t, -200e6, n.GlobalConstraints.Float("co2_sequestration_limit", "constant"))
}

func TestCO2SequestrationLimitPerPeriod(t *testing.T) {
	n := network.New([]network.Snapshot{
		{Period: 2030, Timestep: "t0"},
		{Period: 2040, Timestep: "t1"},
	})
	n.InvestmentPeriods = []int{2030, 2040}
	//
	assert.NoError(t, AddCO2SequestrationLimit(n, map[int]float64{2030: 150}, 2030))
	//
	gcs := n.GlobalConstraints
	assert.Equal(t, -150e6, gcs.Float("co2_sequestration_limit-2030", "constant"))
	assert.Equal(t, -200e6, gcs.Float("co2_sequestration_limit-2040", "constant"),
		"years without a configured limit use the default")
	assert.Equal(t, 2030.0, gcs.Float("co2_sequestration_limit-2030", "investment_period"))
}

func TestApplyDispatchOrder(t *testing.T) {
	n := emptyNetwork("b0")
	addGenerator(n, "b0 gas", "b0", "gas", 100, false)
	//
	m := mustBuild(t, n)
	before := m.NumConstraints()
	//
	assert.NoError(t, Apply(m, n, config.Default(), 2030))
	assert.Equal(t, before, m.NumConstraints(), "nothing enabled, nothing added")
}
