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
	"testing"

	"github.com/consensys/go-gridplan/pkg/network"
	"github.com/stretchr/testify/assert"
)

// singleBusNetwork builds a one-bus network with an extendable generator and
// a constant load.
func singleBusNetwork(demand float64) *network.Network {
	n := network.New([]network.Snapshot{
		{Timestep: "t0"},
		{Timestep: "t1"},
	})
	//
	n.Buses.AddRow("b0")
	//
	n.Generators.AddRow("gas")
	n.Generators.SetString("gas", "bus", "b0")
	n.Generators.SetString("gas", "carrier", "gas")
	n.Generators.SetBool("gas", "p_nom_extendable", true)
	n.Generators.SetFloat("gas", "capital_cost", 10)
	n.Generators.SetFloat("gas", "marginal_cost", 5)
	//
	n.Loads.AddRow("demand")
	n.Loads.SetString("demand", "bus", "b0")
	n.Loads.SetFloat("demand", "p_set", demand)
	//
	return n
}

func TestBuildCreatesBlocks(t *testing.T) {
	n := singleBusNetwork(100)
	//
	m, err := Build(n)
	assert.NoError(t, err)
	//
	assert.NotNil(t, m.Block("Generator-p"))
	assert.NotNil(t, m.Block("Generator-p_nom"))
	assert.Nil(t, m.Block("Line-s"), "no lines, no line blocks")
	assert.Nil(t, m.Block("Store-e"))
	// One nodal balance row per bus and snapshot, plus the dispatch-capacity
	// coupling rows.
	assert.Equal(t, 6, m.NumConstraints())
}

func TestBuildAndSolveExpansion(t *testing.T) {
	n := singleBusNetwork(100)
	//
	m, err := Build(n)
	assert.NoError(t, err)
	//
	sol, err := Solve(m)
	assert.NoError(t, err)
	assert.Equal(t, ConditionOptimal, sol.Condition)
	// Demand fixes dispatch, dispatch fixes capacity.
	var (
		capacity = m.Block("Generator-p_nom")
		dispatch = m.Block("Generator-p")
	)
	//
	assert.InDelta(t, 100, sol.Value(capacity.At("gas")), 1e-6)
	assert.InDelta(t, 100, sol.Value(dispatch.AtT(0, "gas")), 1e-6)
	assert.InDelta(t, 100, sol.Value(dispatch.AtT(1, "gas")), 1e-6)
	// capital 10 * 100 + marginal 5 * 200
	assert.InDelta(t, 2000, sol.Objective, 1e-6)
}

func TestBuildFixedGenerator(t *testing.T) {
	n := singleBusNetwork(100)
	n.Generators.SetBool("gas", "p_nom_extendable", false)
	n.Generators.SetFloat("gas", "p_nom", 150)
	//
	m, err := Build(n)
	assert.NoError(t, err)
	assert.Nil(t, m.Block("Generator-p_nom"))
	//
	sol, err := Solve(m)
	assert.NoError(t, err)
	assert.Equal(t, ConditionOptimal, sol.Condition)
	assert.InDelta(t, 100, sol.Value(m.Block("Generator-p").AtT(0, "gas")), 1e-6)
}

func TestBuildPrimaryEnergyLimit(t *testing.T) {
	n := singleBusNetwork(100)
	//
	n.Carriers.AddRow("gas")
	n.Carriers.SetFloat("gas", "co2_emissions", 0.2)
	n.Generators.SetFloat("gas", "efficiency", 0.5)
	//
	assert.NoError(t, n.AddGlobalConstraint("CO2Limit", "primary_energy", "co2_emissions", "<=", 50, -1))
	//
	m, err := Build(n)
	assert.NoError(t, err)
	// The emission row covers both snapshots with coefficient
	// emissions / efficiency * weighting = 0.2 / 0.5 * 1.
	var found bool

	for _, c := range m.Constraints() {
		if c.Name == "GlobalConstraint-CO2Limit" {
			found = true

			assert.Equal(t, LessEqual, c.Sense)
			assert.Equal(t, 50.0, c.RHS)
			assert.InDelta(t, 0.4, c.Expr.Coeff(m.Block("Generator-p").AtT(0, "gas")), 1e-9)
		}
	}
	//
	assert.True(t, found)
}

func TestBuildGrowthLimit(t *testing.T) {
	n := network.New([]network.Snapshot{
		{Period: 2030, Timestep: "t0"},
		{Period: 2040, Timestep: "t1"},
	})
	n.InvestmentPeriods = []int{2030, 2040}
	//
	n.Buses.AddRow("b0")
	n.Carriers.AddRow("onwind")
	n.Carriers.SetFloat("onwind", "max_growth", 500)
	//
	for _, id := range []string{"onwind-2030", "onwind-2040"} {
		n.Generators.AddRow(id)
		n.Generators.SetString(id, "bus", "b0")
		n.Generators.SetString(id, "carrier", "onwind")
		n.Generators.SetBool(id, "p_nom_extendable", true)
	}
	//
	n.Generators.SetFloat("onwind-2030", "build_year", 2030)
	n.Generators.SetFloat("onwind-2030", "lifetime", 30)
	n.Generators.SetFloat("onwind-2040", "build_year", 2040)
	n.Generators.SetFloat("onwind-2040", "lifetime", 30)
	//
	m, err := Build(n)
	assert.NoError(t, err)
	//
	var rows []Constraint

	for _, c := range m.Constraints() {
		if c.Name == "Carrier-growth-limit" {
			rows = append(rows, c)
		}
	}
	//
	assert.Len(t, rows, 2, "one growth row per investment period")

	for _, c := range rows {
		assert.Equal(t, LessEqual, c.Sense)
		assert.Equal(t, 500.0, c.RHS)
	}
}
