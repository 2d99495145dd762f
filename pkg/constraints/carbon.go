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

	"github.com/consensys/go-gridplan/pkg/config"
	"github.com/consensys/go-gridplan/pkg/model"
	"github.com/consensys/go-gridplan/pkg/network"
	log "github.com/sirupsen/logrus"
)

// sequestrationDefault is the annual sequestration potential, in Mt, assumed
// for planning years without a configured limit.
const sequestrationDefault = 200

// AddCO2SequestrationLimit records a global constraint bounding the amount of
// CO2 that can be sequestered per planning year.  The limit is configured in
// Mt and applied in tonnes; sequestered CO2 accumulates as negative store
// energy, hence the lower bound.
func AddCO2SequestrationLimit(n *network.Network, limits map[int]float64, currentHorizon int) error {
	if n.MultiInvest() {
		for _, period := range n.InvestmentPeriods {
			var (
				name  = fmt.Sprintf("co2_sequestration_limit-%d", period)
				limit = config.LimitForYear(limits, period, sequestrationDefault)
			)
			//
			if err := n.AddGlobalConstraint(name, "operational_limit", "co2 sequestered", ">=", -limit*1e6, period); err != nil {
				return err
			}
		}
		//
		return nil
	}
	//
	limit := config.LimitForYear(limits, currentHorizon, sequestrationDefault)
	//
	return n.AddGlobalConstraint("co2_sequestration_limit", "operational_limit", "co2 sequestered", ">=", -limit*1e6, -1)
}

// emissionStores returns the non-cyclic stores sitting on buses whose carrier
// has a non-zero value for the given carrier attribute.  These are the
// accounting stores whose energy level tracks accumulated emissions.
func emissionStores(n *network.Network, carrierAttribute string) []string {
	if !n.Carriers.HasFloat(carrierAttribute) {
		return nil
	}
	//
	return n.Stores.Filter(func(id string) bool {
		if n.Stores.Bool(id, "e_cyclic") {
			return false
		}
		//
		carrier := n.Buses.String(n.Stores.String(id, "bus"), "carrier")
		//
		return n.Carriers.Has(carrier) && n.Carriers.Float(carrier, carrierAttribute) != 0
	})
}

// previousPeriod returns the investment period preceding the given one, or
// -1 for the first period.
func previousPeriod(n *network.Network, period int) int {
	prev := -1
	//
	for _, p := range n.InvestmentPeriods {
		if p >= period {
			break
		}
		//
		prev = p
	}
	//
	return prev
}

// AddCarbonConstraint bounds, for each co2_atmosphere record of a
// multi-period model, the emissions added during the record's investment
// period: the difference between the accounting store's level at the end of
// that period and at the end of the preceding one.
func AddCarbonConstraint(m *model.Model, n *network.Network) {
	energy := m.Block("Store-e")
	if energy == nil {
		return
	}
	//
	for _, name := range n.GlobalConstraints.Index() {
		if n.GlobalConstraints.String(name, "type") != "co2_atmosphere" {
			continue
		}
		//
		var (
			stores = emissionStores(n, n.GlobalConstraints.String(name, "carrier_attribute"))
			period = int(n.GlobalConstraints.Float(name, "investment_period"))
			last   = n.LastPeriodSnapshot(period)
		)
		//
		if len(stores) == 0 || last < 0 {
			continue
		}
		//
		prevLast := -1
		if prev := previousPeriod(n, period); prev >= 0 {
			prevLast = n.LastPeriodSnapshot(prev)
		}
		//
		rhs := n.GlobalConstraints.Float(name, "constant")

		for _, id := range stores {
			expr := model.NewLinExpr().Add(energy.AtT(last, id), 1)
			if prevLast >= 0 {
				expr = expr.Add(energy.AtT(prevLast, id), -1)
			}
			//
			m.AddConstraint("GlobalConstraint-"+name, id, expr, model.LessEqual, rhs)
		}
	}
}

// AddCarbonBudgetConstraint bounds, for each Co2Budget record of a
// multi-period model, the accounting store's level at the end of the record's
// investment period, weighted by the number of years the period represents.
func AddCarbonBudgetConstraint(m *model.Model, n *network.Network) {
	energy := m.Block("Store-e")
	if energy == nil {
		return
	}
	//
	for _, name := range n.GlobalConstraints.Index() {
		if n.GlobalConstraints.String(name, "type") != "Co2Budget" {
			continue
		}
		//
		var (
			stores = emissionStores(n, n.GlobalConstraints.String(name, "carrier_attribute"))
			period = int(n.GlobalConstraints.Float(name, "investment_period"))
			last   = n.LastPeriodSnapshot(period)
		)
		//
		if len(stores) == 0 || last < 0 {
			continue
		}
		//
		var (
			weighting = n.InvestmentPeriodWeightings[period].Years
			rhs       = n.GlobalConstraints.Float(name, "constant")
		)
		//
		for _, id := range stores {
			expr := model.NewLinExpr().Add(energy.AtT(last, id), weighting)
			m.AddConstraint("GlobalConstraint-"+name, id, expr, model.LessEqual, rhs)
		}
	}
}

// AddCO2AtmosphereConstraint bounds, for each co2_atmosphere record of a
// single-period model, the accounting store's level at the final snapshot.
func AddCO2AtmosphereConstraint(m *model.Model, n *network.Network) {
	energy := m.Block("Store-e")
	if energy == nil || len(n.Snapshots) == 0 {
		return
	}
	//
	last := len(n.Snapshots) - 1

	for _, name := range n.GlobalConstraints.Index() {
		if n.GlobalConstraints.String(name, "type") != "co2_atmosphere" {
			continue
		}
		//
		stores := emissionStores(n, n.GlobalConstraints.String(name, "carrier_attribute"))
		if len(stores) == 0 {
			continue
		}
		//
		rhs := n.GlobalConstraints.Float(name, "constant")

		for _, id := range stores {
			expr := model.NewLinExpr().Add(energy.AtT(last, id), 1)
			m.AddConstraint("GlobalConstraint-"+name, id, expr, model.LessEqual, rhs)
		}
	}
}

// SetMaxGrowth writes per-carrier growth limits onto the carrier table of a
// multi-period model.  Absolute limits are configured in GW per year and
// scaled to MW per investment period using the longest period length.
func SetMaxGrowth(n *network.Network, opts config.LimitMaxGrowth) {
	years := 0.0
	for _, pw := range n.InvestmentPeriodWeightings {
		if pw.Years > years {
			years = pw.Years
		}
	}
	//
	factor := years * opts.Factor

	for carrier, growth := range opts.MaxGrowth {
		if !n.Carriers.Has(carrier) {
			continue
		}
		//
		perPeriod := growth * factor
		log.Infof("setting maximum growth rate of %s to %.1f GW per investment period", carrier, perPeriod)
		n.Carriers.SetFloat(carrier, "max_growth", perPeriod*1e3)
	}

	for carrier, growth := range opts.MaxRelativeGrowth {
		if !n.Carriers.Has(carrier) {
			continue
		}
		//
		log.Infof("setting maximum relative growth of %s to %.2f per investment period", carrier, growth)
		n.Carriers.SetFloat(carrier, "max_relative_growth", growth)
	}
}
