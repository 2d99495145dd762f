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

// Package constraints implements the supplementary constraint library applied
// on top of the base optimisation model: land-use and resource potentials,
// carbon accounting, policy constraints (BAU, SAFE, CCL, EQ), reserve
// margins, and the structural link couplings (battery, CHP, bidirectional and
// retrofit pipelines).  Every builder takes the model and network explicitly;
// enablement decisions live in Apply.
package constraints

import (
	"fmt"
	"strings"

	"github.com/consensys/go-gridplan/pkg/config"
	"github.com/consensys/go-gridplan/pkg/model"
	"github.com/consensys/go-gridplan/pkg/network"
	log "github.com/sirupsen/logrus"
)

// Apply collects the supplementary constraints enabled by the configuration
// and adds them to an already-built model.  The order matches the original
// behaviour of the solving stage and is part of the contract: later builders
// may rely on variables created by earlier ones.
func Apply(m *model.Model, n *network.Network, cfg *config.Config, horizon int) error {
	var (
		cons   = cfg.Solving.Constraints
		extGen = anyExtendable(n.Generators, "p_nom")
	)
	//
	if cons.BAU && extGen {
		AddBAUConstraints(m, n, cfg.Electricity.BAUMinCapacities)
	}

	if cons.SAFE && extGen {
		AddSAFEConstraints(m, n, cfg.Electricity.SAFEReserveMargin, cfg.Electricity.ConventionalCarriers)
	}

	if cons.CCL && extGen {
		bounds, err := config.ReadCapacityBounds(cfg.Solving.AggPNomLimits.File, horizon)
		if err != nil {
			return fmt.Errorf("reading capacity bounds: %w", err)
		}
		//
		AddCCLConstraints(m, n, bounds, cfg.Solving.AggPNomLimits, horizon)
	}

	if cons.GreenImportsLim {
		AddGreenImportsLimConstraint(m, n, cfg.Sector)
	}

	if cfg.Electricity.OperationalReserve.Activate {
		AddOperationalReserveMargin(m, n, cfg.Electricity.OperationalReserve)
	}

	if cons.EQ != "" {
		if err := AddEQConstraints(m, n, strings.TrimPrefix(cons.EQ, "EQ"), eqScaling); err != nil {
			return err
		}
	}

	if solarPotentialApplies(cfg) {
		AddSolarPotentialConstraints(m, n, cfg)
	}
	//
	AddBatteryConstraints(m, n)
	AddLossyBidirectionalLinkConstraints(m, n)
	AddPipeRetrofitConstraint(m, n, cfg.Sector.H2RetrofitCapacityPerCH4)
	//
	if n.MultiInvest() {
		AddCarbonConstraint(m, n)
		AddCarbonBudgetConstraint(m, n)
		AddRetrofitGasBoilerConstraint(m, n)
	} else {
		AddCO2AtmosphereConstraint(m, n)
	}

	if cfg.Sector.EnhancedGeothermal.Enable {
		AddFlexibleEGSConstraint(m, n)
	}

	if cfg.Solving.CustomExtraFunctionality != "" {
		if err := applyCustom(m, n, cfg.Solving.CustomExtraFunctionality); err != nil {
			return err
		}
	}
	//
	return nil
}

// solarPotentialApplies reports whether both fixed and tracking solar are
// configured as extendable renewables, in which case their shared land budget
// must be enforced.
func solarPotentialApplies(cfg *config.Config) bool {
	var (
		renewable  = make(map[string]bool)
		extendable = make(map[string]bool)
	)
	//
	for _, c := range cfg.Electricity.RenewableCarriers {
		renewable[c] = true
	}

	for _, c := range cfg.Electricity.ExtendableCarriers["Generator"] {
		extendable[c] = true
	}
	//
	return renewable["solar"] && renewable["solar-hsat"] && extendable["solar"] && extendable["solar-hsat"]
}

// anyExtendable reports whether any component in the table has its capacity
// marked extendable.
func anyExtendable(tbl *network.Table, attr string) bool {
	for _, id := range tbl.Index() {
		if tbl.Bool(id, attr+"_extendable") {
			return true
		}
	}
	//
	return false
}

// busCountry resolves the country a component's bus belongs to.
func busCountry(n *network.Network, bus string) string {
	return n.Buses.String(bus, "country")
}

// busLocation resolves the location a bus is mapped to, falling back to the
// bus itself when no mapping exists.
func busLocation(n *network.Network, bus string) string {
	if loc := n.Buses.String(bus, "location"); loc != "" {
		return loc
	}
	//
	return bus
}

// nominalBlock returns the capacity variable block for a kind, or nil when no
// component of that kind is extendable.
func nominalBlock(m *model.Model, kind network.Kind) *model.VarBlock {
	return m.Block(fmt.Sprintf("%s-%s", kind, network.NominalAttr(kind)))
}

// warnEmpty logs a debug note when a constraint builder found nothing to
// constrain.  Empty groups are never an error.
func warnEmpty(name string) {
	log.Debugf("no applicable components for %s constraint", name)
}
