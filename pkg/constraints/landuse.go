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

	"github.com/consensys/go-gridplan/pkg/config"
	"github.com/consensys/go-gridplan/pkg/model"
	"github.com/consensys/go-gridplan/pkg/network"
	log "github.com/sirupsen/logrus"
)

// landUseCarriers lists the variable renewable carriers sharing a land
// budget with pre-existing capacity of the same technology.
var landUseCarriers = []string{
	"solar",
	"solar rooftop",
	"solar-hsat",
	"onwind",
	"offwind-ac",
	"offwind-dc",
	"offwind-float",
}

// AddLandUseConstraint shrinks the technical potential of this horizon's
// extendable renewable generators by the capacity already standing at the
// same location, so that existing and new capacity together never exceed the
// resource potential.  Applied under myopic foresight before model assembly.
func AddLandUseConstraint(n *network.Network, currentHorizon int) {
	gens := n.Generators
	//
	for _, carrier := range landUseCarriers {
		// Existing capacity per location.
		existing := make(map[string]float64)

		for _, id := range gens.Index() {
			if gens.String(id, "carrier") != carrier || gens.Bool(id, "p_nom_extendable") {
				continue
			}
			//
			location := busLocation(n, gens.String(id, "bus"))
			existing[location] += gens.Float(id, "p_nom")
		}
		// Deduct from this horizon's extendable counterpart at the same
		// location.
		for location, capacity := range existing {
			target := fmt.Sprintf("%s %s-%d", location, carrier, currentHorizon)
			if !gens.Has(target) {
				continue
			}
			//
			max := gens.FloatOr(target, "p_nom_max", math.Inf(1))
			gens.SetFloat(target, "p_nom_max", max-capacity)
		}
	}
	// Existing capacity may already exceed the estimated potential; widen the
	// potential rather than render the model infeasible.
	for _, id := range gens.Index() {
		var (
			min = gens.FloatOr(id, "p_nom_min", 0)
			max = gens.FloatOr(id, "p_nom_max", math.Inf(1))
		)
		//
		if min > max {
			log.Warnf("existing capacity of %s exceeds technical potential, adjusting potential to existing capacity", id)
			gens.SetFloat(id, "p_nom_max", min)
			max = min
		}

		if max < 0 {
			gens.SetFloat(id, "p_nom_max", 0)
		}
	}
}

// AddLandUsePerfectConstraint enforces, under perfect foresight, a shared
// technical potential across all build years of the same technology at the
// same bus: capacity built in any period consumes potential for all later
// periods.  Groups without a finite potential are unconstrained.
func AddLandUsePerfectConstraint(m *model.Model, n *network.Network) {
	log.Info("adding land-use constraints for perfect foresight")
	//
	var (
		gens  = n.Generators
		block = nominalBlock(m, network.GeneratorKind)
	)
	//
	if block == nil {
		return
	}
	// Minimum potential and summed lower bounds per (bus, carrier).
	type group struct {
		ids       []string
		potential float64
		minSum    float64
	}
	//
	groups := make(map[string]*group)

	for _, id := range gens.Index() {
		if !gens.Bool(id, "p_nom_extendable") {
			continue
		}
		//
		key := fmt.Sprintf("%s/%s", gens.String(id, "bus"), gens.String(id, "carrier"))
		g, ok := groups[key]

		if !ok {
			g = &group{potential: math.Inf(1)}
			groups[key] = g
		}
		//
		g.ids = append(g.ids, id)
		g.minSum += gens.FloatOr(id, "p_nom_min", 0)
		g.potential = math.Min(g.potential, gens.FloatOr(id, "p_nom_max", math.Inf(1)))
	}
	//
	for key, g := range groups {
		if math.IsInf(g.potential, 1) || math.IsNaN(g.potential) {
			continue
		}

		if g.minSum > g.potential {
			log.Warnf("summed minimum capacities at %s larger than technical potential", key)
		}
		// Lower bounds move into the shared budget; without this the summed
		// per-component minima could alone exceed the potential.
		expr := model.NewLinExpr()

		for _, id := range g.ids {
			m.SetLower(block.At(id), 0)
			expr = expr.Add(block.At(id), 1)
		}
		//
		m.AddConstraint("Generator-land-use", key, expr, model.LessEqual, g.potential)
	}
}

// AddSolarPotentialConstraints caps the combined capacity of fixed and
// single-axis-tracking solar at each bus by the regional solar potential,
// weighting tracking capacity by its larger land footprint.
func AddSolarPotentialConstraints(m *model.Model, n *network.Network, cfg *config.Config) {
	var (
		fixedDensity    = cfg.Renewable["solar"].CapacityPerSqkm
		trackingDensity = cfg.Renewable["solar-hsat"].CapacityPerSqkm
	)
	//
	if fixedDensity == 0 || trackingDensity == 0 {
		log.Warn("missing solar capacity density, skipping solar potential constraint")
		return
	}
	//
	var (
		gens    = n.Generators
		block   = nominalBlock(m, network.GeneratorKind)
		hsatUse = fixedDensity / trackingDensity
	)
	//
	if block == nil {
		return
	}
	//
	landUse := func(id string) float64 {
		if gens.String(id, "carrier") == "solar-hsat" {
			return hsatUse
		}
		//
		return 1
	}
	//
	type busGroup struct {
		expr model.LinExpr
		rhs  float64
		ext  bool
	}
	//
	groups := make(map[string]*busGroup)
	at := func(bus string) *busGroup {
		g, ok := groups[bus]
		if !ok {
			g = &busGroup{expr: model.NewLinExpr()}
			groups[bus] = g
		}
		//
		return g
	}
	//
	for _, id := range gens.Index() {
		carrier := gens.String(id, "carrier")
		if carrier != "solar" && carrier != "solar-hsat" {
			continue
		}
		//
		var (
			bus = gens.String(id, "bus")
			ext = gens.Bool(id, "p_nom_extendable")
			g   = at(bus)
		)
		// The budget itself comes from plain solar: its potential for
		// extendable units, its standing capacity otherwise.
		if carrier == "solar" {
			if ext {
				g.rhs += gens.FloatOr(id, "p_nom_max", math.Inf(1))
			} else {
				g.rhs += gens.Float(id, "p_nom")
			}
		}
		//
		if ext {
			g.expr = g.expr.Add(block.At(id), landUse(id))
			g.ext = true
		} else {
			g.rhs -= landUse(id) * gens.Float(id, "p_nom")
		}
	}
	//
	if len(groups) == 0 {
		warnEmpty("solar_potential")
		return
	}
	//
	log.Info("adding solar potential constraint")

	for bus, g := range groups {
		if g.ext && !math.IsInf(g.rhs, 1) {
			m.AddConstraint("solar_potential", bus, g.expr, model.LessEqual, g.rhs)
		}
	}
}
