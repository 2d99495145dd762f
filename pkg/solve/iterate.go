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

package solve

import (
	"fmt"

	"github.com/consensys/go-gridplan/pkg/config"
	"github.com/consensys/go-gridplan/pkg/model"
	"github.com/consensys/go-gridplan/pkg/network"
	log "github.com/sirupsen/logrus"
)

// msqThreshold is the mean-square relative capacity change below which the
// iterative transmission expansion is considered converged.
const msqThreshold = 0.05

// solveIteratively performs iterative transmission expansion: line impedances
// depend on line capacity, so after each solve the reactances are rescaled in
// proportion to the optimised capacities and the problem is solved again,
// until capacities stop moving.  A final solve with capacities fixed at the
// discovered optimum produces consistent dispatch and shadow prices.
func solveIteratively(n *network.Network, cfg *config.Config, currentHorizon int) (*model.Solution, error) {
	var (
		opts  = cfg.Solving.Options
		lines = n.Lines
		prev  = lineCapacities(n)
	)
	//
	for iteration := 1; ; iteration++ {
		log.Infof("iteration %d: solving with updated line reactances", iteration)
		//
		m, err := buildModel(n, cfg, currentHorizon)
		if err != nil {
			return nil, err
		}
		//
		sol, err := runSolver(m)
		if err != nil {
			return nil, err
		}
		//
		assignSolution(n, m, sol, identityMap(len(n.Snapshots)))
		//
		current := lineCapacities(n)

		if opts.TrackIterations {
			col := fmt.Sprintf("s_nom_opt_%d", iteration)
			for _, id := range lines.Index() {
				lines.SetFloat(id, col, current[id])
			}
		}
		// Rescale reactances in proportion to the new capacities.
		for _, id := range lines.Index() {
			if current[id] > 0 && prev[id] > 0 {
				x := lines.Float(id, "x")
				lines.SetFloat(id, "x", x*prev[id]/current[id])
			}
		}
		//
		diff := meanSquareChange(prev, current)
		log.Infof("iteration %d: mean-square capacity change %.4f", iteration, diff)
		//
		prev = current
		//
		if iteration >= opts.MinIterations && diff < msqThreshold {
			log.Infof("iterative transmission expansion converged after %d iterations", iteration)
			break
		}

		if iteration >= opts.MaxIterations {
			log.Warnf("iterative transmission expansion stopped after %d iterations without converging", iteration)
			break
		}
	}
	// Fix the discovered capacities and solve once more.
	restore := fixLineCapacities(n, prev)
	defer restore()
	//
	m, err := buildModel(n, cfg, currentHorizon)
	if err != nil {
		return nil, err
	}
	//
	sol, err := runSolver(m)
	if err != nil {
		return nil, err
	}
	//
	assignSolution(n, m, sol, identityMap(len(n.Snapshots)))
	// The fixed solve reports standing capacity as the optimum; keep the
	// expansion result instead.
	for _, id := range n.Lines.Index() {
		n.Lines.SetFloat(id, "s_nom_opt", prev[id])
	}
	//
	return sol, nil
}

// lineCapacities snapshots the current line capacity: the optimised value
// where one exists, the nominal value otherwise.
func lineCapacities(n *network.Network) map[string]float64 {
	out := make(map[string]float64, n.Lines.Len())
	//
	for _, id := range n.Lines.Index() {
		if n.Lines.HasFloat("s_nom_opt") && n.Lines.Bool(id, "s_nom_extendable") {
			out[id] = n.Lines.Float(id, "s_nom_opt")
		} else {
			out[id] = n.Lines.Float(id, "s_nom")
		}
	}
	//
	return out
}

// meanSquareChange computes the mean square relative change between two
// capacity snapshots.
func meanSquareChange(prev, current map[string]float64) float64 {
	var sum, count float64
	//
	for id, now := range current {
		before := prev[id]
		if before == 0 {
			continue
		}
		//
		rel := (now - before) / before
		sum += rel * rel
		count++
	}
	//
	if count == 0 {
		return 0
	}
	//
	return sum / count
}

// fixLineCapacities pins every extendable line to the given capacity,
// returning a function restoring the previous extendability flags.
func fixLineCapacities(n *network.Network, capacities map[string]float64) func() {
	var fixed []string
	//
	for _, id := range n.Lines.Index() {
		if !n.Lines.Bool(id, "s_nom_extendable") {
			continue
		}
		//
		fixed = append(fixed, id)
		n.Lines.SetBool(id, "s_nom_extendable", false)
		n.Lines.SetFloat(id, "s_nom", capacities[id])
	}
	//
	return func() {
		for _, id := range fixed {
			n.Lines.SetBool(id, "s_nom_extendable", true)
		}
	}
}
