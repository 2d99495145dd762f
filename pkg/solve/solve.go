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
	"errors"

	"github.com/consensys/go-gridplan/pkg/buildyear"
	"github.com/consensys/go-gridplan/pkg/config"
	"github.com/consensys/go-gridplan/pkg/constraints"
	"github.com/consensys/go-gridplan/pkg/model"
	"github.com/consensys/go-gridplan/pkg/network"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrInfeasible reports that the optimisation problem has no feasible
// solution; the offending constraint rows are logged before it is returned.
var ErrInfeasible = errors.New("solving status 'infeasible'")

// SolveNetwork optimises a prepared network in the mode selected by the
// configuration: a single solve, iterative transmission expansion, or a
// rolling horizon of operational solves.  Under myopic foresight with
// build-year aggregation enabled, components are merged before and split
// after solving.  Results are written back onto the network, along with run
// metadata.
func SolveNetwork(n *network.Network, cfg *config.Config, currentHorizon int) error {
	for _, warning := range cfg.Validate() {
		log.Warn(warning)
	}
	//
	var (
		opts           = cfg.Solving.Options
		skipIterations = opts.SkipIterations
	)
	//
	if !anyExtendableLines(n) {
		skipIterations = true

		log.Info("no expandable lines found, skipping iterative solving")
	}
	//
	aggregated := cfg.BuildYearAgg.Enable && cfg.Foresight == "myopic"
	//
	if aggregated && opts.RollingHorizon {
		return errors.New("build-year aggregation cannot be combined with rolling-horizon solving")
	}
	//
	var indices buildyear.Indices
	if aggregated {
		indices = buildyear.Aggregate(n, cfg.BuildYearAgg.ExcludeCarriers)
	}
	//
	var (
		sol *model.Solution
		err error
	)
	//
	switch {
	case opts.RollingHorizon:
		sol, err = solveRollingHorizon(n, cfg, currentHorizon)
	case skipIterations:
		sol, err = solveSingle(n, cfg, currentHorizon)
	default:
		sol, err = solveIteratively(n, cfg, currentHorizon)
	}
	//
	if err != nil {
		return err
	}
	//
	if sol.Status != model.StatusOk && !opts.RollingHorizon {
		log.Warnf("solving status %q with termination condition %q", sol.Status, sol.Condition)
	}
	//
	if aggregated {
		buildyear.Disaggregate(n, indices, currentHorizon)
	}
	//
	stampMeta(n, cfg, sol, currentHorizon)
	//
	return nil
}

// buildModel assembles the full optimisation model for a network: the base
// model plus the enabled supplementary constraints.
func buildModel(n *network.Network, cfg *config.Config, currentHorizon int) (*model.Model, error) {
	m, err := model.Build(n)
	if err != nil {
		return nil, err
	}
	//
	if cfg.Foresight == "perfect" {
		constraints.AddLandUsePerfectConstraint(m, n)
	}
	//
	if err := constraints.Apply(m, n, cfg, currentHorizon); err != nil {
		return nil, err
	}
	//
	return m, nil
}

// runSolver invokes the LP oracle and, on infeasibility, isolates and logs
// the violated rows before failing.
func runSolver(m *model.Model) (*model.Solution, error) {
	sol, err := model.Solve(m)
	if err != nil {
		return nil, err
	}
	//
	if sol.Condition == model.ConditionInfeasible {
		model.LogInfeasibilities(m)
		return nil, ErrInfeasible
	}
	//
	return sol, nil
}

// solveSingle performs one whole-horizon solve and writes the results back.
func solveSingle(n *network.Network, cfg *config.Config, currentHorizon int) (*model.Solution, error) {
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
	return sol, nil
}

// anyExtendableLines reports whether any line capacity is up for
// optimisation.
func anyExtendableLines(n *network.Network) bool {
	for _, id := range n.Lines.Index() {
		if n.Lines.Bool(id, "s_nom_extendable") {
			return true
		}
	}
	//
	return false
}

// stampMeta records how a solved network was produced.
func stampMeta(n *network.Network, cfg *config.Config, sol *model.Solution, currentHorizon int) {
	n.Meta["run_id"] = uuid.NewString()
	n.Meta["solver"] = cfg.Solving.Solver.Name
	n.Meta["foresight"] = cfg.Foresight
	n.Meta["planning_horizon"] = currentHorizon
	n.Meta["status"] = sol.Status
	n.Meta["condition"] = sol.Condition
	n.Meta["objective"] = sol.Objective
}
