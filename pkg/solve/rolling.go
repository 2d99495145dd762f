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
	"fmt"

	"github.com/consensys/go-gridplan/pkg/config"
	"github.com/consensys/go-gridplan/pkg/model"
	"github.com/consensys/go-gridplan/pkg/network"
	log "github.com/sirupsen/logrus"
)

// defaultHorizon is the rolling window length, in snapshots, used when none
// is configured.
const defaultHorizon = 365

// solveRollingHorizon splits the snapshot index into overlapping windows and
// solves each operational problem in sequence, carrying storage levels from
// one window into the next.  Later windows overwrite the overlap region of
// their predecessor.  Returns the solution of the final window.
func solveRollingHorizon(n *network.Network, cfg *config.Config, currentHorizon int) (*model.Solution, error) {
	var (
		opts    = cfg.Solving.Options
		horizon = opts.Horizon
		overlap = opts.Overlap
		nsnaps  = len(n.Snapshots)
	)
	//
	if horizon <= 0 {
		horizon = defaultHorizon
	}

	if overlap >= horizon {
		return nil, fmt.Errorf("rolling-horizon overlap (%d) must be smaller than the horizon (%d)", overlap, horizon)
	}

	if n.MultiInvest() {
		return nil, errors.New("rolling-horizon solving does not support multiple investment periods")
	}
	//
	var last *model.Solution

	for start := 0; start < nsnaps; start += horizon - overlap {
		end := start + horizon
		if end > nsnaps {
			end = nsnaps
		}
		//
		log.Infof("solving rolling-horizon window %d-%d of %d snapshots", start, end, nsnaps)
		//
		window, err := sliceNetwork(n, start, end)
		if err != nil {
			return nil, err
		}
		//
		if start > 0 {
			carryStorageLevels(n, window, start)
		}
		//
		m, err := buildModel(window, cfg, currentHorizon)
		if err != nil {
			return nil, err
		}
		//
		sol, err := runSolver(m)
		if err != nil {
			return nil, fmt.Errorf("window %d-%d: %w", start, end, err)
		}
		//
		snapshotMap := make([]int, end-start)
		for t := range snapshotMap {
			snapshotMap[t] = start + t
		}
		//
		assignSolution(n, m, sol, snapshotMap)
		//
		last = sol

		if end == nsnaps {
			break
		}
	}
	//
	return last, nil
}

// sliceNetwork builds an independent copy of a network restricted to the
// snapshot range [start, end).  The copy can be mutated freely without
// touching the original.
func sliceNetwork(n *network.Network, start, end int) (*network.Network, error) {
	data, err := network.ToBytes(n)
	if err != nil {
		return nil, err
	}
	//
	clone, err := network.FromBytes(data)
	if err != nil {
		return nil, err
	}
	//
	clone.Snapshots = clone.Snapshots[start:end]
	clone.SnapshotWeightings = clone.SnapshotWeightings[start:end]
	//
	for _, kind := range []network.Kind{
		network.BusKind, network.GeneratorKind, network.LineKind, network.LinkKind,
		network.LoadKind, network.StorageUnitKind, network.StoreKind,
	} {
		sliced := make(map[string]*network.Series)

		for attr, series := range clone.Dynamic(kind) {
			out := network.NewSeries(end - start)

			for _, id := range series.Columns() {
				out.SetColumn(id, series.Column(id)[start:end])
			}
			//
			sliced[attr] = out
		}
		//
		clone.SetDynamic(kind, sliced)
	}
	//
	return clone, nil
}

// carryStorageLevels seeds a window's initial storage levels from the solved
// levels just before the window starts, and disables cyclic closure, which
// is meaningless within a window.
func carryStorageLevels(n *network.Network, window *network.Network, start int) {
	var (
		energy = n.StoresT["e"]
		soc    = n.StorageUnitsT["state_of_charge"]
	)
	//
	for _, id := range window.Stores.Index() {
		window.Stores.SetBool(id, "e_cyclic", false)

		if energy != nil && energy.Has(id) {
			window.Stores.SetFloat(id, "e_initial", energy.At(start-1, id))
		}
	}
	//
	for _, id := range window.StorageUnits.Index() {
		window.StorageUnits.SetBool(id, "cyclic_state_of_charge", false)

		if soc != nil && soc.Has(id) {
			window.StorageUnits.SetFloat(id, "state_of_charge_initial", soc.At(start-1, id))
		}
	}
}
