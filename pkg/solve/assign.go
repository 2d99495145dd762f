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

	"github.com/consensys/go-gridplan/pkg/model"
	"github.com/consensys/go-gridplan/pkg/network"
)

// assignSolution writes a primal solution back onto a network: optimised
// capacities into <attr>_opt columns, and dispatch into the standard output
// series.  snapshotMap maps model snapshot indices onto network snapshot
// indices and also limits how many model snapshots are written, which is how
// rolling-horizon windows discard their overlap.
func assignSolution(target *network.Network, m *model.Model, sol *model.Solution, snapshotMap []int) {
	for _, kind := range network.OptimisableKinds() {
		assignCapacity(target, m, sol, kind)
	}
	//
	assignGenerators(target, m, sol, snapshotMap)
	assignLinks(target, m, sol, snapshotMap)
	assignLines(target, m, sol, snapshotMap)
	assignStores(target, m, sol, snapshotMap)
	assignStorageUnits(target, m, sol, snapshotMap)
}

// identityMap builds the snapshot map of a whole-horizon solve.
func identityMap(nsnaps int) []int {
	out := make([]int, nsnaps)
	for t := range out {
		out[t] = t
	}
	//
	return out
}

// assignCapacity fills <attr>_opt for one kind: the solved variable for
// extendable components, the standing capacity for the rest.
func assignCapacity(target *network.Network, m *model.Model, sol *model.Solution, kind network.Kind) {
	var (
		tbl   = target.Static(kind)
		attr  = network.NominalAttr(kind)
		block = m.Block(fmt.Sprintf("%s-%s", kind, attr))
	)
	//
	if tbl.Len() == 0 {
		return
	}
	//
	for _, id := range tbl.Index() {
		if block != nil && block.Has(id) {
			tbl.SetFloat(id, attr+"_opt", sol.Value(block.At(id)))
		} else {
			tbl.SetFloat(id, attr+"_opt", tbl.Float(id, attr))
		}
	}
}

func assignGenerators(target *network.Network, m *model.Model, sol *model.Solution, snapshotMap []int) {
	block := m.Block("Generator-p")
	if block == nil {
		return
	}
	//
	out := target.SeriesFor(network.GeneratorKind, "p")

	for _, id := range block.Ids() {
		for t, tt := range snapshotMap {
			out.Set(tt, id, sol.Value(block.AtT(t, id)))
		}
	}
}

// assignLinks writes link flows: p0 is the power drawn at bus0, and each
// further bus receives its efficiency share with opposite sign.
func assignLinks(target *network.Network, m *model.Model, sol *model.Solution, snapshotMap []int) {
	block := m.Block("Link-p")
	if block == nil {
		return
	}
	//
	p0 := target.SeriesFor(network.LinkKind, "p0")

	for _, id := range block.Ids() {
		for t, tt := range snapshotMap {
			p0.Set(tt, id, sol.Value(block.AtT(t, id)))
		}
	}
	//
	for i, effAttr := range []string{"efficiency", "efficiency2", "efficiency3", "efficiency4"} {
		out := target.SeriesFor(network.LinkKind, fmt.Sprintf("p%d", i+1))

		for _, id := range block.Ids() {
			if target.Links.String(id, fmt.Sprintf("bus%d", i+1)) == "" {
				continue
			}
			//
			eff := target.Links.FloatOr(id, effAttr, 1)

			for t, tt := range snapshotMap {
				out.Set(tt, id, -eff*sol.Value(block.AtT(t, id)))
			}
		}
	}
}

// assignLines writes line flows, symmetric at both ends since lines carry no
// losses.
func assignLines(target *network.Network, m *model.Model, sol *model.Solution, snapshotMap []int) {
	block := m.Block("Line-s")
	if block == nil {
		return
	}
	//
	var (
		p0 = target.SeriesFor(network.LineKind, "p0")
		p1 = target.SeriesFor(network.LineKind, "p1")
	)
	//
	for _, id := range block.Ids() {
		for t, tt := range snapshotMap {
			flow := sol.Value(block.AtT(t, id))
			p0.Set(tt, id, flow)
			p1.Set(tt, id, -flow)
		}
	}
}

func assignStores(target *network.Network, m *model.Model, sol *model.Solution, snapshotMap []int) {
	var (
		energy = m.Block("Store-e")
		power  = m.Block("Store-p")
	)
	//
	if energy == nil {
		return
	}
	//
	var (
		e = target.SeriesFor(network.StoreKind, "e")
		p = target.SeriesFor(network.StoreKind, "p")
	)
	//
	for _, id := range energy.Ids() {
		for t, tt := range snapshotMap {
			e.Set(tt, id, sol.Value(energy.AtT(t, id)))
			p.Set(tt, id, sol.Value(power.AtT(t, id)))
		}
	}
}

func assignStorageUnits(target *network.Network, m *model.Model, sol *model.Solution, snapshotMap []int) {
	var (
		dispatch = m.Block("StorageUnit-p_dispatch")
		store    = m.Block("StorageUnit-p_store")
		soc      = m.Block("StorageUnit-state_of_charge")
		spill    = m.Block("StorageUnit-spill")
	)
	//
	if dispatch == nil {
		return
	}
	//
	var (
		p        = target.SeriesFor(network.StorageUnitKind, "p")
		pDisp    = target.SeriesFor(network.StorageUnitKind, "p_dispatch")
		pStore   = target.SeriesFor(network.StorageUnitKind, "p_store")
		socOut   = target.SeriesFor(network.StorageUnitKind, "state_of_charge")
		spillOut = target.SeriesFor(network.StorageUnitKind, "spill")
	)
	//
	for _, id := range dispatch.Ids() {
		for t, tt := range snapshotMap {
			var (
				d = sol.Value(dispatch.AtT(t, id))
				s = sol.Value(store.AtT(t, id))
			)
			//
			pDisp.Set(tt, id, d)
			pStore.Set(tt, id, s)
			p.Set(tt, id, d-s)
			socOut.Set(tt, id, sol.Value(soc.AtT(t, id)))
			//
			if spill != nil && spill.Has(id) {
				spillOut.Set(tt, id, sol.Value(spill.AtT(t, id)))
			}
		}
	}
}
