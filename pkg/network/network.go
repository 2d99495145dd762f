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
package network

import (
	"github.com/bits-and-blooms/bitset"
)

// Snapshot identifies one point in time at which flows must balance.  For
// multi-period investment models, each snapshot belongs to an investment
// period (a planning year); for single-period models the period is zero.
type Snapshot struct {
	Period   int    `json:"period"`
	Timestep string `json:"timestep"`
}

// Weighting attaches the standard per-snapshot weights: one for the
// objective, one for generation totals and one for storage totals.
type Weighting struct {
	Objective  float64 `json:"objective"`
	Generators float64 `json:"generators"`
	Stores     float64 `json:"stores"`
}

// PeriodWeighting attaches per-investment-period weights: the number of years
// the period represents, and its objective discount weight.
type PeriodWeighting struct {
	Years     float64 `json:"years"`
	Objective float64 `json:"objective"`
}

// Network is an in-memory representation of a clustered, sector-coupled
// energy system: one static table per component kind, plus per-kind maps of
// time-varying attribute series, a snapshot index and (optionally) investment
// periods.
type Network struct {
	Snapshots                  []Snapshot
	SnapshotWeightings         []Weighting
	InvestmentPeriods          []int
	InvestmentPeriodWeightings map[int]PeriodWeighting
	//
	Buses             *Table
	Carriers          *Table
	Generators        *Table
	GlobalConstraints *Table
	Lines             *Table
	Links             *Table
	Loads             *Table
	StorageUnits      *Table
	Stores            *Table
	//
	BusesT        map[string]*Series
	GeneratorsT   map[string]*Series
	LinesT        map[string]*Series
	LinksT        map[string]*Series
	LoadsT        map[string]*Series
	StorageUnitsT map[string]*Series
	StoresT       map[string]*Series
	// Meta captures the configuration a solved network was produced with.
	Meta map[string]any
}

// New constructs an empty network spanning the given snapshots, all weighted
// equally with weight one.
func New(snapshots []Snapshot) *Network {
	weightings := make([]Weighting, len(snapshots))
	for i := range weightings {
		weightings[i] = Weighting{Objective: 1, Generators: 1, Stores: 1}
	}
	//
	return &Network{
		Snapshots:                  snapshots,
		SnapshotWeightings:         weightings,
		InvestmentPeriodWeightings: make(map[int]PeriodWeighting),
		Buses:                      NewTable(),
		Carriers:                   NewTable(),
		Generators:                 NewTable(),
		GlobalConstraints:          NewTable(),
		Lines:                      NewTable(),
		Links:                      NewTable(),
		Loads:                      NewTable(),
		StorageUnits:               NewTable(),
		Stores:                     NewTable(),
		BusesT:                     make(map[string]*Series),
		GeneratorsT:                make(map[string]*Series),
		LinesT:                     make(map[string]*Series),
		LinksT:                     make(map[string]*Series),
		LoadsT:                     make(map[string]*Series),
		StorageUnitsT:              make(map[string]*Series),
		StoresT:                    make(map[string]*Series),
		Meta:                       make(map[string]any),
	}
}

// Static returns the static table for a given component kind (nil for unknown
// kinds).
func (n *Network) Static(kind Kind) *Table {
	switch kind {
	case BusKind:
		return n.Buses
	case CarrierKind:
		return n.Carriers
	case GeneratorKind:
		return n.Generators
	case GlobalConstraintKind:
		return n.GlobalConstraints
	case LineKind:
		return n.Lines
	case LinkKind:
		return n.Links
	case LoadKind:
		return n.Loads
	case StorageUnitKind:
		return n.StorageUnits
	case StoreKind:
		return n.Stores
	default:
		return nil
	}
}

// SetStatic replaces the static table for a given component kind.
func (n *Network) SetStatic(kind Kind, tbl *Table) {
	switch kind {
	case BusKind:
		n.Buses = tbl
	case CarrierKind:
		n.Carriers = tbl
	case GeneratorKind:
		n.Generators = tbl
	case GlobalConstraintKind:
		n.GlobalConstraints = tbl
	case LineKind:
		n.Lines = tbl
	case LinkKind:
		n.Links = tbl
	case LoadKind:
		n.Loads = tbl
	case StorageUnitKind:
		n.StorageUnits = tbl
	case StoreKind:
		n.Stores = tbl
	}
}

// SetDynamic replaces the time-varying attribute map for a given component
// kind.
func (n *Network) SetDynamic(kind Kind, dyn map[string]*Series) {
	switch kind {
	case BusKind:
		n.BusesT = dyn
	case GeneratorKind:
		n.GeneratorsT = dyn
	case LineKind:
		n.LinesT = dyn
	case LinkKind:
		n.LinksT = dyn
	case LoadKind:
		n.LoadsT = dyn
	case StorageUnitKind:
		n.StorageUnitsT = dyn
	case StoreKind:
		n.StoresT = dyn
	}
}

// Dynamic returns the time-varying attribute map for a given component kind
// (nil for kinds without time-varying data).
func (n *Network) Dynamic(kind Kind) map[string]*Series {
	switch kind {
	case BusKind:
		return n.BusesT
	case GeneratorKind:
		return n.GeneratorsT
	case LineKind:
		return n.LinesT
	case LinkKind:
		return n.LinksT
	case LoadKind:
		return n.LoadsT
	case StorageUnitKind:
		return n.StorageUnitsT
	case StoreKind:
		return n.StoresT
	default:
		return nil
	}
}

// SeriesFor returns the series for a given kind and attribute, creating an
// empty one on first use.
func (n *Network) SeriesFor(kind Kind, attr string) *Series {
	dyn := n.Dynamic(kind)
	//
	if s, ok := dyn[attr]; ok {
		return s
	}
	//
	s := NewSeries(len(n.Snapshots))
	dyn[attr] = s
	//
	return s
}

// SeriesAt reads a time-varying attribute for one component, falling back to
// the static attribute of the same name when no series column exists.  This
// is how "switchable" attributes such as p_max_pu are resolved.
func (n *Network) SeriesAt(kind Kind, attr string, t int, id string) float64 {
	if s, ok := n.Dynamic(kind)[attr]; ok && s.Has(id) {
		return s.At(t, id)
	}
	//
	return n.Static(kind).Float(id, attr)
}

// MultiInvest reports whether this network spans multiple investment
// periods.
func (n *Network) MultiInvest() bool {
	return len(n.InvestmentPeriods) > 0
}

// PeriodSnapshots returns the snapshot indices belonging to a given
// investment period.
func (n *Network) PeriodSnapshots(period int) []int {
	var out []int
	//
	for t, sn := range n.Snapshots {
		if sn.Period == period {
			out = append(out, t)
		}
	}
	//
	return out
}

// LastPeriodSnapshot returns the index of the final snapshot of a given
// investment period, or -1 if the period has no snapshots.
func (n *Network) LastPeriodSnapshot(period int) int {
	last := -1
	//
	for t, sn := range n.Snapshots {
		if sn.Period == period {
			last = t
		}
	}
	//
	return last
}

// ActivityMask computes, for one component, the set of snapshots during which
// it is active.  In a multi-period model a component is active from its build
// year until the end of its lifetime; in a single-period model every
// component is always active.  Components without a build year (zero) are
// always active.
func (n *Network) ActivityMask(kind Kind, id string) *bitset.BitSet {
	mask := bitset.New(uint(len(n.Snapshots)))
	//
	if !n.MultiInvest() {
		for t := range n.Snapshots {
			mask.Set(uint(t))
		}
		//
		return mask
	}
	//
	tbl := n.Static(kind)
	buildYear := int(tbl.Float(id, "build_year"))
	lifetime := tbl.Float(id, "lifetime")
	//
	for t, sn := range n.Snapshots {
		if buildYear == 0 {
			mask.Set(uint(t))
		} else if sn.Period >= buildYear && float64(sn.Period) < float64(buildYear)+lifetime {
			mask.Set(uint(t))
		}
	}
	//
	return mask
}

// AddGlobalConstraint appends one global constraint record.  Sense is one of
// "<=", ">=" or "=="; the investment period is negative for single-period
// constraints.
func (n *Network) AddGlobalConstraint(name, typ, carrierAttribute, sense string, constant float64, period int) error {
	if err := n.GlobalConstraints.AddRow(name); err != nil {
		return err
	}
	//
	n.GlobalConstraints.SetString(name, "type", typ)
	n.GlobalConstraints.SetString(name, "carrier_attribute", carrierAttribute)
	n.GlobalConstraints.SetString(name, "sense", sense)
	n.GlobalConstraints.SetFloat(name, "constant", constant)
	n.GlobalConstraints.SetFloat(name, "investment_period", float64(period))
	//
	return nil
}
