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

import "strings"

// Kind identifies a class of network component (bus, generator, etc.).  Every
// component of a given kind lives in one static table, with optional
// time-varying attribute matrices alongside.
type Kind string

// The component kinds understood by this package.  Kinds carrying a nominal
// capacity attribute can be optimised; the remainder are pure data.
const (
	BusKind              Kind = "Bus"
	CarrierKind          Kind = "Carrier"
	GeneratorKind        Kind = "Generator"
	GlobalConstraintKind Kind = "GlobalConstraint"
	LineKind             Kind = "Line"
	LinkKind             Kind = "Link"
	LoadKind             Kind = "Load"
	StorageUnitKind      Kind = "StorageUnit"
	StoreKind            Kind = "Store"
)

// NominalAttr returns the name of the nominal capacity attribute for a given
// component kind, or "" if the kind has no nominal capacity.  For example,
// generators are sized in power ("p_nom") whilst stores are sized in energy
// ("e_nom").
func NominalAttr(kind Kind) string {
	switch kind {
	case GeneratorKind, LinkKind, StorageUnitKind:
		return "p_nom"
	case LineKind:
		return "s_nom"
	case StoreKind:
		return "e_nom"
	default:
		return ""
	}
}

// OptimisableKinds returns the kinds whose components carry decision
// variables, in a fixed iteration order.
func OptimisableKinds() []Kind {
	return []Kind{GeneratorKind, LinkKind, LineKind, StoreKind, StorageUnitKind}
}

// outputSeries identifies, per kind, those time-varying attributes which are
// produced by the optimiser (rather than provided as input).  Shadow price
// series are prefixed "mu_" and are also outputs, but are recognised via
// their prefix since one may exist per bounded attribute.
var outputSeries = map[Kind][]string{
	GeneratorKind:   {"p"},
	LinkKind:        {"p0", "p1", "p2", "p3", "p4"},
	LineKind:        {"p0", "p1"},
	StoreKind:       {"e", "p"},
	StorageUnitKind: {"p", "p_dispatch", "p_store", "state_of_charge", "spill"},
	BusKind:         {"p", "marginal_price"},
}

// IsOutputSeries determines whether a given time-varying attribute is a
// solver output for the given kind.
func IsOutputSeries(kind Kind, attr string) bool {
	if strings.HasPrefix(attr, "mu_") {
		return true
	}

	for _, a := range outputSeries[kind] {
		if a == attr {
			return true
		}
	}

	return false
}

// IsShadowPriceSeries determines whether a time-varying attribute holds dual
// values.  Duals are never rescaled during build-year disaggregation.
func IsShadowPriceSeries(attr string) bool {
	return strings.HasPrefix(attr, "mu_")
}
