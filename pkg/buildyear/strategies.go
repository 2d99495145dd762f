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

// Package buildyear implements build-year aggregation: merging components
// that are identical in all but build year into one component before
// solving, and splitting them apart again afterwards.  Attributes that
// cannot survive a lossy merge are stashed in per-year side columns and
// restored exactly on disaggregation.
package buildyear

import (
	"math"
	"regexp"
	"strings"
)

// floatStrategy selects how a static float attribute is merged across the
// members of an aggregation group.
type floatStrategy int

const (
	// aggSum adds the members' values; infinities propagate, so a group
	// with one unbounded potential stays unbounded.
	aggSum floatStrategy = iota
	// aggMean averages the members' values, ignoring NaN entries.
	aggMean
	// aggLatest takes the value of the member with the newest build year.
	aggLatest
	// aggZero resets multi-member groups to zero (build years are restored
	// on disaggregation).
	aggZero
	// aggOne resets multi-member groups to one.
	aggOne
	// aggFirst keeps the first member's value.
	aggFirst
)

// staticFloatStrategies maps static float attributes to their merge
// strategy, with nominal attributes spelled "@nom" and expanded per kind.
var staticFloatStrategies = map[string]floatStrategy{
	"@nom":            aggSum,
	"@nom_min":        aggSum,
	"@nom_max":        aggSum,
	"@nom_opt":        aggSum,
	"lifetime":        aggMean,
	"capital_cost":    aggLatest,
	"marginal_cost":   aggMean,
	"efficiency":      aggMean,
	"efficiency2":     aggMean,
	"efficiency3":     aggMean,
	"efficiency4":     aggMean,
	"standing_loss":   aggMean,
	"length":          aggMean,
	"length_original": aggMean,
	"p_max_pu":        aggMean,
	"p_min_pu":        aggMean,
	"build_year":      aggZero,
	"weight":          aggOne,
}

// staticFloat resolves the merge strategy for one static float column.
// Unknown attributes keep the first member's value.
func staticFloat(col, nominal string) floatStrategy {
	if strings.HasPrefix(col, nominal) {
		col = "@nom" + strings.TrimPrefix(col, nominal)
	}
	//
	if s, ok := staticFloatStrategies[col]; ok {
		return s
	}
	//
	return aggFirst
}

// mergeFloats applies a float strategy to the values of one group, paired
// with the members' build years for the latest-year strategy.
func mergeFloats(strategy floatStrategy, values, years []float64) float64 {
	switch strategy {
	case aggSum:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		//
		return sum
	case aggMean:
		var sum, count float64

		for _, v := range values {
			if !math.IsNaN(v) {
				sum += v
				count++
			}
		}
		//
		if count == 0 {
			return math.NaN()
		}
		//
		return sum / count
	case aggLatest:
		best := 0
		for i := range years {
			if years[i] > years[best] {
				best = i
			}
		}
		//
		return values[best]
	case aggZero:
		if len(values) > 1 {
			return 0
		}
		//
		return values[0]
	case aggOne:
		return 1
	default:
		return values[0]
	}
}

var yearSuffix = regexp.MustCompile(`-([0-9]{4})$`)

// stripYear removes a trailing build-year suffix from a component name, so
// e.g. "windA-2030" maps onto the aggregate "windA".
func stripYear(id string) string {
	return yearSuffix.ReplaceAllString(id, "")
}

// suffixYear extracts the build year encoded in a component name, or -1 when
// the name carries none.
func suffixYear(id string) int {
	match := yearSuffix.FindStringSubmatch(id)
	if match == nil {
		return -1
	}
	//
	year := 0
	for _, c := range match[1] {
		year = year*10 + int(c-'0')
	}
	//
	return year
}

// storedAttrs lists the attributes stashed per build year in side columns
// ("@nom" expands to the kind's nominal attribute).  These are the
// attributes disaggregation restores exactly.
var storedAttrs = []string{
	"@nom",
	"@nom_min",
	"@nom_max",
	"lifetime",
	"capital_cost",
	"marginal_cost",
	"efficiency",
	"efficiency2",
	"efficiency3",
	"efficiency4",
}

// storedBoolAttrs lists the bool attributes stashed per build year.
var storedBoolAttrs = []string{
	"@nom_extendable",
}

// expandNominal replaces the "@nom" placeholder with a kind's nominal
// attribute name.
func expandNominal(attrs []string, nominal string) []string {
	out := make([]string, len(attrs))
	for i, a := range attrs {
		out[i] = strings.Replace(a, "@nom", nominal, 1)
	}
	//
	return out
}
