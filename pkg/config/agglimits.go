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

package config

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// CapacityBound is a min/max capacity range for one (country, carrier) pair.
// Either end may be NaN, meaning unbounded.
type CapacityBound struct {
	Min float64
	Max float64
}

// CapacityBounds maps "country/carrier" keys to their capacity range for one
// planning year.
type CapacityBounds map[string]CapacityBound

// BoundKey builds the lookup key used by CapacityBounds.
func BoundKey(country, carrier string) string {
	return country + "/" + carrier
}

// ReadCapacityBounds parses a country/carrier capacity bounds file for the
// given planning year.  The expected format is a CSV with columns "country",
// "carrier" and per-year pairs "min_<year>", "max_<year>".  Empty cells mean
// unbounded and are reported as NaN.
func ReadCapacityBounds(path string, year int) (CapacityBounds, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	//
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	} else if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty capacity bounds file", path)
	}
	// Locate the columns for the requested year.
	header := records[0]
	minCol, maxCol := -1, -1

	for i, name := range header {
		switch strings.TrimSpace(name) {
		case fmt.Sprintf("min_%d", year):
			minCol = i
		case fmt.Sprintf("max_%d", year):
			maxCol = i
		}
	}
	//
	if minCol < 0 && maxCol < 0 {
		return nil, fmt.Errorf("%s: no capacity bound columns for year %d", path, year)
	}
	//
	bounds := make(CapacityBounds, len(records)-1)

	for i, rec := range records[1:] {
		if len(rec) < 2 {
			return nil, fmt.Errorf("%s: line %d: expected at least country and carrier columns", path, i+2)
		}
		//
		bound := CapacityBound{Min: math.NaN(), Max: math.NaN()}
		//
		if bound.Min, err = parseBoundCell(rec, minCol); err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", path, i+2, err)
		} else if bound.Max, err = parseBoundCell(rec, maxCol); err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", path, i+2, err)
		}
		//
		bounds[BoundKey(rec[0], rec[1])] = bound
	}
	//
	return bounds, nil
}

func parseBoundCell(rec []string, col int) (float64, error) {
	if col < 0 || col >= len(rec) || strings.TrimSpace(rec[col]) == "" {
		return math.NaN(), nil
	}
	//
	return strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
}
