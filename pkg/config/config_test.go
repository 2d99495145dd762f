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
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	//
	assert.Equal(t, "overnight", cfg.Foresight)
	assert.Equal(t, "simplex", cfg.Solving.Solver.Name)
	assert.Equal(t, 1, cfg.Solving.Options.MinIterations)
	assert.Equal(t, 6, cfg.Solving.Options.MaxIterations)
	assert.Empty(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown foresight", func(c *Config) { c.Foresight = "hindsight" }},
		{"crossed iterations", func(c *Config) { c.Solving.Options.MinIterations = 10 }},
		{"malformed EQ", func(c *Config) { c.Solving.Constraints.EQ = "EQc" }},
		{"negative reserve margin", func(c *Config) { c.Electricity.SAFEReserveMargin = -0.1 }},
		{"CCL without bounds file", func(c *Config) { c.Solving.Constraints.CCL = true }},
		{"aggregation without myopic", func(c *Config) { c.BuildYearAgg.Enable = true }},
	}
	//
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Len(t, cfg.Validate(), 1)
		})
	}
}

func TestValidateAcceptsEQForms(t *testing.T) {
	for _, eq := range []string{"EQ0.7", "EQ0.7c", "EQ1", "EQ.95c"} {
		cfg := Default()
		cfg.Solving.Constraints.EQ = eq
		assert.Empty(t, cfg.Validate(), "%q is a valid equity option", eq)
	}
}

func TestLoad(t *testing.T) {
	raw := `
foresight: myopic
planning_horizons: [2030, 2040, 2050]
solving:
  options:
    load_shedding: true
    nhours: 100
  constraints:
    EQ: "EQ0.7c"
electricity:
  SAFE_reservemargin: 0.1
  BAU_mincapacities:
    OCGT: 100000
sector:
  co2_sequestration_potential:
    2030: 150
build_year_agg:
  enable: true
  exclude_carriers: [battery]
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(raw), 0644))
	//
	cfg, err := Load(path)
	assert.NoError(t, err)
	//
	assert.Equal(t, "myopic", cfg.Foresight)
	assert.Equal(t, []int{2030, 2040, 2050}, cfg.PlanningHorizons)
	assert.True(t, cfg.Solving.Options.LoadShedding)
	assert.Equal(t, 100, cfg.Solving.Options.NHours)
	assert.Equal(t, "EQ0.7c", cfg.Solving.Constraints.EQ)
	assert.Equal(t, 0.1, cfg.Electricity.SAFEReserveMargin)
	assert.Equal(t, 100000.0, cfg.Electricity.BAUMinCapacities["OCGT"])
	assert.Equal(t, 150.0, cfg.Sector.CO2SequestrationPotential[2030])
	assert.True(t, cfg.BuildYearAgg.Enable)
	assert.Equal(t, []string{"battery"}, cfg.BuildYearAgg.ExcludeCarriers)
	// Defaults survive a partial file
	assert.Equal(t, "simplex", cfg.Solving.Solver.Name)
	assert.Equal(t, 6, cfg.Solving.Options.MaxIterations)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLimitForYear(t *testing.T) {
	limits := map[int]float64{2030: 150, 2040: 300}
	//
	assert.Equal(t, 150.0, LimitForYear(limits, 2030, 200))
	assert.Equal(t, 200.0, LimitForYear(limits, 2050, 200))
	assert.Equal(t, 200.0, LimitForYear(nil, 2030, 200))
}

func TestReadCapacityBounds(t *testing.T) {
	raw := "country,carrier,min_2030,max_2030,min_2040,max_2040\n" +
		"DE,onwind,100,5000,200,\n" +
		"FR,solar,,200,,\n"
	path := filepath.Join(t.TempDir(), "bounds.csv")
	assert.NoError(t, os.WriteFile(path, []byte(raw), 0644))
	//
	bounds, err := ReadCapacityBounds(path, 2030)
	assert.NoError(t, err)
	assert.Len(t, bounds, 2)
	//
	de := bounds[BoundKey("DE", "onwind")]
	assert.Equal(t, 100.0, de.Min)
	assert.Equal(t, 5000.0, de.Max)
	//
	fr := bounds[BoundKey("FR", "solar")]
	assert.True(t, math.IsNaN(fr.Min), "empty cells are unbounded")
	assert.Equal(t, 200.0, fr.Max)
	// A later year resolves different columns
	bounds, err = ReadCapacityBounds(path, 2040)
	assert.NoError(t, err)
	assert.Equal(t, 200.0, bounds[BoundKey("DE", "onwind")].Min)
	assert.True(t, math.IsNaN(bounds[BoundKey("DE", "onwind")].Max))
	// Years without columns are an error
	_, err = ReadCapacityBounds(path, 2050)
	assert.Error(t, err)
}
