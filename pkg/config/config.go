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

// Package config defines the validated configuration schema of the solving
// stage.  Every constraint builder declares the exact sub-structure it reads;
// there is no dynamic key lookup.  Inconsistent values produce warnings and
// execution continues with the input as given.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v2"
)

// Config is the top-level configuration object for one solve invocation.
type Config struct {
	// Foresight is the planning strategy: "overnight", "myopic" or
	// "perfect".
	Foresight string `yaml:"foresight"`
	// PlanningHorizons lists the planning years of a multi-horizon run.
	PlanningHorizons []int       `yaml:"planning_horizons"`
	Solving          Solving     `yaml:"solving"`
	Electricity      Electricity `yaml:"electricity"`
	Sector           Sector      `yaml:"sector"`
	// Renewable holds per-technology resource assumptions, keyed by carrier.
	Renewable    map[string]RenewableTech `yaml:"renewable"`
	BuildYearAgg BuildYearAgg             `yaml:"build_year_agg"`
}

// Solving groups everything the solve driver reads.
type Solving struct {
	Options       SolveOptions              `yaml:"options"`
	Solver        Solver                    `yaml:"solver"`
	SolverOptions map[string]map[string]any `yaml:"solver_options"`
	Constraints   Constraints               `yaml:"constraints"`
	AggPNomLimits AggPNomLimits             `yaml:"agg_p_nom_limits"`
	// CustomExtraFunctionality optionally names a plugin providing
	// additional user constraints; an absent file is fatal.
	CustomExtraFunctionality string `yaml:"custom_extra_functionality"`
}

// Solver names the external optimiser and selects one of the named option
// sets.
type Solver struct {
	Name    string `yaml:"name"`
	Options string `yaml:"options"`
}

// SolveOptions tunes the prepare step and the solve modes.
type SolveOptions struct {
	ClipPMaxPu        float64 `yaml:"clip_p_max_pu"`
	LoadShedding      bool    `yaml:"load_shedding"`
	LoadSheddingPrice float64 `yaml:"load_shedding_price"`
	CurtailmentMode   bool    `yaml:"curtailment_mode"`
	NoisyCosts        bool    `yaml:"noisy_costs"`
	NHours            int     `yaml:"nhours"`
	Seed              int64   `yaml:"seed"`
	//
	SkipIterations  bool `yaml:"skip_iterations"`
	TrackIterations bool `yaml:"track_iterations"`
	MinIterations   int  `yaml:"min_iterations"`
	MaxIterations   int  `yaml:"max_iterations"`
	//
	RollingHorizon bool `yaml:"rolling_horizon"`
	Horizon        int  `yaml:"horizon"`
	Overlap        int  `yaml:"overlap"`
	//
	TransmissionLosses       int  `yaml:"transmission_losses"`
	LinearizedUnitCommitment bool `yaml:"linearized_unit_commitment"`
	AssignAllDuals           bool `yaml:"assign_all_duals"`
}

// Constraints holds the per-constraint enablement flags read by the
// extra-functionality dispatcher.  EQ carries its level inline (e.g.
// "EQ0.7c"); empty disables it.
type Constraints struct {
	BAU             bool   `yaml:"BAU"`
	SAFE            bool   `yaml:"SAFE"`
	CCL             bool   `yaml:"CCL"`
	EQ              string `yaml:"EQ"`
	GreenImportsLim bool   `yaml:"green_imports_lim"`
}

// AggPNomLimits configures the country/carrier capacity bounds (CCL)
// constraint.
type AggPNomLimits struct {
	File            string `yaml:"file"`
	AggOffwind      bool   `yaml:"agg_offwind"`
	IncludeExisting bool   `yaml:"include_existing"`
}

// Electricity groups the electricity-sector parameters the constraint
// library reads.
type Electricity struct {
	BAUMinCapacities     map[string]float64  `yaml:"BAU_mincapacities"`
	SAFEReserveMargin    float64             `yaml:"SAFE_reservemargin"`
	ConventionalCarriers []string            `yaml:"conventional_carriers"`
	RenewableCarriers    []string            `yaml:"renewable_carriers"`
	ExtendableCarriers   map[string][]string `yaml:"extendable_carriers"`
	OperationalReserve   OperationalReserve  `yaml:"operational_reserve"`
}

// OperationalReserve configures the GenX-style operational reserve margin.
type OperationalReserve struct {
	Activate    bool    `yaml:"activate"`
	EpsilonLoad float64 `yaml:"epsilon_load"`
	EpsilonVRES float64 `yaml:"epsilon_vres"`
	Contingency float64 `yaml:"contingency"`
}

// Sector groups the sector-coupling parameters the constraint library reads.
type Sector struct {
	// CO2SequestrationPotential is the annual sequestration limit in Mt,
	// keyed by planning year.
	CO2SequestrationPotential map[int]float64 `yaml:"co2_sequestration_potential"`
	H2RetrofitCapacityPerCH4  float64         `yaml:"H2_retrofit_capacity_per_CH4"`
	GreenImports              bool            `yaml:"green_imports"`
	GreenImportCarriers       []string        `yaml:"green_import_carriers"`
	EnhancedGeothermal        Toggle          `yaml:"enhanced_geothermal"`
	LimitMaxGrowth            LimitMaxGrowth  `yaml:"limit_max_growth"`
}

// Toggle is a nested enable flag.
type Toggle struct {
	Enable bool `yaml:"enable"`
}

// LimitMaxGrowth configures per-carrier growth-rate limits under perfect
// foresight.
type LimitMaxGrowth struct {
	Enable            bool               `yaml:"enable"`
	Factor            float64            `yaml:"factor"`
	MaxGrowth         map[string]float64 `yaml:"max_growth"`
	MaxRelativeGrowth map[string]float64 `yaml:"max_relative_growth"`
}

// RenewableTech holds resource assumptions for one renewable carrier.
type RenewableTech struct {
	CapacityPerSqkm float64 `yaml:"capacity_per_sqkm"`
}

// BuildYearAgg configures build-year aggregation around myopic solves.
type BuildYearAgg struct {
	Enable          bool     `yaml:"enable"`
	ExcludeCarriers []string `yaml:"exclude_carriers"`
}

// Default returns a configuration with the standard defaults applied.
func Default() *Config {
	return &Config{
		Foresight: "overnight",
		Solving: Solving{
			Solver: Solver{Name: "simplex"},
			Options: SolveOptions{
				LoadSheddingPrice: 1e2,
				MinIterations:     1,
				MaxIterations:     6,
			},
		},
	}
}

// Load reads and parses a YAML configuration file, applying defaults for
// absent keys.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	//
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	//
	return cfg, nil
}

var eqRegex = regexp.MustCompile(`^EQ[0-9]*\.?[0-9]+c?$`)

// Validate applies consistency checks, returning human-readable warnings.
// Inconsistent configuration never aborts a solve; the caller is trusted to
// interpret the warnings.
func (c *Config) Validate() []string {
	var warnings []string
	//
	switch c.Foresight {
	case "overnight", "myopic", "perfect":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown foresight %q, assuming overnight", c.Foresight))
	}
	//
	if c.Solving.Options.MinIterations > c.Solving.Options.MaxIterations {
		warnings = append(warnings,
			fmt.Sprintf("min_iterations (%d) exceeds max_iterations (%d)",
				c.Solving.Options.MinIterations, c.Solving.Options.MaxIterations))
	}

	if eq := c.Solving.Constraints.EQ; eq != "" && !eqRegex.MatchString(eq) {
		warnings = append(warnings, fmt.Sprintf("EQ option %q does not match the expected 'EQ<level>[c]' form", eq))
	}

	if c.Electricity.SAFEReserveMargin < 0 {
		warnings = append(warnings, "negative SAFE reserve margin")
	}

	if c.Solving.Constraints.CCL && c.Solving.AggPNomLimits.File == "" {
		warnings = append(warnings, "CCL constraint enabled without an agg_p_nom_limits file")
	}

	if c.BuildYearAgg.Enable && c.Foresight != "myopic" {
		warnings = append(warnings, "build-year aggregation is only applied under myopic foresight")
	}
	//
	return warnings
}

// LimitForYear resolves a year-keyed limit map for one planning year, with a
// fallback for absent years.
func LimitForYear(limits map[int]float64, year int, def float64) float64 {
	if v, ok := limits[year]; ok {
		return v
	}
	//
	return def
}
