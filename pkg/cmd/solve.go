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
package cmd

import (
	"fmt"
	"os"

	"github.com/consensys/go-gridplan/pkg/solve"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

// solveCmd represents the solve command
var solveCmd = &cobra.Command{
	Use:   "solve [flags] network_file",
	Short: "Solve the capacity expansion problem for a given network.",
	Long: `Solve the capacity expansion problem for a given network.
	Networks are given as JSON files.  The solved network, including
	optimal capacities and dispatch, is written back out as JSON.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}

		horizon := getInt(cmd, "horizon")
		output := getString(cmd, "output")
		metafile := getString(cmd, "meta")
		// Parse network
		n := readNetworkFile(args[0])
		// Parse configuration
		cfg := readConfigFile(getString(cmd, "config"))
		// Prepare network for solving
		if err := solve.Prepare(n, cfg, horizon); err != nil {
			log.Fatal(err)
		}
		// Go!
		if err := solve.SolveNetwork(n, cfg, horizon); err != nil {
			log.Fatal(err)
		}
		// Write out solved network
		if output == "" {
			output = args[0]
		}

		writeNetworkFile(output, n)
		// Write out run metadata
		if metafile != "" {
			writeMetaFile(metafile, n.Meta)
		}
	},
}

// Write the run metadata stamped onto a solved network as YAML.
func writeMetaFile(filename string, meta map[string]any) {
	bytes, err := yaml.Marshal(meta)
	if err == nil {
		err = os.WriteFile(filename, bytes, 0644)
	}
	// Handle error
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().StringP("config", "c", "", "solver configuration file (YAML)")
	solveCmd.Flags().IntP("horizon", "y", 0, "planning horizon year being solved")
	solveCmd.Flags().StringP("output", "o", "", "output file for the solved network (defaults to the input file)")
	solveCmd.Flags().StringP("meta", "m", "", "output file for run metadata (YAML)")
}
