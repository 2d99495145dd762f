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
	"path"

	"github.com/consensys/go-gridplan/pkg/config"
	"github.com/consensys/go-gridplan/pkg/network"
	"github.com/spf13/cobra"
)

// Get an expected flag, or panic if an error arises.
func getFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Get an expected int flag, or panic if an error arises.
func getInt(cmd *cobra.Command, flag string) int {
	r, err := cmd.Flags().GetInt(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Get an expected string flag, or panic if an error arises.
func getString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Parse a network file using a parser based on the extension of the filename.
func readNetworkFile(filename string) *network.Network {
	bytes, err := os.ReadFile(filename)
	if err == nil {
		// Check file extension
		ext := path.Ext(filename)
		//
		switch ext {
		case ".json":
			n, err := network.FromBytes(bytes)
			if err == nil {
				return n
			}

			fmt.Println(err)
			os.Exit(2)
		default:
			err = fmt.Errorf("unknown network file format: %s", ext)
		}
	}
	// Handle error
	fmt.Println(err)
	os.Exit(2)
	// unreachable
	return nil
}

// Parse a solver configuration file, falling back on the built-in defaults
// when no filename is given.
func readConfigFile(filename string) *config.Config {
	if filename == "" {
		return config.Default()
	}
	//
	cfg, err := config.Load(filename)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return cfg
}

// Write a solved network back out as JSON.
func writeNetworkFile(filename string, n *network.Network) {
	bytes, err := network.ToBytes(n)
	if err == nil {
		err = os.WriteFile(filename, bytes, 0644)
	}
	// Handle error
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
}
