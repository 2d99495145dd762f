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

package constraints

import (
	"fmt"
	"os"
	"plugin"

	"github.com/consensys/go-gridplan/pkg/model"
	"github.com/consensys/go-gridplan/pkg/network"
	log "github.com/sirupsen/logrus"
)

// customSymbol is the symbol a custom constraint plugin must export, with
// signature func(*model.Model, *network.Network) error.
const customSymbol = "ExtraFunctionality"

// applyCustom loads a user-provided constraint plugin and invokes it on the
// model.  A configured but missing plugin is an error, not a silent no-op.
func applyCustom(m *model.Model, n *network.Network, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("custom extra functionality %s: %w", path, err)
	}
	//
	p, err := plugin.Open(path)
	if err != nil {
		return fmt.Errorf("loading custom extra functionality: %w", err)
	}
	//
	sym, err := p.Lookup(customSymbol)
	if err != nil {
		return fmt.Errorf("custom extra functionality %s: %w", path, err)
	}
	//
	fn, ok := sym.(func(*model.Model, *network.Network) error)
	if !ok {
		return fmt.Errorf("custom extra functionality %s: %s has unexpected signature", path, customSymbol)
	}
	//
	log.Infof("applying custom extra functionality from %s", path)
	//
	return fn(m, n)
}
