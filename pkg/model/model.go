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
package model

import (
	"fmt"
	"math"

	"github.com/consensys/go-gridplan/pkg/network"
)

// Sense is the comparison sense of a constraint row.
type Sense int

// The three comparison senses.
const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

// String returns the conventional notation for a sense.
func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	default:
		return "=="
	}
}

// SenseFromString parses a comparison sense ("<=", ">=" or "==").
func SenseFromString(s string) (Sense, error) {
	switch s {
	case "<=":
		return LessEqual, nil
	case ">=":
		return GreaterEqual, nil
	case "==", "=":
		return Equal, nil
	default:
		return LessEqual, fmt.Errorf("unknown constraint sense %q", s)
	}
}

// VarBlock is a named family of decision variables, one per component (static
// blocks such as "Generator-p_nom") or one per snapshot and component
// (time-varying blocks such as "Generator-p").  Blocks are addressed by name
// following the "<Kind>-<attr>" scheme, and variables within a block by
// component identifier (and snapshot).
type VarBlock struct {
	Name string
	Kind network.Kind
	//
	ids    []string
	pos    map[string]int
	nsnaps int // zero for static blocks
	offset int
}

// Size returns the total number of variables in this block.
func (b *VarBlock) Size() int {
	if b.nsnaps == 0 {
		return len(b.ids)
	}
	//
	return len(b.ids) * b.nsnaps
}

// Static reports whether this block has one variable per component (rather
// than per snapshot and component).
func (b *VarBlock) Static() bool {
	return b.nsnaps == 0
}

// Ids returns the component identifiers covered by this block.
func (b *VarBlock) Ids() []string {
	return b.ids
}

// Has checks whether the block covers the given component.
func (b *VarBlock) Has(id string) bool {
	_, ok := b.pos[id]
	return ok
}

// At returns the global variable index for a component in a static block.
func (b *VarBlock) At(id string) int {
	return b.offset + b.pos[id]
}

// AtT returns the global variable index for a component at a snapshot in a
// time-varying block.
func (b *VarBlock) AtT(t int, id string) int {
	return b.offset + t*len(b.ids) + b.pos[id]
}

// Constraint is one labelled linear constraint row, grouped under a name so
// that infeasibility reports can point at the offending constraint family.
type Constraint struct {
	Name  string
	Label string
	Expr  LinExpr
	Sense Sense
	RHS   float64
}

// Model is the optimisation model under assembly: variable blocks with
// elementwise bounds, an objective vector and a list of labelled constraint
// rows.  Decision variables are created once by the base builder; the
// constraint library then only reads variables and appends constraints.
type Model struct {
	blocks map[string]*VarBlock
	order  []*VarBlock
	//
	lower []float64
	upper []float64
	obj   []float64
	//
	constraints []Constraint
}

// NewModel constructs an empty model.
func NewModel() *Model {
	return &Model{blocks: make(map[string]*VarBlock)}
}

// AddVariables creates a new variable block with uniform initial bounds.  For
// static blocks, pass nsnaps as zero.  Bounds can subsequently be tightened
// elementwise via SetLower / SetUpper.
func (m *Model) AddVariables(name string, kind network.Kind, ids []string, nsnaps int, lb, ub float64) *VarBlock {
	if _, ok := m.blocks[name]; ok {
		panic(fmt.Sprintf("duplicate variable block %q", name))
	}
	//
	block := &VarBlock{
		Name:   name,
		Kind:   kind,
		ids:    ids,
		pos:    make(map[string]int, len(ids)),
		nsnaps: nsnaps,
		offset: len(m.lower),
	}
	//
	for i, id := range ids {
		block.pos[id] = i
	}
	//
	for i := 0; i < block.Size(); i++ {
		m.lower = append(m.lower, lb)
		m.upper = append(m.upper, ub)
		m.obj = append(m.obj, 0)
	}
	//
	m.blocks[name] = block
	m.order = append(m.order, block)
	//
	return block
}

// Block looks up a variable block by name (nil if absent).  Constraint
// builders use a nil result as their "no such variables" precondition check.
func (m *Model) Block(name string) *VarBlock {
	return m.blocks[name]
}

// NumVariables returns the total number of decision variables.
func (m *Model) NumVariables() int {
	return len(m.lower)
}

// NumConstraints returns the number of constraint rows added so far.
func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

// Lower returns the lower bound of a variable.
func (m *Model) Lower(index int) float64 {
	return m.lower[index]
}

// Upper returns the upper bound of a variable.
func (m *Model) Upper(index int) float64 {
	return m.upper[index]
}

// SetLower overrides the lower bound of a variable.
func (m *Model) SetLower(index int, v float64) {
	m.lower[index] = v
}

// SetUpper overrides the upper bound of a variable.
func (m *Model) SetUpper(index int, v float64) {
	m.upper[index] = v
}

// Fix pins a variable to a given value.
func (m *Model) Fix(index int, v float64) {
	m.lower[index] = v
	m.upper[index] = v
}

// SetObjective sets the objective coefficient of a variable (minimisation).
func (m *Model) SetObjective(index int, v float64) {
	m.obj[index] = v
}

// AddObjective accumulates onto the objective coefficient of a variable.
func (m *Model) AddObjective(index int, v float64) {
	m.obj[index] += v
}

// AddConstraint appends one labelled constraint row.  The expression's
// constant is folded onto the right-hand side.
func (m *Model) AddConstraint(name, label string, expr LinExpr, sense Sense, rhs float64) {
	m.constraints = append(m.constraints, Constraint{
		Name:  name,
		Label: label,
		Expr:  expr,
		Sense: sense,
		RHS:   rhs - expr.Constant,
	})
}

// Constraints returns all constraint rows added so far.
func (m *Model) Constraints() []Constraint {
	return m.constraints
}

// Consistent applies internal consistency checks: every bound pair must
// satisfy lower <= upper, bounds and coefficients must not be NaN.  Whilst
// not strictly necessary, these highlight otherwise hidden problems as an aid
// to debugging.
func (m *Model) Consistent() []error {
	var errs []error
	//
	for i := range m.lower {
		if m.lower[i] > m.upper[i] {
			errs = append(errs, fmt.Errorf("variable %d has crossed bounds [%g, %g]", i, m.lower[i], m.upper[i]))
		}

		if math.IsNaN(m.lower[i]) || math.IsNaN(m.upper[i]) {
			errs = append(errs, fmt.Errorf("variable %d has NaN bound", i))
		}
	}
	//
	for _, c := range m.constraints {
		if math.IsNaN(c.RHS) {
			errs = append(errs, fmt.Errorf("constraint %s[%s] has NaN right-hand side", c.Name, c.Label))
		}
		//
		c.Expr.Terms(func(index int, coeff float64) {
			if math.IsNaN(coeff) {
				errs = append(errs, fmt.Errorf("constraint %s[%s] has NaN coefficient on variable %d", c.Name, c.Label, index))
			}
		})
	}
	//
	return errs
}
