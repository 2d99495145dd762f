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
	"math"
	"testing"

	"github.com/consensys/go-gridplan/pkg/network"
	"github.com/stretchr/testify/assert"
)

func TestLinExpr(t *testing.T) {
	e := NewLinExpr().Add(0, 1).Add(2, -0.5).Add(0, 1)
	//
	assert.Equal(t, 2.0, e.Coeff(0))
	assert.Equal(t, -0.5, e.Coeff(2))
	assert.Equal(t, 0.0, e.Coeff(1))
	assert.Equal(t, 2, e.Len())
	// Terms iterate in ascending variable order
	var order []int
	e.Terms(func(index int, coeff float64) { order = append(order, index) })
	assert.Equal(t, []int{0, 2}, order)
	//
	f := NewLinExpr().Add(1, 3).AddExpr(e, 2)
	assert.Equal(t, 4.0, f.Coeff(0))
	assert.Equal(t, 3.0, f.Coeff(1))
}

func TestSenseFromString(t *testing.T) {
	for _, s := range []string{"<=", ">=", "==", "="} {
		_, err := SenseFromString(s)
		assert.NoError(t, err)
	}
	//
	_, err := SenseFromString("<")
	assert.Error(t, err)
}

func TestVarBlockIndexing(t *testing.T) {
	m := NewModel()
	static := m.AddVariables("Generator-p_nom", network.GeneratorKind, []string{"a", "b"}, 0, 0, 10)
	dyn := m.AddVariables("Generator-p", network.GeneratorKind, []string{"a", "b"}, 3, 0, math.Inf(1))
	//
	assert.Equal(t, 2, static.Size())
	assert.Equal(t, 6, dyn.Size())
	assert.True(t, static.Static())
	assert.False(t, dyn.Static())
	// Static blocks index by component, time-varying ones by snapshot-major
	// order after the static block.
	assert.Equal(t, 0, static.At("a"))
	assert.Equal(t, 1, static.At("b"))
	assert.Equal(t, 2, dyn.AtT(0, "a"))
	assert.Equal(t, 3, dyn.AtT(0, "b"))
	assert.Equal(t, 4, dyn.AtT(1, "a"))
	//
	assert.Nil(t, m.Block("Line-s"))
	assert.Equal(t, 8, m.NumVariables())
}

func TestConstraintFoldsConstant(t *testing.T) {
	m := NewModel()
	m.AddVariables("x", network.GeneratorKind, []string{"a"}, 0, 0, 1)
	//
	expr := NewLinExpr().Add(0, 1)
	expr.Constant = 5
	m.AddConstraint("test", "a", expr, LessEqual, 8)
	//
	assert.Equal(t, 3.0, m.Constraints()[0].RHS)
}

func TestConsistent(t *testing.T) {
	m := NewModel()
	block := m.AddVariables("x", network.GeneratorKind, []string{"a"}, 0, 0, 1)
	assert.Empty(t, m.Consistent())
	//
	m.SetLower(block.At("a"), 2)
	assert.NotEmpty(t, m.Consistent(), "crossed bounds must be reported")
	//
	m.SetLower(block.At("a"), math.NaN())
	assert.NotEmpty(t, m.Consistent())
}

func TestSolveSmallLP(t *testing.T) {
	// min x + 2y  s.t.  x + y >= 10,  0 <= x <= 6,  0 <= y <= 10
	m := NewModel()
	block := m.AddVariables("x", network.GeneratorKind, []string{"a", "b"}, 0, 0, 10)
	m.SetUpper(block.At("a"), 6)
	m.SetObjective(block.At("a"), 1)
	m.SetObjective(block.At("b"), 2)
	//
	expr := NewLinExpr().Add(block.At("a"), 1).Add(block.At("b"), 1)
	m.AddConstraint("demand", "total", expr, GreaterEqual, 10)
	//
	sol, err := Solve(m)
	assert.NoError(t, err)
	assert.Equal(t, StatusOk, sol.Status)
	assert.Equal(t, ConditionOptimal, sol.Condition)
	assert.InDelta(t, 6, sol.Value(block.At("a")), 1e-6)
	assert.InDelta(t, 4, sol.Value(block.At("b")), 1e-6)
	assert.InDelta(t, 14, sol.Objective, 1e-6)
}

func TestSolveFixedVariable(t *testing.T) {
	m := NewModel()
	block := m.AddVariables("x", network.GeneratorKind, []string{"a"}, 0, 0, 10)
	m.Fix(block.At("a"), 7)
	m.SetObjective(block.At("a"), 1)
	//
	sol, err := Solve(m)
	assert.NoError(t, err)
	assert.InDelta(t, 7, sol.Value(block.At("a")), 1e-6)
}

func TestSolveObjectiveWithLowerBound(t *testing.T) {
	// min 10x  s.t.  x >= 50, x <= 80: the bound shift must not drop the
	// constant part of the objective.
	m := NewModel()
	block := m.AddVariables("x", network.GeneratorKind, []string{"a"}, 0, 50, math.Inf(1))
	m.SetObjective(block.At("a"), 10)
	//
	expr := NewLinExpr().Add(block.At("a"), 1)
	m.AddConstraint("cap", "a", expr, LessEqual, 80)
	//
	sol, err := Solve(m)
	assert.NoError(t, err)
	assert.InDelta(t, 50, sol.Value(block.At("a")), 1e-6)
	assert.InDelta(t, 500, sol.Objective, 1e-6)
}

func TestSolveObjectiveWithUpperBoundOnly(t *testing.T) {
	// min 2x  s.t.  x >= 30, x <= 40 with no lower bound on the variable, so
	// it maps onto a negated column.
	m := NewModel()
	block := m.AddVariables("x", network.GeneratorKind, []string{"a"}, 0, math.Inf(-1), 40)
	m.SetObjective(block.At("a"), 2)
	//
	expr := NewLinExpr().Add(block.At("a"), 1)
	m.AddConstraint("floor", "a", expr, GreaterEqual, 30)
	//
	sol, err := Solve(m)
	assert.NoError(t, err)
	assert.InDelta(t, 30, sol.Value(block.At("a")), 1e-6)
	assert.InDelta(t, 60, sol.Objective, 1e-6)
}

func TestSolveInfeasible(t *testing.T) {
	// x + y >= 100 cannot hold with x <= 6, y <= 10.
	m := NewModel()
	block := m.AddVariables("x", network.GeneratorKind, []string{"a", "b"}, 0, 0, 10)
	m.SetUpper(block.At("a"), 6)
	//
	expr := NewLinExpr().Add(block.At("a"), 1).Add(block.At("b"), 1)
	m.AddConstraint("demand", "total", expr, GreaterEqual, 100)
	//
	sol, err := Solve(m)
	assert.NoError(t, err, "infeasibility is a status, not an error")
	assert.Equal(t, StatusWarning, sol.Status)
	assert.Equal(t, ConditionInfeasible, sol.Condition)
	// The elastic relaxation isolates the violated row
	rows := ComputeInfeasibilities(m)
	assert.Len(t, rows, 1)
	assert.Equal(t, "demand", rows[0].Name)
	assert.Equal(t, "total", rows[0].Label)
	assert.InDelta(t, 84, rows[0].Violation, 1e-6)
}

func TestSolveEmptyModel(t *testing.T) {
	sol, err := Solve(NewModel())
	assert.NoError(t, err)
	assert.Equal(t, ConditionOptimal, sol.Condition)
}
