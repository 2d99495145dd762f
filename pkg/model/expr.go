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

import "sort"

// LinExpr is a sparse linear expression over decision variables, identified by
// their global index, plus a constant offset.  Expressions are built
// incrementally by the constraint library and then frozen into constraint
// rows.
type LinExpr struct {
	coeffs   map[int]float64
	Constant float64
}

// NewLinExpr constructs the empty (zero) expression.
func NewLinExpr() LinExpr {
	return LinExpr{coeffs: make(map[int]float64)}
}

// Add accumulates a coefficient onto one variable.
func (e LinExpr) Add(index int, coeff float64) LinExpr {
	e.coeffs[index] += coeff
	return e
}

// AddExpr accumulates another expression, scaled by the given factor.
func (e LinExpr) AddExpr(other LinExpr, scale float64) LinExpr {
	for i, c := range other.coeffs {
		e.coeffs[i] += c * scale
	}
	//
	e.Constant += other.Constant * scale
	//
	return e
}

// Coeff returns the coefficient of one variable (zero if absent).
func (e LinExpr) Coeff(index int) float64 {
	return e.coeffs[index]
}

// Len returns the number of variables with a (possibly zero) recorded
// coefficient.
func (e LinExpr) Len() int {
	return len(e.coeffs)
}

// Terms iterates the expression's terms in ascending variable order.  A
// deterministic order keeps the assembled constraint system reproducible.
func (e LinExpr) Terms(fn func(index int, coeff float64)) {
	indices := make([]int, 0, len(e.coeffs))
	for i := range e.coeffs {
		indices = append(indices, i)
	}
	//
	sort.Ints(indices)
	//
	for _, i := range indices {
		fn(i, e.coeffs[i])
	}
}
