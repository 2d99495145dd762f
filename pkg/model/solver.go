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
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Solver status strings, following the usual solver interface conventions.
const (
	StatusOk      = "ok"
	StatusWarning = "warning"
	//
	ConditionOptimal    = "optimal"
	ConditionInfeasible = "infeasible"
	ConditionUnbounded  = "unbounded"
	ConditionError      = "error"
)

// Solution holds the primal solution of a solved model.
type Solution struct {
	Status    string
	Condition string
	Objective float64
	//
	x []float64
}

// Value returns the solved value of one decision variable.
func (s *Solution) Value(index int) float64 {
	return s.x[index]
}

// How each model variable maps into the standard-form system: either a single
// shifted column (finite lower bound), a single negated column (only a finite
// upper bound), or a split pair of columns (free variable).
type varMapping struct {
	kind  int // 0 = shifted, 1 = negated, 2 = split
	col   int
	col2  int // second column for split variables
	shift float64
}

const (
	varShifted = iota
	varNegated
	varSplit
)

// standardForm is the model rewritten as min c'y s.t. Ay = b, y >= 0, which
// is the form the simplex oracle accepts.  Bounded variables are shifted onto
// the nonnegative orthant, upper bounds become slack rows, and inequality
// rows gain slack or surplus columns.
type standardForm struct {
	c []float64
	a *mat.Dense
	b []float64
	// Constant term the variable mappings move out of the objective,
	// e.g. c*lb for a shifted variable.
	objShift float64
	//
	mappings []varMapping
	// conRows[i] is the standard-form row holding model constraint i.
	conRows []int
}

// Solve hands the assembled model to the LP oracle and returns its primal
// solution.  Infeasibility and unboundedness are reported via the solution's
// status/condition pair, not as errors; errors indicate a malformed model.
func Solve(m *Model) (*Solution, error) {
	if errs := m.Consistent(); len(errs) > 0 {
		return nil, fmt.Errorf("inconsistent model: %w", errors.Join(errs...))
	}
	//
	sf := toStandardForm(m, false)
	//
	if len(sf.c) == 0 {
		return &Solution{Status: StatusOk, Condition: ConditionOptimal, x: make([]float64, m.NumVariables())}, nil
	}
	//
	log.Debugf("solving LP with %d variables and %d rows", len(sf.c), len(sf.b))
	//
	objective, y, err := lp.Simplex(sf.c, sf.a, sf.b, 0, nil)
	//
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return &Solution{Status: StatusWarning, Condition: ConditionInfeasible}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return &Solution{Status: StatusWarning, Condition: ConditionUnbounded}, nil
	case err != nil:
		return &Solution{Status: StatusWarning, Condition: ConditionError}, err
	}
	//
	return &Solution{
		Status:    StatusOk,
		Condition: ConditionOptimal,
		Objective: objective + sf.objShift,
		x:         recoverPrimal(sf, y, m.NumVariables()),
	}, nil
}

// Infeasibility names one constraint row which cannot be satisfied, along
// with the amount by which it is violated in the least-infeasible relaxation.
type Infeasibility struct {
	Name      string
	Label     string
	Violation float64
}

// String renders an infeasibility in the form used by diagnosis logs.
func (i Infeasibility) String() string {
	return fmt.Sprintf("%s[%s]: violated by %.6g", i.Name, i.Label, i.Violation)
}

// ComputeInfeasibilities diagnoses an infeasible model by solving its elastic
// relaxation: every constraint row gains a pair of violation variables which
// are minimised.  Rows carrying a nonzero violation at the optimum form a
// (not necessarily minimal) infeasible subsystem.
func ComputeInfeasibilities(m *Model) []Infeasibility {
	sf := toStandardForm(m, true)
	//
	_, y, err := lp.Simplex(sf.c, sf.a, sf.b, 0, nil)
	if err != nil {
		log.Warnf("elastic relaxation failed (%v); cannot isolate infeasible rows", err)
		return nil
	}
	//
	_, ncols := sf.a.Dims()
	nelastic := 2 * len(m.constraints)
	base := ncols - nelastic
	//
	var out []Infeasibility

	for i, c := range m.constraints {
		violation := y[base+2*i] + y[base+2*i+1]
		if violation > 1e-6 {
			out = append(out, Infeasibility{Name: c.Name, Label: c.Label, Violation: violation})
		}
	}
	//
	return out
}

// LogInfeasibilities renders an infeasibility report onto the log.
func LogInfeasibilities(m *Model) {
	labels := ComputeInfeasibilities(m)
	//
	if labels == nil {
		log.Info("no infeasible rows isolated (bound inconsistency or numerical issue)")
		return
	}
	//
	log.Infof("isolated %d infeasible constraint rows:", len(labels))

	for _, l := range labels {
		log.Infof("  %s", l)
	}
}

// toStandardForm rewrites the model into simplex standard form.  When elastic
// is set, every constraint row additionally gains a +/- violation pair and
// the objective becomes the total violation.
func toStandardForm(m *Model, elastic bool) *standardForm {
	type boundRow struct {
		col   int
		width float64
	}
	//
	var (
		sf    standardForm
		ncols int
		// rows for finite upper bounds of shifted variables
		boundRows []boundRow
	)
	//
	sf.mappings = make([]varMapping, m.NumVariables())
	// Allocate columns for model variables
	for i := 0; i < m.NumVariables(); i++ {
		lb, ub := m.lower[i], m.upper[i]
		//
		switch {
		case !math.IsInf(lb, -1):
			sf.mappings[i] = varMapping{kind: varShifted, col: ncols, shift: lb}
			if !math.IsInf(ub, 1) && ub > lb {
				boundRows = append(boundRows, boundRow{ncols, ub - lb})
			} else if ub == lb {
				// Fixed variable: pin its column via an equality row.
				boundRows = append(boundRows, boundRow{ncols, 0})
			}
			//
			ncols++
		case !math.IsInf(ub, 1):
			sf.mappings[i] = varMapping{kind: varNegated, col: ncols, shift: ub}
			ncols++
		default:
			sf.mappings[i] = varMapping{kind: varSplit, col: ncols, col2: ncols + 1}
			ncols += 2
		}
	}
	//
	nrows := len(boundRows) + len(m.constraints)
	// Slack columns: one per bound row with positive width, one per
	// inequality row.
	slackCols := 0

	for _, br := range boundRows {
		if br.width > 0 {
			slackCols++
		}
	}

	for _, c := range m.constraints {
		if c.Sense != Equal {
			slackCols++
		}
	}
	//
	elasticCols := 0
	if elastic {
		elasticCols = 2 * len(m.constraints)
	}
	//
	total := ncols + slackCols + elasticCols
	if total == 0 || nrows == 0 {
		// Degenerate: no rows at all; synthesise a trivial system.
		sf.c = make([]float64, total)
		sf.a = mat.NewDense(1, max(1, total), nil)
		sf.b = []float64{0}
		//
		fillObjective(&sf, m, ncols, elastic, elasticCols)
		//
		return &sf
	}
	//
	sf.a = mat.NewDense(nrows, total, nil)
	sf.b = make([]float64, nrows)
	sf.c = make([]float64, total)
	sf.conRows = make([]int, len(m.constraints))
	//
	row := 0
	slack := ncols
	// Upper-bound rows: y + s = width (or y = 0 for fixed variables)
	for _, br := range boundRows {
		sf.a.Set(row, br.col, 1)
		sf.b[row] = br.width
		//
		if br.width > 0 {
			sf.a.Set(row, slack, 1)
			slack++
		}
		//
		row++
	}
	// Constraint rows
	elasticCol := ncols + slackCols

	for i, c := range m.constraints {
		rhs := c.RHS
		//
		c.Expr.Terms(func(index int, coeff float64) {
			if coeff == 0 {
				return
			}
			//
			mp := sf.mappings[index]
			//
			switch mp.kind {
			case varShifted:
				sf.a.Set(row, mp.col, sf.a.At(row, mp.col)+coeff)
				rhs -= coeff * mp.shift
			case varNegated:
				sf.a.Set(row, mp.col, sf.a.At(row, mp.col)-coeff)
				rhs -= coeff * mp.shift
			default:
				sf.a.Set(row, mp.col, sf.a.At(row, mp.col)+coeff)
				sf.a.Set(row, mp.col2, sf.a.At(row, mp.col2)-coeff)
			}
		})
		//
		switch c.Sense {
		case LessEqual:
			sf.a.Set(row, slack, 1)
			slack++
		case GreaterEqual:
			sf.a.Set(row, slack, -1)
			slack++
		}
		//
		if elastic {
			sf.a.Set(row, elasticCol, 1)
			sf.a.Set(row, elasticCol+1, -1)
			elasticCol += 2
		}
		//
		sf.b[row] = rhs
		sf.conRows[i] = row
		row++
	}
	//
	fillObjective(&sf, m, ncols, elastic, elasticCols)
	//
	return &sf
}

// fillObjective populates the standard-form objective: either the translated
// model objective, or (for the elastic relaxation) the total violation.
func fillObjective(sf *standardForm, m *Model, ncols int, elastic bool, elasticCols int) {
	if elastic {
		for k := 0; k < elasticCols; k++ {
			sf.c[len(sf.c)-1-k] = 1
		}
		//
		return
	}
	//
	for i := 0; i < m.NumVariables(); i++ {
		coeff := m.obj[i]
		if coeff == 0 {
			continue
		}
		//
		mp := sf.mappings[i]
		//
		switch mp.kind {
		case varShifted:
			sf.c[mp.col] += coeff
			sf.objShift += coeff * mp.shift
		case varNegated:
			sf.c[mp.col] -= coeff
			sf.objShift += coeff * mp.shift
		default:
			sf.c[mp.col] += coeff
			sf.c[mp.col2] -= coeff
		}
	}
}

// recoverPrimal translates a standard-form solution vector back onto the
// model's variables.
func recoverPrimal(sf *standardForm, y []float64, nvars int) []float64 {
	x := make([]float64, nvars)
	//
	for i, mp := range sf.mappings {
		switch mp.kind {
		case varShifted:
			x[i] = mp.shift + y[mp.col]
		case varNegated:
			x[i] = mp.shift - y[mp.col]
		default:
			x[i] = y[mp.col] - y[mp.col2]
		}
	}
	//
	return x
}
