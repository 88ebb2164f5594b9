package solver

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrSolverUnavailable is returned when no usable engine is configured
	ErrSolverUnavailable = errors.New("solver unavailable")
	// ErrSolver wraps failures raised inside the engine while solving
	ErrSolver = errors.New("solver error")
	// ErrInvalidModel is returned for models referencing unknown variables or non-finite values
	ErrInvalidModel = errors.New("invalid model")
)

// Sense is the comparison operator of a linear constraint
type Sense int

const (
	LessOrEqual Sense = iota
	Equal
	GreaterOrEqual
)

func (s Sense) String() string {
	switch s {
	case LessOrEqual:
		return "<="
	case Equal:
		return "="
	case GreaterOrEqual:
		return ">="
	}
	return fmt.Sprintf("Sense(%d)", int(s))
}

// Term is coef * x[Var]
type Term struct {
	Var  int
	Coef float64
}

// Constraint is sum(Terms) Sense RHS
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a linear objective and linear constraints over binary variables
type Model struct {
	Name     string
	Maximize bool

	variables   []string
	objective   []Term
	constraints []Constraint
}

// NewModel creates an empty model
func NewModel(name string, maximize bool) *Model {
	return &Model{Name: name, Maximize: maximize}
}

// AddVariable adds a binary variable and returns its index
func (m *Model) AddVariable(name string) int {
	m.variables = append(m.variables, name)
	return len(m.variables) - 1
}

func (m *Model) NumVariables() int {
	return len(m.variables)
}

func (m *Model) VariableName(i int) string {
	return m.variables[i]
}

func (m *Model) SetObjective(terms []Term) {
	m.objective = append([]Term(nil), terms...)
}

func (m *Model) Objective() []Term {
	return m.objective
}

func (m *Model) AddConstraint(c Constraint) {
	c.Terms = append([]Term(nil), c.Terms...)
	m.constraints = append(m.constraints, c)
}

func (m *Model) Constraints() []Constraint {
	return m.constraints
}

func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

// Validate checks variable references and that all numbers are finite
func (m *Model) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil model", ErrInvalidModel)
	}
	n := len(m.variables)
	for _, t := range m.objective {
		if t.Var < 0 || t.Var >= n {
			return fmt.Errorf("%w: objective references variable %d of %d", ErrInvalidModel, t.Var, n)
		}
		if !finite(t.Coef) {
			return fmt.Errorf("%w: objective coefficient for %s is %v", ErrInvalidModel, m.variables[t.Var], t.Coef)
		}
	}
	for _, c := range m.constraints {
		if c.Sense < LessOrEqual || c.Sense > GreaterOrEqual {
			return fmt.Errorf("%w: constraint %q has unknown sense %d", ErrInvalidModel, c.Name, int(c.Sense))
		}
		if !finite(c.RHS) {
			return fmt.Errorf("%w: constraint %q has right-hand side %v", ErrInvalidModel, c.Name, c.RHS)
		}
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= n {
				return fmt.Errorf("%w: constraint %q references variable %d of %d", ErrInvalidModel, c.Name, t.Var, n)
			}
			if !finite(t.Coef) {
				return fmt.Errorf("%w: constraint %q coefficient for %s is %v", ErrInvalidModel, c.Name, m.variables[t.Var], t.Coef)
			}
		}
	}
	return nil
}

// Evaluate returns the objective value of an assignment
func (m *Model) Evaluate(values []int) float64 {
	var total float64
	for _, t := range m.objective {
		total += t.Coef * float64(values[t.Var])
	}
	return total
}

// Satisfies reports whether an assignment meets every constraint within tol
func (m *Model) Satisfies(values []int, tol float64) bool {
	for _, c := range m.constraints {
		var lhs float64
		for _, t := range c.Terms {
			lhs += t.Coef * float64(values[t.Var])
		}
		switch c.Sense {
		case LessOrEqual:
			if lhs > c.RHS+tol {
				return false
			}
		case GreaterOrEqual:
			if lhs < c.RHS-tol {
				return false
			}
		case Equal:
			if math.Abs(lhs-c.RHS) > tol {
				return false
			}
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
