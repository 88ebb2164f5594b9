package solver

import (
	"context"
	"fmt"
)

// Status is the outcome reported by an engine. Names follow PuLP's LpStatus.
type Status int

const (
	NotSolved Status = iota
	Optimal
	Infeasible
	Unbounded
	// Undefined means the search stopped on a node or time limit before
	// optimality was proven
	Undefined
)

var statusNames = map[Status]string{
	NotSolved:  "Not Solved",
	Optimal:    "Optimal",
	Infeasible: "Infeasible",
	Unbounded:  "Unbounded",
	Undefined:  "Undefined",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown solver status %q", text)
}

// Result is the engine's answer for one model. Values holds one 0/1 entry per
// variable when Status is Optimal; for Undefined it may hold the best
// assignment found before the limit was hit.
type Result struct {
	Status    Status
	Values    []int
	Objective float64
	Nodes     int
}

// Solver is the integer-programming capability the optimizer depends on
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Result, error)
}
