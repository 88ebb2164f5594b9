package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	defaultTolerance = 1e-6
	simplexTolerance = 1e-10
)

const (
	free   int8 = -1
	fixed0 int8 = 0
	fixed1 int8 = 1
)

// Options configures the branch-and-bound engine. Zero limits mean no limit.
type Options struct {
	MaxNodes  int
	TimeLimit time.Duration
	// Tolerance is used for integrality and feasibility checks
	Tolerance float64
	Logger    *logrus.Entry
}

// BranchAndBound solves binary programs by LP-based branch and bound. The LP
// relaxations are solved with gonum's simplex implementation.
type BranchAndBound struct {
	opts Options
}

// NewBranchAndBound creates an engine with the given limits
func NewBranchAndBound(opts Options) *BranchAndBound {
	if opts.Tolerance <= 0 {
		opts.Tolerance = defaultTolerance
	}
	if opts.Logger == nil {
		log := logrus.New()
		log.SetLevel(logrus.WarnLevel)
		opts.Logger = logrus.NewEntry(log)
	}
	return &BranchAndBound{opts: opts}
}

// row is sum(terms) <= rhs
type row struct {
	terms []Term
	rhs   float64
}

type problem struct {
	model  *Model
	n      int
	weight []float64 // objective to maximize
	rows   []row
	tol    float64
}

type node struct {
	fix   []int8
	bound float64
}

type relaxation struct {
	bound  float64
	values []float64 // one entry per variable, fixed ones included
}

// Solve runs the search until optimality is proven, the model is shown
// infeasible, or a limit is reached
func (b *BranchAndBound) Solve(ctx context.Context, m *Model) (*Result, error) {
	if b == nil {
		return nil, ErrSolverUnavailable
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	searchCtx := ctx
	if b.opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, b.opts.TimeLimit)
		defer cancel()
	}

	p := newProblem(m, b.opts.Tolerance)
	result, err := b.safeSearch(ctx, searchCtx, p)
	if err != nil {
		return nil, err
	}

	if result.Status == Optimal || result.Status == Undefined {
		if result.Values != nil {
			result.Objective = m.Evaluate(result.Values)
		}
	}

	b.opts.Logger.WithFields(logrus.Fields{
		"model":       m.Name,
		"variables":   m.NumVariables(),
		"constraints": m.NumConstraints(),
		"status":      result.Status.String(),
		"nodes":       result.Nodes,
		"objective":   result.Objective,
		"duration":    time.Since(start),
	}).Debug("Branch and bound finished")

	return result, nil
}

// safeSearch converts panics raised by the linear algebra code into ErrSolver
func (b *BranchAndBound) safeSearch(ctx, searchCtx context.Context, p *problem) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %v", ErrSolver, r)
		}
	}()
	return b.search(ctx, searchCtx, p)
}

func (b *BranchAndBound) search(ctx, searchCtx context.Context, p *problem) (*Result, error) {
	result := &Result{Status: NotSolved}

	root := make([]int8, p.n)
	for i := range root {
		root[i] = free
	}
	if !p.propagate(root) {
		result.Status = Infeasible
		return result, nil
	}

	var incumbent []int
	best := math.Inf(-1)
	stack := []node{{fix: root, bound: math.Inf(1)}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if searchCtx.Err() != nil || (b.opts.MaxNodes > 0 && result.Nodes >= b.opts.MaxNodes) {
			result.Status = Undefined
			result.Values = incumbent
			return result, nil
		}

		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if incumbent != nil && cur.bound <= best+p.tol {
			continue
		}
		result.Nodes++

		relax, err := p.relax(cur.fix)
		if errors.Is(err, lp.ErrInfeasible) {
			continue
		}
		if errors.Is(err, lp.ErrUnbounded) {
			if result.Nodes == 1 {
				result.Status = Unbounded
				return result, nil
			}
			continue
		}
		if err != nil {
			// The relaxation could not be solved (for example a Bland pivot
			// failure); keep the parent bound and split on a free variable.
			b.opts.Logger.WithError(err).Debug("LP relaxation failed, branching without bound")
			if v := firstFree(cur.fix); v >= 0 {
				stack = p.branch(stack, cur.fix, v, cur.bound)
			}
			continue
		}
		if incumbent != nil && relax.bound <= best+p.tol {
			continue
		}

		branchVar, rounded := p.branchVariable(relax.values)
		if branchVar < 0 {
			if p.model.Satisfies(rounded, p.tol) {
				value := p.objective(rounded)
				if incumbent == nil || value > best+p.tol {
					incumbent = rounded
					best = value
				}
				continue
			}
			// Rounding broke a constraint; branch on the first still-free variable
			branchVar = firstFree(cur.fix)
			if branchVar < 0 {
				continue
			}
		}

		stack = p.branch(stack, cur.fix, branchVar, relax.bound)
	}

	if incumbent == nil {
		result.Status = Infeasible
		return result, nil
	}
	result.Status = Optimal
	result.Values = incumbent
	return result, nil
}

func newProblem(m *Model, tol float64) *problem {
	p := &problem{
		model:  m,
		n:      m.NumVariables(),
		weight: make([]float64, m.NumVariables()),
		tol:    tol,
	}
	for _, t := range m.Objective() {
		if m.Maximize {
			p.weight[t.Var] += t.Coef
		} else {
			p.weight[t.Var] -= t.Coef
		}
	}
	for _, c := range m.Constraints() {
		terms := mergeTerms(c.Terms)
		switch c.Sense {
		case LessOrEqual:
			p.rows = append(p.rows, row{terms: terms, rhs: c.RHS})
		case GreaterOrEqual:
			p.rows = append(p.rows, row{terms: negate(terms), rhs: -c.RHS})
		case Equal:
			p.rows = append(p.rows,
				row{terms: terms, rhs: c.RHS},
				row{terms: negate(terms), rhs: -c.RHS},
			)
		}
	}
	return p
}

// propagate fixes variables implied by the rows given the current fixings.
// It returns false when some row can no longer be satisfied.
func (p *problem) propagate(fix []int8) bool {
	for changed := true; changed; {
		changed = false
		for _, r := range p.rows {
			minActivity := 0.0
			for _, t := range r.terms {
				switch fix[t.Var] {
				case fixed1:
					minActivity += t.Coef
				case free:
					if t.Coef < 0 {
						minActivity += t.Coef
					}
				}
			}
			slack := r.rhs - minActivity
			if slack < -p.tol {
				return false
			}
			for _, t := range r.terms {
				if fix[t.Var] != free {
					continue
				}
				if t.Coef > 0 && t.Coef > slack+p.tol {
					fix[t.Var] = fixed0
					changed = true
				} else if t.Coef < 0 && -t.Coef > slack+p.tol {
					fix[t.Var] = fixed1
					changed = true
				}
			}
		}
	}
	return true
}

// relax solves the LP relaxation over the free variables. Rows with a
// negative right-hand side get an artificial column so the slack and
// artificial columns form a feasible identity basis. If the penalised
// optimum still uses an artificial the relaxation is re-solved from scratch.
func (p *problem) relax(fix []int8) (*relaxation, error) {
	form := p.standardForm(fix)
	if form.k == 0 {
		return &relaxation{bound: form.base, values: form.values}, nil
	}

	_, x, err := lp.Simplex(form.c, form.A, form.b, simplexTolerance, form.basis)
	if err == nil && form.artificialUse(x) > p.tol {
		_, x, err = p.relaxExact(form)
	}
	if err != nil {
		return nil, err
	}
	return form.relaxation(p.weight, x), nil
}

// relaxExact solves the relaxation without the artificial columns and lets
// gonum find the initial basis.
func (p *problem) relaxExact(form *lpForm) (float64, []float64, error) {
	rows := len(form.rows)
	cols := form.k + rows
	A := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	for i, r := range form.rows {
		for _, t := range r.terms {
			A.Set(i, t.Var, t.Coef)
		}
		A.Set(i, form.k+i, 1)
		b[i] = r.rhs
	}
	return lp.Simplex(form.c[:cols], A, b, simplexTolerance, nil)
}

// lpForm is the standard-form relaxation of one node
type lpForm struct {
	freeVars []int
	base     float64
	values   []float64

	k     int   // free variable columns
	rows  []row // active rows plus explicit x <= 1 rows, in free-column indices
	A     *mat.Dense
	b     []float64
	c     []float64
	basis []int
	arts  []int // artificial columns
}

func (p *problem) standardForm(fix []int8) *lpForm {
	form := &lpForm{values: make([]float64, p.n)}
	column := make([]int, p.n)
	for i, f := range fix {
		column[i] = -1
		switch f {
		case free:
			column[i] = len(form.freeVars)
			form.freeVars = append(form.freeVars, i)
		case fixed1:
			form.base += p.weight[i]
			form.values[i] = 1
		}
	}
	form.k = len(form.freeVars)
	if form.k == 0 {
		return form
	}

	bounded := make([]bool, form.k)
	for _, r := range p.rows {
		rhs := r.rhs
		var terms []Term
		nonNegative := true
		for _, t := range r.terms {
			switch fix[t.Var] {
			case fixed1:
				rhs -= t.Coef
			case free:
				terms = append(terms, Term{Var: column[t.Var], Coef: t.Coef})
				if t.Coef < 0 {
					nonNegative = false
				}
			}
		}
		if len(terms) == 0 {
			continue
		}
		if nonNegative && rhs >= 0 {
			for _, t := range terms {
				if rhs <= t.Coef {
					bounded[t.Var] = true
				}
			}
		}
		form.rows = append(form.rows, row{terms: terms, rhs: rhs})
	}
	// x <= 1 is only needed where no row already implies it
	for j, ok := range bounded {
		if !ok {
			form.rows = append(form.rows, row{terms: []Term{{Var: j, Coef: 1}}, rhs: 1})
		}
	}

	rows := len(form.rows)
	for _, r := range form.rows {
		if r.rhs < 0 {
			form.arts = append(form.arts, form.k+rows+len(form.arts))
		}
	}
	cols := form.k + rows + len(form.arts)
	form.A = mat.NewDense(rows, cols, nil)
	form.b = make([]float64, rows)
	form.basis = make([]int, rows)
	art := 0
	for i, r := range form.rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for _, t := range r.terms {
			form.A.Set(i, t.Var, sign*t.Coef)
		}
		form.A.Set(i, form.k+i, sign)
		form.b[i] = sign * r.rhs
		form.basis[i] = form.k + i
		if sign < 0 {
			form.A.Set(i, form.arts[art], 1)
			form.basis[i] = form.arts[art]
			art++
		}
	}

	penalty := 1.0
	form.c = make([]float64, cols)
	for j, v := range form.freeVars {
		form.c[j] = -p.weight[v]
		penalty += math.Abs(p.weight[v])
	}
	for _, a := range form.arts {
		form.c[a] = penalty
	}
	return form
}

func (f *lpForm) artificialUse(x []float64) float64 {
	var total float64
	for _, a := range f.arts {
		total += x[a]
	}
	return total
}

func (f *lpForm) relaxation(weight []float64, x []float64) *relaxation {
	bound := f.base
	for j, v := range f.freeVars {
		f.values[v] = clamp01(x[j])
		bound += weight[v] * x[j]
	}
	return &relaxation{bound: bound, values: f.values}
}

// branch pushes the x=0 child and then the x=1 child so the latter is explored first
func (p *problem) branch(stack []node, fix []int8, v int, bound float64) []node {
	for _, value := range []int8{fixed0, fixed1} {
		child := append([]int8(nil), fix...)
		child[v] = value
		if !p.propagate(child) {
			continue
		}
		stack = append(stack, node{fix: child, bound: bound})
	}
	return stack
}

// branchVariable returns the most fractional variable, or -1 and the rounded
// assignment when every value is integral within tolerance
func (p *problem) branchVariable(values []float64) (int, []int) {
	branch := -1
	worst := p.tol
	for i, v := range values {
		frac := math.Min(v, 1-v)
		if frac > worst {
			worst = frac
			branch = i
		}
	}
	if branch >= 0 {
		return branch, nil
	}
	rounded := make([]int, len(values))
	for i, v := range values {
		if v >= 0.5 {
			rounded[i] = 1
		}
	}
	return -1, rounded
}

func (p *problem) objective(values []int) float64 {
	var total float64
	for i, v := range values {
		total += p.weight[i] * float64(v)
	}
	return total
}

func firstFree(fix []int8) int {
	for i, f := range fix {
		if f == free {
			return i
		}
	}
	return -1
}

func mergeTerms(terms []Term) []Term {
	index := make(map[int]int, len(terms))
	merged := make([]Term, 0, len(terms))
	for _, t := range terms {
		if i, ok := index[t.Var]; ok {
			merged[i].Coef += t.Coef
			continue
		}
		index[t.Var] = len(merged)
		merged = append(merged, t)
	}
	out := merged[:0]
	for _, t := range merged {
		if t.Coef != 0 {
			out = append(out, t)
		}
	}
	return out
}

func negate(terms []Term) []Term {
	out := make([]Term, len(terms))
	for i, t := range terms {
		out[i] = Term{Var: t.Var, Coef: -t.Coef}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
