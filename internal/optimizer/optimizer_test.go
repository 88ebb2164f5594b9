package optimizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/fpl-squad/internal/catalog"
	"github.com/stitts-dev/fpl-squad/internal/solver"
	"github.com/stitts-dev/fpl-squad/internal/solver/lpfile"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func newTestOptimizer(opts ...Option) *Optimizer {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(solver.NewBranchAndBound(solver.Options{}), opts...)
}

func gw(v float64) map[string]float64 {
	return map[string]float64{"gw1": v}
}

// fourPlayerCatalog is one player per position, each from a different team
func fourPlayerCatalog(t *testing.T, extra ...catalog.PlayerRecord) *catalog.Catalog {
	records := []catalog.PlayerRecord{
		{ID: 0, Name: "Keeper", Team: "ARS", Position: catalog.Goalkeeper, Price: 5.0, Scores: gw(4.0)},
		{ID: 1, Name: "Back", Team: "LIV", Position: catalog.Defender, Price: 6.0, Scores: gw(5.0)},
		{ID: 2, Name: "Mid", Team: "MCI", Position: catalog.Midfielder, Price: 7.0, Scores: gw(6.0)},
		{ID: 3, Name: "Striker", Team: "CHE", Position: catalog.Forward, Price: 8.0, Scores: gw(7.0)},
	}
	c, err := catalog.New(append(records, extra...))
	require.NoError(t, err)
	return c
}

var oneEach = Roster{Goalkeepers: 1, Defenders: 1, Midfielders: 1, Forwards: 1}

func TestOptimize_SelectsWholeAffordablePool(t *testing.T) {
	cat := fourPlayerCatalog(t)

	sel, err := newTestOptimizer().Optimize(context.Background(), cat, Request{
		Period: catalog.Period("gw1"),
		Budget: 30.0,
		Roster: oneEach,
	})
	require.NoError(t, err)

	assert.Equal(t, solver.Optimal, sel.Status)
	assert.Len(t, sel.Players, 4)
	assert.InDelta(t, 26.0, sel.TotalPrice, 1e-9)
	assert.InDelta(t, 22.0, sel.Objective, 1e-9)
	assert.Equal(t, "gw1", sel.Period)
	assert.NotEmpty(t, sel.ID)
}

func TestOptimize_BudgetTooSmallIsInfeasible(t *testing.T) {
	sel, err := newTestOptimizer().Optimize(context.Background(), fourPlayerCatalog(t), Request{
		Period: catalog.Period("gw1"),
		Budget: 10.0,
		Roster: oneEach,
	})
	require.NoError(t, err)

	assert.Equal(t, solver.Infeasible, sel.Status)
	assert.Empty(t, sel.Players)
	assert.Zero(t, sel.Objective)
}

func TestOptimize_BanningOnlyAffordableKeeperIsInfeasible(t *testing.T) {
	cat := fourPlayerCatalog(t, catalog.PlayerRecord{
		ID: 4, Name: "Expensive", Team: "TOT", Position: catalog.Goalkeeper, Price: 20.0, Scores: gw(3.0),
	})

	sel, err := newTestOptimizer().Optimize(context.Background(), cat, Request{
		Period:       catalog.Period("gw1"),
		Budget:       30.0,
		Roster:       oneEach,
		Restrictions: Restrictions{Banned: []PlayerKey{{Team: "ARS", Name: "Keeper"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, solver.Infeasible, sel.Status)
	assert.Empty(t, sel.Players)
}

func TestOptimize_ForcedPlayers(t *testing.T) {
	cat := fourPlayerCatalog(t,
		catalog.PlayerRecord{ID: 4, Name: "Backup", Team: "TOT", Position: catalog.Goalkeeper, Price: 4.0, Scores: gw(1.0)},
	)
	req := Request{
		Period:       catalog.Period("gw1"),
		Budget:       30.0,
		Roster:       oneEach,
		Restrictions: Restrictions{Forced: []PlayerKey{{Team: " TOT ", Name: "Backup"}}},
	}

	sel, err := newTestOptimizer().Optimize(context.Background(), cat, req)
	require.NoError(t, err)
	require.Equal(t, solver.Optimal, sel.Status)
	assert.True(t, sel.Contains(PlayerKey{Team: "TOT", Name: "Backup"}))
	assert.False(t, sel.Contains(PlayerKey{Team: "ARS", Name: "Keeper"}))
	assert.InDelta(t, 19.0, sel.Objective, 1e-9)
	assert.NoError(t, Verify(cat, req, sel))
}

func TestOptimize_ForcedPlayersBreakingRulesAreInfeasible(t *testing.T) {
	cat := fourPlayerCatalog(t,
		catalog.PlayerRecord{ID: 4, Name: "Second", Team: "LIV", Position: catalog.Defender, Price: 4.0, Scores: gw(2.0)},
		catalog.PlayerRecord{ID: 5, Name: "Pricey", Team: "NEW", Position: catalog.Forward, Price: 25.0, Scores: gw(9.0)},
		catalog.PlayerRecord{ID: 6, Name: "Third", Team: "TOT", Position: catalog.Defender, Price: 4.0, Scores: gw(2.0)},
	)
	roster := Roster{Goalkeepers: 1, Defenders: 2, Midfielders: 1, Forwards: 1}

	sel, err := newTestOptimizer().Optimize(context.Background(), cat, Request{Period: catalog.Period("gw1"), Budget: 30, Roster: roster})
	require.NoError(t, err)
	require.Equal(t, solver.Optimal, sel.Status, "squad is feasible without forced players")

	tests := []struct {
		name   string
		forced []PlayerKey
		budget float64
	}{
		{"two defenders from one team", []PlayerKey{{"LIV", "Back"}, {"LIV", "Second"}}, 100},
		{"forced players exceed budget", []PlayerKey{{"NEW", "Pricey"}}, 30},
		{"more forced forwards than slots", []PlayerKey{{"NEW", "Pricey"}, {"CHE", "Striker"}}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := newTestOptimizer().Optimize(context.Background(), cat, Request{
				Period:       catalog.Period("gw1"),
				Budget:       tt.budget,
				Roster:       roster,
				Restrictions: Restrictions{Forced: tt.forced},
			})
			require.NoError(t, err)
			assert.Equal(t, solver.Infeasible, sel.Status)
			assert.Empty(t, sel.Players)
		})
	}
}

func TestOptimize_CapOverrides(t *testing.T) {
	cat := fourPlayerCatalog(t,
		catalog.PlayerRecord{ID: 4, Name: "Second", Team: "LIV", Position: catalog.Defender, Price: 4.0, Scores: gw(4.5)},
		catalog.PlayerRecord{ID: 5, Name: "Third", Team: "LIV", Position: catalog.Defender, Price: 4.0, Scores: gw(4.4)},
		catalog.PlayerRecord{ID: 6, Name: "Filler", Team: "TOT", Position: catalog.Defender, Price: 4.0, Scores: gw(0.5)},
	)
	roster := Roster{Goalkeepers: 1, Defenders: 3, Midfielders: 1, Forwards: 1}
	opt := newTestOptimizer()

	// Defaults: one defender per team, so Filler must play
	sel, err := opt.Optimize(context.Background(), cat, Request{Period: catalog.Period("gw1"), Budget: 100, Roster: roster})
	require.NoError(t, err)
	assert.Equal(t, solver.Infeasible, sel.Status, "only two teams have defenders")

	// Lift LIV's defender cap but keep the team cap at 2
	req := Request{
		Period: catalog.Period("gw1"),
		Budget: 100,
		Roster: roster,
		Restrictions: Restrictions{
			PositionCaps: map[string]PositionCaps{"LIV": {Goalkeepers: 1, Defenders: 3, Midfielders: 1, Forwards: 1}},
		},
	}
	sel, err = opt.Optimize(context.Background(), cat, req)
	require.NoError(t, err)
	require.Equal(t, solver.Optimal, sel.Status)
	assert.Equal(t, 2, sel.TeamCounts()["LIV"])
	assert.True(t, sel.Contains(PlayerKey{"TOT", "Filler"}))
	assert.True(t, sel.Contains(PlayerKey{"LIV", "Back"}))
	assert.True(t, sel.Contains(PlayerKey{"LIV", "Second"}))
	assert.NoError(t, Verify(cat, req, sel))

	// Raising the team cap lets all three LIV defenders in
	req.Restrictions.TeamCaps = map[string]int{"LIV": 3}
	sel, err = opt.Optimize(context.Background(), cat, req)
	require.NoError(t, err)
	require.Equal(t, solver.Optimal, sel.Status)
	assert.Equal(t, 3, sel.TeamCounts()["LIV"])
	assert.False(t, sel.Contains(PlayerKey{"TOT", "Filler"}))
	assert.InDelta(t, 4+5+4.5+4.4+6+7, sel.Objective, 1e-9)
}

func TestOptimize_InvalidRequests(t *testing.T) {
	cat := fourPlayerCatalog(t)
	valid := Request{Period: catalog.Period("gw1"), Budget: 30, Roster: oneEach}

	tests := []struct {
		name   string
		cat    *catalog.Catalog
		mutate func(r *Request)
	}{
		{"negative budget", cat, func(r *Request) { r.Budget = -1 }},
		{"negative roster count", cat, func(r *Request) { r.Roster.Forwards = -1 }},
		{"negative team cap", cat, func(r *Request) { r.Restrictions.TeamCaps = map[string]int{"ARS": -1} }},
		{"negative position cap", cat, func(r *Request) {
			r.Restrictions.PositionCaps = map[string]PositionCaps{"ARS": {Goalkeepers: -2}}
		}},
		{"forced and banned", cat, func(r *Request) {
			r.Restrictions.Forced = []PlayerKey{{"ARS", "Keeper"}}
			r.Restrictions.Banned = []PlayerKey{{"ARS", "Keeper "}}
		}},
		{"padded negative team cap", cat, func(r *Request) { r.Restrictions.TeamCaps = map[string]int{" ARS ": -1} }},
		{"team cap listed twice", cat, func(r *Request) { r.Restrictions.TeamCaps = map[string]int{"ARS": 1, "ARS ": 2} }},
		{"position caps listed twice", cat, func(r *Request) {
			r.Restrictions.PositionCaps = map[string]PositionCaps{" LIV": {Defenders: 2}, "LIV": {Defenders: 3}}
		}},
		{"unknown period", cat, func(r *Request) { r.Period = catalog.Period("gw9") }},
		{"nil catalog", nil, func(r *Request) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			opt := New(solverFunc(func(context.Context, *solver.Model) (*solver.Result, error) {
				calls++
				return &solver.Result{Status: solver.Optimal}, nil
			}), WithLogger(quietLogger()))

			req := valid
			tt.mutate(&req)
			sel, err := opt.Optimize(context.Background(), tt.cat, req)
			assert.Nil(t, sel)
			assert.True(t, errors.Is(err, ErrInvalidRequest), "got %v", err)
			var reqErr *RequestError
			assert.True(t, errors.As(err, &reqErr))
			assert.Zero(t, calls, "solver must not run for invalid requests")
		})
	}
}

func TestOptimize_MissingPeriodKeepsCause(t *testing.T) {
	_, err := newTestOptimizer().Optimize(context.Background(), fourPlayerCatalog(t), Request{
		Period: catalog.Sum("gw1-2", "gw1", "gw2"),
		Budget: 30,
		Roster: oneEach,
	})
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.True(t, errors.Is(err, catalog.ErrMissingPeriod))
}

func TestOptimize_UnmatchedRestrictionsAreIgnored(t *testing.T) {
	cat := fourPlayerCatalog(t)
	req := Request{
		Period: catalog.Period("gw1"),
		Budget: 30,
		Roster: oneEach,
		Restrictions: Restrictions{
			Forced: []PlayerKey{{"ARS", "Nobody"}},
			Banned: []PlayerKey{{"XXX", "Ghost"}},
		},
	}

	sm, err := BuildModel(cat, req)
	require.NoError(t, err)
	assert.ElementsMatch(t, []PlayerKey{{"ARS", "Nobody"}, {"XXX", "Ghost"}}, sm.Unmatched())

	sel, err := newTestOptimizer().Optimize(context.Background(), cat, req)
	require.NoError(t, err)
	assert.Equal(t, solver.Optimal, sel.Status)
	assert.Len(t, sel.Players, 4)
}

func TestOptimize_SolverErrorsPassThrough(t *testing.T) {
	engineErr := fmt.Errorf("%w: engine crashed", solver.ErrSolver)
	opt := New(solverFunc(func(context.Context, *solver.Model) (*solver.Result, error) {
		return nil, engineErr
	}), WithLogger(quietLogger()))

	_, err := opt.Optimize(context.Background(), fourPlayerCatalog(t), Request{Period: catalog.Period("gw1"), Budget: 30, Roster: oneEach})
	assert.Equal(t, engineErr, err)
	assert.False(t, errors.Is(err, ErrInvalidRequest))

	_, err = New(nil, WithLogger(quietLogger())).Optimize(context.Background(), fourPlayerCatalog(t), Request{Period: catalog.Period("gw1"), Budget: 30, Roster: oneEach})
	assert.True(t, errors.Is(err, solver.ErrSolverUnavailable))

	var missing *solver.BranchAndBound
	_, err = New(missing, WithLogger(quietLogger())).Optimize(context.Background(), fourPlayerCatalog(t), Request{Period: catalog.Period("gw1"), Budget: 30, Roster: oneEach})
	assert.True(t, errors.Is(err, solver.ErrSolverUnavailable))
}

func TestOptimize_NonOptimalStatusReturnsNoPlayers(t *testing.T) {
	opt := New(solverFunc(func(_ context.Context, m *solver.Model) (*solver.Result, error) {
		values := make([]int, m.NumVariables())
		values[0] = 1
		return &solver.Result{Status: solver.Undefined, Values: values, Nodes: 3}, nil
	}), WithLogger(quietLogger()))

	sel, err := opt.Optimize(context.Background(), fourPlayerCatalog(t), Request{Period: catalog.Period("gw1"), Budget: 30, Roster: oneEach})
	require.NoError(t, err)
	assert.Equal(t, solver.Undefined, sel.Status)
	assert.Empty(t, sel.Players)
	assert.Equal(t, 3, sel.Nodes)
}

func TestOptimize_RejectsShortAssignment(t *testing.T) {
	opt := New(solverFunc(func(context.Context, *solver.Model) (*solver.Result, error) {
		return &solver.Result{Status: solver.Optimal, Values: []int{1}}, nil
	}), WithLogger(quietLogger()))

	_, err := opt.Optimize(context.Background(), fourPlayerCatalog(t), Request{Period: catalog.Period("gw1"), Budget: 30, Roster: oneEach})
	assert.True(t, errors.Is(err, solver.ErrSolver))
}

func TestOptimize_ExportsModel(t *testing.T) {
	var buf bytes.Buffer
	rec := &recordingRecorder{}
	opt := newTestOptimizer(WithExporter(lpfile.WriterExporter{W: &buf}), WithRecorder(rec))

	_, err := opt.Optimize(context.Background(), fourPlayerCatalog(t), Request{Period: catalog.Period("gw1"), Budget: 30, Roster: oneEach})
	require.NoError(t, err)

	lp := buf.String()
	assert.Contains(t, lp, "Maximize")
	assert.Contains(t, lp, "budget: 5 player_0 + 6 player_1 + 7 player_2 + 8 player_3 <= 30")
	assert.Contains(t, lp, "squad_size: 1 player_0 + 1 player_1 + 1 player_2 + 1 player_3 = 4")
	assert.Equal(t, []string{"Optimal"}, rec.statuses)
}

func TestOptimize_ExportFailureDoesNotStopSolve(t *testing.T) {
	opt := newTestOptimizer(WithExporter(exporterFunc(func(context.Context, *solver.Model) error {
		return errors.New("disk full")
	})))

	sel, err := opt.Optimize(context.Background(), fourPlayerCatalog(t), Request{Period: catalog.Period("gw1"), Budget: 30, Roster: oneEach})
	require.NoError(t, err)
	assert.Equal(t, solver.Optimal, sel.Status)
}

func TestBuildModel_Structure(t *testing.T) {
	cat := fourPlayerCatalog(t)
	sm, err := BuildModel(cat, Request{
		Period:       catalog.Period("gw1"),
		Budget:       30,
		Roster:       oneEach,
		Restrictions: Restrictions{Forced: []PlayerKey{{"ARS", "Keeper"}}, Banned: []PlayerKey{{"CHE", "Striker"}}},
	})
	require.NoError(t, err)

	m := sm.Model
	assert.Equal(t, 4, m.NumVariables())
	assert.True(t, m.Maximize)

	names := map[string]solver.Constraint{}
	for _, c := range m.Constraints() {
		names[c.Name] = c
	}
	// budget, size, 4 position ceilings, 4 teams x (total + 1 non-empty position), forced, banned
	assert.Len(t, m.Constraints(), 2+4+4*2+2)
	assert.Equal(t, float64(DefaultTeamCap), names["team_ARS"].RHS)
	assert.Equal(t, float64(DefaultPositionCap), names["team_ARS_GK"].RHS)
	assert.Equal(t, solver.Equal, names["forced_0"].Sense)
	assert.Equal(t, 1.0, names["forced_0"].RHS)
	assert.Equal(t, 0.0, names["banned_3"].RHS)
	_, hasEmpty := names["team_ARS_DEF"]
	assert.False(t, hasEmpty)
}

func TestOptimize_DoesNotMutateCatalog(t *testing.T) {
	cat := fourPlayerCatalog(t)
	before := cat.Players()
	opt := newTestOptimizer()
	req := Request{Period: catalog.Period("gw1"), Budget: 30, Roster: oneEach}

	first, err := opt.Optimize(context.Background(), cat, req)
	require.NoError(t, err)
	first.Players[0].Scores["gw1"] = 99
	first.Players[0].Name = "Mutated"

	second, err := opt.Optimize(context.Background(), cat, req)
	require.NoError(t, err)

	assert.Equal(t, before, cat.Players())
	assert.Equal(t, first.Objective, second.Objective)
}

func TestOptimizeBatch(t *testing.T) {
	cat := fourPlayerCatalog(t)
	reqs := []Request{
		{Period: catalog.Period("gw1"), Budget: 30, Roster: oneEach},
		{Period: catalog.Period("gw1"), Budget: 10, Roster: oneEach},
		{Period: catalog.Period("gw1"), Budget: 30, Roster: Roster{Midfielders: 1, Forwards: 1}},
	}

	results, err := newTestOptimizer(WithParallelism(2)).OptimizeBatch(context.Background(), cat, reqs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, solver.Optimal, results[0].Status)
	assert.Equal(t, solver.Infeasible, results[1].Status)
	assert.Equal(t, solver.Optimal, results[2].Status)
	assert.InDelta(t, 13.0, results[2].Objective, 1e-9)

	reqs[1].Budget = -5
	_, err = newTestOptimizer().OptimizeBatch(context.Background(), cat, reqs)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

type solverFunc func(ctx context.Context, m *solver.Model) (*solver.Result, error)

func (f solverFunc) Solve(ctx context.Context, m *solver.Model) (*solver.Result, error) {
	return f(ctx, m)
}

type exporterFunc func(ctx context.Context, m *solver.Model) error

func (f exporterFunc) Export(ctx context.Context, m *solver.Model) error {
	return f(ctx, m)
}

type recordingRecorder struct {
	statuses []string
}

func (r *recordingRecorder) ObserveOptimization(status string, _ time.Duration, _ int) {
	r.statuses = append(r.statuses, status)
}
