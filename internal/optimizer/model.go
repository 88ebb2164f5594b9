package optimizer

import (
	"fmt"

	"github.com/stitts-dev/fpl-squad/internal/catalog"
	"github.com/stitts-dev/fpl-squad/internal/solver"
)

const modelName = "FPL_team_optimization"

// SquadModel is the integer program for one request. Variable i decides
// whether catalog player i is selected.
type SquadModel struct {
	Model *solver.Model

	players   []catalog.PlayerRecord
	scores    []float64
	period    catalog.ScoringPeriod
	unmatched []PlayerKey
	dominated int
}

// Unmatched lists forced or banned keys that matched no catalog player
func (sm *SquadModel) Unmatched() []PlayerKey {
	return append([]PlayerKey(nil), sm.unmatched...)
}

// Dominated counts the players pinned to zero because a teammate at the same
// position is at least as cheap and scores at least as well
func (sm *SquadModel) Dominated() int {
	return sm.dominated
}

// BuildModel validates req and encodes it against the catalog
func BuildModel(cat *catalog.Catalog, req Request) (*SquadModel, error) {
	if cat == nil {
		return nil, invalid("catalog", "no player catalog supplied")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	scores, err := cat.ResolveScores(req.Period)
	if err != nil {
		return nil, &RequestError{Field: "period", Reason: fmt.Sprintf("cannot resolve %s", req.Period), Err: err}
	}

	players := cat.Players()
	m := solver.NewModel(modelName, true)
	for _, p := range players {
		m.AddVariable(fmt.Sprintf("player_%d", p.ID))
	}

	// Objective, maximize expected points
	objective := make([]solver.Term, len(players))
	for i := range players {
		objective[i] = solver.Term{Var: i, Coef: scores[i]}
	}
	m.SetObjective(objective)

	// Budget and squad size
	price := make([]solver.Term, len(players))
	all := make([]solver.Term, len(players))
	for i, p := range players {
		price[i] = solver.Term{Var: i, Coef: p.Price}
		all[i] = solver.Term{Var: i, Coef: 1}
	}
	m.AddConstraint(solver.Constraint{Name: "budget", Terms: price, Sense: solver.LessOrEqual, RHS: req.Budget})
	m.AddConstraint(solver.Constraint{Name: "squad_size", Terms: all, Sense: solver.Equal, RHS: float64(req.Roster.Size())})

	// Global position ceilings
	for _, pos := range catalog.Positions {
		terms := selectTerms(players, func(p catalog.PlayerRecord) bool { return p.Position == pos })
		addCeiling(m, fmt.Sprintf("max_%s", pos), terms, req.Roster.Target(pos))
	}

	// Per-team ceilings, caps resolved per team with defaults
	for _, team := range cat.Teams() {
		inTeam := func(p catalog.PlayerRecord) bool { return p.Team == team }
		addCeiling(m, fmt.Sprintf("team_%s", team), selectTerms(players, inTeam), req.Restrictions.TeamCap(team))

		for _, pos := range catalog.Positions {
			terms := selectTerms(players, func(p catalog.PlayerRecord) bool { return inTeam(p) && p.Position == pos })
			addCeiling(m, fmt.Sprintf("team_%s_%s", team, pos), terms, req.Restrictions.PositionCap(team, pos))
		}
	}

	// Forced and banned players
	forced := req.Restrictions.forcedSet()
	banned := req.Restrictions.bannedSet()
	matched := make(map[PlayerKey]bool)
	for i, p := range players {
		key := keyOf(p)
		switch {
		case forced[key]:
			m.AddConstraint(solver.Constraint{Name: fmt.Sprintf("forced_%d", p.ID), Terms: []solver.Term{{Var: i, Coef: 1}}, Sense: solver.Equal, RHS: 1})
			matched[key] = true
		case banned[key]:
			m.AddConstraint(solver.Constraint{Name: fmt.Sprintf("banned_%d", p.ID), Terms: []solver.Term{{Var: i, Coef: 1}}, Sense: solver.Equal, RHS: 0})
			matched[key] = true
		}
	}

	sm := &SquadModel{Model: m, players: players, scores: scores, period: req.Period}

	// Players some cheaper, better teammate always replaces
	for _, i := range dominatedPlayers(players, scores, req.Restrictions, forced, banned) {
		if banned[keyOf(players[i])] {
			continue
		}
		m.AddConstraint(solver.Constraint{Name: fmt.Sprintf("dominated_%d", players[i].ID), Terms: []solver.Term{{Var: i, Coef: 1}}, Sense: solver.Equal, RHS: 0})
		sm.dominated++
	}

	for _, keys := range [][]PlayerKey{req.Restrictions.Forced, req.Restrictions.Banned} {
		for _, k := range keys {
			k = k.normalized()
			if !matched[k] {
				sm.unmatched = append(sm.unmatched, k)
				matched[k] = true
			}
		}
	}
	return sm, nil
}

// addCeiling skips empty sums: with non-negative caps they always hold
func addCeiling(m *solver.Model, name string, terms []solver.Term, limit int) {
	if len(terms) == 0 {
		return
	}
	m.AddConstraint(solver.Constraint{Name: name, Terms: terms, Sense: solver.LessOrEqual, RHS: float64(limit)})
}

func selectTerms(players []catalog.PlayerRecord, keep func(catalog.PlayerRecord) bool) []solver.Term {
	var terms []solver.Term
	for i, p := range players {
		if keep(p) {
			terms = append(terms, solver.Term{Var: i, Coef: 1})
		}
	}
	return terms
}

// selection maps the engine's 0/1 assignment back onto players
func (sm *SquadModel) selection(res *solver.Result) (*SquadSelection, error) {
	sel := &SquadSelection{
		Status:  res.Status,
		Period:  sm.period.String(),
		Players: []catalog.PlayerRecord{},
		Scores:  []float64{},
		Nodes:   res.Nodes,
	}
	if res.Status != solver.Optimal {
		return sel, nil
	}
	if len(res.Values) != len(sm.players) {
		return nil, fmt.Errorf("%w: assignment has %d values for %d players", solver.ErrSolver, len(res.Values), len(sm.players))
	}
	for i, v := range res.Values {
		if v != 1 {
			continue
		}
		sel.Players = append(sel.Players, sm.players[i])
		sel.Scores = append(sel.Scores, sm.scores[i])
		sel.TotalPrice += sm.players[i].Price
		sel.Objective += sm.scores[i]
	}
	return sel, nil
}
