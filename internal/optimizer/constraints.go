package optimizer

import (
	"fmt"

	"github.com/stitts-dev/fpl-squad/internal/catalog"
)

const priceTolerance = 1e-6

// Verify checks a selection against every rule of the request it answers
func Verify(cat *catalog.Catalog, req Request, sel *SquadSelection) error {
	if err := validateBudget(req, sel); err != nil {
		return err
	}
	if err := validatePositions(req, sel); err != nil {
		return err
	}
	if err := validateTeams(req, sel); err != nil {
		return err
	}
	return validatePlayerRestrictions(cat, req, sel)
}

func validateBudget(req Request, sel *SquadSelection) error {
	var total float64
	for _, p := range sel.Players {
		total += p.Price
	}
	if total > req.Budget+priceTolerance {
		return fmt.Errorf("squad exceeds budget: %.2f > %.2f", total, req.Budget)
	}
	return nil
}

func validatePositions(req Request, sel *SquadSelection) error {
	if len(sel.Players) != req.Roster.Size() {
		return fmt.Errorf("squad requires %d players, got %d", req.Roster.Size(), len(sel.Players))
	}

	counts := sel.PositionCounts()
	for _, pos := range catalog.Positions {
		if counts[pos] > req.Roster.Target(pos) {
			return fmt.Errorf("position %s allows at most %d players, got %d", pos, req.Roster.Target(pos), counts[pos])
		}
	}
	return nil
}

func validateTeams(req Request, sel *SquadSelection) error {
	teamCounts := sel.TeamCounts()
	for team, count := range teamCounts {
		if limit := req.Restrictions.TeamCap(team); count > limit {
			return fmt.Errorf("too many players from team %s: %d > %d", team, count, limit)
		}
	}

	type teamPosition struct {
		team string
		pos  catalog.Position
	}
	positionCounts := make(map[teamPosition]int)
	for _, p := range sel.Players {
		positionCounts[teamPosition{p.Team, p.Position}]++
	}
	for tp, count := range positionCounts {
		if limit := req.Restrictions.PositionCap(tp.team, tp.pos); count > limit {
			return fmt.Errorf("too many %s from team %s: %d > %d", tp.pos, tp.team, count, limit)
		}
	}
	return nil
}

func validatePlayerRestrictions(cat *catalog.Catalog, req Request, sel *SquadSelection) error {
	inCatalog := make(map[PlayerKey]bool, cat.Len())
	for _, p := range cat.Players() {
		inCatalog[keyOf(p)] = true
	}

	for key := range req.Restrictions.forcedSet() {
		if inCatalog[key] && !sel.Contains(key) {
			return fmt.Errorf("forced player %q (%s) missing from squad", key.Name, key.Team)
		}
	}
	for key := range req.Restrictions.bannedSet() {
		if sel.Contains(key) {
			return fmt.Errorf("banned player %q (%s) selected", key.Name, key.Team)
		}
	}
	return nil
}
