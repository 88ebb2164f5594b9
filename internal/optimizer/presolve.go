package optimizer

import (
	"github.com/stitts-dev/fpl-squad/internal/catalog"
)

// dominatedPlayers returns the indexes of players that no optimal squad needs.
// Within one team and position with cap c, a player with at least c eligible
// dominators can always be swapped for one of them without breaking a rule or
// lowering the score. a dominates b when it costs no more and scores no less,
// with the lower index winning exact ties. Forced players are never removed
// and banned players never count as dominators.
func dominatedPlayers(players []catalog.PlayerRecord, scores []float64, r Restrictions, forced, banned map[PlayerKey]bool) []int {
	type group struct {
		team string
		pos  catalog.Position
	}
	members := make(map[group][]int)
	var order []group
	for i, p := range players {
		g := group{team: p.Team, pos: p.Position}
		if _, ok := members[g]; !ok {
			order = append(order, g)
		}
		members[g] = append(members[g], i)
	}

	var out []int
	for _, g := range order {
		limit := r.PositionCap(g.team, g.pos)
		idx := members[g]
		if limit < 1 || len(idx) <= limit {
			continue
		}
		for _, b := range idx {
			if forced[keyOf(players[b])] {
				continue
			}
			count := 0
			for _, a := range idx {
				if a == b || banned[keyOf(players[a])] {
					continue
				}
				if dominates(players, scores, a, b) {
					count++
				}
			}
			if count >= limit {
				out = append(out, b)
			}
		}
	}
	return out
}

func dominates(players []catalog.PlayerRecord, scores []float64, a, b int) bool {
	pa, pb := players[a].Price, players[b].Price
	sa, sb := scores[a], scores[b]
	if pa > pb || sa < sb {
		return false
	}
	return pa < pb || sa > sb || a < b
}
