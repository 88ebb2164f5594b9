package optimizer

import (
	"math"

	"github.com/stitts-dev/fpl-squad/internal/catalog"
	"github.com/stitts-dev/fpl-squad/internal/solver"
)

// DefaultBudget is the squad budget used when a caller does not choose one
const DefaultBudget = 100.0

// DefaultRoster is the 2-5-5-3 fifteen-player squad
var DefaultRoster = Roster{Goalkeepers: 2, Defenders: 5, Midfielders: 5, Forwards: 3}

// Roster holds the number of players required at each position
type Roster struct {
	Goalkeepers int `json:"goalkeepers"`
	Defenders   int `json:"defenders"`
	Midfielders int `json:"midfielders"`
	Forwards    int `json:"forwards"`
}

// Size is the total number of players in the squad
func (r Roster) Size() int {
	return r.Goalkeepers + r.Defenders + r.Midfielders + r.Forwards
}

// Target returns the required count for pos
func (r Roster) Target(pos catalog.Position) int {
	switch pos {
	case catalog.Goalkeeper:
		return r.Goalkeepers
	case catalog.Defender:
		return r.Defenders
	case catalog.Midfielder:
		return r.Midfielders
	case catalog.Forward:
		return r.Forwards
	}
	return 0
}

// Request is one squad optimization
type Request struct {
	Period       catalog.ScoringPeriod `json:"period"`
	Budget       float64               `json:"budget"`
	Roster       Roster                `json:"roster"`
	Restrictions Restrictions          `json:"restrictions"`
}

func (r Request) validate() error {
	if math.IsNaN(r.Budget) || math.IsInf(r.Budget, 0) || r.Budget < 0 {
		return invalid("budget", "must be a non-negative number, got %v", r.Budget)
	}
	for _, pos := range catalog.Positions {
		if r.Roster.Target(pos) < 0 {
			return invalid("roster", "%s count must be non-negative, got %d", pos, r.Roster.Target(pos))
		}
	}
	return r.Restrictions.validate()
}

// SquadSelection is the outcome of one optimization. Players is empty unless
// Status is Optimal. Scores holds each selected player's score for Period,
// parallel to Players.
type SquadSelection struct {
	ID         string                 `json:"id"`
	Status     solver.Status          `json:"status"`
	Period     string                 `json:"period"`
	Players    []catalog.PlayerRecord `json:"players"`
	Scores     []float64              `json:"scores"`
	TotalPrice float64                `json:"total_price"`
	Objective  float64                `json:"objective"`
	Nodes      int                    `json:"nodes"`
}

// PositionCounts tallies the selected players by position
func (s *SquadSelection) PositionCounts() map[catalog.Position]int {
	counts := make(map[catalog.Position]int)
	for _, p := range s.Players {
		counts[p.Position]++
	}
	return counts
}

// TeamCounts tallies the selected players by team
func (s *SquadSelection) TeamCounts() map[string]int {
	counts := make(map[string]int)
	for _, p := range s.Players {
		counts[p.Team]++
	}
	return counts
}

// Contains reports whether a player with the given team and name was selected
func (s *SquadSelection) Contains(key PlayerKey) bool {
	key = key.normalized()
	for _, p := range s.Players {
		if keyOf(p) == key {
			return true
		}
	}
	return false
}
