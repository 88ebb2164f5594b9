package optimizer

import (
	"strings"

	"github.com/stitts-dev/fpl-squad/internal/catalog"
)

const (
	// DefaultTeamCap applies to every team without an entry in TeamCaps
	DefaultTeamCap = 2
	// DefaultPositionCap applies per position to every team without an entry in PositionCaps
	DefaultPositionCap = 1
)

// PlayerKey identifies a player by club and display name
type PlayerKey struct {
	Team string `json:"team"`
	Name string `json:"name"`
}

func (k PlayerKey) normalized() PlayerKey {
	return PlayerKey{Team: strings.TrimSpace(k.Team), Name: strings.TrimSpace(k.Name)}
}

func keyOf(p catalog.PlayerRecord) PlayerKey {
	return PlayerKey{Team: p.Team, Name: p.Name}
}

// PositionCaps are per-team ceilings for each position
type PositionCaps struct {
	Goalkeepers int `json:"goalkeepers"`
	Defenders   int `json:"defenders"`
	Midfielders int `json:"midfielders"`
	Forwards    int `json:"forwards"`
}

// Cap returns the ceiling for pos
func (c PositionCaps) Cap(pos catalog.Position) int {
	switch pos {
	case catalog.Goalkeeper:
		return c.Goalkeepers
	case catalog.Defender:
		return c.Defenders
	case catalog.Midfielder:
		return c.Midfielders
	case catalog.Forward:
		return c.Forwards
	}
	return 0
}

// Restrictions narrow the feasible squads of a request
type Restrictions struct {
	TeamCaps     map[string]int          `json:"team_caps,omitempty"`
	PositionCaps map[string]PositionCaps `json:"position_caps,omitempty"`
	Forced       []PlayerKey             `json:"forced,omitempty"`
	Banned       []PlayerKey             `json:"banned,omitempty"`
}

// TeamCap resolves the maximum number of players selectable from team
func (r Restrictions) TeamCap(team string) int {
	if key, ok := lookupTeam(r.TeamCaps, team); ok {
		return r.TeamCaps[key]
	}
	return DefaultTeamCap
}

// PositionCap resolves the maximum number of players at pos selectable from team
func (r Restrictions) PositionCap(team string, pos catalog.Position) int {
	if key, ok := lookupTeam(r.PositionCaps, team); ok {
		return r.PositionCaps[key].Cap(pos)
	}
	return DefaultPositionCap
}

func (r Restrictions) forcedSet() map[PlayerKey]bool {
	return keySet(r.Forced)
}

func (r Restrictions) bannedSet() map[PlayerKey]bool {
	return keySet(r.Banned)
}

func (r Restrictions) validate() error {
	if err := uniqueTeams("restrictions.team_caps", r.TeamCaps); err != nil {
		return err
	}
	if err := uniqueTeams("restrictions.position_caps", r.PositionCaps); err != nil {
		return err
	}
	for team, limit := range r.TeamCaps {
		team = strings.TrimSpace(team)
		if limit < 0 {
			return invalid("restrictions.team_caps", "team %q has negative cap %d", team, limit)
		}
	}
	for team, caps := range r.PositionCaps {
		team = strings.TrimSpace(team)
		for _, pos := range catalog.Positions {
			if caps.Cap(pos) < 0 {
				return invalid("restrictions.position_caps", "team %q has negative %s cap %d", team, pos, caps.Cap(pos))
			}
		}
	}
	banned := r.bannedSet()
	for _, key := range r.Forced {
		if banned[key.normalized()] {
			return invalid("restrictions", "player %q (%s) is both forced and banned", key.Name, key.Team)
		}
	}
	return nil
}

func keySet(keys []PlayerKey) map[PlayerKey]bool {
	set := make(map[PlayerKey]bool, len(keys))
	for _, k := range keys {
		set[k.normalized()] = true
	}
	return set
}

// lookupTeam finds the map key naming team, ignoring surrounding whitespace
func lookupTeam[V any](m map[string]V, team string) (string, bool) {
	if _, ok := m[team]; ok {
		return team, true
	}
	team = strings.TrimSpace(team)
	for key := range m {
		if strings.TrimSpace(key) == team {
			return key, true
		}
	}
	return "", false
}

func uniqueTeams[V any](field string, m map[string]V) error {
	seen := make(map[string]bool, len(m))
	for key := range m {
		team := strings.TrimSpace(key)
		if seen[team] {
			return invalid(field, "team %q is listed more than once", team)
		}
		seen[team] = true
	}
	return nil
}
