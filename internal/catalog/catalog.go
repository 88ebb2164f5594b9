package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInvalidRecord = errors.New("invalid player record")
	ErrMissingPeriod = errors.New("scoring period missing")
)

// Catalog is a validated, read-only player pool. It is safe for concurrent use.
type Catalog struct {
	players []PlayerRecord
	periods []string
	teams   []string
}

// New validates the records and returns a catalog holding private copies of them
func New(records []PlayerRecord) (*Catalog, error) {
	c := &Catalog{players: make([]PlayerRecord, 0, len(records))}

	seenIDs := make(map[int]bool, len(records))
	seenPeriods := make(map[string]bool)
	seenTeams := make(map[string]bool)

	for i, r := range records {
		r = r.clone()
		r.Team = strings.TrimSpace(r.Team)
		r.Name = strings.TrimSpace(r.Name)

		if err := validateRecord(r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if seenIDs[r.ID] {
			return nil, fmt.Errorf("record %d: %w: duplicate id %d", i, ErrInvalidRecord, r.ID)
		}
		seenIDs[r.ID] = true

		if !seenTeams[r.Team] {
			seenTeams[r.Team] = true
			c.teams = append(c.teams, r.Team)
		}
		for _, period := range sortedKeys(r.Scores) {
			if !seenPeriods[period] {
				seenPeriods[period] = true
				c.periods = append(c.periods, period)
			}
		}

		c.players = append(c.players, r)
	}

	return c, nil
}

func validateRecord(r PlayerRecord) error {
	if r.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidRecord)
	}
	if r.Team == "" {
		return fmt.Errorf("%w: player %q has no team", ErrInvalidRecord, r.Name)
	}
	if !r.Position.Valid() {
		return fmt.Errorf("%w: player %q has unknown position %q", ErrInvalidRecord, r.Name, r.Position)
	}
	if r.Price < 0 || math.IsNaN(r.Price) || math.IsInf(r.Price, 0) {
		return fmt.Errorf("%w: player %q has invalid price %v", ErrInvalidRecord, r.Name, r.Price)
	}
	for period, v := range r.Scores {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: player %q has invalid score %v for %s", ErrInvalidRecord, r.Name, v, period)
		}
	}
	return nil
}

// Len returns the number of players
func (c *Catalog) Len() int {
	return len(c.players)
}

// Players returns copies of all players in catalog order
func (c *Catalog) Players() []PlayerRecord {
	out := make([]PlayerRecord, len(c.players))
	for i, p := range c.players {
		out[i] = p.clone()
	}
	return out
}

// Teams returns the distinct teams in the order they first appear
func (c *Catalog) Teams() []string {
	return append([]string(nil), c.teams...)
}

// Periods returns every period label seen in any record, in first-seen order
func (c *Catalog) Periods() []string {
	return append([]string(nil), c.periods...)
}

// ResolveScores returns the objective coefficient of every player for sp, in
// catalog order. Each component period must be present on every player.
func (c *Catalog) ResolveScores(sp ScoringPeriod) ([]float64, error) {
	if err := sp.validate(); err != nil {
		return nil, err
	}

	scores := make([]float64, len(c.players))
	for i, p := range c.players {
		var total float64
		for _, period := range sp.Components {
			v, ok := p.Scores[period]
			if !ok {
				return nil, fmt.Errorf("%w: player %q (%s) has no value for %s", ErrMissingPeriod, p.Name, p.Team, period)
			}
			total += v
		}
		scores[i] = total
	}
	return scores, nil
}
