package catalog

import (
	"fmt"
	"strings"
)

// Position is the playing position a player is listed under
type Position string

const (
	Goalkeeper Position = "GK"
	Defender   Position = "DEF"
	Midfielder Position = "MID"
	Forward    Position = "FWD"
)

// Positions lists every position in squad order
var Positions = []Position{Goalkeeper, Defender, Midfielder, Forward}

// ParsePosition accepts the short codes as well as the long position names
func ParsePosition(s string) (Position, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GK", "GKP", "GOALKEEPER":
		return Goalkeeper, nil
	case "DEF", "DEFENDER":
		return Defender, nil
	case "MID", "MIDFIELDER":
		return Midfielder, nil
	case "FWD", "FORWARD":
		return Forward, nil
	}
	return "", fmt.Errorf("unknown position %q", s)
}

// Valid reports whether p is one of the four known positions
func (p Position) Valid() bool {
	switch p {
	case Goalkeeper, Defender, Midfielder, Forward:
		return true
	}
	return false
}

func (p Position) String() string {
	return string(p)
}

// UnmarshalText accepts any spelling ParsePosition understands
func (p *Position) UnmarshalText(text []byte) error {
	pos, err := ParsePosition(string(text))
	if err != nil {
		return err
	}
	*p = pos
	return nil
}

// PlayerRecord is one row of the player pool
type PlayerRecord struct {
	ID       int                `json:"id"`
	Name     string             `json:"name"`
	Team     string             `json:"team"`
	Position Position           `json:"position"`
	Price    float64            `json:"price"`
	Scores   map[string]float64 `json:"scores"`
}

// Score returns the expected points for a period and whether the period is present
func (p PlayerRecord) Score(period string) (float64, bool) {
	v, ok := p.Scores[period]
	return v, ok
}

func (p PlayerRecord) clone() PlayerRecord {
	scores := make(map[string]float64, len(p.Scores))
	for k, v := range p.Scores {
		scores[k] = v
	}
	p.Scores = scores
	return p
}
