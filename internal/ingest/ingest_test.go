package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/fpl-squad/internal/catalog"
)

const playerTable = `<html><body><table>
<thead><tr><th>Player</th><th>Team</th><th>Pos</th><th>Price</th><th>GW1</th><th>GW2</th></tr></thead>
<tbody>
<tr><td>Raya</td><td> Arsenal </td><td>GKP</td><td>5.5</td><td>4.1</td><td>3.9</td></tr>
<tr><td>Salah</td><td>Liverpool</td><td>MID</td><td>12.5</td><td>7.2</td><td>6.5</td><td>extra</td></tr>
<tr><td>Haaland</td><td>Man City</td><td>FWD</td><td>14.0</td><td>8.2</td><td>7.7</td></tr>
</tbody></table></body></html>`

func TestPeriodRange(t *testing.T) {
	assert.Equal(t, []string{"gw3", "gw4", "gw5"}, PeriodRange(3, 5))
	assert.Equal(t, []string{"gw7"}, PeriodRange(7, 7))
	assert.Empty(t, PeriodRange(5, 3))
}

func TestParseHTML(t *testing.T) {
	records, err := ParseHTML(strings.NewReader(playerTable), PeriodRange(1, 2))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, catalog.PlayerRecord{
		ID:       0,
		Name:     "Raya",
		Team:     "Arsenal",
		Position: catalog.Goalkeeper,
		Price:    5.5,
		Scores:   map[string]float64{"gw1": 4.1, "gw2": 3.9},
	}, records[0])
	assert.Equal(t, 1, records[1].ID)
	assert.Equal(t, catalog.Midfielder, records[1].Position)
	assert.Equal(t, map[string]float64{"gw1": 8.2, "gw2": 7.7}, records[2].Scores)

	_, err = catalog.New(records)
	assert.NoError(t, err)
}

func TestParseHTML_Errors(t *testing.T) {
	tests := []struct {
		name    string
		row     string
		wantErr string
	}{
		{"short row", `<tr><td>Raya</td><td>Arsenal</td><td>GK</td><td>5.5</td></tr>`, "expected 6 cells"},
		{"bad price", `<tr><td>Raya</td><td>Arsenal</td><td>GK</td><td>cheap</td><td>1</td><td>2</td></tr>`, "price"},
		{"bad score", `<tr><td>Raya</td><td>Arsenal</td><td>GK</td><td>5.5</td><td>1</td><td>-</td></tr>`, "gw2"},
		{"bad position", `<tr><td>Raya</td><td>Arsenal</td><td>COACH</td><td>5.5</td><td>1</td><td>2</td></tr>`, "COACH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHTML(strings.NewReader("<table>"+tt.row+"</table>"), PeriodRange(1, 2))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseCSV(t *testing.T) {
	input := "Player,Team,Position,Price,gw1,gw2\n" +
		"Raya, Arsenal ,GK,5.5,4.1,3.9\n" +
		"Salah,Liverpool,MID,12.5,7.2,\n"

	records, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Arsenal", records[0].Team)
	assert.Equal(t, map[string]float64{"gw1": 4.1, "gw2": 3.9}, records[0].Scores)
	assert.Equal(t, map[string]float64{"gw1": 7.2}, records[1].Scores, "empty cells leave the period unscored")

	cat, err := catalog.New(records)
	require.NoError(t, err)
	_, err = cat.ResolveScores(catalog.Period("gw2"))
	assert.ErrorIs(t, err, catalog.ErrMissingPeriod)
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "empty CSV"},
		{"missing column", "player,team,price,gw1\nRaya,ARS,5.5,1\n", `"position"`},
		{"ragged row", "player,team,position,price\nRaya,ARS,GK\n", "line 2"},
		{"bad score", "player,team,position,price,gw1\nRaya,ARS,GK,5.5,x\n", "gw1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "gw1-2.html")
	csvPath := filepath.Join(dir, "players.CSV")
	require.NoError(t, os.WriteFile(htmlPath, []byte(playerTable), 0o644))
	require.NoError(t, os.WriteFile(csvPath, []byte("name,team,position,price,gw1\nRaya,ARS,GK,5.5,4\n"), 0o644))

	cat, err := LoadFile(htmlPath, PeriodRange(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, cat.Len())
	assert.Equal(t, []string{"Arsenal", "Liverpool", "Man City"}, cat.Teams())

	cat, err = LoadFile(csvPath, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"gw1"}, cat.Periods())

	_, err = LoadFile(filepath.Join(dir, "missing.html"), nil)
	assert.Error(t, err)
}
