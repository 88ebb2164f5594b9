package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stitts-dev/fpl-squad/internal/catalog"
)

var requiredColumns = []string{"player", "team", "position", "price"}

// ParseCSV reads a table whose header names the player, team, position and
// price columns. Every other column is a scoring period. Empty score cells
// leave that period unscored for the player.
func ParseCSV(r io.Reader) ([]catalog.PlayerRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty CSV input")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	var periods []int
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "name" {
			name = "player"
		}
		if isRequired(name) {
			index[name] = i
			continue
		}
		periods = append(periods, i)
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("CSV header missing %q column", col)
		}
	}

	var records []catalog.PlayerRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec, err := newRecord(len(records), row[index["player"]], row[index["team"]], row[index["position"]], row[index["price"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for _, col := range periods {
			if strings.TrimSpace(row[col]) == "" {
				continue
			}
			label := strings.TrimSpace(header[col])
			score, err := parseNumber(row[col])
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, label, err)
			}
			rec.Scores[label] = score
		}
		records = append(records, rec)
	}
	return records, nil
}

func isRequired(name string) bool {
	for _, col := range requiredColumns {
		if col == name {
			return true
		}
	}
	return false
}
