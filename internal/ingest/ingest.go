// Package ingest reads player tables into catalog records.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/stitts-dev/fpl-squad/internal/catalog"
)

// PeriodRange returns gameweek labels gw<start> through gw<end> inclusive
func PeriodRange(start, end int) []string {
	if end < start {
		return nil
	}
	labels := make([]string, 0, end-start+1)
	for gw := start; gw <= end; gw++ {
		labels = append(labels, fmt.Sprintf("gw%d", gw))
	}
	return labels
}

// LoadFile reads a player table from path and builds a catalog. Files ending
// in .csv are read with ParseCSV, anything else is treated as an HTML table
// with the given period columns.
func LoadFile(path string, periods []string) (*catalog.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open player table: %w", err)
	}
	defer f.Close()

	var records []catalog.PlayerRecord
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		records, err = ParseCSV(f)
	} else {
		records, err = ParseHTML(f, periods)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return catalog.New(records)
}

// newRecord converts the text of one table row
func newRecord(id int, player, team, position, price string) (catalog.PlayerRecord, error) {
	pos, err := catalog.ParsePosition(position)
	if err != nil {
		return catalog.PlayerRecord{}, err
	}
	p, err := parseNumber(price)
	if err != nil {
		return catalog.PlayerRecord{}, fmt.Errorf("price: %w", err)
	}
	return catalog.PlayerRecord{
		ID:       id,
		Name:     strings.TrimSpace(player),
		Team:     strings.TrimSpace(team),
		Position: pos,
		Price:    p,
		Scores:   make(map[string]float64),
	}, nil
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", strings.TrimSpace(s))
	}
	return v, nil
}
