package ingest

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"

	"github.com/stitts-dev/fpl-squad/internal/catalog"
)

// ParseHTML reads every table row of an HTML document. Data cells are taken
// in the order player, team, position, price followed by one score per
// period. Rows without td cells (headers) are skipped and cells past the
// last period are ignored. IDs are assigned in row order starting at zero.
func ParseHTML(r io.Reader, periods []string) ([]catalog.PlayerRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTML: %w", err)
	}

	want := 4 + len(periods)
	var records []catalog.PlayerRecord
	var parseErr error

	doc.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return true
		}
		if cells.Length() < want {
			parseErr = fmt.Errorf("row %d: expected %d cells, got %d", i+1, want, cells.Length())
			return false
		}

		text := cells.Map(func(_ int, s *goquery.Selection) string { return s.Text() })
		rec, err := newRecord(len(records), text[0], text[1], text[2], text[3])
		if err != nil {
			parseErr = fmt.Errorf("row %d: %w", i+1, err)
			return false
		}
		for j, period := range periods {
			score, err := parseNumber(text[4+j])
			if err != nil {
				parseErr = fmt.Errorf("row %d: %s: %w", i+1, period, err)
				return false
			}
			rec.Scores[period] = score
		}
		records = append(records, rec)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return records, nil
}
