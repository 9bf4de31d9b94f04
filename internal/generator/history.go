package generator

import (
	"fmt"
	"time"

	"github.com/dvloznov/vaultmind/internal/domain"
)

// GenerateRange produces 1..maxPerDay random transactions for every calendar
// day in [from, to], stamped at midnight in from's location. Rows come back
// in day order.
func (g *Generator) GenerateRange(from, to time.Time, maxPerDay int) (domain.Ledger, error) {
	if maxPerDay < 1 {
		return nil, fmt.Errorf("GenerateRange: max per day must be at least 1, got %d", maxPerDay)
	}
	loc := from.Location()
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	last := to.In(loc)
	last = time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc)
	if last.Before(day) {
		return nil, fmt.Errorf("GenerateRange: end %s is before start %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	var out domain.Ledger
	for !day.After(last) {
		n := g.intBetween(1, maxPerDay)
		for i := 0; i < n; i++ {
			out = append(out, g.Random(day))
		}
		day = day.AddDate(0, 0, 1)
	}
	return out, nil
}
