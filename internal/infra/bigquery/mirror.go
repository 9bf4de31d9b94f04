// Package bigquery mirrors the CSV ledger into a BigQuery table for
// warehouse-side analysis.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/rs/zerolog"
)

// insertBatchSize caps rows per streaming insert request.
const insertBatchSize = 500

// MirrorResult reports what a Sync did.
type MirrorResult struct {
	Mirrored int
	Skipped  int
}

// Mirror copies ledger rows newer than the table's latest booking into the
// repository. The ledger stays the source of truth; the table is append-only.
type Mirror struct {
	repo     TransactionRepository
	currency string
	now      func() time.Time
	log      zerolog.Logger
}

// NewMirror creates a mirror writing through repo. A nil now defaults to
// time.Now.
func NewMirror(repo TransactionRepository, currency string, now func() time.Time, log zerolog.Logger) *Mirror {
	if now == nil {
		now = time.Now
	}
	return &Mirror{repo: repo, currency: currency, now: now, log: log}
}

// Sync mirrors every row booked strictly after the newest mirrored booking.
// l must be sorted ascending, as returned by the ledger store.
func (m *Mirror) Sync(ctx context.Context, l domain.Ledger) (MirrorResult, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := m.repo.EnsureTable(ctx); err != nil {
		return MirrorResult{}, fmt.Errorf("Sync: %w", err)
	}
	latest, ok, err := m.repo.LatestBooking(ctx)
	if err != nil {
		return MirrorResult{}, fmt.Errorf("Sync: %w", err)
	}

	now := m.now()
	var pending []*TransactionRow
	for _, tx := range l {
		if ok && !civil.DateTimeOf(tx.Timestamp).After(latest) {
			continue
		}
		pending = append(pending, ToRow(tx, m.currency, now))
	}
	result := MirrorResult{Skipped: len(l) - len(pending)}

	for start := 0; start < len(pending); start += insertBatchSize {
		end := min(start+insertBatchSize, len(pending))
		if err := m.repo.InsertTransactions(ctx, pending[start:end]); err != nil {
			return result, fmt.Errorf("Sync: batch at %d: %w", start, err)
		}
		result.Mirrored = end
	}

	m.log.Info().
		Int("mirrored", result.Mirrored).
		Int("skipped", result.Skipped).
		Msg("Ledger mirrored to BigQuery")
	return result, nil
}
