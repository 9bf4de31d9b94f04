// Package backup pushes the ledger file to object storage and restores it.
package backup

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidURI is returned for anything that is not gs://bucket[/object].
	ErrInvalidURI = errors.New("invalid GCS URI")
	// ErrNotLedger is returned when a downloaded object lacks the ledger header.
	ErrNotLedger = errors.New("object is not a ledger file")
)

const objectTimeLayout = "20060102T150405Z"

// ParseURI splits a gs:// URI into bucket and object. The object is empty
// when the URI names only a bucket or ends in a slash.
// e.g., "gs://bucket/backups/ledger.csv" → "bucket", "backups/ledger.csv"
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	trimmed := strings.TrimPrefix(uri, "gs://")
	bucket, object, _ = strings.Cut(trimmed, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w (no bucket): %s", ErrInvalidURI, uri)
	}
	return bucket, object, nil
}

// Service copies a ledger file between local disk and object storage.
type Service struct {
	store ObjectStore
	now   func() time.Time
	log   zerolog.Logger
}

// NewService creates a backup service. A nil now defaults to time.Now.
func NewService(store ObjectStore, now func() time.Time, log zerolog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now, log: log}
}

// Push uploads the ledger at ledgerPath and returns the URI it was written
// to. A URI without an object name, or one ending in a slash, receives a
// timestamped ledger-<UTC time>.csv name under that prefix.
func (s *Service) Push(ctx context.Context, ledgerPath, uri string) (string, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return "", fmt.Errorf("Push: %w", err)
	}
	if object == "" || strings.HasSuffix(object, "/") {
		object = path.Join(object, fmt.Sprintf("ledger-%s.csv", s.now().UTC().Format(objectTimeLayout)))
	}

	f, err := os.Open(ledgerPath)
	if err != nil {
		return "", fmt.Errorf("Push: open %q: %w", ledgerPath, err)
	}
	defer f.Close()

	if err := s.store.Upload(ctx, bucket, object, f); err != nil {
		return "", fmt.Errorf("Push: upload: %w", err)
	}

	target := fmt.Sprintf("gs://%s/%s", bucket, object)
	s.log.Info().Str("ledger", ledgerPath).Str("uri", target).Msg("Ledger backed up")
	return target, nil
}

// Pull downloads uri and replaces the ledger at ledgerPath with it. The
// object is staged next to the ledger and only moved into place once its
// header has been checked, so a failed pull leaves the ledger untouched.
func (s *Service) Pull(ctx context.Context, uri, ledgerPath string) error {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return fmt.Errorf("Pull: %w", err)
	}
	if object == "" || strings.HasSuffix(object, "/") {
		return fmt.Errorf("Pull: %w (no object path): %s", ErrInvalidURI, uri)
	}

	tmp, err := os.CreateTemp(filepath.Dir(ledgerPath), ".ledger-*.csv")
	if err != nil {
		return fmt.Errorf("Pull: create staging file: %w", err)
	}
	staged := tmp.Name()
	defer os.Remove(staged)

	if err := s.store.Download(ctx, bucket, object, tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("Pull: download: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("Pull: rewind staging file: %w", err)
	}
	if err := checkHeader(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("Pull: %s: %w", uri, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("Pull: close staging file: %w", err)
	}
	if err := os.Rename(staged, ledgerPath); err != nil {
		return fmt.Errorf("Pull: replace %q: %w", ledgerPath, err)
	}

	s.log.Info().Str("ledger", ledgerPath).Str("uri", uri).Msg("Ledger restored")
	return nil
}

func checkHeader(r io.Reader) error {
	header, err := csv.NewReader(r).Read()
	if err != nil {
		return fmt.Errorf("%w: read header: %v", ErrNotLedger, err)
	}
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = true
	}
	for _, col := range domain.Columns {
		if !seen[col] {
			return fmt.Errorf("%w: missing column %q", ErrNotLedger, col)
		}
	}
	return nil
}
