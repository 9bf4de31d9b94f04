package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TimestampLayout is the layout used when writing the Date column.
const TimestampLayout = "2006-01-02 15:04:05"

// dateLayouts are accepted when reading the Date column, most specific first.
// They carry no zone and are read in the store's location.
var dateLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// zonedDateLayouts carry their own offset; parsed instants are converted to
// the store's location.
var zonedDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
}

// Loader reads a sorted ledger snapshot.
type Loader interface {
	Load(ctx context.Context) (domain.Ledger, error)
}

// Appender writes a single transaction to the ledger.
type Appender interface {
	Append(ctx context.Context, tx domain.Transaction) error
}

// Store is a CSV-file backed ledger. It only ever appends; rows are never
// rewritten or deleted.
type Store struct {
	path string
	loc  *time.Location
	log  zerolog.Logger

	// mu serialises appends within one process.
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the zone used to interpret and format the Date column.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger attaches a logger for skipped-row diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// NewStore returns a store for the CSV file at path. The file is not touched
// until the first Load or Append.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path: path,
		loc:  time.Local,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Location returns the zone used for the Date column.
func (s *Store) Location() *time.Location { return s.loc }

// Load reads every valid row, sorted ascending by timestamp. A missing file
// is initialised with the header and yields an empty ledger. Rows whose
// date or amounts do not parse are skipped and stay on disk untouched.
func (s *Store) Load(ctx context.Context) (domain.Ledger, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.initFile(); err != nil {
			return nil, err
		}
		return domain.Ledger{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Load: open %s: %w", s.path, err)
	}
	defer f.Close()

	ledger, err := s.decode(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("Load: read %s: %w", s.path, err)
	}
	ledger.SortByTime()
	return ledger, nil
}

// Append writes one row. The header is written first when the file is new
// or empty. The Date column holds whole seconds in the store's location, so
// any sub-second part of the timestamp is dropped. The full row, terminator
// included, goes out in a single write and is synced before Append returns.
func (s *Store) Append(ctx context.Context, tx domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("Append: open %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("Append: stat %s: %w", s.path, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		if err := w.Write(domain.Columns); err != nil {
			return fmt.Errorf("Append: encode header: %w", err)
		}
	}
	if err := w.Write(s.encodeRow(tx)); err != nil {
		return fmt.Errorf("Append: encode row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("Append: encode row: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("Append: write %s: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("Append: sync %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) initFile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		// Another writer created it between our open and here.
		return nil
	}
	if err != nil {
		return fmt.Errorf("Load: create %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(domain.Columns); err != nil {
		return fmt.Errorf("Load: write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("Load: write header: %w", err)
	}
	return nil
}

func (s *Store) decode(ctx context.Context, r io.Reader) (domain.Ledger, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return domain.Ledger{}, nil
	}
	if err != nil {
		return nil, err
	}
	index := columnIndex(header)

	ledger := domain.Ledger{}
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line++

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// A torn or hand-edited row; skip it like any other malformed row.
			s.log.Debug().Int("line", line).Err(err).Msg("Skipping unreadable ledger row")
			continue
		}
		if err != nil {
			return nil, err
		}

		tx, err := s.decodeRow(index, record)
		if err != nil {
			s.log.Debug().Int("line", line).Err(err).Msg("Skipping malformed ledger row")
			continue
		}
		ledger = append(ledger, tx)
	}
	return ledger, nil
}

func columnIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return index
}

// field returns the raw cell. Text columns are kept verbatim so they round
// trip exactly.
func field(index map[string]int, record []string, name string) string {
	i, ok := index[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func (s *Store) decodeRow(index map[string]int, record []string) (domain.Transaction, error) {
	ts, err := s.parseTimestamp(strings.TrimSpace(field(index, record, "Date")))
	if err != nil {
		return domain.Transaction{}, err
	}

	amount, err := parseDecimal(strings.TrimSpace(field(index, record, "Amount")))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid Amount: %w", err)
	}
	balance, err := parseDecimal(strings.TrimSpace(field(index, record, "Account_Balance")))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid Account_Balance: %w", err)
	}

	return domain.Transaction{
		Timestamp:      ts,
		Merchant:       field(index, record, "Merchant"),
		Category:       field(index, record, "Category"),
		Amount:         amount,
		PaymentMethod:  field(index, record, "Payment_Method"),
		AccountBalance: balance,
	}, nil
}

func (s *Store) parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing Date")
	}
	for _, layout := range dateLayouts {
		if ts, err := time.ParseInLocation(layout, raw, s.loc); err == nil {
			return ts, nil
		}
	}
	for _, layout := range zonedDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.In(s.loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid Date: %q", raw)
}

// parseDecimal treats an empty cell as zero, matching rows written by tools
// that leave optional columns blank.
func parseDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func (s *Store) encodeRow(tx domain.Transaction) []string {
	return []string{
		tx.Timestamp.In(s.loc).Format(TimestampLayout),
		tx.Merchant,
		tx.Category,
		tx.Amount.String(),
		tx.PaymentMethod,
		tx.AccountBalance.String(),
	}
}

var (
	_ Loader   = (*Store)(nil)
	_ Appender = (*Store)(nil)
)
