package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// TransactionRepository stores mirrored ledger rows.
type TransactionRepository interface {
	// EnsureTable creates the transactions table when it does not exist.
	EnsureTable(ctx context.Context) error

	// InsertTransactions streams rows into the table.
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error

	// LatestBooking returns the newest booking_datetime mirrored so far.
	// ok is false when the table is empty.
	LatestBooking(ctx context.Context) (latest civil.DateTime, ok bool, err error)
}

// Config names the destination table.
type Config struct {
	ProjectID string
	DatasetID string
	Table     string
}

// DefaultTable is used when Config.Table is empty.
const DefaultTable = "transactions"

// BigQueryTransactionRepository is the concrete implementation of
// TransactionRepository that interacts with BigQuery. It holds a shared
// client to avoid creating a new connection for each operation.
type BigQueryTransactionRepository struct {
	client *bigquery.Client
	cfg    Config
}

// NewBigQueryTransactionRepository creates a repository with a shared
// BigQuery client.
func NewBigQueryTransactionRepository(ctx context.Context, cfg Config) (*BigQueryTransactionRepository, error) {
	if cfg.ProjectID == "" || cfg.DatasetID == "" {
		return nil, errors.New("NewBigQueryTransactionRepository: project and dataset are required")
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	client, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryTransactionRepository: creating client: %w", err)
	}
	return &BigQueryTransactionRepository{client: client, cfg: cfg}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryTransactionRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *BigQueryTransactionRepository) table() *bigquery.Table {
	return r.client.DatasetInProject(r.cfg.ProjectID, r.cfg.DatasetID).Table(r.cfg.Table)
}

// EnsureTable creates the table, day-partitioned on transaction_date, when
// it is missing.
func (r *BigQueryTransactionRepository) EnsureTable(ctx context.Context) error {
	table := r.table()
	_, err := table.Metadata(ctx)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return fmt.Errorf("EnsureTable: reading metadata: %w", err)
	}

	schema, err := bigquery.InferSchema(TransactionRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}
	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "transaction_date",
		},
	}
	if err := table.Create(ctx, meta); err != nil {
		return fmt.Errorf("EnsureTable: creating table: %w", err)
	}
	return nil
}

// InsertTransactions streams rows using each transaction ID as the insert
// ID, so BigQuery drops retried duplicates on a best-effort basis.
func (r *BigQueryTransactionRepository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	savers := make([]*bigquery.StructSaver, len(rows))
	for i, row := range rows {
		savers[i] = &bigquery.StructSaver{Struct: row, InsertID: row.TransactionID}
	}
	if err := r.table().Inserter().Put(ctx, savers); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// LatestBooking queries MAX(booking_datetime).
func (r *BigQueryTransactionRepository) LatestBooking(ctx context.Context) (civil.DateTime, bool, error) {
	q := r.client.Query(fmt.Sprintf(
		"SELECT MAX(booking_datetime) AS latest FROM `%s.%s.%s`",
		r.cfg.ProjectID, r.cfg.DatasetID, r.cfg.Table,
	))

	it, err := q.Read(ctx)
	if err != nil {
		return civil.DateTime{}, false, fmt.Errorf("LatestBooking: query read: %w", err)
	}

	var row struct {
		Latest bigquery.NullDateTime `bigquery:"latest"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return civil.DateTime{}, false, nil
	}
	if err != nil {
		return civil.DateTime{}, false, fmt.Errorf("LatestBooking: iter next: %w", err)
	}
	return row.Latest.DateTime, row.Latest.Valid, nil
}

var _ TransactionRepository = (*BigQueryTransactionRepository)(nil)

// queryTimeout bounds a single mirror run.
const queryTimeout = 5 * time.Minute
