// Package bigquery is the BigQuery-backed ledger. It mirrors the sheet-backed
// store's application schema so either backend can sit behind
// ledger.TransactionStore, selected by configuration.
package bigquery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/sms-ledger/internal/domain"
	"github.com/dvloznov/sms-ledger/internal/ledger"
)

// Store implements ledger.TransactionStore against a BigQuery dataset. It
// holds a shared client to avoid creating a new connection per operation.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewStore creates a BigQuery-backed transaction store.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewStore: creating client: %w", err)
	}
	return &Store{client: client, projectID: projectID, datasetID: datasetID}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Create inserts one transaction row via the streaming inserter.
func (s *Store) Create(ctx context.Context, tx domain.StoredTransaction) error {
	dt, err := time.Parse(time.RFC3339, tx.DateTime)
	if err != nil {
		return fmt.Errorf("bigquery.Create: invalid dateTime %q: %w", tx.DateTime, err)
	}

	row := &TransactionRow{
		TransactionID:   uuid.NewString(),
		Amount:          tx.Amount,
		Vendor:          nullString(tx.Vendor),
		Category:        nullString(tx.Category),
		DateTime:        dt,
		MessageDate:     civil.DateOf(dt),
		Currency:        nullString(tx.Currency),
		TransactionType: nullString(tx.TransactionType),
		Confidence:      tx.Confidence,
		CreatedTS:       time.Now(),
	}

	table := s.client.DatasetInProject(s.projectID, s.datasetID).Table(transactionsTable)
	if err := table.Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("bigquery.Create: inserting row: %w", err)
	}
	return nil
}

// FindByAmount queries rows whose amount exactly equals amount, converting
// them to the generic record shape shared with the sheet backend.
func (s *Store) FindByAmount(ctx context.Context, amount float64) ([]ledger.Record, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			t.amount,
			t.vendor,
			t.category,
			t.date_time,
			t.currency,
			t.transaction_type,
			t.confidence
		FROM %s.%s t
		WHERE t.amount = @amount
		ORDER BY t.date_time DESC
	`, s.datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "amount", Value: amount},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery.FindByAmount: query read: %w", err)
	}

	var records []ledger.Record
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery.FindByAmount: iter next: %w", err)
		}
		records = append(records, rowToRecord(&r))
	}
	return records, nil
}

// rowToRecord converts a table row to the generic record shape shared with
// the sheet backend.
func rowToRecord(r *TransactionRow) ledger.Record {
	return ledger.Record{
		ledger.ColumnAmount:          r.Amount,
		ledger.ColumnVendor:          r.Vendor.StringVal,
		ledger.ColumnCategory:        r.Category.StringVal,
		ledger.ColumnDateTime:        r.DateTime.Format(time.RFC3339),
		ledger.ColumnCurrency:        r.Currency.StringVal,
		ledger.ColumnTransactionType: r.TransactionType.StringVal,
		ledger.ColumnConfidence:      r.Confidence,
	}
}

// listLimit caps how many rows List returns; the read API is for recent
// activity, not full exports.
const listLimit = 500

// List returns the most recently created rows.
func (s *Store) List(ctx context.Context) ([]ledger.Record, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			t.amount,
			t.vendor,
			t.category,
			t.date_time,
			t.currency,
			t.transaction_type,
			t.confidence
		FROM %s.%s t
		ORDER BY t.created_ts DESC
		LIMIT @limit
	`, s.datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: int64(listLimit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery.List: query read: %w", err)
	}

	var records []ledger.Record
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery.List: iter next: %w", err)
		}
		records = append(records, rowToRecord(&r))
	}
	return records, nil
}

// columnNames maps the application-level column names to table columns for
// Update. Only these columns may be filtered on or rewritten.
var columnNames = map[string]string{
	ledger.ColumnAmount:          "amount",
	ledger.ColumnVendor:          "vendor",
	ledger.ColumnCategory:        "category",
	ledger.ColumnDateTime:        "date_time",
	ledger.ColumnCurrency:        "currency",
	ledger.ColumnTransactionType: "transaction_type",
	ledger.ColumnConfidence:      "confidence",
}

// Update rewrites matching rows with newValues using a parameterized DML
// statement. Column names are validated against the known schema before
// being interpolated.
func (s *Store) Update(ctx context.Context, where, newValues map[string]interface{}) error {
	if len(where) == 0 || len(newValues) == 0 {
		return fmt.Errorf("bigquery.Update: where and newValues must be non-empty")
	}

	var sets, conds []string
	var params []bigquery.QueryParameter

	for i, key := range sortedKeys(newValues) {
		col, ok := columnNames[key]
		if !ok {
			return fmt.Errorf("bigquery.Update: unknown column %q", key)
		}
		p := fmt.Sprintf("set_%d", i)
		sets = append(sets, fmt.Sprintf("%s = @%s", col, p))
		params = append(params, bigquery.QueryParameter{Name: p, Value: newValues[key]})
	}
	for i, key := range sortedKeys(where) {
		col, ok := columnNames[key]
		if !ok {
			return fmt.Errorf("bigquery.Update: unknown column %q", key)
		}
		p := fmt.Sprintf("where_%d", i)
		conds = append(conds, fmt.Sprintf("%s = @%s", col, p))
		params = append(params, bigquery.QueryParameter{Name: p, Value: where[key]})
	}

	q := s.client.Query(fmt.Sprintf(
		"UPDATE %s.%s SET %s WHERE %s",
		s.datasetID, transactionsTable,
		strings.Join(sets, ", "), strings.Join(conds, " AND "),
	))
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("bigquery.Update: running update query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("bigquery.Update: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("bigquery.Update: job error: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ ledger.TransactionStore = (*Store)(nil)
var _ ledger.TransactionLister = (*Store)(nil)
