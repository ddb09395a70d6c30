package xlsdb

import (
	"context"

	"github.com/dvloznov/sms-ledger/internal/domain"
	"github.com/dvloznov/sms-ledger/internal/ledger"
)

// Store implements ledger.TransactionStore on top of the xlsDB client.
type Store struct {
	client *Client
}

// NewStore wraps an xlsDB client as a transaction store.
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// Create appends one transaction row to the sheet.
func (s *Store) Create(ctx context.Context, tx domain.StoredTransaction) error {
	return s.client.Create(ctx, ledger.RowValues(tx))
}

// FindByAmount returns all rows whose amount column exactly equals amount.
func (s *Store) FindByAmount(ctx context.Context, amount float64) ([]ledger.Record, error) {
	rows, err := s.client.FindAll(ctx, map[string]interface{}{
		ledger.ColumnAmount: amount,
	})
	if err != nil {
		return nil, err
	}

	records := make([]ledger.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, ledger.Record(row))
	}
	return records, nil
}

// List returns every row in the sheet. Sheet order is append order, so
// callers that want newest-first reverse it themselves.
func (s *Store) List(ctx context.Context) ([]ledger.Record, error) {
	rows, err := s.client.FindAll(ctx, map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	records := make([]ledger.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, ledger.Record(row))
	}
	return records, nil
}

// Update rewrites matching rows with newValues.
func (s *Store) Update(ctx context.Context, where, newValues map[string]interface{}) error {
	return s.client.Update(ctx, where, newValues)
}

var _ ledger.TransactionStore = (*Store)(nil)
var _ ledger.TransactionLister = (*Store)(nil)
