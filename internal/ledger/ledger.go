// Package ledger defines the storage contract shared by the tabular-store
// backends. All durable state lives behind TransactionStore; the pipeline
// holds no state of its own.
package ledger

import (
	"context"
	"time"

	"github.com/dvloznov/sms-ledger/internal/domain"
)

// Column names of the transactions table. Both backends use the same
// application-level schema.
const (
	ColumnAmount          = "amount"
	ColumnVendor          = "vendor"
	ColumnCategory        = "category"
	ColumnDateTime        = "dateTime"
	ColumnCurrency        = "currency"
	ColumnTransactionType = "transactionType"
	ColumnConfidence      = "confidence"
	// ColumnTimestamp is a legacy column written by earlier sheet layouts;
	// it is read as a fallback when dateTime is absent.
	ColumnTimestamp = "timestamp"
)

// Record is one stored row as returned by a backend: column name to scalar.
// Kept generic because the sheet-backed store has no fixed schema.
type Record map[string]interface{}

// TransactionStore is the contract every ledger backend satisfies. No
// implementation retries; callers decide what a failure means (the duplicate
// guard fails open, the create path fails closed).
type TransactionStore interface {
	// Create appends one transaction row.
	Create(ctx context.Context, tx domain.StoredTransaction) error

	// FindByAmount returns all stored rows whose amount column exactly
	// equals amount.
	FindByAmount(ctx context.Context, amount float64) ([]Record, error)

	// Update rewrites matching rows with newValues. Exposed for external
	// callers; the ingestion pipeline itself never updates rows.
	Update(ctx context.Context, where, newValues map[string]interface{}) error
}

// TransactionLister is implemented by backends that can enumerate stored
// rows. Used by the read API and the Notion export, not by ingestion.
type TransactionLister interface {
	// List returns stored rows, newest first where the backend can order.
	List(ctx context.Context) ([]Record, error)
}

// RowValues maps a StoredTransaction to the column values written on create.
func RowValues(tx domain.StoredTransaction) map[string]interface{} {
	return map[string]interface{}{
		ColumnAmount:          tx.Amount,
		ColumnVendor:          tx.Vendor,
		ColumnCategory:        tx.Category,
		ColumnDateTime:        tx.DateTime,
		ColumnCurrency:        tx.Currency,
		ColumnTransactionType: tx.TransactionType,
		ColumnConfidence:      tx.Confidence,
	}
}

// timeLayouts are the formats stored timestamps have appeared in across sheet
// revisions. RFC3339 is what the pipeline writes today.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// RecordTime extracts the stored timestamp of a row, checking the primary
// dateTime column and falling back to the legacy timestamp column. The second
// return value is false when neither column parses.
func RecordTime(r Record) (time.Time, bool) {
	for _, col := range []string{ColumnDateTime, ColumnTimestamp} {
		s, ok := r[col].(string)
		if !ok || s == "" {
			continue
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// RecordAmount extracts the numeric amount of a row. Sheet cells may come
// back as JSON numbers or numeric strings.
func RecordAmount(r Record) (float64, bool) {
	switch v := r[ColumnAmount].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
