package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

const transactionsTable = "transactions"

// TransactionRow is one row of the sms_ledger.transactions table.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	Amount          float64             `bigquery:"amount"`           // REQUIRED FLOAT64
	Vendor          bigquery.NullString `bigquery:"vendor"`           // NULLABLE
	Category        bigquery.NullString `bigquery:"category"`         // NULLABLE
	DateTime        time.Time           `bigquery:"date_time"`        // REQUIRED TIMESTAMP
	MessageDate     civil.Date          `bigquery:"message_date"`     // REQUIRED DATE (derived from date_time)
	Currency        bigquery.NullString `bigquery:"currency"`         // NULLABLE
	TransactionType bigquery.NullString `bigquery:"transaction_type"` // NULLABLE
	Confidence      float64             `bigquery:"confidence"`       // REQUIRED FLOAT64

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED (default CURRENT_TIMESTAMP)
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
