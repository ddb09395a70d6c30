package pipeline

import (
	"strings"

	"github.com/dvloznov/sms-ledger/internal/domain"
)

// normalizeTransaction applies the null-default policy uniformly to the
// classifier's output. The gateway already does the structural parsing; this
// step enforces the domain invariants on top of it:
//   - a non-transaction carries nothing but its confidence
//   - amounts must be positive
//   - categories outside the fixed set are dropped, not invented
func normalizeTransaction(data domain.TransactionData) domain.TransactionData {
	if !data.IsTransaction {
		return domain.TransactionData{IsTransaction: false, Confidence: data.Confidence}
	}

	if data.Amount != nil && *data.Amount <= 0 {
		data.Amount = nil
	}

	if data.Category != nil {
		c := strings.ToLower(strings.TrimSpace(*data.Category))
		if domain.ValidCategory(c) {
			data.Category = &c
		} else {
			data.Category = nil
		}
	}

	if data.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*data.Currency))
		if c == "" {
			data.Currency = nil
		} else {
			data.Currency = &c
		}
	}

	return data
}

// toStoredTransaction maps an eligible TransactionData to the ledger row
// shape. The stored dateTime is the resolved processing timestamp, not the
// date string extracted from the message text.
func toStoredTransaction(data domain.TransactionData, timestamp string) domain.StoredTransaction {
	tx := domain.StoredTransaction{
		DateTime:   timestamp,
		Confidence: data.Confidence,
	}
	if data.Amount != nil {
		tx.Amount = *data.Amount
	}
	if data.Vendor != nil {
		tx.Vendor = *data.Vendor
	}
	if data.Category != nil {
		tx.Category = *data.Category
	}
	if data.Currency != nil {
		tx.Currency = *data.Currency
	}
	if data.TransactionType != nil {
		tx.TransactionType = string(*data.TransactionType)
	}
	return tx
}
