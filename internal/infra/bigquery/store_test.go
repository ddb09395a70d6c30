package bigquery

import (
	"testing"
	"time"

	"github.com/dvloznov/sms-ledger/internal/ledger"
)

func TestNullString(t *testing.T) {
	if got := nullString("debit"); !got.Valid || got.StringVal != "debit" {
		t.Errorf("nullString(debit) = %+v, want valid", got)
	}
	if got := nullString(""); got.Valid {
		t.Errorf("nullString(\"\") = %+v, want invalid", got)
	}
}

func TestRowToRecord(t *testing.T) {
	dt := time.Date(2025, 8, 27, 12, 0, 0, 0, time.UTC)
	row := &TransactionRow{
		Amount:          153.00,
		Vendor:          nullString("Bistro"),
		Category:        nullString("food"),
		DateTime:        dt,
		Currency:        nullString("INR"),
		TransactionType: nullString("debit"),
		Confidence:      0.95,
	}

	rec := rowToRecord(row)

	if rec[ledger.ColumnAmount] != 153.00 {
		t.Errorf("amount = %v, want 153.00", rec[ledger.ColumnAmount])
	}
	if rec[ledger.ColumnVendor] != "Bistro" {
		t.Errorf("vendor = %v, want Bistro", rec[ledger.ColumnVendor])
	}
	if rec[ledger.ColumnDateTime] != "2025-08-27T12:00:00Z" {
		t.Errorf("dateTime = %v, want RFC3339", rec[ledger.ColumnDateTime])
	}

	// The record must round-trip through the shared ledger helpers
	if got, ok := ledger.RecordTime(rec); !ok || !got.Equal(dt) {
		t.Errorf("RecordTime() = %v, %v", got, ok)
	}
	if got, ok := ledger.RecordAmount(rec); !ok || got != 153.00 {
		t.Errorf("RecordAmount() = %v, %v", got, ok)
	}
}

func TestSortedKeys(t *testing.T) {
	m := map[string]interface{}{"vendor": 1, "amount": 2, "category": 3}
	got := sortedKeys(m)
	want := []string{"amount", "category", "vendor"}
	if len(got) != len(want) {
		t.Fatalf("sortedKeys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sortedKeys() = %v, want %v", got, want)
		}
	}
}

func TestUpdateRejectsUnknownColumn(t *testing.T) {
	s := &Store{}
	err := s.Update(t.Context(), map[string]interface{}{"amount": 1.0}, map[string]interface{}{"evil; DROP": "x"})
	if err == nil {
		t.Fatal("expected error for unknown column")
	}
}
