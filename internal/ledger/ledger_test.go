package ledger

import (
	"testing"
	"time"

	"github.com/dvloznov/sms-ledger/internal/domain"
)

func TestRowValues(t *testing.T) {
	tx := domain.StoredTransaction{
		Amount:          153.00,
		Vendor:          "Bistro",
		Category:        "food",
		DateTime:        "2025-08-27T12:00:00Z",
		Currency:        "INR",
		TransactionType: "debit",
		Confidence:      0.95,
	}

	values := RowValues(tx)

	if values[ColumnAmount] != 153.00 {
		t.Errorf("amount = %v, want 153.00", values[ColumnAmount])
	}
	if values[ColumnVendor] != "Bistro" {
		t.Errorf("vendor = %v, want Bistro", values[ColumnVendor])
	}
	if values[ColumnDateTime] != "2025-08-27T12:00:00Z" {
		t.Errorf("dateTime = %v", values[ColumnDateTime])
	}
	if len(values) != 7 {
		t.Errorf("len(values) = %d, want 7", len(values))
	}
}

func TestRecordTime(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   time.Time
		wantOK bool
	}{
		{
			name:   "rfc3339 dateTime",
			record: Record{ColumnDateTime: "2025-08-27T12:00:00Z"},
			want:   time.Date(2025, 8, 27, 12, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "fallback timestamp column",
			record: Record{ColumnTimestamp: "2025-08-27T12:00:00Z"},
			want:   time.Date(2025, 8, 27, 12, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "dateTime wins over timestamp",
			record: Record{ColumnDateTime: "2025-08-27T12:00:00Z", ColumnTimestamp: "2020-01-01T00:00:00Z"},
			want:   time.Date(2025, 8, 27, 12, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "legacy space-separated layout",
			record: Record{ColumnDateTime: "2025-08-27 12:00:00"},
			want:   time.Date(2025, 8, 27, 12, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "unparseable dateTime falls back",
			record: Record{ColumnDateTime: "yesterday", ColumnTimestamp: "2025-08-27T12:00:00Z"},
			want:   time.Date(2025, 8, 27, 12, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "no timestamp at all",
			record: Record{ColumnAmount: 10.0},
			wantOK: false,
		},
		{
			name:   "non-string value",
			record: Record{ColumnDateTime: 1693382400000.0},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RecordTime(tt.record)
			if ok != tt.wantOK {
				t.Fatalf("RecordTime() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("RecordTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordAmount(t *testing.T) {
	if v, ok := RecordAmount(Record{ColumnAmount: 42.5}); !ok || v != 42.5 {
		t.Errorf("RecordAmount(float) = %v, %v", v, ok)
	}
	if _, ok := RecordAmount(Record{ColumnAmount: "42.5"}); ok {
		t.Error("RecordAmount(string) should not parse")
	}
	if _, ok := RecordAmount(Record{}); ok {
		t.Error("RecordAmount(missing) should not parse")
	}
}
