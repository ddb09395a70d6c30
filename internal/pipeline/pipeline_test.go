package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/sms-ledger/internal/domain"
	"github.com/dvloznov/sms-ledger/internal/ledger"
)

// mockClassifier is a mock implementation of classify.Classifier.
type mockClassifier struct {
	ClassifyFunc func(ctx context.Context, smsText, sender string) domain.TransactionData
	calls        int
}

func (m *mockClassifier) Classify(ctx context.Context, smsText, sender string) domain.TransactionData {
	m.calls++
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, smsText, sender)
	}
	return domain.NotATransaction()
}

// mockStore is a mock implementation of ledger.TransactionStore.
type mockStore struct {
	CreateFunc       func(ctx context.Context, tx domain.StoredTransaction) error
	FindByAmountFunc func(ctx context.Context, amount float64) ([]ledger.Record, error)
	UpdateFunc       func(ctx context.Context, where, newValues map[string]interface{}) error

	created []domain.StoredTransaction
}

func (m *mockStore) Create(ctx context.Context, tx domain.StoredTransaction) error {
	m.created = append(m.created, tx)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx)
	}
	return nil
}

func (m *mockStore) FindByAmount(ctx context.Context, amount float64) ([]ledger.Record, error) {
	if m.FindByAmountFunc != nil {
		return m.FindByAmountFunc(ctx, amount)
	}
	return nil, nil
}

func (m *mockStore) Update(ctx context.Context, where, newValues map[string]interface{}) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, where, newValues)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func confirmedDebit(amount float64, confidence float64) domain.TransactionData {
	tt := domain.TypeDebit
	return domain.TransactionData{
		IsTransaction:   true,
		Amount:          &amount,
		Vendor:          ptr("Bistro"),
		Category:        ptr("food"),
		Currency:        ptr("INR"),
		TransactionType: &tt,
		Confidence:      confidence,
	}
}

func TestProcess_NonTransactionNotPersisted(t *testing.T) {
	store := &mockStore{}
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, smsText, sender string) domain.TransactionData {
			return domain.TransactionData{IsTransaction: false, Confidence: 0.9}
		},
	}
	p := NewProcessor(classifier, store, time.Minute)

	result, err := p.Process(context.Background(), domain.IncomingMessage{SMS: "Get 50% off today!"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Outcome != domain.OutcomeDiscarded {
		t.Errorf("Outcome = %q, want discarded", result.Outcome)
	}
	if len(store.created) != 0 {
		t.Errorf("Create called %d times, want 0", len(store.created))
	}
}

func TestProcess_LowConfidenceNotPersisted(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		persisted  bool
	}{
		{"well below threshold", 0.2, false},
		{"exactly at threshold", 0.5, false},
		{"just above threshold", 0.51, true},
		{"high confidence", 0.95, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			classifier := &mockClassifier{
				ClassifyFunc: func(ctx context.Context, smsText, sender string) domain.TransactionData {
					return confirmedDebit(153.00, tt.confidence)
				},
			}
			p := NewProcessor(classifier, store, time.Minute)

			result, err := p.Process(context.Background(), domain.IncomingMessage{SMS: "Rs 153.00 debited at Bistro"})
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}

			if tt.persisted {
				if result.Outcome != domain.OutcomePersisted {
					t.Errorf("Outcome = %q, want persisted", result.Outcome)
				}
				if len(store.created) != 1 {
					t.Errorf("Create called %d times, want 1", len(store.created))
				}
			} else {
				if result.Outcome != domain.OutcomeDiscarded {
					t.Errorf("Outcome = %q, want discarded", result.Outcome)
				}
				if len(store.created) != 0 {
					t.Errorf("Create called %d times, want 0", len(store.created))
				}
			}
		})
	}
}

func TestProcess_RoundTripPersistedRecord(t *testing.T) {
	store := &mockStore{}
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, smsText, sender string) domain.TransactionData {
			return confirmedDebit(153.00, 0.95)
		},
	}
	p := NewProcessor(classifier, store, time.Minute)
	fixed := time.Date(2025, 8, 27, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	result, err := p.Process(context.Background(), domain.IncomingMessage{SMS: "INR 153.00 spent at Bistro", From: "HDFCBK"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("Create called %d times, want exactly 1", len(store.created))
	}
	tx := store.created[0]
	if tx.Amount != 153.00 || tx.Vendor != "Bistro" || tx.Category != "food" ||
		tx.Currency != "INR" || tx.TransactionType != "debit" || tx.Confidence != 0.95 {
		t.Errorf("stored transaction = %+v", tx)
	}
	if tx.DateTime != result.Timestamp {
		t.Errorf("stored dateTime = %q, want resolved timestamp %q", tx.DateTime, result.Timestamp)
	}
	if result.Timestamp != fixed.Format(time.RFC3339) {
		t.Errorf("Timestamp = %q, want %q", result.Timestamp, fixed.Format(time.RFC3339))
	}
	if result.Sender != "HDFCBK" {
		t.Errorf("Sender = %q, want HDFCBK", result.Sender)
	}
	if result.MessageLength != len("INR 153.00 spent at Bistro") {
		t.Errorf("MessageLength = %d", result.MessageLength)
	}
}

func TestProcess_DuplicateSkipped(t *testing.T) {
	store := &mockStore{
		FindByAmountFunc: func(ctx context.Context, amount float64) ([]ledger.Record, error) {
			return []ledger.Record{
				{ledger.ColumnAmount: amount, ledger.ColumnDateTime: time.Now().Add(-10 * time.Second).Format(time.RFC3339)},
			}, nil
		},
	}
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, smsText, sender string) domain.TransactionData {
			return confirmedDebit(153.00, 0.95)
		},
	}
	p := NewProcessor(classifier, store, time.Minute)

	result, err := p.Process(context.Background(), domain.IncomingMessage{SMS: "Rs 153.00 debited at Bistro"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Outcome != domain.OutcomeDuplicateSkipped {
		t.Errorf("Outcome = %q, want duplicate_skipped", result.Outcome)
	}
	if len(store.created) != 0 {
		t.Errorf("Create called %d times, want 0", len(store.created))
	}
}

func TestProcess_PersistFailureSurfaced(t *testing.T) {
	storeErr := errors.New("store unreachable")
	store := &mockStore{
		CreateFunc: func(ctx context.Context, tx domain.StoredTransaction) error {
			return storeErr
		},
	}
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, smsText, sender string) domain.TransactionData {
			return confirmedDebit(153.00, 0.95)
		},
	}
	p := NewProcessor(classifier, store, time.Minute)

	_, err := p.Process(context.Background(), domain.IncomingMessage{SMS: "Rs 153.00 debited at Bistro"})
	if !errors.Is(err, storeErr) {
		t.Errorf("Process() error = %v, want wrapped store error", err)
	}
}

func TestProcess_OriginationTimestampUsed(t *testing.T) {
	classifier := &mockClassifier{}
	p := NewProcessor(classifier, &mockStore{}, time.Minute)

	when := domain.EpochMill(1756296000000) // 2025-08-27T12:00:00Z
	result, err := p.Process(context.Background(), domain.IncomingMessage{SMS: "hello", When: &when})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	want := time.UnixMilli(1756296000000).Format(time.RFC3339)
	if result.Timestamp != want {
		t.Errorf("Timestamp = %q, want %q", result.Timestamp, want)
	}
}

func TestProcess_DefaultSender(t *testing.T) {
	p := NewProcessor(&mockClassifier{}, &mockStore{}, time.Minute)

	result, err := p.Process(context.Background(), domain.IncomingMessage{SMS: "hello"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Sender != domain.UnknownSender {
		t.Errorf("Sender = %q, want %q", result.Sender, domain.UnknownSender)
	}
}

func TestProcess_ClassifierFailClosedStillAcknowledged(t *testing.T) {
	// The gateway collapses failures to NotATransaction; the pipeline must
	// return a discarded result without touching the store.
	store := &mockStore{}
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, smsText, sender string) domain.TransactionData {
			return domain.NotATransaction()
		},
	}
	p := NewProcessor(classifier, store, time.Minute)

	result, err := p.Process(context.Background(), domain.IncomingMessage{SMS: "Rs 500 debited"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Outcome != domain.OutcomeDiscarded {
		t.Errorf("Outcome = %q, want discarded", result.Outcome)
	}
	if result.Transaction.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0", result.Transaction.Confidence)
	}
	if len(store.created) != 0 {
		t.Errorf("Create called %d times, want 0", len(store.created))
	}
}
