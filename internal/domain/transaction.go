package domain

// TransactionType distinguishes money leaving the account from money arriving.
type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
)

// Categories is the fixed set of tags the classifier is allowed to assign.
// Anything outside this set is treated as unknown and dropped during
// normalization.
var Categories = []string{
	"food",
	"transport",
	"shopping",
	"utilities",
	"entertainment",
	"healthcare",
	"other",
}

// ValidCategory reports whether s is one of the allowed category tags.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if c == s {
			return true
		}
	}
	return false
}

// TransactionData is the canonical record extracted from one SMS message.
// It is produced once by the classification gateway and never mutated
// afterwards. When IsTransaction is false every optional field must be nil;
// the normalizer enforces this.
type TransactionData struct {
	IsTransaction   bool             `json:"isTransaction"`
	Amount          *float64         `json:"amount,omitempty"`
	Vendor          *string          `json:"vendor,omitempty"`
	Category        *string          `json:"category,omitempty"`
	DateTime        *string          `json:"dateTime,omitempty"`
	Currency        *string          `json:"currency,omitempty"`
	TransactionType *TransactionType `json:"transactionType,omitempty"`
	Confidence      float64          `json:"confidence"`
}

// NotATransaction is the fail-closed result: any classification failure
// collapses to this value so that an unparseable response can never produce
// a stored transaction.
func NotATransaction() TransactionData {
	return TransactionData{IsTransaction: false, Confidence: 0.0}
}

// StoredTransaction is one row of the external ledger. The pipeline writes it
// once and never mutates it; updates happen only through the explicit update
// operation exposed to external callers.
type StoredTransaction struct {
	Amount          float64
	Vendor          string
	Category        string
	DateTime        string // RFC3339, the resolved processing timestamp
	Currency        string
	TransactionType string
	Confidence      float64
}
