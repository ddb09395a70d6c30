package notionsync

import (
	"fmt"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/sms-ledger/internal/ledger"
)

// referenceProperty is the Notion rich-text property that carries the row
// fingerprint. It is what makes repeated syncs idempotent.
const referenceProperty = "Reference"

// RecordFingerprint derives a stable identity for a stored row. The ledger
// backends assign no row IDs, so the timestamp, amount and vendor together
// stand in for one.
func RecordFingerprint(r ledger.Record) string {
	amount, _ := ledger.RecordAmount(r)
	ts := ""
	if t, ok := ledger.RecordTime(r); ok {
		ts = t.UTC().Format(time.RFC3339)
	}
	vendor, _ := r[ledger.ColumnVendor].(string)
	return fmt.Sprintf("%s|%.2f|%s", ts, amount, strings.ToLower(vendor))
}

// RecordToNotionProperties converts a stored ledger row to Notion properties.
func RecordToNotionProperties(r ledger.Record) notionapi.Properties {
	vendor, _ := r[ledger.ColumnVendor].(string)
	if vendor == "" {
		vendor = "Unknown vendor"
	}

	props := notionapi.Properties{
		"Vendor": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: vendor,
					},
				},
			},
		},
		referenceProperty: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: RecordFingerprint(r),
					},
				},
			},
		},
	}

	if amount, ok := ledger.RecordAmount(r); ok {
		props["Amount"] = notionapi.NumberProperty{
			Number: amount,
		}
	}

	if category, _ := r[ledger.ColumnCategory].(string); category != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: category,
			},
		}
	}

	if currency, _ := r[ledger.ColumnCurrency].(string); currency != "" {
		props["Currency"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: currency,
			},
		}
	}

	if txType, _ := r[ledger.ColumnTransactionType].(string); txType != "" {
		props["Type"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: txType,
			},
		}
	}

	if t, ok := ledger.RecordTime(r); ok {
		d := notionapi.Date(t)
		props["Date"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &d,
			},
		}
	}

	if confidence, ok := recordConfidence(r); ok {
		props["Confidence"] = notionapi.NumberProperty{
			Number: confidence,
		}
	}

	return props
}

func recordConfidence(r ledger.Record) (float64, bool) {
	switch v := r[ledger.ColumnConfidence].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
