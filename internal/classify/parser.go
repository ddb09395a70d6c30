package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/sms-ledger/internal/domain"
)

// parseModelResponse turns the raw model text into TransactionData. The model
// is instructed to return bare JSON but routinely wraps it in Markdown fences
// anyway, so the text is cleaned before unmarshalling. Any structural problem
// is an error; the caller decides what failure means.
func parseModelResponse(raw string) (domain.TransactionData, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return domain.TransactionData{}, fmt.Errorf("parseModelResponse: empty response")
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return domain.TransactionData{}, fmt.Errorf("parseModelResponse: unmarshal JSON: %w", err)
	}

	isTx, ok := obj["isTransaction"].(bool)
	if !ok {
		return domain.TransactionData{}, fmt.Errorf("parseModelResponse: missing or non-boolean \"isTransaction\"")
	}

	confidence, err := getFloat64Field(obj, "confidence", true)
	if err != nil {
		return domain.TransactionData{}, fmt.Errorf("parseModelResponse: %w", err)
	}
	if confidence < 0 || confidence > 1 {
		return domain.TransactionData{}, fmt.Errorf("parseModelResponse: confidence %v outside [0,1]", confidence)
	}

	result := domain.TransactionData{
		IsTransaction: isTx,
		Confidence:    confidence,
	}

	if result.Amount, err = getOptionalFloat64Field(obj, "amount"); err != nil {
		return domain.TransactionData{}, fmt.Errorf("parseModelResponse: %w", err)
	}
	if result.Vendor, err = getOptionalStringField(obj, "vendor"); err != nil {
		return domain.TransactionData{}, fmt.Errorf("parseModelResponse: %w", err)
	}
	if result.Category, err = getOptionalStringField(obj, "category"); err != nil {
		return domain.TransactionData{}, fmt.Errorf("parseModelResponse: %w", err)
	}
	if result.DateTime, err = getOptionalStringField(obj, "dateTime"); err != nil {
		return domain.TransactionData{}, fmt.Errorf("parseModelResponse: %w", err)
	}
	if result.Currency, err = getOptionalStringField(obj, "currency"); err != nil {
		return domain.TransactionData{}, fmt.Errorf("parseModelResponse: %w", err)
	}

	txType, err := getOptionalStringField(obj, "transactionType")
	if err != nil {
		return domain.TransactionData{}, fmt.Errorf("parseModelResponse: %w", err)
	}
	if txType != nil {
		tt := domain.TransactionType(strings.ToLower(*txType))
		if tt == domain.TypeDebit || tt == domain.TypeCredit {
			result.TransactionType = &tt
		}
	}

	return result, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk from a model
// response, keeping only the first top-level JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Extra safety: if there's still junk around the JSON object,
	// keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}

	return s
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" || strings.EqualFold(s, "null") {
			return nil, nil
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

func getFloat64Field(m map[string]interface{}, key string, required bool) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return 0, fmt.Errorf("missing required field %q", key)
		}
		return 0, nil
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int: // unlikely from encoding/json, but harmless to support
		return float64(val), nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}

func getOptionalFloat64Field(m map[string]interface{}, key string) (*float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case float64:
		f := val
		return &f, nil
	case int:
		f := float64(val)
		return &f, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want number or null", key, v)
	}
}
