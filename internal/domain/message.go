package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// UnknownSender is used when the upstream forwarder did not include a sender.
const UnknownSender = "Unknown"

// IncomingMessage is one inbound SMS as delivered by an upstream forwarding
// client. It lives only for the duration of a single pipeline invocation.
type IncomingMessage struct {
	SMS  string     `json:"sms"`
	From string     `json:"from,omitempty"`
	When *EpochMill `json:"when,omitempty"`
}

// Sender returns the sender identifier, defaulting to UnknownSender.
func (m IncomingMessage) Sender() string {
	if strings.TrimSpace(m.From) == "" {
		return UnknownSender
	}
	return m.From
}

// EpochMill is an origination timestamp in epoch milliseconds. Forwarding
// apps send it either as a JSON number or as a numeric string, so both forms
// are accepted.
type EpochMill int64

// UnmarshalJSON accepts 1693382400000, "1693382400000" and JSON null.
func (e *EpochMill) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*e = EpochMill(ms)
	return nil
}

// MarshalJSON renders the timestamp back as a JSON number.
func (e EpochMill) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(e))
}

// Outcome is the terminal state the pipeline reached for one message.
type Outcome string

const (
	// OutcomeDiscarded means the message was not a confident transaction.
	OutcomeDiscarded Outcome = "discarded"
	// OutcomeDuplicateSkipped means a matching transaction was already stored.
	OutcomeDuplicateSkipped Outcome = "duplicate_skipped"
	// OutcomePersisted means a new ledger row was created.
	OutcomePersisted Outcome = "persisted"
)

// ProcessingResult is the composed output returned to the caller for one
// message. It is never persisted.
type ProcessingResult struct {
	OriginalSMS        string          `json:"originalSms"`
	Sender             string          `json:"sender"`
	Timestamp          string          `json:"timestamp"`          // RFC3339
	FormattedTimestamp string          `json:"formattedTimestamp"` // human-readable
	MessageLength      int             `json:"messageLength"`
	Transaction        TransactionData `json:"transaction"`
	Outcome            Outcome         `json:"outcome"`
}
