package pipeline

import "time"

const (
	// ConfidenceThreshold is the minimum classifier confidence for a message
	// to reach the ledger. At or below this value the message is discarded.
	ConfidenceThreshold = 0.5

	// DefaultDedupeWindow is how far back a same-amount transaction counts
	// as a re-report of the same notification.
	DefaultDedupeWindow = 60 * time.Second
)
