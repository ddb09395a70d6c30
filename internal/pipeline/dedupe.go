package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/sms-ledger/internal/domain"
	"github.com/dvloznov/sms-ledger/internal/ledger"
	"github.com/dvloznov/sms-ledger/internal/logger"
)

// DuplicateGuard decides whether a candidate transaction is a re-report of
// one already stored. Bank notifications are sometimes delivered twice
// (retries, dual-SIM relays, carrier duplication) within a short interval;
// exact-amount plus a tight time window is a cheap, explainable heuristic,
// since vendor and category text can vary slightly between deliveries.
type DuplicateGuard struct {
	store  ledger.TransactionStore
	window time.Duration
	now    func() time.Time
}

// NewDuplicateGuard creates a guard over the given store. A non-positive
// window falls back to DefaultDedupeWindow.
func NewDuplicateGuard(store ledger.TransactionStore, window time.Duration) *DuplicateGuard {
	if window <= 0 {
		window = DefaultDedupeWindow
	}
	return &DuplicateGuard{store: store, window: window, now: time.Now}
}

// IsDuplicate reports whether candidate matches a stored transaction with the
// same amount inside the window. A candidate without an amount is never a
// duplicate, and a failed lookup counts as no match: availability of the
// ingestion path is prioritized over duplicate suppression.
func (g *DuplicateGuard) IsDuplicate(ctx context.Context, candidate domain.TransactionData) bool {
	log := logger.FromContext(ctx)

	if candidate.Amount == nil {
		return false
	}

	now := g.now()
	windowStart := now.Add(-g.window)

	records, err := g.store.FindByAmount(ctx, *candidate.Amount)
	if err != nil {
		log.Error().Err(err).Float64("amount", *candidate.Amount).
			Msg("Duplicate lookup failed, treating as not duplicate")
		return false
	}

	for _, record := range records {
		stored, ok := ledger.RecordTime(record)
		if !ok {
			continue
		}
		// Window bounds are inclusive.
		if !stored.Before(windowStart) && !stored.After(now) {
			log.Info().
				Float64("amount", *candidate.Amount).
				Time("stored_at", stored).
				Dur("window", g.window).
				Msg("Duplicate transaction detected")
			return true
		}
	}

	return false
}
