// Package pipeline is the transaction extraction and deduplication pipeline.
// One Process call takes an inbound SMS through timestamp derivation,
// classification, normalization, duplicate check and the persistence
// decision, terminating in exactly one of three states: discarded,
// duplicate-skipped or persisted.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/sms-ledger/internal/classify"
	"github.com/dvloznov/sms-ledger/internal/domain"
	"github.com/dvloznov/sms-ledger/internal/ledger"
	"github.com/dvloznov/sms-ledger/internal/logger"
)

// displayTimeLayout is the human-readable form of the resolved timestamp.
const displayTimeLayout = "02/01/2006, 15:04:05"

// Processor sequences the pipeline for one message. All collaborators are
// injected so tests can substitute fakes; the processor itself holds no
// mutable state and is safe for concurrent use.
type Processor struct {
	classifier classify.Classifier
	guard      *DuplicateGuard
	store      ledger.TransactionStore
	now        func() time.Time
}

// NewProcessor wires a processor from its collaborators. A non-positive
// window uses the default duplicate window.
func NewProcessor(classifier classify.Classifier, store ledger.TransactionStore, window time.Duration) *Processor {
	return &Processor{
		classifier: classifier,
		guard:      NewDuplicateGuard(store, window),
		store:      store,
		now:        time.Now,
	}
}

// Process runs one message through the pipeline. The returned result is
// populated for every terminal state; the error is non-nil only when an
// eligible, non-duplicate transaction failed to persist — the single point
// where failure is fatal to the request.
func (p *Processor) Process(ctx context.Context, msg domain.IncomingMessage) (*domain.ProcessingResult, error) {
	log := logger.FromContext(ctx)

	timestamp := p.resolveTimestamp(msg)

	log.Info().
		Str("sender", msg.Sender()).
		Int("message_length", len(msg.SMS)).
		Time("timestamp", timestamp).
		Msg("SMS received")

	result := &domain.ProcessingResult{
		OriginalSMS:        msg.SMS,
		Sender:             msg.Sender(),
		Timestamp:          timestamp.Format(time.RFC3339),
		FormattedTimestamp: timestamp.Format(displayTimeLayout),
		MessageLength:      len(msg.SMS),
	}

	data := normalizeTransaction(p.classifier.Classify(ctx, msg.SMS, msg.Sender()))
	result.Transaction = data

	if !data.IsTransaction || data.Confidence <= ConfidenceThreshold {
		log.Debug().
			Bool("is_transaction", data.IsTransaction).
			Float64("confidence", data.Confidence).
			Msg("Message discarded")
		result.Outcome = domain.OutcomeDiscarded
		return result, nil
	}

	logTransaction(log, data)

	if p.guard.IsDuplicate(ctx, data) {
		log.Info().Msg("Skipping duplicate transaction")
		result.Outcome = domain.OutcomeDuplicateSkipped
		return result, nil
	}

	if err := p.store.Create(ctx, toStoredTransaction(data, result.Timestamp)); err != nil {
		return nil, fmt.Errorf("pipeline: persisting transaction: %w", err)
	}

	log.Info().Msg("Transaction persisted")
	result.Outcome = domain.OutcomePersisted
	return result, nil
}

// resolveTimestamp derives the processing timestamp from the optional
// origination epoch field, else the current time.
func (p *Processor) resolveTimestamp(msg domain.IncomingMessage) time.Time {
	if msg.When != nil {
		return time.UnixMilli(int64(*msg.When))
	}
	return p.now()
}

func logTransaction(log zerolog.Logger, data domain.TransactionData) {
	ev := log.Info().Float64("confidence", data.Confidence)
	if data.Amount != nil {
		ev = ev.Float64("amount", *data.Amount)
	}
	if data.Vendor != nil {
		ev = ev.Str("vendor", *data.Vendor)
	}
	if data.Category != nil {
		ev = ev.Str("category", *data.Category)
	}
	if data.TransactionType != nil {
		ev = ev.Str("type", string(*data.TransactionType))
	}
	ev.Msg("Transaction detected")
}
