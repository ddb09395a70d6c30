// Package classify is the gateway to the external classification capability.
// It builds a deterministic prompt from the message text and sender, invokes
// Gemini, and parses the response into a structured result. The contract is
// fail-closed: the gateway never returns an error, it returns a
// not-a-transaction result with zero confidence instead, so an unreachable or
// misbehaving model can never produce a spurious stored transaction.
package classify

import (
	"context"
	"time"

	"google.golang.org/genai"

	"github.com/dvloznov/sms-ledger/internal/domain"
	"github.com/dvloznov/sms-ledger/internal/logger"
)

// Classifier turns one SMS message into a transaction judgment.
type Classifier interface {
	Classify(ctx context.Context, smsText, sender string) domain.TransactionData
}

// GeminiClassifier is the concrete Classifier backed by the Gemini API.
type GeminiClassifier struct {
	model   string
	timeout time.Duration
}

// NewGeminiClassifier creates a classifier using the given model name (empty
// means DefaultModelName) and per-call timeout (zero means no extra bound).
// The genai client reads its API key from the environment.
func NewGeminiClassifier(model string, timeout time.Duration) *GeminiClassifier {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiClassifier{model: model, timeout: timeout}
}

// Classify implements the Classifier interface. Transport failures, malformed
// JSON and missing required fields all collapse to the fail-closed result and
// are logged, never propagated.
func (c *GeminiClassifier) Classify(ctx context.Context, smsText, sender string) domain.TransactionData {
	log := logger.FromContext(ctx)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.generate(ctx, buildTransactionPrompt(smsText, sender))
	if err != nil {
		log.Error().Err(err).Str("sms_preview", preview(smsText)).Msg("Classification call failed")
		return domain.NotATransaction()
	}

	log.Debug().Int("response_length", len(raw)).Msg("Classifier response received")

	data, err := parseModelResponse(raw)
	if err != nil {
		log.Error().Err(err).Str("sms_preview", preview(smsText)).Msg("Classifier response unparseable")
		return domain.NotATransaction()
	}

	return data
}

func (c *GeminiClassifier) generate(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", err
	}

	return resp.Text(), nil
}

func preview(sms string) string {
	const n = 50
	if len(sms) <= n {
		return sms
	}
	return sms[:n] + "..."
}
