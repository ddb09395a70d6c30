package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/sms-ledger/internal/ledger"
	"github.com/dvloznov/sms-ledger/internal/logger"
)

// BatchSize defines the number of transactions to process in a single batch
const BatchSize = 100

// SyncTransactions syncs stored ledger rows to a Notion database. Each row is
// identified by its fingerprint (see RecordFingerprint); rows whose
// fingerprint already exists in Notion are skipped, so repeated runs are
// idempotent. Failures on individual rows are logged and do not abort the
// sync.
func SyncTransactions(ctx context.Context, store ledger.TransactionLister, notionClient NotionService, notionDBID string, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	records, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	log.Info().Int("transaction_count", len(records)).Msg("Retrieved transactions from ledger")

	log.Info().Msg("Querying existing transactions from Notion")
	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	existing := make(map[string]bool)
	for _, page := range notionPages {
		if ref := extractReference(page); ref != "" {
			existing[ref] = true
		}
	}

	var created, skipped int
	for i := 0; i < len(records); i += BatchSize {
		end := i + BatchSize
		if end > len(records) {
			end = len(records)
		}

		batch := records[i:end]
		log.Info().
			Int("batch_start", i).
			Int("batch_end", end).
			Int("batch_size", len(batch)).
			Msg("Processing batch")

		for _, record := range batch {
			ref := RecordFingerprint(record)
			if existing[ref] {
				skipped++
				continue
			}

			if dryRun {
				log.Info().
					Str("reference", ref).
					Msg("[DRY RUN] Would create Notion page")
				created++
				existing[ref] = true
				continue
			}

			props := RecordToNotionProperties(record)

			page, err := notionClient.CreatePage(ctx, notionDBID, props)
			if err != nil {
				log.Warn().
					Err(err).
					Str("reference", ref).
					Msg("Failed to create Notion page")
				continue
			}
			log.Info().
				Str("reference", ref).
				Str("page_id", string(page.ID)).
				Msg("Created Notion page")
			created++

			// Two ledger rows can share a fingerprint; only the first
			// becomes a page
			existing[ref] = true
		}
	}

	log.Info().
		Int("created", created).
		Int("skipped", skipped).
		Int("total", len(records)).
		Msg("Transaction sync completed")

	return nil
}

// queryAllNotionPages queries all pages from a Notion database and returns them.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}

		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

// extractReference extracts the row fingerprint from a Notion page's
// properties. Returns empty string if not found.
func extractReference(page notionapi.Page) string {
	if prop, ok := page.Properties[referenceProperty]; ok {
		if richText, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(richText.RichText) > 0 {
				return richText.RichText[0].PlainText
			}
		}
	}
	return ""
}
