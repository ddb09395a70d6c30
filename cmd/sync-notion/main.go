package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/sms-ledger/internal/config"
	infraBQ "github.com/dvloznov/sms-ledger/internal/infra/bigquery"
	"github.com/dvloznov/sms-ledger/internal/infra/xlsdb"
	"github.com/dvloznov/sms-ledger/internal/ledger"
	"github.com/dvloznov/sms-ledger/internal/logger"
	"github.com/dvloznov/sms-ledger/internal/notionsync"
)

func main() {
	log := logger.New()

	notionToken := flag.String("notion-token", "", "Notion API token (required)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (required)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	cfg, err := config.Load()
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			log.Fatal().Strs("missing", verr.Missing).Msg("Configuration incomplete")
		}
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("backend", cfg.LedgerBackend).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	var store ledger.TransactionLister
	switch cfg.LedgerBackend {
	case config.BackendBigQuery:
		bqStore, err := infraBQ.NewStore(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.DatasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		defer bqStore.Close()
		store = bqStore
	default:
		store = xlsdb.NewStore(xlsdb.NewClient(xlsdb.Options{
			BaseURL:     cfg.XlsDB.BaseURL,
			SheetID:     cfg.XlsDB.SheetID,
			SheetName:   cfg.XlsDB.SheetName,
			ClientEmail: cfg.XlsDB.ClientEmail,
			PrivateKey:  cfg.XlsDB.PrivateKey,
		}))
	}

	notionClient := notionsync.NewNotionClient(*notionToken)

	if err := notionsync.SyncTransactions(ctx, store, notionClient, *notionDBID, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}
