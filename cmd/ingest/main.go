package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/sms-ledger/internal/classify"
	"github.com/dvloznov/sms-ledger/internal/config"
	"github.com/dvloznov/sms-ledger/internal/domain"
	infraBQ "github.com/dvloznov/sms-ledger/internal/infra/bigquery"
	"github.com/dvloznov/sms-ledger/internal/infra/xlsdb"
	"github.com/dvloznov/sms-ledger/internal/ledger"
	"github.com/dvloznov/sms-ledger/internal/logger"
	"github.com/dvloznov/sms-ledger/internal/pipeline"
)

func main() {
	log := logger.New()

	sms := flag.String("sms", "", "SMS text to run through the pipeline (required)")
	from := flag.String("from", "", "Sender ID of the message")
	flag.Parse()

	if *sms == "" {
		log.Fatal().Msg("Error: --sms is required")
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
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ctx = logger.WithContext(ctx, log)

	var store ledger.TransactionStore
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

	classifier := classify.NewGeminiClassifier(classify.DefaultModelName, cfg.ClassifyTimeout)
	processor := pipeline.NewProcessor(classifier, store, cfg.DedupeWindow)

	log.Info().Str("from", *from).Msg("Starting ingestion")

	result, err := processor.Process(ctx, domain.IncomingMessage{SMS: *sms, From: *from})
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	fmt.Printf("Ingestion completed: %s\n", result.Outcome)
}
