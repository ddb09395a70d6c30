package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/sms-ledger/internal/api/handlers"
	"github.com/dvloznov/sms-ledger/internal/api/middleware"
	"github.com/dvloznov/sms-ledger/internal/classify"
	"github.com/dvloznov/sms-ledger/internal/config"
	infraBQ "github.com/dvloznov/sms-ledger/internal/infra/bigquery"
	"github.com/dvloznov/sms-ledger/internal/infra/xlsdb"
	"github.com/dvloznov/sms-ledger/internal/jobs"
	"github.com/dvloznov/sms-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/sms-ledger/internal/ledger"
	"github.com/dvloznov/sms-ledger/internal/logger"
	"github.com/dvloznov/sms-ledger/internal/pipeline"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			log.Fatal().Strs("missing", verr.Missing).Msg("Configuration incomplete")
		}
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set - classification calls will fail closed")
	}

	ctx := context.Background()

	// Select the ledger backend
	var store ledger.TransactionStore
	var lister ledger.TransactionLister
	switch cfg.LedgerBackend {
	case config.BackendBigQuery:
		bqStore, err := infraBQ.NewStore(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.DatasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		defer bqStore.Close()
		store, lister = bqStore, bqStore
	default:
		xlsStore := xlsdb.NewStore(xlsdb.NewClient(xlsdb.Options{
			BaseURL:     cfg.XlsDB.BaseURL,
			SheetID:     cfg.XlsDB.SheetID,
			SheetName:   cfg.XlsDB.SheetName,
			ClientEmail: cfg.XlsDB.ClientEmail,
			PrivateKey:  cfg.XlsDB.PrivateKey,
		}))
		store, lister = xlsStore, xlsStore
	}

	classifier := classify.NewGeminiClassifier(classify.DefaultModelName, cfg.ClassifyTimeout)
	processor := pipeline.NewProcessor(classifier, store, cfg.DedupeWindow)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()

	async := cfg.ProcessingMode == config.ModeAsync
	if async {
		jobHandler := func(ctx context.Context, job jobs.Job) error {
			msgJob, ok := job.(*jobs.ProcessMessageJob)
			if !ok {
				return fmt.Errorf("unexpected job type: %T", job)
			}

			log.Info().
				Str("job_id", msgJob.JobID).
				Str("message_id", msgJob.MessageID).
				Msg("Processing message job")

			result, err := processor.Process(ctx, msgJob.Message)
			if err != nil {
				log.Error().
					Err(err).
					Str("job_id", msgJob.JobID).
					Str("message_id", msgJob.MessageID).
					Msg("Pipeline execution failed")
				return err
			}

			msgJob.Outcome = result.Outcome
			log.Info().
				Str("job_id", msgJob.JobID).
				Str("message_id", msgJob.MessageID).
				Str("outcome", string(result.Outcome)).
				Msg("Pipeline execution completed")

			return nil
		}

		go func() {
			log.Info().Msg("Starting job worker")
			if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
				log.Error().Err(err).Msg("Job worker stopped with error")
			}
		}()
	}

	// Initialize handlers
	smsHandler := handlers.NewSmsHandler(processor, jobQueue, async, cfg.StrictPersistence, log)
	transactionsHandler := handlers.NewTransactionsHandler(lister, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/sms", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			smsHandler.ReceiveSms(w, r)
		case http.MethodGet:
			smsHandler.Hello(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.ListTransactions(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("backend", cfg.LedgerBackend).
			Str("mode", cfg.ProcessingMode).
			Msg("Starting SMS receiver")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
