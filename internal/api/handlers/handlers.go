package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/sms-ledger/internal/api/middleware"
	"github.com/dvloznov/sms-ledger/internal/domain"
	"github.com/dvloznov/sms-ledger/internal/jobs"
	"github.com/dvloznov/sms-ledger/internal/ledger"
)

// invalidSMSMessage is the body echoed to the gateway when the sms field is
// missing or blank. The wording is part of the upstream contract.
const invalidSMSMessage = "Invalid SMS content provided"

// MessageProcessor runs the classification pipeline for one inbound message.
type MessageProcessor interface {
	Process(ctx context.Context, msg domain.IncomingMessage) (*domain.ProcessingResult, error)
}

// SmsHandler handles the SMS ingestion endpoints.
type SmsHandler struct {
	processor MessageProcessor
	publisher jobs.Publisher
	async     bool
	strict    bool
	log       zerolog.Logger
}

// NewSmsHandler creates a new SMS ingestion handler. When async is true,
// inbound messages are enqueued on publisher and acknowledged immediately;
// otherwise the processor runs inline. strict controls whether a persistence
// failure is surfaced to the gateway as a 500 or logged and acknowledged.
func NewSmsHandler(processor MessageProcessor, publisher jobs.Publisher, async, strict bool, log zerolog.Logger) *SmsHandler {
	return &SmsHandler{
		processor: processor,
		publisher: publisher,
		async:     async,
		strict:    strict,
		log:       log,
	}
}

// ReceiveSms handles POST /sms.
func (h *SmsHandler) ReceiveSms(w http.ResponseWriter, r *http.Request) {
	var msg domain.IncomingMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"status":       "error",
			"received_sms": invalidSMSMessage,
		})
		return
	}

	if strings.TrimSpace(msg.SMS) == "" {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"status":       "error",
			"received_sms": invalidSMSMessage,
		})
		return
	}

	smsID := uuid.New().String()

	if h.async {
		job := &jobs.ProcessMessageJob{
			MessageID: smsID,
			Message:   msg,
		}
		if err := h.publisher.PublishProcessMessage(r.Context(), job); err != nil {
			h.log.Error().Err(err).Str("sms_id", smsID).Msg("Failed to enqueue message")
			middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{
				"status":       "error",
				"received_sms": msg.SMS,
			})
			return
		}
		h.log.Info().Str("sms_id", smsID).Str("job_id", job.JobID).Msg("Message enqueued")
		h.ack(w, msg.SMS, smsID)
		return
	}

	result, err := h.processor.Process(r.Context(), msg)
	if err != nil {
		// Only the persistence path returns an error; the details stay in
		// the logs, never in the gateway response.
		h.log.Error().Err(err).Str("sms_id", smsID).Msg("Failed to process message")
		if h.strict {
			middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{
				"status":       "error",
				"received_sms": msg.SMS,
			})
			return
		}
		h.ack(w, msg.SMS, smsID)
		return
	}

	h.log.Info().
		Str("sms_id", smsID).
		Str("sender", result.Sender).
		Str("outcome", string(result.Outcome)).
		Msg("Message processed")

	h.ack(w, msg.SMS, smsID)
}

func (h *SmsHandler) ack(w http.ResponseWriter, sms, smsID string) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status":       "ok",
		"received_sms": sms,
		"sms_id":       smsID,
	})
}

// Hello handles GET /sms, a liveness probe for the gateway webhook.
func (h *SmsHandler) Hello(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "SMS receiver is running",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	store ledger.TransactionLister
	log   zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(store ledger.TransactionLister, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		store: store,
		log:   log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.store.List(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	if records == nil {
		records = []ledger.Record{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": records,
		"count":        len(records),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		MessageID: query.Get("message_id"),
		Status:    jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
