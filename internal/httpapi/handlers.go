package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/paycore/payroll-engine/internal/config"
	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/internal/ledger"
	"github.com/paycore/payroll-engine/internal/output"
)

var contentTypes = map[string]string{
	"json": "application/json",
	"csv":  "text/csv; charset=utf-8",
	"txt":  "text/plain; charset=utf-8",
	"html": "text/html; charset=utf-8",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"pdf":  "application/pdf",
}

// inputErrors are calculation failures caused by the submitted data.
var inputErrors = []error{
	config.ErrNotFound,
	domain.ErrUnknownFilingStatus,
	domain.ErrUnknownCompensation,
	domain.ErrInvalidBrackets,
	domain.ErrInvalidProration,
	domain.ErrInvalidPeriods,
	domain.ErrYtdYearMismatch,
	domain.ErrMissingMinimumWage,
	domain.ErrMissingNRAEntry,
	domain.ErrCurrencyMismatch,
	domain.ErrInvalidOrder,
}

func isInputError(err error) bool {
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCalculate accepts a paycheck fixture in YAML or JSON. The format query parameter
// picks the output formatter (json by default); ledger=apply records the withholding
// events synchronously and ledger=enqueue hands them to the worker.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	format := output.NormalizeFormatName(r.URL.Query().Get("format"))
	if format == "" {
		format = "json"
	}
	formatter := output.GetFormatterByName(format)
	if formatter == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", output.ErrUnsupportedFormat, format))
		return
	}
	mode := r.URL.Query().Get("ledger")
	switch mode {
	case "", "apply", "enqueue":
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown ledger mode %q", mode))
		return
	}
	if mode == "enqueue" && s.cfg.Enqueuer == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("background worker not configured"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	fixture, err := config.NewInputParser().Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// rule files are resolved server-side only
	fixture.CatalogFile = ""
	if !authorizedFor(r.Context(), fixture.EmployerID) {
		writeError(w, http.StatusForbidden, fmt.Errorf("not authorized for employer %s", fixture.EmployerID))
		return
	}

	ctx := r.Context()
	outcome, err := s.cfg.Runner.Calculate(ctx, fixture)
	if err != nil {
		status := http.StatusInternalServerError
		if isInputError(err) {
			status = http.StatusUnprocessableEntity
		} else {
			s.logger.ErrorContext(ctx, "calculate paychecks", slog.Any("error", err))
		}
		writeError(w, status, err)
		return
	}

	switch mode {
	case "apply":
		report, err := s.cfg.Runner.Apply(ctx, outcome)
		if err != nil {
			s.logger.ErrorContext(ctx, "apply withholding events", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("X-Ledger-Applied", strconv.Itoa(report.Applied))
		w.Header().Set("X-Ledger-Duplicates", strconv.Itoa(report.Duplicates))
	case "enqueue":
		queued, err := s.cfg.Enqueuer.EnqueueResults(ctx, outcome.Results)
		if err != nil {
			s.logger.ErrorContext(ctx, "enqueue withholding events", slog.Any("error", err))
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		w.Header().Set("X-Ledger-Enqueued", strconv.Itoa(queued))
	}

	data, err := formatter.Format(outcome.Results)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	contentType, ok := contentTypes[output.Extension(formatter.Name())]
	if !ok {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, bytes.NewReader(data))
}

type eventsRequest struct {
	Events []domain.WithholdingEvent `json:"events"`
}

func (s *Server) handleApplyEvents(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Runner.Ledger == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("ledger not configured"))
		return
	}
	var req eventsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode events: %w", err))
		return
	}
	for _, ev := range req.Events {
		if !authorizedFor(r.Context(), ev.EmployerID) {
			writeError(w, http.StatusForbidden, fmt.Errorf("not authorized for employer %s", ev.EmployerID))
			return
		}
	}

	report, err := s.cfg.Runner.Ledger.ApplyEvents(r.Context(), req.Events)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidEvent) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		s.logger.ErrorContext(r.Context(), "apply withholding events", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListLedger(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Runner.Ledger == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("ledger not configured"))
		return
	}
	employerID := chi.URLParam(r, "employerID")
	employeeID := chi.URLParam(r, "employeeID")
	if !authorizedFor(r.Context(), employerID) {
		writeError(w, http.StatusForbidden, fmt.Errorf("not authorized for employer %s", employerID))
		return
	}
	entries, err := s.cfg.Runner.Ledger.Store().List(r.Context(), employerID, employeeID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list ledger entries", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
