package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/data"
	"github.com/wonny/twscan/internal/pipeline"
	"github.com/wonny/twscan/internal/scanner"
	"github.com/wonny/twscan/pkg/logger"
)

// Runner runs and remembers daily scans
type Runner interface {
	Run(ctx context.Context, cfg pipeline.RunConfig) (*pipeline.RunResult, error)
	Latest(ctx context.Context) (*contracts.ScanReport, error)
	Running() bool
}

// Inspector computes the indicator history of one instrument
type Inspector interface {
	Inspect(ctx context.Context, code string, cfg contracts.ScanConfig) (*scanner.Inspection, error)
}

// ReportHandler handles scan and report requests
type ReportHandler struct {
	runner    Runner
	inspector Inspector
	source    contracts.ConfigSource
	baseCtx   context.Context // lifetime of asynchronous scans
	logger    *logger.Logger
}

// NewReportHandler creates a new report handler. Scans started without
// ?wait=true run under baseCtx so they outlive the request.
func NewReportHandler(
	baseCtx context.Context,
	runner Runner,
	inspector Inspector,
	source contracts.ConfigSource,
	log *logger.Logger,
) *ReportHandler {
	return &ReportHandler{
		runner:    runner,
		inspector: inspector,
		source:    source,
		baseCtx:   baseCtx,
		logger:    log,
	}
}

// ReportResponse is the body of GET /api/reports/latest
type ReportResponse struct {
	Report  *contracts.ScanReport `json:"report"`
	Summary scanner.Summary       `json:"summary"`
}

// GetLatest returns the most recent report
// GET /api/reports/latest
func (h *ReportHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.Latest(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest report")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve report")
		return
	}
	if report == nil {
		respondError(w, http.StatusNotFound, "No report yet")
		return
	}

	respondJSON(w, http.StatusOK, ReportResponse{
		Report:  report,
		Summary: scanner.Summarize(report),
	})
}

// ScanRequest is the optional body of POST /api/scan
type ScanRequest struct {
	Codes  []string `json:"codes"`
	DryRun bool     `json:"dry_run"`
}

// TriggerScan starts a scan
// POST /api/scan?wait=true&codes=2330,2317&dry_run=true
func (h *ReportHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if h.runner.Running() {
		respondError(w, http.StatusConflict, pipeline.ErrScanInProgress.Error())
		return
	}

	cfg := pipeline.RunConfig{
		Codes:  splitCodes(r.URL.Query().Get("codes")),
		DryRun: r.URL.Query().Get("dry_run") == "true",
	}

	wait := r.URL.Query().Get("wait") == "true"
	if !wait {
		h.logger.WithField("codes", len(cfg.Codes)).Info("Scan triggered")
		go func() {
			if _, err := h.runner.Run(h.baseCtx, cfg); err != nil {
				h.logger.WithError(err).Error("Triggered scan failed")
			}
		}()
		respondJSON(w, http.StatusAccepted, map[string]interface{}{
			"success": true,
			"message": "Scan started",
		})
		return
	}

	result, err := h.runner.Run(r.Context(), cfg)
	if errors.Is(err, pipeline.ErrScanInProgress) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Scan failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"success": true,
		"run_id":  result.RunID,
		"summary": result.Summary,
		"stages":  result.CompletedStages,
		"report":  result.Report,
	}
	if result.SinkErr != nil {
		resp["sink_error"] = result.SinkErr.Error()
	}
	if result.NotifyErr != nil {
		resp["notify_error"] = result.NotifyErr.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}

// InspectRow is one bar with its indicators, rounded for display
type InspectRow struct {
	Date    string              `json:"date"`
	Close   float64             `json:"close"`
	MAShort contracts.NullFloat `json:"ma_short"`
	MALong  contracts.NullFloat `json:"ma_long"`
	MACDOSC contracts.NullFloat `json:"macd_osc"`
	RSI     contracts.NullFloat `json:"rsi"`
	K       contracts.NullFloat `json:"k"`
	D       contracts.NullFloat `json:"d"`
}

// InspectResponse is the body of GET /api/inspect/{code}
type InspectResponse struct {
	Code      string                 `json:"code"`
	Result    contracts.SignalResult `json:"result"`
	Rows      []InspectRow           `json:"rows"`
	GreenDays []string               `json:"green_days"`
}

// Inspect returns the recent indicator history of one instrument
// GET /api/inspect/{code}?days=20
func (h *ReportHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}

	days := 20
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid days")
			return
		}
		days = n
	}

	ctx := r.Context()
	_, cfg, err := data.Resolve(ctx, h.source, h.logger)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	in, err := h.inspector.Inspect(ctx, code, cfg)
	if err != nil {
		var rerr *contracts.RetrievalError
		if errors.As(err, &rerr) || errors.Is(err, contracts.ErrNoData) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.WithStock(code).WithError(err).Error("Inspect failed")
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	n := in.Set.Len()
	start := n - days
	if start < 0 {
		start = 0
	}

	resp := InspectResponse{
		Code:   code,
		Result: in.Result,
		Rows:   make([]InspectRow, 0, n-start),
	}
	for i := start; i < n; i++ {
		resp.Rows = append(resp.Rows, inspectRow(in.Set.At(i)))
	}
	for _, row := range in.GreenDays(10) {
		resp.GreenDays = append(resp.GreenDays, contracts.DateString(row.Bar.Date))
	}

	respondJSON(w, http.StatusOK, resp)
}

func inspectRow(row contracts.IndicatorRow) InspectRow {
	return InspectRow{
		Date:    contracts.DateString(row.Bar.Date),
		Close:   row.Bar.Close,
		MAShort: row.MAShort.Round(2),
		MALong:  row.MALong.Round(2),
		MACDOSC: row.MACDOSC.Round(2),
		RSI:     row.RSI.Round(2),
		K:       row.K.Round(2),
		D:       row.D.Round(2),
	}
}

func splitCodes(v string) []string {
	var out []string
	for _, c := range strings.Split(v, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
