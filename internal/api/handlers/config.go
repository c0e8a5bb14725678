package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/strategyconfig"
	"github.com/wonny/twscan/pkg/logger"
)

// ConfigHandler serves and edits the watch list and strategy parameters
// ⭐ SSOT: 설정 API 핸들러는 이 구조체에서만
type ConfigHandler struct {
	stocks contracts.StockRepository         // nil without a database
	params contracts.StrategyParamRepository // nil without a database
	source contracts.ConfigSource
	logger *logger.Logger
}

// NewConfigHandler creates a new config handler. With nil repositories the
// handler is read-only and serves source.
func NewConfigHandler(
	stocks contracts.StockRepository,
	params contracts.StrategyParamRepository,
	source contracts.ConfigSource,
	log *logger.Logger,
) *ConfigHandler {
	return &ConfigHandler{
		stocks: stocks,
		params: params,
		source: source,
		logger: log,
	}
}

// ConfigResponse is the body of GET /api/config
type ConfigResponse struct {
	Stocks   []contracts.Stock         `json:"stocks"`
	Strategy []contracts.StrategyParam `json:"strategy"`
	Editable bool                      `json:"editable"`
}

func (h *ConfigHandler) editable() bool {
	return h.stocks != nil && h.params != nil
}

// GetConfig returns the watch list and strategy parameters
// GET /api/config
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := ConfigResponse{Editable: h.editable()}

	if h.editable() {
		stocks, err := h.stocks.List(ctx)
		if err != nil {
			h.logger.WithError(err).Error("Failed to list stocks")
			respondError(w, http.StatusInternalServerError, "Failed to retrieve stock list")
			return
		}
		params, err := h.params.List(ctx)
		if err != nil {
			h.logger.WithError(err).Error("Failed to list strategy params")
			respondError(w, http.StatusInternalServerError, "Failed to retrieve strategy")
			return
		}
		resp.Stocks, resp.Strategy = stocks, params
		respondJSON(w, http.StatusOK, resp)
		return
	}

	codes, err := h.source.EnabledCodes(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to retrieve stock list")
		return
	}
	kv, err := h.source.StrategyParams(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to retrieve strategy")
		return
	}

	resp.Stocks = make([]contracts.Stock, len(codes))
	for i, c := range codes {
		resp.Stocks[i] = contracts.Stock{Code: c, Enabled: true}
	}
	resp.Strategy = paramList(kv)
	respondJSON(w, http.StatusOK, resp)
}

// SaveStockList upserts the posted stocks
// POST /api/save_stock_list
func (h *ConfigHandler) SaveStockList(w http.ResponseWriter, r *http.Request) {
	if !h.editable() {
		respondError(w, http.StatusServiceUnavailable, "Database not configured")
		return
	}

	var stocks []contracts.Stock
	if err := json.NewDecoder(r.Body).Decode(&stocks); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	for i := range stocks {
		stocks[i].Code = strings.TrimSpace(stocks[i].Code)
		if stocks[i].Code == "" {
			respondError(w, http.StatusBadRequest, "stock code is required")
			return
		}
	}

	if err := h.stocks.Upsert(r.Context(), stocks); err != nil {
		h.logger.WithError(err).Error("Failed to save stock list")
		respondError(w, http.StatusInternalServerError, "Failed to save stock list")
		return
	}

	h.logger.WithField("count", len(stocks)).Info("Stock list saved")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"saved":   len(stocks),
	})
}

// SaveStrategy validates and stores strategy parameters
// POST /api/save_strategy
func (h *ConfigHandler) SaveStrategy(w http.ResponseWriter, r *http.Request) {
	if !h.editable() {
		respondError(w, http.StatusServiceUnavailable, "Database not configured")
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var kv map[string]any
	if err := dec.Decode(&kv); err != nil || len(kv) == 0 {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Unknown keys are stored as-is; known keys must parse and validate.
	cfg, warnings := strategyconfig.FromParams(kv)
	for _, warn := range warnings {
		if warn.Code == "INVALID_PARAM" {
			respondError(w, http.StatusBadRequest, warn.Message)
			return
		}
	}
	if err := strategyconfig.ValidateScanConfig(cfg); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.params.Upsert(r.Context(), kv); err != nil {
		h.logger.WithError(err).Error("Failed to save strategy")
		respondError(w, http.StatusInternalServerError, "Failed to save strategy")
		return
	}

	h.logger.WithField("keys", len(kv)).Info("Strategy saved")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"config":  cfg,
	})
}

func paramList(kv map[string]any) []contracts.StrategyParam {
	out := make([]contracts.StrategyParam, 0, len(kv))
	for k, v := range kv {
		out = append(out, contracts.StrategyParam{
			Key:         k,
			Value:       v,
			Description: strategyconfig.Descriptions[k],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
