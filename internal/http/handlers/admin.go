package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/karigai-ops/backend/internal/models"
	"github.com/karigai-ops/backend/internal/nocodb"
	"github.com/karigai-ops/backend/internal/service"
)

type BatchUpdateItem struct {
	OrderNumber string         `json:"order_number" validate:"required"`
	Fields      map[string]any `json:"fields" validate:"required,min=1"`
}

type BatchUpdateRequest struct {
	Table   string            `json:"table"`
	Updates []BatchUpdateItem `json:"updates" validate:"required,min=1"`
}

type batchFailure struct {
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason"`
}

// @Summary Apply field updates to NocoDB records by order number
// @Description Each update resolves its record id first; rows that cannot be
// found or patched are reported, the rest proceed.
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/batch/update [post]
func (h *Handler) BatchUpdate(c *gin.Context) {
	var req BatchUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	table := req.Table
	if table == "" {
		table = h.SlipsTable
	}

	var runID string
	if h.Store != nil {
		id, err := h.Store.CreateRun(c.Request.Context(), "batch_update", "RUNNING")
		if err != nil {
			h.Logger.Error().Err(err).Msg("failed to record batch run")
		} else {
			runID = id
		}
	}

	updated := 0
	var failures []batchFailure
	for _, upd := range req.Updates {
		where := fmt.Sprintf("(Order Number,eq,%s)", upd.OrderNumber)
		records, _, err := h.Noco.List(c.Request.Context(), table, where, 1, 0)
		if err != nil {
			failures = append(failures, batchFailure{upd.OrderNumber, err.Error()})
			continue
		}
		if len(records) == 0 {
			failures = append(failures, batchFailure{upd.OrderNumber, "no matching record"})
			continue
		}
		id := nocodb.RecordID(records[0])
		patch := map[string]any{"Id": id}
		for k, v := range upd.Fields {
			patch[k] = v
		}
		if err := h.Noco.Patch(c.Request.Context(), table, []map[string]any{patch}); err != nil {
			failures = append(failures, batchFailure{upd.OrderNumber, err.Error()})
			continue
		}
		updated++
	}

	if runID != "" {
		status := "SUCCESS"
		if updated == 0 && len(failures) > 0 {
			status = "FAILED"
		}
		summary, _ := json.Marshal(gin.H{
			"table":    table,
			"updated":  updated,
			"failures": failures,
		})
		if err := h.Store.FinishRun(c.Request.Context(), runID, status, summary); err != nil {
			h.Logger.Error().Err(err).Str("run_id", runID).Msg("failed to finish batch run")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"updated":  updated,
		"failed":   len(failures),
		"failures": failures,
	})
}

// LatestBatchRun reports the most recent batch-update run with its summary.
func (h *Handler) LatestBatchRun(c *gin.Context) {
	if h.Store == nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Run storage not configured", nil)
		return
	}
	run, err := h.Store.GetLatestRun(c.Request.Context(), "batch_update")
	if err != nil {
		if err == pgx.ErrNoRows {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "No batch runs recorded", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load run", err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}

type InvoiceRequest struct {
	Order models.Order `json:"order" validate:"required"`
	GSTIN string       `json:"gstin"`
}

// @Summary Compute a GST invoice for one order
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} models.Invoice
// @Router /api/invoices/preview [post]
func (h *Handler) InvoicePreview(c *gin.Context) {
	var req InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if req.Order.OrderNumber == "" || req.Order.Product == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "order_number and product are required", nil)
		return
	}
	if req.Order.Quantity <= 0 || req.Order.PricePaise < 0 {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "quantity must be positive and price non-negative", nil)
		return
	}

	gstin := req.GSTIN
	if gstin == "" {
		gstin = h.SellerGSTIN
	}
	invoice := service.BuildInvoice(req.Order, h.SellerStateCode, gstin)
	c.JSON(http.StatusOK, invoice)
}

// GetSession returns the calling operator's stored console context.
func (h *Handler) GetSession(c *gin.Context) {
	if h.Store == nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Session storage not configured", nil)
		return
	}
	sess, err := h.Store.GetSession(c.Request.Context(), operator(c))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load session", err.Error())
		return
	}
	c.JSON(http.StatusOK, sess)
}

type SessionRequest struct {
	AgentName       string `json:"agent_name"`
	AgentPhone      string `json:"agent_phone"`
	TeamID          string `json:"team_id"`
	LastOrderNumber string `json:"last_order_number"`
}

func (h *Handler) PutSession(c *gin.Context) {
	if h.Store == nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Session storage not configured", nil)
		return
	}
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	sess := models.OperatorSession{
		Operator:        operator(c),
		AgentName:       strings.TrimSpace(req.AgentName),
		AgentPhone:      strings.TrimSpace(req.AgentPhone),
		TeamID:          strings.TrimSpace(req.TeamID),
		LastOrderNumber: strings.TrimSpace(req.LastOrderNumber),
	}
	if err := h.Store.PutSession(c.Request.Context(), sess); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to store session", err.Error())
		return
	}
	c.JSON(http.StatusOK, sess)
}
