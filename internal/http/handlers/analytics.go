package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/karigai-ops/backend/internal/models"
	"github.com/karigai-ops/backend/internal/nocodb"
	"github.com/karigai-ops/backend/internal/service"
)

// fetchFeedback pulls every survey row from NocoDB and resolves the floating
// column names once, at the boundary.
func (h *Handler) fetchFeedback(c *gin.Context) ([]models.FeedbackRow, bool) {
	records, err := h.Noco.ListAll(c.Request.Context(), h.FeedbackTable, "")
	if err != nil {
		writeError(c, http.StatusBadGateway, "NOCODB_ERROR", "Failed to fetch feedback rows", err.Error())
		return nil, false
	}

	rows := make([]models.FeedbackRow, 0, len(records))
	for _, rec := range records {
		row := models.FeedbackRow{
			RecordID:    nocodb.RecordID(rec),
			OrderNumber: nocodb.FieldAny(rec, "Order Number", "order_number", "Order"),
			Agent:       nocodb.FieldAny(rec, "Agent", "agent", "Agent Name"),
			Date:        nocodb.FieldAny(rec, "Date", "date", "Created At", "CreatedAt"),
			Fields:      map[string]string{},
		}
		for name := range rec {
			if v := nocodb.FieldAny(rec, name); v != "" {
				row.Fields[name] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, true
}

type AggregateRequest struct {
	Field     string            `json:"field" validate:"required"`
	StartDate string            `json:"start_date"`
	EndDate   string            `json:"end_date"`
	Grouping  map[string]string `json:"grouping"`
}

func (h *Handler) aggregateInput(c *gin.Context, rows []models.FeedbackRow, req AggregateRequest) service.AggregateInput {
	in := service.AggregateInput{
		Rows:      rows,
		Field:     req.Field,
		StartDate: strings.TrimSpace(req.StartDate),
		EndDate:   strings.TrimSpace(req.EndDate),
		Grouping:  req.Grouping,
		Overrides: map[string]string{},
	}
	if in.Grouping == nil {
		in.Grouping = map[string]string{}
	}
	if h.Store == nil {
		return in
	}
	op := operator(c)
	// An inline grouping wins over the stored one for ad-hoc exploration.
	if len(req.Grouping) == 0 {
		if grouping, err := h.Store.GetGrouping(c.Request.Context(), op, req.Field); err == nil {
			in.Grouping = grouping
		} else {
			h.Logger.Error().Err(err).Str("field", req.Field).Msg("failed to load grouping")
		}
	}
	if overrides, err := h.Store.GetLabelOverrides(c.Request.Context(), op, req.Field); err == nil {
		in.Overrides = overrides
	} else {
		h.Logger.Error().Err(err).Str("field", req.Field).Msg("failed to load label overrides")
	}
	return in
}

// Aggregate serves the category frequency table for one survey field,
// honoring the operator's stored grouping and label overrides.
func (h *Handler) Aggregate(c *gin.Context) {
	var req AggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	rows, ok := h.fetchFeedback(c)
	if !ok {
		return
	}
	in := h.aggregateInput(c, rows, req)
	counts := service.Aggregate(in)

	filtered := service.FilterByDateRange(rows, in.StartDate, in.EndDate)
	c.JSON(http.StatusOK, gin.H{
		"field":      req.Field,
		"categories": counts,
		"total_rows": len(filtered),
	})
}

type DrilldownRequest struct {
	AggregateRequest
	Label  string `json:"label" validate:"required"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// Drilldown lists the rows behind one summary label or group.
func (h *Handler) Drilldown(c *gin.Context) {
	var req DrilldownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	rows, ok := h.fetchFeedback(c)
	if !ok {
		return
	}
	in := h.aggregateInput(c, rows, req.AggregateRequest)

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	matched, total := service.Drilldown(in, req.Label, limit, offset)

	resp := gin.H{"items": matched, "total": total}
	if members := service.GroupMembers(in.Grouping, req.Label); len(members) > 0 {
		resp["group_members"] = members
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetGrouping(c *gin.Context) {
	if h.Store == nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Grouping storage not configured", nil)
		return
	}
	field := c.Param("field")
	mapping, err := h.Store.GetGrouping(c.Request.Context(), operator(c), field)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load grouping", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"field": field, "mapping": mapping})
}

type GroupingRequest struct {
	Mapping map[string]string `json:"mapping" validate:"required"`
}

// @Summary Store a category grouping for one survey field
// @Tags analytics
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/analytics/groupings/{field} [put]
func (h *Handler) PutGrouping(c *gin.Context) {
	if h.Store == nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Grouping storage not configured", nil)
		return
	}
	field := c.Param("field")
	var req GroupingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	for category, group := range req.Mapping {
		if strings.TrimSpace(category) == "" || strings.TrimSpace(group) == "" {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Mapping keys and values must be non-empty", nil)
			return
		}
	}
	if err := h.Store.PutGrouping(c.Request.Context(), operator(c), field, req.Mapping); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to store grouping", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"field": field, "mapping": req.Mapping})
}

func (h *Handler) DeleteGrouping(c *gin.Context) {
	if h.Store == nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Grouping storage not configured", nil)
		return
	}
	field := c.Param("field")
	if err := h.Store.DeleteGrouping(c.Request.Context(), operator(c), field); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to delete grouping", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"field": field, "deleted": true})
}

type OverridesRequest struct {
	Mapping map[string]string `json:"mapping" validate:"required"`
}

func (h *Handler) PutLabelOverrides(c *gin.Context) {
	if h.Store == nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Override storage not configured", nil)
		return
	}
	field := c.Param("field")
	var req OverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Store.PutLabelOverrides(c.Request.Context(), operator(c), field, req.Mapping); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to store overrides", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"field": field, "mapping": req.Mapping})
}
