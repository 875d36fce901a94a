package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/karigai-ops/backend/internal/service"
)

// ListLeads fetches the repeat-customer aggregate from the stored function
// and applies the console's filters locally.
func (h *Handler) ListLeads(c *gin.Context) {
	leads, err := h.Supa.GetRepeatLeads(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusBadGateway, "SUPABASE_ERROR", "Failed to fetch repeat leads", err.Error())
		return
	}

	filter := service.LeadFilter{
		CallStatus: strings.TrimSpace(c.Query("call_status")),
		AssignedTo: strings.TrimSpace(c.Query("assigned_to")),
	}
	if v := c.Query("min_orders"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.MinOrderCount = n
		}
	}
	if c.Query("unassigned") == "true" {
		filter.UnassignedOnly = true
	}
	filtered := service.FilterLeads(leads, filter)

	limit, offset := pageParams(c, 50)
	total := len(filtered)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"items": filtered[offset:end],
		"total": total,
	})
}

type AssignRequest struct {
	OrderNumbers []string `json:"order_numbers" validate:"required,min=1"`
	AssignedTo   string   `json:"assigned_to" validate:"required"`
	TeamID       string   `json:"team_id"`
}

// @Summary Assign repeat-customer orders to an agent
// @Tags repeat
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/repeat/assign [post]
func (h *Handler) AssignLeads(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	teamID := req.TeamID
	if teamID == "" && h.Store != nil {
		if sess, err := h.Store.GetSession(c.Request.Context(), operator(c)); err == nil {
			teamID = sess.TeamID
		}
	}

	if err := h.Supa.AssignOrders(c.Request.Context(), req.OrderNumbers, req.AssignedTo, teamID); err != nil {
		writeError(c, http.StatusBadGateway, "SUPABASE_ERROR", "Assignment failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "assigned": len(req.OrderNumbers)})
}

type CallStatusRequest struct {
	Phone  string `json:"phone" validate:"required"`
	Status string `json:"status" validate:"required"`
}

func (h *Handler) UpdateCallStatus(c *gin.Context) {
	var req CallStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	if err := h.Supa.UpdateCallStatus(c.Request.Context(), req.Phone, req.Status); err != nil {
		writeError(c, http.StatusBadGateway, "SUPABASE_ERROR", "Call status update failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type AllocateRequest struct {
	TeamID  string                    `json:"team_id"`
	Shares  []service.AllocationShare `json:"shares" validate:"required,min=1"`
	Execute bool                      `json:"execute"`
}

// @Summary Allocate unassigned leads across agents by percentage
// @Description Previews the split locally; with execute=true the allocation
// RPC also runs upstream.
// @Tags repeat
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/repeat/allocate [post]
func (h *Handler) AllocateLeads(c *gin.Context) {
	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	sum := 0
	for _, s := range req.Shares {
		if s.Agent == "" || s.Percent < 0 {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Each share needs an agent and a non-negative percent", nil)
			return
		}
		sum += s.Percent
	}
	if sum != 100 {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Shares must sum to 100", sum)
		return
	}

	leads, err := h.Supa.GetRepeatLeads(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusBadGateway, "SUPABASE_ERROR", "Failed to fetch repeat leads", err.Error())
		return
	}
	preview := service.PreviewAllocation(leads, req.Shares)

	resp := gin.H{"preview": preview, "executed": false}
	if req.Execute {
		shares := make(map[string]int, len(req.Shares))
		for _, s := range req.Shares {
			shares[s.Agent] = s.Percent
		}
		result, err := h.Supa.AllocatePercent(c.Request.Context(), req.TeamID, shares)
		if err != nil {
			writeError(c, http.StatusBadGateway, "SUPABASE_ERROR", "Allocation failed", err.Error())
			return
		}
		resp["executed"] = true
		resp["result"] = result
	}
	c.JSON(http.StatusOK, resp)
}

type CallRequest struct {
	CustomerPhone string `json:"customer_phone" validate:"required"`
	AgentPhone    string `json:"agent_phone"`
}

// Call bridges the operator's phone to the customer through the configured
// click-to-call provider. The agent number falls back to the operator's
// stored session.
func (h *Handler) Call(c *gin.Context) {
	var req CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	agentPhone := strings.TrimSpace(req.AgentPhone)
	if agentPhone == "" && h.Store != nil {
		if sess, err := h.Store.GetSession(c.Request.Context(), operator(c)); err == nil {
			agentPhone = sess.AgentPhone
		}
	}
	if agentPhone == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "No agent phone in request or session", nil)
		return
	}

	if err := h.Dialer.Dial(c.Request.Context(), agentPhone, req.CustomerPhone); err != nil {
		writeError(c, http.StatusBadGateway, "CALL_ERROR", "Click-to-call failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
