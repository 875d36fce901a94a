package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/karigai-ops/backend/internal/models"
	"github.com/karigai-ops/backend/internal/service"
)

// ListNDR serves the dashboard from the in-memory snapshot the refresher
// maintains; nothing here talks to Supabase directly.
func (h *Handler) ListNDR(c *gin.Context) {
	records, refreshedAt := h.NDR.Snapshot()

	if bucket := strings.TrimSpace(c.Query("bucket")); bucket != "" {
		filtered := records[:0:0]
		for _, r := range records {
			if strings.EqualFold(r.Bucket, bucket) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}
	if courier := strings.TrimSpace(c.Query("courier")); courier != "" {
		filtered := records[:0:0]
		for _, r := range records {
			if strings.EqualFold(r.Courier, courier) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	summary := service.BucketSummary(records)

	limit, offset := pageParams(c, 100)
	total := len(records)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"items":        records[offset:end],
		"summary":      summary,
		"total":        total,
		"refreshed_at": refreshedAt,
	})
}

type NDRPatchRequest struct {
	CallStatus     string `json:"call_status"`
	Phone          string `json:"phone"`
	Issue          string `json:"issue"`
	ActionTaken    string `json:"action_taken"`
	BucketOverride string `json:"bucket_override"`
	EmailSent      *bool  `json:"email_sent"`
}

// @Summary Patch an NDR record
// @Description Updates call status, notes blob, bucket override or the
// email-sent flag on the upstream row, then patches the local snapshot.
// @Tags ndr
// @Accept json
// @Produce json
// @Success 200 {object} models.NDRRecord
// @Router /api/ndr/{awb} [patch]
func (h *Handler) PatchNDR(c *gin.Context) {
	awb := strings.TrimSpace(c.Param("awb"))
	var req NDRPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if req.BucketOverride != "" && !validBucket(req.BucketOverride) {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown bucket", req.BucketOverride)
		return
	}

	record, found := h.NDR.Find(awb)
	if !found {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Waybill not in current snapshot", nil)
		return
	}

	patch := models.NDRNotes{
		Phone:          strings.TrimSpace(req.Phone),
		Issue:          strings.TrimSpace(req.Issue),
		ActionTaken:    strings.TrimSpace(req.ActionTaken),
		BucketOverride: strings.TrimSpace(req.BucketOverride),
	}
	merged := service.MergeNotes(record.Notes, patch)

	fields := map[string]any{}
	if patch != (models.NDRNotes{}) {
		fields["notes"] = service.EncodeNotes(merged)
	}
	if req.CallStatus != "" {
		fields["call_status"] = req.CallStatus
	}
	if req.EmailSent != nil {
		fields["email_sent"] = *req.EmailSent
	}
	if len(fields) == 0 {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Nothing to update", nil)
		return
	}

	if err := h.Supa.PatchNDR(c.Request.Context(), h.NDRTable, awb, fields); err != nil {
		writeError(c, http.StatusBadGateway, "SUPABASE_ERROR", "NDR update failed", err.Error())
		return
	}

	// Optimistic local mutation; the next refresh cycle reconciles.
	h.NDR.Apply(awb, func(r *models.NDRRecord) {
		r.Notes = merged
		if req.CallStatus != "" {
			r.CallStatus = req.CallStatus
		}
		if req.EmailSent != nil {
			r.EmailSent = *req.EmailSent
		}
		if merged.BucketOverride != "" {
			r.Bucket = merged.BucketOverride
		}
	})

	updated, _ := h.NDR.Find(awb)
	c.JSON(http.StatusOK, updated)
}

type NDRMailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// @Summary Send address-issue follow-up mail
// @Tags ndr
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/ndr/{awb}/mail [post]
func (h *Handler) SendNDRMail(c *gin.Context) {
	awb := strings.TrimSpace(c.Param("awb"))
	var req NDRMailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	record, found := h.NDR.Find(awb)
	if !found {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Waybill not in current snapshot", nil)
		return
	}

	mail := service.ComposeNDRMail(record, req.Email)
	if err := h.Webhooks.SendNDRMail(c.Request.Context(), mail); err != nil {
		writeError(c, http.StatusBadGateway, "WEBHOOK_ERROR", "Mail dispatch failed", err.Error())
		return
	}

	if err := h.Supa.PatchNDR(c.Request.Context(), h.NDRTable, awb, map[string]any{"email_sent": true}); err != nil {
		h.Logger.Error().Err(err).Str("awb", awb).Msg("failed to flag email_sent after dispatch")
	} else {
		h.NDR.Apply(awb, func(r *models.NDRRecord) { r.EmailSent = true })
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "subject": mail.Subject})
}

func validBucket(bucket string) bool {
	for _, b := range service.Buckets {
		if strings.EqualFold(b, bucket) {
			return true
		}
	}
	return false
}
