package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/karigai-ops/backend/internal/callcenter"
	"github.com/karigai-ops/backend/internal/db"
	"github.com/karigai-ops/backend/internal/models"
	"github.com/karigai-ops/backend/internal/nocodb"
	"github.com/karigai-ops/backend/internal/supabase"
	"github.com/karigai-ops/backend/internal/webhook"
	"github.com/karigai-ops/backend/internal/worker"
)

type Handler struct {
	Store     *db.Store
	Webhooks  webhook.Dispatcher
	Noco      *nocodb.Client
	Supa      *supabase.Client
	NDR       *worker.NDRRefresher
	Dialer    callcenter.Dialer
	Validator *validator.Validate
	Logger    zerolog.Logger

	NDRTable        string
	SlipsTable      string
	FeedbackTable   string
	SellerStateCode string
	SellerGSTIN     string

	mu           sync.Mutex
	lastManifest *models.Manifest
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if h.Store != nil {
		if err := h.Store.Ping(ctx); err != nil {
			writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// operator identifies whose localStorage-equivalent state a request touches.
func operator(c *gin.Context) string {
	op := strings.TrimSpace(c.GetHeader("X-Operator"))
	if op == "" {
		return "default"
	}
	return op
}

func pageParams(c *gin.Context, defaultLimit int) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
