package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/karigai-ops/backend/internal/models"
	"github.com/karigai-ops/backend/internal/nocodb"
	"github.com/karigai-ops/backend/internal/service"
)

type CreateOrderRequest struct {
	OrderNumber  string `json:"order_number"`
	CustomerName string `json:"customer_name" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	Address      string `json:"address" validate:"required"`
	City         string `json:"city"`
	State        string `json:"state"`
	StateCode    string `json:"state_code"`
	Pincode      string `json:"pincode"`
	Product      string `json:"product" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,min=1"`
	PricePaise   int64  `json:"price_paise" validate:"min=0"`
	Courier      string `json:"courier"`
}

// @Summary Create order
// @Description Submits a new order through the order-creation webhook
// @Tags orders
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/orders [post]
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	order := models.Order{
		OrderNumber:  strings.TrimSpace(req.OrderNumber),
		CustomerName: strings.TrimSpace(req.CustomerName),
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
		City:         strings.TrimSpace(req.City),
		State:        strings.TrimSpace(req.State),
		StateCode:    strings.TrimSpace(req.StateCode),
		Pincode:      strings.TrimSpace(req.Pincode),
		Product:      strings.TrimSpace(req.Product),
		Quantity:     req.Quantity,
		PricePaise:   req.PricePaise,
		Courier:      strings.TrimSpace(req.Courier),
		OrderedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.Webhooks.CreateOrder(c.Request.Context(), order); err != nil {
		writeError(c, http.StatusBadGateway, "WEBHOOK_ERROR", "Order creation failed", err.Error())
		return
	}

	// Remember the order number the way the console cached it for the
	// courier-slip view.
	if h.Store != nil && order.OrderNumber != "" {
		sess, err := h.Store.GetSession(c.Request.Context(), operator(c))
		if err == nil {
			sess.LastOrderNumber = order.OrderNumber
			if err := h.Store.PutSession(c.Request.Context(), sess); err != nil {
				h.Logger.Error().Err(err).Msg("failed to cache last order number")
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "order": order})
}

func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.Webhooks.GetOrders(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusBadGateway, "WEBHOOK_ERROR", "Failed to fetch orders", err.Error())
		return
	}

	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if q != "" {
		filtered := orders[:0:0]
		for _, o := range orders {
			if strings.Contains(strings.ToLower(o.OrderNumber), q) ||
				strings.Contains(o.Phone, q) ||
				strings.Contains(strings.ToLower(o.CustomerName), q) {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}

	limit, offset := pageParams(c, 50)
	total := len(orders)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	c.JSON(http.StatusOK, gin.H{"items": orders[offset:end], "total": total, "limit": limit, "offset": offset})
}

type TrackingUpdateRequest struct {
	Tracking string `json:"tracking" validate:"required"`
	Date     string `json:"date"`
	Phone    string `json:"phone"`
}

// @Summary Update tracking code
// @Tags orders
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/orders/{number}/tracking [post]
func (h *Handler) UpdateTracking(c *gin.Context) {
	number := strings.TrimSpace(c.Param("number"))
	var req TrackingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	entry := models.TrackingEntry{
		Order:    number,
		Tracking: strings.TrimSpace(req.Tracking),
		Date:     strings.TrimSpace(req.Date),
		Phone:    strings.TrimSpace(req.Phone),
	}
	if err := h.Webhooks.UpdateTracking(c.Request.Context(), entry); err != nil {
		writeError(c, http.StatusBadGateway, "WEBHOOK_ERROR", "Tracking update failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "entry": entry})
}

// @Summary Bulk tracking upload
// @Description CSV upload with Order,Tracking,Date,Phone columns
// @Tags orders
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/tracking/bulk [post]
func (h *Handler) BulkTracking(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file required", nil)
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".csv" {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file must be .csv", nil)
		return
	}

	f, err := file.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "cannot open file", err.Error())
		return
	}
	defer f.Close()

	entries, err := service.ParseTrackingCSV(f)
	if err != nil {
		writeError(c, http.StatusBadRequest, "CSV_PARSE_ERROR", "CSV header unreadable", err.Error())
		return
	}

	pushed := 0
	var failures []string
	for _, entry := range entries {
		if err := h.Webhooks.UpdateTracking(c.Request.Context(), entry); err != nil {
			failures = append(failures, entry.Order+": "+err.Error())
			continue
		}
		pushed++
	}

	c.JSON(http.StatusOK, gin.H{
		"parsed":   len(entries),
		"pushed":   pushed,
		"failed":   len(failures),
		"failures": failures,
	})
}

// Slips serves courier-slip source rows from the NocoDB table.
func (h *Handler) Slips(c *gin.Context) {
	where := ""
	if number := strings.TrimSpace(c.Query("order_number")); number != "" {
		where = "(Order Number,eq," + number + ")"
	}

	records, err := h.Noco.ListAll(c.Request.Context(), h.SlipsTable, where)
	if err != nil {
		writeError(c, http.StatusBadGateway, "NOCODB_ERROR", "Failed to fetch slip rows", err.Error())
		return
	}

	items := make([]gin.H, 0, len(records))
	for _, rec := range records {
		items = append(items, gin.H{
			"order_number": nocodb.FieldAny(rec, "Order Number", "order_number", "Order"),
			"customer":     nocodb.FieldAny(rec, "Customer Name", "customer_name", "Name"),
			"address":      nocodb.FieldAny(rec, "Address", "address"),
			"phone":        nocodb.FieldAny(rec, "Phone", "phone", "Mobile"),
			"courier":      nocodb.FieldAny(rec, "Courier", "courier"),
			"tracking":     nocodb.FieldAny(rec, "Tracking", "tracking", "AWB"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// @Summary Create manifest
// @Description Groups shipped orders by courier for handover
// @Tags orders
// @Produce json
// @Success 200 {object} models.Manifest
// @Router /api/manifests [post]
func (h *Handler) CreateManifest(c *gin.Context) {
	orders, err := h.Webhooks.GetOrders(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusBadGateway, "WEBHOOK_ERROR", "Failed to fetch orders", err.Error())
		return
	}

	shipped := orders[:0:0]
	for _, o := range orders {
		if strings.TrimSpace(o.TrackingCode) != "" {
			shipped = append(shipped, o)
		}
	}
	if courier := strings.TrimSpace(c.Query("courier")); courier != "" {
		filtered := shipped[:0:0]
		for _, o := range shipped {
			if strings.EqualFold(o.Courier, courier) {
				filtered = append(filtered, o)
			}
		}
		shipped = filtered
	}

	manifest := service.BuildManifest(shipped)
	h.mu.Lock()
	h.lastManifest = &manifest
	h.mu.Unlock()

	c.JSON(http.StatusOK, manifest)
}

func (h *Handler) LatestManifest(c *gin.Context) {
	h.mu.Lock()
	manifest := h.lastManifest
	h.mu.Unlock()
	if manifest == nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No manifest created yet", nil)
		return
	}
	c.JSON(http.StatusOK, manifest)
}
