package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/karigai-ops/backend/internal/models"
	"github.com/karigai-ops/backend/internal/nocodb"
)

// nocoServer resolves any order-number lookup to one record and records the
// PATCH bodies it receives.
type nocoServer struct {
	mu      sync.Mutex
	known   map[string]float64
	patches []string
}

func (n *nocoServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			where := r.URL.Query().Get("where")
			for number, id := range n.known {
				if where == "(Order Number,eq,"+number+")" {
					_ = json.NewEncoder(w).Encode(map[string]any{
						"list":     []map[string]any{{"Id": id, "Order Number": number}},
						"pageInfo": map[string]any{"totalRows": 1, "isLastPage": true},
					})
					return
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"list":     []map[string]any{},
				"pageInfo": map[string]any{"totalRows": 0, "isLastPage": true},
			})
		case http.MethodPatch:
			body, _ := io.ReadAll(r.Body)
			n.mu.Lock()
			n.patches = append(n.patches, string(body))
			n.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		}
	}
}

func newAdminRouter(nocoURL string) *gin.Engine {
	h := &Handler{
		Noco:            &nocodb.Client{BaseURL: nocoURL, Token: "test"},
		Validator:       validator.New(),
		Logger:          zerolog.Nop(),
		SlipsTable:      "slips",
		SellerStateCode: "33",
		SellerGSTIN:     "33AAAAA0000A1Z5",
	}
	r := gin.New()
	r.POST("/api/batch/update", h.BatchUpdate)
	r.POST("/api/invoices/preview", h.InvoicePreview)
	return r
}

func TestBatchUpdatePatchesByOrderNumber(t *testing.T) {
	server := &nocoServer{known: map[string]float64{"KG-1": 11, "KG-2": 22}}
	ts := httptest.NewServer(server.handler())
	defer ts.Close()
	r := newAdminRouter(ts.URL)

	w := postJSON(t, r, "/api/batch/update", map[string]any{
		"updates": []map[string]any{
			{"order_number": "KG-1", "fields": map[string]any{"Status": "Shipped"}},
			{"order_number": "KG-MISSING", "fields": map[string]any{"Status": "Shipped"}},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Updated  int `json:"updated"`
		Failed   int `json:"failed"`
		Failures []struct {
			OrderNumber string `json:"order_number"`
		} `json:"failures"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Updated != 1 || resp.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", resp)
	}
	if resp.Failures[0].OrderNumber != "KG-MISSING" {
		t.Fatalf("unexpected failure: %+v", resp.Failures)
	}
	if len(server.patches) != 1 {
		t.Fatalf("expected 1 patch, got %d", len(server.patches))
	}
}

func TestBatchUpdateValidation(t *testing.T) {
	r := newAdminRouter("http://unused.invalid")
	w := postJSON(t, r, "/api/batch/update", map[string]any{"updates": []map[string]any{}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty updates, got %d", w.Code)
	}
}

func TestInvoicePreviewIntraState(t *testing.T) {
	r := newAdminRouter("http://unused.invalid")

	w := postJSON(t, r, "/api/invoices/preview", map[string]any{
		"order": models.Order{
			OrderNumber: "KG-1",
			Product:     "Millet Mix",
			Quantity:    2,
			PricePaise:  45000,
			StateCode:   "33",
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var invoice models.Invoice
	if err := json.Unmarshal(w.Body.Bytes(), &invoice); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if invoice.SubtotalPaise != 90000 {
		t.Fatalf("expected subtotal 90000, got %d", invoice.SubtotalPaise)
	}
	if invoice.CGSTPaise != 2250 || invoice.SGSTPaise != 2250 || invoice.IGSTPaise != 0 {
		t.Fatalf("expected split CGST/SGST, got %+v", invoice)
	}
	if invoice.TotalPaise != 94500 {
		t.Fatalf("expected total 94500, got %d", invoice.TotalPaise)
	}
}

func TestInvoicePreviewInterState(t *testing.T) {
	r := newAdminRouter("http://unused.invalid")

	w := postJSON(t, r, "/api/invoices/preview", map[string]any{
		"order": models.Order{
			OrderNumber: "KG-2",
			Product:     "Millet Mix",
			Quantity:    1,
			PricePaise:  45000,
			StateCode:   "29",
		},
	})
	var invoice models.Invoice
	if err := json.Unmarshal(w.Body.Bytes(), &invoice); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if invoice.IGSTPaise != 2250 || invoice.CGSTPaise != 0 {
		t.Fatalf("expected IGST only, got %+v", invoice)
	}
}

func TestInvoicePreviewRejectsBadQuantity(t *testing.T) {
	r := newAdminRouter("http://unused.invalid")
	w := postJSON(t, r, "/api/invoices/preview", map[string]any{
		"order": map[string]any{"order_number": "KG-1", "product": "Millet Mix", "quantity": 0},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
