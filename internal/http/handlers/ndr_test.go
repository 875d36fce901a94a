package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/karigai-ops/backend/internal/models"
	"github.com/karigai-ops/backend/internal/supabase"
	"github.com/karigai-ops/backend/internal/webhook"
	"github.com/karigai-ops/backend/internal/worker"
)

type staticNDRSource struct {
	rows []supabase.NDRRow
}

func (s *staticNDRSource) ListNDR(ctx context.Context, table string) ([]supabase.NDRRow, error) {
	return s.rows, nil
}

// patchRecorder stands in for the Supabase REST surface and records PATCH
// bodies by request path.
type patchRecorder struct {
	mu      sync.Mutex
	patches []string
}

func (p *patchRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			p.mu.Lock()
			p.patches = append(p.patches, r.URL.RawQuery)
			p.mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func newNDRRouter(t *testing.T, rows []supabase.NDRRow, supaURL string, mock *webhook.MockDispatcher) *gin.Engine {
	t.Helper()
	refresher := &worker.NDRRefresher{
		Source: &staticNDRSource{rows: rows},
		Table:  "ndr_records",
		Logger: zerolog.Nop(),
	}
	if err := refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	h := &Handler{
		Webhooks:  mock,
		Supa:      &supabase.Client{BaseURL: supaURL, APIKey: "test"},
		NDR:       refresher,
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
		NDRTable:  "ndr_records",
	}
	r := gin.New()
	r.GET("/api/ndr", h.ListNDR)
	r.PATCH("/api/ndr/:awb", h.PatchNDR)
	r.POST("/api/ndr/:awb/mail", h.SendNDRMail)
	return r
}

func sampleNDRRows() []supabase.NDRRow {
	return []supabase.NDRRow{
		{ID: 1, Waybill: "AWB1", OrderNumber: "KG-1", Courier: "ST Courier", DeliveryStatus: "Consignee not available"},
		{ID: 2, Waybill: "AWB2", OrderNumber: "KG-2", Courier: "DTDC", DeliveryStatus: "Wrong address provided"},
		{ID: 3, Waybill: "AWB3", OrderNumber: "KG-3", Courier: "DTDC", DeliveryStatus: "Out for delivery", Remark: "shipment delivered to customer"},
	}
}

func TestListNDRSummary(t *testing.T) {
	r := newNDRRouter(t, sampleNDRRows(), "http://unused.invalid", &webhook.MockDispatcher{})

	req, _ := http.NewRequest(http.MethodGet, "/api/ndr", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Items   []models.NDRRecord     `json:"items"`
		Summary []models.CategoryCount `json:"summary"`
		Total   int                    `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("expected 3 records, got %d", resp.Total)
	}
	// Remark saying delivered wins over the out-for-delivery status.
	if resp.Summary[0].Label != "Delivered" || resp.Summary[0].Count != 1 {
		t.Fatalf("unexpected summary head: %+v", resp.Summary)
	}
}

func TestListNDRBucketFilter(t *testing.T) {
	r := newNDRRouter(t, sampleNDRRows(), "http://unused.invalid", &webhook.MockDispatcher{})

	req, _ := http.NewRequest(http.MethodGet, "/api/ndr?bucket=CNA", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp struct {
		Items []models.NDRRecord `json:"items"`
		Total int                `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 1 || resp.Items[0].Waybill != "AWB1" {
		t.Fatalf("unexpected filter result: %+v", resp)
	}
}

func TestPatchNDRUpdatesSnapshot(t *testing.T) {
	recorder := &patchRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	r := newNDRRouter(t, sampleNDRRows(), server.URL, &webhook.MockDispatcher{})

	body := map[string]any{
		"call_status":     "Spoke to customer",
		"issue":           "was travelling",
		"bucket_override": "Pending",
	}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPatch, "/api/ndr/AWB1", bytes.NewBuffer(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var updated models.NDRRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if updated.Bucket != "Pending" {
		t.Fatalf("expected override bucket Pending, got %q", updated.Bucket)
	}
	if updated.CallStatus != "Spoke to customer" {
		t.Fatalf("call status not applied: %+v", updated)
	}
	if len(recorder.patches) != 1 {
		t.Fatalf("expected 1 upstream patch, got %d", len(recorder.patches))
	}
}

func TestPatchNDRUnknownWaybill(t *testing.T) {
	r := newNDRRouter(t, sampleNDRRows(), "http://unused.invalid", &webhook.MockDispatcher{})

	b, _ := json.Marshal(map[string]any{"call_status": "x"})
	req, _ := http.NewRequest(http.MethodPatch, "/api/ndr/NOPE", bytes.NewBuffer(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPatchNDRRejectsUnknownBucket(t *testing.T) {
	r := newNDRRouter(t, sampleNDRRows(), "http://unused.invalid", &webhook.MockDispatcher{})

	b, _ := json.Marshal(map[string]any{"bucket_override": "Lost Forever"})
	req, _ := http.NewRequest(http.MethodPatch, "/api/ndr/AWB1", bytes.NewBuffer(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSendNDRMail(t *testing.T) {
	recorder := &patchRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	mock := &webhook.MockDispatcher{}
	r := newNDRRouter(t, sampleNDRRows(), server.URL, mock)

	w := postJSON(t, r, "/api/ndr/AWB2/mail", map[string]any{"email": "meena@example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(mock.Mails) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(mock.Mails))
	}
	if mock.Mails[0].To != "meena@example.com" {
		t.Fatalf("unexpected recipient %q", mock.Mails[0].To)
	}
	// The email_sent flag is patched upstream after dispatch.
	if len(recorder.patches) != 1 {
		t.Fatalf("expected 1 upstream patch, got %d", len(recorder.patches))
	}
}

func TestSendNDRMailInvalidEmail(t *testing.T) {
	r := newNDRRouter(t, sampleNDRRows(), "http://unused.invalid", &webhook.MockDispatcher{})
	w := postJSON(t, r, "/api/ndr/AWB2/mail", map[string]any{"email": "not-an-email"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
