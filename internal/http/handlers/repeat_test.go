package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/karigai-ops/backend/internal/callcenter"
	"github.com/karigai-ops/backend/internal/models"
	"github.com/karigai-ops/backend/internal/service"
	"github.com/karigai-ops/backend/internal/supabase"
)

// repeatServer answers the stored-function calls the repeat handlers make.
func repeatServer(t *testing.T, leads []models.RepeatLead) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/rpc/get_repeat_orders_with_assignments"):
			_ = json.NewEncoder(w).Encode(leads)
		case strings.HasSuffix(r.URL.Path, "/rpc/assign_orders_by_number"),
			strings.HasSuffix(r.URL.Path, "/rpc/update_call_status"):
			w.WriteHeader(http.StatusNoContent)
		case strings.HasSuffix(r.URL.Path, "/rpc/allocate_repeat_orders_percent_v1"):
			_ = json.NewEncoder(w).Encode(map[string]any{"allocated": len(leads)})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newRepeatRouter(supaURL string, dialer callcenter.Dialer) *gin.Engine {
	h := &Handler{
		Supa:      &supabase.Client{BaseURL: supaURL, APIKey: "test"},
		Dialer:    dialer,
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
	}
	r := gin.New()
	r.GET("/api/repeat/leads", h.ListLeads)
	r.POST("/api/repeat/assign", h.AssignLeads)
	r.POST("/api/repeat/call-status", h.UpdateCallStatus)
	r.POST("/api/repeat/allocate", h.AllocateLeads)
	r.POST("/api/repeat/call", h.Call)
	return r
}

func sampleLeads() []models.RepeatLead {
	return []models.RepeatLead{
		{Phone: "9000000001", CustomerName: "Meena", OrderCount: 4},
		{Phone: "9000000002", CustomerName: "Ravi", OrderCount: 2, AssignedTo: "priya"},
		{Phone: "9000000003", CustomerName: "Latha", OrderCount: 3},
	}
}

func TestListLeadsUnassignedFilter(t *testing.T) {
	server := repeatServer(t, sampleLeads())
	defer server.Close()
	r := newRepeatRouter(server.URL, &callcenter.MockDialer{})

	req, _ := http.NewRequest(http.MethodGet, "/api/repeat/leads?unassigned=true&min_orders=3", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Items []models.RepeatLead `json:"items"`
		Total int                 `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected 2 leads, got %d", resp.Total)
	}
	for _, lead := range resp.Items {
		if lead.AssignedTo != "" {
			t.Fatalf("assigned lead leaked through filter: %+v", lead)
		}
	}
}

func TestAssignLeads(t *testing.T) {
	server := repeatServer(t, sampleLeads())
	defer server.Close()
	r := newRepeatRouter(server.URL, &callcenter.MockDialer{})

	w := postJSON(t, r, "/api/repeat/assign", map[string]any{
		"order_numbers": []string{"KG-1", "KG-2"},
		"assigned_to":   "priya",
		"team_id":       "team-a",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAllocateRejectsBadShares(t *testing.T) {
	server := repeatServer(t, sampleLeads())
	defer server.Close()
	r := newRepeatRouter(server.URL, &callcenter.MockDialer{})

	w := postJSON(t, r, "/api/repeat/allocate", map[string]any{
		"shares": []service.AllocationShare{{Agent: "priya", Percent: 60}, {Agent: "kumar", Percent: 30}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for shares summing to 90, got %d", w.Code)
	}
}

func TestAllocatePreview(t *testing.T) {
	server := repeatServer(t, sampleLeads())
	defer server.Close()
	r := newRepeatRouter(server.URL, &callcenter.MockDialer{})

	w := postJSON(t, r, "/api/repeat/allocate", map[string]any{
		"shares": []service.AllocationShare{{Agent: "priya", Percent: 50}, {Agent: "kumar", Percent: 50}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Preview  []service.AllocationPreview `json:"preview"`
		Executed bool                        `json:"executed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Executed {
		t.Fatal("preview must not execute")
	}
	total := 0
	for _, p := range resp.Preview {
		total += len(p.Phones)
	}
	// Two of the three sample leads are unassigned.
	if total != 2 {
		t.Fatalf("expected 2 previewed leads, got %d", total)
	}
}

func TestAllocateExecute(t *testing.T) {
	server := repeatServer(t, sampleLeads())
	defer server.Close()
	r := newRepeatRouter(server.URL, &callcenter.MockDialer{})

	w := postJSON(t, r, "/api/repeat/allocate", map[string]any{
		"team_id": "team-a",
		"shares":  []service.AllocationShare{{Agent: "priya", Percent: 100}},
		"execute": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"executed":true`) {
		t.Fatalf("expected executed flag in %s", w.Body.String())
	}
}

func TestCallUsesDialer(t *testing.T) {
	dialer := &callcenter.MockDialer{}
	r := newRepeatRouter("http://unused.invalid", dialer)

	w := postJSON(t, r, "/api/repeat/call", map[string]any{
		"customer_phone": "9000000001",
		"agent_phone":    "9111111111",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(dialer.Calls) != 1 || dialer.Calls[0] != [2]string{"9111111111", "9000000001"} {
		t.Fatalf("unexpected dial record: %+v", dialer.Calls)
	}
}

func TestCallNeedsAgentPhone(t *testing.T) {
	r := newRepeatRouter("http://unused.invalid", &callcenter.MockDialer{})
	w := postJSON(t, r, "/api/repeat/call", map[string]any{"customer_phone": "9000000001"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without agent phone, got %d", w.Code)
	}
}
