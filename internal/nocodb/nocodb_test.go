package nocodb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFieldAnyAliasOrder(t *testing.T) {
	record := map[string]any{
		"agent":      "priya",
		"Agent Name": "Priya S",
	}
	if got := FieldAny(record, "Agent", "agent", "Agent Name"); got != "priya" {
		t.Fatalf("expected first non-empty alias, got %q", got)
	}
	if got := FieldAny(record, "Courier", "courier"); got != "" {
		t.Fatalf("expected empty for missing field, got %q", got)
	}
}

func TestFieldAnySkipsEmptyValues(t *testing.T) {
	record := map[string]any{
		"Agent": "",
		"agent": "ravi",
	}
	if got := FieldAny(record, "Agent", "agent"); got != "ravi" {
		t.Fatalf("expected empty string alias skipped, got %q", got)
	}
}

func TestListPaginationAndAuth(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xc-token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		calls++
		offset := r.URL.Query().Get("offset")
		resp := listResponse{PageInfo: pageInfo{TotalRows: 3}}
		if offset == "0" {
			resp.List = []map[string]any{{"Id": float64(1)}, {"Id": float64(2)}}
		} else {
			resp.List = []map[string]any{{"Id": float64(3)}}
			resp.PageInfo.IsLastPage = true
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, Token: "tok"}
	rows, err := c.ListAll(context.Background(), "tbl1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if calls != 2 {
		t.Fatalf("expected 2 pages fetched, got %d", calls)
	}

	bad := &Client{BaseURL: srv.URL, Token: "wrong"}
	if _, err := bad.ListAll(context.Background(), "tbl1", ""); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRecordID(t *testing.T) {
	if got := RecordID(map[string]any{"Id": float64(42)}); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := RecordID(map[string]any{}); got != 0 {
		t.Fatalf("expected 0 for missing id, got %d", got)
	}
}
