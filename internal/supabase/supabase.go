package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/karigai-ops/backend/internal/models"
)

// Client talks to the Supabase REST surface and the Postgres stored
// functions exposed under /rest/v1/rpc.
type Client struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NDRRow is the raw shape of one delivery-exception row. Notes stays a
// string here; decoding the blob is the NDR service's job.
type NDRRow struct {
	ID             int64  `json:"id"`
	Waybill        string `json:"waybill"`
	OrderNumber    string `json:"order_number"`
	Courier        string `json:"courier"`
	DeliveryStatus string `json:"delivery_status"`
	Remark         string `json:"remark"`
	EventTime      string `json:"event_time"`
	PartnerEDD     string `json:"partner_edd"`
	CallStatus     string `json:"call_status"`
	EmailSent      bool   `json:"email_sent"`
	Notes          string `json:"notes"`
}

func (c *Client) httpClient() *http.Client {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 20 * time.Second}
	}
	return c.Client
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var buf *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewBuffer(b)
	} else {
		buf = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("supabase http error: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) ListNDR(ctx context.Context, table string) ([]NDRRow, error) {
	var rows []NDRRow
	path := fmt.Sprintf("/rest/v1/%s?select=*&order=event_time.desc", table)
	if err := c.do(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// PatchNDR updates fields on the row matching the waybill.
func (c *Client) PatchNDR(ctx context.Context, table string, waybill string, fields map[string]any) error {
	path := fmt.Sprintf("/rest/v1/%s?waybill=eq.%s", table, url.QueryEscape(waybill))
	return c.do(ctx, http.MethodPatch, path, fields, nil)
}

// GetRepeatLeads invokes get_repeat_orders_with_assignments. The aggregate
// is computed by the stored function; nothing is recomputed here.
func (c *Client) GetRepeatLeads(ctx context.Context) ([]models.RepeatLead, error) {
	var leads []models.RepeatLead
	err := c.do(ctx, http.MethodPost, "/rest/v1/rpc/get_repeat_orders_with_assignments",
		map[string]any{}, &leads)
	if err != nil {
		return nil, err
	}
	return leads, nil
}

func (c *Client) AssignOrders(ctx context.Context, orderNumbers []string, assignee string, teamID string) error {
	return c.do(ctx, http.MethodPost, "/rest/v1/rpc/assign_orders_by_number", map[string]any{
		"p_order_numbers": orderNumbers,
		"p_assigned_to":   assignee,
		"p_team_id":       teamID,
	}, nil)
}

func (c *Client) UpdateCallStatus(ctx context.Context, phone string, status string) error {
	return c.do(ctx, http.MethodPost, "/rest/v1/rpc/update_call_status", map[string]any{
		"p_phone":       phone,
		"p_call_status": status,
	}, nil)
}

// AllocatePercent invokes allocate_repeat_orders_percent_v1, which spreads
// unassigned leads across agents by percentage on the server.
func (c *Client) AllocatePercent(ctx context.Context, teamID string, shares map[string]int) (map[string]any, error) {
	var result map[string]any
	err := c.do(ctx, http.MethodPost, "/rest/v1/rpc/allocate_repeat_orders_percent_v1", map[string]any{
		"p_team_id": teamID,
		"p_shares":  shares,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}
