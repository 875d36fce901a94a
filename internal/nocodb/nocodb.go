package nocodb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

var ErrUnauthorized = errors.New("nocodb token rejected")

// Client talks to the NocoDB REST v2 table API.
type Client struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type listResponse struct {
	List     []map[string]any `json:"list"`
	PageInfo pageInfo         `json:"pageInfo"`
}

type pageInfo struct {
	TotalRows  int  `json:"totalRows"`
	IsLastPage bool `json:"isLastPage"`
}

func (c *Client) httpClient() *http.Client {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 20 * time.Second}
	}
	return c.Client
}

// List fetches one page of records. where follows NocoDB filter expression
// syntax, e.g. (Order Number,eq,KG-1042).
func (c *Client) List(ctx context.Context, tableID string, where string, limit, offset int) ([]map[string]any, int, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if where != "" {
		q.Set("where", where)
	}
	endpoint := fmt.Sprintf("%s/api/v2/tables/%s/records?%s", c.BaseURL, tableID, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("xc-token", c.Token)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, 0, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, 0, fmt.Errorf("nocodb http error: %s", resp.Status)
	}

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, 0, err
	}
	return body.List, body.PageInfo.TotalRows, nil
}

// ListAll pages through a table until exhausted. Observed scale is hundreds
// to low thousands of rows, so this fetches in one pass.
func (c *Client) ListAll(ctx context.Context, tableID string, where string) ([]map[string]any, error) {
	const pageSize = 200
	var out []map[string]any
	offset := 0
	for {
		page, total, err := c.List(ctx, tableID, where, pageSize, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		offset += len(page)
		if len(page) == 0 || offset >= total {
			return out, nil
		}
	}
}

// Patch updates fields on existing records. Each record map must carry the
// "Id" key alongside the fields to change.
func (c *Client) Patch(ctx context.Context, tableID string, records []map[string]any) error {
	b, err := json.Marshal(records)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/api/v2/tables/%s/records", c.BaseURL, tableID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewBuffer(b))
	if err != nil {
		return err
	}
	req.Header.Set("xc-token", c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("nocodb http error: %s", resp.Status)
	}
	return nil
}

// FieldAny resolves a value by trying column-name aliases in order. The
// remote schema is unvalidated and column names drift, so alias resolution
// lives here at the client boundary and nowhere else.
func FieldAny(record map[string]any, names ...string) string {
	for _, name := range names {
		if v, ok := record[name]; ok && v != nil {
			switch t := v.(type) {
			case string:
				if t != "" {
					return t
				}
			case float64:
				return strconv.FormatFloat(t, 'f', -1, 64)
			case bool:
				return strconv.FormatBool(t)
			}
		}
	}
	return ""
}

// RecordID extracts the NocoDB row id from a record.
func RecordID(record map[string]any) int64 {
	switch t := record["Id"].(type) {
	case float64:
		return int64(t)
	case json.Number:
		i, _ := t.Int64()
		return i
	default:
		return 0
	}
}
