package callcenter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// CallerdeskDialer triggers calls through the callerdesk.io click-to-call
// endpoint. Parameters go in the query string.
type CallerdeskDialer struct {
	BaseURL string
	AuthKey string
	Client  *http.Client
}

func (d *CallerdeskDialer) Dial(ctx context.Context, agentPhone, customerPhone string) error {
	if d.Client == nil {
		d.Client = &http.Client{Timeout: 10 * time.Second}
	}
	q := url.Values{}
	q.Set("authcode", d.AuthKey)
	q.Set("call_from", agentPhone)
	q.Set("call_to", customerPhone)
	endpoint := fmt.Sprintf("%s/click_to_call_v2?%s", d.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New("callerdesk error: " + resp.Status)
	}
	return nil
}

// McubeDialer triggers calls through mcube.com. Parameters go in a JSON
// body with the auth key as a header.
type McubeDialer struct {
	BaseURL string
	AuthKey string
	Client  *http.Client
}

func (d *McubeDialer) Dial(ctx context.Context, agentPhone, customerPhone string) error {
	if d.Client == nil {
		d.Client = &http.Client{Timeout: 10 * time.Second}
	}
	payload := map[string]string{
		"exenumber":  agentPhone,
		"custnumber": customerPhone,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL+"/outboundcall", bytes.NewBuffer(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", d.AuthKey)

	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New("mcube error: " + resp.Status)
	}
	return nil
}

// MockDialer records dial requests for dev and tests.
type MockDialer struct {
	mu    sync.Mutex
	Calls [][2]string
	Err   error
}

func (d *MockDialer) Dial(ctx context.Context, agentPhone, customerPhone string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.Calls = append(d.Calls, [2]string{agentPhone, customerPhone})
	return nil
}
