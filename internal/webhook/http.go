package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/karigai-ops/backend/internal/models"
)

type HTTPDispatcher struct {
	OrderCreateURL    string
	OrderFetchURL     string
	TrackingUpdateURL string
	NDRMailerURL      string
	Client            *http.Client
}

func (h *HTTPDispatcher) httpClient() *http.Client {
	if h.Client == nil {
		h.Client = &http.Client{Timeout: 15 * time.Second}
	}
	return h.Client
}

func (h *HTTPDispatcher) post(ctx context.Context, url string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New("webhook error: " + resp.Status)
	}
	return nil
}

func (h *HTTPDispatcher) CreateOrder(ctx context.Context, order models.Order) error {
	return h.post(ctx, h.OrderCreateURL, order)
}

func (h *HTTPDispatcher) GetOrders(ctx context.Context) ([]models.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.OrderFetchURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("webhook error: " + resp.Status)
	}

	var orders []models.Order
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (h *HTTPDispatcher) UpdateTracking(ctx context.Context, entry models.TrackingEntry) error {
	return h.post(ctx, h.TrackingUpdateURL, entry)
}

func (h *HTTPDispatcher) SendNDRMail(ctx context.Context, mail NDRMail) error {
	return h.post(ctx, h.NDRMailerURL, mail)
}
