package webhook

import (
	"context"

	"github.com/karigai-ops/backend/internal/models"
)

type NDRMail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// Dispatcher covers every n8n webhook the console writes through. Each call
// is one HTTP request judged purely by status code; a failure surfaces to
// the operator, who retries by resubmitting the form.
type Dispatcher interface {
	CreateOrder(ctx context.Context, order models.Order) error
	GetOrders(ctx context.Context) ([]models.Order, error)
	UpdateTracking(ctx context.Context, entry models.TrackingEntry) error
	SendNDRMail(ctx context.Context, mail NDRMail) error
}
