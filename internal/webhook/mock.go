package webhook

import (
	"context"
	"sync"

	"github.com/karigai-ops/backend/internal/models"
)

// MockDispatcher records calls in memory. Used in dev when no webhook URLs
// are configured, and by handler tests.
type MockDispatcher struct {
	mu       sync.Mutex
	Orders   []models.Order
	Tracking []models.TrackingEntry
	Mails    []NDRMail
	Err      error
}

func (m *MockDispatcher) CreateOrder(ctx context.Context, order models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Orders = append(m.Orders, order)
	return nil
}

func (m *MockDispatcher) GetOrders(ctx context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Order, len(m.Orders))
	copy(out, m.Orders)
	return out, nil
}

func (m *MockDispatcher) UpdateTracking(ctx context.Context, entry models.TrackingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Tracking = append(m.Tracking, entry)
	for i := range m.Orders {
		if m.Orders[i].OrderNumber == entry.Order {
			m.Orders[i].TrackingCode = entry.Tracking
		}
	}
	return nil
}

func (m *MockDispatcher) SendNDRMail(ctx context.Context, mail NDRMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Mails = append(m.Mails, mail)
	return nil
}
