package callcenter

import "context"

// Dialer initiates a click-to-call between an agent and a customer through
// a hosted telephony provider. The provider only acknowledges the request;
// call progress is never reported back to this service.
type Dialer interface {
	Dial(ctx context.Context, agentPhone, customerPhone string) error
}
