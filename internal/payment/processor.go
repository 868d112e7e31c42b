package payment

import "context"

// Session is the processor's view of a hosted checkout.
type Session struct {
	ID      string
	URL     string
	OrderID string
	Paid    bool
}

// SessionParams describes the charge for one order. Amounts are in minor
// units (cents) because hosted-checkout APIs take integers.
type SessionParams struct {
	OrderID     string
	AmountCents int64
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
}

// Processor is the external payment collaborator. GetSession is the source
// of truth for "did payment succeed"; redirect parameters never are.
type Processor interface {
	CreateSession(ctx context.Context, params SessionParams) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
}
