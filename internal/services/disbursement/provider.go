// Package disbursement is the port to the external payout provider. The
// engine submits a disbursement while the payout sits in processing; the
// provider's asynchronous outcome drives complete or fail. Retry policy
// belongs to the provider integration, never to the engine.
package disbursement

import (
	"context"

	"harvestpay/internal/models"
)

// Request is what the provider needs to move the farmer's net amount.
type Request struct {
	PayoutID      uint
	AccountNumber string
	NetAmount     models.Money
	PaymentMethod string
	Description   string
}

// Provider submits a disbursement. A nil error means the submission was
// accepted, not that the money arrived.
type Provider interface {
	Disburse(ctx context.Context, req Request) error
}

// ManualProvider accepts every submission and reports nothing; outcomes
// are recorded out-of-band by an operator. Used in development and tests.
type ManualProvider struct{}

func (ManualProvider) Disburse(ctx context.Context, req Request) error {
	return nil
}
