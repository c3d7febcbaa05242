package disbursement

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v72"
	stripepayout "github.com/stripe/stripe-go/v72/payout"
)

// StripeProvider submits disbursements through the Stripe Payouts API.
type StripeProvider struct{}

func NewStripeProvider(secretKey string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{}
}

func (p *StripeProvider) Disburse(ctx context.Context, req Request) error {
	params := &stripe.PayoutParams{
		Amount:      stripe.Int64(req.NetAmount.Amount),
		Currency:    stripe.String(strings.ToLower(req.NetAmount.Currency)),
		Destination: stripe.String(req.AccountNumber),
		Description: stripe.String(req.Description),
	}
	params.Context = ctx
	params.AddMetadata("payout_id", strconv.FormatUint(uint64(req.PayoutID), 10))

	if _, err := stripepayout.New(params); err != nil {
		return fmt.Errorf("stripe payout submission: %w", err)
	}
	return nil
}
