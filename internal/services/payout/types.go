package payout

import (
	"time"

	"harvestpay/internal/models"
	"harvestpay/internal/repositories"
	"harvestpay/internal/services/commission"
)

// RequestInput carries everything needed to open a payout. Commission and
// net are derived from TotalAmount and RatePercent at request time.
type RequestInput struct {
	FarmerID          uint
	FarmerName        string
	Email             string
	TotalAmount       models.Money
	RatePercent       float64
	HoldingPeriodDays int
	PaymentMethod     string
	AccountNumber     string
	Notes             string
}

// Config wires the service. Clock is injectable so holding-period rules
// can be exercised in tests; it defaults to time.Now.
type Config struct {
	Repo  repositories.PayoutRepository
	Calc  *commission.Calculator
	Clock func() time.Time
}
