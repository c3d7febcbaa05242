// Package commission implements the platform commission split applied to
// every payout. The split is pure and idempotent: no side effects, same
// inputs always produce the same outputs.
package commission

import (
	"errors"
	"math"

	"harvestpay/internal/models"
)

// ErrInvalidRate is returned when the rate falls outside [0, 100].
var ErrInvalidRate = errors.New("commission rate must be between 0 and 100")

type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Split divides a gross amount into platform commission and farmer net.
// Commission rounds half-up to the nearest minor unit; net is the exact
// remainder, so commission + net always equals gross with no drift.
func (c *Calculator) Split(gross models.Money, ratePercent float64) (commission, net models.Money, err error) {
	if ratePercent < 0 || ratePercent > 100 || math.IsNaN(ratePercent) {
		return models.Money{}, models.Money{}, ErrInvalidRate
	}

	fee := int64(math.Floor(float64(gross.Amount)*ratePercent/100 + 0.5))
	commission = models.NewMoney(fee, gross.Currency)
	net = models.NewMoney(gross.Amount-fee, gross.Currency)
	return commission, net, nil
}
