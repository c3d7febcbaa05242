package handlers

import (
	"errors"

	"harvestpay/internal/services/commission"
	"harvestpay/internal/services/dispute"
	"harvestpay/internal/services/ledger"
	"harvestpay/internal/services/payout"
	"harvestpay/internal/services/settlement"

	"github.com/gofiber/fiber/v2"
)

// statusFromError maps engine errors onto HTTP statuses. Everything
// unrecognized is a server error.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, payout.ErrInvalidAmount),
		errors.Is(err, payout.ErrInvalidHoldingPeriod),
		errors.Is(err, dispute.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidStatus),
		errors.Is(err, commission.ErrInvalidRate):
		return fiber.StatusBadRequest
	case errors.Is(err, payout.ErrUnknownPayout),
		errors.Is(err, dispute.ErrUnknownDispute),
		errors.Is(err, ledger.ErrUnknownTransaction),
		errors.Is(err, settlement.ErrUnknownOrder):
		return fiber.StatusNotFound
	case errors.Is(err, settlement.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, payout.ErrIllegalTransition),
		errors.Is(err, dispute.ErrIllegalTransition),
		errors.Is(err, ledger.ErrIllegalTransition),
		errors.Is(err, ledger.ErrDuplicateTransaction),
		errors.Is(err, payout.ErrHoldingPeriodNotElapsed),
		errors.Is(err, settlement.ErrDisputeBlocksPayout):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
