package handlers

import (
	"strconv"

	"harvestpay/internal/models"
	"harvestpay/internal/services/settlement"
	"harvestpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type PayoutHandler struct {
	svc *settlement.Service
}

func NewPayoutHandler(svc *settlement.Service) *PayoutHandler {
	return &PayoutHandler{svc: svc}
}

func (h *PayoutHandler) RequestPayout(c *fiber.Ctx) error {
	var req settlement.PayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	p, err := h.svc.RequestPayout(c.Context(), req)
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Created(c, "payout requested", p)
}

func (h *PayoutHandler) Approve(c *fiber.Ctx) error {
	id, err := payoutID(c)
	if err != nil {
		return response.BadRequest(c, "invalid payout id")
	}
	claims := c.Locals("claims").(*models.ActorClaims)

	p, err := h.svc.ApprovePayout(c.Context(), claims.UserID, id)
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Success(c, "payout approved", p)
}

// Reject declines a payout still awaiting approval.
func (h *PayoutHandler) Reject(c *fiber.Ctx) error {
	id, err := payoutID(c)
	if err != nil {
		return response.BadRequest(c, "invalid payout id")
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	claims := c.Locals("claims").(*models.ActorClaims)

	p, err := h.svc.RejectPayout(c.Context(), claims.UserID, id, body.Reason)
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Success(c, "payout rejected", p)
}

func (h *PayoutHandler) Process(c *fiber.Ctx) error {
	id, err := payoutID(c)
	if err != nil {
		return response.BadRequest(c, "invalid payout id")
	}

	p, err := h.svc.ProcessPayout(c.Context(), id)
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Success(c, "payout processing", p)
}

// Complete records the disbursement provider's success callback.
func (h *PayoutHandler) Complete(c *fiber.Ctx) error {
	id, err := payoutID(c)
	if err != nil {
		return response.BadRequest(c, "invalid payout id")
	}

	p, err := h.svc.CompletePayout(c.Context(), id)
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Success(c, "payout completed", p)
}

// Fail records the disbursement provider's failure callback or an
// operator rejection.
func (h *PayoutHandler) Fail(c *fiber.Ctx) error {
	id, err := payoutID(c)
	if err != nil {
		return response.BadRequest(c, "invalid payout id")
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	p, err := h.svc.FailPayout(c.Context(), id, body.Reason)
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Success(c, "payout failed", p)
}

func (h *PayoutHandler) Get(c *fiber.Ctx) error {
	id, err := payoutID(c)
	if err != nil {
		return response.BadRequest(c, "invalid payout id")
	}

	p, err := h.svc.GetPayout(c.Context(), id)
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Success(c, "payout retrieved", p)
}

func (h *PayoutHandler) List(c *fiber.Ctx) error {
	var (
		payouts []models.Payout
		err     error
	)
	switch c.Query("status") {
	case "completed":
		payouts, err = h.svc.CompletedPayouts(c.Context())
	default:
		payouts, err = h.svc.PendingPayouts(c.Context())
	}
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Success(c, "payouts retrieved", payouts)
}

func (h *PayoutHandler) ListByFarmer(c *fiber.Ctx) error {
	farmerID, err := strconv.ParseUint(c.Params("farmerId"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid farmer id")
	}

	payouts, err := h.svc.FarmerPayouts(c.Context(), uint(farmerID))
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Success(c, "payouts retrieved", payouts)
}

func payoutID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err
}
