package handlers

import (
	"strconv"

	"harvestpay/internal/models"
	"harvestpay/internal/services/settlement"
	"harvestpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type DisputeHandler struct {
	svc *settlement.Service
}

func NewDisputeHandler(svc *settlement.Service) *DisputeHandler {
	return &DisputeHandler{svc: svc}
}

func (h *DisputeHandler) Open(c *fiber.Ctx) error {
	var req settlement.DisputeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	d, err := h.svc.OpenDispute(c.Context(), req)
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Created(c, "dispute opened", d)
}

func (h *DisputeHandler) Investigate(c *fiber.Ctx) error {
	id, err := disputeID(c)
	if err != nil {
		return response.BadRequest(c, "invalid dispute id")
	}

	d, err := h.svc.InvestigateDispute(c.Context(), id)
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Success(c, "investigation started", d)
}

func (h *DisputeHandler) Resolve(c *fiber.Ctx) error {
	id, err := disputeID(c)
	if err != nil {
		return response.BadRequest(c, "invalid dispute id")
	}

	var body struct {
		Resolution   string `json:"resolution"`
		ShouldRefund bool   `json:"should_refund"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	claims := c.Locals("claims").(*models.ActorClaims)

	d, err := h.svc.ResolveDispute(c.Context(), claims.UserID, id, body.Resolution, body.ShouldRefund)
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Success(c, "dispute resolved", d)
}

func (h *DisputeHandler) Get(c *fiber.Ctx) error {
	id, err := disputeID(c)
	if err != nil {
		return response.BadRequest(c, "invalid dispute id")
	}

	d, err := h.svc.GetDispute(c.Context(), id)
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Success(c, "dispute retrieved", d)
}

func disputeID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err
}
