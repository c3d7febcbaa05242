package handlers

import (
	"harvestpay/internal/models"
	"harvestpay/internal/services/settlement"
	"harvestpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	svc *settlement.Service
}

func NewReportHandler(svc *settlement.Service) *ReportHandler {
	return &ReportHandler{svc: svc}
}

func (h *ReportHandler) Revenue(c *fiber.Ctx) error {
	total, err := h.svc.TotalRevenue(c.Context())
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Success(c, "total revenue", total)
}

func (h *ReportHandler) Commissions(c *fiber.Ctx) error {
	total, err := h.svc.TotalCommissions(c.Context())
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Success(c, "total commissions", total)
}

func (h *ReportHandler) Transactions(c *fiber.Ctx) error {
	filter := models.TransactionFilter{
		Type:      models.TransactionType(c.Query("type")),
		Status:    models.TransactionStatus(c.Query("status")),
		RelatedID: c.Query("related_id"),
		Limit:     c.QueryInt("limit", 100),
		Offset:    c.QueryInt("offset", 0),
	}

	txs, err := h.svc.Transactions(c.Context(), filter)
	if err != nil {
		return response.Error(c, statusFromError(err), err.Error())
	}
	return response.Success(c, "transactions retrieved", txs)
}
