package handlers

import (
	"harvestpay/internal/repositories/cache"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	cache *cache.CacheService
}

func NewHealthHandler(db *gorm.DB, cacheService *cache.CacheService) *HealthHandler {
	return &HealthHandler{db: db, cache: cacheService}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := fiber.Map{"status": "ok"}

	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err != nil || sqlDB.Ping() != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
		}
	}
	if h.cache != nil {
		if err := h.cache.HealthCheck(c.Context()); err != nil {
			status["status"] = "degraded"
			status["cache"] = "unreachable"
		}
	}

	code := fiber.StatusOK
	if status["status"] != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(status)
}
