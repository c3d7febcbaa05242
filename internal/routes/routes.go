// Package routes wires the HTTP surface onto the settlement engine. Any
// RPC or REST mapping that preserves the operation contracts would do;
// this one mirrors the lifecycle operations one-to-one.
package routes

import (
	"harvestpay/internal/handlers"
	"harvestpay/internal/middleware"
	"harvestpay/internal/repositories/cache"
	"harvestpay/internal/services/settlement"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, svc *settlement.Service, db *gorm.DB, cacheService *cache.CacheService) {
	payoutHandler := handlers.NewPayoutHandler(svc)
	disputeHandler := handlers.NewDisputeHandler(svc)
	reportHandler := handlers.NewReportHandler(svc)
	healthHandler := handlers.NewHealthHandler(db, cacheService)

	app.Get("/health", healthHandler.Check)

	api := app.Group("/api", middleware.Auth())

	payouts := api.Group("/payouts")
	payouts.Post("/", payoutHandler.RequestPayout)
	payouts.Get("/", payoutHandler.List)
	payouts.Get("/:id", payoutHandler.Get)
	payouts.Post("/:id/approve", middleware.RequireRole("admin"), payoutHandler.Approve)
	payouts.Post("/:id/reject", middleware.RequireRole("admin"), payoutHandler.Reject)
	payouts.Post("/:id/process", middleware.RequireRole("admin"), payoutHandler.Process)
	payouts.Post("/:id/complete", payoutHandler.Complete)
	payouts.Post("/:id/fail", payoutHandler.Fail)

	api.Get("/farmers/:farmerId/payouts", payoutHandler.ListByFarmer)

	disputes := api.Group("/disputes")
	disputes.Post("/", disputeHandler.Open)
	disputes.Get("/:id", disputeHandler.Get)
	disputes.Post("/:id/investigate", middleware.RequireRole("admin"), disputeHandler.Investigate)
	disputes.Post("/:id/resolve", middleware.RequireRole("admin"), disputeHandler.Resolve)

	reports := api.Group("/reports", middleware.RequireRole("admin"))
	reports.Get("/revenue", reportHandler.Revenue)
	reports.Get("/commissions", reportHandler.Commissions)
	reports.Get("/transactions", reportHandler.Transactions)
}
