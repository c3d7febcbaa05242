// Package main is the entry point for the settlement engine. It wires the
// repositories, the engine services and the HTTP surface, then starts the
// server.
package main

import (
	"time"

	"harvestpay/internal/config"
	"harvestpay/internal/repositories"
	"harvestpay/internal/repositories/cache"
	"harvestpay/internal/routes"
	"harvestpay/internal/services/commission"
	"harvestpay/internal/services/disbursement"
	"harvestpay/internal/services/dispute"
	"harvestpay/internal/services/ledger"
	"harvestpay/internal/services/payout"
	"harvestpay/internal/services/settlement"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnv()

	if config.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	db, err := repositories.Connect()
	if err != nil {
		logrus.WithError(err).Fatal("database initialization failed")
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	cacheService := cache.NewCacheService(redisClient)
	defer cacheService.Close()

	var provider disbursement.Provider = disbursement.ManualProvider{}
	if key := config.GetEnv("STRIPE_SECRET_KEY", ""); key != "" {
		provider = disbursement.NewStripeProvider(key)
		logrus.Info("stripe disbursement provider enabled")
	}

	ledgerSvc := ledger.NewService(repositories.NewLedgerRepository(db))
	payoutSvc := payout.NewService(payout.Config{
		Repo: repositories.NewPayoutRepository(db),
		Calc: commission.NewCalculator(),
	})
	disputeSvc := dispute.NewService(repositories.NewDisputeRepository(db))

	settlementSvc := settlement.NewService(settlement.Config{
		Ledger:                ledgerSvc,
		Payouts:               payoutSvc,
		Disputes:              disputeSvc,
		Provider:              provider,
		Cache:                 cacheService,
		CommissionRatePercent: config.GetFloatEnv("COMMISSION_RATE_PERCENT", 5),
		HoldingPeriodDays:     config.GetIntEnv("HOLDING_PERIOD_DAYS", 7),
		Currency:              config.GetEnv("PAYOUT_CURRENCY", "GHS"),
	})

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use("/api", limiter.New(limiter.Config{
		Max:        config.GetIntEnv("RATE_LIMIT_PER_MINUTE", 120),
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	}))

	routes.SetupRoutes(app, settlementSvc, db, cacheService)

	port := config.GetEnv("PORT", "3000")
	logrus.WithField("port", port).Info("settlement engine listening")
	logrus.Fatal(app.Listen(":" + port))
}
