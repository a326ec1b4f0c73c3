package routes

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

func BaseRoutes(app *fiber.App, d Deps) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Long essay correction backend 🚀")
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		dbStatus := "Not used"
		serverStatus := "OK"
		httpStatus := fiber.StatusOK

		if d.DB != nil {
			dbStatus = "Connected"
			sqlDB, err := d.DB.DB()
			if err != nil || sqlDB.PingContext(c.UserContext()) != nil {
				dbStatus = "Database connection error"
				serverStatus = "DOWN"
				httpStatus = fiber.StatusServiceUnavailable
			}
		}

		return c.Status(httpStatus).JSON(fiber.Map{
			"status":         serverStatus,
			"database":       dbStatus,
			"store_driver":   d.Driver,
			"server_time":    time.Now().Format(time.RFC3339),
			"uptime_seconds": int(time.Since(startTime).Seconds()),
			"environment":    os.Getenv("RAILWAY_ENVIRONMENT"),
		})
	})
}
