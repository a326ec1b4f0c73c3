package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"longessay_backend/internals/middlewares/logger"
)

// SetupMiddlewares installs the global middleware chain.
func SetupMiddlewares(app *fiber.App) {
	app.Use(RecoveryMiddleware())
	app.Use(logger.LoggerMiddleware())
	app.Use(CorsMiddleware())
}
