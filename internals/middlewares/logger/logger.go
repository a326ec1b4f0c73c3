package logger

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"longessay_backend/internals/configs"
)

// LoggerMiddleware writes one access log line per request
func LoggerMiddleware() fiber.Handler {
	return logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   configs.GetEnv("LOG_TIMEZONE", "Local"),
		Format:     "[${time}] ${ip} - ${locals:reqid} ${method} ${path} - ${status} - ${latency}\n",
	})
}
