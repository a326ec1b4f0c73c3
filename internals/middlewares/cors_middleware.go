// middlewares/cors.go

package middlewares

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"longessay_backend/internals/configs"
	helper "longessay_backend/internals/helpers"
)

const defaultOrigins = "http://localhost:5173,http://127.0.0.1:5173"

// CorsMiddleware allows the corrector web app origins from CORS_ORIGINS.
func CorsMiddleware() fiber.Handler {
	origins := make([]string, 0)
	for _, o := range strings.Split(configs.GetEnv("CORS_ORIGINS", defaultOrigins), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ", "),
		AllowMethods: "GET,PUT,OPTIONS",
		AllowHeaders: strings.Join([]string{
			"Origin", "Content-Type", "Accept", "Authorization",
			helper.HeaderDataToken, helper.HeaderFileToken,
		}, ", "),
		ExposeHeaders:    strings.Join([]string{helper.HeaderDataToken, helper.HeaderFileToken, "X-Request-ID"}, ", "),
		AllowCredentials: true,
	})
}
