package details

import (
	"github.com/gofiber/fiber/v2"

	corrCtl "longessay_backend/internals/features/correction/controller"
	"longessay_backend/internals/features/correction/files"
	corrRoute "longessay_backend/internals/features/correction/route"
	"longessay_backend/internals/features/correction/service"
	rateLimiter "longessay_backend/internals/middlewares"
	authMiddleware "longessay_backend/internals/middlewares/auth"
)

type CorrectionDeps struct {
	Service   *service.CorrectionService
	Files     *files.Delivery
	JWTSecret string
}

func CorrectionRoutes(app *fiber.App, d CorrectionDeps) {
	api := app.Group("/api",
		rateLimiter.GlobalRateLimiter(),
	)

	// 🔐 /api/corrector/... : corrector, review and stitch sessions
	corrector := api.Group("/corrector",
		authMiddleware.AuthJWT(authMiddleware.AuthJWTOpts{
			Secret:              d.JWTSecret,
			AllowCookieFallback: true,
		}),
	)
	corrRoute.CorrectorRoutes(corrector, corrCtl.NewCorrectorController(d.Service, d.Files))
}
