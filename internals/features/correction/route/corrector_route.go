package route

import (
	"github.com/gofiber/fiber/v2"

	corrCtl "longessay_backend/internals/features/correction/controller"
	rateLimiter "longessay_backend/internals/middlewares"
	authMiddleware "longessay_backend/internals/middlewares/auth"
)

// CorrectorRoutes mounts the corrector app API on r (already authenticated).
func CorrectorRoutes(r fiber.Router, ctl *corrCtl.CorrectorController) {
	// ----- documents -----
	r.Get("/data", ctl.GetData)
	r.Get("/item/:key", ctl.GetItem)
	r.Get("/escalation/:key", ctl.GetEscalation)

	// ----- binaries (file token) -----
	r.Get("/file/:key", ctl.GetFile)
	r.Get("/page/:key", ctl.GetPage)
	r.Get("/thumb/:key", ctl.GetThumb)

	// ----- mutations -----
	limit := rateLimiter.ChangesRateLimiter()
	corrector := authMiddleware.OnlyCapabilities("Only correctors can send changes", authMiddleware.CapCorrector)
	r.Put("/changes", corrector, limit, ctl.PutChanges)
	r.Put("/changes/:key", corrector, limit, ctl.PutItemChanges)
	r.Put("/summary/:key", corrector, limit, ctl.PutSummary)
	r.Put("/stitch/:key",
		authMiddleware.OnlyCapabilities("Only the stitch decision session can finalize", authMiddleware.CapStitchDecision),
		limit, ctl.PutStitch)
}
