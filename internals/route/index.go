// file: internals/route/index.go
package routes

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"longessay_backend/internals/features/correction/files"
	"longessay_backend/internals/features/correction/service"
	routeDetails "longessay_backend/internals/route/details"
)

var startTime time.Time

// Deps carries what the route tree needs; DB is nil for STORE_DRIVER=memory.
type Deps struct {
	DB        *gorm.DB
	Service   *service.CorrectionService
	Files     *files.Delivery
	JWTSecret string
	Driver    string
}

func SetupRoutes(app *fiber.App, d Deps) {
	startTime = time.Now()

	log.Println("[INFO] Setting up BaseRoutes...")
	BaseRoutes(app, d)

	log.Println("[INFO] Mounting Corrector routes...")
	routeDetails.CorrectionRoutes(app, routeDetails.CorrectionDeps{
		Service:   d.Service,
		Files:     d.Files,
		JWTSecret: d.JWTSecret,
	})
}
