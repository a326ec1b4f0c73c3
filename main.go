package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/utils"
	"gorm.io/gorm"

	"longessay_backend/internals/configs"
	database "longessay_backend/internals/databases"
	"longessay_backend/internals/features/correction/files"
	"longessay_backend/internals/features/correction/repository"
	"longessay_backend/internals/features/correction/scheduler"
	"longessay_backend/internals/features/correction/service"
	"longessay_backend/internals/features/correction/textproc"
	"longessay_backend/internals/features/correction/tokens"
	helper "longessay_backend/internals/helpers"
	middlewares "longessay_backend/internals/middlewares"
	routes "longessay_backend/internals/route"
	"longessay_backend/internals/seeds"
)

func main() {
	configs.LoadEnv()
	if configs.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET is required")
	}

	app := fiber.New(fiber.Config{
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		ErrorHandler:            helper.ErrorHandler,
		DisableStartupMessage:   true,
		BodyLimit:               configs.GetEnvInt("BODY_LIMIT_MB", 16) * 1024 * 1024,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"},
	})

	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())

	// 🔎 Request-ID + timing
	app.Use(func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = utils.UUIDv4()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)
		start := time.Now()
		// HTTP timeout guard (aligned with statement_timeout)
		ctx, cancel := context.WithTimeout(c.Context(), configs.GetEnvDuration("REQUEST_TIMEOUT", 10*time.Second))
		defer cancel()
		c.SetUserContext(ctx)
		err := c.Next()
		log.Printf("[REQ] id=%s %s %s status=%d dur=%s", id, c.Method(), c.OriginalURL(), c.Response().StatusCode(), time.Since(start))
		return err
	})

	middlewares.SetupMiddlewares(app)

	// 🔌 store: postgres (default) or memory
	var (
		db         *gorm.DB
		store      repository.Store
		tokenStore tokens.Store
		seeder     repository.Seeder
	)
	switch configs.StoreDriver {
	case "memory":
		mem := repository.NewMemoryStore()
		store, seeder, tokenStore = mem, mem, tokens.NewMemoryStore()
		log.Println("⚠️ STORE_DRIVER=memory, data is lost on restart")
	default:
		database.ConnectDB()
		database.TunePool()
		if configs.GetEnvBool("DB_AUTO_MIGRATE", false) {
			if err := database.Migrate(database.DB); err != nil {
				log.Fatalf("❌ migrate failed: %v", err)
			}
		}
		database.WarmUpQueries()
		db = database.DB
		gs := repository.NewGormStore(db)
		store, seeder, tokenStore = gs, gs, tokens.NewGormStore(db)
	}

	if patterns := configs.GetEnv("SEED_FILE"); patterns != "" {
		seedFiles, err := seeds.ExpandSeedFiles(patterns)
		if err == nil {
			err = seeds.RunAllSeeds(context.Background(), seeder, seedFiles)
		}
		if err != nil {
			log.Fatalf("❌ seed failed: %v", err)
		}
	}

	gate := tokens.NewGate(tokenStore,
		configs.GetEnvDuration("DATA_TOKEN_TTL", 12*time.Hour),
		configs.GetEnvDuration("FILE_TOKEN_TTL", 12*time.Hour),
	)
	svc := service.New(store, gate, textproc.New(),
		service.NewEvaluator(store, configs.GetEnvDuration("ESCALATION_CACHE_TTL", 5*time.Minute)))

	// ⏱ scheduler after the store is ready
	purge, err := scheduler.StartTokenCleanupCron(gate, configs.GetEnv("TOKEN_PURGE_CRON", scheduler.DefaultPurgeSchedule))
	if err != nil {
		log.Fatalf("❌ token purge cron: %v", err)
	}

	// ✅ Routes
	routes.SetupRoutes(app, routes.Deps{
		DB:        db,
		Service:   svc,
		Files:     files.NewDelivery(configs.FilesRoot),
		JWTSecret: configs.JWTSecret,
		Driver:    configs.StoreDriver,
	})

	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 60 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	port := configs.GetEnv("PORT", "3000")

	go func() {
		log.Printf("✅ Listening on :%s", port)
		if err := app.Listen("0.0.0.0:" + port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown + close DB pool
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)
	<-purge.Stop().Done()

	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
