package database

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"longessay_backend/internals/configs"
	model "longessay_backend/internals/features/correction/model"
)

var DB *gorm.DB

func ConnectDB() {
	log.Println("🔌 Connecting to PostgreSQL...")

	// statement_timeout keeps slow queries below the HTTP timeout guard
	dsn := configs.PostgresDSN()
	if configs.GetEnv("DATABASE_URL") == "" {
		dsn += "&options=-c statement_timeout=3000"
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // PgBouncer transaction pooling
	}), &gorm.Config{
		Logger: configs.NewGormLogger(),
	})
	if err != nil {
		log.Fatalf("❌ DB connect failed: %v", err)
	}
	DB = db
	log.Println("✅ DB connected.")
}

func TunePool() {
	sqlDB, err := DB.DB()
	if err != nil {
		log.Printf("pool tune err: %v", err)
		return
	}
	sqlDB.SetMaxOpenConns(configs.GetEnvInt("DB_MAX_OPEN_CONNS", 20))
	sqlDB.SetMaxIdleConns(configs.GetEnvInt("DB_MAX_IDLE_CONNS", 10))
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

// Migrate creates or updates the correction tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(model.AllModels()...)
}

func WarmUpQueries() {
	go func() {
		time.Sleep(500 * time.Millisecond)
		if err := ping(); err != nil {
			log.Printf("warm-up ping err: %v", err)
			return
		}
		// the item list is the first query of every corrector session
		var n int64
		if err := DB.Model(&model.CorrectionItemModel{}).Limit(1).Count(&n).Error; err != nil {
			log.Printf("warm-up query err: %v", err)
		}
	}()
}

// Ping reports whether the pool can reach the database.
func Ping() error {
	if DB == nil {
		return gorm.ErrInvalidDB
	}
	return ping()
}

func ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
