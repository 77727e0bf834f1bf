package config

import (
	"Majiang/models/postgres"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectGORM returns a GORM DB instance connected to PostgreSQL
func ConnectGORM() (*gorm.DB, error) {
	user := os.Getenv("POSTGRES_USER")
	password := os.Getenv("POSTGRES_PASSWORD")
	host := os.Getenv("POSTGRES_HOST")
	port := os.Getenv("POSTGRES_PORT")
	database := os.Getenv("POSTGRES_DATABASE")
	verbose := os.Getenv("VERBOSE_POSTGRES")

	dsn := fmt.Sprintf("postgresql://%s:%s@%s:%s/%s",
		user, password, host, port, database)

	sqlConn, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Printf("Error connecting to PostgreSQL: %v", err)
		return nil, err
	}

	gormConfig := &gorm.Config{}
	if verbose == "true" {
		newLogger := logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Info,
				IgnoreRecordNotFoundError: false,
				Colorful:                  true,
			},
		)
		gormConfig.Logger = newLogger
	}

	db, err := gorm.Open(pgdriver.New(pgdriver.Config{
		Conn:                 sqlConn,
		PreferSimpleProtocol: true,
	}), gormConfig)
	if err != nil {
		log.Printf("Error connecting to PostgreSQL with GORM: %v", err)
		return nil, err
	}

	// Get the underlying SQL DB object
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying SQL DB: %v", err)
		return nil, err
	}

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		log.Printf("Error pinging PostgreSQL: %v", err)
		return nil, err
	}

	// Set connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Successfully connected to PostgreSQL with GORM")
	return db, nil
}

// MigrateDatabase migrates the GORM models to the PostgreSQL database
func MigrateDatabase(db *gorm.DB) error {
	err := db.AutoMigrate(
		postgres.PlayerProfile{},
		postgres.GameConfig{},
		postgres.Room{},
		postgres.Seat{},
		postgres.ChatMessage{})
	if err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}

	if err := seedDefaultConfig(db); err != nil {
		return err
	}

	log.Println("PostgreSQL database migrated successfully")
	return nil
}

// seedDefaultConfig makes sure a default rule configuration exists, so room
// creation without an explicit config id always has somewhere to fall back.
func seedDefaultConfig(db *gorm.DB) error {
	var count int64
	if err := db.Model(&postgres.GameConfig{}).Where("is_default = ?", true).Count(&count).Error; err != nil {
		return fmt.Errorf("checking default game config: %w", err)
	}
	if count > 0 {
		return nil
	}

	config := postgres.GameConfig{
		ConfigName:      "standard",
		PlayerCount:     4,
		AllowSpectate:   true,
		RoomExpiryHours: 24,
		IsDefault:       true,
	}
	if err := db.Create(&config).Error; err != nil {
		return fmt.Errorf("seeding default game config: %w", err)
	}
	log.Println("Seeded default game config")
	return nil
}
