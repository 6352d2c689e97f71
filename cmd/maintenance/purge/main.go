// Command purge removes expired operational data: notifications past their
// retention window, expired OTPs, lapsed rate-limit counters, and expired
// refresh tokens. Intended to run from cron.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/gatepass/visitor-gate-backend/internal/config"
	"github.com/gatepass/visitor-gate-backend/internal/database"
	"github.com/gatepass/visitor-gate-backend/internal/services"
)

func main() {
	var dbURLFlag string
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	// Build minimal database config without loading full app config
	dbCfg := config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	}

	db, err := database.NewConnection(dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("Connected to database. Purging expired data...")

	notifications := database.NewNotificationRepository(db)
	refreshTokens := database.NewRefreshTokenRepository(db)
	otpService := services.NewOTPService(db)
	rateLimitService := services.NewRateLimitService(db, services.DefaultRateLimitConfig())

	purged, err := notifications.PurgeExpired()
	if err != nil {
		log.Fatalf("failed to purge notifications: %v", err)
	}
	fmt.Printf("  notifications: %d removed\n", purged)

	purged, err = otpService.CleanupExpiredOTPs()
	if err != nil {
		log.Fatalf("failed to purge OTPs: %v", err)
	}
	fmt.Printf("  otp_verifications: %d removed\n", purged)

	purged, err = rateLimitService.CleanupExpiredRateLimits()
	if err != nil {
		log.Fatalf("failed to purge rate limits: %v", err)
	}
	fmt.Printf("  otp_rate_limits: %d removed\n", purged)

	purged, err = refreshTokens.DeleteExpired()
	if err != nil {
		log.Fatalf("failed to purge refresh tokens: %v", err)
	}
	fmt.Printf("  refresh_tokens: %d removed\n", purged)

	fmt.Println("Purge complete.")
}
