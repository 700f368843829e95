package main

import (
	"log"
	"os"
	"time"

	"medgen-server/internal/config"
	"medgen-server/internal/db"
	"medgen-server/internal/identity"
	"medgen-server/internal/server"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	conn, err := db.Open(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		log.Fatalf("database handle unavailable: %v", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second)

	if err := db.Migrate(conn); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	verifier, err := identity.New(
		cfg.AuthSecret,
		time.Duration(cfg.TokenLeewaySeconds)*time.Second,
		time.Duration(cfg.SessionTTLHours)*time.Hour,
	)
	if err != nil {
		log.Fatalf("identity verifier setup failed: %v", err)
	}

	srv := server.New(conn, verifier, cfg)
	addr := ":" + cfg.Port
	log.Printf("medgen server listening on %s", addr)
	if err := srv.Engine().Run(addr); err != nil {
		log.Fatal(err)
	}
}
