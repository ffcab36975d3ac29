package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/bapconnect/connect-api/config"
	"github.com/bapconnect/connect-api/internal/domain/entity"
	"github.com/bapconnect/connect-api/pkg/helpers"
)

// Seeds the system Administrator account that registration and the seeder
// itself reference as audit author. Idempotent.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	hash, err := helpers.HashPassword("password123")
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	var id string
	err = db.QueryRow(`
		INSERT INTO users (
			id, username, email, password, first_name, last_name, gender,
			status, email_verified_at,
			created_by, updated_by, creator_name, updater_name,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, '', $6, true, $7, $1, $1, $8, $8, $7, $7)
		ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING id
	`, entity.SystemUserID, "administrator", "admin@bapconnect.local", hash,
		entity.SystemUserName, entity.GenderOther, now, entity.SystemUserName).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed system user: %v", err)
	}
	fmt.Printf("seeded system user: id=%s name=%s\n", id, entity.SystemUserName)
}
