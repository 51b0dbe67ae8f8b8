// Command seedadmin creates an admin account. Run it once against a fresh
// database; admins are never created through the API.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/joho/godotenv"

	"github.com/expohall/expohall-api/internal/repo/postgres"
	"github.com/expohall/expohall-api/internal/utils"
	"github.com/expohall/expohall-api/pkg/config"
	"github.com/expohall/expohall-api/pkg/database"
	"github.com/expohall/expohall-api/pkg/logger"
)

func main() {
	username := flag.String("username", "", "admin username (required)")
	password := flag.String("password", "", "admin password (required)")
	name := flag.String("name", "Administrator", "display name")
	email := flag.String("email", "", "contact email")
	flag.Parse()

	if *username == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *email != "" && !utils.IsValidEmail(*email) {
		logger.Error("Invalid email", "email", *email)
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	hash, err := argon2id.CreateHash(*password, argon2id.DefaultParams)
	if err != nil {
		logger.Error("Failed to hash password", "error", err)
		os.Exit(1)
	}

	admin, err := postgres.NewAdminRepo(pool).Create(ctx, *username, hash, *name, utils.NormalizeEmail(*email))
	if err != nil {
		logger.Error("Failed to create admin", "error", err)
		os.Exit(1)
	}

	logger.Info("Admin created", "id", admin.ID, "username", admin.Username)
}
