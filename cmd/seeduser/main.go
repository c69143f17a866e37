// cmd/seeduser creates a user account directly in the database.
// Usage: go run ./cmd/seeduser -email admin@example.com -password secret -role admin
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"rentalhub/internal/config"
	"rentalhub/internal/dto"
	"rentalhub/internal/infra"
	"rentalhub/internal/model"
	"rentalhub/internal/repository"
	"rentalhub/internal/service"

	"github.com/rs/zerolog/log"
)

func main() {
	email := flag.String("email", "admin@rentalhub.local", "login email")
	name := flag.String("name", "Admin Demo", "display name")
	password := flag.String("password", "", "plain-text password (min 8 chars)")
	role := flag.String("role", model.RoleAdmin, "admin | manager | staff")
	flag.Parse()

	if len(*password) < 8 {
		fmt.Fprintln(os.Stderr, "seeduser: -password must be at least 8 characters")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := infra.SetupLogger(cfg.Env, ""); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logger")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL, cfg.AutoMigrate)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	audit, err := service.NewAuditService(repository.NewAuditRepository(db))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise audit compression")
	}
	svc := service.NewAuthService(repository.NewUserRepository(db), cfg, audit)

	user, err := svc.CreateUser(context.Background(), service.Actor{IP: "cli"}, dto.CreateUserRequest{
		Email: *email, Name: *name, Password: *password, Role: *role,
	})
	if err != nil {
		log.Fatal().Err(err).Str("email", *email).Msg("could not create user")
	}
	fmt.Printf("user %s (%s) created with id %s\n", user.Email, user.Role, user.ID)
}
