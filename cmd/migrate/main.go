// Command migrate prepares an existing database for the API: it creates the
// indexes and turns the legacy well-known administrator e-mail into an
// isAdmin flag, optionally resetting that account's password.
//
// The new password, if any, is read from ADMIN_PASSWORD so it never shows up
// in the process list.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/01moynul/refuel-storefront/internal/config"
	"github.com/01moynul/refuel-storefront/internal/database"
	"github.com/01moynul/refuel-storefront/internal/logger"
	"github.com/01moynul/refuel-storefront/internal/models"
	"github.com/01moynul/refuel-storefront/internal/repository"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const passwordEnv = "ADMIN_PASSWORD"

// adminStore is the part of the user repository the migration touches.
type adminStore interface {
	PromoteByEmail(ctx context.Context, email string) (int64, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetPasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error
}

func main() {
	adminEmail := flag.String("admin-email", "admin@refuel.com", "e-mail of the account to promote to administrator")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.LogLevel, "console")

	if err := run(cfg, log, *adminEmail, os.Getenv(passwordEnv)); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger, adminEmail, password string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// 1. --- Database ---
	client, db, err := database.OpenDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect from database")
		}
	}()

	// 2. --- Indexes ---
	if err := database.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	log.Info().Msg("Indexes ensured")

	// 3. --- Administrator ---
	return promoteAdmin(ctx, repository.NewUserRepository(db), log, adminEmail, password)
}

// promoteAdmin sets isAdmin on the account with adminEmail and, when password
// is non-empty, replaces its password.
func promoteAdmin(ctx context.Context, users adminStore, log zerolog.Logger, adminEmail, password string) error {
	email := strings.ToLower(strings.TrimSpace(adminEmail))

	promoted, err := users.PromoteByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("promote %s: %w", email, err)
	}
	log.Info().Str("email", email).Int64("promoted", promoted).Msg("Administrator flag applied")

	if password == "" {
		return nil
	}
	u, err := users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("load %s: %w", email, err)
	}
	var p models.Password
	if err := p.Set(password); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := users.SetPasswordHash(ctx, u.ID, p.Hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	log.Info().Str("email", email).Msg("Administrator password reset")
	return nil
}
