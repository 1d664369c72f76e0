package cmd

import (
	"context"
	"fmt"
	"log"

	"streambet/config"
	"streambet/database"
	"streambet/events"
	"streambet/repository"
	"streambet/service"

	"github.com/google/uuid"
)

// SeedAdmins makes sure every configured admin Telegram ID has a funded,
// whitelisted account
func SeedAdmins(ctx context.Context) error {
	cfg := config.Get()
	configureLogging(cfg)

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	users := service.NewUserService(repository.NewUnitOfWorkFactory(db, events.NewBus()), cfg)
	admins, err := users.SeedAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed admins: %w", err)
	}

	for _, admin := range admins {
		log.Printf("Admin ready: %s (telegram %d)", admin.ID, admin.TelegramID)
	}
	log.Printf("Seeded %d admin(s)", len(admins))
	return nil
}

// AdjustBalance applies an admin adjustment from the command line
func AdjustBalance(ctx context.Context, userID uuid.UUID, amount int64, reason string) error {
	cfg := config.Get()
	configureLogging(cfg)

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	wallets := service.NewWalletService(repository.NewUnitOfWorkFactory(db, events.NewBus()))
	wallet, err := wallets.AdjustBalance(ctx, userID, amount, reason)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}

	log.Printf("Balance of %s is now %d", userID, wallet.Balance)
	return nil
}
