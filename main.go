package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"streambet/cmd"
	"streambet/database"

	"github.com/google/uuid"
)

func main() {
	if len(os.Args) > 1 {
		if handled, err := handleSubcommand(os.Args[1:]); handled {
			if err != nil {
				log.Fatal("Command error: ", err)
			}
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error: ", err)
	}
}

// handleSubcommand runs one-shot commands. It reports false for "run" and
// unknown first arguments so the server starts.
func handleSubcommand(args []string) (bool, error) {
	switch args[0] {
	case "migrate":
		return true, handleMigrationCommand(args[1:])
	case "seed-admins":
		return true, cmd.SeedAdmins(context.Background())
	case "adjust-balance":
		return true, handleAdjustBalance(args[1:])
	default:
		return false, nil
	}
}

func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: streambet migrate [up|down|status] [args...]")
	}

	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}

func handleAdjustBalance(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: streambet adjust-balance <user-id> <amount> [reason]")
	}

	userID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", args[0], err)
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[1], err)
	}
	reason := "manual adjustment"
	if len(args) > 2 {
		reason = args[2]
	}

	return cmd.AdjustBalance(context.Background(), userID, amount, reason)
}
