package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"luckybot/admin"
	"luckybot/bot"
	"luckybot/config"
	"luckybot/database"
	"luckybot/events"
	"luckybot/feed"
	"luckybot/repository"
	"luckybot/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting lucky-money bot...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	log.Println("Initializing services...")
	accountService := service.NewAccountService(uowFactory, cfg)
	packetService := service.NewPacketService(uowFactory, cfg)
	depositService := service.NewDepositService(uowFactory, cfg)
	withdrawalService := service.NewWithdrawalService(uowFactory, cfg)

	// Background sweeper: transfer feed reconciliation plus expiry housekeeping
	feedClient := feed.NewClient(cfg)
	sweeper := service.NewSweeper(depositService, packetService, feedClient, cfg)
	sweeper.Start(ctx)

	// Admin API
	adminServer := admin.NewServer(accountService, depositService, withdrawalService, packetService, cfg)
	adminServer.Start(ctx)

	// Initialize Discord bot
	log.Println("Initializing Discord bot...")
	botConfig := bot.Config{
		Token:             cfg.DiscordToken,
		GuildID:           cfg.DiscordGuildID,
		CollectionAddress: cfg.CollectionAddress,
	}
	discordBot, err := bot.New(botConfig, accountService, packetService, depositService, withdrawalService, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Println("Discord bot initialized successfully")

	// Wait for context cancellation
	log.Printf("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down bot...")

	// Close Discord bot connection
	if err := discordBot.Close(); err != nil {
		log.Printf("Error closing Discord bot: %v", err)
	}

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}
