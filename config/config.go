package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken   string
	DiscordGuildID string

	// Database configuration
	DatabaseURL string

	// Deposit feed configuration
	FeedBaseURL       string
	CollectionAddress string
	TokenContract     string

	// Account configuration
	SignupBonus int64 // credited to brand-new accounts, in minor units

	// Packet configuration
	MinPacketAmount  int64   // minimum total packet amount in minor units
	PacketFeePercent int64   // disclosed fee kept by the house, percent
	MineMinBalance   int64   // minimum balance required to claim a mine packet
	MinePenaltyRate  float64 // penalty multiple of packet total on a hit digit

	// Deposit configuration
	DepositOffsetMin int64 // smallest random disambiguation offset, minor units
	DepositOffsetMax int64 // largest random disambiguation offset, minor units

	// Withdrawal configuration
	RefundRejectedWithdrawals bool

	// Sweeper configuration
	SweepInterval time.Duration
	DepositExpiry time.Duration
	PacketExpiry  time.Duration

	// Admin API configuration
	AdminListenAddr string
	AdminUsername   string
	AdminPassword   string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// A missing .env file is fine; variables may come from the environment directly
	_ = godotenv.Load()

	config := &Config{
		// Discord
		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID: os.Getenv("DISCORD_GUILD_ID"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Deposit feed
		FeedBaseURL:       os.Getenv("FEED_BASE_URL"),
		CollectionAddress: os.Getenv("COLLECTION_ADDRESS"),
		TokenContract:     os.Getenv("TOKEN_CONTRACT"),

		// Money settings with defaults; amounts are minor units (1,000,000 = 1 unit)
		SignupBonus:      500000,
		MinPacketAmount:  100000,
		PacketFeePercent: 5,
		MineMinBalance:   5000000,
		MinePenaltyRate:  1.5,
		DepositOffsetMin: 100,
		DepositOffsetMax: 5000,

		RefundRejectedWithdrawals: os.Getenv("REFUND_REJECTED_WITHDRAWALS") == "true",

		// Sweeper settings
		SweepInterval: 10 * time.Second,
		DepositExpiry: 15 * time.Minute,
		PacketExpiry:  12 * time.Hour,

		// Admin API
		AdminListenAddr: ":8080",
		AdminUsername:   os.Getenv("ADMIN_USERNAME"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	if config.FeedBaseURL == "" {
		config.FeedBaseURL = "https://api.trongrid.io"
	}

	// Override defaults if environment variables are set
	if bonus := os.Getenv("SIGNUP_BONUS"); bonus != "" {
		if parsed, err := strconv.ParseInt(bonus, 10, 64); err == nil {
			config.SignupBonus = parsed
		}
	}
	if min := os.Getenv("MIN_PACKET_AMOUNT"); min != "" {
		if parsed, err := strconv.ParseInt(min, 10, 64); err == nil {
			config.MinPacketAmount = parsed
		}
	}
	if fee := os.Getenv("PACKET_FEE_PERCENT"); fee != "" {
		if parsed, err := strconv.ParseInt(fee, 10, 64); err == nil {
			config.PacketFeePercent = parsed
		}
	}
	if rate := os.Getenv("MINE_PENALTY_RATE"); rate != "" {
		if parsed, err := strconv.ParseFloat(rate, 64); err == nil {
			config.MinePenaltyRate = parsed
		}
	}
	if interval := os.Getenv("SWEEP_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			config.SweepInterval = parsed
		}
	}
	if expiry := os.Getenv("DEPOSIT_EXPIRY"); expiry != "" {
		if parsed, err := time.ParseDuration(expiry); err == nil {
			config.DepositExpiry = parsed
		}
	}
	if expiry := os.Getenv("PACKET_EXPIRY"); expiry != "" {
		if parsed, err := time.ParseDuration(expiry); err == nil {
			config.PacketExpiry = parsed
		}
	}
	if addr := os.Getenv("ADMIN_LISTEN_ADDR"); addr != "" {
		config.AdminListenAddr = addr
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.CollectionAddress == "" {
			return nil, fmt.Errorf("COLLECTION_ADDRESS is required")
		}
	}

	return config, nil
}
