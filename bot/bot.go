package bot

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"luckybot/events"
	"luckybot/service"

	"github.com/bwmarrin/discordgo"
)

// Config holds bot configuration
type Config struct {
	Token             string
	GuildID           string
	CollectionAddress string
}

type Bot struct {
	config            Config
	session           *discordgo.Session
	accountService    service.AccountService
	packetService     service.PacketService
	depositService    service.DepositService
	withdrawalService service.WithdrawalService
	eventBus          *events.Bus
}

func New(config Config, accountService service.AccountService, packetService service.PacketService, depositService service.DepositService, withdrawalService service.WithdrawalService, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages

	bot := &Bot{
		config:            config,
		session:           dg,
		accountService:    accountService,
		packetService:     packetService,
		depositService:    depositService,
		withdrawalService: withdrawalService,
		eventBus:          eventBus,
	}

	// Register slash command handlers
	dg.AddHandler(bot.handleCommands)

	// Register component interaction handlers
	dg.AddHandler(bot.handlePacketInteractions)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	// DM notifications for settlements that happen outside an interaction
	bot.subscribeNotifications()

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "balance":
		b.handleBalance(s, i)
	case "packet":
		b.handlePacketCommand(s, i)
	case "deposit":
		b.handleDeposit(s, i)
	case "withdraw":
		b.handleWithdraw(s, i)
	case "wallet":
		b.handleWallet(s, i)
	case "history":
		b.handleHistory(s, i)
	case "stats":
		b.handleStats(s, i)
	}
}

// handlePacketInteractions routes packet claim button presses
func (b *Bot) handlePacketInteractions(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	customID := i.MessageComponentData().CustomID
	if strings.HasPrefix(customID, "packet_claim_") {
		b.handlePacketClaim(s, i, strings.TrimPrefix(customID, "packet_claim_"))
	}
}

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "balance",
			Description: "Check your current balance",
		},
		{
			Name:        "packet",
			Description: "Send and inspect lucky-money packets",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "send",
					Description: "Send a lucky-money packet to the channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionNumber,
							Name:        "amount",
							Description: "Total amount in USDT",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "count",
							Description: "Number of claim slots",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "mine",
							Description: "Hazard digit 0-9 (optional, makes this a mine packet)",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "show",
					Description: "Show a packet and its claims",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "id",
							Description: "Packet ID",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "deposit",
			Description: "Create a deposit order",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        "amount",
					Description: "Amount in USDT",
					Required:    true,
				},
			},
		},
		{
			Name:        "withdraw",
			Description: "Request a withdrawal to your bound wallet",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        "amount",
					Description: "Amount in USDT",
					Required:    true,
				},
			},
		},
		{
			Name:        "wallet",
			Description: "Bind your TRC20 payout address",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "address",
					Description: "TRC20 address (starts with T)",
					Required:    true,
				},
			},
		},
		{
			Name:        "history",
			Description: "Show your recent balance history",
		},
		{
			Name:        "stats",
			Description: "Show your packet statistics",
		},
	}

	for _, cmd := range commands {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}

	log.WithField("count", len(commands)).Info("Registered slash commands")
	return nil
}
