package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"luckybot/models"
	"luckybot/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (b *Bot) handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	user := interactionUser(i)

	discordID, err := parseDiscordID(user.ID)
	if err != nil {
		log.Printf("Error parsing Discord ID %s: %v", user.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	account, err := b.accountService.GetOrCreateAccount(ctx, discordID, user.Username)
	if err != nil {
		log.Printf("Error getting account %d: %v", discordID, err)
		b.respondWithError(s, i, "Unable to retrieve balance. Please try again.")
		return
	}

	b.respondEphemeral(s, i, fmt.Sprintf("Your balance: **%s USDT**", FormatAmount(account.Balance)))
}

func (b *Bot) handleDeposit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	user := interactionUser(i)

	discordID, err := parseDiscordID(user.ID)
	if err != nil {
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	amount := ToMinorUnits(i.ApplicationCommandData().Options[0].FloatValue())
	if amount <= 0 {
		b.respondWithError(s, i, "Amount must be positive.")
		return
	}

	if _, err := b.accountService.GetOrCreateAccount(ctx, discordID, user.Username); err != nil {
		log.Printf("Error getting account %d: %v", discordID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	order, err := b.depositService.CreateOrder(ctx, discordID, amount)
	if err != nil {
		log.Printf("Error creating deposit order for %d: %v", discordID, err)
		b.respondWithError(s, i, "Unable to create deposit order. Please try again.")
		return
	}

	b.respondEphemeral(s, i, fmt.Sprintf(
		"Deposit order **#%d** created.\n"+
			"Send **exactly %s USDT** to `%s` within 15 minutes.\n"+
			"The extra fraction identifies your transfer; you will be credited **%s USDT**.",
		order.ID, FormatAmount(order.PayAmount), b.config.CollectionAddress, FormatAmount(order.Amount)))
}

func (b *Bot) handleWithdraw(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	user := interactionUser(i)

	discordID, err := parseDiscordID(user.ID)
	if err != nil {
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	amount := ToMinorUnits(i.ApplicationCommandData().Options[0].FloatValue())
	if amount <= 0 {
		b.respondWithError(s, i, "Amount must be positive.")
		return
	}

	account, err := b.accountService.GetOrCreateAccount(ctx, discordID, user.Username)
	if err != nil {
		log.Printf("Error getting account %d: %v", discordID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}
	if account.WalletAddress == nil {
		b.respondWithError(s, i, "Bind a payout address first with /wallet.")
		return
	}

	request, err := b.withdrawalService.Request(ctx, discordID, amount, *account.WalletAddress)
	if err != nil {
		if errors.Is(err, service.ErrInsufficientFunds) {
			b.respondWithError(s, i, "Insufficient balance for this withdrawal.")
			return
		}
		log.Printf("Error creating withdrawal for %d: %v", discordID, err)
		b.respondWithError(s, i, "Unable to create withdrawal request. Please try again.")
		return
	}

	b.respondEphemeral(s, i, fmt.Sprintf(
		"Withdrawal request **#%d** for **%s USDT** submitted.\n"+
			"The amount is frozen until an operator settles the request.",
		request.ID, FormatAmount(request.Amount)))
}

func (b *Bot) handleWallet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	user := interactionUser(i)

	discordID, err := parseDiscordID(user.ID)
	if err != nil {
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	address := strings.TrimSpace(i.ApplicationCommandData().Options[0].StringValue())

	if _, err := b.accountService.GetOrCreateAccount(ctx, discordID, user.Username); err != nil {
		log.Printf("Error getting account %d: %v", discordID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	if err := b.accountService.SetWalletAddress(ctx, discordID, address); err != nil {
		if errors.Is(err, service.ErrInvalidState) {
			b.respondWithError(s, i, "That does not look like a TRC20 address.")
			return
		}
		log.Printf("Error binding wallet for %d: %v", discordID, err)
		b.respondWithError(s, i, "Unable to bind wallet address. Please try again.")
		return
	}

	b.respondEphemeral(s, i, fmt.Sprintf("Payout address bound: `%s`", address))
}

func (b *Bot) handleHistory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	user := interactionUser(i)

	discordID, err := parseDiscordID(user.ID)
	if err != nil {
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	entries, err := b.accountService.GetLedger(ctx, discordID, 10)
	if err != nil {
		log.Printf("Error getting ledger for %d: %v", discordID, err)
		b.respondWithError(s, i, "Unable to retrieve history. Please try again.")
		return
	}
	if len(entries) == 0 {
		b.respondEphemeral(s, i, "No balance history yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("**Recent balance history**\n")
	for _, entry := range entries {
		sign := "+"
		if entry.Amount < 0 {
			sign = ""
		}
		sb.WriteString(fmt.Sprintf("%s • %s%s USDT • %s\n",
			FormatDiscordTimestamp(entry.CreatedAt, "f"), sign, FormatAmount(entry.Amount), describeEntry(entry)))
	}

	b.respondEphemeral(s, i, sb.String())
}

func describeEntry(entry *models.LedgerEntry) string {
	switch entry.Kind {
	case models.EntryKindDeposit:
		return "deposit"
	case models.EntryKindWithdrawFreeze:
		return "withdrawal"
	case models.EntryKindPacketSend:
		return "packet sent"
	case models.EntryKindPacketClaim:
		return "packet claimed"
	case models.EntryKindMinePenalty:
		return "mine penalty"
	case models.EntryKindMineIncome:
		return "mine income"
	case models.EntryKindRefund:
		return "refund"
	case models.EntryKindSignupBonus:
		return "signup bonus"
	case models.EntryKindAdminAdjust:
		return "adjustment"
	default:
		return string(entry.Kind)
	}
}

func (b *Bot) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	user := interactionUser(i)

	discordID, err := parseDiscordID(user.ID)
	if err != nil {
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	stats, err := b.accountService.GetStats(ctx, discordID)
	if err != nil {
		log.Printf("Error getting stats for %d: %v", discordID, err)
		b.respondWithError(s, i, "Unable to retrieve stats. Please try again.")
		return
	}

	b.respondEphemeral(s, i, fmt.Sprintf(
		"**Packet stats**\nSent: **%s USDT**\nClaimed: **%s USDT**",
		FormatAmount(stats.TotalSent), FormatAmount(stats.TotalClaimed)))
}
