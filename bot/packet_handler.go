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

func (b *Bot) handlePacketCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}

	switch options[0].Name {
	case "send":
		b.handlePacketSend(s, i, options[0].Options)
	case "show":
		b.handlePacketShow(s, i, options[0].Options)
	}
}

func (b *Bot) handlePacketSend(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()
	user := interactionUser(i)

	discordID, err := parseDiscordID(user.ID)
	if err != nil {
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	var amount int64
	var count int
	var mineDigit *int16
	for _, opt := range options {
		switch opt.Name {
		case "amount":
			amount = ToMinorUnits(opt.FloatValue())
		case "count":
			count = int(opt.IntValue())
		case "mine":
			digit := int16(opt.IntValue())
			mineDigit = &digit
		}
	}

	if _, err := b.accountService.GetOrCreateAccount(ctx, discordID, user.Username); err != nil {
		log.Printf("Error getting account %d: %v", discordID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	packet, err := b.packetService.Create(ctx, discordID, user.Username, amount, count, mineDigit)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientFunds):
			b.respondWithError(s, i, "Insufficient balance for this packet.")
		case errors.Is(err, service.ErrInvalidState):
			b.respondWithError(s, i, "Invalid packet parameters: "+err.Error())
		default:
			log.Printf("Error creating packet for %d: %v", discordID, err)
			b.respondWithError(s, i, "Unable to create packet. Please try again.")
		}
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{packetEmbed(packet, nil)},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Claim",
							Style:    discordgo.SuccessButton,
							CustomID: "packet_claim_" + packet.ID,
						},
					},
				},
			},
		},
	})
	if err != nil {
		log.Printf("Error responding to packet send: %v", err)
	}
}

func (b *Bot) handlePacketShow(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	var packetID string
	for _, opt := range options {
		if opt.Name == "id" {
			packetID = strings.TrimSpace(opt.StringValue())
		}
	}

	packet, claims, err := b.packetService.GetPacket(ctx, packetID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			b.respondWithError(s, i, "No such packet.")
			return
		}
		log.Printf("Error getting packet %s: %v", packetID, err)
		b.respondWithError(s, i, "Unable to retrieve packet. Please try again.")
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{packetEmbed(packet, claims)},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("Error responding to packet show: %v", err)
	}
}

func (b *Bot) handlePacketClaim(s *discordgo.Session, i *discordgo.InteractionCreate, packetID string) {
	ctx := context.Background()
	user := interactionUser(i)

	discordID, err := parseDiscordID(user.ID)
	if err != nil {
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	if _, err := b.accountService.GetOrCreateAccount(ctx, discordID, user.Username); err != nil {
		log.Printf("Error getting account %d: %v", discordID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	result, err := b.packetService.Claim(ctx, packetID, discordID, user.Username)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyClaimed):
			b.respondWithError(s, i, "You already claimed from this packet.")
		case errors.Is(err, service.ErrPacketNotActive):
			b.respondWithError(s, i, "This packet is empty or no longer active.")
		case errors.Is(err, service.ErrRiskGateBlocked):
			b.respondWithError(s, i, "Your balance is too low to claim from a mine packet (5 USDT minimum).")
		case errors.Is(err, service.ErrInvalidState):
			b.respondWithError(s, i, "You cannot claim your own packet.")
		default:
			log.Printf("Error claiming packet %s for %d: %v", packetID, discordID, err)
			b.respondWithError(s, i, "Unable to claim. Please try again.")
		}
		return
	}

	b.respond(s, i, formatClaimResult(user.ID, result))

	// Keep the original packet message current
	if result.Packet.RemainingCount == 0 && i.Message != nil {
		edit := discordgo.NewMessageEdit(i.ChannelID, i.Message.ID)
		edit.Embeds = &[]*discordgo.MessageEmbed{packetEmbed(result.Packet, nil)}
		edit.Components = &[]discordgo.MessageComponent{}
		if _, err := s.ChannelMessageEditComplex(edit); err != nil {
			log.Printf("Error updating drained packet message: %v", err)
		}
	}
}

func formatClaimResult(userID string, result *models.ClaimResult) string {
	if !result.Boom {
		return fmt.Sprintf("🧧 <@%s> claimed **%s USDT** from packet `%s`!",
			userID, FormatAmount(result.Amount), result.Packet.ID)
	}
	if result.Penalty > 0 {
		return fmt.Sprintf("💥 <@%s> claimed **%s USDT** from packet `%s` and hit the mine (digit %d)! Penalty: **%s USDT** to the sender.",
			userID, FormatAmount(result.Amount), result.Packet.ID, result.Digit, FormatAmount(result.Penalty))
	}
	return fmt.Sprintf("💥 <@%s> claimed **%s USDT** from packet `%s` and hit the mine (digit %d), but could not cover the penalty.",
		userID, FormatAmount(result.Amount), result.Packet.ID, result.Digit)
}

func packetEmbed(packet *models.Packet, claims []*models.PacketClaim) *discordgo.MessageEmbed {
	title := fmt.Sprintf("🧧 Lucky packet from %s", packet.SenderName)
	if packet.HasMine() {
		title = fmt.Sprintf("💣 Mine packet from %s (digit %d)", packet.SenderName, *packet.MineDigit)
	}

	embed := &discordgo.MessageEmbed{
		Title: title,
		Color: 0xE74C3C,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Pool",
				Value:  fmt.Sprintf("%s USDT", FormatAmount(packet.TotalAmount)),
				Inline: true,
			},
			{
				Name:   "Remaining",
				Value:  fmt.Sprintf("%s USDT (%d/%d slots)", FormatAmount(packet.RemainingAmount), packet.RemainingCount, packet.TotalCount),
				Inline: true,
			},
			{
				Name:   "Status",
				Value:  string(packet.Status),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("ID: %s", packet.ID),
		},
	}

	if len(claims) > 0 {
		var sb strings.Builder
		for _, claim := range claims {
			marker := ""
			if claim.Boom {
				marker = " 💥"
			}
			sb.WriteString(fmt.Sprintf("<@%d>: %s USDT%s\n", claim.DiscordID, FormatAmount(claim.Amount), marker))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Claims",
			Value: sb.String(),
		})
	}

	return embed
}
