package bot

import (
	"context"
	"fmt"
	"strconv"

	"luckybot/events"

	log "github.com/sirupsen/logrus"
)

// subscribeNotifications wires DM notifications for settlements that happen
// in the background: reconciled deposits, settled withdrawals and refunded
// packets. All of these fire after the database commit.
func (b *Bot) subscribeNotifications() {
	b.eventBus.Subscribe(events.EventTypeDepositConfirmed, func(ctx context.Context, event events.Event) {
		confirmed, ok := event.(events.DepositConfirmedEvent)
		if !ok {
			return
		}
		b.sendDM(confirmed.DiscordID, fmt.Sprintf(
			"✅ Deposit order **#%d** confirmed. **%s USDT** credited to your balance.",
			confirmed.OrderID, FormatAmount(confirmed.Amount)))
	})

	b.eventBus.Subscribe(events.EventTypeWithdrawalSettled, func(ctx context.Context, event events.Event) {
		settled, ok := event.(events.WithdrawalSettledEvent)
		if !ok {
			return
		}
		if settled.Approved {
			b.sendDM(settled.DiscordID, fmt.Sprintf(
				"✅ Withdrawal request **#%d** for **%s USDT** was approved and paid out.",
				settled.RequestID, FormatAmount(settled.Amount)))
			return
		}
		message := fmt.Sprintf("❌ Withdrawal request **#%d** was rejected.", settled.RequestID)
		if settled.Refunded {
			message += fmt.Sprintf(" **%s USDT** returned to your balance.", FormatAmount(settled.Amount))
		} else {
			message += " Contact an operator about the frozen amount."
		}
		b.sendDM(settled.DiscordID, message)
	})

	b.eventBus.Subscribe(events.EventTypePacketRefunded, func(ctx context.Context, event events.Event) {
		refunded, ok := event.(events.PacketRefundedEvent)
		if !ok {
			return
		}
		b.sendDM(refunded.SenderID, fmt.Sprintf(
			"🧧 Packet `%s` expired. **%s USDT** unclaimed remainder returned to your balance.",
			refunded.PacketID, FormatAmount(refunded.Amount)))
	})
}

func (b *Bot) sendDM(discordID int64, message string) {
	channel, err := b.session.UserChannelCreate(strconv.FormatInt(discordID, 10))
	if err != nil {
		log.Printf("Error creating DM channel for %d: %v", discordID, err)
		return
	}
	if _, err := b.session.ChannelMessageSend(channel.ID, message); err != nil {
		log.Printf("Error sending DM to %d: %v", discordID, err)
	}
}
