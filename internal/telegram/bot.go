package telegram

import (
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot handles Telegram notifications for the sniper bot.
type Bot struct {
	api      *tgbotapi.BotAPI
	chatID   int64
	dryRun   bool
	disabled bool
}

// NewBot creates a new Telegram bot instance.
// If token is empty, returns a no-op bot that logs messages instead of sending.
func NewBot(token, chatID string) (*Bot, error) {
	if token == "" {
		log.Println("[telegram] no token provided, running in disabled mode (logging only)")
		return &Bot{disabled: true}, nil
	}

	parsedChatID, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID %q: %w", chatID, err)
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	log.Printf("[telegram] authorized as @%s", api.Self.UserName)

	return &Bot{
		api:    api,
		chatID: parsedChatID,
	}, nil
}

// SetDryRun sets the dry run mode flag for notifications.
func (b *Bot) SetDryRun(dryRun bool) {
	b.dryRun = dryRun
}

// SendMessage sends a plain text message.
func (b *Bot) SendMessage(text string) error {
	return b.send(text, false)
}

// SendAlert sends a formatted alert with bold title.
func (b *Bot) SendAlert(title, message string) error {
	formatted := fmt.Sprintf("*%s*\n\n%s", title, message)
	return b.send(formatted, true)
}

// NotifyStarted sends a notification that the bot has started.
func (b *Bot) NotifyStarted(pendingSells int) error {
	mode := "LIVE"
	if b.dryRun {
		mode = "DRY_RUN"
	}
	return b.SendAlert("Bot Started",
		fmt.Sprintf("Token sniper is running in `%s` mode\nPending sells resumed: `%d`", mode, pendingSells))
}

// NotifyStopped sends a notification that the bot has stopped.
func (b *Bot) NotifyStopped() error {
	return b.SendAlert("Bot Stopped", "Token sniper has been shut down")
}

// NotifyBuy sends a notification for a confirmed buy.
func (b *Bot) NotifyBuy(token, txHash, amount string) error {
	return b.SendAlert("Token Bought",
		fmt.Sprintf("Token: `%s`\nSpent: `%s` wei\nTx: `%s`", token, amount, txHash))
}

// NotifySell sends a notification for a confirmed sell.
func (b *Bot) NotifySell(token, txHash, amount string) error {
	return b.SendAlert("Token Sold",
		fmt.Sprintf("Token: `%s`\nSold: `%s`\nTx: `%s`", token, amount, txHash))
}

// NotifyError sends an error notification.
func (b *Bot) NotifyError(err error) error {
	return b.SendAlert("Error", fmt.Sprintf("`%s`", err.Error()))
}

// send handles the actual message sending with graceful error handling.
func (b *Bot) send(text string, useMarkdown bool) error {
	if b.disabled {
		log.Printf("[telegram] (disabled) %s", text)
		return nil
	}

	msg := tgbotapi.NewMessage(b.chatID, text)
	if useMarkdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}

	_, err := b.api.Send(msg)
	if err != nil {
		log.Printf("[telegram] failed to send message: %v", err)
		return fmt.Errorf("telegram send failed: %w", err)
	}

	return nil
}
