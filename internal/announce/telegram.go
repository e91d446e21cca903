package announce

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxTelegramMessage = 4096
	// TelegramPrefix is the target prefix served by Telegram.
	TelegramPrefix = "telegram:"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts announcements to Telegram chats.
type Telegram struct {
	bot sender
}

// NewTelegram creates a Telegram sink authenticated with token.
func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	slog.Info("telegram bot authorized", "username", bot.Self.UserName)
	return &Telegram{bot: bot}, nil
}

// Deliver is a Handler for targets of the form "telegram:<chat id>".
func (t *Telegram) Deliver(target, message string) error {
	chatID, err := parseChatID(target)
	if err != nil {
		return err
	}
	for _, part := range splitMessage(message) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := t.bot.Send(msg); err != nil {
			// Retry without markdown; item names may contain stray markup.
			msg.ParseMode = ""
			if _, err := t.bot.Send(msg); err != nil {
				return fmt.Errorf("send to %d: %w", chatID, err)
			}
		}
	}
	return nil
}

// Target builds the delivery target for a chat.
func Target(chatID int64) string {
	return TelegramPrefix + strconv.FormatInt(chatID, 10)
}

func parseChatID(target string) (int64, error) {
	raw, ok := strings.CutPrefix(target, TelegramPrefix)
	if !ok {
		return 0, fmt.Errorf("not a telegram target: %s", target)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", raw, err)
	}
	return id, nil
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
