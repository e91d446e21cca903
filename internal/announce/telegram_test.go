package announce

import (
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeBot struct {
	sent     []tgbotapi.MessageConfig
	failMode string
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	if f.failMode != "" && msg.ParseMode == f.failMode {
		return tgbotapi.Message{}, errors.New("bad markup")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{}, nil
}

func TestSplitMessage(t *testing.T) {
	parts := splitMessage("Hello world")
	if len(parts) != 1 || parts[0] != "Hello world" {
		t.Fatalf("unexpected parts: %v", parts)
	}

	parts = splitMessage(strings.Repeat("a", 5000))
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if len(parts[0]) != maxTelegramMessage {
		t.Errorf("expected first part length %d, got %d", maxTelegramMessage, len(parts[0]))
	}
}

func TestTelegramDeliver(t *testing.T) {
	bot := &fakeBot{}
	tg := &Telegram{bot: bot}

	if err := tg.Deliver(Target(-1001), "*MYTHIC* drop!"); err != nil {
		t.Fatal(err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("sent %d messages", len(bot.sent))
	}
	if bot.sent[0].ChatID != -1001 || bot.sent[0].ParseMode != tgbotapi.ModeMarkdown {
		t.Errorf("unexpected message: %+v", bot.sent[0])
	}
}

func TestTelegramFallsBackToPlainText(t *testing.T) {
	bot := &fakeBot{failMode: tgbotapi.ModeMarkdown}
	tg := &Telegram{bot: bot}

	if err := tg.Deliver("telegram:7", "item_with_underscore"); err != nil {
		t.Fatal(err)
	}
	if len(bot.sent) != 1 || bot.sent[0].ParseMode != "" {
		t.Errorf("expected one plain-text message, got %+v", bot.sent)
	}
}

func TestTelegramRejectsBadTarget(t *testing.T) {
	tg := &Telegram{bot: &fakeBot{}}
	for _, target := range []string{"slack:1", "telegram:abc"} {
		if err := tg.Deliver(target, "x"); err == nil {
			t.Errorf("Deliver(%q) should fail", target)
		}
	}
}
