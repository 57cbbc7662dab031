// Package notify sends run diagnostics to a Telegram chat. It implements
// the engine's Reporter interface so wiring it in is a one-liner.
package notify

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kellertobias/calmirror/internal/domain"
)

type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

// RecordRun posts a short summary of one sync run. Only failed and
// non-empty runs are reported; quiet cycles stay quiet.
func (t *Telegram) RecordRun(sum *domain.RunSummary) error {
	if sum.Status == "empty" {
		return nil
	}

	var text string
	switch sum.Status {
	case "failed":
		text = fmt.Sprintf("❌ <b>%s</b> failed\n%s", sum.SyncName, sum.Message)
	default:
		text = fmt.Sprintf("🔄 <b>%s</b>: +%d ~%d -%d (took %s)",
			sum.SyncName,
			sum.AppliedCreated, sum.AppliedUpdated, sum.AppliedDeleted,
			sum.FinishedAt.Sub(sum.StartedAt).Round(time.Second))
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.api.Send(msg); err != nil {
		t.log.Warn("telegram notify failed", zap.Error(err))
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
