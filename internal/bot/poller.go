package bot

import (
	"context"
	"time"

	"github.com/kashifkhan1020/KamiNewMods/internal/telegram"

	"go.uber.org/zap"
)

// Updater is the long-poll half of the Telegram client.
type Updater interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
}

// Poller feeds getUpdates results to the bot, for deployments without a
// public webhook URL.
type Poller struct {
	api     Updater
	bot     *Bot
	logger  *zap.Logger
	timeout time.Duration
	backoff time.Duration
	offset  int64
}

func NewPoller(api Updater, b *Bot, logger *zap.Logger, timeout time.Duration) *Poller {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &Poller{api: api, bot: b, logger: logger, timeout: timeout, backoff: time.Second}
}

// Start runs the poll loop until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Bot poller started", zap.Duration("timeout", p.timeout))

	for {
		updates, err := p.api.GetUpdates(ctx, p.offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("Bot poller shutting down")
				return
			}
			p.logger.Error("getUpdates failed", zap.Error(err))
			select {
			case <-ctx.Done():
				p.logger.Info("Bot poller shutting down")
				return
			case <-time.After(p.backoff):
			}
			continue
		}

		for _, u := range updates {
			// Acknowledge before handling so a bad update is never redelivered.
			p.offset = u.UpdateID + 1
			if err := p.bot.HandleUpdate(ctx, u); err != nil {
				p.logger.Error("Failed to handle update", zap.Int64("update_id", u.UpdateID), zap.Error(err))
			}
		}
	}
}
