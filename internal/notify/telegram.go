package notify

import (
	"context"
	"errors"
	"fmt"
)

// TextSender is the part of the Telegram client the notifier needs.
type TextSender interface {
	SendText(chatID int64, text string) error
}

// Telegram forwards alerts to the administrator chats.
type Telegram struct {
	sender  TextSender
	chatIDs []int64
}

// NewTelegram returns nil when there is no client or no chat to notify.
func NewTelegram(sender TextSender, chatIDs []int64) *Telegram {
	if sender == nil || len(chatIDs) == 0 {
		return nil
	}
	return &Telegram{sender: sender, chatIDs: chatIDs}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Notify(ctx context.Context, alert Alert) error {
	return t.Announce(ctx, FormatAlert(alert))
}

func (t *Telegram) Announce(ctx context.Context, text string) error {
	var errs []error
	for _, id := range t.chatIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := t.sender.SendText(id, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: telegram: %v", ErrNotificationFailure, errors.Join(errs...))
	}
	return nil
}
