package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

type Slack struct {
	api       *slack.Client
	channelID string
}

// NewSlack returns nil when no bot token or channel is configured.
func NewSlack(token, channelID string, opts ...slack.Option) *Slack {
	if token == "" || channelID == "" {
		return nil
	}
	return &Slack{api: slack.New(token, opts...), channelID: channelID}
}

func (s *Slack) Name() string {
	return "slack"
}

func (s *Slack) Notify(ctx context.Context, alert Alert) error {
	return s.Announce(ctx, FormatAlert(alert))
}

func (s *Slack) Announce(ctx context.Context, text string) error {
	if _, _, err := s.api.PostMessageContext(ctx, s.channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("%w: slack: %v", ErrNotificationFailure, err)
	}
	return nil
}
