package notify

import (
	"context"
	"fmt"

	goslack "github.com/slack-go/slack"
	"github.com/zulandar/shepherd/internal/campaign"
)

// SlackSink posts run summaries to an operations channel. With an empty
// token or channel the sink is a noop, so it can always be registered.
type SlackSink struct {
	client  *goslack.Client
	channel string
}

// NewSlackSink creates a SlackSink. An empty botToken disables it.
func NewSlackSink(botToken, channel string) *SlackSink {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &SlackSink{client: client, channel: channel}
}

// IsEnabled returns true when the sink has a client and a channel.
func (s *SlackSink) IsEnabled() bool {
	return s.client != nil && s.channel != ""
}

// Deliver posts the formatted report to the configured channel.
func (s *SlackSink) Deliver(ctx context.Context, report campaign.RunReport) error {
	if !s.IsEnabled() {
		return nil
	}
	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		goslack.MsgOptionText(FormatReport(report), false))
	if err != nil {
		return fmt.Errorf("notify: slack sink: %w", err)
	}
	return nil
}
