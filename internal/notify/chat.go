package notify

import (
	"context"
	"fmt"

	"github.com/zulandar/shepherd/internal/campaign"
	"github.com/zulandar/shepherd/internal/transport"
)

// ChatSink sends run summaries to the admin identity over the same chat
// transport the campaigns use.
type ChatSink struct {
	adapter    transport.Adapter
	adminPhone string
}

// NewChatSink creates a ChatSink. AdminPhone is the canonical identity of
// the operator.
func NewChatSink(adapter transport.Adapter, adminPhone string) (*ChatSink, error) {
	if adapter == nil {
		return nil, fmt.Errorf("notify: chat sink: adapter is required")
	}
	if adminPhone == "" {
		return nil, fmt.Errorf("notify: chat sink: admin phone is required")
	}
	return &ChatSink{adapter: adapter, adminPhone: adminPhone}, nil
}

// Deliver sends the formatted report to the admin identity.
func (s *ChatSink) Deliver(ctx context.Context, report campaign.RunReport) error {
	err := s.adapter.Send(ctx, transport.OutboundMessage{
		To:   s.adminPhone,
		Text: FormatReport(report),
	})
	if err != nil {
		return fmt.Errorf("notify: chat sink: %w", err)
	}
	return nil
}
