package alerts

import (
	"context"

	"go.uber.org/zap"

	"github.com/sudo-init-do/brandwacht/internal/marketplace"
)

// LogTransport writes messages to the log instead of Slack. It is used when
// no bot token is configured.
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport returns a transport that logs at info level.
func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Post(_ context.Context, channel string, msg Message) (marketplace.RenderTarget, error) {
	t.logger.Info("slack disabled, message not posted", zap.String("channel", channel), zap.String("text", msg.Text))
	return marketplace.RenderTarget{}, nil
}

func (t *LogTransport) Update(_ context.Context, target marketplace.RenderTarget, msg Message) error {
	t.logger.Info("slack disabled, message not updated",
		zap.String("channel", target.Channel),
		zap.String("ts", target.MessageTS),
		zap.String("text", msg.Text),
	)
	return nil
}

// DisplayName has nothing to look up without Slack.
func (t *LogTransport) DisplayName(context.Context, string) (string, error) {
	return "", nil
}

var (
	_ Transport                 = (*LogTransport)(nil)
	_ Transport                 = (*SlackClient)(nil)
	_ marketplace.ActorResolver = (*SlackClient)(nil)
	_ marketplace.ActorResolver = (*LogTransport)(nil)
)
