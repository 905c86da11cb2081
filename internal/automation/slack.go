package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"bubblecast/internal/models"
)

// SlackAPI is the subset of the Slack client the executor needs.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	JoinConversationContext(ctx context.Context, channelID string) (*slack.Channel, string, []string, error)
}

// SlackExecutor sends slack_notification actions. Configuration keys:
// channel_id (required), and message_template or blocks_template.
type SlackExecutor struct {
	api    SlackAPI
	logger *logrus.Logger
}

// NewSlackExecutor builds an executor with a real Slack client.
func NewSlackExecutor(token string, logger *logrus.Logger) *SlackExecutor {
	return &SlackExecutor{api: slack.New(token), logger: logger}
}

// NewSlackExecutorWithAPI builds an executor around an existing client.
func NewSlackExecutorWithAPI(api SlackAPI, logger *logrus.Logger) *SlackExecutor {
	return &SlackExecutor{api: api, logger: logger}
}

// Execute renders the configured template with the parameter bag and posts
// one message. When the channel rejects the post with not_in_channel, the
// executor joins the channel once and retries exactly once.
func (x *SlackExecutor) Execute(ctx context.Context, cfg models.JSONB, params map[string]interface{}, isTest bool) error {
	channelID, _ := cfg["channel_id"].(string)
	if channelID == "" {
		return fmt.Errorf("slack action is missing channel_id")
	}

	options, err := x.buildMessage(cfg, params, isTest)
	if err != nil {
		return err
	}

	_, _, err = x.api.PostMessageContext(ctx, channelID, options...)
	if err == nil {
		return nil
	}
	if !strings.Contains(err.Error(), "not_in_channel") {
		return err
	}

	x.logger.WithField("channel", channelID).Info("not in channel, joining and retrying")
	if _, _, _, joinErr := x.api.JoinConversationContext(ctx, channelID); joinErr != nil {
		return fmt.Errorf("could not join channel %s: %w", channelID, joinErr)
	}
	_, _, err = x.api.PostMessageContext(ctx, channelID, options...)
	return err
}

func (x *SlackExecutor) buildMessage(cfg models.JSONB, params map[string]interface{}, isTest bool) ([]slack.MsgOption, error) {
	text, _ := cfg["message_template"].(string)
	rendered := SubstituteString(text, params)
	if isTest && rendered != "" {
		rendered = TestPrefix + rendered
	}

	blocksTemplate, hasBlocks := cfg["blocks_template"]
	if !hasBlocks {
		if rendered == "" {
			return nil, fmt.Errorf("slack action has neither message_template nor blocks_template")
		}
		return []slack.MsgOption{slack.MsgOptionText(rendered, false)}, nil
	}

	substituted := SubstituteValue(blocksTemplate, params)
	raw, err := json.Marshal(substituted)
	if err != nil {
		return nil, fmt.Errorf("could not encode blocks template: %w", err)
	}

	// Accept either a full {"blocks": [...]} document or a bare block array.
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		raw = []byte(fmt.Sprintf(`{"blocks":%s}`, raw))
	}
	var msg slack.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid blocks template: %w", err)
	}

	fallback := rendered
	if fallback == "" {
		fallback = "Notification"
		if isTest {
			fallback = TestPrefix + fallback
		}
	}

	return []slack.MsgOption{
		slack.MsgOptionText(fallback, false),
		slack.MsgOptionBlocks(msg.Blocks.BlockSet...),
	}, nil
}
