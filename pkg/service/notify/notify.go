package notify

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
)

// Service posts best-effort notifications for terminal pipeline events.
// Delivery failure never affects the pipeline; callers dispatch
// notifications asynchronously.
type Service interface {
	Notify(ctx context.Context, event *model.Event) error
}

type client struct {
	api     *slack.Client
	channel string
}

// New creates a Slack notifier posting to the given channel
func New(token, channel string) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}
	if channel == "" {
		return nil, goerr.New("Slack channel is required")
	}

	return &client{
		api:     slack.New(token),
		channel: channel,
	}, nil
}

// Notify posts a message for terminal action events; other events are ignored
func (c *client) Notify(ctx context.Context, event *model.Event) error {
	var text string
	switch event.Kind {
	case model.EventActionVerified:
		text = fmt.Sprintf(":white_check_mark: Action `%s` verified", event.ActionID)
	case model.EventActionPartial:
		text = fmt.Sprintf(":warning: Action `%s` partially verified", event.ActionID)
	case model.EventActionFailed:
		text = fmt.Sprintf(":x: Action `%s` failed", event.ActionID)
	default:
		return nil
	}

	if summary, ok := event.Data["summary"].(string); ok && summary != "" {
		text += " - " + summary
	}

	_, _, err := c.api.PostMessageContext(ctx, c.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return goerr.Wrap(err, "failed to post Slack notification",
			goerr.V("channel", c.channel), goerr.V("action_id", event.ActionID))
	}

	return nil
}
