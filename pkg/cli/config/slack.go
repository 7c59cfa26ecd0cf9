package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/service/notify"
	"github.com/urfave/cli/v3"
)

// Slack holds CLI flags for Slack notification configuration
type Slack struct {
	botToken string
	channel  string
}

// Flags returns CLI flags for Slack configuration
func (s *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack bot token for pipeline notifications",
			Sources:     cli.EnvVars("SITEFIX_SLACK_BOT_TOKEN"),
			Destination: &s.botToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel for pipeline notifications",
			Sources:     cli.EnvVars("SITEFIX_SLACK_CHANNEL"),
			Destination: &s.channel,
		},
	}
}

// IsConfigured reports whether both token and channel are set
func (s *Slack) IsConfigured() bool {
	return s.botToken != "" && s.channel != ""
}

// Configure creates the Slack notifier. Returns nil when not configured
// (notifications are disabled).
func (s *Slack) Configure() (notify.Service, error) {
	if s.botToken == "" && s.channel == "" {
		return nil, nil
	}
	if !s.IsConfigured() {
		return nil, goerr.New("both slack-bot-token and slack-channel are required for notifications")
	}
	return notify.New(s.botToken, s.channel)
}
