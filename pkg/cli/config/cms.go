package config

import (
	"log/slog"

	"github.com/sitefix-lab/sitefix/pkg/domain/interfaces"
	"github.com/sitefix-lab/sitefix/pkg/service/publish"
	"github.com/urfave/cli/v3"
)

// CMS holds CLI flags for the CMS publishing client
type CMS struct {
	baseURL string
	token   string
}

// Flags returns CLI flags for CMS configuration
func (c *CMS) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cms-base-url",
			Usage:       "Base URL of the CMS REST API",
			Sources:     cli.EnvVars("SITEFIX_CMS_BASE_URL"),
			Destination: &c.baseURL,
		},
		&cli.StringFlag{
			Name:        "cms-api-token",
			Usage:       "Bearer token for the CMS REST API",
			Sources:     cli.EnvVars("SITEFIX_CMS_API_TOKEN"),
			Destination: &c.token,
		},
	}
}

// LogAttrs returns log attributes for the CMS configuration
func (c *CMS) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("base_url", c.baseURL),
		slog.Bool("token", c.token != ""),
	}
}

// Configure creates the CMS publisher. Returns nil when no base URL is
// configured (publishing actions will fail with a clear error).
func (c *CMS) Configure() (interfaces.Publisher, error) {
	if c.baseURL == "" {
		return nil, nil
	}
	return publish.New(c.baseURL, c.token)
}
