package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdSubmit() *cli.Command {
	var baseURL string
	var actionType string
	var siteID string
	var ownerToken string
	var payloadJSON string
	var payloadPath string
	var dedupeToken string
	var environment string
	var priority int
	var maxPages int
	var maxPatches int

	return &cli.Command{
		Name:  "submit",
		Usage: "Submit an action to the pipeline",
		Flags: []cli.Flag{
			baseURLFlag(&baseURL),
			&cli.StringFlag{
				Name:        "type",
				Usage:       "Action type (content_generation, technical_seo_fix, cms_publishing, schema_injection, technical_seo_crawl, generic)",
				Required:    true,
				Destination: &actionType,
			},
			&cli.StringFlag{
				Name:        "site",
				Usage:       "Target site ID",
				Destination: &siteID,
			},
			&cli.StringFlag{
				Name:        "owner-token",
				Usage:       "Owner token recorded on the action",
				Sources:     cli.EnvVars("SITEFIX_OWNER_TOKEN"),
				Destination: &ownerToken,
			},
			&cli.StringFlag{
				Name:        "payload",
				Usage:       "Action payload as inline JSON",
				Destination: &payloadJSON,
			},
			&cli.StringFlag{
				Name:        "payload-file",
				Usage:       "Path to a JSON file with the action payload",
				Destination: &payloadPath,
			},
			&cli.StringFlag{
				Name:        "dedupe-token",
				Usage:       "Token distinguishing intentional re-executions",
				Destination: &dedupeToken,
			},
			&cli.StringFlag{
				Name:        "environment",
				Usage:       "Run environment (dry_run, staging, production)",
				Value:       "production",
				Destination: &environment,
			},
			&cli.IntFlag{
				Name:        "priority",
				Usage:       "Queue priority (higher runs first)",
				Destination: &priority,
			},
			&cli.IntFlag{
				Name:        "max-pages",
				Usage:       "Page cap for crawl actions",
				Destination: &maxPages,
			},
			&cli.IntFlag{
				Name:        "max-patches",
				Usage:       "Patch cap for fix actions",
				Destination: &maxPatches,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			raw := payloadJSON
			if payloadPath != "" {
				data, err := os.ReadFile(payloadPath)
				if err != nil {
					return goerr.Wrap(err, "failed to read payload file", goerr.V("path", payloadPath))
				}
				raw = string(data)
			}

			payload := map[string]any{}
			if raw != "" {
				if err := json.Unmarshal([]byte(raw), &payload); err != nil {
					return goerr.Wrap(err, "payload is not valid JSON")
				}
			}

			var resp struct {
				ActionID       string `json:"action_id"`
				RunID          string `json:"run_id"`
				IdempotencyKey string `json:"idempotency_key"`
				Duplicate      bool   `json:"duplicate"`
				Queued         bool   `json:"queued"`
			}
			err := newAPIClient(baseURL).call(ctx, http.MethodPost, "/api/actions", map[string]any{
				"action_type":  actionType,
				"site_id":      siteID,
				"owner_token":  ownerToken,
				"payload":      payload,
				"dedupe_token": dedupeToken,
				"environment":  environment,
				"priority":     priority,
				"max_pages":    maxPages,
				"max_patches":  maxPatches,
			}, &resp)
			if err != nil {
				return err
			}

			if resp.Duplicate {
				color.Yellow("duplicate: run %s already exists for this key", resp.RunID)
			} else if resp.Queued {
				color.Green("queued: action %s", resp.ActionID)
			} else {
				color.Yellow("accepted: action %s recorded, not queued", resp.ActionID)
			}
			fmt.Printf("action_id:       %s\n", resp.ActionID)
			fmt.Printf("run_id:          %s\n", resp.RunID)
			fmt.Printf("idempotency_key: %s\n", resp.IdempotencyKey)
			return nil
		},
	}
}
