package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

func cmdVerify() *cli.Command {
	var baseURL string
	var actionID string

	return &cli.Command{
		Name:  "verify",
		Usage: "Re-run verification for an action",
		Flags: []cli.Flag{
			baseURLFlag(&baseURL),
			&cli.StringFlag{
				Name:        "action",
				Usage:       "Action ID to verify",
				Required:    true,
				Destination: &actionID,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			var resp struct {
				OverallStatus string `json:"overall_status"`
				Summary       string `json:"summary"`
				TotalChecks   int    `json:"total_checks"`
				PassedChecks  int    `json:"passed_checks"`
				FailedChecks  int    `json:"failed_checks"`
			}
			err := newAPIClient(baseURL).call(ctx, http.MethodPost,
				"/api/actions/"+actionID+"/verify", nil, &resp)
			if err != nil {
				return err
			}

			switch resp.OverallStatus {
			case "verified":
				color.Green("verified: %s", resp.Summary)
			case "partial":
				color.Yellow("partial: %s", resp.Summary)
			default:
				color.Red("failed: %s", resp.Summary)
			}
			fmt.Printf("checks: %d total, %d passed, %d failed\n",
				resp.TotalChecks, resp.PassedChecks, resp.FailedChecks)
			return nil
		},
	}
}
