package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fatih/color"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

func cmdStats() *cli.Command {
	var baseURL string
	var queueName string

	return &cli.Command{
		Name:  "stats",
		Usage: "Show queue depth counters",
		Flags: []cli.Flag{
			baseURLFlag(&baseURL),
			&cli.StringFlag{
				Name:        "queue",
				Usage:       "Queue name (default: all queues)",
				Destination: &queueName,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			names := types.AllQueueNames()
			if queueName != "" {
				name, err := types.ParseQueueName(queueName)
				if err != nil {
					return err
				}
				names = []types.QueueName{name}
			}

			client := newAPIClient(baseURL)
			for _, name := range names {
				var resp struct {
					Waiting   int  `json:"waiting"`
					Active    int  `json:"active"`
					Completed int  `json:"completed"`
					Failed    int  `json:"failed"`
					Delayed   int  `json:"delayed"`
					Paused    bool `json:"paused"`
				}
				err := client.call(ctx, http.MethodGet,
					"/api/queues/"+name.String()+"/stats", nil, &resp)
				if err != nil {
					return err
				}

				header := name.String()
				if resp.Paused {
					header += " (paused)"
					color.Yellow("%s", header)
				} else {
					color.Cyan("%s", header)
				}
				fmt.Printf("  waiting=%d active=%d delayed=%d completed=%d failed=%d\n",
					resp.Waiting, resp.Active, resp.Delayed, resp.Completed, resp.Failed)
			}
			return nil
		},
	}
}
