package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/sitefix-lab/sitefix/pkg/cli/config"
	httpctrl "github.com/sitefix-lab/sitefix/pkg/controller/http"
	"github.com/sitefix-lab/sitefix/pkg/domain/interfaces"
	"github.com/sitefix-lab/sitefix/pkg/service/fetch"
	"github.com/sitefix-lab/sitefix/pkg/service/generate"
	"github.com/sitefix-lab/sitefix/pkg/service/inspect"
	"github.com/sitefix-lab/sitefix/pkg/service/queue"
	"github.com/sitefix-lab/sitefix/pkg/service/worker"
	"github.com/sitefix-lab/sitefix/pkg/usecase"
	"github.com/sitefix-lab/sitefix/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var checkTimeout time.Duration
	var crawlWindow time.Duration
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var slackCfg config.Slack
	var cmsCfg config.CMS
	var queuesCfg config.Queues

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("SITEFIX_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "check-timeout",
			Usage:       "Timeout for a single live verification fetch",
			Value:       10 * time.Second,
			Sources:     cli.EnvVars("SITEFIX_CHECK_TIMEOUT"),
			Destination: &checkTimeout,
		},
		&cli.DurationFlag{
			Name:        "crawl-window",
			Usage:       "Recency window for crawl verification",
			Value:       time.Hour,
			Sources:     cli.EnvVars("SITEFIX_CRAWL_WINDOW"),
			Destination: &crawlWindow,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, cmsCfg.Flags()...)
	flags = append(flags, queuesCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the pipeline server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			notifier, err := slackCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure Slack notifications")
			}
			if notifier != nil {
				logging.Default().Info("Slack notifications enabled")
			}

			publisher, err := cmsCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure CMS client")
			}
			if publisher == nil {
				logging.Default().Info("CMS base URL not configured, publishing actions will fail")
			}

			var generator interfaces.ContentGenerator
			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure Gemini client")
			}
			if llmClient != nil {
				generator, err = generate.New(llmClient)
				if err != nil {
					return goerr.Wrap(err, "failed to initialize content generator")
				}
				logging.Default().Info("Content generation enabled")
			} else {
				logging.Default().Info("Gemini project not configured, content generation will fail")
			}

			fetcher := fetch.New()
			inspector := inspect.New()

			uc := usecase.New(repo,
				usecase.WithFetcher(fetcher),
				usecase.WithInspector(inspector),
				usecase.WithNotifier(notifier),
				usecase.WithCheckTimeout(checkTimeout),
				usecase.WithCrawlWindow(crawlWindow),
			)

			registry := worker.NewRegistry(repo, uc.Projector(), uc.Verifier(),
				generator, publisher, fetcher, inspector)

			queueOpts, err := queuesCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load queue config")
			}
			mgr := queue.NewManager(registry.Execute, registry.OnDone, queueOpts...)
			uc.AttachQueues(mgr)
			registry.SetEnqueuer(mgr)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				// Stop accepting requests first, then drain the queues so
				// no handler can enqueue into a closed manager.
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}
				if err := mgr.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to drain queues")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
