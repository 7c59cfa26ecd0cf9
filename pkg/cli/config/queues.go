package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"github.com/sitefix-lab/sitefix/pkg/service/queue"
	"github.com/urfave/cli/v3"
)

// Queues holds CLI flags for queue policy overrides
type Queues struct {
	configPath string
}

// Flags returns CLI flags for queue configuration
func (q *Queues) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "queue-config",
			Usage:       "Path to a TOML file overriding per-queue policies",
			Sources:     cli.EnvVars("SITEFIX_QUEUE_CONFIG"),
			Destination: &q.configPath,
		},
	}
}

// queuePolicyTOML is one [queue.<name>] section. Zero or missing fields keep
// the default policy value.
type queuePolicyTOML struct {
	Concurrency   int    `toml:"concurrency"`
	Attempts      int    `toml:"attempts"`
	BackoffBase   string `toml:"backoff_base"`
	JobTimeout    string `toml:"job_timeout"`
	KeepCompleted int    `toml:"keep_completed"`
	KeepFailed    int    `toml:"keep_failed"`
}

type queuesTOML struct {
	Queue map[string]queuePolicyTOML `toml:"queue"`
}

// Configure parses the override file into queue manager options. No file
// configured means every queue runs its default policy.
func (q *Queues) Configure() ([]queue.Option, error) {
	if q.configPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(q.configPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read queue config", goerr.V("path", q.configPath))
	}

	var parsed queuesTOML
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, goerr.Wrap(err, "failed to parse queue config", goerr.V("path", q.configPath))
	}

	var opts []queue.Option
	for rawName, section := range parsed.Queue {
		name, err := types.ParseQueueName(rawName)
		if err != nil {
			return nil, goerr.Wrap(err, "unknown queue in config", goerr.V("path", q.configPath))
		}

		policy := queue.DefaultPolicy(name)
		if section.Concurrency > 0 {
			policy.Concurrency = section.Concurrency
		}
		if section.Attempts > 0 {
			policy.Attempts = section.Attempts
		}
		if section.BackoffBase != "" {
			d, err := time.ParseDuration(section.BackoffBase)
			if err != nil {
				return nil, goerr.Wrap(err, "invalid backoff_base", goerr.V("queue", name))
			}
			policy.BackoffBase = d
		}
		if section.JobTimeout != "" {
			d, err := time.ParseDuration(section.JobTimeout)
			if err != nil {
				return nil, goerr.Wrap(err, "invalid job_timeout", goerr.V("queue", name))
			}
			policy.JobTimeout = d
		}
		if section.KeepCompleted > 0 {
			policy.KeepCompleted = section.KeepCompleted
		}
		if section.KeepFailed > 0 {
			policy.KeepFailed = section.KeepFailed
		}

		opts = append(opts, queue.WithPolicy(name, policy))
	}

	return opts, nil
}
