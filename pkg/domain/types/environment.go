package types

import "fmt"

// Environment selects the execution mode of a run policy
type Environment string

const (
	EnvironmentDryRun     Environment = "dry_run"
	EnvironmentStaging    Environment = "staging"
	EnvironmentProduction Environment = "production"
)

// AllEnvironments returns all valid environments
func AllEnvironments() []Environment {
	return []Environment{
		EnvironmentDryRun,
		EnvironmentStaging,
		EnvironmentProduction,
	}
}

// IsValid checks if the environment is valid
func (e Environment) IsValid() bool {
	switch e {
	case EnvironmentDryRun, EnvironmentStaging, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// Normalize returns the environment, treating empty as production
func (e Environment) Normalize() Environment {
	if e == "" {
		return EnvironmentProduction
	}
	return e
}

// String returns the string representation of the environment
func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment parses a string into an Environment
func ParseEnvironment(s string) (Environment, error) {
	env := Environment(s)
	if !env.IsValid() {
		return "", fmt.Errorf("invalid environment: %s", s)
	}
	return env, nil
}
