package cfg

import (
	"strings"

	"github.com/simplesurance/labelmerge/internal/mergeerr"
)

const (
	InputChecks     = "checks"
	InputLabels     = "labels"
	InputStrategy   = "strategy"
	InputToken      = "token"
	InputRetryMax   = "retry_max"
	InputRetryDelay = "retry_delay"
	InputDryRun     = "dry_run"
)

// InputEnvVar returns the name of the environment variable in which GitHub
// Actions passes the value of the input name.
func InputEnvVar(name string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
}

// LoadInputs overwrites the configuration with the action inputs that are
// set to a non-empty value.
// getenv is usually os.Getenv.
func (c *Config) LoadInputs(getenv func(string) string) error {
	input := func(name string) string {
		return strings.TrimSpace(getenv(InputEnvVar(name)))
	}

	if v := input(InputChecks); v != "" {
		c.Checks = ParseList(v)
	}

	if v := input(InputLabels); v != "" {
		c.Labels = ParseList(v)
	}

	if v := input(InputStrategy); v != "" {
		c.Strategy = v
	}

	if v := input(InputToken); v != "" {
		c.GithubAPIToken = v
	}

	if v := input(InputRetryMax); v != "" {
		retryMax, err := parseRetryMax(v)
		if err != nil {
			return &mergeerr.ConfigurationError{Err: err}
		}

		c.RetryMax = retryMax
	}

	if v := input(InputRetryDelay); v != "" {
		c.RetryDelay = v
	}

	if v := input(InputDryRun); v != "" {
		c.DryRun = v == "true"
	}

	return nil
}
