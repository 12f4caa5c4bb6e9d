// Package cfg loads the labelmerge configuration.
//
// The configuration is assembled from an optional TOML configuration file
// and the GitHub Actions inputs. Inputs overwrite values from the file.
package cfg

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/simplesurance/labelmerge/internal/githubclt"
	"github.com/simplesurance/labelmerge/internal/mergeerr"
)

const (
	DefLogFormat  = "logfmt"
	DefLogTimeKey = "time_iso8601"
	DefLogLevel   = "info"
	DefRetryMax   = 30
	DefRetryDelay = "60s"
)

type Config struct {
	Checks   []string `toml:"checks"`
	Labels   []string `toml:"labels"`
	Strategy string   `toml:"strategy"`

	GithubAPIToken string `toml:"github_api_token"`
	GithubAPIURL   string `toml:"github_api_url"`

	RetryMax   int    `toml:"retry_max"`
	RetryDelay string `toml:"retry_delay"`

	DryRun          bool   `toml:"dry_run"`
	MetricsTextfile string `toml:"metrics_textfile"`

	LogFormat  string `toml:"log_format"`
	LogTimeKey string `toml:"log_time_key"`
	LogLevel   string `toml:"log_level"`

	retryDelay  time.Duration         `toml:"-"`
	mergeMethod githubclt.MergeMethod `toml:"-"`
}

// Default returns a configuration that only has the default values set.
func Default() *Config {
	var result Config
	result.setDefaults()
	return &result
}

// Load reads a TOML configuration from reader.
// Unset settings are set to their default values. strategy has no default,
// it must be set in the file or as input.
func Load(reader io.Reader) (*Config, error) {
	var result Config

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	result.setDefaults()

	return &result, nil
}

func (c *Config) setDefaults() {
	if c.GithubAPIURL == "" {
		c.GithubAPIURL = githubclt.DefaultAPIURL
	}

	if c.RetryMax == 0 {
		c.RetryMax = DefRetryMax
	}

	if c.RetryDelay == "" {
		c.RetryDelay = DefRetryDelay
	}

	if c.LogFormat == "" {
		c.LogFormat = DefLogFormat
	}

	if c.LogTimeKey == "" {
		c.LogTimeKey = DefLogTimeKey
	}

	if c.LogLevel == "" {
		c.LogLevel = DefLogLevel
	}
}

// ParseList splits a comma separated list, trims whitespace from the
// elements and removes empty elements and duplicates.
// The order of the first occurrences is kept.
func ParseList(s string) []string {
	return normalizeList(strings.Split(s, ","))
}

func normalizeList(sl []string) []string {
	var result []string
	seen := map[string]struct{}{}

	for _, elem := range sl {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			continue
		}

		if _, exists := seen[elem]; exists {
			continue
		}

		seen[elem] = struct{}{}
		result = append(result, elem)
	}

	return result
}

// Validate checks the configuration for errors.
// It must be called before MergeMethod() or RetryDelayDuration() are used.
// All returned errors are *mergeerr.ConfigurationError.
func (c *Config) Validate() error {
	checks := normalizeList(c.Checks)
	if len(checks) == 0 {
		return mergeerr.NewConfigurationError("no required checks are defined")
	}

	labels := normalizeList(c.Labels)
	if len(labels) == 0 {
		return mergeerr.NewConfigurationError("no trigger labels are defined")
	}

	method, err := githubclt.ParseMergeMethod(c.Strategy)
	if err != nil {
		return &mergeerr.ConfigurationError{Err: fmt.Errorf("invalid merge strategy: %w", err)}
	}

	if c.GithubAPIToken == "" {
		return mergeerr.NewConfigurationError("github api token is empty")
	}

	if c.RetryMax < 1 {
		return mergeerr.NewConfigurationError("retry_max is %d, must be >=1", c.RetryMax)
	}

	delay, err := time.ParseDuration(c.RetryDelay)
	if err != nil {
		return &mergeerr.ConfigurationError{Err: fmt.Errorf("invalid retry_delay: %w", err)}
	}

	if delay < 0 {
		return mergeerr.NewConfigurationError("retry_delay is %s, must be >=0", delay)
	}

	c.Checks = checks
	c.Labels = labels
	c.mergeMethod = method
	c.retryDelay = delay

	return nil
}

// MergeMethod returns the configured merge strategy.
func (c *Config) MergeMethod() githubclt.MergeMethod {
	return c.mergeMethod
}

// RetryDelayDuration returns the time to wait between poll cycles.
func (c *Config) RetryDelayDuration() time.Duration {
	return c.retryDelay
}

// parseRetryMax is used for inputs that are passed as strings.
func parseRetryMax(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("retry_max: %w", err)
	}

	return v, nil
}
