package cfg

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplesurance/labelmerge/internal/githubclt"
	"github.com/simplesurance/labelmerge/internal/mergeerr"
)

const testCfg = `
checks = ["build", "test"]
labels = ["ready-to-merge"]
strategy = "squash"
github_api_token = "secret"
retry_max = 10
retry_delay = "15s"
dry_run = true
metrics_textfile = "/tmp/labelmerge.prom"
log_format = "json"
`

func envMap(m map[string]string) func(string) string {
	return func(k string) string {
		return m[k]
	}
}

func TestLoad(t *testing.T) {
	config, err := Load(strings.NewReader(testCfg))
	require.NoError(t, err)

	assert.Equal(t, []string{"build", "test"}, config.Checks)
	assert.Equal(t, []string{"ready-to-merge"}, config.Labels)
	assert.Equal(t, "squash", config.Strategy)
	assert.Equal(t, 10, config.RetryMax)
	assert.Equal(t, "15s", config.RetryDelay)
	assert.True(t, config.DryRun)
	assert.Equal(t, "/tmp/labelmerge.prom", config.MetricsTextfile)
	assert.Equal(t, "json", config.LogFormat)
	assert.Equal(t, DefLogLevel, config.LogLevel)
	assert.Equal(t, githubclt.DefaultAPIURL, config.GithubAPIURL)

	require.NoError(t, config.Validate())
	assert.Equal(t, githubclt.MergeMethodSquash, config.MergeMethod())
	assert.Equal(t, 15*time.Second, config.RetryDelayDuration())
}

func TestLoadInvalidToml(t *testing.T) {
	_, err := Load(strings.NewReader(`checks = [`))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	config := Default()

	assert.Equal(t, DefRetryMax, config.RetryMax)
	assert.Equal(t, DefRetryDelay, config.RetryDelay)
	assert.Empty(t, config.Strategy)
	assert.Equal(t, DefLogFormat, config.LogFormat)
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"build", "test"}, ParseList("build,test"))
	assert.Equal(t, []string{"build", "unit test"}, ParseList(" build , unit test "))
	assert.Equal(t, []string{"build", "test"}, ParseList("build,,test,"))
	assert.Equal(t, []string{"build", "test"}, ParseList("build,test,build"))
	assert.Empty(t, ParseList(""))
	assert.Empty(t, ParseList(" , ,"))
}

func TestLoadInputsOverwriteFileValues(t *testing.T) {
	config, err := Load(strings.NewReader(testCfg))
	require.NoError(t, err)

	err = config.LoadInputs(envMap(map[string]string{
		"INPUT_CHECKS":      "lint, build ,lint",
		"INPUT_LABELS":      "automerge",
		"INPUT_STRATEGY":    "rebase",
		"INPUT_TOKEN":       "input-secret",
		"INPUT_RETRY_MAX":   "3",
		"INPUT_RETRY_DELAY": "1m",
	}))
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, []string{"lint", "build"}, config.Checks)
	assert.Equal(t, []string{"automerge"}, config.Labels)
	assert.Equal(t, githubclt.MergeMethodRebase, config.MergeMethod())
	assert.Equal(t, "input-secret", config.GithubAPIToken)
	assert.Equal(t, 3, config.RetryMax)
	assert.Equal(t, time.Minute, config.RetryDelayDuration())
	assert.True(t, config.DryRun, "unset input must not overwrite file value")
}

func TestStrategyWithoutValueIsInvalid(t *testing.T) {
	config, err := Load(strings.NewReader(`
checks = ["build"]
labels = ["ready-to-merge"]
github_api_token = "secret"
`))
	require.NoError(t, err)
	require.NoError(t, config.LoadInputs(envMap(map[string]string{"INPUT_STRATEGY": ""})))

	assert.Empty(t, config.Strategy)

	var cfgErr *mergeerr.ConfigurationError
	require.ErrorAs(t, config.Validate(), &cfgErr)
	assert.Contains(t, cfgErr.Error(), "invalid merge strategy")
}

func TestLoadInputsInvalidRetryMax(t *testing.T) {
	err := Default().LoadInputs(envMap(map[string]string{"INPUT_RETRY_MAX": "many"}))

	var cfgErr *mergeerr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Checks = []string{"build"}
		c.Labels = []string{"ready-to-merge"}
		c.GithubAPIToken = "secret"
		c.Strategy = "merge"
		return c
	}

	require.NoError(t, valid().Validate())

	testcases := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "no_checks", modify: func(c *Config) { c.Checks = nil }},
		{name: "only_empty_checks", modify: func(c *Config) { c.Checks = []string{" ", ""} }},
		{name: "no_labels", modify: func(c *Config) { c.Labels = nil }},
		{name: "invalid_strategy", modify: func(c *Config) { c.Strategy = "fast-forward" }},
		{name: "empty_strategy", modify: func(c *Config) { c.Strategy = "" }},
		{name: "empty_token", modify: func(c *Config) { c.GithubAPIToken = "" }},
		{name: "negative_retry_max", modify: func(c *Config) { c.RetryMax = -1 }},
		{name: "invalid_retry_delay", modify: func(c *Config) { c.RetryDelay = "one minute" }},
		{name: "negative_retry_delay", modify: func(c *Config) { c.RetryDelay = "-1s" }},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.modify(c)

			var cfgErr *mergeerr.ConfigurationError
			require.ErrorAs(t, c.Validate(), &cfgErr)
		})
	}
}
