package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"github.com/thecodeteam/goodbye"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/simplesurance/labelmerge/internal/automerge"
	"github.com/simplesurance/labelmerge/internal/cfg"
	"github.com/simplesurance/labelmerge/internal/ghaction"
	"github.com/simplesurance/labelmerge/internal/githubclt"
	"github.com/simplesurance/labelmerge/internal/logfields"
)

const appName = "labelmerge"

var logger *zap.Logger

var commands = ghaction.NewCommands(os.Stdout, os.Getenv)

// goodbye runs exit handlers with lower priority values first. Flushing the
// logger must run last, the other handlers log.
const (
	exitPrioCancelRun       = 0
	exitPrioMetricsTextfile = 10
	exitPrioLogSync         = 100
)

// Version is set via a ldflag on compilation
var Version = "unknown"

// failOnErr reports err as workflow error and terminates the process with
// exit code 1.
func failOnErr(msg string, err error) {
	if err == nil {
		return
	}

	if logger != nil {
		logger.Error(msg, logfields.Event("run_failed"), zap.Error(err))
	}

	commands.Error(fmt.Sprintf("%s: %s", msg, err))

	goodbye.Exit(context.Background(), 1)
}

func panicHandler() {
	if r := recover(); r != nil {
		if logger == nil {
			logger = zap.NewNop()
		}

		logger.Info(
			"panic caught , terminating gracefully",
			zap.String("panic", fmt.Sprintf("%v", r)),
			zap.StackSkip("stacktrace", 1),
		)

		ctx, cancelFn := context.WithTimeout(context.Background(), time.Minute)
		defer cancelFn()

		goodbye.Exit(ctx, 1)
	}
}

type arguments struct {
	Verbose         *bool
	ConfigFile      *string
	ShowVersion     *bool
	Checks          *string
	Labels          *string
	Strategy        *string
	Token           *string
	RetryMax        *int
	RetryDelay      *time.Duration
	DryRun          *bool
	MetricsTextfile *string
}

var args arguments

func mustParseCommandlineParams() {
	args = arguments{
		Verbose: pflag.BoolP(
			"verbose",
			"v",
			false,
			"enable verbose logging",
		),
		ConfigFile: pflag.StringP(
			"cfg-file",
			"c",
			"",
			"path to an optional labelmerge configuration file",
		),
		ShowVersion: pflag.Bool(
			"version",
			false,
			"print the version and exit",
		),
		Checks: pflag.String(
			cfg.InputChecks,
			"",
			"comma-separated list of check run names that must succeed",
		),
		Labels: pflag.String(
			cfg.InputLabels,
			"",
			"comma-separated list of labels that enable merging",
		),
		Strategy: pflag.String(
			cfg.InputStrategy,
			"",
			"merge method, one of: merge, rebase, squash",
		),
		Token: pflag.String(
			cfg.InputToken,
			"",
			"GitHub API token",
		),
		RetryMax: pflag.Int(
			"retry-max",
			0,
			"number of poll cycles before giving up",
		),
		RetryDelay: pflag.Duration(
			"retry-delay",
			0,
			"time to wait between poll cycles",
		),
		DryRun: pflag.Bool(
			"dry-run",
			false,
			"simulate merging, do not merge the pull request",
		),
		MetricsTextfile: pflag.String(
			"metrics-textfile",
			"",
			"write prometheus metrics to this file on termination",
		),
	}

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]\nMerge a pull request when all required checks succeeded.\n", appName)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()
}

func mustParseCfg() *cfg.Config {
	// failOnErr reports errors in this function without logging them because
	// the logger is not initialized yet
	config := cfg.Default()

	if *args.ConfigFile != "" {
		file, err := os.Open(*args.ConfigFile)
		failOnErr("could not open configuration file", err)
		defer file.Close()

		config, err = cfg.Load(file)
		failOnErr(fmt.Sprintf("could not load configuration file: %s", *args.ConfigFile), err)
	}

	failOnErr("could not load action inputs", config.LoadInputs(os.Getenv))

	applyCommandlineParams(config)

	return config
}

func applyCommandlineParams(config *cfg.Config) {
	if pflag.CommandLine.Changed(cfg.InputChecks) {
		config.Checks = cfg.ParseList(*args.Checks)
	}

	if pflag.CommandLine.Changed(cfg.InputLabels) {
		config.Labels = cfg.ParseList(*args.Labels)
	}

	if pflag.CommandLine.Changed(cfg.InputStrategy) {
		config.Strategy = *args.Strategy
	}

	if pflag.CommandLine.Changed(cfg.InputToken) {
		config.GithubAPIToken = *args.Token
	}

	if pflag.CommandLine.Changed("retry-max") {
		config.RetryMax = *args.RetryMax
	}

	if pflag.CommandLine.Changed("retry-delay") {
		config.RetryDelay = args.RetryDelay.String()
	}

	if pflag.CommandLine.Changed("dry-run") {
		config.DryRun = *args.DryRun
	}

	if pflag.CommandLine.Changed("metrics-textfile") {
		config.MetricsTextfile = *args.MetricsTextfile
	}
}

func initLogFmtLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zapEncoderConfig(config)

	logger := zap.New(zapcore.NewCore(
		zaplogfmt.NewEncoder(cfg),
		os.Stdout,
		logLevel),
	)

	return logger
}

func zapEncoderConfig(config *cfg.Config) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()

	cfg.LevelKey = "loglevel"
	cfg.TimeKey = config.LogTimeKey
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	return cfg
}

func mustInitZapFormatLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig = zapEncoderConfig(config)
	cfg.OutputPaths = []string{"stdout"}
	cfg.Encoding = config.LogFormat
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	logger, err := cfg.Build()
	failOnErr("could not initialize logger", err)

	return logger
}

func mustInitLogger(config *cfg.Config) {
	var logLevel zapcore.Level
	if *args.Verbose {
		logLevel = zapcore.DebugLevel
	} else {
		if err := (&logLevel).Set(config.LogLevel); err != nil {
			failOnErr(fmt.Sprintf("can not set log level to %q", config.LogLevel), err)
		}
	}

	switch config.LogFormat {
	case "logfmt":
		logger = initLogFmtLogger(config, logLevel)
	case "console", "json":
		logger = mustInitZapFormatLogger(config, logLevel)
	default:
		failOnErr("invalid configuration", fmt.Errorf("unsupported log-format argument: %q", config.LogFormat))
	}

	logger = logger.Named("main")
	zap.ReplaceGlobals(logger)

	goodbye.RegisterWithPriority(func(context.Context, os.Signal) {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "flushing logs failed: %s\n", err)
		}
	}, exitPrioLogSync)
}

func registerMetricsTextfileWriter(path string) {
	if path == "" {
		return
	}

	goodbye.RegisterWithPriority(func(context.Context, os.Signal) {
		if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
			logger.Warn(
				"writing metrics textfile failed",
				logfields.Event("metrics_textfile_write_failed"),
				zap.String("metrics_textfile", path),
				zap.Error(err),
			)
		}
	}, exitPrioMetricsTextfile)
}

func hide(in string) string {
	if in == "" {
		return in
	}

	return "**hidden**"
}

func main() {
	defer panicHandler()

	defer goodbye.Exit(context.Background(), 1)
	goodbye.Notify(context.Background())

	mustParseCommandlineParams()

	if *args.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		os.Exit(0) // nolint:gocritic // defer functions won't run
	}

	config := mustParseCfg()

	mustInitLogger(config)

	failOnErr("invalid configuration", config.Validate())

	actionCtx, err := ghaction.LoadContext(os.Getenv)
	failOnErr("could not load workflow context", err)

	apiURL := config.GithubAPIURL
	if actionCtx.APIURL != "" {
		apiURL = actionCtx.APIURL
	}

	logger.Info(
		"loaded configuration",
		logfields.Event("cfg_loaded"),
		zap.String("cfg_file", *args.ConfigFile),
		zap.Strings("checks", config.Checks),
		zap.Strings("labels", config.Labels),
		zap.String("strategy", config.Strategy),
		zap.String("github_api_token", hide(config.GithubAPIToken)),
		zap.String("github_api_url", apiURL),
		zap.Int("retry_max", config.RetryMax),
		zap.Duration("retry_delay", config.RetryDelayDuration()),
		zap.Bool("dry_run", config.DryRun),
		zap.String("metrics_textfile", config.MetricsTextfile),
		zap.String("log_format", config.LogFormat),
		zap.String("log_level", config.LogLevel),
		logfields.GithubEvent(actionCtx.EventName),
	)

	registerMetricsTextfileWriter(config.MetricsTextfile)

	pr, err := automerge.NewPullRequestRef(
		actionCtx.RepositoryOwner,
		actionCtx.Repository,
		actionCtx.PullRequest,
		actionCtx.HeadSHA,
	)
	failOnErr("invalid pull request in workflow context", err)

	githubClient, err := githubclt.New(config.GithubAPIToken, apiURL)
	failOnErr("could not create github client", err)

	var ghClient automerge.GithubClient = githubClient
	if config.DryRun {
		ghClient = automerge.NewDryGithubClient(githubClient, logger)
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	goodbye.RegisterWithPriority(func(_ context.Context, sig os.Signal) {
		if sig != nil {
			logger.Info(fmt.Sprintf("terminating, received signal %s", sig.String()))
		}

		cancelFn()
	}, exitPrioCancelRun)

	controller := automerge.NewController(
		ghClient,
		pr,
		config.Checks,
		config.Labels,
		config.MergeMethod(),
		automerge.WithRetryMax(config.RetryMax),
		automerge.WithRetryDelay(config.RetryDelayDuration()),
	)

	outcome, err := controller.Run(ctx)
	failOnErr(fmt.Sprintf("automerging %s failed", pr), err)

	if err := commands.SetOutput("result", outcome.String()); err != nil {
		logger.Warn("setting step output failed", logfields.Event("set_output_failed"), zap.Error(err))
	}

	goodbye.Exit(context.Background(), 0)
}
