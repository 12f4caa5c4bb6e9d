package automerge

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/simplesurance/labelmerge/internal/githubclt"
	"github.com/simplesurance/labelmerge/internal/logfields"
	"github.com/simplesurance/labelmerge/internal/mergeerr"
)

const loggerName = "automerge"

const (
	DefRetryMax   = 30
	DefRetryDelay = time.Minute
)

//go:generate mockgen -destination=mocks/githubclient.go -package=mocks . GithubClient

// GithubClient is the interface of the GitHub API operations the
// Controller depends on.
type GithubClient interface {
	PullRequest(ctx context.Context, owner, repo string, number int) (*githubclt.PullRequest, error)
	CheckRuns(ctx context.Context, owner, repo, ref string) ([]*githubclt.CheckRun, error)
	MergePullRequest(ctx context.Context, owner, repo string, number int, method githubclt.MergeMethod, expectedHeadSHA string) (*githubclt.MergeResult, error)
}

// Outcome is the terminal state of a run.
type Outcome uint8

const (
	outcomePending Outcome = iota
	OutcomeMerged
	OutcomeAbandoned
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case outcomePending:
		return "pending"
	case OutcomeMerged:
		return "merged"
	case OutcomeAbandoned:
		return "abandoned"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", o)
	}
}

// Controller polls the state of a pull request until it can be merged, it
// is not eligible for merging anymore or the retry budget is exhausted.
type Controller struct {
	logger *zap.Logger

	pr             *PullRequestRef
	requiredChecks map[string]struct{}
	triggerLabels  map[string]struct{}

	fetcher *fetcher
	merger  *merger

	retryMax   int
	retryDelay time.Duration
	clock      clock.Clock
}

type Option func(*Controller)

// WithRetryMax sets the number of poll cycles after that the run fails.
// Values <1 are ignored.
func WithRetryMax(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.retryMax = n
		}
	}
}

// WithRetryDelay sets the time that is waited between poll cycles.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.retryDelay = d
	}
}

// WithClock sets the clock that is used to wait between poll cycles.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		c.clock = clk
	}
}

func NewController(
	ghClient GithubClient,
	pr *PullRequestRef,
	requiredChecks []string,
	triggerLabels []string,
	mergeMethod githubclt.MergeMethod,
	opts ...Option,
) *Controller {
	c := Controller{
		logger:         zap.L().Named(loggerName),
		pr:             pr,
		requiredChecks: toStrSet(requiredChecks),
		triggerLabels:  toStrSet(triggerLabels),
		fetcher:        &fetcher{clt: ghClient},
		merger:         &merger{clt: ghClient, method: mergeMethod},
		retryMax:       DefRetryMax,
		retryDelay:     DefRetryDelay,
		clock:          clock.New(),
	}

	for _, o := range opts {
		o(&c)
	}

	return &c
}

// Run polls the pull request until it was merged or polling is abandoned.
// It returns OutcomeAbandoned and a nil error when the pull request is not
// eligible anymore.
// It returns OutcomeFailed and an error when fetching the state or merging
// failed, the context was cancelled, or no successful check run for all
// required checks was reported within the retry budget.
// In the last case the error wraps mergeerr.ErrRetriesExhausted.
func (c *Controller) Run(ctx context.Context) (Outcome, error) {
	logger := c.logger.With(c.pr.LogFields()...)

	logger.Info(
		"polling pull request status",
		logEventPollingStarted,
		zap.Strings("required_checks", strSetToSortedSlice(c.requiredChecks)),
		zap.Strings("trigger_labels", strSetToSortedSlice(c.triggerLabels)),
		logfields.MergeMethod(string(c.merger.method)),
		zap.Int("retry_max", c.retryMax),
		zap.Duration("retry_delay", c.retryDelay),
	)

	outcome, err := c.run(ctx, logger)
	metrics.RunFinished(outcome)

	return outcome, err
}

// newRetryBackOff returns the wait times between poll cycles. It returns
// backoff.Stop after retryMax-1 waits.
func newRetryBackOff(retryMax int, delay time.Duration) backoff.BackOff {
	// WithMaxRetries does not limit the retries when maxTries is 0
	if retryMax <= 1 {
		return &backoff.StopBackOff{}
	}

	return backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(retryMax-1))
}

func (c *Controller) run(ctx context.Context, logger *zap.Logger) (Outcome, error) {
	bo := newRetryBackOff(c.retryMax, c.retryDelay)

	for cycle := 1; ; cycle++ {
		logger := logger.With(zap.Int("poll_cycle", cycle))

		outcome, err := c.poll(ctx, logger)
		if err != nil {
			return OutcomeFailed, err
		}

		if outcome != outcomePending {
			return outcome, nil
		}

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			logger.Info(
				"giving up, required checks did not succeed in time",
				logEventRetriesExhausted,
				zap.Int("retry_max", c.retryMax),
			)

			return OutcomeFailed, fmt.Errorf("required checks of %s did not succeed after %d poll cycles: %w",
				c.pr, cycle, mergeerr.ErrRetriesExhausted)
		}

		logger.Debug(
			"waiting for next poll cycle",
			logEventChecksPending,
			zap.Duration("retry_in", delay),
			zap.Int("retries_left", c.retryMax-cycle),
		)

		if err := c.wait(ctx, delay); err != nil {
			logger.Info("polling cancelled", logEventCancelled, zap.Error(err))
			return OutcomeFailed, fmt.Errorf("waiting for next poll cycle failed: %w", err)
		}
	}
}

// poll runs one poll cycle. It returns outcomePending when the required
// checks did not succeed yet.
func (c *Controller) poll(ctx context.Context, logger *zap.Logger) (Outcome, error) {
	metrics.PollCyclesInc()

	pr, err := c.fetcher.pullRequest(ctx, c.pr)
	if err != nil {
		logger.Error("retrieving pull request failed", logEventFetchFailed, zap.Error(err))
		return outcomePending, fmt.Errorf("retrieving pull request %s failed: %w", c.pr, err)
	}

	if !StillEligible(c.pr, pr, c.triggerLabels) {
		if pr.HeadSHA != c.pr.HeadSHA {
			logger.Info(
				"head commit of pull request changed, abandoning",
				logEventAbandoned,
				logReasonHeadCommitChanged,
				zap.String("git.current_commit", pr.HeadSHA),
			)
		} else {
			logger.Info(
				"pull request has none of the trigger labels, abandoning",
				logEventAbandoned,
				logReasonTriggerLabelAbsent,
				zap.Strings("github.labels", pr.Labels),
			)
		}

		return OutcomeAbandoned, nil
	}

	runs, err := c.fetcher.checkRuns(ctx, c.pr)
	if err != nil {
		logger.Error("retrieving check runs failed", logEventFetchFailed, zap.Error(err))
		return outcomePending, fmt.Errorf("retrieving check runs of %s failed: %w", c.pr, err)
	}

	if !ChecksPassed(runs, c.requiredChecks) {
		missing := MissingChecks(runs, c.requiredChecks)
		metrics.SetMissingChecks(len(missing))

		logger.Info(
			"required checks did not succeed yet",
			logEventPollCycle,
			logfields.CheckRuns(missing),
		)

		return outcomePending, nil
	}

	metrics.SetMissingChecks(0)
	logger.Info("all required checks succeeded, merging pull request", logEventMerging)

	res, err := c.merger.merge(ctx, c.pr)
	if err != nil {
		logger.Error(
			"merging pull request failed",
			logEventMergeFailed,
			zap.String("github.pull_request_state", pr.State),
			zap.Error(err),
		)
		return outcomePending, fmt.Errorf("merging pull request %s failed: %w", c.pr, err)
	}

	metrics.MergedInc(string(c.merger.method))
	logger.Info(
		"pull request merged",
		logEventMerged,
		zap.String("git.merge_commit", res.SHA),
	)

	return OutcomeMerged, nil
}

func (c *Controller) wait(ctx context.Context, d time.Duration) error {
	timer := c.clock.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
