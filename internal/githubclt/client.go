// Package githubclt provides a github API client.
package githubclt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v59/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/simplesurance/labelmerge/internal/logfields"
	"github.com/simplesurance/labelmerge/internal/mergeerr"
)

const DefaultHTTPClientTimeout = time.Minute

// DefaultAPIURL is the URL of the public GitHub REST API.
const DefaultAPIURL = "https://api.github.com"

const loggerName = "github_client"

const checkRunsPerPage = 100

// New returns a new github api client.
// When apiURL is empty or DefaultAPIURL the public GitHub API is used,
// otherwise apiURL is used as GitHub Enterprise API endpoint.
func New(oauthAPItoken, apiURL string) (*Client, error) {
	httpClient := newHTTPClient(oauthAPItoken)

	restClt := github.NewClient(httpClient)
	if apiURL != "" && strings.TrimSuffix(apiURL, "/") != DefaultAPIURL {
		var err error
		restClt, err = restClt.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, fmt.Errorf("setting github api url to %q failed: %w", apiURL, err)
		}
	}

	return &Client{
		restClt: restClt,
		logger:  zap.L().Named(loggerName),
	}, nil
}

func newHTTPClient(apiToken string) *http.Client {
	if apiToken == "" {
		return &http.Client{
			Timeout: DefaultHTTPClientTimeout,
		}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: apiToken},
	)

	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = DefaultHTTPClientTimeout

	return tc
}

// Client is an github API client.
// All methods that fail because of an API or network error return a
// *mergeerr.TransportError.
type Client struct {
	restClt *github.Client
	logger  *zap.Logger
}

// PullRequest returns the current state of a pull request.
func (clt *Client) PullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	pr, _, err := clt.restClt.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, clt.wrapTransportErrors("get_pull_request", err)
	}

	prHead := pr.GetHead()
	if prHead == nil {
		return nil, mergeerr.NewTransportError("get_pull_request", errors.New("got pull request object with empty head"))
	}

	prHeadSHA := prHead.GetSHA()
	if prHeadSHA == "" {
		return nil, mergeerr.NewTransportError("get_pull_request", errors.New("got pull request object with empty head sha"))
	}

	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}

	return &PullRequest{
		Number:  pr.GetNumber(),
		State:   pr.GetState(),
		HeadSHA: prHeadSHA,
		Labels:  labels,
	}, nil
}

// CheckRuns returns all check runs that were reported for the commit ref.
// All result pages are retrieved.
func (clt *Client) CheckRuns(ctx context.Context, owner, repo, ref string) ([]*CheckRun, error) {
	var result []*CheckRun

	opts := github.ListCheckRunsOptions{
		ListOptions: github.ListOptions{
			Page:    1,
			PerPage: checkRunsPerPage,
		},
	}

	for {
		runs, resp, err := clt.restClt.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, &opts)
		if err != nil {
			return nil, clt.wrapTransportErrors("list_check_runs", err)
		}

		for _, run := range runs.CheckRuns {
			result = append(result, &CheckRun{
				Name:       run.GetName(),
				Status:     run.GetStatus(),
				Conclusion: run.GetConclusion(),
			})
		}

		if resp.NextPage == 0 || len(runs.CheckRuns) == 0 {
			return result, nil
		}

		opts.Page = resp.NextPage
	}
}

// MergePullRequest merges a pull request with the given method.
// expectedHeadSHA must match the current head commit of the pull request,
// otherwise GitHub refuses the merge.
// If GitHub refuses to merge the pull request a *mergeerr.MergeRejectedError
// is returned.
func (clt *Client) MergePullRequest(ctx context.Context, owner, repo string, number int, method MergeMethod, expectedHeadSHA string) (*MergeResult, error) {
	res, _, err := clt.restClt.PullRequests.Merge(ctx, owner, repo, number, "", &github.PullRequestOptions{
		MergeMethod: string(method),
		SHA:         expectedHeadSHA,
	})
	if err != nil {
		var respErr *github.ErrorResponse
		if errors.As(err, &respErr) && respErr.Response != nil {
			switch respErr.Response.StatusCode {
			case http.StatusMethodNotAllowed:
				return nil, &mergeerr.MergeRejectedError{Reason: "pull request is not mergeable", Err: err}
			case http.StatusConflict:
				return nil, &mergeerr.MergeRejectedError{Reason: "head branch was modified", Err: err}
			case http.StatusUnprocessableEntity:
				return nil, &mergeerr.MergeRejectedError{Reason: "merge request was not accepted", Err: err}
			}
		}

		return nil, clt.wrapTransportErrors("merge_pull_request", err)
	}

	if !res.GetMerged() {
		return nil, &mergeerr.MergeRejectedError{Reason: fmt.Sprintf("pull request was not merged: %s", res.GetMessage())}
	}

	return &MergeResult{
		SHA:     res.GetSHA(),
		Message: res.GetMessage(),
	}, nil
}

func (clt *Client) wrapTransportErrors(op string, err error) error {
	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		clt.logger.Info(
			"rate limit exceeded",
			logfields.Event("github_api_rate_limit_exceeded"),
			zap.String("github_api_operation", op),
			zap.Int("github_api_rate_limit", rateLimitErr.Rate.Limit),
			zap.Time("github_api_rate_limit_reset_time", rateLimitErr.Rate.Reset.Time),
		)

		return mergeerr.NewRateLimitedTransportError(op, err, rateLimitErr.Rate.Reset.Time)
	}

	return mergeerr.NewTransportError(op, err)
}
