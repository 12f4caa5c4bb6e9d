package automerge

import (
	"context"
	"errors"

	"github.com/simplesurance/labelmerge/internal/githubclt"
	"github.com/simplesurance/labelmerge/internal/mergeerr"
)

// fetcher retrieves the current state of the pull request and its check
// runs. Every method does exactly one GithubClient call, failed calls are
// not retried.
type fetcher struct {
	clt GithubClient
}

func (f *fetcher) pullRequest(ctx context.Context, ref *PullRequestRef) (*githubclt.PullRequest, error) {
	pr, err := f.clt.PullRequest(ctx, ref.Owner, ref.Repository, ref.Number)
	if err != nil {
		return nil, asTransportError("get_pull_request", err)
	}

	return pr, nil
}

// checkRuns returns the check runs of the baseline head commit of ref.
func (f *fetcher) checkRuns(ctx context.Context, ref *PullRequestRef) ([]*githubclt.CheckRun, error) {
	runs, err := f.clt.CheckRuns(ctx, ref.Owner, ref.Repository, ref.HeadSHA)
	if err != nil {
		return nil, asTransportError("list_check_runs", err)
	}

	return runs, nil
}

// asTransportError wraps err into a *mergeerr.TransportError if it does not
// already wrap one.
// Context errors are returned unchanged.
func asTransportError(op string, err error) error {
	var transportErr *mergeerr.TransportError
	if errors.As(err, &transportErr) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return mergeerr.NewTransportError(op, err)
}
