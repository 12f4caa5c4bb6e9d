package automerge

import (
	"context"
	"errors"

	"github.com/simplesurance/labelmerge/internal/githubclt"
	"github.com/simplesurance/labelmerge/internal/mergeerr"
)

// merger merges the pull request. It does exactly one MergePullRequest call.
type merger struct {
	clt    GithubClient
	method githubclt.MergeMethod
}

// merge merges the pull request referenced by ref. The baseline head commit
// is passed as expected head, if the pull request changed after it was
// evaluated GitHub refuses the merge.
func (m *merger) merge(ctx context.Context, ref *PullRequestRef) (*githubclt.MergeResult, error) {
	res, err := m.clt.MergePullRequest(ctx, ref.Owner, ref.Repository, ref.Number, m.method, ref.HeadSHA)
	if err != nil {
		var rejectedErr *mergeerr.MergeRejectedError
		if errors.As(err, &rejectedErr) {
			return nil, err
		}

		return nil, asTransportError("merge_pull_request", err)
	}

	return res, nil
}
