package automerge

import (
	"context"

	"go.uber.org/zap"

	"github.com/simplesurance/labelmerge/internal/githubclt"
	"github.com/simplesurance/labelmerge/internal/logfields"
)

// DryGithubClient is a github-client that does not do any changes on github.
// Merging is simulated and always succeeds.
// All other operations are forwarded to a wrapped GithubClient.
type DryGithubClient struct {
	clt    GithubClient
	logger *zap.Logger
}

func NewDryGithubClient(clt GithubClient, logger *zap.Logger) *DryGithubClient {
	return &DryGithubClient{
		clt:    clt,
		logger: logger.Named("dry_github_client"),
	}
}

func (c *DryGithubClient) PullRequest(ctx context.Context, owner, repo string, number int) (*githubclt.PullRequest, error) {
	return c.clt.PullRequest(ctx, owner, repo, number)
}

func (c *DryGithubClient) CheckRuns(ctx context.Context, owner, repo, ref string) ([]*githubclt.CheckRun, error) {
	return c.clt.CheckRuns(ctx, owner, repo, ref)
}

func (c *DryGithubClient) MergePullRequest(_ context.Context, owner, repo string, number int, method githubclt.MergeMethod, expectedHeadSHA string) (*githubclt.MergeResult, error) {
	c.logger.Info(
		"simulated merging of pull request, pull request was not merged on github",
		logfields.RepositoryOwner(owner),
		logfields.Repository(repo),
		logfields.PullRequest(number),
		logfields.Commit(expectedHeadSHA),
		logfields.MergeMethod(string(method)),
	)

	return &githubclt.MergeResult{SHA: expectedHeadSHA, Message: "dry-run, not merged"}, nil
}
