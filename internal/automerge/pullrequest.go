package automerge

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/simplesurance/labelmerge/internal/logfields"
)

// PullRequestRef identifies the pull request that is evaluated.
// HeadSHA is the head commit at the time the run started, it is the
// baseline that all later retrieved pull request states are compared with.
type PullRequestRef struct {
	Owner      string
	Repository string
	Number     int
	HeadSHA    string
}

func NewPullRequestRef(owner, repo string, nr int, headSHA string) (*PullRequestRef, error) {
	if owner == "" {
		return nil, errors.New("repository owner is empty")
	}

	if repo == "" {
		return nil, errors.New("repository name is empty")
	}

	if nr <= 0 {
		return nil, fmt.Errorf("number is %d, must be >0", nr)
	}

	if headSHA == "" {
		return nil, errors.New("head commit is empty")
	}

	return &PullRequestRef{
		Owner:      owner,
		Repository: repo,
		Number:     nr,
		HeadSHA:    headSHA,
	}, nil
}

func (p *PullRequestRef) String() string {
	return fmt.Sprintf("%s/%s#%d", p.Owner, p.Repository, p.Number)
}

func (p *PullRequestRef) LogFields() []zap.Field {
	return []zap.Field{
		logfields.RepositoryOwner(p.Owner),
		logfields.Repository(p.Repository),
		logfields.PullRequest(p.Number),
		logfields.Commit(p.HeadSHA),
	}
}
