// Package ghaction reads the context that GitHub Actions provides to a
// workflow step and reports results back to the workflow.
package ghaction

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/go-github/v59/github"

	"github.com/simplesurance/labelmerge/internal/mergeerr"
)

const (
	EnvEventName  = "GITHUB_EVENT_NAME"
	EnvEventPath  = "GITHUB_EVENT_PATH"
	EnvRepository = "GITHUB_REPOSITORY"
	EnvAPIURL     = "GITHUB_API_URL"
	EnvOutput     = "GITHUB_OUTPUT"
)

// Context describes the pull request that triggered the workflow run.
type Context struct {
	EventName       string
	RepositoryOwner string
	Repository      string
	PullRequest     int
	// HeadSHA is the head commit of the pull request when the event was
	// created.
	HeadSHA string
	APIURL  string
}

// LoadContext reads the triggering event from the environment variables set
// by GitHub Actions.
// If the workflow was not triggered by a pull request event a
// *mergeerr.ConfigurationError is returned.
// getenv is usually os.Getenv.
func LoadContext(getenv func(string) string) (*Context, error) {
	eventName := getenv(EnvEventName)
	if eventName == "" {
		return nil, mergeerr.NewConfigurationError("%s environment variable is not set, action needs to be run as part of a pull request", EnvEventName)
	}

	eventPath := getenv(EnvEventPath)
	if eventPath == "" {
		return nil, mergeerr.NewConfigurationError("%s environment variable is not set", EnvEventPath)
	}

	payload, err := os.ReadFile(eventPath)
	if err != nil {
		return nil, &mergeerr.ConfigurationError{Err: fmt.Errorf("reading event payload failed: %w", err)}
	}

	result, err := contextFromPayload(eventName, payload)
	if err != nil {
		return nil, &mergeerr.ConfigurationError{Err: err}
	}

	if result.RepositoryOwner == "" || result.Repository == "" {
		owner, repo, err := splitRepository(getenv(EnvRepository))
		if err != nil {
			return nil, &mergeerr.ConfigurationError{Err: err}
		}

		result.RepositoryOwner = owner
		result.Repository = repo
	}

	result.APIURL = getenv(EnvAPIURL)

	return result, nil
}

func contextFromPayload(eventName string, payload []byte) (*Context, error) {
	event, err := github.ParseWebHook(eventName, payload)
	if err != nil {
		return nil, fmt.Errorf("parsing %q event payload failed: %w", eventName, err)
	}

	var pr *github.PullRequest
	var repo *github.Repository

	switch ev := event.(type) {
	case *github.PullRequestEvent:
		pr = ev.GetPullRequest()
		repo = ev.GetRepo()

	case *github.PullRequestTargetEvent:
		pr = ev.GetPullRequest()
		repo = ev.GetRepo()

	case *github.PullRequestReviewEvent:
		pr = ev.GetPullRequest()
		repo = ev.GetRepo()

	default:
		return nil, fmt.Errorf("action needs to be run as part of a pull request, triggering event is %q", eventName)
	}

	if pr == nil {
		return nil, fmt.Errorf("%q event payload does not contain a pull request", eventName)
	}

	if pr.GetNumber() <= 0 {
		return nil, fmt.Errorf("%q event payload contains an invalid pull request number: %d", eventName, pr.GetNumber())
	}

	headSHA := pr.GetHead().GetSHA()
	if headSHA == "" {
		return nil, fmt.Errorf("%q event payload does not contain the head commit of the pull request", eventName)
	}

	return &Context{
		EventName:       eventName,
		RepositoryOwner: repo.GetOwner().GetLogin(),
		Repository:      repo.GetName(),
		PullRequest:     pr.GetNumber(),
		HeadSHA:         headSHA,
	}, nil
}

func splitRepository(s string) (owner, repo string, err error) {
	if s == "" {
		return "", "", fmt.Errorf("%s environment variable is not set", EnvRepository)
	}

	owner, repo, found := strings.Cut(s, "/")
	if !found || owner == "" || repo == "" {
		return "", "", fmt.Errorf("repository must be in the format <owner>/<name>, is: %q", s)
	}

	return owner, repo, nil
}
