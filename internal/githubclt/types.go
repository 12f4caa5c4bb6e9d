package githubclt

import "fmt"

// PullRequest is the state of a pull request at the time it was retrieved.
type PullRequest struct {
	Number  int
	State   string
	HeadSHA string
	Labels  []string
}

const (
	CheckRunStatusCompleted   = "completed"
	CheckRunConclusionSuccess = "success"
)

// CheckRun is a GitHub check run reported for a commit.
// Conclusion is empty when the check run is not completed.
type CheckRun struct {
	Name       string
	Status     string
	Conclusion string
}

// Succeeded returns true if the check run is completed and concluded
// successfully.
func (c *CheckRun) Succeeded() bool {
	return c.Status == CheckRunStatusCompleted && c.Conclusion == CheckRunConclusionSuccess
}

func (c *CheckRun) String() string {
	if c.Conclusion == "" {
		return fmt.Sprintf("%s (%s)", c.Name, c.Status)
	}

	return fmt.Sprintf("%s (%s, %s)", c.Name, c.Status, c.Conclusion)
}

// MergeMethod is the GitHub merge method applied when merging a pull
// request.
type MergeMethod string

const (
	MergeMethodMerge  MergeMethod = "merge"
	MergeMethodRebase MergeMethod = "rebase"
	MergeMethodSquash MergeMethod = "squash"
)

// ParseMergeMethod converts s to a MergeMethod.
func ParseMergeMethod(s string) (MergeMethod, error) {
	switch m := MergeMethod(s); m {
	case MergeMethodMerge, MergeMethodRebase, MergeMethodSquash:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported merge method: %q, supported values: %s, %s, %s",
			s, MergeMethodMerge, MergeMethodRebase, MergeMethodSquash)
	}
}

// MergeResult is the response of a successful merge.
type MergeResult struct {
	SHA     string
	Message string
}
