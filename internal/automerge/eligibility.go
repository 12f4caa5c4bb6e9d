package automerge

import (
	"sort"

	"github.com/simplesurance/labelmerge/internal/githubclt"
)

// StillEligible returns true if the head commit of pr is the baseline head
// commit and pr has at least one of the triggerLabels.
// Empty label names never match.
func StillEligible(baseline *PullRequestRef, pr *githubclt.PullRequest, triggerLabels map[string]struct{}) bool {
	if pr.HeadSHA != baseline.HeadSHA {
		return false
	}

	return hasTriggerLabel(pr.Labels, triggerLabels)
}

func hasTriggerLabel(labels []string, triggerLabels map[string]struct{}) bool {
	for _, label := range labels {
		if label == "" {
			continue
		}

		if _, exists := triggerLabels[label]; exists {
			return true
		}
	}

	return false
}

// ChecksPassed returns true if for every name in required at least one
// check run in runs completed successfully.
// Runs for other names, failed runs and re-runs of required checks are
// ignored, one successful run per required name is sufficient.
func ChecksPassed(runs []*githubclt.CheckRun, required map[string]struct{}) bool {
	return len(MissingChecks(runs, required)) == 0
}

// MissingChecks returns the sorted names in required that do not have a
// successful completed check run in runs.
func MissingChecks(runs []*githubclt.CheckRun, required map[string]struct{}) []string {
	succeeded := make(map[string]struct{}, len(runs))
	for _, run := range runs {
		if run.Succeeded() {
			succeeded[run.Name] = struct{}{}
		}
	}

	var missing []string
	for name := range required {
		if _, exists := succeeded[name]; !exists {
			missing = append(missing, name)
		}
	}

	sort.Strings(missing)

	return missing
}
