package logfields

import "go.uber.org/zap"

func Event(val string) zap.Field {
	return zap.String("event", val)
}

func PullRequest(val int) zap.Field {
	return zap.Int("github.pull_request", val)
}

func Repository(val string) zap.Field {
	return zap.String("git.repository", val)
}

func RepositoryOwner(val string) zap.Field {
	return zap.String("github.repository_owner", val)
}

func Commit(val string) zap.Field {
	return zap.String("git.commit", val)
}

func CheckRuns(val []string) zap.Field {
	return zap.Strings("github.check_runs", val)
}

func MergeMethod(val string) zap.Field {
	return zap.String("github.merge_method", val)
}

func GithubEvent(val string) zap.Field {
	return zap.String("github.event", val)
}
