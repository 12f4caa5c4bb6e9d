// Package automerge merges a GitHub pull request when all required check
// runs succeeded.
//
// The Controller polls the pull request and the check runs of its head
// commit in fixed intervals. Polling stops when:
//
// - the head commit of the pull request changed or none of the trigger
// labels is applied anymore. The run is abandoned, this is not an error,
//
// - every required check has at least one completed and successful check
// run. The pull request is merged with the configured merge method,
//
// - the retry budget is exhausted. mergeerr.ErrRetriesExhausted is returned.
//
// Errors of API calls are not retried, they abort the run. The state of
// the pull request is not evaluated, merging a closed or already merged pull
// request is rejected by GitHub and fails the run.
package automerge
