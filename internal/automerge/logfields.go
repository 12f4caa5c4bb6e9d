package automerge

import (
	"go.uber.org/zap"

	"github.com/simplesurance/labelmerge/internal/logfields"
)

var (
	logEventPollingStarted   = logfields.Event("polling_started")
	logEventPollCycle        = logfields.Event("poll_cycle")
	logEventAbandoned        = logfields.Event("polling_abandoned")
	logEventChecksPending    = logfields.Event("required_checks_pending")
	logEventMerging          = logfields.Event("merging")
	logEventMerged           = logfields.Event("pull_request_merged")
	logEventMergeFailed      = logfields.Event("merge_failed")
	logEventRetriesExhausted = logfields.Event("retries_exhausted")
	logEventFetchFailed      = logfields.Event("fetching_state_failed")
	logEventCancelled        = logfields.Event("polling_cancelled")

	logReasonHeadCommitChanged  = logFieldReason("head_commit_changed")
	logReasonTriggerLabelAbsent = logFieldReason("trigger_label_absent")
)

func logFieldReason(reason string) zap.Field {
	return zap.String("reason", reason)
}
