package githubclt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-github/v59/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/labelmerge/internal/mergeerr"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	restClt := github.NewClient(srv.Client())
	baseURL, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	restClt.BaseURL = baseURL

	return &Client{
		restClt: restClt,
		logger:  zap.L(),
	}, srv
}

func TestPullRequest(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testman/repo/pulls/5", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"number": 5, "state": "open", "head": {"sha": "abc123"}, "labels": [{"name": "ready-to-merge"}, {"name": "bug"}]}`)
	})

	clt, _ := newTestClient(t, mux)

	pr, err := clt.PullRequest(context.Background(), "testman", "repo", 5)
	require.NoError(t, err)

	assert.Equal(t, 5, pr.Number)
	assert.Equal(t, "abc123", pr.HeadSHA)
	assert.Equal(t, "open", pr.State)
	assert.Equal(t, []string{"ready-to-merge", "bug"}, pr.Labels)
}

func TestPullRequestWithEmptyHeadSHAFails(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testman/repo/pulls/5", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"number": 5, "state": "open", "head": {}}`)
	})

	clt, _ := newTestClient(t, mux)

	_, err := clt.PullRequest(context.Background(), "testman", "repo", 5)
	var transportErr *mergeerr.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestPullRequestServerErrorIsTransportError(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	clt, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	pr, err := clt.PullRequest(context.Background(), "testman", "repo", 5)
	require.Error(t, err)
	assert.Nil(t, pr)

	var transportErr *mergeerr.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "get_pull_request", transportErr.Op)
	assert.True(t, transportErr.After.IsZero())
}

func TestRateLimitErrorContainsResetTime(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	reset := time.Now().Add(time.Hour).Truncate(time.Second)

	clt, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "API rate limit exceeded for user ID 1."}`)
	}))

	_, err := clt.CheckRuns(context.Background(), "testman", "repo", "abc123")

	var transportErr *mergeerr.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "list_check_runs", transportErr.Op)
	assert.True(t, reset.Equal(transportErr.After), "reset time: %s, error after: %s", reset, transportErr.After)
}

func TestCheckRunsRetrievesAllPages(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	var srvURL string

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testman/repo/commits/abc123/check-runs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"total_count": 3, "check_runs": [{"name": "lint", "status": "in_progress"}]}`)
			return
		}

		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/testman/repo/commits/abc123/check-runs?page=2&per_page=100>; rel="next"`, srvURL))
		fmt.Fprint(w, `{"total_count": 3, "check_runs": [
			{"name": "build", "status": "completed", "conclusion": "success"},
			{"name": "test", "status": "completed", "conclusion": "failure"}
		]}`)
	})

	clt, srv := newTestClient(t, mux)
	srvURL = srv.URL

	runs, err := clt.CheckRuns(context.Background(), "testman", "repo", "abc123")
	require.NoError(t, err)

	assert.Equal(t, []*CheckRun{
		{Name: "build", Status: "completed", Conclusion: "success"},
		{Name: "test", Status: "completed", Conclusion: "failure"},
		{Name: "lint", Status: "in_progress"},
	}, runs)
}

func TestMergePullRequest(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testman/repo/pulls/5/merge", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)

		var req struct {
			MergeMethod string `json:"merge_method"`
			SHA         string `json:"sha"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.Equal(t, "squash", req.MergeMethod)
		assert.Equal(t, "abc123", req.SHA)

		fmt.Fprint(w, `{"sha": "fff000", "merged": true, "message": "Pull Request successfully merged"}`)
	})

	clt, _ := newTestClient(t, mux)

	res, err := clt.MergePullRequest(context.Background(), "testman", "repo", 5, MergeMethodSquash, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "fff000", res.SHA)
}

func TestMergePullRequestRejected(t *testing.T) {
	testcases := []struct {
		name       string
		statusCode int
		body       string
	}{
		{
			name:       "not_mergeable",
			statusCode: http.StatusMethodNotAllowed,
			body:       `{"message": "Pull Request is not mergeable"}`,
		},
		{
			name:       "head_modified",
			statusCode: http.StatusConflict,
			body:       `{"message": "Head branch was modified. Review and try the merge again."}`,
		},
		{
			name:       "not_merged",
			statusCode: http.StatusOK,
			body:       `{"merged": false, "message": "not merged"}`,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

			clt, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.statusCode)
				fmt.Fprint(w, tc.body)
			}))

			res, err := clt.MergePullRequest(context.Background(), "testman", "repo", 5, MergeMethodMerge, "abc123")
			assert.Nil(t, res)

			var rejectedErr *mergeerr.MergeRejectedError
			require.ErrorAs(t, err, &rejectedErr)
		})
	}
}

func TestMergePullRequestServerError(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	clt, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := clt.MergePullRequest(context.Background(), "testman", "repo", 5, MergeMethodRebase, "abc123")

	var transportErr *mergeerr.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "merge_pull_request", transportErr.Op)
}

func TestNewWithEnterpriseURL(t *testing.T) {
	clt, err := New("", "https://github.example.com/api/v3")
	require.NoError(t, err)
	assert.Equal(t, "https://github.example.com/api/v3/", clt.restClt.BaseURL.String())

	clt, err = New("token", DefaultAPIURL)
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL+"/", clt.restClt.BaseURL.String())
}
