package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/sitefix-lab/sitefix/pkg/controller/http"
	"github.com/sitefix-lab/sitefix/pkg/repository/memory"
	"github.com/sitefix-lab/sitefix/pkg/service/queue"
	"github.com/sitefix-lab/sitefix/pkg/usecase"
)

func newTestServer(t *testing.T, attachQueues bool) (*httpctrl.Server, *usecase.UseCases) {
	t.Helper()

	uc := usecase.New(memory.New())
	if attachQueues {
		mgr := queue.NewManager(
			func(ctx context.Context, job *queue.Job) error { return nil },
			nil,
		)
		t.Cleanup(func() { mgr.Shutdown(context.Background()) }) //nolint:errcheck
		uc.AttachQueues(mgr)
	}
	return httpctrl.New(uc), uc
}

func doJSON(t *testing.T, srv *httpctrl.Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		gt.NoError(t, err).Required()
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded)).Required()
	}
	return rec, decoded
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec, body := doJSON(t, srv, http.MethodGet, "/health", nil)
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Value(t, body["status"]).Equal("ok")
}

func TestSubmitEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, false)

	t.Run("accepts a submission even without queues", func(t *testing.T) {
		rec, body := doJSON(t, srv, http.MethodPost, "/api/actions", map[string]any{
			"action_type": "technical_seo_fix",
			"site_id":     "site-1",
			"payload":     map[string]any{"patches": []any{}},
		})
		gt.Value(t, rec.Code).Equal(http.StatusCreated)
		gt.Value(t, body["duplicate"]).Equal(false)
		gt.Value(t, body["queued"]).Equal(false)
		gt.Value(t, body["action_id"]).NotEqual("")
	})

	t.Run("repeated submission of the same work is a duplicate", func(t *testing.T) {
		first, firstBody := doJSON(t, srv, http.MethodPost, "/api/actions", map[string]any{
			"action_type":  "content_generation",
			"site_id":      "site-1",
			"dedupe_token": "daily",
		})
		gt.Value(t, first.Code).Equal(http.StatusCreated)

		second, secondBody := doJSON(t, srv, http.MethodPost, "/api/actions", map[string]any{
			"action_id":    firstBody["action_id"],
			"dedupe_token": "daily",
		})
		gt.Value(t, second.Code).Equal(http.StatusOK)
		gt.Value(t, secondBody["duplicate"]).Equal(true)
		gt.Value(t, secondBody["run_id"]).Equal(firstBody["run_id"])
	})

	t.Run("unknown action type is rejected", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodPost, "/api/actions", map[string]any{
			"action_type": "mystery_work",
			"site_id":     "site-1",
		})
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("unknown environment is rejected", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodPost, "/api/actions", map[string]any{
			"action_type": "technical_seo_fix",
			"site_id":     "site-1",
			"environment": "bogus",
		})
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestGetActionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, false)

	_, submitted := doJSON(t, srv, http.MethodPost, "/api/actions", map[string]any{
		"action_type": "technical_seo_fix",
		"site_id":     "site-9",
	})
	actionID, _ := submitted["action_id"].(string)
	gt.Value(t, actionID).NotEqual("")

	t.Run("returns the action with its runs", func(t *testing.T) {
		rec, body := doJSON(t, srv, http.MethodGet, "/api/actions/"+actionID, nil)
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, body["status"]).Equal("queued")
		gt.Value(t, body["site_id"]).Equal("site-9")

		runs, _ := body["runs"].([]any)
		gt.Array(t, runs).Length(1)
	})

	t.Run("unknown action is 404", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodGet, "/api/actions/no-such-action", nil)
		gt.Value(t, rec.Code).Equal(http.StatusNotFound)
	})

	t.Run("event log starts with the queued entry", func(t *testing.T) {
		rec, body := doJSON(t, srv, http.MethodGet, "/api/actions/"+actionID+"/events", nil)
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		events, _ := body["events"].([]any)
		gt.Array(t, events).Length(1)
		first, _ := events[0].(map[string]any)
		gt.Value(t, first["kind"]).Equal("action.queued")
	})
}

func TestVerifyEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec, _ := doJSON(t, srv, http.MethodPost, "/api/actions/no-such-action/verify", nil)
	gt.Value(t, rec.Code).Equal(http.StatusNotFound)
}

func TestQueueEndpoints(t *testing.T) {
	t.Run("without queues the endpoints report unavailable", func(t *testing.T) {
		srv, _ := newTestServer(t, false)

		rec, _ := doJSON(t, srv, http.MethodGet, "/api/queues/general/stats", nil)
		gt.Value(t, rec.Code).Equal(http.StatusServiceUnavailable)
	})

	t.Run("invalid queue name is rejected", func(t *testing.T) {
		srv, _ := newTestServer(t, true)

		rec, _ := doJSON(t, srv, http.MethodGet, "/api/queues/no-such-queue/stats", nil)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("stats and pause state round-trip", func(t *testing.T) {
		srv, _ := newTestServer(t, true)

		rec, body := doJSON(t, srv, http.MethodGet, "/api/queues/general/stats", nil)
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, body["queue"]).Equal("general")
		gt.Value(t, body["paused"]).Equal(false)

		rec, body = doJSON(t, srv, http.MethodPost, "/api/queues/general/pause", nil)
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, body["paused"]).Equal(true)

		rec, body = doJSON(t, srv, http.MethodGet, "/api/queues/general/stats", nil)
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, body["paused"]).Equal(true)

		rec, body = doJSON(t, srv, http.MethodPost, "/api/queues/general/resume", nil)
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, body["paused"]).Equal(false)
	})

	t.Run("clean reports removed jobs", func(t *testing.T) {
		srv, _ := newTestServer(t, true)

		rec, body := doJSON(t, srv, http.MethodPost, "/api/queues/general/clean", map[string]any{
			"older_than_sec": 60,
		})
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, body["removed"]).Equal(float64(0))
	})
}
