package worker_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/sitefix-lab/sitefix/pkg/domain/interfaces"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"github.com/sitefix-lab/sitefix/pkg/repository/memory"
	"github.com/sitefix-lab/sitefix/pkg/service/fetch"
	"github.com/sitefix-lab/sitefix/pkg/service/inspect"
	"github.com/sitefix-lab/sitefix/pkg/service/queue"
	"github.com/sitefix-lab/sitefix/pkg/service/worker"
	"github.com/sitefix-lab/sitefix/pkg/usecase"
)

type stubGenerator struct {
	article *model.Article
	err     error
}

func (s *stubGenerator) Generate(ctx context.Context, req *model.GenerateRequest) (*model.Article, error) {
	return s.article, s.err
}

type stubPublisher struct {
	result *interfaces.PublishResult
	err    error
}

func (s *stubPublisher) Publish(ctx context.Context, article *model.Article) (*interfaces.PublishResult, error) {
	return s.result, s.err
}

type captureEnqueuer struct {
	jobs []*queue.Job
}

func (c *captureEnqueuer) Enqueue(job *queue.Job, priority int, delay time.Duration) (bool, error) {
	c.jobs = append(c.jobs, job)
	return true, nil
}

type workerEnv struct {
	repo     interfaces.Repository
	uc       *usecase.UseCases
	registry *worker.Registry
	enqueued *captureEnqueuer
	site     *httptest.Server
}

func newWorkerEnv(t *testing.T, handler http.HandlerFunc, generator interfaces.ContentGenerator, publisher interfaces.Publisher) *workerEnv {
	t.Helper()

	site := httptest.NewServer(handler)
	t.Cleanup(site.Close)

	repo := memory.New()
	fetcher := fetch.New(fetch.WithHTTPClient(site.Client()))
	inspector := inspect.New()

	uc := usecase.New(repo,
		usecase.WithFetcher(fetcher),
		usecase.WithInspector(inspector),
	)

	registry := worker.NewRegistry(repo, uc.Projector(), uc.Verifier(),
		generator, publisher, fetcher, inspector)
	enqueued := &captureEnqueuer{}
	registry.SetEnqueuer(enqueued)

	return &workerEnv{repo: repo, uc: uc, registry: registry, enqueued: enqueued, site: site}
}

func (e *workerEnv) submit(t *testing.T, actionType types.ActionType, payload map[string]any, policy model.RunPolicy) *usecase.SubmitResult {
	t.Helper()

	result, err := e.uc.Submit(context.Background(), &usecase.SubmitInput{
		ActionType: actionType,
		SiteID:     "site-1",
		Payload:    payload,
		Policy:     policy,
	})
	gt.NoError(t, err).Required()
	return result
}

func jobFor(result *usecase.SubmitResult, actionType types.ActionType) *queue.Job {
	return &queue.Job{
		Key:        result.IdempotencyKey,
		ActionID:   result.ActionID,
		RunID:      result.RunID,
		ActionType: actionType,
		Attempt:    1,
	}
}

func TestExecutePatchApplication(t *testing.T) {
	ctx := context.Background()

	env := newWorkerEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, nil)

	result := env.submit(t, types.ActionTypeTechnicalSEOFix, map[string]any{
		"patches": []any{
			map[string]any{
				"change_type": "upsert_meta",
				"target_url":  env.site.URL + "/page",
				"after_value": "New description",
			},
			map[string]any{
				"change_type": "set_canonical",
				"target_url":  env.site.URL + "/page",
				"after_value": "https://example.com/page",
			},
		},
	}, model.RunPolicy{})

	gt.NoError(t, env.registry.Execute(ctx, jobFor(result, types.ActionTypeTechnicalSEOFix))).Required()

	run, err := env.repo.Run().Get(ctx, result.RunID)
	gt.NoError(t, err).Required()
	gt.Value(t, run.Status).Equal(types.RunStatusSucceeded)
	gt.Value(t, run.Stats.PatchesProduced).Equal(2)
	gt.Value(t, run.Stats.ResourcesTouched).Equal(1)

	patches, err := env.repo.Patch().ListByRun(ctx, result.RunID)
	gt.NoError(t, err).Required()
	gt.Array(t, patches).Length(2)

	action, err := env.repo.Action().Get(ctx, result.ActionID)
	gt.NoError(t, err).Required()
	gt.Value(t, action.Status).Equal(types.ActionStatusNeedsVerification)

	// A verification job is chained with a derived key
	gt.Array(t, env.enqueued.jobs).Length(1)
	gt.Value(t, env.enqueued.jobs[0].ActionType).Equal(types.ActionTypeVerification)
	gt.Value(t, env.enqueued.jobs[0].Key).Equal(result.IdempotencyKey + ":verify")
	gt.Value(t, env.enqueued.jobs[0].RunID).Equal(result.RunID)
}

func TestExecutePatchCap(t *testing.T) {
	ctx := context.Background()

	env := newWorkerEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, nil)

	result := env.submit(t, types.ActionTypeTechnicalSEOFix, map[string]any{
		"patches": []any{
			map[string]any{"change_type": "upsert_meta", "target_url": "https://example.com/a", "after_value": "x"},
			map[string]any{"change_type": "upsert_meta", "target_url": "https://example.com/b", "after_value": "y"},
			map[string]any{"change_type": "upsert_meta", "target_url": "https://example.com/c", "after_value": "z"},
		},
	}, model.RunPolicy{MaxPatches: 2})

	gt.NoError(t, env.registry.Execute(ctx, jobFor(result, types.ActionTypeTechnicalSEOFix))).Required()

	patches, err := env.repo.Patch().ListByRun(ctx, result.RunID)
	gt.NoError(t, err).Required()
	gt.Array(t, patches).Length(2)
}

func TestExecuteMetaNameSelector(t *testing.T) {
	ctx := context.Background()

	env := newWorkerEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, nil)

	result := env.submit(t, types.ActionTypeTechnicalSEOFix, map[string]any{
		"patches": []any{
			map[string]any{
				"change_type": "upsert_meta",
				"target_url":  "https://example.com/page",
				"meta_name":   "robots",
				"after_value": "noindex,follow",
			},
		},
	}, model.RunPolicy{})

	gt.NoError(t, env.registry.Execute(ctx, jobFor(result, types.ActionTypeTechnicalSEOFix))).Required()

	patches, err := env.repo.Patch().ListByRun(ctx, result.RunID)
	gt.NoError(t, err).Required()
	gt.Array(t, patches).Length(1)
	gt.Value(t, patches[0].Selector).Equal(`meta[name="robots"]`)
}

func TestHandlerProgressReporting(t *testing.T) {
	ctx := context.Background()

	t.Run("patch application reports per-patch progress", func(t *testing.T) {
		env := newWorkerEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, nil)

		result := env.submit(t, types.ActionTypeTechnicalSEOFix, map[string]any{
			"patches": []any{
				map[string]any{"change_type": "upsert_meta", "target_url": "https://example.com/a", "after_value": "x"},
				map[string]any{"change_type": "upsert_meta", "target_url": "https://example.com/b", "after_value": "y"},
			},
		}, model.RunPolicy{})

		job := jobFor(result, types.ActionTypeTechnicalSEOFix)
		var seen []int
		job.SetProgressFunc(func(pct int) { seen = append(seen, pct) })

		gt.NoError(t, env.registry.Execute(ctx, job)).Required()
		gt.Value(t, seen).Equal([]int{50, 100})
	})

	t.Run("content generation reports coarse progress", func(t *testing.T) {
		generator := &stubGenerator{article: &model.Article{Content: "<p>b</p>", MetaTitle: "t"}}
		env := newWorkerEnv(t, func(w http.ResponseWriter, r *http.Request) {}, generator, nil)

		result := env.submit(t, types.ActionTypeContentGeneration, map[string]any{
			"topic":    "progress",
			"site_url": "https://example.com",
		}, model.RunPolicy{})

		job := jobFor(result, types.ActionTypeContentGeneration)
		var seen []int
		job.SetProgressFunc(func(pct int) { seen = append(seen, pct) })

		gt.NoError(t, env.registry.Execute(ctx, job)).Required()
		gt.Value(t, seen).Equal([]int{25, 75, 100})
	})

	t.Run("publishing reports coarse progress", func(t *testing.T) {
		publisher := &stubPublisher{result: &interfaces.PublishResult{
			PublicURL: "https://cms.example.com/p",
			RemoteID:  "p",
		}}
		env := newWorkerEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, publisher)

		result := env.submit(t, types.ActionTypeCMSPublishing, map[string]any{
			"content": "<p>Body</p>",
		}, model.RunPolicy{})

		job := jobFor(result, types.ActionTypeCMSPublishing)
		var seen []int
		job.SetProgressFunc(func(pct int) { seen = append(seen, pct) })

		gt.NoError(t, env.registry.Execute(ctx, job)).Required()
		gt.Value(t, seen).Equal([]int{25, 75, 100})
	})
}

func TestExecuteDryRun(t *testing.T) {
	ctx := context.Background()

	env := newWorkerEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("dry run must not touch the live site")
	}, nil, nil)

	result := env.submit(t, types.ActionTypeTechnicalSEOFix, map[string]any{
		"patches": []any{
			map[string]any{"change_type": "upsert_meta", "target_url": env.site.URL, "after_value": "x"},
		},
	}, model.RunPolicy{Environment: types.EnvironmentDryRun})

	gt.NoError(t, env.registry.Execute(ctx, jobFor(result, types.ActionTypeTechnicalSEOFix))).Required()

	run, err := env.repo.Run().Get(ctx, result.RunID)
	gt.NoError(t, err).Required()
	gt.Value(t, run.Status).Equal(types.RunStatusSucceeded)
	gt.Value(t, run.OutputData["dry_run"]).Equal(true)

	// No side effects recorded
	patches, err := env.repo.Patch().ListByRun(ctx, result.RunID)
	gt.NoError(t, err).Required()
	gt.Array(t, patches).Length(0)
}

func TestExecuteContentGeneration(t *testing.T) {
	ctx := context.Background()

	generator := &stubGenerator{article: &model.Article{
		Content:   "<p>Generated body</p>",
		MetaTitle: "Generated title",
	}}
	env := newWorkerEnv(t, func(w http.ResponseWriter, r *http.Request) {}, generator, nil)

	result := env.submit(t, types.ActionTypeContentGeneration, map[string]any{
		"topic":    "technical SEO basics",
		"site_url": "https://example.com",
	}, model.RunPolicy{})

	gt.NoError(t, env.registry.Execute(ctx, jobFor(result, types.ActionTypeContentGeneration))).Required()

	run, err := env.repo.Run().Get(ctx, result.RunID)
	gt.NoError(t, err).Required()
	gt.Value(t, run.OutputData["meta_title"]).Equal("Generated title")

	patches, err := env.repo.Patch().ListByRun(ctx, result.RunID)
	gt.NoError(t, err).Required()
	gt.Array(t, patches).Length(1)
}

func TestExecutePublishing(t *testing.T) {
	ctx := context.Background()

	publisher := &stubPublisher{result: &interfaces.PublishResult{
		PublicURL: "https://cms.example.com/post-1",
		RemoteID:  "post-1",
	}}
	env := newWorkerEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, publisher)

	result := env.submit(t, types.ActionTypeCMSPublishing, map[string]any{
		"content":    "<p>Body</p>",
		"meta_title": "Title",
	}, model.RunPolicy{})

	gt.NoError(t, env.registry.Execute(ctx, jobFor(result, types.ActionTypeCMSPublishing))).Required()

	run, err := env.repo.Run().Get(ctx, result.RunID)
	gt.NoError(t, err).Required()
	gt.Value(t, run.OutputData["public_url"]).Equal("https://cms.example.com/post-1")
}

func TestExecuteCrawl(t *testing.T) {
	ctx := context.Background()

	env := newWorkerEnv(t, func(w http.ResponseWriter, r *http.Request) {
		// No description, no canonical; title present: two issues per page
		w.Write([]byte(`<html><head><title>t</title></head></html>`)) //nolint:errcheck
	}, nil, nil)

	result := env.submit(t, types.ActionTypeTechnicalSEOCrawl, map[string]any{
		"urls": []any{env.site.URL + "/a", env.site.URL + "/b"},
	}, model.RunPolicy{})

	gt.NoError(t, env.registry.Execute(ctx, jobFor(result, types.ActionTypeTechnicalSEOCrawl))).Required()

	run, err := env.repo.Run().Get(ctx, result.RunID)
	gt.NoError(t, err).Required()
	gt.Value(t, run.OutputData["pages_crawled"]).Equal(2)
	gt.Value(t, run.OutputData["issues_found"]).Equal(4)

	inspections, err := env.repo.Inspection().RecentForSite(ctx, "site-1", time.Hour)
	gt.NoError(t, err).Required()
	gt.Array(t, inspections).Length(1)
	gt.Value(t, inspections[0].PagesCrawled).Equal(2)
}

func TestOnDoneRecordsFailure(t *testing.T) {
	ctx := context.Background()

	env := newWorkerEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, nil)

	result := env.submit(t, types.ActionTypeTechnicalSEOFix, map[string]any{}, model.RunPolicy{})

	// Simulate the queue reporting the job started then exhausted
	gt.NoError(t, env.uc.Projector().RunStarted(ctx, result.RunID)).Required()
	env.registry.OnDone(ctx, jobFor(result, types.ActionTypeTechnicalSEOFix), goerr.New("all attempts failed"))

	run, err := env.repo.Run().Get(ctx, result.RunID)
	gt.NoError(t, err).Required()
	gt.Value(t, run.Status).Equal(types.RunStatusFailed)

	action, err := env.repo.Action().Get(ctx, result.ActionID)
	gt.NoError(t, err).Required()
	gt.Value(t, action.Status).Equal(types.ActionStatusFailed)
}

func TestExecuteVerificationJob(t *testing.T) {
	ctx := context.Background()

	env := newWorkerEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><meta name="description" content="Exact value"></head></html>`)) //nolint:errcheck
	}, nil, nil)

	result := env.submit(t, types.ActionTypeTechnicalSEOFix, map[string]any{
		"patches": []any{
			map[string]any{
				"change_type": "upsert_meta",
				"target_url":  env.site.URL + "/page",
				"after_value": "Exact value",
			},
		},
	}, model.RunPolicy{})

	gt.NoError(t, env.registry.Execute(ctx, jobFor(result, types.ActionTypeTechnicalSEOFix))).Required()
	gt.Array(t, env.enqueued.jobs).Length(1)

	// Run the chained verification job the way the queue would
	gt.NoError(t, env.registry.Execute(ctx, env.enqueued.jobs[0])).Required()

	action, err := env.repo.Action().Get(ctx, result.ActionID)
	gt.NoError(t, err).Required()
	gt.Value(t, action.Status).Equal(types.ActionStatusVerified)
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><meta name="description" content="Deployed value"></head></html>`)) //nolint:errcheck
	}))
	defer site.Close()

	repo := memory.New()
	fetcher := fetch.New(fetch.WithHTTPClient(site.Client()))
	inspector := inspect.New()

	uc := usecase.New(repo,
		usecase.WithFetcher(fetcher),
		usecase.WithInspector(inspector),
	)
	registry := worker.NewRegistry(repo, uc.Projector(), uc.Verifier(), nil, nil, fetcher, inspector)
	mgr := queue.NewManager(registry.Execute, registry.OnDone)
	uc.AttachQueues(mgr)
	registry.SetEnqueuer(mgr)
	defer mgr.Shutdown(context.Background()) //nolint:errcheck

	result, err := uc.Submit(ctx, &usecase.SubmitInput{
		ActionType: types.ActionTypeTechnicalSEOFix,
		SiteID:     "site-e2e",
		Payload: map[string]any{
			"patches": []any{
				map[string]any{
					"change_type": "upsert_meta",
					"target_url":  site.URL + "/page",
					"after_value": "Deployed value",
				},
			},
		},
	})
	gt.NoError(t, err).Required()
	gt.Bool(t, result.Queued).True()

	deadline := time.Now().Add(10 * time.Second)
	for {
		action, err := repo.Action().Get(ctx, result.ActionID)
		gt.NoError(t, err).Required()
		if action.Status == types.ActionStatusVerified {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("action never verified, stuck at %s", action.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	events, err := repo.Event().ListByAction(ctx, result.ActionID)
	gt.NoError(t, err).Required()
	kinds := make([]model.EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	gt.Array(t, kinds).Length(4)
	gt.Value(t, kinds[0]).Equal(model.EventActionQueued)
	gt.Value(t, kinds[1]).Equal(model.EventRunStarted)
	gt.Value(t, kinds[2]).Equal(model.EventRunSucceeded)
	gt.Value(t, kinds[3]).Equal(model.EventActionVerified)
}
