package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"github.com/sitefix-lab/sitefix/pkg/service/queue"
	"github.com/sitefix-lab/sitefix/pkg/utils/logging"
)

func payloadString(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

func payloadStrings(payload map[string]any, key string) []string {
	raw, _ := payload[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// handleContentGeneration asks the generator for an article and records it as
// a patch so downstream verification has something to check
func (r *Registry) handleContentGeneration(ctx context.Context, action *model.Action, run *model.Run, job *queue.Job) (*handlerOutput, error) {
	if r.generator == nil {
		return nil, goerr.New("content generator is not configured")
	}

	req := &model.GenerateRequest{
		Topic:    payloadString(action.Payload, "topic"),
		Keywords: payloadStrings(action.Payload, "keywords"),
		SiteURL:  payloadString(action.Payload, "site_url"),
		Language: payloadString(action.Payload, "language"),
	}
	if req.Topic == "" {
		return nil, goerr.New("content generation requires a topic", goerr.V("action_id", action.ID))
	}
	job.ReportProgress(25)

	article, err := r.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	job.ReportProgress(75)

	patch := &model.Patch{
		ID:          types.NewPatchID(),
		RunID:       run.ID,
		ChangeType:  types.ChangeTypeGeneric,
		TargetURL:   req.SiteURL,
		AfterValue:  article.MetaTitle,
		ApplyStatus: types.ApplyStatusApplied,
	}
	if _, err := r.repo.Patch().Create(ctx, patch); err != nil {
		return nil, goerr.Wrap(err, "failed to record content patch", goerr.V("run_id", run.ID))
	}
	job.ReportProgress(100)

	return &handlerOutput{
		resourcesTouched: 1,
		patchesProduced:  1,
		data: map[string]any{
			"content":          article.Content,
			"meta_title":       article.MetaTitle,
			"meta_description": article.MetaDescription,
			"citations":        article.Citations,
		},
	}, nil
}

// handlePatchApplication records the concrete changes described in the
// payload as patch rows, bounded by the run policy's patch cap
func (r *Registry) handlePatchApplication(ctx context.Context, action *model.Action, run *model.Run, job *queue.Job) (*handlerOutput, error) {
	raw, _ := action.Payload["patches"].([]any)
	if len(raw) == 0 {
		return nil, goerr.New("payload contains no patches", goerr.V("action_id", action.ID))
	}
	if run.Policy.MaxPatches > 0 && len(raw) > run.Policy.MaxPatches {
		logging.From(ctx).Warn("payload exceeds patch cap, truncating",
			"action_id", action.ID.String(),
			"payload_patches", len(raw), "max_patches", run.Policy.MaxPatches)
		raw = raw[:run.Policy.MaxPatches]
	}

	urls := map[string]struct{}{}
	produced := 0
	for i, entry := range raw {
		spec, ok := entry.(map[string]any)
		if !ok {
			return nil, goerr.New("malformed patch entry in payload", goerr.V("action_id", action.ID))
		}

		changeType, err := types.ParseChangeType(payloadString(spec, "change_type"))
		if err != nil {
			return nil, goerr.Wrap(err, "invalid patch entry", goerr.V("action_id", action.ID))
		}
		targetURL := payloadString(spec, "target_url")
		if targetURL == "" {
			return nil, goerr.New("patch entry has no target URL", goerr.V("action_id", action.ID))
		}

		selector := payloadString(spec, "selector")
		if selector == "" && changeType == types.ChangeTypeUpsertMeta {
			// A bare meta name is enough to address the tag
			if name := payloadString(spec, "meta_name"); name != "" {
				selector = fmt.Sprintf("meta[name=%q]", name)
			}
		}

		patch := &model.Patch{
			ID:          types.NewPatchID(),
			RunID:       run.ID,
			ChangeType:  changeType,
			TargetURL:   targetURL,
			Selector:    selector,
			BeforeValue: payloadString(spec, "before_value"),
			AfterValue:  payloadString(spec, "after_value"),
			ApplyStatus: types.ApplyStatusApplied,
		}
		if _, err := r.repo.Patch().Create(ctx, patch); err != nil {
			return nil, goerr.Wrap(err, "failed to record patch", goerr.V("run_id", run.ID))
		}

		urls[targetURL] = struct{}{}
		produced++
		job.ReportProgress((i + 1) * 100 / len(raw))
	}

	return &handlerOutput{
		resourcesTouched: len(urls),
		patchesProduced:  produced,
	}, nil
}

// handlePublishing pushes the payload's article to the CMS and records the
// published URL for reachability verification
func (r *Registry) handlePublishing(ctx context.Context, action *model.Action, run *model.Run, job *queue.Job) (*handlerOutput, error) {
	if r.publisher == nil {
		return nil, goerr.New("publisher is not configured")
	}

	article := &model.Article{
		Content:         payloadString(action.Payload, "content"),
		MetaTitle:       payloadString(action.Payload, "meta_title"),
		MetaDescription: payloadString(action.Payload, "meta_description"),
	}
	if article.Content == "" {
		return nil, goerr.New("publishing requires content", goerr.V("action_id", action.ID))
	}
	job.ReportProgress(25)

	result, err := r.publisher.Publish(ctx, article)
	if err != nil {
		return nil, err
	}
	job.ReportProgress(75)

	patch := &model.Patch{
		ID:          types.NewPatchID(),
		RunID:       run.ID,
		ChangeType:  types.ChangeTypeGeneric,
		TargetURL:   result.PublicURL,
		AfterValue:  article.MetaTitle,
		ApplyStatus: types.ApplyStatusApplied,
	}
	if _, err := r.repo.Patch().Create(ctx, patch); err != nil {
		return nil, goerr.Wrap(err, "failed to record publish patch", goerr.V("run_id", run.ID))
	}
	job.ReportProgress(100)

	return &handlerOutput{
		resourcesTouched: 1,
		patchesProduced:  1,
		data: map[string]any{
			"public_url": result.PublicURL,
			"remote_id":  result.RemoteID,
		},
	}, nil
}

// defaultMaxPages bounds a crawl when the run policy does not
const defaultMaxPages = 25

// handleCrawl fetches the payload's URLs, counts on-page issues and records
// an inspection for the site
func (r *Registry) handleCrawl(ctx context.Context, action *model.Action, run *model.Run, job *queue.Job) (*handlerOutput, error) {
	if r.fetcher == nil || r.inspector == nil {
		return nil, goerr.New("crawling requires a fetcher and an inspector")
	}

	urls := payloadStrings(action.Payload, "urls")
	if len(urls) == 0 {
		if siteURL := payloadString(action.Payload, "site_url"); siteURL != "" {
			urls = []string{siteURL}
		}
	}
	if len(urls) == 0 {
		return nil, goerr.New("crawl payload contains no URLs", goerr.V("action_id", action.ID))
	}

	maxPages := run.Policy.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	if len(urls) > maxPages {
		urls = urls[:maxPages]
	}

	crawled, issues := 0, 0
	for i, url := range urls {
		issueCount, err := r.inspectPage(ctx, url)
		if err != nil {
			logging.From(ctx).Warn("failed to crawl page", "url", url, "error", err.Error())
			issues++
		} else {
			issues += issueCount
		}
		crawled++
		job.ReportProgress((i + 1) * 100 / len(urls))
	}

	inspection := &model.Inspection{
		ID:           uuid.NewString(),
		SiteID:       action.SiteID,
		PagesCrawled: crawled,
		IssuesFound:  issues,
	}
	if _, err := r.repo.Inspection().Create(ctx, inspection); err != nil {
		return nil, goerr.Wrap(err, "failed to record inspection", goerr.V("site_id", action.SiteID))
	}

	return &handlerOutput{
		resourcesTouched: crawled,
		data: map[string]any{
			"pages_crawled": crawled,
			"issues_found":  issues,
		},
	}, nil
}

// inspectPage fetches one page and counts missing on-page SEO elements
func (r *Registry) inspectPage(ctx context.Context, url string) (int, error) {
	page, err := r.fetcher.Fetch(ctx, url, 0)
	if err != nil {
		return 0, err
	}
	if page.StatusCode < 200 || page.StatusCode >= 300 {
		return 1, nil
	}

	issues := 0
	if _, found, err := r.inspector.Attr(page.Body, `meta[name="description"]`, "content"); err != nil || !found {
		issues++
	}
	if _, found, err := r.inspector.Attr(page.Body, `link[rel="canonical"]`, "href"); err != nil || !found {
		issues++
	}
	if _, found, err := r.inspector.Text(page.Body, "title"); err != nil || !found {
		issues++
	}
	return issues, nil
}

// handleGeneric records the payload's single described change without any
// external call
func (r *Registry) handleGeneric(ctx context.Context, action *model.Action, run *model.Run, job *queue.Job) (*handlerOutput, error) {
	patch := &model.Patch{
		ID:          types.NewPatchID(),
		RunID:       run.ID,
		ChangeType:  types.ChangeTypeGeneric,
		TargetURL:   payloadString(action.Payload, "target_url"),
		AfterValue:  payloadString(action.Payload, "after_value"),
		ApplyStatus: types.ApplyStatusApplied,
	}
	if _, err := r.repo.Patch().Create(ctx, patch); err != nil {
		return nil, goerr.Wrap(err, "failed to record patch", goerr.V("run_id", run.ID))
	}
	job.ReportProgress(100)

	return &handlerOutput{resourcesTouched: 1, patchesProduced: 1}, nil
}
