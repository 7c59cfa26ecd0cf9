package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/interfaces"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"github.com/sitefix-lab/sitefix/pkg/utils/logging"
)

// Verifier checks that the changes a run claims to have made are observable
// on the live site. It never trusts the run's own success report: every
// verdict comes from a fresh fetch of the target.
type Verifier struct {
	repo         interfaces.Repository
	projector    *Projector
	fetcher      interfaces.LiveFetcher
	inspector    interfaces.Inspector
	checkTimeout time.Duration
	crawlWindow  time.Duration
}

func NewVerifier(repo interfaces.Repository, projector *Projector, fetcher interfaces.LiveFetcher, inspector interfaces.Inspector, checkTimeout, crawlWindow time.Duration) *Verifier {
	return &Verifier{
		repo:         repo,
		projector:    projector,
		fetcher:      fetcher,
		inspector:    inspector,
		checkTimeout: checkTimeout,
		crawlWindow:  crawlWindow,
	}
}

// Verify runs the full verification pass for one run and persists the
// aggregated result through the projector. Engine-level failures (fetcher
// missing, the action or run unloadable, repository errors mid-pass) are
// recorded as a failing system_error check rather than propagated, so a
// broken verifier or an unreachable datastore can never leave an action
// stuck in needs_verification.
func (v *Verifier) Verify(ctx context.Context, actionID types.ActionID, runID types.RunID) (*model.VerificationResult, error) {
	result := &model.VerificationResult{
		ActionID: actionID,
		RunID:    runID,
	}

	aborted := false
	if err := v.runPass(ctx, actionID, runID, result); err != nil {
		logging.From(ctx).Error("verification pass aborted",
			"action_id", actionID.String(), "run_id", runID.String(), "error", err.Error())
		result.AddCheck(model.VerificationCheck{
			CheckType: types.CheckTypeSystemError,
			Passed:    false,
			Error:     err.Error(),
			Timestamp: time.Now().UTC(),
		})
		aborted = true
	}

	result.Aggregate()
	result.VerifiedAt = time.Now().UTC()

	if err := v.projector.ApplyVerification(ctx, result); err != nil {
		if !aborted {
			return nil, err
		}
		// The pass already failed closed; the result itself is the
		// queryable terminal artifact even when not all of it could be
		// persisted.
		logging.From(ctx).Error("failed to persist fail-closed verification result",
			"action_id", actionID.String(), "run_id", runID.String(), "error", err.Error())
	}
	return result, nil
}

// runPass loads the subjects and runs the strategy checks. Load failures are
// returned for the caller to record as a failing system_error check, keeping
// the underlying error so a datastore outage stays distinguishable from a
// missing record.
func (v *Verifier) runPass(ctx context.Context, actionID types.ActionID, runID types.RunID, result *model.VerificationResult) error {
	action, err := v.repo.Action().Get(ctx, actionID)
	if err != nil {
		return goerr.Wrap(err, "failed to load action", goerr.V("action_id", actionID))
	}
	run, err := v.repo.Run().Get(ctx, runID)
	if err != nil {
		return goerr.Wrap(err, "failed to load run", goerr.V("run_id", runID))
	}

	if run.Policy.Environment == types.EnvironmentDryRun {
		result.AddCheck(model.VerificationCheck{
			CheckType:      types.CheckTypeDryRun,
			ExpectedResult: "dry run simulated",
			ActualResult:   "dry run simulated",
			Passed:         true,
			Timestamp:      time.Now().UTC(),
		})
		return nil
	}

	return v.runChecks(ctx, action, run, result)
}

// VerifyAction runs verification for the latest succeeded run of an action.
// This is the manual re-verification entry point; the queue path calls the
// verifier with an explicit run instead.
func (uc *UseCases) VerifyAction(ctx context.Context, actionID types.ActionID) (*model.VerificationResult, error) {
	_, runs, err := uc.GetAction(ctx, actionID)
	if err != nil {
		return nil, err
	}

	var target *model.Run
	for _, run := range runs {
		if run.Status != types.RunStatusSucceeded {
			continue
		}
		if target == nil || run.CompletedAt.After(target.CompletedAt) {
			target = run
		}
	}
	if target == nil {
		return nil, goerr.Wrap(ErrRunNotFound, "no succeeded run to verify",
			goerr.V("action_id", actionID))
	}

	return uc.verifier.Verify(ctx, actionID, target.ID)
}

// runChecks dispatches to the per-action-type strategy
func (v *Verifier) runChecks(ctx context.Context, action *model.Action, run *model.Run, result *model.VerificationResult) error {
	switch action.ActionType {
	case types.ActionTypeTechnicalSEOFix, types.ActionTypeSchemaInjection:
		return v.checkPatches(ctx, run, result)
	case types.ActionTypeContentGeneration:
		return v.checkContentExists(ctx, run, result)
	case types.ActionTypeCMSPublishing:
		return v.checkReachability(ctx, run, result)
	case types.ActionTypeTechnicalSEOCrawl:
		return v.checkCrawlRecency(ctx, action.SiteID, result)
	default:
		return v.checkApplyStatus(ctx, run, result)
	}
}

// checkPatches verifies each patch of the run against a fresh fetch of its
// target URL. Fetches are cached per URL within the pass so ten patches on
// one page cost one request.
func (v *Verifier) checkPatches(ctx context.Context, run *model.Run, result *model.VerificationResult) error {
	if v.fetcher == nil || v.inspector == nil {
		return goerr.New("live verification requires a fetcher and an inspector")
	}

	patches, err := v.repo.Patch().ListByRun(ctx, run.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to list patches", goerr.V("run_id", run.ID))
	}

	pages := map[string]*interfaces.FetchResult{}
	for _, patch := range patches {
		page, ok := pages[patch.TargetURL]
		if !ok {
			page, err = v.fetcher.Fetch(ctx, patch.TargetURL, v.checkTimeout)
			if err != nil {
				result.AddCheck(model.VerificationCheck{
					CheckType: checkTypeFor(patch.ChangeType),
					PatchID:   patch.ID,
					TargetURL: patch.TargetURL,
					Passed:    false,
					Error:     fmt.Sprintf("fetch failed: %s", err),
					Timestamp: time.Now().UTC(),
				})
				continue
			}
			pages[patch.TargetURL] = page
		}

		result.AddCheck(v.checkPatch(patch, page))
	}
	return nil
}

func checkTypeFor(changeType types.ChangeType) types.CheckType {
	switch changeType {
	case types.ChangeTypeUpsertMeta:
		return types.CheckTypeMetaTag
	case types.ChangeTypeAddAltText:
		return types.CheckTypeAltText
	case types.ChangeTypeInjectSchema:
		return types.CheckTypeSchemaMarkup
	case types.ChangeTypeSetCanonical:
		return types.CheckTypeCanonical
	default:
		return types.CheckTypeGenericApply
	}
}

// checkPatch asserts one patch against an already fetched page
func (v *Verifier) checkPatch(patch *model.Patch, page *interfaces.FetchResult) model.VerificationCheck {
	check := model.VerificationCheck{
		CheckType:      checkTypeFor(patch.ChangeType),
		PatchID:        patch.ID,
		TargetURL:      patch.TargetURL,
		ExpectedResult: patch.AfterValue,
		Timestamp:      time.Now().UTC(),
	}

	if page.StatusCode < 200 || page.StatusCode >= 300 {
		check.Error = fmt.Sprintf("target returned status %d", page.StatusCode)
		return check
	}

	switch patch.ChangeType {
	case types.ChangeTypeUpsertMeta:
		selector := patch.Selector
		if selector == "" {
			selector = `meta[name="description"]`
		}
		value, found, err := v.inspector.Attr(page.Body, selector, "content")
		v.verdictExact(&check, value, found, err, "meta tag not found")

	case types.ChangeTypeAddAltText:
		selector := patch.Selector
		if selector == "" {
			selector = "img"
		}
		value, found, err := v.inspector.Attr(page.Body, selector, "alt")
		v.verdictExact(&check, value, found, err, "image not found")

	case types.ChangeTypeSetCanonical:
		value, found, err := v.inspector.Attr(page.Body, `link[rel="canonical"]`, "href")
		v.verdictExact(&check, value, found, err, "canonical link not found")

	case types.ChangeTypeInjectSchema:
		v.verdictSchema(&check, page.Body)

	default:
		check.ExpectedResult = types.ApplyStatusApplied.String()
		check.ActualResult = patch.ApplyStatus.String()
		check.Passed = patch.ApplyStatus == types.ApplyStatusApplied
		if !check.Passed {
			check.Error = "patch was not applied"
		}
	}
	return check
}

// verdictExact requires the observed value to match the expectation byte for
// byte. No trimming or case folding: "close enough" is how silent drift
// between CMS and verifier creeps in.
func (v *Verifier) verdictExact(check *model.VerificationCheck, value string, found bool, err error, missing string) {
	if err != nil {
		check.Error = err.Error()
		return
	}
	if !found {
		check.Error = missing
		return
	}
	check.ActualResult = value
	check.Passed = value == check.ExpectedResult
	if !check.Passed {
		check.Error = "observed value does not match expected value"
	}
}

// verdictSchema requires at least one JSON-LD block on the page and every
// block to be well-formed JSON. One malformed block fails the whole check:
// crawlers that hit invalid JSON-LD may discard all structured data on the
// page, not just the broken block.
func (v *Verifier) verdictSchema(check *model.VerificationCheck, body string) {
	check.ExpectedResult = "at least one valid JSON-LD block"

	blocks, err := v.inspector.JSONLDBlocks(body)
	if err != nil {
		check.Error = err.Error()
		return
	}
	if len(blocks) == 0 {
		check.ActualResult = "no JSON-LD blocks"
		check.Error = "no JSON-LD blocks found"
		return
	}

	for i, block := range blocks {
		if !json.Valid([]byte(block)) {
			check.ActualResult = fmt.Sprintf("%d JSON-LD blocks, block %d malformed", len(blocks), i+1)
			check.Error = "malformed JSON-LD block"
			return
		}
	}

	check.ActualResult = fmt.Sprintf("%d valid JSON-LD blocks", len(blocks))
	check.Passed = true
}

// checkContentExists verifies that a content generation run actually produced
// patches
func (v *Verifier) checkContentExists(ctx context.Context, run *model.Run, result *model.VerificationResult) error {
	patches, err := v.repo.Patch().ListByRun(ctx, run.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to list patches", goerr.V("run_id", run.ID))
	}

	check := model.VerificationCheck{
		CheckType:      types.CheckTypeContentExistence,
		ExpectedResult: "at least one content patch",
		ActualResult:   fmt.Sprintf("%d patches", len(patches)),
		Passed:         len(patches) > 0,
		Timestamp:      time.Now().UTC(),
	}
	if !check.Passed {
		check.Error = "run produced no content"
	}
	result.AddCheck(check)
	return nil
}

// checkReachability fetches the URL the publishing run claims to have
// created and requires a 2xx response
func (v *Verifier) checkReachability(ctx context.Context, run *model.Run, result *model.VerificationResult) error {
	url, _ := run.OutputData["public_url"].(string)
	if url == "" {
		result.AddCheck(model.VerificationCheck{
			CheckType:      types.CheckTypeURLReachability,
			ExpectedResult: "2xx response from published URL",
			Passed:         false,
			Error:          "run reported no published URL",
			Timestamp:      time.Now().UTC(),
		})
		return nil
	}

	if v.fetcher == nil {
		return goerr.New("live verification requires a fetcher")
	}

	check := model.VerificationCheck{
		CheckType:      types.CheckTypeURLReachability,
		TargetURL:      url,
		ExpectedResult: "2xx response",
		Timestamp:      time.Now().UTC(),
	}

	page, err := v.fetcher.Fetch(ctx, url, v.checkTimeout)
	if err != nil {
		check.Error = fmt.Sprintf("fetch failed: %s", err)
	} else {
		check.ActualResult = fmt.Sprintf("status %d", page.StatusCode)
		check.Passed = page.StatusCode >= 200 && page.StatusCode < 300
		if !check.Passed {
			check.Error = "published URL is not reachable"
		}
	}
	result.AddCheck(check)
	return nil
}

// checkCrawlRecency passes when an inspection record exists for the site
// within the recency window
func (v *Verifier) checkCrawlRecency(ctx context.Context, siteID types.SiteID, result *model.VerificationResult) error {
	inspections, err := v.repo.Inspection().RecentForSite(ctx, siteID, v.crawlWindow)
	if err != nil {
		return goerr.Wrap(err, "failed to list inspections", goerr.V("site_id", siteID))
	}

	check := model.VerificationCheck{
		CheckType:      types.CheckTypeCrawlRecency,
		ExpectedResult: fmt.Sprintf("inspection within %s", v.crawlWindow),
		Passed:         len(inspections) > 0,
		Timestamp:      time.Now().UTC(),
	}
	if check.Passed {
		check.ActualResult = fmt.Sprintf("inspected at %s",
			inspections[0].InspectedAt.UTC().Format(time.RFC3339))
	} else {
		check.ActualResult = "no recent inspection"
		check.Error = "no inspection record within the recency window"
	}
	result.AddCheck(check)
	return nil
}

// checkApplyStatus is the fallback for action types without a live strategy:
// each patch must at least report itself applied
func (v *Verifier) checkApplyStatus(ctx context.Context, run *model.Run, result *model.VerificationResult) error {
	patches, err := v.repo.Patch().ListByRun(ctx, run.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to list patches", goerr.V("run_id", run.ID))
	}

	if len(patches) == 0 {
		result.AddCheck(model.VerificationCheck{
			CheckType:      types.CheckTypeGenericApply,
			ExpectedResult: "at least one applied patch",
			ActualResult:   "no patches",
			Passed:         false,
			Error:          "run produced no patches to verify",
			Timestamp:      time.Now().UTC(),
		})
		return nil
	}

	for _, patch := range patches {
		check := model.VerificationCheck{
			CheckType:      types.CheckTypeGenericApply,
			PatchID:        patch.ID,
			TargetURL:      patch.TargetURL,
			ExpectedResult: types.ApplyStatusApplied.String(),
			ActualResult:   patch.ApplyStatus.String(),
			Passed:         patch.ApplyStatus == types.ApplyStatusApplied,
			Timestamp:      time.Now().UTC(),
		}
		if !check.Passed {
			check.Error = "patch was not applied"
		}
		result.AddCheck(check)
	}
	return nil
}
