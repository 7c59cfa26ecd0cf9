package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
	"github.com/sitefix-lab/sitefix/pkg/usecase"
	"github.com/sitefix-lab/sitefix/pkg/utils/errutil"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // header already committed
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrActionNotFound), errors.Is(err, usecase.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidActionType), errors.Is(err, usecase.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrQueuesUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type submitRequest struct {
	ActionID    string         `json:"action_id"`
	ActionType  string         `json:"action_type"`
	SiteID      string         `json:"site_id"`
	OwnerToken  string         `json:"owner_token"`
	Payload     map[string]any `json:"payload"`
	DedupeToken string         `json:"dedupe_token"`
	Priority    int            `json:"priority"`
	DelaySec    int            `json:"delay_sec"`

	Environment      string `json:"environment"`
	MaxPages         int    `json:"max_pages"`
	MaxPatches       int    `json:"max_patches"`
	RequiresApproval bool   `json:"requires_approval"`
}

type submitResponse struct {
	ActionID       string `json:"action_id"`
	RunID          string `json:"run_id"`
	IdempotencyKey string `json:"idempotency_key"`
	Duplicate      bool   `json:"duplicate"`
	Queued         bool   `json:"queued"`
}

func (s *Server) submitAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to decode submit request"), http.StatusBadRequest)
		return
	}

	env := types.Environment(req.Environment).Normalize()
	if !env.IsValid() {
		errutil.HandleHTTP(ctx, w, goerr.New("invalid environment", goerr.V("environment", req.Environment)), http.StatusBadRequest)
		return
	}

	result, err := s.uc.Submit(ctx, &usecase.SubmitInput{
		ActionID:    types.ActionID(req.ActionID),
		ActionType:  types.ActionType(req.ActionType),
		SiteID:      types.SiteID(req.SiteID),
		OwnerToken:  req.OwnerToken,
		Payload:     req.Payload,
		DedupeToken: req.DedupeToken,
		Priority:    req.Priority,
		Delay:       time.Duration(req.DelaySec) * time.Second,
		Policy: model.RunPolicy{
			Environment:      env,
			MaxPages:         req.MaxPages,
			MaxPatches:       req.MaxPatches,
			RequiresApproval: req.RequiresApproval,
		},
	})
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFor(err))
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, r, status, submitResponse{
		ActionID:       result.ActionID.String(),
		RunID:          result.RunID.String(),
		IdempotencyKey: result.IdempotencyKey.String(),
		Duplicate:      result.Duplicate,
		Queued:         result.Queued,
	})
}

type runResponse struct {
	ID                  string    `json:"id"`
	IdempotencyKey      string    `json:"idempotency_key"`
	Status              string    `json:"status"`
	Environment         string    `json:"environment"`
	ErrorDetails        string    `json:"error_details,omitempty"`
	VerificationStatus  string    `json:"verification_status,omitempty"`
	VerificationSummary string    `json:"verification_summary,omitempty"`
	StartedAt           time.Time `json:"started_at,omitzero"`
	CompletedAt         time.Time `json:"completed_at,omitzero"`
}

type actionResponse struct {
	ID         string         `json:"id"`
	ActionType string         `json:"action_type"`
	SiteID     string         `json:"site_id"`
	Status     string         `json:"status"`
	LastError  string         `json:"last_error,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Runs       []runResponse  `json:"runs"`
}

func (s *Server) getAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actionID := types.ActionID(chi.URLParam(r, "actionID"))
	action, runs, err := s.uc.GetAction(ctx, actionID)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFor(err))
		return
	}

	resp := actionResponse{
		ID:         action.ID.String(),
		ActionType: action.ActionType.String(),
		SiteID:     action.SiteID.String(),
		Status:     action.Status.String(),
		LastError:  action.LastError,
		Payload:    action.Payload,
		CreatedAt:  action.CreatedAt,
		UpdatedAt:  action.UpdatedAt,
		Runs:       make([]runResponse, len(runs)),
	}
	for i, run := range runs {
		resp.Runs[i] = runResponse{
			ID:                  run.ID.String(),
			IdempotencyKey:      run.IdempotencyKey.String(),
			Status:              run.Status.String(),
			Environment:         run.Policy.Environment.String(),
			ErrorDetails:        run.ErrorDetails,
			VerificationStatus:  run.VerificationStatus.String(),
			VerificationSummary: run.VerificationSummary,
			StartedAt:           run.StartedAt,
			CompletedAt:         run.CompletedAt,
		}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

type eventResponse struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	RunID     string         `json:"run_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actionID := types.ActionID(chi.URLParam(r, "actionID"))
	events, err := s.uc.ListEvents(ctx, actionID)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFor(err))
		return
	}

	resp := make([]eventResponse, len(events))
	for i, event := range events {
		resp[i] = eventResponse{
			ID:        event.ID.String(),
			Kind:      string(event.Kind),
			RunID:     event.RunID.String(),
			Data:      event.Data,
			CreatedAt: event.CreatedAt,
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"events": resp})
}

type verifyResponse struct {
	OverallStatus string `json:"overall_status"`
	Summary       string `json:"summary"`
	TotalChecks   int    `json:"total_checks"`
	PassedChecks  int    `json:"passed_checks"`
	FailedChecks  int    `json:"failed_checks"`
}

func (s *Server) verifyAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actionID := types.ActionID(chi.URLParam(r, "actionID"))
	result, err := s.uc.VerifyAction(ctx, actionID)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFor(err))
		return
	}

	writeJSON(w, r, http.StatusOK, verifyResponse{
		OverallStatus: result.OverallStatus.String(),
		Summary:       result.Summary,
		TotalChecks:   result.TotalChecks,
		PassedChecks:  result.PassedChecks,
		FailedChecks:  result.FailedChecks,
	})
}

func queueName(r *http.Request) (types.QueueName, error) {
	name := types.QueueName(chi.URLParam(r, "queueName"))
	if !name.IsValid() {
		return "", goerr.New("invalid queue name", goerr.V("queue", name))
	}
	return name, nil
}

func (s *Server) queueStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, err := queueName(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	stats, err := s.uc.QueueStats(ctx, name)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFor(err))
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"queue":     name.String(),
		"waiting":   stats.Waiting,
		"active":    stats.Active,
		"completed": stats.Completed,
		"failed":    stats.Failed,
		"delayed":   stats.Delayed,
		"paused":    stats.Paused,
	})
}

func (s *Server) pauseQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, err := queueName(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	if err := s.uc.PauseQueue(ctx, name); err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"queue": name.String(), "paused": true})
}

func (s *Server) resumeQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, err := queueName(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	if err := s.uc.ResumeQueue(ctx, name); err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"queue": name.String(), "paused": false})
}

type cleanRequest struct {
	OlderThanSec int `json:"older_than_sec"`
}

func (s *Server) cleanQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, err := queueName(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	var req cleanRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to decode clean request"), http.StatusBadRequest)
			return
		}
	}

	removed, err := s.uc.CleanQueue(ctx, name, time.Duration(req.OlderThanSec)*time.Second)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"queue": name.String(), "removed": removed})
}
