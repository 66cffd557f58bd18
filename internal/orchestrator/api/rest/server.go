package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hiverender/hiverender/internal/orchestrator/core"
	"github.com/hiverender/hiverender/internal/orchestrator/service"
	"github.com/hiverender/hiverender/internal/shared/logging"
)

// API exposes the orchestrator's control surface over HTTP.
type API struct {
	jobs   service.JobService
	logger logging.Logger
}

func NewAPI(jobs service.JobService, logger logging.Logger) *API {
	return &API{
		jobs:   jobs,
		logger: logger,
	}
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/jobs", a.submitJob)
	mux.HandleFunc("GET /api/jobs", a.listJobs)
	mux.HandleFunc("GET /api/jobs/{id}", a.getJob)
	mux.HandleFunc("POST /api/jobs/{id}/collect", a.collectJob)
	mux.HandleFunc("POST /api/jobs/{id}/autorefresh", a.setAutoRefresh)
}

func (a *API) submitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := a.jobs.Submit(r.Context(), req.ToParams())
	if err != nil {
		var storeErr *core.StoreError
		if errors.As(err, &storeErr) {
			a.respondError(w, http.StatusInternalServerError, "failed to persist job", err.Error())
			return
		}
		a.respondError(w, http.StatusBadRequest, "submission rejected", err.Error())
		return
	}

	a.respondJSON(w, http.StatusCreated, ToSubmitJobResponse(result))
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	status, err := a.jobs.Status(r.Context(), jobID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, "failed to load job", err.Error())
		return
	}
	if status == nil {
		a.respondError(w, http.StatusNotFound, "job not found", "")
		return
	}

	a.respondJSON(w, http.StatusOK, ToGetJobResponse(status))
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := core.JobFilter{Limit: 10}
	if stateStr := query.Get("state"); stateStr != "" {
		state := core.JobState(stateStr)
		filter.State = &state
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	jobs, total, err := a.jobs.GetJobs(filter)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, "failed to list jobs", err.Error())
		return
	}

	summaries := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, ToJobSummary(job))
	}

	var nextOffset *int
	if end := filter.Offset + len(summaries); end < total {
		nextOffset = &end
	}

	a.respondJSON(w, http.StatusOK, ListJobsResponse{
		Jobs:       summaries,
		Total:      total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
		NextOffset: nextOffset,
	})
}

func (a *API) collectJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := a.jobs.GetJob(jobID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, "failed to load job", err.Error())
		return
	}
	if job == nil {
		a.respondError(w, http.StatusNotFound, "job not found", "")
		return
	}

	result, err := a.jobs.Collect(r.Context(), jobID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, "collection failed", err.Error())
		return
	}

	a.respondJSON(w, http.StatusOK, ToCollectResponse(jobID, result))
}

func (a *API) setAutoRefresh(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	var req AutoRefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	job, err := a.jobs.GetJob(jobID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, "failed to load job", err.Error())
		return
	}
	if job == nil {
		a.respondError(w, http.StatusNotFound, "job not found", "")
		return
	}

	if err := a.jobs.SetAutoRefresh(r.Context(), jobID, req.Enabled); err != nil {
		a.respondError(w, http.StatusInternalServerError, "failed to toggle auto refresh", err.Error())
		return
	}

	a.respondJSON(w, http.StatusOK, AutoRefreshResponse{JobID: jobID, Enabled: req.Enabled})
}

func (a *API) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("Failed to encode response", "error", err)
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, message, details string) {
	a.respondJSON(w, status, ErrorResponse{Error: message, Details: details})
}
