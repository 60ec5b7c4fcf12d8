package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"clipforge/internal/httpkit"
	"clipforge/internal/models"
	"clipforge/internal/pkg/errors"
)

// CreateJobRequest is the body of POST /jobs.
type CreateJobRequest struct {
	JobID          string   `json:"job_id"`
	SourceVideoRef string   `json:"source_video_ref"`
	SourceAudioRef string   `json:"source_audio_ref"`
	AbsoluteStart  *float64 `json:"absolute_start"`
	AbsoluteEnd    *float64 `json:"absolute_end"`
}

func (req CreateJobRequest) spec() (models.JobSpec, error) {
	if req.AbsoluteStart == nil {
		return models.JobSpec{}, errors.ValidationField("absolute_start", "is required")
	}
	if req.AbsoluteEnd == nil {
		return models.JobSpec{}, errors.ValidationField("absolute_end", "is required")
	}
	return models.JobSpec{
		JobID:          req.JobID,
		SourceVideoRef: req.SourceVideoRef,
		SourceAudioRef: req.SourceAudioRef,
		AbsoluteStart:  *req.AbsoluteStart,
		AbsoluteEnd:    *req.AbsoluteEnd,
	}, nil
}

// JobStatus is the body of GET /jobs/{jobId}.
type JobStatus struct {
	JobID     string     `json:"job_id"`
	Status    string     `json:"status"`
	Stage     string     `json:"stage,omitempty"`
	Progress  int        `json:"progress"`
	Error     string     `json:"error,omitempty"`
	Remote    string     `json:"remote,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// PostJob accepts a job and answers 202 before any work starts.
func (h *Handler) PostJob(w http.ResponseWriter, r *http.Request) error {
	var req CreateJobRequest
	if err := httpkit.DecodeJSON(w, r, &req); err != nil {
		return errors.WrapWithCode(err, errors.CodeValidation, "handlers.PostJob", "invalid json body")
	}
	spec, err := req.spec()
	if err != nil {
		return err
	}

	id, err := h.jobs.Submit(r.Context(), spec)
	if err != nil {
		return err
	}

	w.Header().Set("Location", "/jobs/"+id)
	httpkit.WriteJSON(w, http.StatusAccepted, map[string]any{
		"status": "accepted",
		"job_id": id,
	})
	return nil
}

// GetJob reports a job's status. Unknown ids answer 200 with status
// "unknown" so pollers need not special-case 404.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) error {
	id := strings.TrimSpace(chi.URLParam(r, "jobId"))

	job, ok, err := h.jobs.Status(r.Context(), id)
	if err != nil {
		return err
	}
	if !ok {
		httpkit.WriteJSON(w, http.StatusOK, JobStatus{JobID: id, Status: "unknown"})
		return nil
	}

	updated := job.UpdatedAt
	httpkit.WriteJSON(w, http.StatusOK, JobStatus{
		JobID:     job.ID,
		Status:    job.PublicStatus(),
		Stage:     string(job.Stage),
		Progress:  job.Progress,
		Error:     job.Error,
		Remote:    job.Remote,
		UpdatedAt: &updated,
	})
	return nil
}
