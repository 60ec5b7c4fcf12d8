package repositories

import (
	"encoding/json"
	"fmt"
	"strings"

	"clipforge/internal/models"
)

// jobRow is the column form of a models.Job shared by both drivers.
type jobRow struct {
	ID        string
	Stage     string
	Progress  int
	ErrorText *string
	ErrorCode *string
	RemoteRef *string
	SpecJSON  string
	PathsJSON string
}

func toRow(j models.Job) (jobRow, error) {
	spec, err := json.Marshal(j.Spec)
	if err != nil {
		return jobRow{}, fmt.Errorf("marshal spec: %w", err)
	}
	paths, err := json.Marshal(j.Paths)
	if err != nil {
		return jobRow{}, fmt.Errorf("marshal paths: %w", err)
	}
	return jobRow{
		ID:        j.ID,
		Stage:     string(j.Stage),
		Progress:  j.Progress,
		ErrorText: nullIfEmpty(j.Error),
		ErrorCode: nullIfEmpty(j.ErrorCode),
		RemoteRef: nullIfEmpty(j.Remote),
		SpecJSON:  string(spec),
		PathsJSON: string(paths),
	}, nil
}

func (r jobRow) job() (models.Job, error) {
	j := models.Job{
		ID:        r.ID,
		Stage:     models.Stage(r.Stage),
		Progress:  r.Progress,
		Error:     deref(r.ErrorText),
		ErrorCode: deref(r.ErrorCode),
		Remote:    deref(r.RemoteRef),
	}
	if r.SpecJSON != "" {
		if err := json.Unmarshal([]byte(r.SpecJSON), &j.Spec); err != nil {
			return j, fmt.Errorf("decode spec of %s: %w", r.ID, err)
		}
	}
	if r.PathsJSON != "" {
		if err := json.Unmarshal([]byte(r.PathsJSON), &j.Paths); err != nil {
			return j, fmt.Errorf("decode paths of %s: %w", r.ID, err)
		}
	}
	return j, nil
}

func nullIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
