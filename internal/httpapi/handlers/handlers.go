// Package handlers implements the job submission and status endpoints.
package handlers

import (
	"context"

	"clipforge/internal/models"
	"clipforge/internal/pkg/logger"
)

// JobService is the orchestrator surface the API needs.
type JobService interface {
	Submit(ctx context.Context, spec models.JobSpec) (string, error)
	Status(ctx context.Context, id string) (models.Job, bool, error)
}

// Check is one dependency probed by GET /health?deep=true.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type Deps struct {
	Jobs    JobService
	Checks  []Check
	Service string
	Version string
	Log     *logger.Logger
}

type Handler struct {
	jobs    JobService
	checks  []Check
	service string
	version string
	log     *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	service := d.Service
	if service == "" {
		service = "clipforge-api"
	}
	return &Handler{
		jobs:    d.Jobs,
		checks:  d.Checks,
		service: service,
		version: d.Version,
		log:     log.WithComponent("http"),
	}
}

// Log is the request-scoped logger base used by the router middleware.
func (h *Handler) Log() *logger.Logger {
	return h.log
}
