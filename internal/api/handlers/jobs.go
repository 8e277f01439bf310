package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// JobsProvider defines the store methods required by the jobs handler.
type JobsProvider interface {
	ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error)
	ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error)
}

// SchedulerStatus reports the live state of the scan scheduler.
type SchedulerStatus interface {
	NextRun() time.Time
	Scanning() bool
}

// JobsHandler serves scan history and scheduler state.
type JobsHandler struct {
	runs  JobsProvider
	sched SchedulerStatus
}

// NewJobsHandler creates a JobsHandler. sched may be nil when no scheduler
// runs in this process.
func NewJobsHandler(runs JobsProvider, sched SchedulerStatus) *JobsHandler {
	return &JobsHandler{runs: runs, sched: sched}
}

// JobsOverview combines scheduler state with the latest run of each job.
type JobsOverview struct {
	NextScan time.Time       `json:"next_scan,omitzero" doc:"When the next scheduled scan fires"`
	Scanning bool            `json:"scanning"           doc:"Whether a scan is running on this replica"`
	Jobs     []domain.JobRun `json:"jobs"               doc:"Latest run of each job"`
}

// ListJobsOutput is the response for the jobs overview.
type ListJobsOutput struct {
	Body JobsOverview
}

// GetJobHistoryInput selects a job and how many of its runs to return.
type GetJobHistoryInput struct {
	JobName string `path:"job_name" doc:"Job name" example:"price_scan"`
	Limit   int    `query:"limit"   doc:"Maximum runs to return" default:"20" minimum:"1" maximum:"100"`
}

// GetJobHistoryOutput is the response for a job's history.
type GetJobHistoryOutput struct {
	Body []domain.JobRun
}

// ListJobs returns scheduler state and the most recent run of each job.
func (h *JobsHandler) ListJobs(ctx context.Context, _ *struct{}) (*ListJobsOutput, error) {
	runs, err := h.runs.ListLatestJobRuns(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing jobs failed: " + err.Error())
	}

	out := &ListJobsOutput{Body: JobsOverview{Jobs: nonNil(runs)}}
	if h.sched != nil {
		out.Body.NextScan = h.sched.NextRun()
		out.Body.Scanning = h.sched.Scanning()
	}
	return out, nil
}

// GetJobHistory returns a job's runs, newest first.
func (h *JobsHandler) GetJobHistory(ctx context.Context, in *GetJobHistoryInput) (*GetJobHistoryOutput, error) {
	runs, err := h.runs.ListJobRuns(ctx, in.JobName, in.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("fetching job history failed: " + err.Error())
	}
	return &GetJobHistoryOutput{Body: nonNil(runs)}, nil
}

func nonNil(runs []domain.JobRun) []domain.JobRun {
	if runs == nil {
		return []domain.JobRun{}
	}
	return runs
}

// RegisterJobRoutes registers the job history endpoints.
func RegisterJobRoutes(api huma.API, h *JobsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs",
		Summary:     "Scheduler overview",
		Description: "Returns when the next scan fires, whether one is running, and the latest run of each job.",
		Tags:        []string{"scheduler"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.ListJobs)

	huma.Register(api, huma.Operation{
		OperationID: "get-job-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs/{job_name}",
		Summary:     "Job run history",
		Description: "Returns a job's runs, newest first. Each run records its status, the notifications it sent, and any error.",
		Tags:        []string{"scheduler"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.GetJobHistory)
}
