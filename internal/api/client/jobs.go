package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/donaldgifford/price-drop-tracker/internal/engine"
	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// Scan runs a scan on the server and waits for its result.
func (c *Client) Scan(ctx context.Context) (*engine.ScanResult, error) {
	var res engine.ScanResult
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/scan", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// JobsOverview is the scheduler state plus the latest run of each job.
type JobsOverview struct {
	NextScan time.Time       `json:"next_scan"`
	Scanning bool            `json:"scanning"`
	Jobs     []domain.JobRun `json:"jobs"`
}

// ListJobs returns the scheduler overview.
func (c *Client) ListJobs(ctx context.Context) (*JobsOverview, error) {
	var ov JobsOverview
	if err := c.get(ctx, "/api/v1/jobs", &ov); err != nil {
		return nil, err
	}
	return &ov, nil
}

// GetJobHistory returns up to limit runs of a scheduled job, newest first.
// A non-positive limit uses the server default.
func (c *Client) GetJobHistory(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error) {
	path := "/api/v1/jobs/" + url.PathEscape(jobName)
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var runs []domain.JobRun
	if err := c.get(ctx, path, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// Quota is the price oracle's call quota.
type Quota struct {
	Unlimited  bool      `json:"unlimited"`
	DailyLimit int64     `json:"daily_limit"`
	DailyUsed  int64     `json:"daily_used"`
	Remaining  int64     `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
}

// GetQuota returns the oracle quota status.
func (c *Client) GetQuota(ctx context.Context) (*Quota, error) {
	var q Quota
	if err := c.get(ctx, "/api/v1/oracle/quota", &q); err != nil {
		return nil, err
	}
	return &q, nil
}
