package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/price-drop-tracker/internal/oracle"
)

// QuotaStatus is the oracle's daily call budget.
type QuotaStatus struct {
	Unlimited  bool      `json:"unlimited"                                            doc:"True when no daily quota is configured"`
	DailyLimit int64     `json:"daily_limit"       example:"5000"                   doc:"Daily oracle call limit; 0 when unlimited"`
	DailyUsed  int64     `json:"daily_used"        example:"142"                    doc:"Calls made in the current 24-hour window"`
	Remaining  int64     `json:"remaining"         example:"4858"                   doc:"Calls left in the window; -1 when unlimited"`
	ResetAt    time.Time `json:"reset_at,omitzero" example:"2026-06-16T14:30:00Z" doc:"When the current window expires"`
}

// QuotaOutput wraps QuotaStatus.
type QuotaOutput struct {
	Body QuotaStatus
}

// QuotaHandler serves the oracle quota.
type QuotaHandler struct {
	rl *oracle.RateLimiter
}

// NewQuotaHandler returns a QuotaHandler. A nil rl reports an unlimited
// quota, which is the case for the static oracle.
func NewQuotaHandler(rl *oracle.RateLimiter) *QuotaHandler {
	return &QuotaHandler{rl: rl}
}

func (h *QuotaHandler) status() QuotaStatus {
	if h.rl == nil || h.rl.MaxDaily() <= 0 {
		return QuotaStatus{Unlimited: true, Remaining: -1}
	}
	return QuotaStatus{
		DailyLimit: h.rl.MaxDaily(),
		DailyUsed:  h.rl.DailyCount(),
		Remaining:  h.rl.Remaining(),
		ResetAt:    h.rl.ResetAt(),
	}
}

// GetQuota handles GET /api/v1/oracle/quota.
func (h *QuotaHandler) GetQuota(_ context.Context, _ *struct{}) (*QuotaOutput, error) {
	return &QuotaOutput{Body: h.status()}, nil
}

// RegisterQuotaRoutes registers the quota endpoint.
func RegisterQuotaRoutes(api huma.API, h *QuotaHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-oracle-quota",
		Method:      http.MethodGet,
		Path:        "/api/v1/oracle/quota",
		Summary:     "Get price oracle quota",
		Description: "Daily oracle call usage and when the window resets.",
		Tags:        []string{"oracle"},
	}, h.GetQuota)
}
