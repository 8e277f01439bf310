package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/price-drop-tracker/internal/api/middleware"
	"github.com/donaldgifford/price-drop-tracker/internal/engine"
)

// ScanTrigger runs a scan on demand.
type ScanTrigger interface {
	TriggerScan(ctx context.Context) (*engine.ScanResult, error)
}

// ScanHandler handles manual scan requests.
type ScanHandler struct {
	trigger ScanTrigger
	log     *slog.Logger
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(t ScanTrigger, log *slog.Logger) *ScanHandler {
	return &ScanHandler{trigger: t, log: log}
}

// ScanOutput is the response body for the scan endpoint.
type ScanOutput struct {
	Body *engine.ScanResult
}

// Scan runs a full scan and waits for it to finish.
func (h *ScanHandler) Scan(ctx context.Context, _ *struct{}) (*ScanOutput, error) {
	h.log.Info("manual scan requested", "request_id", middleware.RequestIDFromContext(ctx))

	res, err := h.trigger.TriggerScan(ctx)
	if err != nil {
		if errors.Is(err, engine.ErrScanInProgress) {
			return nil, huma.Error409Conflict(err.Error())
		}
		return nil, huma.Error500InternalServerError("scan failed: " + err.Error())
	}

	return &ScanOutput{Body: res}, nil
}

// RegisterScanRoutes registers the scan trigger with the Huma API.
func RegisterScanRoutes(api huma.API, h *ScanHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "trigger-scan",
		Method:      http.MethodPost,
		Path:        "/api/v1/scan",
		Summary:     "Run a price scan now",
		Description: "Checks every subscription against current prices and notifies owners of drops. " +
			"Returns 409 if a scan is already running on any replica.",
		Tags:   []string{"scan"},
		Errors: []int{http.StatusConflict, http.StatusInternalServerError},
	}, h.Scan)
}
