// Package handlers implements the HTTP API of the price drop tracker:
// subscription commands, manual scans, job history, oracle quota and
// health probes.
package handlers

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}
