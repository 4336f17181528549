// Package api provides HTTP handlers for ordersweep endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/restockops/ordersweep/internal/discord"
	"github.com/restockops/ordersweep/internal/models"
)

// deleteMessageHandler handles POST /delete-discord-message. It validates the
// request shape, delegates to the sweep workflow under the request time
// budget, and serializes the resulting report. Gateway-layer failures become
// structured failure reports with an appropriate status class, never an
// unhandled fault.
func (s *Server) deleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.deleteMessageHandler: processing delete request", "method", r.Method, "path", r.URL.Path)

	var req models.DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.deleteMessageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, errorReport("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.deleteMessageHandler: validation failed", "error", err, "channel_id", req.ChannelID)
		writeJSONResponse(w, http.StatusBadRequest, errorReport(err.Error()))
		return
	}

	limit := s.opts.DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	report := s.sweeper.SearchAndDelete(ctx, req.ChannelID, req.Criteria(), limit)
	status := statusForReport(&report)
	if report.Success {
		slog.Info("Server.deleteMessageHandler: request processed",
			"channel_id", req.ChannelID, "deleted", report.DeletedCount, "checked", report.MessagesChecked)
	} else {
		slog.Error("Server.deleteMessageHandler: request failed", "error", report.Error, "status", status)
	}
	writeJSONResponse(w, status, report)
}

// statusForReport maps the sentinel carried by a failure report onto an HTTP
// status class: caller-correctable access problems are 4xx, platform-side
// outages 5xx.
func statusForReport(report *models.DeleteReport) int {
	switch {
	case report.Err == nil && report.Success:
		return http.StatusOK
	case errors.Is(report.Err, models.ErrChannelAccess):
		return http.StatusNotFound
	case errors.Is(report.Err, models.ErrPermission):
		return http.StatusForbidden
	case errors.Is(report.Err, models.ErrPlatformUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(report.Err, context.DeadlineExceeded), errors.Is(report.Err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorReport builds the minimal failure body for handler-local errors.
func errorReport(message string) models.DeleteReport {
	return models.DeleteReport{Success: false, Error: message}
}

// healthHandler provides a liveness probe reflecting the gateway connection
// state: 200 only when the session is ready.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	state := s.gw.State()
	body := map[string]interface{}{
		"service":   ServiceName,
		"gateway":   string(state),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if state == discord.StateReady {
		body["status"] = "healthy"
	} else {
		body["status"] = "unavailable"
		status = http.StatusServiceUnavailable
		slog.Warn("Server.healthHandler: gateway not ready", "state", state)
	}
	writeJSONResponse(w, status, body)
}

// rootHandler returns service metadata (GET /).
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Discord Message Deletion API",
		"service": ServiceName,
		"version": Version,
		"endpoints": map[string]string{
			"POST /delete-discord-message": "Delete webhook messages matching product name, SKU and size",
			"GET /health":                  "Gateway connection liveness probe",
		},
	})
}
