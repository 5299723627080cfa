package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/fsakai/autopost/internal/service"
)

// TriggerHandler exposes the two pipeline trigger operations to an
// external scheduler (platform cron hitting these endpoints with the
// shared secret). The in-process scheduler calls the pipeline directly
// and bypasses this layer.
type TriggerHandler struct {
	pipeline   *service.Pipeline
	cronSecret string
	logger     *slog.Logger
}

// NewTriggerHandler creates a TriggerHandler.
func NewTriggerHandler(pipeline *service.Pipeline, cronSecret string, logger *slog.Logger) *TriggerHandler {
	return &TriggerHandler{
		pipeline:   pipeline,
		cronSecret: cronSecret,
		logger:     logger,
	}
}

// HandleGenerate runs the match-and-generate leg.
//
// HTTP: POST /api/cron/generate
// AUTH: Authorization: Bearer <cron secret>
func (h *TriggerHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid cron secret required"})
		return
	}

	report, err := h.pipeline.RunMatchAndDispatch(r.Context(), time.Now())
	if err != nil {
		h.logger.Error("cron generate failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// HandleDispatch runs the publish leg.
//
// HTTP: POST /api/cron/dispatch
// AUTH: Authorization: Bearer <cron secret>
func (h *TriggerHandler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid cron secret required"})
		return
	}

	outcomes, err := h.pipeline.RunDispatch(r.Context(), time.Now())
	if err != nil {
		h.logger.Error("cron dispatch failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"processed": len(outcomes),
		"results":   outcomes,
	})
}

func (h *TriggerHandler) authorized(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}
	got := r.Header.Get("Authorization")
	want := "Bearer " + h.cronSecret
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
