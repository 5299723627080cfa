package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fsakai/autopost/internal/auth"
	"github.com/fsakai/autopost/internal/model"
	"github.com/fsakai/autopost/internal/service"
)

// SettingsHandler serves the user's generation settings.
type SettingsHandler struct {
	settings *service.SettingsService
	logger   *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(settings *service.SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// HandleGet returns the caller's settings (empty defaults if never saved).
//
// HTTP: GET /api/settings
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	settings, err := h.settings.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// HandlePut replaces the caller's settings wholesale.
//
// HTTP: PUT /api/settings
// BODY: {"keywords": [...], "styleInstructions": "...", "captionInstructions": "...", "schedule": {"月": ["09:00"]}}
func (h *SettingsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req model.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	saved, err := h.settings.Save(r.Context(), userID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, saved)
}
