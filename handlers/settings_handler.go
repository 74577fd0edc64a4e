package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"ttnmanager/services"
)

// SettingsHandler manages the user's Nova Poshta API key. The key itself is
// never returned.
type SettingsHandler struct {
	Keys   *services.APIKeys
	Logger *zap.Logger
}

type apiKeyRequest struct {
	APIKey string `json:"apiKey" validate:"required"`
}

type apiKeyStatus struct {
	Configured bool `json:"configured"`
}

func (h *SettingsHandler) GetAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	configured, err := h.Keys.Configured(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeData(w, apiKeyStatus{Configured: configured})
}

func (h *SettingsHandler) SaveAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	var req apiKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Keys.Save(r.Context(), userID, req.APIKey); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "API key saved",
		Data:    apiKeyStatus{Configured: true},
	})
}
