package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"ttnmanager/models"
	"ttnmanager/repository"
	"ttnmanager/services"
)

type SenderHandler struct {
	Repo         repository.SenderRepository
	Provisioning *services.Provisioning
	Keys         *services.APIKeys
	Logger       *zap.Logger
}

func (h *SenderHandler) ListSenders(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	senders, err := h.Repo.ListSenders(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if senders == nil {
		senders = []*models.Sender{}
	}
	writeData(w, senders)
}

// Candidates lists the Sender counterparties of the user's account.
func (h *SenderHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	key, err := h.apiKey(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	items, err := h.Provisioning.SenderCandidates(r.Context(), key)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeData(w, items)
}

// Selection returns the chosen sender with its contact persons. Without a
// senderRef the only candidate is chosen.
func (h *SenderHandler) Selection(w http.ResponseWriter, r *http.Request) {
	key, err := h.apiKey(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	sel, err := h.Provisioning.SelectSender(r.Context(), key, r.URL.Query().Get("senderRef"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeData(w, sel)
}

// Sync stores the selected sender at a city and branch.
func (h *SenderHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	var req services.SenderLocationInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	key, err := h.Keys.Require(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	sender, err := h.Provisioning.SyncSender(r.Context(), userID, key, req)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	h.Logger.Info("sender synced",
		zap.String("sender_id", sender.ID),
		zap.String("sender_ref", sender.SenderRef))
	writeData(w, sender)
}

func (h *SenderHandler) apiKey(r *http.Request) (string, error) {
	userID, err := requireUser(r)
	if err != nil {
		return "", err
	}
	return h.Keys.Require(r.Context(), userID)
}
