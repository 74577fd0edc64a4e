package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ttnmanager/models"
	"ttnmanager/services"
)

type TTNHandler struct {
	Shipments *services.Shipments
	Logger    *zap.Logger
}

// createTTNRequest accepts cost as a JSON number or a numeric string.
type createTTNRequest struct {
	ClientLocationID string                  `json:"clientLocationId"`
	SenderID         string                  `json:"senderId"`
	Description      string                  `json:"description"`
	Cost             *decimal.Decimal        `json:"cost"`
	RecipientAddress *services.StreetAddress `json:"recipientAddress,omitempty"`
}

// CreateTTN issues a shipment document and returns the stored row.
func (h *TTNHandler) CreateTTN(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	var req createTTNRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	ttn, err := h.Shipments.CreateTTN(r.Context(), userID, services.CreateTTNInput{
		ClientLocationID: req.ClientLocationID,
		SenderID:         req.SenderID,
		Description:      req.Description,
		Cost:             req.Cost,
		RecipientStreet:  req.RecipientAddress,
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ttn)
}

func (h *TTNHandler) ListTTN(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	items, err := h.Shipments.ListTTN(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if items == nil {
		items = []*models.TTN{}
	}
	writeData(w, items)
}
