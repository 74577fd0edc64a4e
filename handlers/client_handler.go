package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ttnmanager/apperror"
	"ttnmanager/models"
	"ttnmanager/repository"
	"ttnmanager/utils"
)

type ClientHandler struct {
	Repo   repository.ClientRepository
	Logger *zap.Logger
}

type createClientRequest struct {
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName" validate:"required"`
	Phone           string `json:"phone" validate:"required"`
	CityName        string `json:"cityName" validate:"required"`
	WarehouseDesc   string `json:"warehouseDesc" validate:"required"`
	CityRef         string `json:"cityRef" validate:"required"`
	WarehouseRef    string `json:"warehouseRef" validate:"required"`
	ContactRef      string `json:"contactRef" validate:"required"`
	CounterpartyRef string `json:"counterpartyRef" validate:"required"`
	UserID          string `json:"userId" validate:"required"`
}

type locationRequest struct {
	CityName      string `json:"cityName" validate:"required"`
	CityRef       string `json:"cityRef" validate:"required"`
	WarehouseDesc string `json:"warehouseDesc" validate:"required"`
	WarehouseRef  string `json:"warehouseRef" validate:"required"`
}

// CreateClient stores a recipient already provisioned remotely together with
// its first delivery location.
func (h *ClientHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	var req createClientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if req.UserID != userID {
		writeError(w, h.Logger, apperror.Validation("userId does not match the authenticated user"))
		return
	}
	phone, ok := utils.NormalizePhone(req.Phone)
	if !ok {
		writeError(w, h.Logger, apperror.Validation("phone must be a valid Ukrainian phone number"))
		return
	}

	client := &models.Client{
		UserID:          userID,
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		Phone:           phone,
		ContactRef:      req.ContactRef,
		CounterpartyRef: req.CounterpartyRef,
	}
	location := &models.ClientLocation{
		CityName:      req.CityName,
		CityRef:       req.CityRef,
		WarehouseName: req.WarehouseDesc,
		WarehouseRef:  req.WarehouseRef,
	}
	if err := h.Repo.CreateClientWithLocation(r.Context(), client, location); err != nil {
		writeError(w, h.Logger, apperror.New(apperror.KindStorage, "Failed to create client").Wrap(err))
		return
	}
	client.Locations = []models.ClientLocation{*location}

	h.Logger.Info("client created", zap.String("client_id", client.ID))
	writeJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "Client created successfully",
		Data:    client,
	})
}

// ListClients returns the user's clients with their de-duplicated locations.
func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	clients, err := h.Repo.ListClients(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if clients == nil {
		clients = []*models.Client{}
	}

	ids := make([]string, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, c.ID)
	}
	locations, err := h.Repo.ListClientLocations(r.Context(), ids)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	byClient := make(map[string][]models.ClientLocation, len(clients))
	for _, l := range locations {
		byClient[l.ClientID] = append(byClient[l.ClientID], l)
	}
	for _, c := range clients {
		c.Locations = byClient[c.ID]
		if c.Locations == nil {
			c.Locations = []models.ClientLocation{}
		}
	}

	writeData(w, clients)
}

func (h *ClientHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	deleted, err := h.Repo.DeleteClient(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if !deleted {
		writeError(w, h.Logger, apperror.NotFound("client"))
		return
	}
	writeJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Client deleted"})
}

// AddLocation attaches another delivery location to an owned client.
func (h *ClientHandler) AddLocation(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	client, err := h.Repo.GetClient(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if client == nil {
		writeError(w, h.Logger, apperror.NotFound("client"))
		return
	}

	location := &models.ClientLocation{
		ClientID:      client.ID,
		CityName:      req.CityName,
		CityRef:       req.CityRef,
		WarehouseName: req.WarehouseDesc,
		WarehouseRef:  req.WarehouseRef,
	}
	if err := h.Repo.InsertClientLocation(r.Context(), location); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeData(w, location)
}

func (h *ClientHandler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	deleted, err := h.Repo.DeleteClientLocation(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if !deleted {
		writeError(w, h.Logger, apperror.NotFound("client location"))
		return
	}
	writeJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Client location deleted"})
}
