package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ttnmanager/apperror"
	"ttnmanager/novaposhta"
	"ttnmanager/services"
	"ttnmanager/utils"
)

// CounterpartyHandler exposes the remote counterparty directory of the
// user's Nova Poshta account.
type CounterpartyHandler struct {
	Provisioning *services.Provisioning
	Keys         *services.APIKeys
	Logger       *zap.Logger
}

type counterpartyRequest struct {
	FirstName            string `json:"firstName" validate:"required,ua_name"`
	LastName             string `json:"lastName" validate:"required,ua_name"`
	MiddleName           string `json:"middleName" validate:"omitempty,ua_name"`
	Phone                string `json:"phone" validate:"required,ua_phone"`
	CounterpartyProperty string `json:"counterpartyProperty" validate:"omitempty,oneof=Sender Recipient ThirdPerson"`
}

type contactPersonRequest struct {
	CounterpartyRef string `json:"counterpartyRef" validate:"required"`
	FirstName       string `json:"firstName" validate:"required,ua_name"`
	LastName        string `json:"lastName" validate:"required,ua_name"`
	MiddleName      string `json:"middleName" validate:"omitempty,ua_name"`
	Phone           string `json:"phone" validate:"required,ua_phone"`
}

// apiKey resolves the caller and their Nova Poshta key.
func (h *CounterpartyHandler) apiKey(r *http.Request) (string, error) {
	userID, err := requireUser(r)
	if err != nil {
		return "", err
	}
	return h.Keys.Require(r.Context(), userID)
}

func (h *CounterpartyHandler) CreateCounterparty(w http.ResponseWriter, r *http.Request) {
	var req counterpartyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	key, err := h.apiKey(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	phone, _ := utils.NormalizePhone(req.Phone)
	res, err := h.Provisioning.CreateCounterparty(r.Context(), key, services.CounterpartyInput{
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		MiddleName: strings.TrimSpace(req.MiddleName),
		Phone:      phone,
		Property:   req.CounterpartyProperty,
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeData(w, res)
}

func (h *CounterpartyHandler) CreateContactPerson(w http.ResponseWriter, r *http.Request) {
	var req contactPersonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	key, err := h.apiKey(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	phone, _ := utils.NormalizePhone(req.Phone)
	contact, err := h.Provisioning.CreateContactPerson(r.Context(), key, services.ContactPersonInput{
		CounterpartyRef: req.CounterpartyRef,
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		MiddleName:      strings.TrimSpace(req.MiddleName),
		Phone:           phone,
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeData(w, contact)
}

func (h *CounterpartyHandler) ListCounterparties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	property := q.Get("counterpartyProperty")
	if !novaposhta.ValidCounterpartyProperty(property) {
		writeError(w, h.Logger, apperror.Validation("counterpartyProperty must be one of Sender, Recipient, ThirdPerson"))
		return
	}
	page, err := queryPage(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	key, err := h.apiKey(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	items, err := h.Provisioning.ListCounterparties(r.Context(), key, property, page, q.Get("findByString"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if items == nil {
		items = []novaposhta.Counterparty{}
	}
	writeData(w, items)
}

func (h *CounterpartyHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	ref, page, key, ok := h.refListing(w, r)
	if !ok {
		return
	}
	items, err := h.Provisioning.ListCounterpartyAddresses(r.Context(), key, ref, page)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if items == nil {
		items = []novaposhta.CounterpartyAddress{}
	}
	writeData(w, items)
}

func (h *CounterpartyHandler) ListContactPersons(w http.ResponseWriter, r *http.Request) {
	ref, page, key, ok := h.refListing(w, r)
	if !ok {
		return
	}
	items, err := h.Provisioning.ListContactPersons(r.Context(), key, ref, page)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if items == nil {
		items = []novaposhta.ContactPerson{}
	}
	writeData(w, items)
}

// refListing validates the ref and page query parameters before resolving the
// API key, so malformed requests never reach the remote API.
func (h *CounterpartyHandler) refListing(w http.ResponseWriter, r *http.Request) (string, int, string, bool) {
	ref := strings.TrimSpace(r.URL.Query().Get("ref"))
	if ref == "" {
		writeError(w, h.Logger, apperror.Validation("ref is required"))
		return "", 0, "", false
	}
	page, err := queryPage(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return "", 0, "", false
	}
	key, err := h.apiKey(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return "", 0, "", false
	}
	return ref, page, key, true
}
