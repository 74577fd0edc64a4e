package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"ttnmanager/services"
)

// GeoHandler serves public city and branch search.
type GeoHandler struct {
	Geo           *services.Geography
	PopularCities []string
	Logger        *zap.Logger
}

func (h *GeoHandler) Cities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.Geo.SearchCities(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeData(w, cities)
}

func (h *GeoHandler) Warehouses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	warehouses, err := h.Geo.SearchWarehouses(r.Context(), q.Get("cityRef"), q.Get("search"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeData(w, warehouses)
}

// Popular resolves the configured shortlist of cities. It never fails.
func (h *GeoHandler) Popular(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.Geo.PopularCities(r.Context(), h.PopularCities))
}
