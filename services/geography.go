package services

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"ttnmanager/apperror"
	"ttnmanager/novaposhta"
	"ttnmanager/utils"
)

const (
	minCityQueryLen     = 2
	settlementLimit     = 50
	warehouseLimit      = 100
	warehouseLanguage   = "UA"
	geoCacheNamespace   = "geo"
	legacyCityLookupMax = 50
)

// GeoCache stores search results. Implementations may be remote; failures are
// ignored by Geography.
type GeoCache interface {
	GetJSON(ctx context.Context, namespace, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, namespace, key string, value any, ttl time.Duration) error
}

type City struct {
	Ref                string `json:"Ref"`
	Description        string `json:"Description"`
	MainDescription    string `json:"MainDescription,omitempty"`
	Area               string `json:"Area,omitempty"`
	Region             string `json:"Region,omitempty"`
	SettlementTypeCode string `json:"SettlementTypeCode,omitempty"`
}

type Warehouse struct {
	Ref           string `json:"Ref"`
	Description   string `json:"Description"`
	DescriptionRu string `json:"DescriptionRu,omitempty"`
	ShortAddress  string `json:"ShortAddress,omitempty"`
	Number        string `json:"Number"`
	CityRef       string `json:"CityRef"`
}

// Geography turns free-text city and branch queries into directory Refs.
type Geography struct {
	dir    Directory
	cache  GeoCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewGeography accepts a nil cache.
func NewGeography(dir Directory, cache GeoCache, ttl time.Duration, logger *zap.Logger) *Geography {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Geography{dir: dir, cache: cache, ttl: ttl, logger: logger}
}

// SearchCities returns settlements matching q, flattened and de-duplicated
// by Ref. Queries shorter than two characters never reach the API.
func (g *Geography) SearchCities(ctx context.Context, q string) ([]City, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < minCityQueryLen {
		return []City{}, nil
	}

	cacheKey := "cities:" + strings.ToLower(q)
	var cached []City
	if g.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	groups, err := g.dir.SearchSettlements(ctx, q, settlementLimit)
	if err != nil {
		return nil, remoteErr(err)
	}
	cities := flattenSettlements(groups)

	if len(cities) == 0 {
		cities = g.legacyCities(ctx, q)
	}

	g.cacheSet(ctx, cacheKey, cities)
	return cities, nil
}

func flattenSettlements(groups []novaposhta.SettlementGroup) []City {
	seen := make(map[string]struct{})
	out := []City{}
	for _, group := range groups {
		for _, a := range group.Addresses {
			ref := a.DeliveryCity
			if ref == "" {
				ref = a.Ref
			}
			if ref == "" {
				continue
			}
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			out = append(out, City{
				Ref:                ref,
				Description:        a.Present,
				MainDescription:    a.MainDescription,
				Area:               a.Area,
				Region:             a.Region,
				SettlementTypeCode: a.SettlementTypeCode,
			})
		}
	}
	return out
}

// legacyCities queries Address.getCities when settlement search finds
// nothing. Failures leave the result empty.
func (g *Geography) legacyCities(ctx context.Context, q string) []City {
	items, err := g.dir.GetCities(ctx, q, legacyCityLookupMax)
	if err != nil {
		g.logger.Warn("legacy city lookup failed", zap.String("query", q), zap.Error(err))
		return []City{}
	}
	seen := make(map[string]struct{})
	out := []City{}
	for _, c := range items {
		if c.Ref == "" {
			continue
		}
		if _, dup := seen[c.Ref]; dup {
			continue
		}
		seen[c.Ref] = struct{}{}
		out = append(out, City{Ref: c.Ref, Description: c.Description, Area: c.Area})
	}
	return out
}

// SearchWarehouses lists branches of a city. A numeric q selects branches
// whose number or description contains it; the filter runs locally because
// the API does not match numbers reliably.
func (g *Geography) SearchWarehouses(ctx context.Context, cityRef, q string) ([]Warehouse, error) {
	cityRef = strings.TrimSpace(cityRef)
	if cityRef == "" {
		return nil, apperror.Validation("cityRef is required")
	}
	q = strings.TrimSpace(q)
	numeric := utils.IsNumeric(q)

	cacheKey := "warehouses:" + cityRef + ":" + strings.ToLower(q)
	var cached []Warehouse
	if g.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	props := novaposhta.GetWarehousesProps{CityRef: cityRef, Language: warehouseLanguage}
	if !numeric {
		props.FindByString = q
		props.Limit = strconv.Itoa(warehouseLimit)
	}

	items, err := g.dir.GetWarehouses(ctx, props)
	if err != nil {
		return nil, remoteErr(err)
	}

	seen := make(map[string]struct{})
	out := []Warehouse{}
	for _, w := range items {
		if w.Ref == "" {
			continue
		}
		if numeric && !matchesBranchNumber(w, q) {
			continue
		}
		if _, dup := seen[w.Ref]; dup {
			continue
		}
		seen[w.Ref] = struct{}{}
		out = append(out, Warehouse{
			Ref:           w.Ref,
			Description:   w.Description,
			DescriptionRu: w.DescriptionRu,
			ShortAddress:  w.ShortAddress,
			Number:        w.Number,
			CityRef:       w.CityRef,
		})
	}

	g.cacheSet(ctx, cacheKey, out)
	return out, nil
}

func matchesBranchNumber(w novaposhta.Warehouse, q string) bool {
	return strings.Contains(w.Number, q) ||
		strings.Contains(w.Description, q) ||
		strings.Contains(w.DescriptionRu, q)
}

// PopularCities resolves each name to its canonical city. Names that fail or
// match nothing are left out.
func (g *Geography) PopularCities(ctx context.Context, names []string) []City {
	out := make([]City, 0, len(names))
	for _, name := range names {
		cities, err := g.SearchCities(ctx, name)
		if err != nil {
			g.logger.Debug("popular city lookup failed", zap.String("name", name), zap.Error(err))
			continue
		}
		if c, ok := pickCanonicalCity(name, cities); ok {
			out = append(out, c)
		}
	}
	return out
}

func pickCanonicalCity(name string, cities []City) (City, bool) {
	if len(cities) == 0 {
		return City{}, false
	}
	for _, c := range cities {
		if c.Description == name {
			return c, true
		}
	}
	for _, c := range cities {
		if strings.HasPrefix(c.Description, name+",") {
			return c, true
		}
	}
	return cities[0], true
}

func (g *Geography) cacheGet(ctx context.Context, key string, dst any) bool {
	if g.cache == nil {
		return false
	}
	hit, err := g.cache.GetJSON(ctx, geoCacheNamespace, key, dst)
	if err != nil {
		g.logger.Debug("geo cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (g *Geography) cacheSet(ctx context.Context, key string, value any) {
	if g.cache == nil || g.ttl <= 0 {
		return
	}
	if err := g.cache.SetJSON(ctx, geoCacheNamespace, key, value, g.ttl); err != nil {
		g.logger.Debug("geo cache write failed", zap.String("key", key), zap.Error(err))
	}
}
