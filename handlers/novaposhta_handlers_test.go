package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttnmanager/models"
	"ttnmanager/services"
)

func TestGeoCities(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"Address.searchSettlements": `{"success":true,"data":[{"Addresses":[
			{"Present":"м. Київ","Ref":"s-1","DeliveryCity":"kyiv"},
			{"Present":"м. Київ","Ref":"s-2","DeliveryCity":"kyiv"}
		]}]}`,
	})

	rec := serve(env.geo.Cities, request(http.MethodGet, "/geo/cities?search=%D0%9A", "", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, rec.Body.String())
	assert.Zero(t, env.np.total())

	rec = serve(env.geo.Cities, request(http.MethodGet, "/geo/cities?search=%D0%9A%D0%B8%D1%97%D0%B2", "", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var cities []services.City
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &cities))
	require.Len(t, cities, 1)
	assert.Equal(t, "kyiv", cities[0].Ref)
}

func TestGeoCities_RemoteFailures(t *testing.T) {
	rejected := newTestEnv(t, map[string]string{
		"Address.searchSettlements": `{"success":false,"data":[],"errors":["Too many requests"]}`,
	})
	rec := serve(rejected.geo.Cities, request(http.MethodGet, "/geo/cities?search=Lviv", "", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Too many requests", decode(t, rec).Error)

	broken := newTestEnv(t, map[string]string{"Address.searchSettlements": "status:502"})
	rec = serve(broken.geo.Cities, request(http.MethodGet, "/geo/cities?search=Lviv", "", "", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to reach Nova Poshta API", decode(t, rec).Error)
}

func TestGeoWarehouses(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"Address.getWarehouses": `{"success":true,"data":[
			{"Ref":"w-1","Number":"1","Description":"Відділення №1"},
			{"Ref":"w-12","Number":"12","Description":"Відділення №12"}
		]}`,
	})

	rec := serve(env.geo.Warehouses, request(http.MethodGet, "/geo/warehouses?search=1", "", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cityRef is required", decode(t, rec).Error)

	rec = serve(env.geo.Warehouses, request(http.MethodGet, "/geo/warehouses?cityRef=city&search=12", "", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var items []services.Warehouse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "w-12", items[0].Ref)
}

func TestCreateCounterparty(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"Counterparty.save": `{"success":true,"data":[{"Ref":"cp-1","Description":"Петренко Іван",
			"ContactPerson":{"success":true,"data":[{"Ref":"contact-1"}]}}]}`,
	})
	body := `{"firstName":"Іван","lastName":"Петренко","phone":"0501234567"}`

	rec := serve(env.counter.CreateCounterparty, request(http.MethodPost, "/counterparty", body, "user-1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, decode(t, rec).Error, "API key is not configured")
	assert.Zero(t, env.np.total())

	env.store.keys["user-1"] = "key"
	rec = serve(env.counter.CreateCounterparty, request(http.MethodPost, "/counterparty", body, "user-1", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res services.CounterpartyResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	assert.Equal(t, "cp-1", res.Ref)
	assert.Equal(t, "contact-1", res.ContactRef)

	rec = serve(env.counter.CreateCounterparty, request(http.MethodPost, "/counterparty",
		`{"firstName":"John","lastName":"Smith","phone":"0501234567"}`, "user-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, env.np.count("Counterparty.save"))
}

func TestListCounterparties_Validation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.keys["user-1"] = "key"

	for _, target := range []string{
		"/counterparties",
		"/counterparties?counterpartyProperty=Owner",
		"/counterparties?counterpartyProperty=Sender&page=zero",
	} {
		rec := serve(env.counter.ListCounterparties, request(http.MethodGet, target, "", "user-1", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	rec := serve(env.counter.ListAddresses, request(http.MethodGet, "/counterparty-addresses", "", "user-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.np.total())

	rec = serve(env.counter.ListCounterparties, request(http.MethodGet, "/counterparties?counterpartyProperty=Recipient&page=2", "", "user-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, rec.Body.String())
}

func TestSettingsAPIKey(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := serve(env.settings.GetAPIKey, request(http.MethodGet, "/settings/api-key", "", "user-1", nil))
	assert.JSONEq(t, `{"success":true,"data":{"configured":false}}`, rec.Body.String())

	rec = serve(env.settings.SaveAPIKey, request(http.MethodPut, "/settings/api-key", `{"apiKey":"  "}`, "user-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(env.settings.SaveAPIKey, request(http.MethodPut, "/settings/api-key", `{"apiKey":"secret-key"}`, "user-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-key")
	assert.Equal(t, "secret-key", env.store.keys["user-1"])

	rec = serve(env.settings.GetAPIKey, request(http.MethodGet, "/settings/api-key", "", "user-1", nil))
	assert.JSONEq(t, `{"success":true,"data":{"configured":true}}`, rec.Body.String())
}

func TestSenderSync(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"CounterpartyGeneral.getCounterparties": `{"success":true,"data":[{"Ref":"np-sender","Description":"ФОП Альфа"}]}`,
		"CounterpartyGeneral.getCounterpartyContactPersons": `{"success":true,"data":[
			{"Ref":"contact-s","Description":"Альфа Олена","Phones":"380671112233"}
		]}`,
	})
	env.store.keys["user-1"] = "key"
	body := `{"cityRef":"city-lviv","cityName":"Львів","warehouseRef":"wh-5","warehouseName":"Відділення №5"}`

	rec := serve(env.senders.Sync, request(http.MethodPost, "/senders/sync", `{"cityRef":"city-lviv"}`, "user-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(env.senders.Sync, request(http.MethodPost, "/senders/sync", body, "user-1", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sender models.Sender
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &sender))
	assert.Equal(t, "np-sender", sender.SenderRef)
	assert.Equal(t, "contact-s", sender.ContactSenderRef)
	assert.Equal(t, "wh-5", sender.SenderAddressRef)

	rec = serve(env.senders.ListSenders, request(http.MethodGet, "/senders", "", "user-1", nil))
	var senders []models.Sender
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &senders))
	assert.Len(t, senders, 1)
}
