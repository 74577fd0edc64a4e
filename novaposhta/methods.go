package novaposhta

import (
	"context"
	"strconv"
)

// SearchSettlements is public; no API key is sent.
func (c *Client) SearchSettlements(ctx context.Context, cityName string, limit int) ([]SettlementGroup, error) {
	props := SearchSettlementsProps{CityName: cityName}
	if limit > 0 {
		props.Limit = strconv.Itoa(limit)
	}
	env, err := c.Call(ctx, "", ModelAddress, MethodSearchSettlements, props)
	if err != nil {
		return nil, err
	}
	return decodeData[SettlementGroup](env, ModelAddress, MethodSearchSettlements)
}

// GetWarehouses is public; no API key is sent.
func (c *Client) GetWarehouses(ctx context.Context, props GetWarehousesProps) ([]Warehouse, error) {
	env, err := c.Call(ctx, "", ModelAddress, MethodGetWarehouses, props)
	if err != nil {
		return nil, err
	}
	return decodeData[Warehouse](env, ModelAddress, MethodGetWarehouses)
}

// GetCities queries the legacy city directory.
func (c *Client) GetCities(ctx context.Context, find string, limit int) ([]City, error) {
	props := GetCitiesProps{FindByString: find}
	if limit > 0 {
		props.Limit = strconv.Itoa(limit)
	}
	env, err := c.Call(ctx, "", ModelAddress, MethodGetCities, props)
	if err != nil {
		return nil, err
	}
	return decodeData[City](env, ModelAddress, MethodGetCities)
}

func (c *Client) SaveCounterparty(ctx context.Context, apiKey string, props SaveCounterpartyProps) ([]SavedCounterparty, error) {
	env, err := c.Call(ctx, apiKey, ModelCounterparty, MethodSave, props)
	if err != nil {
		return nil, err
	}
	return decodeData[SavedCounterparty](env, ModelCounterparty, MethodSave)
}

func (c *Client) GetCounterparties(ctx context.Context, apiKey string, props GetCounterpartiesProps) ([]Counterparty, error) {
	env, err := c.Call(ctx, apiKey, ModelCounterpartyGeneral, MethodGetCounterparties, props)
	if err != nil {
		return nil, err
	}
	return decodeData[Counterparty](env, ModelCounterpartyGeneral, MethodGetCounterparties)
}

func (c *Client) GetCounterpartyAddresses(ctx context.Context, apiKey string, props RefPageProps) ([]CounterpartyAddress, error) {
	env, err := c.Call(ctx, apiKey, ModelCounterparty, MethodGetCounterpartyAddresses, props)
	if err != nil {
		return nil, err
	}
	return decodeData[CounterpartyAddress](env, ModelCounterparty, MethodGetCounterpartyAddresses)
}

func (c *Client) GetCounterpartyContactPersons(ctx context.Context, apiKey string, props RefPageProps) ([]ContactPerson, error) {
	env, err := c.Call(ctx, apiKey, ModelCounterpartyGeneral, MethodGetCounterpartyContactPersons, props)
	if err != nil {
		return nil, err
	}
	return decodeData[ContactPerson](env, ModelCounterpartyGeneral, MethodGetCounterpartyContactPersons)
}

func (c *Client) SaveContactPerson(ctx context.Context, apiKey string, props SaveContactPersonProps) ([]ContactPerson, error) {
	env, err := c.Call(ctx, apiKey, ModelContactPersonGeneral, MethodSave, props)
	if err != nil {
		return nil, err
	}
	return decodeData[ContactPerson](env, ModelContactPersonGeneral, MethodSave)
}

func (c *Client) SaveAddress(ctx context.Context, apiKey string, props SaveAddressProps) ([]SavedAddress, error) {
	env, err := c.Call(ctx, apiKey, ModelAddress, MethodSave, props)
	if err != nil {
		return nil, err
	}
	return decodeData[SavedAddress](env, ModelAddress, MethodSave)
}

func (c *Client) SaveInternetDocument(ctx context.Context, apiKey string, props DocumentProps) ([]SavedDocument, error) {
	env, err := c.Call(ctx, apiKey, ModelInternetDocument, MethodSave, props)
	if err != nil {
		return nil, err
	}
	return decodeData[SavedDocument](env, ModelInternetDocument, MethodSave)
}
