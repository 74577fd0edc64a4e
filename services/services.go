// Package services holds the workflows that reconcile the local store with the
// Nova Poshta directory: geography lookup, counterparty provisioning and
// shipment document creation.
package services

import (
	"context"
	"errors"

	"ttnmanager/apperror"
	"ttnmanager/novaposhta"
	"ttnmanager/repository"
)

// Directory is the subset of the Nova Poshta API the services depend on.
type Directory interface {
	SearchSettlements(ctx context.Context, cityName string, limit int) ([]novaposhta.SettlementGroup, error)
	GetWarehouses(ctx context.Context, props novaposhta.GetWarehousesProps) ([]novaposhta.Warehouse, error)
	GetCities(ctx context.Context, find string, limit int) ([]novaposhta.City, error)

	SaveCounterparty(ctx context.Context, apiKey string, props novaposhta.SaveCounterpartyProps) ([]novaposhta.SavedCounterparty, error)
	GetCounterparties(ctx context.Context, apiKey string, props novaposhta.GetCounterpartiesProps) ([]novaposhta.Counterparty, error)
	GetCounterpartyAddresses(ctx context.Context, apiKey string, props novaposhta.RefPageProps) ([]novaposhta.CounterpartyAddress, error)
	GetCounterpartyContactPersons(ctx context.Context, apiKey string, props novaposhta.RefPageProps) ([]novaposhta.ContactPerson, error)
	SaveContactPerson(ctx context.Context, apiKey string, props novaposhta.SaveContactPersonProps) ([]novaposhta.ContactPerson, error)
	SaveAddress(ctx context.Context, apiKey string, props novaposhta.SaveAddressProps) ([]novaposhta.SavedAddress, error)
	SaveInternetDocument(ctx context.Context, apiKey string, props novaposhta.DocumentProps) ([]novaposhta.SavedDocument, error)
}

// remoteErr converts a directory failure into the application taxonomy,
// keeping the API's own wording for rejections.
func remoteErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	var rejected *novaposhta.RemoteError
	if errors.As(err, &rejected) {
		return apperror.RemoteRejected(rejected.Message()).Wrap(err)
	}
	var transport *novaposhta.TransportError
	if errors.As(err, &transport) {
		return apperror.RemoteTransport(err)
	}
	return apperror.Internal(err)
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	var se *repository.StorageError
	if errors.As(err, &se) {
		return apperror.Storage(err)
	}
	return apperror.Internal(err)
}
