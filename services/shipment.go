package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ttnmanager/apperror"
	"ttnmanager/metrics"
	"ttnmanager/models"
	"ttnmanager/novaposhta"
	"ttnmanager/repository"
	"ttnmanager/utils"
)

// Fixed document defaults. Parcel dimensions are not collected, so every
// shipment is one 0.1 m cube of 0.5 kg.
const (
	payerType        = "Recipient"
	paymentMethod    = "Cash"
	cargoType        = "Parcel"
	serviceType      = "WarehouseWarehouse"
	seatsAmount      = "1"
	volumeGeneral    = "0.0004"
	parcelWeight     = "0.5"
	parcelSide       = "0.1"
	documentDateForm = "02.01.2006"
)

// Document dates are Kyiv calendar days whatever the host zone is.
var documentZone = mustLoadLocation("Europe/Kyiv")

// Costs must fit the ttn.cost NUMERIC(12, 2) column.
var maxCost = decimal.New(1, 10)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type CreateTTNInput struct {
	ClientLocationID string
	SenderID         string
	Description      string
	Cost             *decimal.Decimal
	RecipientStreet  *StreetAddress
}

// Archiver keeps a copy of submitted documents.
type Archiver interface {
	Archive(ctx context.Context, key string, body []byte) (string, error)
}

// Shipments creates shipment documents and records them locally.
type Shipments struct {
	dir       Directory
	clients   repository.ClientRepository
	senders   repository.SenderRepository
	ttns      repository.TTNRepository
	keys      *APIKeys
	prov      *Provisioning
	addresses *AddressResolver
	archiver  Archiver
	now       func() time.Time
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewShipments accepts a nil archiver.
func NewShipments(dir Directory, store *repository.Store, prov *Provisioning, addresses *AddressResolver,
	archiver Archiver, logger *zap.Logger, m *metrics.Metrics) *Shipments {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shipments{
		dir:       dir,
		clients:   store.Clients,
		senders:   store.Senders,
		ttns:      store.TTN,
		keys:      NewAPIKeys(store.Settings),
		prov:      prov,
		addresses: addresses,
		archiver:  archiver,
		now:       time.Now,
		logger:    logger,
		metrics:   m,
	}
}

// CreateTTN runs the whole pipeline for one document. Steps are strictly
// sequential and none is retried.
func (s *Shipments) CreateTTN(ctx context.Context, userID string, in CreateTTNInput) (*models.TTN, error) {
	if userID == "" {
		return nil, apperror.AuthRequired()
	}
	if err := s.validate(in); err != nil {
		return nil, err
	}

	apiKey, err := s.keys.Require(ctx, userID)
	if err != nil {
		return nil, err
	}

	location, err := s.clients.GetClientLocation(ctx, in.ClientLocationID, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	if location == nil {
		return nil, apperror.NotFound("client location")
	}
	client, err := s.clients.GetClient(ctx, location.ClientID, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	if client == nil {
		return nil, apperror.NotFound("client")
	}

	sender, err := s.senders.GetSender(ctx, in.SenderID, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	if sender == nil {
		return nil, apperror.NotFound("sender")
	}
	if sender.SenderRef == "" {
		return nil, apperror.Validation("sender is not linked to a Nova Poshta sender counterparty, sync the sender first")
	}
	if !client.HasRemoteRefs() {
		return nil, apperror.Validation("client has no Nova Poshta counterparty or contact, re-create the client through the counterparty flow")
	}

	client, err = s.prov.RepairRecipientIfOrphaned(ctx, apiKey, client)
	if err != nil {
		return nil, err
	}

	owned, err := s.prov.VerifyOwnership(ctx, apiKey, sender.SenderRef, novaposhta.PropertySender, "")
	switch {
	case errors.Is(err, ErrOwnershipInconclusive):
		s.logger.Warn("sender ownership inconclusive, submitting with the stored ref",
			zap.String("sender_ref", sender.SenderRef))
	case err != nil:
		return nil, err
	case !owned:
		return nil, apperror.Validation("sender counterparty %s does not belong to the account of the configured API key", sender.SenderRef)
	}

	senderAddress, err := s.addresses.ResolveSender(ctx, apiKey, sender.SenderRef, Branch{
		CityRef: sender.CityRef,
		Ref:     sender.SenderAddressRef,
		Name:    sender.SenderAddressName,
	})
	if err != nil {
		return nil, err
	}
	recipientAddress, err := s.addresses.ResolveRecipient(ctx, apiKey, client.CounterpartyRef, Branch{
		CityRef: location.CityRef,
		Ref:     location.WarehouseRef,
		Name:    location.WarehouseName,
	}, in.RecipientStreet)
	if err != nil {
		return nil, err
	}

	props := BuildDocumentProps(DocumentParties{
		Sender:           sender,
		SenderAddress:    senderAddress,
		Client:           client,
		Location:         location,
		RecipientAddress: recipientAddress,
		Description:      strings.TrimSpace(in.Description),
		Cost:             *in.Cost,
		Date:             s.now(),
	})

	docs, err := s.dir.SaveInternetDocument(ctx, apiKey, props)
	if err != nil {
		s.metrics.ShipmentResult("rejected")
		return nil, remoteErr(err)
	}
	if len(docs) == 0 || docs[0].Ref == "" {
		s.metrics.ShipmentResult("empty")
		return nil, apperror.InternalInvariant("no document data returned")
	}
	doc := docs[0]

	locationID := location.ID
	ttn := &models.TTN{
		UserID:           userID,
		ClientID:         client.ID,
		ClientLocationID: &locationID,
		SenderID:         sender.ID,
		Description:      props.Description,
		Cost:             *in.Cost,
		Status:           models.TTNStatusNew,
		NovaPoshtaRef:    doc.Ref,
		NovaPoshtaNumber: doc.IntDocNumber,
	}
	if err := s.ttns.InsertTTN(ctx, ttn); err != nil {
		s.logger.Error("document created remotely but not stored",
			zap.String("ref", doc.Ref),
			zap.String("number", doc.IntDocNumber),
			zap.Error(err))
		s.metrics.ShipmentResult("store_failed")
		return nil, storeErr(err)
	}

	s.metrics.ShipmentResult("created")
	s.logger.Info("shipment document created",
		zap.String("ttn_id", ttn.ID),
		zap.String("number", doc.IntDocNumber))

	s.archive(ctx, ttn, props, doc)
	return ttn, nil
}

func (s *Shipments) validate(in CreateTTNInput) error {
	var missing []string
	if strings.TrimSpace(in.ClientLocationID) == "" {
		missing = append(missing, "clientLocationId")
	}
	if strings.TrimSpace(in.SenderID) == "" {
		missing = append(missing, "senderId")
	}
	if strings.TrimSpace(in.Description) == "" {
		missing = append(missing, "description")
	}
	if in.Cost == nil {
		missing = append(missing, "cost")
	}
	if len(missing) > 0 {
		return apperror.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	if !in.Cost.IsPositive() {
		return apperror.Validation("cost must be a positive number")
	}
	if !in.Cost.Equal(in.Cost.Round(2)) {
		return apperror.Validation("cost must have at most 2 decimal places")
	}
	if in.Cost.GreaterThanOrEqual(maxCost) {
		return apperror.Validation("cost must be less than %s", maxCost.String())
	}
	if s.addresses.RequiresStreet() && !in.RecipientStreet.complete() {
		return apperror.Validation("recipient street address (streetRef, buildingNumber) is required")
	}
	return nil
}

func (s *Shipments) ListTTN(ctx context.Context, userID string) ([]*models.TTN, error) {
	items, err := s.ttns.ListTTN(ctx, userID)
	return items, storeErr(err)
}

// archive is best-effort; the document already exists and is stored.
func (s *Shipments) archive(ctx context.Context, ttn *models.TTN, props novaposhta.DocumentProps, doc novaposhta.SavedDocument) {
	if s.archiver == nil {
		return
	}
	body, err := json.Marshal(map[string]any{
		"ttn":      ttn,
		"request":  props,
		"response": doc,
	})
	if err != nil {
		s.logger.Warn("ttn archive encode failed", zap.Error(err))
		return
	}
	key := fmt.Sprintf("ttn/%s/%s.json", ttn.UserID, ttn.NovaPoshtaNumber)
	if _, err := s.archiver.Archive(ctx, key, body); err != nil {
		s.logger.Warn("ttn archive upload failed", zap.String("key", key), zap.Error(err))
	}
}

// DocumentParties is everything BuildDocumentProps needs.
type DocumentParties struct {
	Sender           *models.Sender
	SenderAddress    string
	Client           *models.Client
	Location         *models.ClientLocation
	RecipientAddress string
	Description      string
	Cost             decimal.Decimal
	Date             time.Time
}

// BuildDocumentProps assembles InternetDocument.save properties. Recipient is
// always the counterparty Ref, never the contact Ref.
func BuildDocumentProps(p DocumentParties) novaposhta.DocumentProps {
	return novaposhta.DocumentProps{
		PayerType:     payerType,
		PaymentMethod: paymentMethod,
		DateTime:      p.Date.In(documentZone).Format(documentDateForm),
		CargoType:     cargoType,
		VolumeGeneral: volumeGeneral,
		Weight:        parcelWeight,
		ServiceType:   serviceType,
		SeatsAmount:   seatsAmount,
		Description:   p.Description,
		Cost:          p.Cost.String(),

		CitySender:    p.Sender.CityRef,
		Sender:        p.Sender.SenderRef,
		SenderAddress: p.SenderAddress,
		ContactSender: p.Sender.ContactSenderRef,
		SendersPhone:  utils.DigitsOnly(p.Sender.Phone),

		CityRecipient:    p.Location.CityRef,
		Recipient:        p.Client.CounterpartyRef,
		RecipientAddress: p.RecipientAddress,
		ContactRecipient: p.Client.ContactRef,
		RecipientsPhone:  utils.DigitsOnly(p.Client.Phone),

		OptionsSeat: []novaposhta.Seat{{
			VolumetricVolume: volumeGeneral,
			VolumetricWidth:  parcelSide,
			VolumetricLength: parcelSide,
			VolumetricHeight: parcelSide,
			Weight:           parcelWeight,
		}},
	}
}
