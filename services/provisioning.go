package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"ttnmanager/apperror"
	"ttnmanager/metrics"
	"ttnmanager/models"
	"ttnmanager/novaposhta"
	"ttnmanager/repository"
	"ttnmanager/utils"
)

const counterpartyTypePrivatePerson = "PrivatePerson"

// ErrOwnershipInconclusive means every scanned page was full and the Ref was
// not among them, so the account may still own it.
var ErrOwnershipInconclusive = errors.New("counterparty not found within the scanned pages")

// CounterpartyInput describes a private person to create remotely.
// Names and phone are expected to be validated and normalized by the caller.
type CounterpartyInput struct {
	FirstName  string
	LastName   string
	MiddleName string
	Phone      string
	Property   string
}

// CounterpartyResult is a created counterparty with its contact person Ref.
type CounterpartyResult struct {
	Ref              string `json:"Ref"`
	ContactRef       string `json:"ContactRef"`
	Description      string `json:"Description,omitempty"`
	FirstName        string `json:"FirstName,omitempty"`
	LastName         string `json:"LastName,omitempty"`
	MiddleName       string `json:"MiddleName,omitempty"`
	CounterpartyType string `json:"CounterpartyType,omitempty"`
}

type ContactPersonInput struct {
	CounterpartyRef string
	FirstName       string
	LastName        string
	MiddleName      string
	Phone           string
}

// SenderSelection is a sender counterparty with its contact persons. When the
// API lists none, Contacts holds one entry built from the sender itself and
// Synthesized is set.
type SenderSelection struct {
	Sender      novaposhta.Counterparty    `json:"sender"`
	Contacts    []novaposhta.ContactPerson `json:"contacts"`
	Synthesized bool                       `json:"synthesized"`
}

// SenderLocationInput links a sender counterparty to a city and branch.
type SenderLocationInput struct {
	SenderRef     string `json:"senderRef"`
	ContactRef    string `json:"contactRef"`
	Phone         string `json:"phone"`
	CityRef       string `json:"cityRef" validate:"required"`
	CityName      string `json:"cityName" validate:"required"`
	WarehouseRef  string `json:"warehouseRef" validate:"required"`
	WarehouseName string `json:"warehouseName" validate:"required"`
}

type ProvisioningOptions struct {
	// Pages of getCounterparties scanned by VerifyOwnership.
	OwnershipMaxPages int
	// Upper bound for one verify-and-repair run. Keep it below the repair
	// lock TTL.
	RepairTimeout time.Duration
}

// Provisioning keeps remote counterparties and the local rows that cache
// their Refs consistent.
type Provisioning struct {
	dir      Directory
	clients  repository.ClientRepository
	senders  repository.SenderRepository
	locker        Locker
	maxPages      int
	repairTimeout time.Duration
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

func NewProvisioning(dir Directory, clients repository.ClientRepository, senders repository.SenderRepository,
	locker Locker, opts ProvisioningOptions, logger *zap.Logger, m *metrics.Metrics) *Provisioning {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	if opts.OwnershipMaxPages <= 0 {
		opts.OwnershipMaxPages = 5
	}
	if opts.RepairTimeout <= 0 {
		opts.RepairTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioning{
		dir:           dir,
		clients:       clients,
		senders:       senders,
		locker:        locker,
		maxPages:      opts.OwnershipMaxPages,
		repairTimeout: opts.RepairTimeout,
		logger:        logger,
		metrics:       m,
	}
}

// EnsureRecipientCounterparty creates a PrivatePerson recipient. Calls are not
// de-duplicated: each one creates a new counterparty.
func (p *Provisioning) EnsureRecipientCounterparty(ctx context.Context, apiKey, firstName, lastName, phone string) (*CounterpartyResult, error) {
	return p.CreateCounterparty(ctx, apiKey, CounterpartyInput{
		FirstName: firstName,
		LastName:  lastName,
		Phone:     phone,
		Property:  novaposhta.PropertyRecipient,
	})
}

func (p *Provisioning) CreateCounterparty(ctx context.Context, apiKey string, in CounterpartyInput) (*CounterpartyResult, error) {
	if apiKey == "" {
		return nil, apperror.APIKeyNotConfigured()
	}
	if in.Property == "" {
		in.Property = novaposhta.PropertyRecipient
	}
	if !novaposhta.ValidCounterpartyProperty(in.Property) {
		return nil, apperror.Validation("invalid counterpartyProperty %q", in.Property)
	}

	saved, err := p.dir.SaveCounterparty(ctx, apiKey, novaposhta.SaveCounterpartyProps{
		FirstName:            in.FirstName,
		MiddleName:           in.MiddleName,
		LastName:             in.LastName,
		Phone:                in.Phone,
		CounterpartyType:     counterpartyTypePrivatePerson,
		CounterpartyProperty: in.Property,
	})
	if err != nil {
		return nil, remoteErr(err)
	}
	if len(saved) == 0 || saved[0].Ref == "" {
		return nil, apperror.InternalInvariant("no counterparty data returned")
	}

	cp := saved[0]
	p.logger.Info("counterparty created",
		zap.String("ref", cp.Ref),
		zap.String("property", in.Property))
	return &CounterpartyResult{
		Ref:              cp.Ref,
		ContactRef:       cp.ContactRef(),
		Description:      cp.Description,
		FirstName:        cp.FirstName,
		LastName:         cp.LastName,
		MiddleName:       cp.MiddleName,
		CounterpartyType: cp.CounterpartyType,
	}, nil
}

func (p *Provisioning) CreateContactPerson(ctx context.Context, apiKey string, in ContactPersonInput) (*novaposhta.ContactPerson, error) {
	if apiKey == "" {
		return nil, apperror.APIKeyNotConfigured()
	}
	saved, err := p.dir.SaveContactPerson(ctx, apiKey, novaposhta.SaveContactPersonProps{
		CounterpartyRef: in.CounterpartyRef,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		MiddleName:      in.MiddleName,
		Phone:           in.Phone,
	})
	if err != nil {
		return nil, remoteErr(err)
	}
	if len(saved) == 0 {
		return nil, apperror.InternalInvariant("no contact person data returned")
	}
	return &saved[0], nil
}

func (p *Provisioning) ListCounterparties(ctx context.Context, apiKey, property string, page int, find string) ([]novaposhta.Counterparty, error) {
	if !novaposhta.ValidCounterpartyProperty(property) {
		return nil, apperror.Validation("counterpartyProperty must be one of Sender, Recipient, ThirdPerson")
	}
	if apiKey == "" {
		return nil, apperror.APIKeyNotConfigured()
	}
	items, err := p.dir.GetCounterparties(ctx, apiKey, novaposhta.GetCounterpartiesProps{
		CounterpartyProperty: property,
		Page:                 pageString(page),
		FindByString:         find,
	})
	return items, remoteErr(err)
}

func (p *Provisioning) ListCounterpartyAddresses(ctx context.Context, apiKey, ref string, page int) ([]novaposhta.CounterpartyAddress, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, apperror.Validation("ref is required")
	}
	if apiKey == "" {
		return nil, apperror.APIKeyNotConfigured()
	}
	items, err := p.dir.GetCounterpartyAddresses(ctx, apiKey, novaposhta.RefPageProps{Ref: ref, Page: pageString(page)})
	return items, remoteErr(err)
}

func (p *Provisioning) ListContactPersons(ctx context.Context, apiKey, ref string, page int) ([]novaposhta.ContactPerson, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, apperror.Validation("ref is required")
	}
	if apiKey == "" {
		return nil, apperror.APIKeyNotConfigured()
	}
	items, err := p.dir.GetCounterpartyContactPersons(ctx, apiKey, novaposhta.RefPageProps{Ref: ref, Page: pageString(page)})
	return items, remoteErr(err)
}

// SenderCandidates lists the account's Sender counterparties.
func (p *Provisioning) SenderCandidates(ctx context.Context, apiKey string) ([]novaposhta.Counterparty, error) {
	return p.ListCounterparties(ctx, apiKey, novaposhta.PropertySender, 1, "")
}

// SelectSender picks the sender counterparty by Ref. An empty Ref selects the
// only candidate; with several candidates the caller has to choose.
func (p *Provisioning) SelectSender(ctx context.Context, apiKey, senderRef string) (*SenderSelection, error) {
	candidates, err := p.SenderCandidates(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	var chosen *novaposhta.Counterparty
	switch {
	case senderRef != "":
		for i := range candidates {
			if candidates[i].Ref == senderRef {
				chosen = &candidates[i]
				break
			}
		}
		if chosen == nil {
			return nil, apperror.NotFound("sender counterparty")
		}
	case len(candidates) == 1:
		chosen = &candidates[0]
	case len(candidates) == 0:
		return nil, apperror.Validation("no sender counterparties found for this API key")
	default:
		return nil, apperror.Validation("several sender counterparties found, choose one by senderRef")
	}

	contacts, err := p.dir.GetCounterpartyContactPersons(ctx, apiKey, novaposhta.RefPageProps{
		Ref:                  chosen.Ref,
		Page:                 "1",
		CounterpartyProperty: novaposhta.PropertySender,
	})
	if err != nil {
		return nil, remoteErr(err)
	}

	sel := &SenderSelection{Sender: *chosen, Contacts: contacts}
	if len(contacts) == 0 {
		sel.Contacts = []novaposhta.ContactPerson{{
			Ref:         chosen.Ref,
			Description: chosen.Description,
			FirstName:   chosen.FirstName,
			LastName:    chosen.LastName,
			MiddleName:  chosen.MiddleName,
			Phones:      chosen.Phone,
		}}
		sel.Synthesized = true
	}
	return sel, nil
}

// SyncSender stores the selected sender at the given city and branch.
func (p *Provisioning) SyncSender(ctx context.Context, userID, apiKey string, in SenderLocationInput) (*models.Sender, error) {
	sel, err := p.SelectSender(ctx, apiKey, in.SenderRef)
	if err != nil {
		return nil, err
	}

	contact := sel.Contacts[0]
	if in.ContactRef != "" {
		found := false
		for _, c := range sel.Contacts {
			if c.Ref == in.ContactRef {
				contact, found = c, true
				break
			}
		}
		if !found {
			return nil, apperror.Validation("contact person %s does not belong to the sender", in.ContactRef)
		}
	}

	phone := in.Phone
	if phone == "" {
		phone = contact.Phones
	}
	normalized, ok := utils.NormalizePhone(phone)
	if !ok {
		return nil, apperror.Validation("a valid sender phone is required")
	}

	name := strings.TrimSpace(contact.Description)
	if name == "" {
		name = sel.Sender.Description
	}

	s := &models.Sender{
		UserID:            userID,
		Name:              name,
		Phone:             normalized,
		CityName:          in.CityName,
		CityRef:           in.CityRef,
		SenderRef:         sel.Sender.Ref,
		SenderAddressRef:  in.WarehouseRef,
		SenderAddressName: in.WarehouseName,
		ContactSenderRef:  contact.Ref,
	}
	if err := p.senders.UpsertSender(ctx, s); err != nil {
		return nil, storeErr(err)
	}
	return s, nil
}

// VerifyOwnership reports whether ref is listed among the account's
// counterparties of the given property. A non-empty find first narrows the
// listing with FindByString. Otherwise pages are scanned until one comes back
// empty; when the page cap is hit first the answer is ErrOwnershipInconclusive.
func (p *Provisioning) VerifyOwnership(ctx context.Context, apiKey, ref, property, find string) (bool, error) {
	if ref == "" {
		return false, nil
	}
	if find = strings.TrimSpace(find); find != "" {
		found, _, err := p.scanCounterparties(ctx, apiKey, ref, novaposhta.GetCounterpartiesProps{
			CounterpartyProperty: property,
			Page:                 "1",
			FindByString:         find,
		})
		if err != nil || found {
			return found, err
		}
	}
	for page := 1; page <= p.maxPages; page++ {
		found, empty, err := p.scanCounterparties(ctx, apiKey, ref, novaposhta.GetCounterpartiesProps{
			CounterpartyProperty: property,
			Page:                 strconv.Itoa(page),
		})
		if err != nil || found {
			return found, err
		}
		if empty {
			return false, nil
		}
	}
	return false, ErrOwnershipInconclusive
}

func (p *Provisioning) scanCounterparties(ctx context.Context, apiKey, ref string, props novaposhta.GetCounterpartiesProps) (found, empty bool, err error) {
	items, err := p.dir.GetCounterparties(ctx, apiKey, props)
	if err != nil {
		return false, false, remoteErr(err)
	}
	for _, item := range items {
		if item.Ref == ref {
			return true, false, nil
		}
	}
	return false, len(items) == 0, nil
}

// RepairRecipientIfOrphaned re-creates the client's counterparty when its
// cached Ref no longer belongs to the current account. At most one repair
// per client runs at a time; the row is re-read under the lock so a repair
// finished by another request is reused. An inconclusive ownership check
// keeps the stored Refs.
func (p *Provisioning) RepairRecipientIfOrphaned(ctx context.Context, apiKey string, client *models.Client) (*models.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, p.repairTimeout)
	defer cancel()

	unlock, err := p.locker.Lock(ctx, "repair:client:"+client.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	defer unlock()

	fresh, err := p.clients.GetClient(ctx, client.ID, client.UserID)
	if err != nil {
		return nil, storeErr(err)
	}
	if fresh == nil {
		return nil, apperror.NotFound("client")
	}

	owned, err := p.VerifyOwnership(ctx, apiKey, fresh.CounterpartyRef, novaposhta.PropertyRecipient, fresh.LastName)
	if errors.Is(err, ErrOwnershipInconclusive) {
		p.metrics.RepairResult("inconclusive")
		p.logger.Warn("recipient ownership inconclusive, keeping stored refs",
			zap.String("client_id", fresh.ID),
			zap.String("ref", fresh.CounterpartyRef),
			zap.Int("pages", p.maxPages))
		return fresh, nil
	}
	if err != nil {
		return nil, err
	}
	if owned {
		p.metrics.RepairResult("not_needed")
		return fresh, nil
	}

	p.logger.Warn("recipient counterparty not owned by current account, re-creating",
		zap.String("client_id", fresh.ID),
		zap.String("stale_ref", fresh.CounterpartyRef))

	created, err := p.EnsureRecipientCounterparty(ctx, apiKey, fresh.FirstName, fresh.LastName, fresh.Phone)
	if err != nil {
		p.metrics.RepairResult("failed")
		return nil, repairFailed(fresh.CounterpartyRef, err)
	}

	if err := p.clients.UpdateClientRefs(ctx, fresh.ID, fresh.UserID, created.Ref, created.ContactRef); err != nil {
		p.metrics.RepairResult("failed")
		return nil, storeErr(err)
	}

	p.metrics.RepairResult("repaired")
	p.logger.Info("recipient counterparty repaired",
		zap.String("client_id", fresh.ID),
		zap.String("ref", created.Ref))

	fresh.CounterpartyRef = created.Ref
	fresh.ContactRef = created.ContactRef
	return fresh, nil
}

// repairFailed keeps the kind of the underlying failure and reports both the
// drift and the reason re-creation failed.
func repairFailed(staleRef string, cause error) error {
	kind := apperror.KindOf(cause)
	reason := cause.Error()
	if appErr, ok := apperror.As(cause); ok {
		reason = appErr.Message
	}
	return &apperror.AppError{
		Kind:    kind,
		Message: "recipient counterparty " + staleRef + " does not belong to the current API key account and could not be re-created: " + reason,
		Details: appDetails(cause),
		Err:     cause,
	}
}

func appDetails(err error) string {
	if appErr, ok := apperror.As(err); ok {
		return appErr.Details
	}
	return err.Error()
}

func pageString(page int) string {
	if page <= 0 {
		return ""
	}
	return strconv.Itoa(page)
}
