package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ttnmanager/apperror"
	"ttnmanager/novaposhta"
)

// AddressMode selects how ship-from and ship-to address Refs are obtained.
type AddressMode string

const (
	// ReuseExisting prefers an address already on the counterparty for the
	// same branch and falls back to the branch Ref.
	ReuseExisting AddressMode = "reuse_existing"
	// UseBranchRef passes the branch Ref straight through.
	UseBranchRef AddressMode = "branch_ref"
	// CreateNew saves a street address for the recipient on every document.
	CreateNew AddressMode = "create_new"
)

func ParseAddressMode(s string) (AddressMode, error) {
	switch m := AddressMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ReuseExisting, nil
	case ReuseExisting, UseBranchRef, CreateNew:
		return m, nil
	}
	return "", fmt.Errorf("unknown address resolution mode %q", s)
}

// StreetAddress is the recipient street used in CreateNew mode.
type StreetAddress struct {
	StreetRef      string `json:"streetRef"`
	BuildingNumber string `json:"buildingNumber"`
	Flat           string `json:"flat,omitempty"`
	Note           string `json:"note,omitempty"`
}

func (a *StreetAddress) complete() bool {
	return a != nil && strings.TrimSpace(a.StreetRef) != "" && strings.TrimSpace(a.BuildingNumber) != ""
}

// Branch is the Nova Poshta warehouse a document ships from or to.
type Branch struct {
	CityRef string
	Ref     string
	Name    string
}

// matches reports whether a saved counterparty address is this branch.
func (b Branch) matches(a novaposhta.CounterpartyAddress) bool {
	if a.Ref == "" {
		return false
	}
	if a.Ref == b.Ref {
		return true
	}
	name := strings.TrimSpace(b.Name)
	return name != "" && a.CityRef == b.CityRef && strings.EqualFold(strings.TrimSpace(a.Description), name)
}

type AddressResolver struct {
	dir    Directory
	mode   AddressMode
	logger *zap.Logger
}

func NewAddressResolver(dir Directory, mode AddressMode, logger *zap.Logger) *AddressResolver {
	if mode == "" {
		mode = ReuseExisting
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AddressResolver{dir: dir, mode: mode, logger: logger}
}

// RequiresStreet reports whether documents need a recipient street address.
func (r *AddressResolver) RequiresStreet() bool {
	return r.mode == CreateNew
}

// ResolveRecipient returns the RecipientAddress Ref.
func (r *AddressResolver) ResolveRecipient(ctx context.Context, apiKey, counterpartyRef string, branch Branch, street *StreetAddress) (string, error) {
	switch r.mode {
	case UseBranchRef:
		return branch.Ref, nil
	case CreateNew:
		if !street.complete() {
			return "", apperror.Validation("recipient street address (streetRef, buildingNumber) is required")
		}
		saved, err := r.dir.SaveAddress(ctx, apiKey, novaposhta.SaveAddressProps{
			CounterpartyRef: counterpartyRef,
			StreetRef:       street.StreetRef,
			BuildingNumber:  street.BuildingNumber,
			Flat:            street.Flat,
			Note:            street.Note,
		})
		if err != nil {
			return "", remoteErr(err)
		}
		if len(saved) == 0 || saved[0].Ref == "" {
			return "", apperror.InternalInvariant("no address data returned")
		}
		return saved[0].Ref, nil
	default:
		return r.existingOrBranch(ctx, apiKey, counterpartyRef, novaposhta.PropertyRecipient, branch), nil
	}
}

// ResolveSender returns the SenderAddress Ref. Senders are provisioned with an
// explicit branch, so CreateNew keeps it.
func (r *AddressResolver) ResolveSender(ctx context.Context, apiKey, senderRef string, branch Branch) (string, error) {
	if r.mode != ReuseExisting {
		return branch.Ref, nil
	}
	return r.existingOrBranch(ctx, apiKey, senderRef, novaposhta.PropertySender, branch), nil
}

// existingOrBranch reuses a saved address only when it is the requested
// branch. A failed listing falls back to the branch.
func (r *AddressResolver) existingOrBranch(ctx context.Context, apiKey, counterpartyRef, property string, branch Branch) string {
	addresses, err := r.dir.GetCounterpartyAddresses(ctx, apiKey, novaposhta.RefPageProps{
		Ref:                  counterpartyRef,
		CounterpartyProperty: property,
	})
	if err != nil {
		r.logger.Warn("counterparty address lookup failed, using branch ref",
			zap.String("counterparty_ref", counterpartyRef),
			zap.Error(err))
		return branch.Ref
	}
	for _, a := range addresses {
		if branch.matches(a) {
			return a.Ref
		}
	}
	return branch.Ref
}
