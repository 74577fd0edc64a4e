package repository

import (
	"context"
	"fmt"

	"ttnmanager/models"
)

// ClientRepository stores recipients and their delivery locations. Every read
// and delete is scoped by the owning user id.
type ClientRepository interface {
	InsertClient(ctx context.Context, c *models.Client) error
	// CreateClientWithLocation stores a client and its first location atomically.
	CreateClientWithLocation(ctx context.Context, c *models.Client, loc *models.ClientLocation) error
	ListClients(ctx context.Context, userID string) ([]*models.Client, error)
	GetClient(ctx context.Context, id, userID string) (*models.Client, error)
	DeleteClient(ctx context.Context, id, userID string) (bool, error)
	UpdateClientRefs(ctx context.Context, id, userID, counterpartyRef, contactRef string) error

	InsertClientLocation(ctx context.Context, loc *models.ClientLocation) error
	ListClientLocations(ctx context.Context, clientIDs []string) ([]models.ClientLocation, error)
	GetClientLocation(ctx context.Context, id, userID string) (*models.ClientLocation, error)
	DeleteClientLocation(ctx context.Context, id, userID string) (bool, error)
}

type SenderRepository interface {
	// UpsertSender looks the row up by user, sender ref, city and address ref;
	// it updates names and contact when found and inserts otherwise.
	UpsertSender(ctx context.Context, s *models.Sender) error
	ListSenders(ctx context.Context, userID string) ([]*models.Sender, error)
	GetSender(ctx context.Context, id, userID string) (*models.Sender, error)
}

type TTNRepository interface {
	InsertTTN(ctx context.Context, t *models.TTN) error
	ListTTN(ctx context.Context, userID string) ([]*models.TTN, error)
}

type SettingsRepository interface {
	// GetAPIKey returns "" when the user has not configured a key.
	GetAPIKey(ctx context.Context, userID string) (string, error)
	SaveAPIKey(ctx context.Context, userID, apiKey string) error
}

// Store groups the repositories of one backend.
type Store struct {
	Clients  ClientRepository
	Senders  SenderRepository
	TTN      TTNRepository
	Settings SettingsRepository
}

// StorageError wraps any persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// dedupeLocations keeps the first location per (client, city, branch).
func dedupeLocations(locs []models.ClientLocation) []models.ClientLocation {
	seen := make(map[string]struct{}, len(locs))
	out := make([]models.ClientLocation, 0, len(locs))
	for _, l := range locs {
		key := l.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}
