package services

import (
	"context"
	"strings"

	"ttnmanager/apperror"
	"ttnmanager/repository"
)

// APIKeys resolves the per-user Nova Poshta key.
type APIKeys struct {
	repo repository.SettingsRepository
}

func NewAPIKeys(repo repository.SettingsRepository) *APIKeys {
	return &APIKeys{repo: repo}
}

// Require returns the user's key or an ApiKeyNotConfigured error.
func (k *APIKeys) Require(ctx context.Context, userID string) (string, error) {
	key, err := k.repo.GetAPIKey(ctx, userID)
	if err != nil {
		return "", storeErr(err)
	}
	if strings.TrimSpace(key) == "" {
		return "", apperror.APIKeyNotConfigured()
	}
	return key, nil
}

func (k *APIKeys) Configured(ctx context.Context, userID string) (bool, error) {
	key, err := k.repo.GetAPIKey(ctx, userID)
	if err != nil {
		return false, storeErr(err)
	}
	return strings.TrimSpace(key) != "", nil
}

func (k *APIKeys) Save(ctx context.Context, userID, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return apperror.Validation("apiKey is required")
	}
	return storeErr(k.repo.SaveAPIKey(ctx, userID, apiKey))
}
