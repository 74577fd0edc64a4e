package repository

import (
	"context"
	"database/sql"
	"time"
)

type PostgresSettingsRepo struct {
	DB *sql.DB
}

func NewPostgresSettingsRepo(db *sql.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{DB: db}
}

func (r *PostgresSettingsRepo) GetAPIKey(ctx context.Context, userID string) (string, error) {
	var key sql.NullString
	err := r.DB.QueryRowContext(ctx, `
		SELECT nova_poshta_api_key FROM user_settings WHERE user_id = $1
	`, userID).Scan(&key)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", storageErr("get api key", err)
	}
	return key.String, nil
}

func (r *PostgresSettingsRepo) SaveAPIKey(ctx context.Context, userID, apiKey string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, nova_poshta_api_key, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET nova_poshta_api_key = EXCLUDED.nova_poshta_api_key, updated_at = EXCLUDED.updated_at
	`, userID, apiKey, time.Now().UTC())
	return storageErr("save api key", err)
}

// NewPostgresStore wires all repositories over one connection pool.
func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Clients:  NewPostgresClientRepo(db),
		Senders:  NewPostgresSenderRepo(db),
		TTN:      NewPostgresTTNRepo(db),
		Settings: NewPostgresSettingsRepo(db),
	}
}
