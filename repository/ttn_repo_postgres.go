package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"ttnmanager/models"
)

type PostgresTTNRepo struct {
	DB *sql.DB
}

func NewPostgresTTNRepo(db *sql.DB) *PostgresTTNRepo {
	return &PostgresTTNRepo{DB: db}
}

func (r *PostgresTTNRepo) InsertTTN(ctx context.Context, t *models.TTN) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = models.TTNStatusNew
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO ttn (id, user_id, client_id, client_location_id, sender_id, description, cost, status,
			nova_poshta_ref, nova_poshta_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.UserID, t.ClientID, t.ClientLocationID, t.SenderID, t.Description, t.Cost, t.Status,
		t.NovaPoshtaRef, t.NovaPoshtaNumber, t.CreatedAt)
	return storageErr("insert ttn", err)
}

func (r *PostgresTTNRepo) ListTTN(ctx context.Context, userID string) ([]*models.TTN, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, client_id, client_location_id, sender_id, description, cost, status,
			nova_poshta_ref, nova_poshta_number, created_at
		FROM ttn
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, storageErr("list ttn", err)
	}
	defer rows.Close()

	out := []*models.TTN{}
	for rows.Next() {
		t := &models.TTN{}
		var ref, number sql.NullString
		err := rows.Scan(&t.ID, &t.UserID, &t.ClientID, &t.ClientLocationID, &t.SenderID, &t.Description,
			&t.Cost, &t.Status, &ref, &number, &t.CreatedAt)
		if err != nil {
			return nil, storageErr("scan ttn", err)
		}
		t.NovaPoshtaRef = ref.String
		t.NovaPoshtaNumber = number.String
		out = append(out, t)
	}
	return out, storageErr("list ttn", rows.Err())
}
