package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"ttnmanager/models"
)

type PostgresSenderRepo struct {
	DB *sql.DB
}

func NewPostgresSenderRepo(db *sql.DB) *PostgresSenderRepo {
	return &PostgresSenderRepo{DB: db}
}

const senderColumns = `id, user_id, name, phone, city_name, city_ref, sender_ref, sender_address_ref,
		sender_address_name, contact_sender_ref, created_at, updated_at`

func scanSender(row rowScanner) (*models.Sender, error) {
	s := &models.Sender{}
	var cityName, addressName, contactRef sql.NullString
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Phone, &cityName, &s.CityRef, &s.SenderRef,
		&s.SenderAddressRef, &addressName, &contactRef, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.CityName = cityName.String
	s.SenderAddressName = addressName.String
	s.ContactSenderRef = contactRef.String
	return s, nil
}

func (r *PostgresSenderRepo) UpsertSender(ctx context.Context, s *models.Sender) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var existingID string
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT id, created_at FROM sender
		WHERE user_id = $1 AND sender_ref = $2 AND city_ref = $3 AND sender_address_ref = $4
		LIMIT 1
	`, s.UserID, s.SenderRef, s.CityRef, s.SenderAddressRef).Scan(&existingID, &createdAt)

	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE sender
			SET name = $1, phone = $2, city_name = $3, sender_address_name = $4, contact_sender_ref = $5, updated_at = $6
			WHERE id = $7
		`, s.Name, s.Phone, s.CityName, s.SenderAddressName, s.ContactSenderRef, now, existingID)
		if err != nil {
			return storageErr("update sender", err)
		}
		s.ID = existingID
		s.CreatedAt = createdAt
		s.UpdatedAt = &now
	case err == sql.ErrNoRows:
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sender (id, user_id, name, phone, city_name, city_ref, sender_ref, sender_address_ref,
				sender_address_name, contact_sender_ref, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, s.ID, s.UserID, s.Name, s.Phone, s.CityName, s.CityRef, s.SenderRef, s.SenderAddressRef,
			s.SenderAddressName, s.ContactSenderRef, s.CreatedAt)
		if err != nil {
			return storageErr("insert sender", err)
		}
	default:
		return storageErr("find sender", err)
	}

	return storageErr("commit", tx.Commit())
}

func (r *PostgresSenderRepo) ListSenders(ctx context.Context, userID string) ([]*models.Sender, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+senderColumns+`
		FROM sender
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, storageErr("list senders", err)
	}
	defer rows.Close()

	senders := []*models.Sender{}
	for rows.Next() {
		s, err := scanSender(rows)
		if err != nil {
			return nil, storageErr("scan sender", err)
		}
		senders = append(senders, s)
	}
	return senders, storageErr("list senders", rows.Err())
}

func (r *PostgresSenderRepo) GetSender(ctx context.Context, id, userID string) (*models.Sender, error) {
	if !isRowID(id) {
		return nil, nil
	}
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+senderColumns+`
		FROM sender
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	s, err := scanSender(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get sender", err)
	}
	return s, nil
}
