package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ttnmanager/models"
)

type PostgresClientRepo struct {
	DB *sql.DB
}

func NewPostgresClientRepo(db *sql.DB) *PostgresClientRepo {
	return &PostgresClientRepo{DB: db}
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// isRowID reports whether id can match a UUID key column. Anything else can
// never name a row, and Postgres would reject it with 22P02.
func isRowID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// rowIDs drops ids that cannot name a row.
func rowIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if isRowID(id) {
			out = append(out, id)
		}
	}
	return out
}

func insertClient(ctx context.Context, ex execer, c *models.Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO clients (id, user_id, first_name, last_name, phone, contact_ref, counterparty_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.UserID, c.FirstName, c.LastName, c.Phone, c.ContactRef, c.CounterpartyRef, c.CreatedAt)
	return err
}

func insertClientLocation(ctx context.Context, ex execer, l *models.ClientLocation) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO client_locations (id, client_id, city_name, city_ref, warehouse_name, warehouse_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, l.ID, l.ClientID, l.CityName, l.CityRef, l.WarehouseName, l.WarehouseRef, l.CreatedAt)
	return err
}

func (r *PostgresClientRepo) InsertClient(ctx context.Context, c *models.Client) error {
	return storageErr("insert client", insertClient(ctx, r.DB, c))
}

func (r *PostgresClientRepo) CreateClientWithLocation(ctx context.Context, c *models.Client, loc *models.ClientLocation) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback()

	if err := insertClient(ctx, tx, c); err != nil {
		return storageErr("insert client", err)
	}
	loc.ClientID = c.ID
	if err := insertClientLocation(ctx, tx, loc); err != nil {
		return storageErr("insert client location", err)
	}
	return storageErr("commit", tx.Commit())
}

func (r *PostgresClientRepo) ListClients(ctx context.Context, userID string) ([]*models.Client, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, first_name, last_name, phone, contact_ref, counterparty_ref, created_at
		FROM clients
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, storageErr("list clients", err)
	}
	defer rows.Close()

	clients := []*models.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, storageErr("scan client", err)
		}
		clients = append(clients, c)
	}
	return clients, storageErr("list clients", rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*models.Client, error) {
	c := &models.Client{}
	var contactRef, counterpartyRef sql.NullString
	err := row.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Phone, &contactRef, &counterpartyRef, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.ContactRef = contactRef.String
	c.CounterpartyRef = counterpartyRef.String
	return c, nil
}

func (r *PostgresClientRepo) GetClient(ctx context.Context, id, userID string) (*models.Client, error) {
	if !isRowID(id) {
		return nil, nil
	}
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, first_name, last_name, phone, contact_ref, counterparty_ref, created_at
		FROM clients
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	c, err := scanClient(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get client", err)
	}
	return c, nil
}

// DeleteClient removes the client; its locations go with it (ON DELETE CASCADE).
func (r *PostgresClientRepo) DeleteClient(ctx context.Context, id, userID string) (bool, error) {
	if !isRowID(id) {
		return false, nil
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM clients WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, storageErr("delete client", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete client", err)
	}
	return n > 0, nil
}

func (r *PostgresClientRepo) UpdateClientRefs(ctx context.Context, id, userID, counterpartyRef, contactRef string) error {
	if !isRowID(id) {
		return nil
	}
	_, err := r.DB.ExecContext(ctx, `
		UPDATE clients SET counterparty_ref = $1, contact_ref = $2
		WHERE id = $3 AND user_id = $4
	`, counterpartyRef, contactRef, id, userID)
	return storageErr("update client refs", err)
}

func (r *PostgresClientRepo) InsertClientLocation(ctx context.Context, loc *models.ClientLocation) error {
	return storageErr("insert client location", insertClientLocation(ctx, r.DB, loc))
}

func (r *PostgresClientRepo) ListClientLocations(ctx context.Context, clientIDs []string) ([]models.ClientLocation, error) {
	clientIDs = rowIDs(clientIDs)
	if len(clientIDs) == 0 {
		return []models.ClientLocation{}, nil
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, client_id, city_name, city_ref, warehouse_name, warehouse_ref, created_at
		FROM client_locations
		WHERE client_id = ANY($1)
		ORDER BY created_at ASC
	`, pq.Array(clientIDs))
	if err != nil {
		return nil, storageErr("list client locations", err)
	}
	defer rows.Close()

	var locs []models.ClientLocation
	for rows.Next() {
		var l models.ClientLocation
		if err := rows.Scan(&l.ID, &l.ClientID, &l.CityName, &l.CityRef, &l.WarehouseName, &l.WarehouseRef, &l.CreatedAt); err != nil {
			return nil, storageErr("scan client location", err)
		}
		locs = append(locs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list client locations", err)
	}
	return dedupeLocations(locs), nil
}

// GetClientLocation checks ownership through the parent client.
func (r *PostgresClientRepo) GetClientLocation(ctx context.Context, id, userID string) (*models.ClientLocation, error) {
	if !isRowID(id) {
		return nil, nil
	}
	l := &models.ClientLocation{}
	err := r.DB.QueryRowContext(ctx, `
		SELECT l.id, l.client_id, l.city_name, l.city_ref, l.warehouse_name, l.warehouse_ref, l.created_at
		FROM client_locations l
		JOIN clients c ON c.id = l.client_id
		WHERE l.id = $1 AND c.user_id = $2
	`, id, userID).Scan(&l.ID, &l.ClientID, &l.CityName, &l.CityRef, &l.WarehouseName, &l.WarehouseRef, &l.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get client location", err)
	}
	return l, nil
}

func (r *PostgresClientRepo) DeleteClientLocation(ctx context.Context, id, userID string) (bool, error) {
	if !isRowID(id) {
		return false, nil
	}
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM client_locations l
		USING clients c
		WHERE l.id = $1 AND c.id = l.client_id AND c.user_id = $2
	`, id, userID)
	if err != nil {
		return false, storageErr("delete client location", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete client location", err)
	}
	return n > 0, nil
}
