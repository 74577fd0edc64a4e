package db

import (
	"context"
	"fmt"
)

type DBType string

const (
	Postgres DBType = "postgres"
	Mongo    DBType = "mongo"
)

// ParseDBType defaults to Postgres when s is empty.
func ParseDBType(s string) (DBType, error) {
	switch DBType(s) {
	case "", Postgres:
		return Postgres, nil
	case Mongo:
		return Mongo, nil
	}
	return "", fmt.Errorf("unsupported DB_TYPE %q", s)
}

// DB is a connection that can be opened, checked and closed.
type DB interface {
	Connect(ctx context.Context) error
	Ping(ctx context.Context) error
	Disconnect(ctx context.Context) error
}
