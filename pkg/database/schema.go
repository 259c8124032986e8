package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the portal schema
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema")

	tables := []string{
		createPatientsTable,
		createUsersTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createPatientsIndexes,
		createUsersIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created")
	return nil
}

const createPatientsTable = `
CREATE TABLE IF NOT EXISTS patients (
	id UUID PRIMARY KEY,
	login_id VARCHAR(16) NOT NULL UNIQUE,
	name TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	medical_history JSONB NOT NULL DEFAULT '[]'::jsonb,
	version INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createPatientsIndexes = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_patients_login_id ON patients (login_id);
CREATE INDEX IF NOT EXISTS idx_patients_created_at ON patients (created_at DESC);`

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	username VARCHAR(64) NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role VARCHAR(16) NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createUsersIndexes = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users (username);`
