// Copyright 2023 the Roads Export authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package database is a thin wrapper over the PostgreSQL source database.
// It is only used to check a table before exporting it.
package database

import (
	"context"
	"fmt"

	"github.com/osmroads/roads-export/pkg/logging"

	"github.com/jackc/pgx/v4/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

// NewFromDSN creates a connection pool from a libpq key/value connection
// string. The caller must Close the DB.
func NewFromDSN(ctx context.Context, dsn string, config *Config) (*DB, error) {
	logger := logging.FromContext(ctx)
	logger.Debugw("creating connection pool")

	pgxConfig, err := pgxpool.ParseConfig(config.ConnectionString(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.ConnectConfig(ctx, pgxConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases database connections.
func (db *DB) Close(ctx context.Context) {
	logger := logging.FromContext(ctx)
	logger.Debugw("closing connection pool")
	db.Pool.Close()
}
