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

package database

import (
	"context"
	"fmt"

	pgx "github.com/jackc/pgx/v4"
)

// CountRows returns the number of rows in schema.table whose iso3 column
// equals iso3.
func (db *DB) CountRows(ctx context.Context, schema, table, iso3 string) (int64, error) {
	var n int64
	row := db.Pool.QueryRow(ctx, countRowsQuery(schema, table), iso3)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("database.CountRows: %s.%s: %w", schema, table, err)
	}
	return n, nil
}

func countRowsQuery(schema, table string) string {
	return fmt.Sprintf("SELECT count(*) FROM %s WHERE iso3 = $1",
		pgx.Identifier{schema, table}.Sanitize())
}
