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
	"testing"
	"time"

	"github.com/osmroads/roads-export/internal/project"
	"github.com/sethvargo/go-envconfig"
)

func TestConfig_ConnectionString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		config *Config
		dsn    string
		want   string
	}{
		{
			name:   "nil",
			config: nil,
			dsn:    "dbname='gis'",
			want:   "dbname='gis'",
		},
		{
			name:   "empty",
			config: &Config{},
			dsn:    "dbname='gis'",
			want:   "dbname='gis'",
		},
		{
			name: "pool",
			config: &Config{
				PoolMaxConnections: "4",
				PoolMaxConnLife:    5 * time.Minute,
				PoolHealthCheck:    time.Minute,
			},
			dsn:  "dbname='gis' host='localhost'",
			want: "dbname='gis' host='localhost' pool_health_check_period=1m0s pool_max_conn_lifetime=5m0s pool_max_conns=4",
		},
		{
			name:   "no_dsn",
			config: &Config{PoolMinConnections: "1"},
			want:   "pool_min_conns=1",
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tc.config.ConnectionString(tc.dsn); got != tc.want {
				t.Errorf("expected %q to be %q", got, tc.want)
			}
		})
	}
}

func TestConfig_defaults(t *testing.T) {
	t.Parallel()

	var config Config
	if err := envconfig.ProcessWith(context.Background(), &config, envconfig.MapLookuper(nil)); err != nil {
		t.Fatal(err)
	}

	if got, want := config.PoolMaxConnections, "2"; got != want {
		t.Errorf("expected %q to be %q", got, want)
	}
	if got, want := config.PoolMaxConnLife, 5*time.Minute; got != want {
		t.Errorf("expected %v to be %v", got, want)
	}
}

func TestCountRowsQuery(t *testing.T) {
	t.Parallel()

	got := countRowsQuery("public", "osm_roads")
	want := `SELECT count(*) FROM "public"."osm_roads" WHERE iso3 = $1`
	if got != want {
		t.Errorf("expected %q to be %q", got, want)
	}
}

func TestNewFromDSN_invalid(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	if _, err := NewFromDSN(ctx, "pool_max_conns=abc", &Config{}); err == nil {
		t.Error("expected error")
	}
}

func TestDB_CountRows(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	db := NewTestDatabase(t)

	if _, err := db.Pool.Exec(ctx, `CREATE TABLE public.osm_roads (id serial PRIMARY KEY, iso3 text NOT NULL)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Pool.Exec(ctx, `INSERT INTO public.osm_roads (iso3) VALUES ('BRA'), ('BRA'), ('BRA'), ('KEN')`); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name  string
		table string
		iso3  string
		want  int64
		err   bool
	}{
		{name: "several", table: "osm_roads", iso3: "BRA", want: 3},
		{name: "one", table: "osm_roads", iso3: "KEN", want: 1},
		{name: "none", table: "osm_roads", iso3: "ARG", want: 0},
		{name: "case_sensitive", table: "osm_roads", iso3: "bra", want: 0},
		{name: "missing_table", table: "osm_roads_af", iso3: "KEN", err: true},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := db.CountRows(ctx, "public", tc.table, tc.iso3)
			if (err != nil) != tc.err {
				t.Fatalf("expected error %t, got %v", tc.err, err)
			}
			if got != tc.want {
				t.Errorf("expected %d to be %d", got, tc.want)
			}
		})
	}
}

func TestNewFromDSN(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	_, dsn := NewTestDatabaseWithDSN(t)

	db, err := NewFromDSN(ctx, dsn, &Config{PoolMaxConnections: "1"})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close(ctx)

	if got, want := db.Pool.Config().MaxConns, int32(1); got != want {
		t.Errorf("expected %d to be %d", got, want)
	}

	var one int
	if err := db.Pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		t.Fatal(err)
	}
}
