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
	"os"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ory/dockertest"
	"github.com/sethvargo/go-retry"
)

// NewTestDatabaseWithDSN starts a PostgreSQL container and returns a pool
// connected to it along with its key/value connection string. This should not
// be used outside of testing, but it is exposed in the main package so it can
// be shared with other packages.
//
// All database tests can be skipped by running `go test -short` or by setting
// the `SKIP_DATABASE_TESTS` environment variable. They are also skipped when
// no Docker daemon is reachable.
func NewTestDatabaseWithDSN(tb testing.TB) (*DB, string) {
	tb.Helper()

	if testing.Short() {
		tb.Skipf("skipping database tests (short)")
	}

	if skip, _ := strconv.ParseBool(os.Getenv("SKIP_DATABASE_TESTS")); skip {
		tb.Skipf("skipping database tests (SKIP_DATABASE_TESTS is set)")
	}

	ctx := context.Background()

	pool, err := dockertest.NewPool("")
	if err != nil {
		tb.Skipf("skipping database tests (no docker): %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		tb.Skipf("skipping database tests (no docker): %s", err)
	}

	repo, tag := postgresRepo(tb)

	dbname, username, password := "gis", "osm", "abcd1234"
	container, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: repo,
		Tag:        tag,
		Env: []string{
			"LANG=C",
			"POSTGRES_DB=" + dbname,
			"POSTGRES_USER=" + username,
			"POSTGRES_PASSWORD=" + password,
		},
	})
	if err != nil {
		tb.Fatalf("failed to start postgres container: %s", err)
	}

	// Force the database container to stop.
	if err := container.Expire(120); err != nil {
		tb.Fatalf("failed to force-stop container: %v", err)
	}

	tb.Cleanup(func() {
		if err := pool.Purge(container); err != nil {
			tb.Errorf("failed to cleanup postgres container: %s", err)
		}
	})

	// On Mac, Docker runs in a VM.
	host, port := container.Container.NetworkSettings.IPAddress, "5432"
	if runtime.GOOS == "darwin" {
		host, port = container.GetBoundIP("5432/tcp"), container.GetPort("5432/tcp")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, username, password, dbname)

	b, err := retry.NewConstant(1 * time.Second)
	if err != nil {
		tb.Fatalf("failed to configure backoff: %v", err)
	}
	b = retry.WithMaxRetries(30, b)

	var db *DB
	if err := retry.Do(ctx, b, func(ctx context.Context) error {
		var err error
		db, err = NewFromDSN(ctx, dsn, &Config{PoolMaxConnections: "2"})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		tb.Fatalf("failed to start postgres: %s", err)
	}

	tb.Cleanup(func() {
		db.Close(context.Background())
	})

	return db, dsn
}

// NewTestDatabase is NewTestDatabaseWithDSN without the connection string.
func NewTestDatabase(tb testing.TB) *DB {
	tb.Helper()

	db, _ := NewTestDatabaseWithDSN(tb)
	return db
}

func postgresRepo(tb testing.TB) (string, string) {
	postgresImageRef := os.Getenv("CI_POSTGRES_IMAGE")
	if postgresImageRef == "" {
		postgresImageRef = "postgres:13-alpine"
	}

	parts := strings.SplitN(postgresImageRef, ":", 2)
	if len(parts) != 2 {
		tb.Fatalf("invalid postgres ref %v", postgresImageRef)
	}
	return parts[0], parts[1]
}
