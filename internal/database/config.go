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
	"fmt"
	"sort"
	"strings"
	"time"
)

// Config holds the pool settings. Connection parameters come from the export
// configuration file.
type Config struct {
	PoolMinConnections string        `env:"DB_POOL_MIN_CONNS"`
	PoolMaxConnections string        `env:"DB_POOL_MAX_CONNS, default=2"`
	PoolMaxConnLife    time.Duration `env:"DB_POOL_MAX_CONN_LIFETIME, default=5m"`
	PoolMaxConnIdle    time.Duration `env:"DB_POOL_MAX_CONN_IDLE_TIME, default=1m"`
	PoolHealthCheck    time.Duration `env:"DB_POOL_HEALTH_CHECK_PERIOD, default=1m"`
}

// ConnectionString appends the pool settings to the libpq key/value dsn.
func (c *Config) ConnectionString(dsn string) string {
	if c == nil {
		return dsn
	}

	p := map[string]string{}
	setIfNotEmpty(p, "pool_min_conns", c.PoolMinConnections)
	setIfNotEmpty(p, "pool_max_conns", c.PoolMaxConnections)
	setIfPositiveDuration(p, "pool_max_conn_lifetime", c.PoolMaxConnLife)
	setIfPositiveDuration(p, "pool_max_conn_idle_time", c.PoolMaxConnIdle)
	setIfPositiveDuration(p, "pool_health_check_period", c.PoolHealthCheck)

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	if dsn != "" {
		parts = append(parts, dsn)
	}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, p[k]))
	}
	return strings.Join(parts, " ")
}

func setIfNotEmpty(m map[string]string, key, val string) {
	if val != "" {
		m[key] = val
	}
}

func setIfPositiveDuration(m map[string]string, key string, d time.Duration) {
	if d > 0 {
		m[key] = d.String()
	}
}
