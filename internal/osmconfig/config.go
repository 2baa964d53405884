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

// Package osmconfig loads the export configuration file: the tables to
// export, the ISO3 codes of each table and the database connection.
//
// The file is TOML:
//
//	[tables]
//	osm_roads = ["BRA"]
//	osm_roads_africa = ["KEN", "TZA"]
//
//	[connection]
//	host = "localhost"
//	user = "osm"
//	password = "osm"
//	name = "gis"
//	port = 5432
//	schema = "public"
package osmconfig

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// DefaultFilename is the conventional name of the configuration file in the
// working directory.
const DefaultFilename = "osm.toml"

// Config is the parsed configuration file. It is immutable once loaded.
type Config struct {
	// Tables maps a table name to its ISO3 country codes, in file order.
	Tables map[string][]string `toml:"tables"`

	// Order is the table names in the order they appear in the file.
	Order []string `toml:"-"`

	Connection *Connection `toml:"connection"`
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("osmconfig.Load: %w", err)
	}

	cfg, err := Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("osmconfig.Load: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses configuration from TOML text. Any missing section, missing
// connection field or invalid identifier is an error; there is no partial
// configuration.
func Parse(data string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if !md.IsDefined("tables") {
		return nil, fmt.Errorf("missing [tables] section")
	}
	if !md.IsDefined("connection") || cfg.Connection == nil {
		return nil, fmt.Errorf("missing [connection] section")
	}

	cfg.Order = tableOrder(md, cfg.Tables)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// tableOrder returns the table names in document order. Any name the
// metadata did not report is appended in lexical order.
func tableOrder(md toml.MetaData, tables map[string][]string) []string {
	order := make([]string, 0, len(tables))
	seen := make(map[string]struct{}, len(tables))

	for _, key := range md.Keys() {
		if len(key) != 2 || key[0] != "tables" {
			continue
		}
		name := key[1]
		if _, ok := tables[name]; !ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		order = append(order, name)
	}

	var rest []string
	for name := range tables {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)

	return append(order, rest...)
}

func (c *Config) validate() error {
	if err := ValidateIdentifier(c.Connection.Schema); err != nil {
		return fmt.Errorf("connection.schema: %w", err)
	}

	for _, table := range c.Order {
		if err := ValidateIdentifier(table); err != nil {
			return fmt.Errorf("tables.%s: %w", table, err)
		}
		for i, code := range c.Tables[table] {
			if err := ValidateISO3(code); err != nil {
				return fmt.Errorf("tables.%s[%d]: %w", table, i, err)
			}
		}
	}
	return nil
}
