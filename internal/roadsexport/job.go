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

package roadsexport

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/osmroads/roads-export/internal/osmconfig"
)

// LayerSuffix is appended to the lowercased ISO3 code to form a layer name.
const LayerSuffix = "_trs_roads_osm"

// ErrNoCountryCodes is returned for a table with an empty code list.
var ErrNoCountryCodes = errors.New("table has no country codes")

// LayerName returns the layer name for a country code, e.g. "BRA" becomes
// "bra_trs_roads_osm".
func LayerName(iso3 string) string {
	return strings.ToLower(iso3) + LayerSuffix
}

// TableJob is the unit of work for one table and one country code. Layer is
// the export layer, the output directory name, the archive base name and the
// object key.
type TableJob struct {
	Table       string
	ISO3        string
	Layer       string
	OutputDir   string
	ArchivePath string
}

// NewTableJob derives the layer name and paths for a table and code.
func NewTableJob(workDir, table, iso3 string) *TableJob {
	layer := LayerName(iso3)
	return &TableJob{
		Table:       table,
		ISO3:        iso3,
		Layer:       layer,
		OutputDir:   filepath.Join(workDir, layer),
		ArchivePath: filepath.Join(workDir, layer+".zip"),
	}
}

func (j *TableJob) String() string {
	return fmt.Sprintf("%s/%s", j.Table, j.ISO3)
}

// Jobs plans the batch in configuration order. Only the first code of each
// table is used unless allCodes is set.
func Jobs(cfg *osmconfig.Config, workDir string, allCodes bool) ([]*TableJob, error) {
	jobs := make([]*TableJob, 0, len(cfg.Order))
	for _, table := range cfg.Order {
		codes := cfg.Tables[table]
		if len(codes) == 0 {
			return nil, fmt.Errorf("%s: %w", table, ErrNoCountryCodes)
		}

		if !allCodes {
			codes = codes[:1]
		}
		for _, code := range codes {
			jobs = append(jobs, NewTableJob(workDir, table, code))
		}
	}
	return jobs, nil
}
