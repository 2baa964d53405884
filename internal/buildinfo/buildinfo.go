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

// Package buildinfo provides high-level build information injected during
// build.
package buildinfo

import (
	"runtime/debug"
	"sync"
)

var (
	// id is the unique build identifier, set with -ldflags.
	id string = "unknown"

	// tag is the git tag from which this build was created.
	tag string = "unknown"
)

type buildinfo struct {
	once     sync.Once
	revision string
}

// ID returns the build ID. When no ID was injected, the VCS revision
// recorded by the go toolchain is used.
func (b *buildinfo) ID() string {
	if id != "unknown" {
		return id
	}

	b.once.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				b.revision = s.Value
			}
		}
	})
	if b.revision != "" {
		return b.revision
	}
	return id
}

// Tag returns the build tag.
func (b *buildinfo) Tag() string {
	return tag
}

// RoadsExport provides the build information about the export tool.
var RoadsExport = &buildinfo{}
