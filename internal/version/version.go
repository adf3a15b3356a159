// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package version provides build-time version information.
package version

import (
	"runtime/debug"
)

// version is set at build time via -ldflags "-X .../internal/version.version=v1.2.3".
var version = "dev"

// String returns the linked version, or the module version recorded by
// `go install` when none was linked.
func String() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}
