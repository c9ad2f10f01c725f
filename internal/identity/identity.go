// Package identity reports who this daemon is and what board it runs on.
package identity

import (
	"os"
	"runtime/debug"
	"strings"
)

// Version is set at build time with -ldflags "-X .../identity.Version=...".
var Version = ""

// DefaultVersion is reported when no build version is available.
const DefaultVersion = "dev"

// DefaultModelPath is the device-tree model node.
const DefaultModelPath = "/proc/device-tree/model"

// GetHostname returns the system hostname, or "periphd" if unknown.
func GetHostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "periphd"
	}
	return h
}

// GetVersion returns the linker-set version, then the module version from
// build info, then DefaultVersion.
func GetVersion() string {
	if Version != "" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return DefaultVersion
}

// GetModel reads the board model from path (a device-tree model node).
// It returns "" if the file is missing.
func GetModel(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	// Device-tree strings are NUL-terminated.
	return strings.TrimSpace(strings.TrimRight(string(data), "\x00"))
}
