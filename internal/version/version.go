// Package version exposes the build identity stamped into version.json
// at release time.
package version

import (
	"encoding/json"
	"os"
)

const unstamped = "0.0.0-dev"

// Info identifies the running build.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}

// String renders "1.2.0" or "1.2.0 (a1b2c3d)".
func (i Info) String() string {
	if i.Commit == "" {
		return i.Version
	}
	return i.Version + " (" + i.Commit + ")"
}

// Load reads the stamped build info from the working directory. An
// unstamped or unreadable build identifies itself as such instead of
// keeping the daemon from starting.
func Load() Info {
	data, err := os.ReadFile("version.json")
	if err != nil {
		return Info{Version: unstamped}
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil || info.Version == "" {
		return Info{Version: unstamped}
	}
	return info
}
