// Package version reports what build of aiva is running. Release builds
// stamp the variables with -ldflags; otherwise the VCS metadata recorded
// by the Go toolchain fills in the revision.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

type Info struct {
	Version string
	Commit  string
	BuiltAt string
	Dirty   bool
}

// Get resolves build metadata, preferring ldflags-stamped values over
// whatever debug.ReadBuildInfo recorded at compile time.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, BuiltAt: BuiltAt}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuiltAt == "" {
				info.BuiltAt = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return info
}

func (i Info) String() string {
	s := "aiva " + i.Version
	if i.Commit != "" {
		c := i.Commit
		if len(c) > 12 {
			c = c[:12]
		}
		s += fmt.Sprintf(" (%s", c)
		if i.Dirty {
			s += "-dirty"
		}
		if i.BuiltAt != "" {
			s += ", " + i.BuiltAt
		}
		s += ")"
	}
	return s
}
