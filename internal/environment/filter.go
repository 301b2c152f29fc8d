package environment

import (
	"strings"

	"boxrun/internal/constants"

	"github.com/ryanuber/go-glob"
)

// ParseBlacklist splits a comma separated list of names and glob patterns
func ParseBlacklist(list string) []string {
	var out []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsBlacklisted reports whether name matches any pattern. A pattern is an
// exact name or a glob such as SSH_*.
func IsBlacklisted(name string, patterns []string) bool {
	for _, p := range patterns {
		if glob.Glob(p, name) {
			return true
		}
	}
	return false
}

// Filter returns the snapshot a container should receive.
//
// Blacklisted host variables are kept under the BOXRUN_ prefix so they do not
// clobber the container's own HOME, PATH and so on. A host variable that
// already has the prefix wins over its unprefixed twin. DISPLAY is rewritten
// so X11 clients reach the mounted socket.
func Filter(s *Snapshot, blacklist []string) *Snapshot {
	out := &Snapshot{entries: make(map[string]Entry, s.Len())}
	for _, e := range s.Entries() {
		switch {
		case e.Name == "DISPLAY":
			out.set(e.Name, constants.DisplayInContainer)
		case s.Has(constants.EnvPrefix + e.Name):
			// handled when the prefixed entry is visited
			continue
		case strings.HasPrefix(e.Name, constants.EnvPrefix), e.Class == BashFunction:
			out.set(e.Name, e.Value)
		case IsBlacklisted(e.Name, blacklist):
			out.set(constants.EnvPrefix+e.Name, e.Value)
		default:
			out.set(e.Name, e.Value)
		}
	}
	return out
}
