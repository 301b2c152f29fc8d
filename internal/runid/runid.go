// Package runid generates the per-invocation identifier that namespaces
// every container, network and temporary file of a run.
package runid

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"boxrun/internal/constants"

	"github.com/rs/xid"
)

// docker and compose reject upper case letters in names
var disallowed = regexp.MustCompile(`[^a-z0-9-]+`)

// Generator produces run identifiers
type Generator struct {
	now  func() time.Time
	rand func() string
}

// NewGenerator creates a generator using the wall clock and xid for uniqueness
func NewGenerator() *Generator {
	return &Generator{
		now:  time.Now,
		rand: func() string { return xid.New().String() },
	}
}

// New returns the run id for a run started in currentDir.
// In test mode the id is fixed so that generated names are predictable.
func (g *Generator) New(currentDir string, test bool) string {
	if test {
		return constants.TestRunID
	}
	return g.FromDir(currentDir)
}

// FromDir builds <project>-<last dir>-<timestamp>-<random>.
// The timestamp alone is not unique: two CI agents may start in the same second.
func (g *Generator) FromDir(currentDir string) string {
	last := filepath.Base(filepath.Clean(currentDir))
	if last == "/" || last == "." {
		last = ""
	}
	id := fmt.Sprintf("%s-%s-%s-%s",
		constants.ProjectName, last, g.now().Format("2006-01-02_15-04-05"), g.rand())
	return Normalize(id)
}

// Normalize lowercases id and strips every character docker would reject
func Normalize(id string) string {
	return disallowed.ReplaceAllString(strings.ToLower(id), "")
}

// Compact returns id as compose v1 renders it in a project name
func Compact(id string) string {
	return strings.ReplaceAll(id, "-", "")
}
