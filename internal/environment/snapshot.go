// Package environment captures the host environment and serializes it into
// files a container can load: an env file for single-line values and two
// scripts, sourced in order, for multiline values and exported bash functions.
package environment

import (
	"sort"
	"strings"
)

// Classification tells how a variable has to travel into the container
type Classification int

const (
	// Oneline values fit the driver's KEY=VALUE env file
	Oneline Classification = iota
	// Multiline values contain a newline and are restored by a sourced script
	Multiline
	// BashFunction values are exported function bodies
	BashFunction
)

func (c Classification) String() string {
	switch c {
	case Multiline:
		return "multiline"
	case BashFunction:
		return "bash_function"
	default:
		return "oneline"
	}
}

const bashFuncPrefix = "BASH_FUNC_"

// Entry is one captured variable
type Entry struct {
	Name  string
	Value string
	Class Classification
}

// Snapshot is a read-only view of the host environment
type Snapshot struct {
	names   []string
	entries map[string]Entry
}

// Classify applies the classification rule to one variable.
// A function body almost always spans lines, so the function test comes first.
func Classify(name, value string) Classification {
	if IsBashFunction(name, value) {
		return BashFunction
	}
	if strings.Contains(value, "\n") {
		return Multiline
	}
	return Oneline
}

// IsBashFunction reports whether name/value were produced by `export -f`.
// bash names them BASH_FUNC_<name>%% (older patched versions used BASH_FUNC_<name>()).
func IsBashFunction(name, value string) bool {
	return strings.HasPrefix(name, bashFuncPrefix) && strings.HasPrefix(value, "()")
}

// FunctionName extracts the function name from an exported function variable
func FunctionName(name string) string {
	fn := strings.TrimPrefix(name, bashFuncPrefix)
	fn = strings.TrimSuffix(fn, "%%")
	return strings.TrimSuffix(fn, "()")
}

// Capture builds a snapshot from KEY=VALUE pairs such as os.Environ()
func Capture(environ []string) *Snapshot {
	s := &Snapshot{entries: make(map[string]Entry, len(environ))}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		s.set(name, value)
	}
	return s
}

// FromMap builds a snapshot from a map, ordered by name
func FromMap(vars map[string]string) *Snapshot {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)

	s := &Snapshot{entries: make(map[string]Entry, len(vars))}
	for _, k := range names {
		s.set(k, vars[k])
	}
	return s
}

func (s *Snapshot) set(name, value string) {
	if _, exists := s.entries[name]; !exists {
		s.names = append(s.names, name)
	}
	s.entries[name] = Entry{Name: name, Value: value, Class: Classify(name, value)}
}

// Get returns the entry for name
func (s *Snapshot) Get(name string) (Entry, bool) {
	e, ok := s.entries[name]
	return e, ok
}

// Has reports whether name was captured
func (s *Snapshot) Has(name string) bool {
	_, ok := s.entries[name]
	return ok
}

// Entries returns all entries in capture order
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, s.entries[n])
	}
	return out
}

// Len returns the number of captured variables
func (s *Snapshot) Len() int {
	return len(s.names)
}

// Lookup returns a variable's value, matching os.LookupEnv
func (s *Snapshot) Lookup(name string) (string, bool) {
	e, ok := s.entries[name]
	return e.Value, ok
}
