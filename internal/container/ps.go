package container

import (
	"encoding/json"
	"fmt"
	"strings"
)

// psEntry is one container listed by `compose ps`
type psEntry struct {
	ID       string `json:"ID"`
	Name     string `json:"Name"`
	Service  string `json:"Service"`
	State    string `json:"State"`
	ExitCode int    `json:"ExitCode"`
}

// parsePSJSON parses `compose ps --format json --all`. Most compose v2
// releases print one object per line; some print a single array.
func parsePSJSON(output string) ([]psEntry, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil, nil
	}

	var entries []psEntry
	if strings.HasPrefix(output, "[") {
		if err := json.Unmarshal([]byte(output), &entries); err != nil {
			return nil, fmt.Errorf("decoding compose ps output: %w", err)
		}
	} else {
		for _, line := range strings.Split(output, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			var e psEntry
			if err := json.Unmarshal([]byte(line), &e); err != nil {
				return nil, fmt.Errorf("decoding compose ps output: %w; line %s", err, line)
			}
			entries = append(entries, e)
		}
	}

	for _, e := range entries {
		if e.State == "" {
			return nil, fmt.Errorf("decoding compose ps output: container %q has no state", e.Name)
		}
	}
	return entries, nil
}

// parsePSTable parses the table compose v1 prints:
//
//	Name                        Command               State   Ports
//	------------------------------------------------------------------------
//	edudocker_abc_1           /bin/sh -c while true; do  ...   Up
//	edudocker_default_run_1   sh -c echo 'will sleep' && ...   Up
//
// Only names are taken from it.
func parsePSTable(output string) []psEntry {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) < 2 || strings.Contains(lines[len(lines)-1], "-----") {
		// nothing created yet
		return nil
	}

	var entries []psEntry
	for _, line := range lines[2:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		entries = append(entries, psEntry{Name: fields[0]})
	}
	return entries
}
