package container

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePSJSON(t *testing.T) {
	t.Run("ndjson", func(t *testing.T) {
		out := `{"ID":"a","Name":"p-redis-1","Service":"redis","State":"exited","ExitCode":2}
{"ID":"b","Name":"p-default-run-1","Service":"default","State":"running","ExitCode":0}
`
		entries, err := parsePSJSON(out)
		require.NoError(t, err)
		assert.Equal(t, []psEntry{
			{ID: "a", Name: "p-redis-1", Service: "redis", State: "exited", ExitCode: 2},
			{ID: "b", Name: "p-default-run-1", Service: "default", State: "running"},
		}, entries)
	})

	t.Run("array", func(t *testing.T) {
		entries, err := parsePSJSON(`[{"ID":"a","Name":"p-redis-1","Service":"redis","State":"running"}]`)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "p-redis-1", entries[0].Name)
	})

	t.Run("empty", func(t *testing.T) {
		entries, err := parsePSJSON("\n")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("missing state", func(t *testing.T) {
		_, err := parsePSJSON(`{"ID":"a","Name":"p-redis-1"}`)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parsePSJSON("NAME   IMAGE\n")
		assert.Error(t, err)
	})
}

func TestParsePSTable(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{
			name: "containers",
			output: "      Name                     Command               State   Ports\n" +
				"-------------------------------------------------------------------\n" +
				"edudocker_abc_1           /bin/sh -c while true; do  ...   Up\n" +
				"edudocker_default_run_1   sh -c echo 'will sleep' && ...   Up\n",
			want: []string{"edudocker_abc_1", "edudocker_default_run_1"},
		},
		{
			name:   "header only",
			output: "Name   Command   State   Ports\n------------------------------\n",
		},
		{
			name:   "empty",
			output: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			for _, e := range parsePSTable(tt.output) {
				names = append(names, e.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestParseInspect(t *testing.T) {
	status, err := parseInspect("4f1e2d /boxrun-x-redis-1 exited 137\n")
	require.NoError(t, err)
	assert.Equal(t, Status{ID: "4f1e2d", Name: "boxrun-x-redis-1", State: "exited", ExitCode: 137, Exists: true}, status)
	assert.False(t, status.Running())

	_, err = parseInspect("4f1e2d running")
	assert.Error(t, err)

	_, err = parseInspect("4f1e2d /n running zero")
	assert.Error(t, err)
}

func TestSignalName(t *testing.T) {
	assert.Equal(t, "SIGTERM", signalName(syscall.SIGTERM))
	assert.Equal(t, "SIGINT", signalName(syscall.SIGINT))
	assert.Equal(t, "28", signalName(syscall.Signal(28)))
}

func TestIsDefaultContainerName(t *testing.T) {
	assert.True(t, isDefaultContainerName("p_default_run_1"))
	assert.True(t, isDefaultContainerName("p-default-run-1a2b"))
	assert.False(t, isDefaultContainerName("p-redis-1"))
	assert.False(t, isDefaultContainerName("default"))
}
