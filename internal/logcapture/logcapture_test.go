package logcapture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"boxrun/internal/config"
	"boxrun/internal/container"
	"boxrun/internal/logger"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const runID = "boxrun-project-2026-10-14_10-00-00-cs1abc"

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListNonDefault(ctx context.Context, handles []*container.Handle) ([]*container.Handle, error) {
	args := m.Called(ctx, handles)
	list, _ := args.Get(0).([]*container.Handle)
	return list, args.Error(1)
}

func (m *mockSource) ContainerStatus(ctx context.Context, h *container.Handle) (container.Status, error) {
	args := m.Called(ctx, h)
	return args.Get(0).(container.Status), args.Error(1)
}

func (m *mockSource) FetchLogs(ctx context.Context, h *container.Handle) (string, string, error) {
	args := m.Called(ctx, h)
	return args.String(0), args.String(1), args.Error(2)
}

var (
	redis  = &container.Handle{Name: runID + "-redis-1", Service: "redis", Role: container.RoleNonDefault}
	worker = &container.Handle{Name: runID + "-worker-1", Service: "worker", Role: container.RoleNonDefault}
)

func newSource(redisStatus, workerStatus container.Status) *mockSource {
	src := &mockSource{}
	src.On("ListNonDefault", mock.Anything, mock.Anything).Return([]*container.Handle{redis, worker}, nil)
	src.On("ContainerStatus", mock.Anything, redis).Return(redisStatus, nil)
	src.On("ContainerStatus", mock.Anything, worker).Return(workerStatus, nil)
	src.On("FetchLogs", mock.Anything, redis).Return("Ready to accept connections\n", "", nil)
	src.On("FetchLogs", mock.Anything, worker).Return("", "worker crashed\n", nil)
	return src
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })
	return buf
}

func runConfig(policy, target string) *config.RunConfig {
	return &config.RunConfig{PrintLogs: policy, PrintLogsTarget: target}
}

var (
	running   = container.Status{Name: redis.Name, State: "running", Exists: true}
	exitedOK  = container.Status{Name: worker.Name, State: "exited", Exists: true}
	exitedBad = container.Status{Name: worker.Name, State: "exited", ExitCode: 3, Exists: true}
)

func TestDescribe(t *testing.T) {
	assert.Equal(t, "which status is: running", Describe(container.Status{State: "running"}))
	assert.Equal(t, "which exited with exitcode: 2", Describe(container.Status{State: "exited", ExitCode: 2}))
	assert.Equal(t, "which status is: restarting, exitcode: 1", Describe(container.Status{State: "restarting", ExitCode: 1}))
}

func TestCapture_Always(t *testing.T) {
	buf := captureLog(t)
	src := newSource(running, exitedOK)
	a := New(afero.NewMemMapFs(), runConfig(config.PrintLogsAlways, config.PrintLogsTargetStream), "/work", runID)

	records, err := a.Capture(context.Background(), src, nil, false)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Iteration)
	assert.Equal(t, 2, records[1].Iteration)
	assert.Equal(t, "Ready to accept connections\n", records[0].Stdout)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Here are logs of container: "+redis.Name+", which status is: running"))
	assert.Equal(t, 1, strings.Count(out, "Here are logs of container: "+worker.Name+", which exited with exitcode: 0"))
	src.AssertExpectations(t)
}

func TestCapture_Failure(t *testing.T) {
	tests := []struct {
		name          string
		worker        container.Status
		defaultFailed bool
		wantRecords   int
	}{
		{name: "everything succeeded", worker: exitedOK, wantRecords: 0},
		{name: "default command failed", worker: exitedOK, defaultFailed: true, wantRecords: 2},
		{name: "service container failed", worker: exitedBad, wantRecords: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			src := newSource(running, tt.worker)
			a := New(afero.NewMemMapFs(), runConfig(config.PrintLogsFailure, config.PrintLogsTargetStream), "/work", runID)

			records, err := a.Capture(context.Background(), src, nil, tt.defaultFailed)
			require.NoError(t, err)
			assert.Len(t, records, tt.wantRecords)
			if tt.wantRecords == 0 {
				assert.NotContains(t, buf.String(), "Here are logs")
				src.AssertNotCalled(t, "FetchLogs", mock.Anything, mock.Anything)
			} else {
				assert.Contains(t, buf.String(), "Here are logs")
			}
		})
	}
}

func TestCapture_Never(t *testing.T) {
	src := &mockSource{}
	a := New(afero.NewMemMapFs(), runConfig(config.PrintLogsNever, config.PrintLogsTargetStream), "/work", runID)

	records, err := a.Capture(context.Background(), src, nil, true)
	require.NoError(t, err)
	assert.Empty(t, records)
	src.AssertNotCalled(t, "ListNonDefault", mock.Anything, mock.Anything)
}

func TestCapture_FileTarget(t *testing.T) {
	buf := captureLog(t)
	fs := afero.NewMemMapFs()
	src := newSource(running, exitedBad)
	a := New(fs, runConfig(config.PrintLogsFailure, config.PrintLogsTargetFile), "/work", runID)

	records, err := a.Capture(context.Background(), src, nil, false)
	require.NoError(t, err)
	require.Len(t, records, 2)

	path := "/work/boxrun-logs-" + worker.Name + "-" + runID + ".txt"
	assert.Equal(t, path, records[1].Path)
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "worker crashed\n", string(data))

	assert.Contains(t, buf.String(),
		"The logs of container: "+worker.Name+", which exited with exitcode: 3, were saved to file: "+path)
	assert.NotContains(t, buf.String(), "Here are logs")
}

func TestCapture_StatusErrorSkipsContainer(t *testing.T) {
	captureLog(t)
	src := &mockSource{}
	src.On("ListNonDefault", mock.Anything, mock.Anything).Return([]*container.Handle{redis, worker}, nil)
	src.On("ContainerStatus", mock.Anything, redis).Return(container.Status{}, fmt.Errorf("inspect failed"))
	src.On("ContainerStatus", mock.Anything, worker).Return(exitedBad, nil)
	src.On("FetchLogs", mock.Anything, worker).Return("", "worker crashed\n", nil)
	a := New(afero.NewMemMapFs(), runConfig(config.PrintLogsFailure, config.PrintLogsTargetStream), "/work", runID)

	records, err := a.Capture(context.Background(), src, nil, false)
	assert.Error(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, worker, records[0].Handle)
}

func TestCapture_ListError(t *testing.T) {
	src := &mockSource{}
	src.On("ListNonDefault", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("ps failed"))
	a := New(afero.NewMemMapFs(), runConfig(config.PrintLogsAlways, config.PrintLogsTargetStream), "/work", runID)

	records, err := a.Capture(context.Background(), src, nil, false)
	assert.Error(t, err)
	assert.Empty(t, records)
}
