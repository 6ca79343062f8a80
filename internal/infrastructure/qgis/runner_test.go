package qgis

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/infrastructure/workspace"
	"github.com/doeshing/geogenie-go/internal/pkg/logger"
)

const fakeQGISProcess = `#!/bin/sh
if [ "$2" = "list" ]; then
  echo 'banner'
  echo '{"providers": {"native": {"algorithms": {"native:buffer": {}, "native:clip": {}}}}}'
  exit 0
fi
if [ "$3" = "native:fail" ]; then
  echo "Unable to open input layer" >&2
  exit 1
fi
printf '0...50...' >&2
echo 'Writing output' >&2
printf '100...' >&2
shift 4
printf '{"results": {"OUTPUT": "%s", "ARGS": "%s"}}' "$(echo "$@" | tr ' ' '\n' | grep '^OUTPUT=' | cut -d= -f2)" "$*"
`

type recordingFeedback struct {
	mu       sync.Mutex
	progress []int
	infos    []string
}

func (f *recordingFeedback) SetProgress(p int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, p)
}

func (f *recordingFeedback) PushInfo(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos = append(f.infos, msg)
}

func (f *recordingFeedback) PushWarning(string) {}

func (f *recordingFeedback) Canceled() bool {
	return false
}

func fakeRunner(t *testing.T) *Runner {
	t.Helper()
	dir := t.TempDir()
	bin := filepath.Join(dir, "qgis_process")
	require.NoError(t, os.WriteFile(bin, []byte(fakeQGISProcess), 0o755))

	ws := workspace.NewMemory(domain.ProjectInfo{},
		domain.Layer{ID: "roads_1", Name: "Roads", Kind: domain.DataVector, Valid: true, Source: "/data/roads.gpkg|layername=roads"},
	)
	return NewRunner(domain.ExecutionSettings{QGISProcess: bin, OutputDir: filepath.Join(dir, "out")}, ws, logger.NewTest(t))
}

func TestRunner_Has(t *testing.T) {
	r := fakeRunner(t)
	assert.True(t, r.Has(context.Background(), "native:buffer"))
	assert.False(t, r.Has(context.Background(), "native:teleport"))

	n, err := r.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunner_Run(t *testing.T) {
	r := fakeRunner(t)
	fb := &recordingFeedback{}

	results, err := r.Run(context.Background(), "native:buffer", map[string]interface{}{
		"INPUT":    domain.LayerValue("roads_1"),
		"FIELD":    "roads_1",
		"DISTANCE": 12.5,
		"DISSOLVE": false,
		"OUTPUT":   "memory:temp_output",
	}, fb)
	require.NoError(t, err)

	output, ok := results["OUTPUT"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(output, ".gpkg"), output)
	assert.True(t, strings.HasPrefix(output, r.outputDir), output)

	args := results["ARGS"].(string)
	assert.Contains(t, args, "DISTANCE=12.5")
	assert.Contains(t, args, "DISSOLVE=false")
	assert.Contains(t, args, "INPUT=/data/roads.gpkg|layername=roads")
	assert.Contains(t, args, "FIELD=roads_1")

	assert.Equal(t, []int{0, 50, 100}, fb.progress)
	assert.Equal(t, []string{"Writing output"}, fb.infos)
}

func TestRunner_HasRetriesFailedListing(t *testing.T) {
	r := fakeRunner(t)
	working := r.binary
	r.binary = filepath.Join(t.TempDir(), "missing_qgis_process")
	assert.False(t, r.Has(context.Background(), "native:buffer"))

	r.binary = working
	assert.True(t, r.Has(context.Background(), "native:buffer"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, r.Has(ctx, "native:clip"), "a cached listing needs no process")
}

func TestRunner_HasHonoursContext(t *testing.T) {
	r := fakeRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, r.Has(ctx, "native:buffer"))
	assert.True(t, r.Has(context.Background(), "native:buffer"))
}

func TestRunner_RunFailure(t *testing.T) {
	r := fakeRunner(t)
	_, err := r.Run(context.Background(), "native:fail", map[string]interface{}{}, &recordingFeedback{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to open input layer")
}

func TestParseResults_Banner(t *testing.T) {
	results, err := parseResults([]byte("QGIS 3.34\n{\"results\": {\"OUTPUT\": \"/tmp/a.gpkg\"}}"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.gpkg", results["OUTPUT"])

	_, err = parseResults([]byte("garbage"))
	assert.Error(t, err)
}
