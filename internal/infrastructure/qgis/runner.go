// Package qgis drives processing algorithms through the qgis_process command line tool.
package qgis

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

// Runner implements ports.BackendRunner on top of qgis_process.
type Runner struct {
	binary    string
	outputDir string
	workspace ports.WorkspaceQuery
	logger    ports.Logger

	listMu    sync.Mutex
	available map[string]bool
}

// NewRunner builds a runner. workspace resolves layer ids to data sources and may be nil.
func NewRunner(settings domain.ExecutionSettings, workspace ports.WorkspaceQuery, logger ports.Logger) *Runner {
	outputDir := settings.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(os.TempDir(), "geogenie")
	}
	return &Runner{
		binary:    settings.GetQGISProcess(),
		outputDir: outputDir,
		workspace: workspace,
		logger:    logger,
	}
}

// Has reports whether qgis_process lists the algorithm. A successful listing is
// cached; a failed one is retried on the next call.
func (r *Runner) Has(ctx context.Context, executionID string) bool {
	r.listMu.Lock()
	defer r.listMu.Unlock()
	if r.available == nil {
		available, err := r.list(ctx)
		if err != nil {
			r.logger.Error("listing qgis algorithms failed", err, map[string]interface{}{"binary": r.binary})
			return false
		}
		r.available = available
	}
	return r.available[executionID]
}

// Count lists the installed algorithms without caching.
func (r *Runner) Count(ctx context.Context) (int, error) {
	algs, err := r.list(ctx)
	return len(algs), err
}

func (r *Runner) list(ctx context.Context) (map[string]bool, error) {
	cmd := exec.CommandContext(ctx, r.binary, "--json", "list")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s list: %w: %s", r.binary, err, strings.TrimSpace(stderr.String()))
	}
	return parseListing(stdout.Bytes())
}

// Run executes one algorithm synchronously and returns its "results" object.
func (r *Runner) Run(ctx context.Context, executionID string, params map[string]interface{}, fb ports.Feedback) (map[string]interface{}, error) {
	args, err := r.arguments(ctx, executionID, params)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	r.logger.Debug("starting qgis_process", map[string]interface{}{"execution_id": executionID, "args": args})
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", r.binary, err)
	}

	tail := scanProgress(stderrPipe, fb)
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", err, tail)
	}
	return parseResults(stdout.Bytes())
}

func (r *Runner) arguments(ctx context.Context, executionID string, params map[string]interface{}) ([]string, error) {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	args := []string{"--json", "run", executionID, "--"}
	for _, key := range keys {
		value, err := r.argumentValue(ctx, params[key])
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", key, err)
		}
		args = append(args, key+"="+value)
	}
	return args, nil
}

func (r *Runner) argumentValue(ctx context.Context, value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		if strings.HasPrefix(v, "memory:") {
			if err := os.MkdirAll(r.outputDir, domain.DirectoryPermissions); err != nil {
				return "", err
			}
			return filepath.Join(r.outputDir, uuid.NewString()+".gpkg"), nil
		}
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []string:
		return strings.Join(v, ","), nil
	case domain.ParamValue:
		if v.Kind == domain.KindLayer && r.workspace != nil {
			if layer, ok, err := r.workspace.LayerByID(ctx, v.Layer); err == nil && ok && layer.Source != "" {
				return layer.Source, nil
			}
		}
		return r.argumentValue(ctx, v.Interface())
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// scanProgress reads "0...10...20..." style progress and returns the last non-progress line.
func scanProgress(stderr io.Reader, fb ports.Feedback) string {
	reader := bufio.NewReader(stderr)
	var digits, line strings.Builder
	last := ""
	for {
		c, err := reader.ReadByte()
		if err != nil {
			break
		}
		switch {
		case c >= '0' && c <= '9':
			digits.WriteByte(c)
			line.WriteByte(c)
		case c == '.' && digits.Len() > 0:
			if pct, convErr := strconv.Atoi(digits.String()); convErr == nil && fb != nil {
				fb.SetProgress(pct)
			}
			digits.Reset()
			line.Reset()
		case c == '\n':
			if text := strings.TrimSpace(line.String()); text != "" {
				last = text
				if fb != nil {
					fb.PushInfo(text)
				}
			}
			digits.Reset()
			line.Reset()
		default:
			digits.Reset()
			if c != '.' {
				line.WriteByte(c)
			}
		}
	}
	return last
}

func parseListing(data []byte) (map[string]bool, error) {
	var listing struct {
		Providers map[string]struct {
			Algorithms map[string]json.RawMessage `json:"algorithms"`
		} `json:"providers"`
	}
	if err := json.Unmarshal(jsonBody(data), &listing); err != nil {
		return nil, fmt.Errorf("decode algorithm listing: %w", err)
	}
	out := map[string]bool{}
	for _, provider := range listing.Providers {
		for id := range provider.Algorithms {
			out[id] = true
		}
	}
	return out, nil
}

func parseResults(data []byte) (map[string]interface{}, error) {
	var doc struct {
		Results map[string]interface{} `json:"results"`
	}
	if err := json.Unmarshal(jsonBody(data), &doc); err != nil {
		return nil, fmt.Errorf("decode qgis_process output: %w", err)
	}
	if doc.Results == nil {
		doc.Results = map[string]interface{}{}
	}
	return doc.Results, nil
}

// jsonBody skips any banner printed before the JSON document.
func jsonBody(data []byte) []byte {
	if idx := bytes.IndexByte(data, '{'); idx > 0 {
		return data[idx:]
	}
	return data
}

var _ ports.BackendRunner = (*Runner)(nil)
