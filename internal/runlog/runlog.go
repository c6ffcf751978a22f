// Package runlog persists a manifest for every pipeline run.
package runlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/carloom-cli/internal/model"
	"github.com/KaramelBytes/carloom-cli/internal/pipeline"
	"github.com/KaramelBytes/carloom-cli/internal/utils"
)

// DirName is the manifest directory under the output directory.
const DirName = "runs"

// Manifest records what a run read, how it was configured and what it wrote.
type Manifest struct {
	ID         string               `json:"id"`
	Command    string               `json:"command"`
	Source     string               `json:"source"`
	Policy     pipeline.Policy      `json:"policy"`
	RawRows    int                  `json:"raw_rows"`
	Clean      pipeline.CleanStats  `json:"clean"`
	Filter     pipeline.FilterStats `json:"filter"`
	Cars       int                  `json:"cars"`
	Fit        *model.Fit           `json:"fit,omitempty"`
	Outputs    map[string]string    `json:"outputs,omitempty"`
	Error      string               `json:"error,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`

	// Not serialized: directory holding the manifest
	dir string `json:"-"`
}

// New starts a manifest for a run writing under outputDir.
func New(command, source, outputDir string, p pipeline.Policy) *Manifest {
	return &Manifest{
		ID:        uuid.NewString(),
		Command:   command,
		Source:    source,
		Policy:    p,
		Outputs:   map[string]string{},
		StartedAt: time.Now().UTC(),
		dir:       filepath.Join(outputDir, DirName),
	}
}

// Record copies the stage counts of a pipeline result.
func (m *Manifest) Record(res *pipeline.Result) {
	if res == nil {
		return
	}
	m.RawRows = res.RawRows
	m.Clean = res.Clean
	m.Filter = res.Filter
	m.Cars = len(res.Cars)
}

// AddOutput notes a file the run wrote, e.g. "csv" or "report".
func (m *Manifest) AddOutput(kind, path string) {
	if m.Outputs == nil {
		m.Outputs = map[string]string{}
	}
	m.Outputs[kind] = path
}

// Fail records the error that ended the run.
func (m *Manifest) Fail(err error) {
	if err != nil {
		m.Error = err.Error()
	}
}

// Path returns the manifest file path.
func (m *Manifest) Path() string { return filepath.Join(m.dir, m.ID+".json") }

// Save stamps FinishedAt and writes the manifest atomically.
func (m *Manifest) Save() error {
	if m.dir == "" {
		return errors.New("manifest directory not set")
	}
	m.FinishedAt = time.Now().UTC()
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(m.Path(), data)
}

// Load reads a manifest by path.
func Load(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.dir = filepath.Dir(path)
	return &m, nil
}

// List returns the manifests under outputDir, newest first. A missing
// directory yields no manifests.
func List(outputDir string) ([]*Manifest, error) {
	dir := filepath.Join(outputDir, DirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var out []*Manifest
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		m, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}
