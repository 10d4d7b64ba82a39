package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Dataset owns the per-project registry of named tables loaded from
// <project>/document. Tables are registered at load and replaced on reload.
type Dataset struct {
	dir    string
	name   string
	logger *zap.Logger

	mu       sync.RWMutex
	tables   map[string]*Table
	order    []string
	colorMap map[string]map[string]string
}

// LoadResult reports the outcome of loading one named table. Bulk loads are
// partial-success: callers inspect Err per name instead of losing the whole
// batch to one malformed file.
type LoadResult struct {
	Name string
	Err  error
}

// Open prepares a dataset rooted at dir. The document subdirectory must
// exist; a project without one is a configuration error, not an empty
// dataset.
func Open(dir string, logger *zap.Logger) (*Dataset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	docDir := filepath.Join(dir, "document")
	info, err := os.Stat(docDir)
	if err != nil {
		return nil, fmt.Errorf("dataset: document directory %s: %w", docDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset: %s is not a directory", docDir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return &Dataset{
		dir:      dir,
		name:     filepath.Base(abs),
		logger:   logger,
		tables:   make(map[string]*Table),
		colorMap: make(map[string]map[string]string),
	}, nil
}

// Dir returns the project directory.
func (d *Dataset) Dir() string { return d.dir }

// ProjectName returns the base name of the project directory.
func (d *Dataset) ProjectName() string { return d.name }

// DocumentDir returns the directory holding the input tables.
func (d *Dataset) DocumentDir() string { return filepath.Join(d.dir, "document") }

// FigureDir returns the directory owned by the plotting layer.
func (d *Dataset) FigureDir() string { return filepath.Join(d.dir, "figure") }

// Table looks up a registered table by name.
func (d *Dataset) Table(name string) (*Table, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tables[name]
	return t, ok
}

// MustTable looks up a table, returning an error naming the offender when it
// is absent.
func (d *Dataset) MustTable(name string) (*Table, error) {
	if t, ok := d.Table(name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("dataset: table %q is not loaded", name)
}

// Names returns the registered table names in load order.
func (d *Dataset) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.order...)
}

// register stores a table, preserving first-registration order.
func (d *Dataset) register(t *Table) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tables[t.Name]; !ok {
		d.order = append(d.order, t.Name)
	}
	d.tables[t.Name] = t
}

// LoadAll discovers every document/<name>.<ext> and loads it.
func (d *Dataset) LoadAll() []LoadResult {
	entries, err := os.ReadDir(d.DocumentDir())
	if err != nil {
		return []LoadResult{{Name: "", Err: err}}
	}
	seen := make(map[string]struct{})
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := baseName(e.Name())
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return d.Load(names...)
}

// Load loads the named tables. Each name resolves to document/<name>.<ext>;
// per-name failures are reported in the result slice and do not stop the
// batch. After a successful batch the color map is rebuilt when both the
// color and category tables are present.
func (d *Dataset) Load(names ...string) []LoadResult {
	results := make([]LoadResult, 0, len(names))
	for _, name := range names {
		err := d.loadOne(name)
		if err != nil {
			d.logger.Warn("table load failed", zap.String("table", name), zap.Error(err))
		} else {
			d.logger.Debug("table loaded", zap.String("table", name))
		}
		results = append(results, LoadResult{Name: name, Err: err})
	}
	d.rebuildColorMap()
	return results
}

func baseName(file string) string {
	base := filepath.Base(file)
	if ext := filepath.Ext(base); ext != "" {
		return base[:len(base)-len(ext)]
	}
	return base
}
