package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/c360-ai/lakeclient/tabular"
)

// Format is a table's file format on storage.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported table format: %q", s)
	}
}

// Table is a view over one table entry of a dataset. It references its
// Dataset, it does not own it: two views obtained from the same dataset
// share the dataset's pulled state.
type Table struct {
	name    string
	dataset *Dataset
	zone    string
	format  Format

	// path segments under the dataset root, relative.
	path []string
}

// NewTable builds an unbound table description, ready for
// Dataset.AddTable.
func NewTable(name string, zone string, format Format, path ...string) *Table {
	return &Table{name: name, zone: zone, format: format, path: path}
}

func tableFromState(d *Dataset, entry map[string]any) *Table {
	t := &Table{
		name:    tableName(entry),
		dataset: d,
	}
	t.zone, _ = entry["zone"].(string)
	if f, ok := entry["format"].(string); ok {
		t.format = Format(f)
	}
	if raw, ok := entry["path"].([]any); ok {
		for _, seg := range raw {
			if s, ok := seg.(string); ok {
				t.path = append(t.path, s)
			}
		}
	}
	return t
}

func (t *Table) Name() string   { return t.name }
func (t *Table) Zone() string   { return t.zone }
func (t *Table) Format() Format { return t.format }

// Dataset is the back-reference to the owning dataset, nil for an
// unbound table.
func (t *Table) Dataset() *Dataset { return t.dataset }

// defaultZone holds tables that do not name a storage zone.
const defaultZone = "source_confidential"

// PathInDataset is the table's storage location relative to the dataset
// root: the zone first, then the configured segments, then the name.
func (t *Table) PathInDataset() []string {
	zone := t.zone
	if zone == "" {
		zone = defaultZone
	}
	segments := make([]string, 0, len(t.path)+2)
	segments = append(segments, zone)
	segments = append(segments, t.path...)
	return append(segments, t.name)
}

// LocalPath is the directory holding this table's cached files, empty
// when the dataset has no workdir.
func (t *Table) LocalPath() string {
	if t.dataset == nil {
		return ""
	}
	root := t.dataset.LocalPath()
	if root == "" {
		return ""
	}
	return filepath.Join(append([]string{root}, t.PathInDataset()...)...)
}

// Load reads the table into memory: from the local cache when the
// expected files are already on disk, otherwise fetched through the
// dataset's storage downloader first.
func (t *Table) Load(ctx context.Context) (*tabular.Table, error) {
	files, err := t.localFiles()
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		if t.dataset == nil || t.dataset.downloader == nil {
			return nil, fmt.Errorf(
				"no local copy of table %s and no downloader configured", t.name,
			)
		}
		files, err = t.dataset.downloader.Fetch(
			ctx, t.dataset.name, t.name, t.dataset.groups...,
		)
		if err != nil {
			return nil, err
		}
	}

	switch t.format {
	case FormatParquet:
		return tabular.ReadParquet(files...)
	default:
		return tabular.ReadCSV(files...)
	}
}

// localFiles lists the cached files of this table's format, sorted so
// multi-part tables concatenate deterministically.
func (t *Table) localFiles() ([]string, error) {
	dir := t.LocalPath()
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ext := "." + string(t.format)
	if t.format == "" {
		ext = ".csv"
	}
	files := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (t *Table) state() map[string]any {
	path := make([]any, 0, len(t.path))
	for _, seg := range t.path {
		path = append(path, seg)
	}
	return map[string]any{
		"name":   t.name,
		"zone":   t.zone,
		"format": string(t.format),
		"path":   path,
	}
}
