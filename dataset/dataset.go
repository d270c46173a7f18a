// Package dataset exposes datasets and their tables as lazily pulled
// resources. A Dataset is an empty shell until first access; its table
// list lives inside the pulled state and table additions stay local
// until the dataset is pushed.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/c360-ai/lakeclient/resource"
	"github.com/c360-ai/lakeclient/rest"
)

// ErrTableExists rejects a duplicate table name before any network call.
var ErrTableExists = errors.New("table already exists in dataset")

type Dataset struct {
	name   string
	client rest.Client
	groups []string

	res *resource.Resource

	// workdir is where table files are cached locally.
	workdir    string
	downloader Downloader
}

// Downloader fetches a table's files from object storage into the local
// workdir and returns their paths. storage.Downloader satisfies it.
type Downloader interface {
	Fetch(ctx context.Context, dataset string, table string, groups ...string) ([]string, error)
}

type Option func(*Dataset)

// WithGroups scopes every call for this dataset to an explicit group
// path instead of the session default.
func WithGroups(groups ...string) Option {
	return func(d *Dataset) { d.groups = groups }
}

func WithWorkdir(dir string) Option {
	return func(d *Dataset) { d.workdir = dir }
}

// WithDownloader wires the object-storage collaborator Table.Load falls
// back to when no local copy exists.
func WithDownloader(down Downloader) Option {
	return func(d *Dataset) { d.downloader = down }
}

func New(client rest.Client, name string, options ...Option) *Dataset {
	d := &Dataset{name: name, client: client}
	for _, opt := range options {
		opt(d)
	}
	d.res = resource.New(
		"dataset", name, client,
		func(ctx context.Context) (*http.Request, error) {
			return client.BuildGetDataset(ctx, name, d.groups...)
		},
		resource.WithPush(func(ctx context.Context, state map[string]any) (*http.Request, error) {
			return client.BuildUpdateDataset(ctx, name, state, d.groups...)
		}),
	)
	return d
}

// Create registers the dataset remotely and returns its shell.
func Create(ctx context.Context, client rest.Client, name string, options ...Option) (*Dataset, error) {
	d := New(client, name, options...)
	if _, err := client.CreateDataset(ctx, name, false, d.groups...); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dataset) Name() string { return d.name }

// Data returns the remote state, pulling it on first access.
func (d *Dataset) Data(ctx context.Context) (map[string]any, error) {
	return d.res.Data(ctx)
}

func (d *Dataset) Field(ctx context.Context, name string) (any, error) {
	return d.res.Field(ctx, name)
}

func (d *Dataset) Pull(ctx context.Context) error { return d.res.Pull(ctx) }

// Push writes local mutations (description, added tables) back,
// conditionally when an ETag is held, and re-syncs from the server.
func (d *Dataset) Push(ctx context.Context) error { return d.res.Push(ctx) }

func (d *Dataset) Diff() resource.Report { return d.res.Diff() }

// SetDescription stages a new description locally. Push to persist it.
func (d *Dataset) SetDescription(description string) {
	d.res.Set("description", description)
}

// Tables materializes views over the table entries in the pulled state.
// Each view is bound to this dataset by reference.
func (d *Dataset) Tables(ctx context.Context) ([]*Table, error) {
	entries, err := d.tableEntries(ctx)
	if err != nil {
		return nil, err
	}
	tables := make([]*Table, 0, len(entries))
	for _, e := range entries {
		tables = append(tables, tableFromState(d, e))
	}
	return tables, nil
}

// GetTable scans the table list for the named entry.
func (d *Dataset) GetTable(ctx context.Context, name string) (*Table, error) {
	entries, err := d.tableEntries(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if tableName(e) == name {
			return tableFromState(d, e), nil
		}
	}
	return nil, &rest.NotFoundError{
		Kind: "table in dataset " + d.name, Name: name,
	}
}

// AddTable appends the table to the dataset's resource list. The
// mutation is local until Push; a name collision fails with
// ErrTableExists and leaves the list untouched.
func (d *Dataset) AddTable(ctx context.Context, t *Table) error {
	entries, err := d.tableEntries(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if tableName(e) == t.Name() {
			return fmt.Errorf("%w: %s", ErrTableExists, t.Name())
		}
	}

	raw := make([]any, 0, len(entries)+1)
	for _, e := range entries {
		raw = append(raw, e)
	}
	raw = append(raw, t.state())
	d.res.Set("resources", raw)
	return nil
}

// Permissions asks who can do what with this dataset.
func (d *Dataset) Permissions(ctx context.Context) (map[string]any, error) {
	return d.client.DatasetPermissions(ctx, d.name, d.groups...)
}

// LocalPath is the directory where this dataset's table files are
// cached. Empty when no workdir is configured.
func (d *Dataset) LocalPath() string {
	if d.workdir == "" {
		return ""
	}
	return filepath.Join(d.workdir, d.name)
}

func (d *Dataset) tableEntries(ctx context.Context) ([]map[string]any, error) {
	data, err := d.res.Data(ctx)
	if err != nil {
		return nil, err
	}
	raw, _ := data["resources"].([]any)
	entries := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if e, ok := r.(map[string]any); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func tableName(entry map[string]any) string {
	name, _ := entry["name"].(string)
	return name
}
