package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

func (s *Session) GetDataset(ctx context.Context, name string, groups ...string) (map[string]any, error) {
	space, err := s.Dataspace(ctx, groups...)
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	err = s.Do(
		ctx, http.MethodGet, "dataset/get", &out,
		WithQuery("name", name),
		// comma-separated values for get
		WithQuery("groups", strings.Join(space, ",")),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BuildGetDataset is GetDataset as an unsent request, for the resource
// layer to send itself and read concurrency headers from.
func (s *Session) BuildGetDataset(ctx context.Context, name string, groups ...string) (*http.Request, error) {
	space, err := s.Dataspace(ctx, groups...)
	if err != nil {
		return nil, err
	}
	return s.Build(
		ctx, http.MethodGet, "dataset/get",
		WithQuery("name", name),
		WithQuery("groups", strings.Join(space, ",")),
	)
}

func (s *Session) CreateDataset(ctx context.Context, name string, dryRun bool, groups ...string) (map[string]any, error) {
	space, err := s.Dataspace(ctx, groups...)
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	err = s.Do(
		ctx, http.MethodPost, "dataset/create", &out,
		WithJSONBody(map[string]any{
			"name":    name,
			"groups":  space,
			"dry_run": dryRun,
		}),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BuildUpdateDataset composes the conditional-writable dataset update.
// fields carries the mutable attributes (description, ...).
func (s *Session) BuildUpdateDataset(ctx context.Context, name string, fields map[string]any, groups ...string) (*http.Request, error) {
	space, err := s.Dataspace(ctx, groups...)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"name":   name,
		"groups": space,
	}
	for k, v := range fields {
		payload[k] = v
	}
	return s.Build(ctx, http.MethodPut, "dataset/update", WithJSONBody(payload))
}

func (s *Session) DatasetPermissions(ctx context.Context, name string, groups ...string) (map[string]any, error) {
	space, err := s.Dataspace(ctx, groups...)
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	err = s.Do(
		ctx, http.MethodGet, "dataset/permission", &out,
		WithQuery("name", name),
		WithQuery("groups", strings.Join(space, ",")),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type UploadTableParams struct {
	Dataset   string
	Table     string
	Zone      string
	LocalPath string
	Metadata  map[string]any
	Groups    []string
	DryRun    bool
}

// UploadTable posts a local file as (part of) a table, multipart with the
// JSON payload in a part named "json" as the backend expects.
func (s *Session) UploadTable(ctx context.Context, p UploadTableParams) (map[string]any, error) {
	space, err := s.Dataspace(ctx, p.Groups...)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p.LocalPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	payload := map[string]any{
		"dataset_name":  p.Dataset,
		"table_name":    p.Table,
		"zone":          p.Zone,
		"table_details": p.Metadata,
		"groups":        space,
		"dry_run":       p.DryRun,
	}

	contentType, body, err := multipartBody(func(w *multipart.Writer) error {
		if err := writeJSONPart(w, payload); err != nil {
			return err
		}
		part, err := w.CreateFormFile("file", filepath.Base(p.LocalPath))
		if err != nil {
			return err
		}
		_, err = io.Copy(part, f)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	err = s.Do(
		ctx, http.MethodPost, "dataset/table/upload", &out,
		WithBody(contentType, body),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type RegisterTableParams struct {
	Dataset  string
	Table    string
	Zone     string
	S3Path   string
	Metadata map[string]any
	Groups   []string
}

// RegisterTable assumes the file already sits at the appropriate storage
// path and registers it with metadata.
func (s *Session) RegisterTable(ctx context.Context, p RegisterTableParams) (map[string]any, error) {
	space, err := s.Dataspace(ctx, p.Groups...)
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	err = s.Do(
		ctx, http.MethodPost, "dataset/table/register", &out,
		WithJSONBody(map[string]any{
			"dataset_name":  p.Dataset,
			"groups":        space,
			"table_name":    p.Table,
			"zone":          p.Zone,
			"s3_path":       p.S3Path,
			"table_details": p.Metadata,
		}),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TablePaths asks where a table's files live in object storage.
func (s *Session) TablePaths(ctx context.Context, dataset string, table string, groups ...string) ([]string, error) {
	space, err := s.Dataspace(ctx, groups...)
	if err != nil {
		return nil, err
	}

	out := struct {
		S3Paths []string `json:"s3_paths"`
	}{}
	err = s.Do(
		ctx, http.MethodGet, "dataset/table/get", &out,
		WithQuery("dataset", dataset),
		WithQuery("table", table),
		WithQuery("groups", strings.Join(space, ",")),
	)
	if err != nil {
		return nil, err
	}
	return out.S3Paths, nil
}

func (s *Session) LoadToViztool(ctx context.Context, dataset string, table string, zone string, groups ...string) (map[string]any, error) {
	space, err := s.Dataspace(ctx, groups...)
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	err = s.Do(
		ctx, http.MethodPost, "dataset/table/load_to_viztool", &out,
		WithJSONBody(map[string]any{
			"dataset": dataset,
			"groups":  space,
			"table":   table,
			"zone":    zone,
		}),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// InitializeDataset creates a dataset from a local directory, uploading
// every file under it keyed by its path relative to the directory.
func (s *Session) InitializeDataset(ctx context.Context, name string, localDir string, tableDetails map[string]any, groups ...string) (map[string]any, error) {
	space, err := s.Dataspace(ctx, groups...)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"name":          name,
		"table_details": tableDetails,
		"groups":        space,
	}

	root, err := filepath.Abs(localDir)
	if err != nil {
		return nil, err
	}

	contentType, body, err := multipartBody(func(w *multipart.Writer) error {
		if err := writeJSONPart(w, payload); err != nil {
			return err
		}

		return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}

			part, err := w.CreateFormFile(filepath.ToSlash(rel), info.Name())
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(part, f)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	err = s.Do(
		ctx, http.MethodPost, "dataset/initialize", &out,
		WithBody(contentType, body),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func multipartBody(write func(w *multipart.Writer) error) (string, io.Reader, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := write(w); err != nil {
		w.Close()
		return "", nil, err
	}
	if err := w.Close(); err != nil {
		return "", nil, err
	}
	return w.FormDataContentType(), buf, nil
}

// writeJSONPart adds the "json" part carrying the request payload, the
// shape the backend expects for multipart endpoints.
func writeJSONPart(w *multipart.Writer, payload map[string]any) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf("form-data; name=%q", "json"))
	header.Set("Content-Type", "application/json")
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	return json.NewEncoder(part).Encode(payload)
}
