package rest

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

func (s *Session) GetPipeline(ctx context.Context, name string) (map[string]any, error) {
	out := map[string]any{}
	if err := s.Do(ctx, http.MethodGet, "pipelines/"+name, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session) BuildGetPipeline(ctx context.Context, name string) (*http.Request, error) {
	return s.Build(ctx, http.MethodGet, "pipelines/"+name)
}

func (s *Session) BuildPushPipeline(ctx context.Context, name string, state map[string]any) (*http.Request, error) {
	return s.Build(ctx, http.MethodPut, "pipelines/"+name, WithJSONBody(state))
}

type pipelineSpec struct {
	Tasks []struct {
		Steps []map[string]any `yaml:"steps"`
	} `yaml:"tasks"`
}

// CreatePipeline registers the pipeline YAML at path (default:
// pipelines/{name}.yml), bundling any query files its steps reference.
func (s *Session) CreatePipeline(ctx context.Context, name string, path string) (map[string]any, error) {
	if path == "" {
		path = fmt.Sprintf("pipelines/%s.yml", name)
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	spec := pipelineSpec{}
	if err := yaml.Unmarshal(buf, &spec); err != nil {
		return nil, err
	}

	basepath := filepath.Dir(path)

	contentType, body, err := multipartBody(func(w *multipart.Writer) error {
		part, err := w.CreateFormFile(name+".yml", name+".yml")
		if err != nil {
			return err
		}
		if _, err := part.Write(buf); err != nil {
			return err
		}

		for _, task := range spec.Tasks {
			for _, step := range task.Steps {
				queryFile, ok := step["query_file"].(string)
				if !ok || queryFile == "" {
					continue
				}
				if err := addFilePart(w, queryFile, filepath.Join(basepath, queryFile)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	err = s.Do(
		ctx, http.MethodPost, "pipelines", &out,
		WithBody(contentType, body),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeployPipelines picks up all YAML and SQL files under dir and attempts
// to deploy everything.
func (s *Session) DeployPipelines(ctx context.Context, dir string) (map[string]any, error) {
	contentType, body, err := multipartBody(func(w *multipart.Writer) error {
		return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			if !strings.HasSuffix(path, ".yml") && !strings.HasSuffix(path, ".sql") {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			return addFilePart(w, filepath.ToSlash(rel), path)
		})
	})
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	err = s.Do(
		ctx, http.MethodPut, "pipelines", &out,
		WithBody(contentType, body),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session) DeletePipeline(ctx context.Context, name string) error {
	return s.Do(ctx, http.MethodDelete, "pipelines/"+name, nil)
}

func addFilePart(w *multipart.Writer, fieldname string, path string) error {
	part, err := w.CreateFormFile(fieldname, filepath.Base(path))
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
}
