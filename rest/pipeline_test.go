package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/c360-ai/lakeclient/internal/try"
	"github.com/c360-ai/lakeclient/rest"
)

func TestCreatePipelineBundlesQueryFiles(t *testing.T) {
	dir := t.TempDir()
	spec := `tasks:
  - steps:
      - name: build
        query_file: nightly.sql
      - name: publish
`
	if err := os.WriteFile(filepath.Join(dir, "nightly.yml"), []byte(spec), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "nightly.sql"), []byte("select 1"), 0644); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/pipelines" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not multipart: %v", err)
		}
		for _, part := range []string{"nightly.yml", "nightly.sql"} {
			if _, ok := r.MultipartForm.File[part]; !ok {
				t.Errorf("missing part %q", part)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "created"})
	}))
	defer ts.Close()

	s := try.To(rest.New(testProfile(ts.URL))).OrFatal(t)

	try.To(s.CreatePipeline(
		context.Background(), "nightly", filepath.Join(dir, "nightly.yml"),
	)).OrFatal(t)
}

func TestDeployPipelinesPicksYAMLAndSQLOnly(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"a.yml":      "tasks: []",
		"a.sql":      "select 1",
		"README.txt": "not deployable",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/pipelines" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not multipart: %v", err)
		}
		if len(r.MultipartForm.File) != 2 {
			t.Errorf("expected 2 parts, got %v", keys(r.MultipartForm.File))
		}
		if _, ok := r.MultipartForm.File["README.txt"]; ok {
			t.Error("non-pipeline file was deployed")
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "deployed"})
	}))
	defer ts.Close()

	s := try.To(rest.New(testProfile(ts.URL))).OrFatal(t)
	try.To(s.DeployPipelines(context.Background(), dir)).OrFatal(t)
}

func TestDeletePipeline(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/pipelines/nightly" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "deleted"})
	}))
	defer ts.Close()

	s := try.To(rest.New(testProfile(ts.URL))).OrFatal(t)
	if err := s.DeletePipeline(context.Background(), "nightly"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
}

func TestExperimentStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/model/exp_train/churn-v2" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "DONE"})
	}))
	defer ts.Close()

	s := try.To(rest.New(testProfile(ts.URL))).OrFatal(t)

	// a finished experiment returns without waiting.
	status := try.To(s.ExperimentWait(context.Background(), "churn-v2")).OrFatal(t)
	if status["status"] != "DONE" {
		t.Errorf("unexpected status: %v", status)
	}
}
