package pipeline_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c360-ai/lakeclient/internal/try"
	"github.com/c360-ai/lakeclient/pipeline"
	"github.com/c360-ai/lakeclient/rest/mock"
)

func jsonResponse(t *testing.T, status int, body map[string]any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(string(buf))),
	}
}

func TestTasks(t *testing.T) {
	remote := map[string]any{
		"name": "nightly",
		"tasks": []any{
			map[string]any{"name": "extract"},
			map[string]any{"name": "load"},
		},
	}

	c := mock.New(t)
	c.Impl.BuildGetPipeline = func(ctx context.Context, name string) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, "http://lake.test/pipelines/"+name, nil)
	}
	c.Impl.BuildPushPipeline = func(ctx context.Context, name string, state map[string]any) (*http.Request, error) {
		buf, err := json.Marshal(state)
		if err != nil {
			return nil, err
		}
		return http.NewRequestWithContext(
			ctx, http.MethodPut, "http://lake.test/pipelines/"+name, strings.NewReader(string(buf)),
		)
	}
	c.Impl.Send = func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodPut {
			next := map[string]any{}
			if err := json.NewDecoder(req.Body).Decode(&next); err != nil {
				t.Fatalf("bad push payload: %v", err)
			}
			remote = next
			return jsonResponse(t, http.StatusOK, map[string]any{}), nil
		}
		return jsonResponse(t, http.StatusOK, remote), nil
	}

	p := pipeline.New(c, "nightly")
	ctx := context.Background()

	tasks := try.To(p.Tasks(ctx)).OrFatal(t)
	if len(tasks) != 2 || tasks[0]["name"] != "extract" {
		t.Fatalf("unexpected tasks: %v", tasks)
	}

	// appended task is ordered last and survives the push round trip.
	if err := p.AddTask(ctx, map[string]any{"name": "publish"}); err != nil {
		t.Fatal(err)
	}
	if err := p.Push(ctx); err != nil {
		t.Fatal(err)
	}
	tasks = try.To(p.Tasks(ctx)).OrFatal(t)
	if len(tasks) != 3 || tasks[2]["name"] != "publish" {
		t.Errorf("unexpected tasks after push: %v", tasks)
	}
}

func TestSpecFromFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("well formed", func(t *testing.T) {
		path := write("nightly.yml", `name: nightly
schedule: "0 2 * * *"
tasks:
  - name: build
    steps:
      - name: extract
        query_file: extract.sql
      - name: load
  - name: publish
    steps:
      - name: report
        query_file: report.sql
`)
		spec := try.To(pipeline.SpecFromFile(path)).OrFatal(t)
		if spec.Name != "nightly" || len(spec.Tasks) != 2 {
			t.Errorf("unexpected spec: %+v", spec)
		}
		files := spec.QueryFiles()
		if len(files) != 2 || files[0] != "extract.sql" || files[1] != "report.sql" {
			t.Errorf("unexpected query files: %v", files)
		}
	})

	t.Run("no tasks rejected", func(t *testing.T) {
		path := write("empty.yml", "name: empty\n")
		if _, err := pipeline.SpecFromFile(path); err == nil {
			t.Error("a spec without tasks should not load")
		}
	})

	t.Run("not yaml rejected", func(t *testing.T) {
		path := write("broken.yml", "\t{{nope")
		if _, err := pipeline.SpecFromFile(path); err == nil {
			t.Error("malformed yaml should not load")
		}
	})
}

func TestRunStateIsNeverCached(t *testing.T) {
	status := "RUNNING"
	c := mock.New(t)
	c.Impl.GetPipeline = func(ctx context.Context, name string) (map[string]any, error) {
		return map[string]any{"name": name, "run_state": status}, nil
	}

	p := pipeline.New(c, "nightly")
	ctx := context.Background()

	if got := try.To(p.RunState(ctx)).OrFatal(t); got != "RUNNING" {
		t.Errorf("unexpected run state: %q", got)
	}

	status = "SUCCEEDED"
	if got := try.To(p.RunState(ctx)).OrFatal(t); got != "SUCCEEDED" {
		t.Errorf("run state served stale: %q", got)
	}
	if len(c.Calls.GetPipeline) != 2 {
		t.Errorf("each RunState must hit the server, called %d times", len(c.Calls.GetPipeline))
	}
}
