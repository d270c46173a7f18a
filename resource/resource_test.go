package resource_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/c360-ai/lakeclient/internal/try"
	"github.com/c360-ai/lakeclient/resource"
	"github.com/c360-ai/lakeclient/rest"
)

type plainSender struct{}

func (plainSender) Send(req *http.Request) (*http.Response, error) {
	return http.DefaultClient.Do(req)
}

func getBuilder(url string) resource.PullBuilder {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func putBuilder(url string) resource.PushBuilder {
	return func(ctx context.Context, state map[string]any) (*http.Request, error) {
		buf, err := json.Marshal(state)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(
			ctx, http.MethodPut, url, bytes.NewReader(buf),
		)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
}

// fakeEntity serves one versioned JSON document with ETag and If-Match
// handling, the way the backend serves datasets.
type fakeEntity struct {
	state    map[string]any
	rev      int
	author   string
	pulls    int
	pushes   int
	conflict bool // reject the next conditional write
}

func (f *fakeEntity) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			f.pulls += 1
			w.Header().Set("ETag", fmt.Sprintf("rev-%d", f.rev))
			if f.author != "" {
				w.Header().Set("Metadata", fmt.Sprintf(
					"{'lastmodifiedby': 'arn:aws:sts::1:assumed-role/lake/c360_user_%s'}",
					f.author,
				))
			}
			json.NewEncoder(w).Encode(f.state)
		case http.MethodPut:
			f.pushes += 1
			if f.conflict {
				w.WriteHeader(http.StatusPreconditionFailed)
				w.Write([]byte(`{"message": "etag mismatch"}`))
				return
			}
			next := map[string]any{}
			if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
				t.Errorf("bad push payload: %v", err)
			}
			f.state = next
			f.rev += 1
			w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}
}

func TestLazyPull(t *testing.T) {
	entity := &fakeEntity{state: map[string]any{"name": "crm", "description": "v1"}}
	ts := httptest.NewServer(entity.handler(t))
	defer ts.Close()

	r := resource.New("dataset", "crm", plainSender{}, getBuilder(ts.URL))
	ctx := context.Background()

	if r.Pulled() || r.ETag() != "" {
		t.Fatal("a fresh resource must be an empty shell")
	}

	// first access pulls, later accesses do not.
	v := try.To(r.Field(ctx, "description")).OrFatal(t)
	if v != "v1" {
		t.Errorf("unexpected field: %v", v)
	}
	try.To(r.Data(ctx)).OrFatal(t)
	try.To(r.Field(ctx, "name")).OrFatal(t)
	if entity.pulls != 1 {
		t.Errorf("lazy access should pull exactly once, pulled %d times", entity.pulls)
	}
	if r.ETag() != "rev-0" {
		t.Errorf("etag not captured: %q", r.ETag())
	}

	// an explicit Pull is never short-circuited.
	if err := r.Pull(ctx); err != nil {
		t.Fatal(err)
	}
	if entity.pulls != 2 {
		t.Errorf("explicit pull must hit the server, pulled %d times", entity.pulls)
	}

	// unknown keys are an error, not a nil.
	_, err := r.Field(ctx, "no_such_key")
	notFound := new(rest.NotFoundError)
	if !errors.As(err, &notFound) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestPullNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	r := resource.New("dataset", "ghost", plainSender{}, getBuilder(ts.URL))

	_, err := r.Data(context.Background())
	notFound := new(rest.NotFoundError)
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Kind != "dataset" || notFound.Name != "ghost" {
		t.Errorf("unexpected error detail: %v", notFound)
	}
}

func TestPushConditionalHeader(t *testing.T) {
	t.Run("never pulled, no If-Match", func(t *testing.T) {
		gotIfMatch := []string{}
		entity := &fakeEntity{state: map[string]any{"name": "crm"}}
		inner := entity.handler(t)
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPut {
				gotIfMatch = append(gotIfMatch, r.Header.Get("If-Match"))
			}
			inner(w, r)
		}))
		defer ts.Close()

		r := resource.New(
			"dataset", "crm", plainSender{}, getBuilder(ts.URL),
			resource.WithPush(putBuilder(ts.URL)),
		)
		r.Set("description", "fresh")
		if err := r.Push(context.Background()); err != nil {
			t.Fatal(err)
		}
		if gotIfMatch[0] != "" {
			t.Errorf("push before any pull must be unconditional, got If-Match %q", gotIfMatch[0])
		}
	})

	t.Run("pulled, If-Match carries the etag", func(t *testing.T) {
		gotIfMatch := []string{}
		entity := &fakeEntity{state: map[string]any{"name": "crm", "description": "v1"}}
		inner := entity.handler(t)
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPut {
				gotIfMatch = append(gotIfMatch, r.Header.Get("If-Match"))
			}
			inner(w, r)
		}))
		defer ts.Close()

		r := resource.New(
			"dataset", "crm", plainSender{}, getBuilder(ts.URL),
			resource.WithPush(putBuilder(ts.URL)),
		)
		ctx := context.Background()
		if err := r.Pull(ctx); err != nil {
			t.Fatal(err)
		}
		r.Set("description", "v2")
		if err := r.Push(ctx); err != nil {
			t.Fatal(err)
		}
		if gotIfMatch[0] != "rev-0" {
			t.Errorf("expected If-Match rev-0, got %q", gotIfMatch[0])
		}

		// push re-pulls: the held state and etag are the post-write ones.
		if entity.pulls != 2 {
			t.Errorf("push must re-pull, pulled %d times", entity.pulls)
		}
		if r.ETag() != "rev-1" {
			t.Errorf("etag not refreshed after push: %q", r.ETag())
		}
		state := try.To(r.Data(ctx)).OrFatal(t)
		if state["description"] != "v2" {
			t.Errorf("state not re-synced: %v", state)
		}
	})
}

func TestPushConflictIsNotRetried(t *testing.T) {
	entity := &fakeEntity{
		state:    map[string]any{"name": "crm"},
		conflict: true,
	}
	ts := httptest.NewServer(entity.handler(t))
	defer ts.Close()

	r := resource.New(
		"dataset", "crm", plainSender{}, getBuilder(ts.URL),
		resource.WithPush(putBuilder(ts.URL)),
	)
	ctx := context.Background()
	if err := r.Pull(ctx); err != nil {
		t.Fatal(err)
	}

	err := r.Push(ctx)
	remote := new(rest.RemoteError)
	if !errors.As(err, &remote) || !remote.Conflict() {
		t.Fatalf("expected conflict RemoteError, got %v", err)
	}
	if entity.pushes != 1 {
		t.Errorf("conflicting push must not be retried, pushed %d times", entity.pushes)
	}
	if entity.pulls != 1 {
		t.Errorf("failed push must not re-pull, pulled %d times", entity.pulls)
	}
}

func TestDiff(t *testing.T) {
	entity := &fakeEntity{
		state:  map[string]any{"name": "crm", "description": "v1", "owner": "ops"},
		author: "alice",
	}
	ts := httptest.NewServer(entity.handler(t))
	defer ts.Close()

	r := resource.New("dataset", "crm", plainSender{}, getBuilder(ts.URL))
	ctx := context.Background()

	// pulled once: nothing to compare against.
	if err := r.Pull(ctx); err != nil {
		t.Fatal(err)
	}
	if report := r.Diff(); len(report.Changes) != 0 {
		t.Errorf("single pull must diff empty, got %v", report.Changes)
	}

	// identical re-pull must not archive a snapshot.
	if err := r.Pull(ctx); err != nil {
		t.Fatal(err)
	}
	if report := r.Diff(); len(report.Changes) != 0 {
		t.Errorf("identical pulls must diff empty, got %v", report.Changes)
	}

	entity.state = map[string]any{
		"name": "crm", "description": "v2",
		"tags": []any{"gold"},
	}
	entity.rev = 1
	if err := r.Pull(ctx); err != nil {
		t.Fatal(err)
	}

	report := r.Diff()
	if report.LastModifiedBy != "alice" {
		t.Errorf("author not extracted from metadata: %q", report.LastModifiedBy)
	}
	want := []resource.Change{
		{Op: resource.OpChange, Path: "description", From: "v1", To: "v2"},
		{Op: resource.OpRemove, Path: "owner", From: "ops"},
		{Op: resource.OpAdd, Path: "tags", To: []any{"gold"}},
	}
	if len(report.Changes) != len(want) {
		t.Fatalf("unexpected changes: %v", report.Changes)
	}
	for i, w := range want {
		got := report.Changes[i]
		if got.Op != w.Op || got.Path != w.Path {
			t.Errorf("change %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestDiffNestedStructures(t *testing.T) {
	prevSrv := map[string]any{
		"resources": []any{
			map[string]any{"name": "events", "zone": "raw"},
			map[string]any{"name": "users", "zone": "raw"},
		},
	}
	nextSrv := map[string]any{
		"resources": []any{
			map[string]any{"name": "events", "zone": "curated"},
			map[string]any{"name": "users", "zone": "raw"},
			map[string]any{"name": "orders", "zone": "raw"},
		},
	}

	entity := &fakeEntity{state: prevSrv}
	ts := httptest.NewServer(entity.handler(t))
	defer ts.Close()

	r := resource.New("dataset", "crm", plainSender{}, getBuilder(ts.URL))
	ctx := context.Background()
	if err := r.Pull(ctx); err != nil {
		t.Fatal(err)
	}
	entity.state = nextSrv
	if err := r.Pull(ctx); err != nil {
		t.Fatal(err)
	}

	report := r.Diff()
	wantPaths := map[string]resource.Op{
		"resources[0].zone": resource.OpChange,
		"resources[2]":      resource.OpAdd,
	}
	if len(report.Changes) != len(wantPaths) {
		t.Fatalf("unexpected changes: %v", report.Changes)
	}
	for _, c := range report.Changes {
		if op, ok := wantPaths[c.Path]; !ok || op != c.Op {
			t.Errorf("unexpected change: %v", c)
		}
	}
}
