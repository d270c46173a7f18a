// Package pipeline exposes remote pipelines as lazily pulled resources
// with an ordered task list.
package pipeline

import (
	"context"
	"net/http"

	"github.com/c360-ai/lakeclient/resource"
	"github.com/c360-ai/lakeclient/rest"
)

type Pipeline struct {
	name   string
	client rest.Client
	res    *resource.Resource
}

func New(client rest.Client, name string) *Pipeline {
	p := &Pipeline{name: name, client: client}
	p.res = resource.New(
		"pipeline", name, client,
		func(ctx context.Context) (*http.Request, error) {
			return client.BuildGetPipeline(ctx, name)
		},
		resource.WithPush(func(ctx context.Context, state map[string]any) (*http.Request, error) {
			return client.BuildPushPipeline(ctx, name, state)
		}),
	)
	return p
}

// Create registers the pipeline definition at path (default
// pipelines/<name>.yml) and returns its shell.
func Create(ctx context.Context, client rest.Client, name string, path string) (*Pipeline, error) {
	if _, err := client.CreatePipeline(ctx, name, path); err != nil {
		return nil, err
	}
	return New(client, name), nil
}

func (p *Pipeline) Name() string { return p.name }

func (p *Pipeline) Data(ctx context.Context) (map[string]any, error) {
	return p.res.Data(ctx)
}

func (p *Pipeline) Field(ctx context.Context, name string) (any, error) {
	return p.res.Field(ctx, name)
}

func (p *Pipeline) Pull(ctx context.Context) error { return p.res.Pull(ctx) }

func (p *Pipeline) Push(ctx context.Context) error { return p.res.Push(ctx) }

func (p *Pipeline) Diff() resource.Report { return p.res.Diff() }

// Tasks is the ordered step sequence from the pulled state.
func (p *Pipeline) Tasks(ctx context.Context) ([]map[string]any, error) {
	data, err := p.res.Data(ctx)
	if err != nil {
		return nil, err
	}
	raw, _ := data["tasks"].([]any)
	tasks := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if task, ok := r.(map[string]any); ok {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// AddTask appends a step locally. Push to persist the new sequence.
func (p *Pipeline) AddTask(ctx context.Context, task map[string]any) error {
	data, err := p.res.Data(ctx)
	if err != nil {
		return err
	}
	raw, _ := data["tasks"].([]any)
	p.res.Set("tasks", append(raw, task))
	return nil
}

// RunState reports the remote run status. It always asks the server:
// run state is never served from the local snapshot.
func (p *Pipeline) RunState(ctx context.Context) (string, error) {
	current, err := p.client.GetPipeline(ctx, p.name)
	if err != nil {
		return "", err
	}
	if state, ok := current["run_state"].(string); ok {
		return state, nil
	}
	state, _ := current["status"].(string)
	return state, nil
}

// Delete removes the pipeline remotely.
func (p *Pipeline) Delete(ctx context.Context) error {
	return p.client.DeletePipeline(ctx, p.name)
}
