// Package resource is the lazy pull/push model behind every remote
// entity the client exposes. A Resource holds the last pulled snapshot,
// the ETag the server issued with it, and the snapshot before that, so
// writes can be conditional and pulls can be diffed.
package resource

import (
	"context"
	"log"
	"net/http"
	"reflect"

	"github.com/c360-ai/lakeclient/logger"
	"github.com/c360-ai/lakeclient/rest"
)

// Sender performs a request composed elsewhere. *rest.Session satisfies
// it; tests substitute their own.
type Sender interface {
	Send(req *http.Request) (*http.Response, error)
}

// PullBuilder composes the unsent read request for the entity.
type PullBuilder func(ctx context.Context) (*http.Request, error)

// PushBuilder composes the unsent write request carrying state. The
// conditional header is added by Push, not here.
type PushBuilder func(ctx context.Context, state map[string]any) (*http.Request, error)

type Resource struct {
	kind string
	name string

	sender Sender
	pull   PullBuilder
	push   PushBuilder

	remoteState   map[string]any
	previousState map[string]any
	etag          string
	metadata      map[string]any
	pulled        bool

	logger *log.Logger
}

type Option func(*Resource)

func WithPush(push PushBuilder) Option {
	return func(r *Resource) { r.push = push }
}

func WithLogger(l *log.Logger) Option {
	return func(r *Resource) { r.logger = l }
}

// New builds an empty shell for the named remote entity. Nothing is
// fetched until Data, Field, or Pull is called.
func New(kind string, name string, sender Sender, pull PullBuilder, options ...Option) *Resource {
	r := &Resource{
		kind:   kind,
		name:   name,
		sender: sender,
		pull:   pull,
		logger: logger.Null(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Resource) Name() string { return r.name }

// ETag returns the concurrency token from the last pull, empty before
// the first one.
func (r *Resource) ETag() string { return r.etag }

func (r *Resource) Metadata() map[string]any { return r.metadata }

// Pulled reports whether the resource has been populated from the server.
func (r *Resource) Pulled() bool { return r.pulled }

// Pull fetches the authoritative state. It always performs the round
// trip; the local cache never short-circuits it. When the fetched body
// differs from the held one, the held one is archived so Diff has
// something to compare against.
func (r *Resource) Pull(ctx context.Context) error {
	req, err := r.pull(ctx)
	if err != nil {
		return err
	}
	resp, err := r.sender.Send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &rest.NotFoundError{Kind: r.kind, Name: r.name}
	}

	state := map[string]any{}
	err = rest.UnmarshalJSONResponse(resp, &state, rest.MessageFor{
		rest.Status4xx: "cannot read " + r.kind + " " + r.name,
		rest.Status5xx: "server error reading " + r.kind + " " + r.name,
	})
	if err != nil {
		return err
	}

	r.etag = resp.Header.Get("ETag")
	r.metadata = nil
	if raw := resp.Header.Get("Metadata"); raw != "" {
		md, err := ParseMetadata(raw)
		if err != nil {
			r.logger.Printf("ignoring metadata header of %s %s: %s", r.kind, r.name, err)
		} else {
			r.metadata = md
		}
	}

	if r.pulled && !reflect.DeepEqual(state, r.remoteState) {
		r.previousState = r.remoteState
	}
	r.remoteState = state
	r.pulled = true
	return nil
}

// Push writes the held state back. If a pull has populated the ETag, the
// write is conditional (If-Match) so the server can reject a concurrent
// modification; that rejection comes back as a *rest.RemoteError whose
// Conflict() is true, and the caller must Pull before pushing again. A
// successful push is followed by an immediate re-pull: the server's copy
// is authoritative, there is no client-side merge.
func (r *Resource) Push(ctx context.Context) error {
	if r.push == nil {
		return &rest.RemoteError{Status: http.StatusMethodNotAllowed, Message: r.kind + " is read-only"}
	}

	req, err := r.push(ctx, r.remoteState)
	if err != nil {
		return err
	}
	if r.etag != "" {
		req.Header.Set("If-Match", r.etag)
	}

	resp, err := r.sender.Send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	err = rest.UnmarshalResponseDiscardingPayload(resp, rest.MessageFor{
		rest.Status4xx: "cannot write " + r.kind + " " + r.name,
		rest.Status5xx: "server error writing " + r.kind + " " + r.name,
	})
	if err != nil {
		return err
	}

	return r.Pull(ctx)
}

// Data returns the remote state, pulling it first if this resource has
// never been populated. Mutations made to the returned map are local
// until Push.
func (r *Resource) Data(ctx context.Context) (map[string]any, error) {
	if !r.pulled {
		if err := r.Pull(ctx); err != nil {
			return nil, err
		}
	}
	return r.remoteState, nil
}

// Field looks up one attribute of the remote state, pulling lazily like
// Data. A key the server never sent is a *rest.NotFoundError.
func (r *Resource) Field(ctx context.Context, name string) (any, error) {
	data, err := r.Data(ctx)
	if err != nil {
		return nil, err
	}
	v, ok := data[name]
	if !ok {
		return nil, &rest.NotFoundError{Kind: r.kind + " field", Name: name}
	}
	return v, nil
}

// Set mutates one attribute locally. The change reaches the server on
// the next Push.
func (r *Resource) Set(name string, value any) {
	if r.remoteState == nil {
		r.remoteState = map[string]any{}
	}
	r.remoteState[name] = value
}

// LastModifiedBy is the user identifier from the metadata principal of
// the last pull, empty when the server sent none.
func (r *Resource) LastModifiedBy() string {
	return lastModifiedBy(r.metadata)
}

// Diff compares the previous distinct snapshot against the current one.
// A resource pulled at most once has nothing to compare and reports no
// changes.
func (r *Resource) Diff() Report {
	report := Report{LastModifiedBy: lastModifiedBy(r.metadata)}
	if r.previousState == nil {
		return report
	}
	report.Changes = diffStates(r.previousState, r.remoteState)
	return report
}
