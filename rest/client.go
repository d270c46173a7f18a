// Package rest is the request dispatcher of the data-lake client: one
// explicitly constructed Session per process (a caller convention, not an
// enforced one) holding the endpoint, the active credential, and the
// dataspace scoping, plus typed wrappers over the platform's dataset,
// pipeline and model endpoints.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/c360-ai/lakeclient/config"
	"github.com/c360-ai/lakeclient/config/profiles"
	"github.com/c360-ai/lakeclient/deviceauth"
	"github.com/c360-ai/lakeclient/logger"
)

// Client is the API surface the domain resources consume.
type Client interface {
	// Build composes an unsent, fully authorized request. Callers may add
	// headers (e.g. If-Match) before handing it to Send.
	Build(ctx context.Context, method string, endpoint string, options ...RequestOption) (*http.Request, error)

	// Send performs a request built by Build.
	Send(req *http.Request) (*http.Response, error)

	// Do builds, sends, and decodes the JSON response into out.
	// A nil out discards the payload.
	Do(ctx context.Context, method string, endpoint string, out any, options ...RequestOption) error

	// UserScope resolves the calling user's scope identifier, cached for
	// the lifetime of the credential.
	UserScope(ctx context.Context) (string, error)

	// Dataspace returns the scoping prefix for dataset paths: the
	// configured default space, or ["users", <scope>] for user-scoped
	// sessions, with the explicit groups appended.
	Dataspace(ctx context.Context, groups ...string) ([]string, error)

	// dataset endpoints

	GetDataset(ctx context.Context, name string, groups ...string) (map[string]any, error)
	BuildGetDataset(ctx context.Context, name string, groups ...string) (*http.Request, error)
	CreateDataset(ctx context.Context, name string, dryRun bool, groups ...string) (map[string]any, error)
	BuildUpdateDataset(ctx context.Context, name string, fields map[string]any, groups ...string) (*http.Request, error)
	DatasetPermissions(ctx context.Context, name string, groups ...string) (map[string]any, error)
	InitializeDataset(ctx context.Context, name string, localDir string, tableDetails map[string]any, groups ...string) (map[string]any, error)

	// table endpoints

	UploadTable(ctx context.Context, p UploadTableParams) (map[string]any, error)
	RegisterTable(ctx context.Context, p RegisterTableParams) (map[string]any, error)
	TablePaths(ctx context.Context, dataset string, table string, groups ...string) ([]string, error)
	LoadToViztool(ctx context.Context, dataset string, table string, zone string, groups ...string) (map[string]any, error)

	// pipeline endpoints

	GetPipeline(ctx context.Context, name string) (map[string]any, error)
	BuildGetPipeline(ctx context.Context, name string) (*http.Request, error)
	BuildPushPipeline(ctx context.Context, name string, state map[string]any) (*http.Request, error)
	CreatePipeline(ctx context.Context, name string, path string) (map[string]any, error)
	DeployPipelines(ctx context.Context, dir string) (map[string]any, error)
	DeletePipeline(ctx context.Context, name string) error

	// model endpoints

	ExperimentTrain(ctx context.Context, p ExperimentParams) (map[string]any, error)
	ExperimentStatus(ctx context.Context, name string) (map[string]any, error)
	ExperimentWait(ctx context.Context, name string) (map[string]any, error)
}

type Session struct {
	httpclient *http.Client
	api        string
	tenant     string
	stage      config.Stage

	apiKey string
	creds  *deviceauth.Credentials

	// defaultSpace, when set, replaces the ["users", <scope>] prefix.
	defaultSpace    []string
	cachedUserScope string

	deviceAuthURL string
	portalURL     string

	logger *log.Logger

	login     func(ctx context.Context) (*deviceauth.Credentials, error)
	keyReader func() (string, error)
}

var _ Client = (*Session)(nil)

type Option func(*Session)

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) { s.httpclient = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithDefaultSpace makes the session group-scoped instead of user-scoped.
func WithDefaultSpace(space ...string) Option {
	return func(s *Session) { s.defaultSpace = space }
}

// WithDeviceAuth overrides the device-auth and portal endpoints derived
// from tenant and stage.
func WithDeviceAuth(authURL string, portalURL string) Option {
	return func(s *Session) {
		s.deviceAuthURL = authURL
		s.portalURL = portalURL
	}
}

// WithAuthenticator replaces the device-authorization flow behind
// Authenticate. Tests use this to avoid the real token endpoint.
func WithAuthenticator(login func(ctx context.Context) (*deviceauth.Credentials, error)) Option {
	return func(s *Session) { s.login = login }
}

// WithKeyReader replaces the masked terminal prompt behind PromptAPIKey.
func WithKeyReader(read func() (string, error)) Option {
	return func(s *Session) { s.keyReader = read }
}

// New creates a Session for the given profile.
func New(prof *profiles.Profile, options ...Option) (*Session, error) {
	if err := prof.Verify(); err != nil {
		return nil, err
	}
	stage, err := config.ParseStage(prof.Stage)
	if err != nil {
		return nil, err
	}

	s := &Session{
		httpclient:    new(http.Client),
		api:           strings.TrimSuffix(prof.APIURL(), "/"),
		tenant:        prof.Tenant,
		stage:         stage,
		apiKey:        prof.APIKey,
		deviceAuthURL: config.DeviceAuthURL(prof.Tenant, stage),
		portalURL:     config.PortalURL(prof.Tenant, stage),
		logger:        logger.Null(),
	}

	for _, o := range options {
		o(s)
	}

	if s.login == nil {
		s.login = func(ctx context.Context) (*deviceauth.Credentials, error) {
			flow := deviceauth.New(
				s.deviceAuthURL, s.portalURL,
				deviceauth.WithHTTPClient(s.httpclient),
				deviceauth.WithLogger(s.logger),
			)
			return flow.Authenticate(ctx)
		}
	}
	if s.keyReader == nil {
		s.keyReader = readKeyMasked
	}

	return s, nil
}

// FromEnvironment creates a Session from the process environment
// (C360_TENANT, C360_STAGE, C360_API_KEY, C360_API_URL).
func FromEnvironment(options ...Option) (*Session, error) {
	proj, err := config.Load()
	if err != nil {
		return nil, err
	}
	return New(&profiles.Profile{
		Tenant:  proj.Tenant,
		Stage:   string(proj.Stage),
		APIRoot: proj.APIURL,
		APIKey:  proj.APIKey,
	}, options...)
}

func (s *Session) Tenant() string {
	return s.tenant
}

func (s *Session) Stage() config.Stage {
	return s.stage
}

// SetAPIKey sets the static credential. The user-scope cache is dropped:
// a different key can belong to a different principal.
func (s *Session) SetAPIKey(key string) {
	s.apiKey = key
	s.cachedUserScope = ""
}

// PromptAPIKey obtains the static credential from a masked terminal
// prompt. The key is never echoed and never logged.
func (s *Session) PromptAPIKey() error {
	key, err := s.keyReader()
	if err != nil {
		return err
	}
	s.SetAPIKey(key)
	return nil
}

func readKeyMasked() (string, error) {
	fmt.Fprint(os.Stderr, "API_KEY:")
	defer fmt.Fprintln(os.Stderr)
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(key), nil
}

// Authenticate runs the device-authorization flow and stores the returned
// bearer credential. An already-authenticated session fails fast; Logout
// first to log in as someone else.
func (s *Session) Authenticate(ctx context.Context) error {
	if s.creds != nil {
		return ErrAlreadyAuthenticated
	}
	creds, err := s.login(ctx)
	if err != nil {
		return err
	}
	s.creds = creds
	s.cachedUserScope = ""
	return nil
}

// Logout clears both the static key and the bearer credential. Idempotent.
func (s *Session) Logout() {
	s.creds = nil
	s.apiKey = ""
	s.cachedUserScope = ""
}

// authorization picks the Authorization header value: bearer token over
// API key, never an unauthenticated request.
func (s *Session) authorization() (string, error) {
	if s.creds != nil {
		if s.creds.Expired(time.Now()) {
			return "", fmt.Errorf(
				"%w: bearer token expired. run Authenticate() to log in again",
				ErrAuthentication,
			)
		}
		return "Bearer " + s.creds.Bearer(), nil
	}
	if s.apiKey != "" {
		return s.apiKey, nil
	}
	return "", fmt.Errorf(
		"%w: no credential available. call SetAPIKey() or Authenticate() first",
		ErrAuthentication,
	)
}

// build URL with path
func (s *Session) apipath(path ...string) string {
	parts := make([]string, 0, len(path)+1)
	parts = append(parts, s.api)
	for _, p := range path {
		parts = append(parts, strings.TrimPrefix(strings.TrimSuffix(p, "/"), "/"))
	}
	return strings.Join(parts, "/")
}

type requestSpec struct {
	query       url.Values
	body        io.Reader
	contentType string
}

type RequestOption func(*requestSpec) error

func WithQuery(key string, value string) RequestOption {
	return func(spec *requestSpec) error {
		spec.query.Set(key, value)
		return nil
	}
}

func WithJSONBody(v any) RequestOption {
	return func(spec *requestSpec) error {
		buf, err := json.Marshal(v)
		if err != nil {
			return err
		}
		spec.body = bytes.NewReader(buf)
		spec.contentType = "application/json"
		return nil
	}
}

func WithBody(contentType string, body io.Reader) RequestOption {
	return func(spec *requestSpec) error {
		spec.body = body
		spec.contentType = contentType
		return nil
	}
}

func (s *Session) Build(ctx context.Context, method string, endpoint string, options ...RequestOption) (*http.Request, error) {
	spec := &requestSpec{query: url.Values{}}
	for _, o := range options {
		if err := o(spec); err != nil {
			return nil, err
		}
	}

	auth, err := s.authorization()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, s.apipath(endpoint), spec.body)
	if err != nil {
		return nil, err
	}
	if len(spec.query) > 0 {
		req.URL.RawQuery = spec.query.Encode()
	}
	req.Header.Set("Authorization", auth)
	if spec.contentType != "" {
		req.Header.Set("Content-Type", spec.contentType)
	}
	return req, nil
}

func (s *Session) Send(req *http.Request) (*http.Response, error) {
	resp, err := s.httpclient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return resp, nil
}

func (s *Session) Do(ctx context.Context, method string, endpoint string, out any, options ...RequestOption) error {
	req, err := s.Build(ctx, method, endpoint, options...)
	if err != nil {
		return err
	}
	resp, err := s.Send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	messages := MessageFor{
		Status4xx: fmt.Sprintf("%s %s rejected by server", method, endpoint),
		Status5xx: "server error",
	}
	if out == nil {
		return UnmarshalResponseDiscardingPayload(resp, messages)
	}
	return UnmarshalJSONResponse(resp, out, messages)
}

func (s *Session) UserScope(ctx context.Context) (string, error) {
	if s.cachedUserScope != "" {
		return s.cachedUserScope, nil
	}

	out := struct {
		Scope string `json:"scope"`
	}{}
	if err := s.Do(ctx, http.MethodGet, "entity/user/scope", &out); err != nil {
		return "", err
	}
	s.cachedUserScope = out.Scope
	return s.cachedUserScope, nil
}

func (s *Session) Dataspace(ctx context.Context, groups ...string) ([]string, error) {
	if len(s.defaultSpace) > 0 {
		return append(append([]string{}, s.defaultSpace...), groups...), nil
	}

	scope, err := s.UserScope(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string{"users", scope}, groups...), nil
}
