// Package deviceauth implements the OAuth 2.0 device-authorization grant
// against the platform's token endpoint: obtain a device/user code pair,
// point the user at the verification page, poll until the grant is
// authorized, rejected, or given up on.
package deviceauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/c360-ai/lakeclient/logger"
)

var ErrDeviceFlow = errors.New("device authorization failed")
var ErrTimeout = errors.New("timed out waiting for user to log in")

const DefaultMaxPollAttempts = 100

const grantType = "urn:ietf:params:oauth:grant-type:device_code"

type State int

const (
	StateInit State = iota
	StateAwaitingUser
	StatePolling
	StateAuthorized
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAwaitingUser:
		return "awaiting user"
	case StatePolling:
		return "polling"
	case StateAuthorized:
		return "authorized"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed out"
	default:
		return fmt.Sprintf("unknown (%d)", int(s))
	}
}

// Flow drives one device-authorization attempt.
type Flow struct {
	authURL    string
	portalURL  string
	httpclient *http.Client
	opener     Opener
	logger     *log.Logger
	maxPolls   int
	state      State
}

type Option func(*Flow)

func WithHTTPClient(hc *http.Client) Option {
	return func(f *Flow) { f.httpclient = hc }
}

func WithOpener(o Opener) Option {
	return func(f *Flow) { f.opener = o }
}

func WithLogger(l *log.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

func WithMaxPollAttempts(n int) Option {
	return func(f *Flow) { f.maxPolls = n }
}

// New creates a Flow against a device-auth endpoint. portalURL is the
// user-facing site hosting the verification page.
func New(authURL string, portalURL string, options ...Option) *Flow {
	f := &Flow{
		authURL:    authURL,
		portalURL:  portalURL,
		httpclient: new(http.Client),
		opener:     BrowserOpener{},
		logger:     logger.Default(),
		maxPolls:   DefaultMaxPollAttempts,
		state:      StateInit,
	}
	for _, o := range options {
		o(f)
	}
	return f
}

func (f *Flow) State() State {
	return f.state
}

type deviceCodeResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	Interval                int    `json:"interval"`
	ExpiresIn               int    `json:"expires_in"`
}

// requestToken hits {authURL}/token. With a device code it polls for the
// grant outcome; without, it starts a new flow.
func (f *Flow) requestToken(ctx context.Context, deviceCode string) (map[string]any, error) {
	u := f.authURL + "/token"
	if deviceCode != "" {
		q := url.Values{}
		q.Set("device_code", deviceCode)
		q.Set("grant_type", grantType)
		u = u + "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("token endpoint sent non-JSON response: %w", err)
	}
	return payload, nil
}

// Authenticate runs the flow to a terminal state.
//
// The verification URL is opened with the flow's Opener; when that fails,
// the URL is logged for manual use and the flow carries on. Polling stops
// at the first token, the first unexpected error code, or after the
// attempt ceiling, whichever comes first. "authorization_pending" is the
// expected not-yet-ready answer and never fails the flow.
func (f *Flow) Authenticate(ctx context.Context) (*Credentials, error) {
	f.state = StateInit

	initial, err := f.requestToken(ctx, "")
	if err != nil {
		f.state = StateFailed
		return nil, fmt.Errorf("%w: %s", ErrDeviceFlow, err.Error())
	}

	var dc deviceCodeResponse
	if err := remarshal(initial, &dc); err != nil || dc.DeviceCode == "" {
		f.state = StateFailed
		return nil, fmt.Errorf("%w: unexpected initial response: %v", ErrDeviceFlow, initial)
	}

	f.state = StateAwaitingUser
	verification := fmt.Sprintf("%s/deviceauth/?code=%s", f.portalURL, dc.UserCode)
	if err := f.opener.Open(verification); err != nil {
		f.logger.Printf(
			"could not open a browser window (%s); log in manually at: %s",
			err.Error(), verification,
		)
	}

	f.state = StatePolling
	interval := time.Duration(dc.Interval) * time.Second

	for attempt := 0; attempt < f.maxPolls; attempt++ {
		if err := sleepContext(ctx, interval); err != nil {
			return nil, err
		}

		payload, err := f.requestToken(ctx, dc.DeviceCode)
		if err != nil {
			f.state = StateFailed
			return nil, fmt.Errorf("%w: %s", ErrDeviceFlow, err.Error())
		}

		if hasToken(payload) {
			creds := new(Credentials)
			if err := remarshal(payload, creds); err != nil {
				f.state = StateFailed
				return nil, fmt.Errorf("%w: malformed token response", ErrDeviceFlow)
			}
			creds.Raw = payload
			f.state = StateAuthorized
			return creds, nil
		}

		if code, _ := payload["error"].(string); code != "" && code != "authorization_pending" {
			f.state = StateFailed
			return nil, fmt.Errorf("%w: %v", ErrDeviceFlow, payload)
		}
	}

	f.state = StateTimedOut
	return nil, ErrTimeout
}

func hasToken(payload map[string]any) bool {
	access, _ := payload["access_token"].(string)
	id, _ := payload["id_token"].(string)
	return access != "" || id != ""
}

func remarshal(payload map[string]any, v any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, v)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
