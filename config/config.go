// Package config resolves the client configuration: which tenant to talk
// to, which deployment stage, and the endpoint URLs derived from both.
//
// Tenant and stage are resolved once per Resolver (explicit override wins
// over environment) and cached; later environment changes are not observed.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

var ErrConfiguration = errors.New("client configuration error")

// Stage is a deployment environment of the platform.
type Stage string

const (
	StageProd    Stage = "prod"
	StageStaging Stage = "staging"
)

func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageProd, StageStaging:
		return Stage(s), nil
	default:
		return "", fmt.Errorf(
			"%w: stage can only be %q or %q (got %q)",
			ErrConfiguration, StageProd, StageStaging, s,
		)
	}
}

const (
	envTenant       = "C360_TENANT"
	envStage        = "C360_STAGE"
	envAPIKey       = "C360_API_KEY"
	envAPIURL       = "C360_API_URL"
	envS3Endpoint   = "C360_S3_ENDPOINT"
	envLocalWorkdir = "C360_LOCAL_WORKDIR"
)

// Resolver reads tenant and stage lazily and keeps them for its lifetime.
//
// The zero value is ready to use.
type Resolver struct {
	tenant string
	stage  Stage
}

// SetTenant overrides the tenant, regardless of the environment.
func (r *Resolver) SetTenant(tenant string) {
	r.tenant = tenant
}

// Tenant returns the cached tenant, resolving it from C360_TENANT on first
// call.
func (r *Resolver) Tenant() (string, error) {
	if r.tenant != "" {
		return r.tenant, nil
	}

	t := os.Getenv(envTenant)
	if t == "" {
		return "", fmt.Errorf(
			"%w: %s environment variable not available", ErrConfiguration, envTenant,
		)
	}
	r.tenant = t
	return r.tenant, nil
}

// SetStage overrides the stage. Invalid values are rejected.
func (r *Resolver) SetStage(stage string) error {
	s, err := ParseStage(stage)
	if err != nil {
		return err
	}
	r.stage = s
	return nil
}

// Stage returns the cached stage, resolving it from C360_STAGE on first
// call. Unset environment defaults to prod.
func (r *Resolver) Stage() (Stage, error) {
	if r.stage != "" {
		return r.stage, nil
	}

	s := os.Getenv(envStage)
	if s == "" {
		s = string(StageProd)
	}
	stage, err := ParseStage(s)
	if err != nil {
		return "", err
	}
	r.stage = stage
	return r.stage, nil
}

// APIURL returns the API endpoint for a tenant and stage.
func APIURL(tenant string, stage Stage) string {
	if stage == StageStaging {
		return fmt.Sprintf("https://api-staging.%s.c360.ai", tenant)
	}
	return fmt.Sprintf("https://api.%s.c360.ai", tenant)
}

// DeviceAuthURL returns the device-authorization endpoint for a tenant and
// stage.
func DeviceAuthURL(tenant string, stage Stage) string {
	if stage == StageStaging {
		return fmt.Sprintf("https://staging.device-auth.%s.c360.ai", tenant)
	}
	return fmt.Sprintf("https://device-auth.%s.c360.ai", tenant)
}

// PortalURL returns the user-facing portal for a tenant and stage.
func PortalURL(tenant string, stage Stage) string {
	if stage == StageStaging {
		return fmt.Sprintf("https://staging.%s.c360.ai", tenant)
	}
	return fmt.Sprintf("https://%s.c360.ai", tenant)
}

// APIURLFor is APIURL over the resolver's own tenant and stage, honoring
// the C360_API_URL override.
func (r *Resolver) APIURLFor() (string, error) {
	if u := os.Getenv(envAPIURL); u != "" {
		return u, nil
	}
	tenant, err := r.Tenant()
	if err != nil {
		return "", err
	}
	stage, err := r.Stage()
	if err != nil {
		return "", err
	}
	return APIURL(tenant, stage), nil
}

// Project is a snapshot of the environment-derived configuration.
type Project struct {
	Tenant       string
	Stage        Stage
	APIKey       string
	APIURL       string
	S3Endpoint   string
	LocalWorkdir string
}

// Load reads a .env file when present, then snapshots the project
// configuration from the environment.
func Load() (*Project, error) {
	_ = godotenv.Load()

	r := &Resolver{}
	tenant, err := r.Tenant()
	if err != nil {
		return nil, err
	}
	stage, err := r.Stage()
	if err != nil {
		return nil, err
	}
	apiURL, err := r.APIURLFor()
	if err != nil {
		return nil, err
	}

	workdir := os.Getenv(envLocalWorkdir)
	if workdir == "" {
		workdir = "."
	}

	return &Project{
		Tenant:       tenant,
		Stage:        stage,
		APIKey:       os.Getenv(envAPIKey),
		APIURL:       apiURL,
		S3Endpoint:   os.Getenv(envS3Endpoint),
		LocalWorkdir: workdir,
	}, nil
}
