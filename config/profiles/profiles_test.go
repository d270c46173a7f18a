package profiles_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/c360-ai/lakeclient/config/profiles"
	"github.com/c360-ai/lakeclient/internal/try"
)

func TestProfileVerify(t *testing.T) {
	for name, testcase := range map[string]struct {
		profile profiles.Profile
		ok      bool
	}{
		"minimal valid profile": {
			profiles.Profile{Tenant: "acme", Stage: "prod"}, true,
		},
		"staging with apiRoot override": {
			profiles.Profile{Tenant: "acme", Stage: "staging", APIRoot: "http://localhost:8000"}, true,
		},
		"missing tenant": {
			profiles.Profile{Stage: "prod"}, false,
		},
		"unknown stage": {
			profiles.Profile{Tenant: "acme", Stage: "qa"}, false,
		},
		"apiRoot is not a URL": {
			profiles.Profile{Tenant: "acme", Stage: "prod", APIRoot: "not a url"}, false,
		},
	} {
		t.Run(name, func(t *testing.T) {
			err := testcase.profile.Verify()
			if testcase.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !testcase.ok && !errors.Is(err, profiles.ErrProfileInvalid) {
				t.Errorf("expected ErrProfileInvalid, got %v", err)
			}
		})
	}
}

func TestProfileAPIURL(t *testing.T) {
	p := profiles.Profile{Tenant: "acme", Stage: "staging"}
	if got := p.APIURL(); got != "https://api-staging.acme.c360.ai" {
		t.Errorf("unexpected api url: %s", got)
	}

	p.APIRoot = "http://localhost:8000"
	if got := p.APIURL(); got != "http://localhost:8000" {
		t.Errorf("override should win: %s", got)
	}
}

func TestProfileStoreRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles")

	store := profiles.ProfileStore{
		"default": {Tenant: "acme", Stage: "prod", APIKey: "secret"},
		"local":   {Tenant: "acme", Stage: "staging", APIRoot: "http://localhost:8000"},
	}

	if err := store.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	info := try.To(os.Stat(path)).OrFatal(t)
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("profile file should be 0600, got %o", perm)
	}

	loaded := try.To(profiles.LoadProfileStore(path)).OrFatal(t)
	if len(loaded) != 2 {
		t.Fatalf("unexpected store size: %d", len(loaded))
	}
	if got := loaded["default"]; got.Tenant != "acme" || got.APIKey != "secret" {
		t.Errorf("unexpected default profile: %+v", got)
	}
	if got := loaded["local"]; got.APIRoot != "http://localhost:8000" {
		t.Errorf("unexpected local profile: %+v", got)
	}
}

func TestLoadProfileStoreMissingFile(t *testing.T) {
	_, err := profiles.LoadProfileStore(filepath.Join(t.TempDir(), "no-such-file"))
	if !errors.Is(err, profiles.ErrProfileStoreNotFound) {
		t.Errorf("expected ErrProfileStoreNotFound, got %v", err)
	}
}
