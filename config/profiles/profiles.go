package profiles

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/hectane/go-acl"
	yaml "gopkg.in/yaml.v3"

	"github.com/c360-ai/lakeclient/config"
	"github.com/c360-ai/lakeclient/config/open"
)

var ErrProfileStoreNotFound = errors.New("profile file is not found")
var ErrCannotCreateProfile = errors.New("cannot create profile file")
var ErrCannotUpdateProfile = errors.New("cannot update profile file")
var ErrProfileInvalid = errors.New("profile is invalid")

// ProfileStore is a map from profile name to Profile.
type ProfileStore map[string]*Profile

// Profile is a stored connection to one tenant of the data-lake platform.
type Profile struct {
	Tenant string `yaml:"tenant"`
	Stage  string `yaml:"stage"`

	// override of the derived API endpoint. Useful against local stacks.
	APIRoot string `yaml:"apiRoot,omitempty"`

	// static credential. Device-auth tokens are never persisted.
	APIKey string `yaml:"apiKey,omitempty"`

	// override of the object-storage endpoint.
	S3Endpoint string `yaml:"s3Endpoint,omitempty"`

	// directory for table downloads. Defaults to the working directory.
	Workdir string `yaml:"workdir,omitempty"`
}

func verifyURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}

// Verify Profile
//
// # Return
//
// nil if it is valid. Otherwise, ErrProfileInvalid error.
func (p *Profile) Verify() error {
	if p.Tenant == "" {
		return fmt.Errorf("%w: tenant is required", ErrProfileInvalid)
	}
	if _, err := config.ParseStage(p.Stage); err != nil {
		return fmt.Errorf("%w: %s", ErrProfileInvalid, err)
	}
	if p.APIRoot != "" && !verifyURL(p.APIRoot) {
		return fmt.Errorf("%w: apiRoot is not URL: %s", ErrProfileInvalid, p.APIRoot)
	}
	return nil
}

// APIURL is the profile's endpoint: the apiRoot override when set,
// otherwise derived from tenant and stage.
func (p *Profile) APIURL() string {
	if p.APIRoot != "" {
		return p.APIRoot
	}
	stage, _ := config.ParseStage(p.Stage)
	return config.APIURL(p.Tenant, stage)
}

// LoadProfileStore loads profile store from file.
func LoadProfileStore(filepath string) (ProfileStore, error) {
	buf, err := os.ReadFile(filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrProfileStoreNotFound, filepath)
		}
		return nil, err
	}
	return Unmarshall(buf)
}

// Unmarshall profile store from yaml in byte array.
func Unmarshall(buf []byte) (ProfileStore, error) {
	ret := map[string]*Profile{}
	err := yaml.Unmarshal(buf, &ret)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Save profile store to file.
//
// Profiles can hold API keys, so the file is kept readable by the current
// user only, and the previous content survives as a backup until the write
// lands.
func (ps *ProfileStore) Save(path string) error {
	saving := false

	if err := os.MkdirAll(filepath.Dir(path), os.FileMode(0700)); err != nil {
		return err
	}

	bkpath := path + ".backup"
	bk, err := open.NewSafeFile(bkpath)
	if err != nil {
		return err
	}
	defer func() {
		if !saving {
			os.Remove(bkpath)
		}
	}()
	defer bk.Close()

	f, err := os.OpenFile(path, os.O_RDWR, os.FileMode(0600))
	if err == nil {
		// In case of the existing file with loose permissions,
		// enforce permission to 0600.
		if err := acl.Chmod(path, os.FileMode(0600)); err != nil {
			return err
		}
	} else {
		if os.IsPermission(err) {
			return fmt.Errorf(
				"%w, because no permission to write file at %s",
				ErrCannotUpdateProfile, path,
			)
		} else if os.IsNotExist(err) {
			f_, err_ := open.NewSafeFile(path)
			if err_ != nil {
				return fmt.Errorf(
					"%w: cannot create a file at %s",
					ErrCannotCreateProfile, path,
				)
			}
			f = f_
		} else {
			return err
		}
	}
	defer f.Close()

	if err := bk.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	if _, err := io.Copy(bk, f); err != nil {
		return err
	}

	saving = true
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	buf, err := yaml.Marshal(ps)
	if err != nil {
		return err
	}
	_, err = f.Write(buf)

	if err == nil {
		saving = false
	}
	return err
}
