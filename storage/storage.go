// Package storage fetches table files from the platform's S3-compatible
// object store into the local workdir. It satisfies dataset.Downloader.
package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/c360-ai/lakeclient/config"
	"github.com/c360-ai/lakeclient/config/profiles"
	"github.com/c360-ai/lakeclient/logger"
	"github.com/c360-ai/lakeclient/rest"
)

// TableLocator resolves where a table's files live remotely.
// rest.Session satisfies it.
type TableLocator interface {
	TablePaths(ctx context.Context, dataset string, table string, groups ...string) ([]string, error)
}

type Downloader struct {
	s3      *minio.Client
	locator TableLocator

	tenant  string
	stage   config.Stage
	workdir string

	progress bool
	logger   *log.Logger
}

type Option func(*Downloader)

func WithLogger(l *log.Logger) Option {
	return func(d *Downloader) { d.logger = l }
}

// WithProgress renders a progress bar per object on stderr.
func WithProgress() Option {
	return func(d *Downloader) { d.progress = true }
}

func WithS3Client(c *minio.Client) Option {
	return func(d *Downloader) { d.s3 = c }
}

// New builds a downloader for the profile's tenant. Object-store
// credentials come from the usual AWS environment variables; the
// endpoint from the profile, with AWS S3 as the default.
func New(prof *profiles.Profile, locator TableLocator, options ...Option) (*Downloader, error) {
	stage, err := config.ParseStage(prof.Stage)
	if err != nil {
		return nil, err
	}

	d := &Downloader{
		locator: locator,
		tenant:  prof.Tenant,
		stage:   stage,
		workdir: prof.Workdir,
		logger:  logger.Null(),
	}
	for _, opt := range options {
		opt(d)
	}
	if d.workdir == "" {
		d.workdir = "."
	}

	if d.s3 == nil {
		endpoint := prof.S3Endpoint
		secure := true
		if endpoint == "" {
			endpoint = "s3.amazonaws.com"
		} else {
			endpoint, secure = splitScheme(endpoint)
		}
		s3, err := minio.New(endpoint, &minio.Options{
			Creds:  credentials.NewEnvAWS(),
			Secure: secure,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: cannot reach object storage: %s", config.ErrConfiguration, err)
		}
		d.s3 = s3
	}
	return d, nil
}

// Bucket names the tenant's bucket for a storage sector, with the
// staging suffix when not in production.
func (d *Downloader) Bucket(sector string) string {
	name := fmt.Sprintf("%s-c360-%s", d.tenant, sector)
	if d.stage == config.StageStaging {
		name += "-staging"
	}
	return name
}

// Fetch resolves the table's remote objects and downloads each one under
// workdir/<dataset>/, keyed relative to the dataset root so later loads
// find them in the table's local directory. Files already present are
// downloaded again: the remote copy is authoritative.
func (d *Downloader) Fetch(ctx context.Context, dataset string, table string, groups ...string) ([]string, error) {
	remote, err := d.locator.TablePaths(ctx, dataset, table, groups...)
	if err != nil {
		return nil, err
	}
	if len(remote) == 0 {
		return nil, &rest.NotFoundError{Kind: "table files for", Name: dataset + "/" + table}
	}

	locals := make([]string, 0, len(remote))
	for _, s3path := range remote {
		bucket, key, err := ParseS3Path(s3path)
		if err != nil {
			return nil, err
		}

		rel := keyInDataset(key, dataset)
		local := filepath.Join(d.workdir, dataset, filepath.FromSlash(rel))
		if err := d.download(ctx, bucket, key, local); err != nil {
			return nil, err
		}
		locals = append(locals, local)
	}
	return locals, nil
}

// keyInDataset drops the dataspace prefix ahead of the dataset segment
// of an object key (users/alice/crm/zone/... -> zone/...).
func keyInDataset(key string, dataset string) string {
	if rel, ok := strings.CutPrefix(key, dataset+"/"); ok {
		return rel
	}
	if _, rel, ok := strings.Cut(key, "/"+dataset+"/"); ok {
		return rel
	}
	return key
}

func (d *Downloader) download(ctx context.Context, bucket string, key string, local string) error {
	d.logger.Printf("downloading s3://%s/%s -> %s", bucket, key, local)

	if !d.progress {
		return d.s3.FGetObject(ctx, bucket, key, local, minio.GetObjectOptions{})
	}

	obj, err := d.s3.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return err
	}
	f, err := os.Create(local)
	if err != nil {
		return err
	}
	defer f.Close()

	bar := pb.Full.Start64(stat.Size)
	bar.Set(pb.Bytes, true)
	defer bar.Finish()

	_, err = f.ReadFrom(bar.NewProxyReader(obj))
	return err
}

// ParseS3Path splits "s3://bucket/key/parts" into bucket and key.
func ParseS3Path(s3path string) (bucket string, key string, err error) {
	remainder, ok := strings.CutPrefix(s3path, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 path: %q", s3path)
	}
	bucket, key, ok = strings.Cut(remainder, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 path misses bucket or key: %q", s3path)
	}
	return bucket, key, nil
}

// splitScheme strips an http/https scheme off an endpoint, reporting
// whether TLS applies. Bare endpoints default to TLS.
func splitScheme(endpoint string) (string, bool) {
	if e, ok := strings.CutPrefix(endpoint, "https://"); ok {
		return e, true
	}
	if e, ok := strings.CutPrefix(endpoint, "http://"); ok {
		return e, false
	}
	return endpoint, true
}
