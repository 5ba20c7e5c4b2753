package store

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"

	"github.com/gjeldshjelp/debt-cli/internal/model"
)

// MinIOConfig holds object storage settings.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinIOStore keeps snapshots as objects using the file store's layout.
type MinIOStore struct {
	client *minio.Client
	bucket string
	region string
}

// NewMinIO creates a MinIOStore. No request is made until first use.
func NewMinIO(cfg MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, eris.Wrap(err, "minio: create client")
	}
	return &MinIOStore{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

func objectKey(key Key) string {
	return path.Join(key.PersonID, key.Date, key.Site+snapshotSuffix)
}

func unvalidatedObjectKey(key Key) string {
	return path.Join(key.PersonID, key.Date, key.Site+unvalidatedSuffix)
}

func (s *MinIOStore) Migrate(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return eris.Wrapf(err, "minio: check bucket %s", s.bucket)
	}
	if exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	return eris.Wrapf(err, "minio: create bucket %s", s.bucket)
}

func (s *MinIOStore) Close() error { return nil }

func (s *MinIOStore) Put(ctx context.Context, key Key, snap model.RawSnapshot) error {
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := encode(snap)
	if err != nil {
		return err
	}
	return s.putObject(ctx, objectKey(key), data)
}

func (s *MinIOStore) PutUnvalidated(ctx context.Context, key Key, v any) error {
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}
	return s.putObject(ctx, unvalidatedObjectKey(key), data)
}

func (s *MinIOStore) putObject(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return eris.Wrapf(err, "minio: put object %q", name)
}

func (s *MinIOStore) Get(ctx context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	name := objectKey(key)
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "minio: get object %q", name)
	}
	defer obj.Close() //nolint:errcheck

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, eris.Wrapf(ErrNotFound, "minio: %s", key)
		}
		return nil, eris.Wrapf(err, "minio: read object %q", name)
	}
	return data, nil
}

func (s *MinIOStore) ListDates(ctx context.Context, personID string) ([]string, error) {
	if err := validSegment("person id", personID); err != nil {
		return nil, err
	}
	prefixes, err := s.list(ctx, personID+"/")
	if err != nil {
		return nil, err
	}

	var dates []string
	for _, p := range prefixes {
		if strings.HasSuffix(p, "/") {
			dates = append(dates, path.Base(strings.TrimSuffix(p, "/")))
		}
	}
	return sortDatesDesc(dates), nil
}

func (s *MinIOStore) ListSites(ctx context.Context, personID, date string) ([]string, error) {
	if err := validSegment("person id", personID); err != nil {
		return nil, err
	}
	names, err := s.list(ctx, personID+"/"+date+"/")
	if err != nil {
		return nil, err
	}

	var sites []string
	for _, n := range names {
		base := path.Base(n)
		if strings.HasSuffix(base, unvalidatedSuffix) || !strings.HasSuffix(base, snapshotSuffix) {
			continue
		}
		sites = append(sites, strings.TrimSuffix(base, snapshotSuffix))
	}
	return sortedUnique(sites), nil
}

// list returns object names and common prefixes directly under prefix.
func (s *MinIOStore) list(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, eris.Wrapf(obj.Err, "minio: list %q", prefix)
		}
		out = append(out, obj.Key)
	}
	return out, nil
}
