// Package s3store keeps every volume as one S3 object under a key prefix.
package s3store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/jgoldverg/splitfile/backend/objectstore"
	"github.com/jgoldverg/splitfile/pkg/store"
)

// Config selects the bucket and optional endpoint override (for S3
// compatible services such as MinIO).
type Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

type Backend struct {
	Client s3iface.S3API
	Bucket string
	Prefix string
}

var _ objectstore.Backend = (*Backend)(nil)

// New builds a backend from the shared AWS configuration (environment,
// ~/.aws) plus cfg.
func New(cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3store: bucket is required")
	}
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsCfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: creating session: %w", err)
	}
	return &Backend{Client: s3.New(sess), Bucket: cfg.Bucket, Prefix: cfg.Prefix}, nil
}

func (b *Backend) Store() *objectstore.Store {
	return objectstore.New(b)
}

func (b *Backend) key(name string) string {
	if b.Prefix == "" {
		return name
	}
	return path.Join(b.Prefix, name)
}

func (b *Backend) Get(name string) ([]byte, error) {
	key := b.key(name)
	rsp, err := b.Client.GetObject(&s3.GetObjectInput{
		Bucket: &b.Bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, b.mapErr("getting", key, err)
	}
	defer rsp.Body.Close()
	data, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object from bucket `%s` at key `%s`: %w", b.Bucket, key, err)
	}
	return data, nil
}

func (b *Backend) Put(name string, data []byte) error {
	key := b.key(name)
	if _, err := b.Client.PutObject(&s3.PutObjectInput{
		Bucket:        &b.Bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}); err != nil {
		return b.mapErr("putting", key, err)
	}
	return nil
}

func (b *Backend) Size(name string) (int64, error) {
	key := b.key(name)
	rsp, err := b.Client.HeadObject(&s3.HeadObjectInput{
		Bucket: &b.Bucket,
		Key:    &key,
	})
	if err != nil {
		return 0, b.mapErr("heading", key, err)
	}
	return aws.Int64Value(rsp.ContentLength), nil
}

// Delete reports a missing object as store.ErrNotExist; S3 itself treats
// deleting a missing key as success.
func (b *Backend) Delete(name string) error {
	if _, err := b.Size(name); err != nil {
		return err
	}
	key := b.key(name)
	if _, err := b.Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: &b.Bucket,
		Key:    &key,
	}); err != nil {
		return b.mapErr("deleting", key, err)
	}
	return nil
}

func (b *Backend) mapErr(op, key string, err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			err = fmt.Errorf("%w: %w", store.ErrNotExist, err)
		case "AccessDenied", "Forbidden":
			err = fmt.Errorf("%w: %w", store.ErrPermission, err)
		}
	}
	return fmt.Errorf("%s object in bucket `%s` at key `%s`: %w", op, b.Bucket, key, err)
}
