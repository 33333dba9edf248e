package s3store

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/require"

	"github.com/jgoldverg/splitfile/pkg/splitfile"
	"github.com/jgoldverg/splitfile/pkg/store"
)

// fakeS3 implements the handful of calls the backend makes; anything else
// panics through the nil embedded interface.
type fakeS3 struct {
	s3iface.S3API

	mu      sync.Mutex
	objects map[string][]byte
	denied  map[string]bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, denied: map[string]bool{}}
}

func (f *fakeS3) lookup(key string) ([]byte, error) {
	if f.denied[key] {
		return nil, awserr.New("AccessDenied", "access denied", nil)
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil)
	}
	return data, nil
}

func (f *fakeS3) GetObject(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.lookup(*in.Key)
	if err != nil {
		return nil, err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(append([]byte(nil), data...)))}, nil
}

func (f *fakeS3) HeadObject(in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.lookup(*in.Key)
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			// HEAD responses carry no body, so S3 reports a bare 404.
			return nil, awserr.New("NotFound", "not found", nil)
		}
		return nil, err
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) PutObject(in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denied[*in.Key] {
		return nil, awserr.New("AccessDenied", "access denied", nil)
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestBackendErrors(t *testing.T) {
	fake := newFakeS3()
	b := &Backend{Client: fake, Bucket: "bucket", Prefix: "volumes"}

	_, err := b.Get("missing")
	require.ErrorIs(t, err, store.ErrNotExist)
	_, err = b.Size("missing")
	require.ErrorIs(t, err, store.ErrNotExist)
	require.ErrorIs(t, b.Delete("missing"), store.ErrNotExist)

	fake.denied["volumes/secret"] = true
	_, err = b.Get("secret")
	require.ErrorIs(t, err, store.ErrPermission)

	require.NoError(t, b.Put("vol", []byte("abc")))
	require.Contains(t, fake.objects, "volumes/vol")
	size, err := b.Size("vol")
	require.NoError(t, err)
	require.EqualValues(t, 3, size)
	require.NoError(t, b.Delete("vol"))
	require.NotContains(t, fake.objects, "volumes/vol")
}

func TestSplitFileOnS3(t *testing.T) {
	fake := newFakeS3()
	b := &Backend{Client: fake, Bucket: "bucket"}
	opts := splitfile.Options{VolumeSize: 4, Mode: splitfile.ModeWriteTruncate, Base: "data.bin"}

	w, err := splitfile.Open(b.Store(), opts)
	require.NoError(t, err)
	_, err = w.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Equal(t, []byte("0123"), fake.objects["data.bin"])
	require.Equal(t, []byte("4567"), fake.objects["data.bin.2"])
	require.Equal(t, []byte("89"), fake.objects["data.bin.3"])

	// A shorter rewrite must drop the stale tail volumes.
	w, err = splitfile.Open(b.Store(), opts)
	require.NoError(t, err)
	_, err = w.Write([]byte("ab"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Len(t, fake.objects, 1)

	opts.Mode = splitfile.ModeRead
	r, err := splitfile.Open(b.Store(), opts)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "ab", string(got))
}
