package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	BucketVideos     = "videos"
	BucketThumbnails = "thumbnails"
)

var (
	ErrUnknownBucket = errors.New("unknown bucket")
	ErrObjectExists  = errors.New("object already exists")
	ErrInvalidPath   = errors.New("invalid object path")
)

// Store is a bucketed object store with public URLs.
type Store interface {
	Upload(ctx context.Context, bucket, objectPath string, r io.Reader) (string, error)
	Delete(ctx context.Context, bucket, objectPath string) error
	PublicURL(bucket, objectPath string) string
	ObjectPath(bucket, publicURL string) (string, bool)
}

// LocalStore keeps objects on the local filesystem under root/<bucket>/ and
// serves them from baseURL/<bucket>/.
type LocalStore struct {
	root    string
	baseURL string
	buckets map[string]bool
}

func NewLocalStore(root, baseURL string, buckets ...string) (*LocalStore, error) {
	s := &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		buckets: make(map[string]bool, len(buckets)),
	}
	for _, b := range buckets {
		if err := os.MkdirAll(filepath.Join(root, b), 0o755); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", b, err)
		}
		s.buckets[b] = true
	}
	return s, nil
}

// Root is the directory objects are stored under.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) resolve(bucket, objectPath string) (string, error) {
	if !s.buckets[bucket] {
		return "", ErrUnknownBucket
	}
	clean := path.Clean("/" + objectPath)
	if clean == "/" || clean != "/"+objectPath {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(clean)), nil
}

// Upload writes a new object. Existing objects are never overwritten.
func (s *LocalStore) Upload(ctx context.Context, bucket, objectPath string, r io.Reader) (string, error) {
	target, err := s.resolve(bucket, objectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return "", ErrObjectExists
	}
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, readerWithContext(ctx, r)); err != nil {
		dst.Close()
		_ = os.Remove(target)
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(target)
		return "", err
	}
	return s.PublicURL(bucket, objectPath), nil
}

func (s *LocalStore) Delete(ctx context.Context, bucket, objectPath string) error {
	target, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) PublicURL(bucket, objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + bucket + "/" + strings.Join(segments, "/")
}

// ObjectPath reverses PublicURL. It reports false for URLs this store did
// not issue, such as placeholder thumbnails.
func (s *LocalStore) ObjectPath(bucket, publicURL string) (string, bool) {
	prefix := s.baseURL + "/" + bucket + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	objectPath, err := url.PathUnescape(strings.TrimPrefix(publicURL, prefix))
	if err != nil || objectPath == "" {
		return "", false
	}
	return objectPath, true
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
