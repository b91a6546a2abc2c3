// Package gcs implements the anchor content store on Google Cloud Storage.
package gcs

import (
	"context"
	stderrs "errors"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/anchor"
)

var _ anchor.ContentStore = &Store{}

// Store is a Google Cloud Storage-based content store.
type Store struct {
	bucket *storage.BucketHandle
}

// New produces a new Store writing to `bucket`.
func New(bucket *storage.BucketHandle) *Store {
	return &Store{bucket: bucket}
}

// Dial produces a Store for the named bucket.
// An empty credsFile uses ambient application-default credentials.
func Dial(ctx context.Context, bucketName, credsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	return New(client.Bucket(bucketName)), nil
}

func objName(addr string) string {
	return "b:" + strings.TrimPrefix(addr, "sha256:")
}

// Put adds a blob to the bucket if it was not already present.
// The DoesNotExist precondition makes concurrent and repeated puts of
// the same content converge on one object.
func (s *Store) Put(ctx context.Context, b []byte) (string, bool, error) {
	var (
		addr = anchor.Address(b)
		name = objName(addr)
		obj  = s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true})
		w    = obj.NewWriter(ctx)
	)

	_, werr := w.Write(b)
	cerr := w.Close()

	err := werr
	if err == nil {
		err = cerr
	}
	var e *googleapi.Error
	if stderrs.As(err, &e) && e.Code == http.StatusPreconditionFailed {
		return addr, false, nil
	}
	if err != nil {
		return addr, false, errors.Wrapf(err, "writing object %s", name)
	}
	return addr, true, nil
}

// Get gets a blob by its content address.
func (s *Store) Get(ctx context.Context, addr string) ([]byte, error) {
	name := objName(addr)
	r, err := s.bucket.Object(name).NewReader(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil, ltc.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading info of object %s", name)
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	return b, errors.Wrapf(err, "reading contents of object %s", name)
}
