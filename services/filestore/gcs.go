package filestore

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/darasa/core"
)

const gcsPublicURL = "https://storage.googleapis.com/"

type GCSStore struct {
	client *storage.Client
	bucket string
}

var _ Store = (*GCSStore)(nil)

func NewGCSStore(ctx context.Context, conf *core.Config) (*GCSStore, error) {
	if conf.Storage.Bucket == "" {
		return nil, errors.New("missing storage bucket")
	}

	var opts []option.ClientOption
	if conf.Storage.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.Storage.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	return &GCSStore{client: client, bucket: conf.Storage.Bucket}, nil
}

func (s *GCSStore) Save(ctx context.Context, originalName, contentType string, r io.Reader) (File, error) {
	name := ObjectName(originalName)

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	size, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return File{}, errors.Wrap(err, "uploading file")
	}
	if err := w.Close(); err != nil {
		return File{}, errors.Wrap(err, "finalizing upload")
	}

	return File{
		Name:         name,
		OriginalName: originalName,
		URL:          gcsPublicURL + s.bucket + "/" + name,
		ContentType:  contentType,
		Size:         size,
	}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
