package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// LocalStore keeps uploads in a directory served by the API under BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore(conf *core.Config) (*LocalStore, error) {
	dir := conf.Storage.LocalDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(conf.WorkDir, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating uploads dir")
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimSuffix(conf.Storage.BaseURL, "/")}, nil
}

func (s *LocalStore) Save(ctx context.Context, originalName, contentType string, r io.Reader) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	name := ObjectName(originalName)

	f, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return File{}, errors.Wrap(err, "creating file")
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return File{}, errors.Wrap(err, "writing file")
	}

	return File{
		Name:         name,
		OriginalName: originalName,
		URL:          s.BaseURL + "/" + name,
		ContentType:  contentType,
		Size:         size,
	}, nil
}
