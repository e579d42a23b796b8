package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		name    string
		orig    string
		wantExt string
	}{
		{name: "keeps extension", orig: "essay.txt", wantExt: ".txt"},
		{name: "lowers extension", orig: "Scheme.PDF", wantExt: ".pdf"},
		{name: "strips directories", orig: "../../etc/passwd", wantExt: ""},
		{name: "no extension", orig: "README", wantExt: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ObjectName(tt.orig)
			assert.Equal(t, tt.wantExt, filepath.Ext(got))
			assert.Len(t, strings.TrimSuffix(got, tt.wantExt), 36) // uuid
			assert.NotContains(t, got, "/")
		})
	}
	assert.NotEqual(t, ObjectName("a.txt"), ObjectName("a.txt"))
}

func TestLocalStore_Save(t *testing.T) {
	conf := &core.Config{
		WorkDir: t.TempDir(),
		Storage: core.StorageConfig{Provider: ProviderLocal, LocalDir: "uploads", BaseURL: "/uploads/"},
	}
	store, closer, err := New(context.Background(), conf)
	require.NoError(t, err)
	defer closer.Close()

	f, err := store.Save(context.Background(), "answer.txt", "text/plain", strings.NewReader("my answer"))
	require.NoError(t, err)

	assert.Equal(t, "answer.txt", f.OriginalName)
	assert.Equal(t, "text/plain", f.ContentType)
	assert.EqualValues(t, len("my answer"), f.Size)
	assert.Equal(t, "/uploads/"+f.Name, f.URL)

	content, err := os.ReadFile(filepath.Join(conf.WorkDir, "uploads", f.Name))
	require.NoError(t, err)
	assert.Equal(t, "my answer", string(content))
}

func TestNew_UnknownProvider(t *testing.T) {
	_, _, err := New(context.Background(), &core.Config{Storage: core.StorageConfig{Provider: "s3"}})
	assert.Error(t, err)
}

func TestNew_GCSRequiresBucket(t *testing.T) {
	_, _, err := New(context.Background(), &core.Config{Storage: core.StorageConfig{Provider: ProviderGCS}})
	assert.Error(t, err)
}
