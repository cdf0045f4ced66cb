// file: internal/fileops/hash_test.go
// version: 2.0.0
// guid: 2b3c4d5e-6f7a-8b9c-0d1e-2f3a4b5c6d7e

package fileops

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeFileHash(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/test.txt", []byte("Hello, World!"), 0o644))

	hash, err := ComputeFileHash(fs, "/in/test.txt")
	require.NoError(t, err)
	assert.Len(t, hash, 64)
	assert.Equal(t, "dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f", hash)

	again, err := ComputeFileHash(fs, "/in/test.txt")
	require.NoError(t, err)
	assert.Equal(t, hash, again)
}

func TestComputeFileHashMissing(t *testing.T) {
	_, err := ComputeFileHash(afero.NewMemMapFs(), "/nope.pdf")
	assert.Error(t, err)
}

func TestGetFileSize(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.pdf", make([]byte, 1234), 0o644))

	size, err := GetFileSize(fs, "/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), size)

	_, err = GetFileSize(fs, "/missing.pdf")
	assert.Error(t, err)
}
