package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilePath_Absolute(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anchora.db")

	resolved, err := ValidateFilePath(path)

	require.NoError(t, err)
	assert.Equal(t, path, resolved)
}

func TestValidateFilePath_RelativeBecomesAbsolute(t *testing.T) {
	resolved, err := ValidateFilePath("data/anchora.db")

	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(resolved))
}

func TestValidateFilePath_CleansTraversal(t *testing.T) {
	dir := t.TempDir()

	resolved, err := ValidateFilePath(filepath.Join(dir, "sub", "..", "anchora.db"))

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "anchora.db"), resolved)
}

func TestValidateFilePath_ResolvesSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.db")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o600))
	link := filepath.Join(dir, "link.db")
	require.NoError(t, os.Symlink(target, link))

	resolved, err := ValidateFilePath(link)

	require.NoError(t, err)
	// TempDir itself may sit behind a symlink, compare the leaf.
	assert.Equal(t, "real.db", filepath.Base(resolved))
}

func TestValidateFilePath_Rejected(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"semicolon", "/tmp/x;rm"},
		{"pipe", "/tmp/x|y"},
		{"backtick", "/tmp/`id`.db"},
		{"newline", "/tmp/x\ny"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateFilePath(tt.path)
			assert.Error(t, err)
		})
	}
}
