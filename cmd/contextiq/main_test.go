package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b c", preview("a\n\n b\tc ", 80))
	assert.Equal(t, "abcd…", preview("abcdefgh", 5))
	assert.Equal(t, "", preview("   ", 10))
}

func TestLoadDocument_Local(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	doc, origin, err := loadDocument(context.Background(), nil, path)
	require.NoError(t, err)
	assert.Equal(t, "manual.txt", doc.Name)
	assert.Equal(t, "hello", string(doc.Data))
	assert.Equal(t, path, origin)

	_, _, err = loadDocument(context.Background(), nil, filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["ingest"])
	assert.True(t, names["ask"])
	assert.True(t, names["status"])
}
