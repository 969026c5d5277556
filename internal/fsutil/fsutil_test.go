package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deep")

	require.NoError(t, WriteFileAtomic(dir, "asset.bin", []byte("v1"), 0o644))

	data, err := os.ReadFile(filepath.Join(dir, "asset.bin"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteFileAtomic(dir, "asset.bin", []byte("v1"), 0o644))
	require.NoError(t, WriteFileAtomic(dir, "asset.bin", []byte("v2"), 0o644))

	data, err := os.ReadFile(filepath.Join(dir, "asset.bin"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestCopyFileAtomic(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	dstDir := t.TempDir()
	require.NoError(t, CopyFileAtomic(src, dstDir, "copy.bin"))

	data, err := os.ReadFile(filepath.Join(dstDir, "copy.bin"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// Source survives.
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestCopyFileAtomicMissingSource(t *testing.T) {
	err := CopyFileAtomic(filepath.Join(t.TempDir(), "absent"), t.TempDir(), "x")
	assert.Error(t, err)
}

func TestMoveFile(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src.bin")
	dst := filepath.Join(base, "holding", "dst.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	require.NoError(t, MoveFile(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestMoveDir(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "extrafanarts")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.jpg"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.jpg"), []byte("b"), 0o644))

	dst := filepath.Join(base, "recycle", "extrafanarts")
	require.NoError(t, MoveDir(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(filepath.Join(dst, "sub", "b.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}

func TestCopyTreePreservesLayout(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "d1", "d2"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "d1", "d2", "f.bin"), []byte("x"), 0o644))

	dst := filepath.Join(t.TempDir(), "out")
	require.NoError(t, copyTree(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "d1", "d2", "f.bin"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}
