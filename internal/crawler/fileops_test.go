package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCopyCreatesTargetAndLeavesSourceInPlace(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0644))

	err := Apply(src, FileOpOptions{Operation: OpCopy, TargetDir: dstDir, Conflict: ConflictSkip})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dstDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	_, err = os.Stat(src)
	assert.NoError(t, err, "source must still exist after a copy")
}

func TestApplyMoveRemovesSource(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "b.txt")
	require.NoError(t, os.WriteFile(src, []byte("world"), 0644))

	err := Apply(src, FileOpOptions{Operation: OpMove, TargetDir: dstDir, Conflict: ConflictSkip})
	require.NoError(t, err)

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(filepath.Join(dstDir, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))
}

func TestApplyDeleteRemovesFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "c.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	require.NoError(t, Apply(src, FileOpOptions{Operation: OpDelete}))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestApplyCopyConflictSkipLeavesExistingTargetUntouched(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "d.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0644))
	existing := filepath.Join(dstDir, "d.txt")
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0644))

	err := Apply(src, FileOpOptions{Operation: OpCopy, TargetDir: dstDir, Conflict: ConflictSkip})
	require.NoError(t, err)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data), "skip policy must not overwrite the existing target")
}

func TestApplyCopyConflictRenameCreatesNumberedCopy(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "e.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dstDir, "e.txt"), []byte("old"), 0644))

	err := Apply(src, FileOpOptions{Operation: OpCopy, TargetDir: dstDir, Conflict: ConflictRename})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dstDir, "e_1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestApplyDeleteReadOnlyFileFails(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0400))

	err := Apply(src, FileOpOptions{Operation: OpDelete})
	assert.Error(t, err)
}
