//go:build !windows

package filesystem

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWalkDirNonRegular 非常规文件被忽略（mkfifo 仅 Unix）
func TestWalkDirNonRegular(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, syscall.Mkfifo(filepath.Join(root, "fifo"), 0o644))
	ids, _, err := collect(t, New(nil), root)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// TestIterateSymlink 指向常规文件的符号链接被读取，目录链接被忽略
func TestIterateSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "t.json")
	writeFile(t, target, "ok")
	link := filepath.Join(dir, "l.json")
	require.NoError(t, os.Symlink(target, link))
	ids, body, err := collect(t, New(nil), link)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Contains(t, ids[0], "l.json")
	assert.Equal(t, "ok", body)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	dlink := filepath.Join(dir, "dlink")
	require.NoError(t, os.Symlink(sub, dlink))
	ids, _, err = collect(t, New(nil), dlink)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
