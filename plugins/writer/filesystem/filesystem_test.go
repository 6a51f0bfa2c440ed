package filesystem

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordquery/pkg/contract"
)

func assertNoTemp(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "tmp file not cleaned: %s", e.Name())
	}
}

// TestWriteNoClobber 默认模式：写入成功且不残留临时文件
func TestWriteNoClobber(t *testing.T) {
	dir := t.TempDir()
	w, err := New(&Options{OutputDir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), "query4.json", bytes.NewBufferString("data")))
	b, err := os.ReadFile(filepath.Join(dir, "query4.json"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))
	assertNoTemp(t, dir)
}

// TestWriteNoClobberExisting 目标已存在：返回 ErrOutputExists，原内容不变
func TestWriteNoClobberExisting(t *testing.T) {
	dir := t.TempDir()
	w, err := New(&Options{OutputDir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), "q.json", bytes.NewBufferString("v1")))
	err = w.Write(context.Background(), "q.json", bytes.NewBufferString("v2"))
	assert.ErrorIs(t, err, contract.ErrOutputExists)
	b, _ := os.ReadFile(filepath.Join(dir, "q.json"))
	assert.Equal(t, "v1", string(b))
	assertNoTemp(t, dir)
}

// TestWriteReplace NoClobber=false：原子替换为新内容
func TestWriteReplace(t *testing.T) {
	dir := t.TempDir()
	nc := false
	w, err := New(&Options{OutputDir: dir, NoClobber: &nc})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), "q.json", bytes.NewBufferString("v1")))
	require.NoError(t, w.Write(context.Background(), "q.json", bytes.NewBufferString("v2")))
	b, _ := os.ReadFile(filepath.Join(dir, "q.json"))
	assert.Equal(t, "v2", string(b))
	assertNoTemp(t, dir)
}

// TestExists 存在性检查
func TestExists(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	ok, err := w.Exists(context.Background(), "sub/q.json")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, w.Write(context.Background(), "sub/q.json", strings.NewReader("{}")))
	ok, err = w.Exists(context.Background(), "sub/q.json")
	require.NoError(t, err)
	assert.True(t, ok)
	p, err := w.Path("sub/q.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sub", "q.json"), p)
}

// TestExistsDirectory 目标路径为目录：不视为已存在，报告路径错误
func TestExistsDirectory(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "q.json"), 0o755))
	ok, err := w.Exists(context.Background(), "q.json")
	assert.False(t, ok)
	assert.ErrorIs(t, err, contract.ErrPathInvalid)
}

// TestWriteLinkUnsupported 不支持硬链接时退化为 rename，仍不覆盖已有目标
func TestWriteLinkUnsupported(t *testing.T) {
	orig := linkFile
	t.Cleanup(func() { linkFile = orig })
	linkFile = func(oldname, newname string) error {
		return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: errors.New("operation not supported")}
	}

	dir := t.TempDir()
	w, err := New(&Options{OutputDir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), "q.json", strings.NewReader("v1")))
	b, err := os.ReadFile(filepath.Join(dir, "q.json"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(b))

	err = w.Write(context.Background(), "q.json", strings.NewReader("v2"))
	assert.ErrorIs(t, err, contract.ErrOutputExists)
	b, _ = os.ReadFile(filepath.Join(dir, "q.json"))
	assert.Equal(t, "v1", string(b))
	assertNoTemp(t, dir)
}

// TestWritePathInvalid 路径越界
func TestWritePathInvalid(t *testing.T) {
	w, _ := New(&Options{OutputDir: t.TempDir()})
	for _, id := range []string{"../bad.json", "..", ".", ""} {
		err := w.Write(context.Background(), contract.ArtifactID(id), strings.NewReader("x"))
		assert.ErrorIs(t, err, contract.ErrPathInvalid, "id=%q", id)
	}
}

// TestWriteFlat 扁平化仅保留文件名
func TestWriteFlat(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir, Flat: true})
	require.NoError(t, w.Write(context.Background(), "a/b/q.json", strings.NewReader("x")))
	_, err := os.Stat(filepath.Join(dir, "q.json"))
	assert.NoError(t, err)
}

// TestNewInvalid 参数缺失
func TestNewInvalid(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, contract.ErrInvalidArgument)
	_, err = New(&Options{OutputDir: "  "})
	assert.ErrorIs(t, err, contract.ErrInvalidArgument)
}

type errReader struct{}

func (errReader) Read(p []byte) (int, error) { return 0, errors.New("boom") }

// TestWriteCopyError 拷贝失败：不产生目标文件，不残留临时文件
func TestWriteCopyError(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	require.Error(t, w.Write(context.Background(), "a.json", errReader{}))
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

// TestWriteCtxCancel 上下文取消
func TestWriteCtxCancel(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Write(ctx, "a.json", strings.NewReader("data")), context.Canceled)
	_, err := w.Exists(ctx, "a.json")
	assert.ErrorIs(t, err, context.Canceled)
}

// TestReaderWithCtxCancel reader 在读取前取消
func TestReaderWithCtxCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := readerWithCtx(ctx, strings.NewReader("data"))
	cancel()
	_, err := r.Read(make([]byte, 1))
	assert.Error(t, err)
}
