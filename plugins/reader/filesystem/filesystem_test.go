package filesystem

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordquery/pkg/contract"
)

func writeFile(t *testing.T, p, s string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(s), 0o644))
}

func collect(t *testing.T, r *FileSystem, roots ...string) ([]string, string, error) {
	t.Helper()
	var ids []string
	var body strings.Builder
	err := r.Iterate(context.Background(), roots, func(id contract.FileID, rd io.Reader) error {
		ids = append(ids, string(id))
		b, err := io.ReadAll(rd)
		if err != nil {
			return err
		}
		body.Write(b)
		return nil
	})
	return ids, body.String(), err
}

// TestIterateSingleFile 读取单文件
func TestIterateSingleFile(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "animals.json")
	writeFile(t, fp, `["cat"]`)
	ids, body, err := collect(t, New(nil), fp)
	require.NoError(t, err)
	assert.Equal(t, []string{string(contract.NormalizeFileID(fp))}, ids)
	assert.Equal(t, `["cat"]`, body)
}

// TestIterateDirOrder 目录内先子目录、后文件，均按字典序
func TestIterateDirOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.json"), "b")
	writeFile(t, filepath.Join(dir, "a.json"), "a")
	writeFile(t, filepath.Join(dir, "sub", "c.json"), "c")
	_, body, err := collect(t, New(nil), dir)
	require.NoError(t, err)
	assert.Equal(t, "cab", body)
}

// TestExcludeDirAndExts 跳过目录与非白名单扩展名
func TestExcludeDirAndExts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keep.json"), "k")
	writeFile(t, filepath.Join(dir, "notes.txt"), "n")
	writeFile(t, filepath.Join(dir, "skip", "bad.json"), "b")
	r := New(&Options{ExcludeDirNames: []string{"SKIP"}, AllowExts: []string{"JSON"}})
	ids, _, err := collect(t, r, dir)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Contains(t, ids[0], "keep.json")
}

// TestIterateNotFound 不存在的输入 → ErrFileNotFound，且保留 fs.ErrNotExist
func TestIterateNotFound(t *testing.T) {
	_, _, err := collect(t, New(nil), filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, contract.ErrFileNotFound))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

// TestIterateDashMix 混用 '-' 返回错误
func TestIterateDashMix(t *testing.T) {
	_, _, err := collect(t, New(nil), "-", "a.json")
	assert.ErrorIs(t, err, contract.ErrInvalidArgument)
	_, _, err = collect(t, New(nil))
	assert.ErrorIs(t, err, contract.ErrInvalidArgument)
}

// TestIterateStdin "-" 读取 STDIN
func TestIterateStdin(t *testing.T) {
	r := New(nil)
	r.stdin = strings.NewReader(`["x"]`)
	ids, body, err := collect(t, r, "-")
	require.NoError(t, err)
	assert.Equal(t, []string{"stdin"}, ids)
	assert.Equal(t, `["x"]`, body)
}

// TestYieldErrorStops 回调错误中止遍历并原样返回
func TestYieldErrorStops(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), "a")
	writeFile(t, filepath.Join(dir, "b.json"), "b")
	boom := errors.New("boom")
	calls := 0
	err := New(nil).Iterate(context.Background(), []string{dir}, func(contract.FileID, io.Reader) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

// TestIterateCtxCancel 上下文取消
func TestIterateCtxCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(nil).Iterate(ctx, []string{"."}, func(contract.FileID, io.Reader) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
