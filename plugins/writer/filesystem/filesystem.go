package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"wordquery/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// OutputDir: 输出根目录（必需）。
	OutputDir string `json:"output_dir"`
	// NoClobber: 提交时不覆盖已存在的目标（硬链接提交，目标已存在返回 ErrOutputExists）。
	// 默认 true；显式 false 时改为原子替换（rename）。
	NoClobber *bool `json:"no_clobber,omitempty"`
	// Flat: 是否扁平化输出（仅保留文件名，不保留目录层级）。默认 false。
	Flat bool `json:"flat,omitempty"`
	// PermFile/PermDir: 可选权限；为 0 表示使用默认 0644/0755。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	PermDir  os.FileMode `json:"perm_dir,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用默认 64KiB。
	BufSize int `json:"buf_size,omitempty"`
}

// FS 为文件系统 Writer：同目录临时文件 + fsync + 提交，任何失败路径都清理临时文件。
type FS struct {
	root      string
	noClobber bool
	flat      bool
	permF     os.FileMode
	permD     os.FileMode
	bufSize   int
}

// New 创建文件系统 Writer 实现。
func New(opts *Options) (*FS, error) {
	if opts == nil || strings.TrimSpace(opts.OutputDir) == "" {
		return nil, fmt.Errorf("%w: writer output_dir required", contract.ErrInvalidArgument)
	}
	w := &FS{root: opts.OutputDir, noClobber: true, flat: opts.Flat, permF: 0o644, permD: 0o755, bufSize: 64 * 1024}
	if opts.NoClobber != nil {
		w.noClobber = *opts.NoClobber
	}
	if opts.PermFile != 0 {
		w.permF = opts.PermFile
	}
	if opts.PermDir != 0 {
		w.permD = opts.PermDir
	}
	if opts.BufSize > 0 {
		w.bufSize = opts.BufSize
	}
	return w, nil
}

var _ contract.Writer = (*FS)(nil)

// Path 返回 id 映射后的目标路径。
func (w *FS) Path(id contract.ArtifactID) (string, error) { return w.mapPath(id) }

// Exists 报告目标路径上是否已有常规文件（符号链接按其指向判断）。
// 目标为目录或其他非常规文件时返回包裹 ErrPathInvalid 的错误。
func (w *FS) Exists(ctx context.Context, id contract.ArtifactID) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	dest, err := w.mapPath(id)
	if err != nil {
		return false, err
	}
	st, err := os.Stat(dest)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	case !st.Mode().IsRegular():
		return false, fmt.Errorf("%w: %s is not a regular file (%s)", contract.ErrPathInvalid, dest, st.Mode().Type())
	}
	return true, nil
}

// Write 将 r 的全部字节写入到基于 id 映射的目标路径。
func (w *FS) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	dest, err := w.mapPath(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), w.permD); err != nil {
		return err
	}
	return w.writeAtomic(ctx, dest, r)
}

// mapPath: Clean + Join + 越界校验。
func (w *FS) mapPath(id contract.ArtifactID) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(string(id)))
	if w.flat {
		rel = filepath.Base(rel)
		if rel == "." || rel == ".." || rel == string(filepath.Separator) {
			return "", contract.ErrPathInvalid
		}
		return filepath.Join(w.root, rel), nil
	}
	// 非扁平：禁止绝对路径、父级逃逸、Windows 卷名
	if rel == "." || rel == "" {
		return "", contract.ErrPathInvalid
	}
	if filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", contract.ErrPathInvalid
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", contract.ErrPathInvalid
	}
	return filepath.Join(w.root, rel), nil
}

func (w *FS) writeAtomic(ctx context.Context, dest string, r io.Reader) (err error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	closed := false
	// 临时文件在任何路径上都不保留：成功提交后它已被链接/改名，失败时删除。
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		if err != nil || w.noClobber {
			_ = os.Remove(tmpPath)
		}
	}()
	_ = os.Chmod(tmpPath, w.permF)

	bw := bufio.NewWriterSize(tmp, w.bufSize)
	if _, err = io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return err
	}
	if w.noClobber {
		err = commitNoClobber(tmpPath, dest)
	} else {
		err = os.Rename(tmpPath, dest)
	}
	if err != nil {
		return err
	}
	// 最佳努力：同步父目录，提升崩溃安全性
	_ = syncDir(dir)
	return nil
}

// linkFile 可在测试中替换，用于模拟不支持硬链接的文件系统。
var linkFile = os.Link

// commitNoClobber 以硬链接提交：目标已存在时失败而非覆盖。
// 文件系统不支持硬链接（vfat/exFAT、部分 SMB/FUSE）时，复查目标后退化为 rename；
// 复查与 rename 之间并非原子，此路径下仅为尽力不覆盖。
func commitNoClobber(tmpPath, dest string) error {
	err := linkFile(tmpPath, dest)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", contract.ErrOutputExists, dest)
	}
	if _, serr := os.Lstat(dest); serr == nil {
		return fmt.Errorf("%w: %s", contract.ErrOutputExists, dest)
	} else if !errors.Is(serr, fs.ErrNotExist) {
		return err
	}
	return os.Rename(tmpPath, dest)
}

// readerWithCtx: 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := ctxErr(cr.ctx); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
