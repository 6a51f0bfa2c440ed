package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	runLogName = "wordquery.log"
	// 归档名按 UTC 时间定宽排列，字典序即时间序。
	runLogArchiveGlob  = "wordquery-*.log"
	runLogArchiveStamp = "20060102T150405.000000000"

	DefaultLogMaxBytes int64 = 10 << 20
	DefaultLogKeep           = 5
)

// RunLogOptions 控制运行日志的归档策略；零值使用默认。
type RunLogOptions struct {
	MaxBytes int64
	Keep     int
}

// RunLog 是运行日志的文件 sink：每次 Write 为一条或多条完整的 JSON 事件行，
// 追加到 <dir>/wordquery.log。超过 MaxBytes 时归档为 wordquery-<UTC时间>.log，
// 仅保留最近 Keep 个归档。目录与文件在首次写入时才创建。
type RunLog struct {
	dir  string
	opts RunLogOptions

	mu   sync.Mutex
	f    *os.File
	size int64
}

func OpenRunLog(dir string, opts RunLogOptions) *RunLog {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultLogMaxBytes
	}
	if opts.Keep <= 0 {
		opts.Keep = DefaultLogKeep
	}
	return &RunLog{dir: dir, opts: opts}
}

// Write 实现 io.Writer。事件不跨文件：放不下时先归档；空文件不归档。
func (l *RunLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		if err := l.open(); err != nil {
			return 0, err
		}
	}
	if l.size > 0 && l.size+int64(len(p)) > l.opts.MaxBytes {
		if err := l.archive(); err != nil {
			return 0, err
		}
	}
	n, err := l.f.Write(p)
	l.size += int64(n)
	return n, err
}

func (l *RunLog) open() error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("runlog: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(l.dir, runLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("runlog: %w", err)
	}
	l.f, l.size = f, 0
	if st, err := f.Stat(); err == nil {
		l.size = st.Size()
	}
	return nil
}

func (l *RunLog) archive() error {
	cur := l.f.Name()
	_ = l.f.Close()
	l.f = nil
	name := "wordquery-" + time.Now().UTC().Format(runLogArchiveStamp) + ".log"
	if err := os.Rename(cur, filepath.Join(l.dir, name)); err != nil {
		return fmt.Errorf("runlog archive: %w", err)
	}
	l.prune()
	return l.open()
}

// prune 删除超出 Keep 的最旧归档；删除失败忽略，下次归档再试。
func (l *RunLog) prune() {
	old, err := filepath.Glob(filepath.Join(l.dir, runLogArchiveGlob))
	if err != nil || len(old) <= l.opts.Keep {
		return
	}
	sort.Strings(old)
	for _, p := range old[:len(old)-l.opts.Keep] {
		_ = os.Remove(p)
	}
}

// Close 关闭当前文件；可重复调用，之后的 Write 会重新打开。
func (l *RunLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
