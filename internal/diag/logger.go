package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultLogDir 为未配置 logging.dir 时的日志目录。
const DefaultLogDir = "logs"

// Logger 为结构化日志器：logrus JSON 单行输出；默认写入轮转文件，失败回退 stderr。
// 事件字段：corr_id/comp/stage/code/dur_ms/count/job/batch_id。
type Logger struct {
	entry *logrus.Entry
	sink  *RunLog
}

// NewLogger 通过配置的 level 初始化，并将日志写入 dir（空则 logs）下的 wordquery.log。
func NewLogger(corrID, level, dir string) *Logger {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultLogDir
	}
	sink := OpenRunLog(dir, RunLogOptions{})
	l := NewLoggerTo(corrID, level, &fallbackWriter{primary: sink, fallback: os.Stderr})
	l.sink = sink
	return l
}

// NewLoggerTo 将日志写入任意 io.Writer（测试或 stderr 场景）。
func NewLoggerTo(corrID, level string, w io.Writer) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(ParseLevel(level))
	base.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
		},
	})
	return &Logger{entry: base.WithField("corr_id", corrID)}
}

// ParseLevel 解析日志级别；未知值回退 info。
func ParseLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ValidLevel 报告 s 是否为可接受的级别名（空视为默认 info）。
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// Close 关闭底层文件 sink（若有）。
func (l *Logger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	return l.sink.Close()
}

func (l *Logger) event(comp, stage, job, batch string) *logrus.Entry {
	f := logrus.Fields{"comp": comp, "stage": stage}
	if job != "" {
		f["job"] = job
	}
	if batch != "" {
		f["batch_id"] = batch
	}
	return l.entry.WithFields(f)
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	return l.StartWith(comp, msg, "", "")
}

// StartWith 记录带 job/batch_id 的 start。
func (l *Logger) StartWith(comp, msg, job, batch string) *Timer {
	if l == nil {
		return nil
	}
	l.event(comp, "start", job, batch).Info(msg)
	return &Timer{l: l, comp: comp, job: job, batch: batch, t0: time.Now()}
}

// Skip 记录 skip 事件（例如输出已存在）。
func (l *Logger) Skip(comp, msg, job string) {
	if l == nil {
		return
	}
	l.event(comp, "skip", job, "").Info(msg)
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWith(comp, code, msg, durSince, "", "")
}

// ErrorWith 支持 job/batch_id。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, job, batch string) {
	if l == nil {
		return
	}
	e := l.event(comp, "error", job, batch).WithField("code", code)
	if durSince != nil {
		e = e.WithField("dur_ms", time.Since(*durSince).Milliseconds())
	}
	e.Error(msg)
}

// InfoFinish 在已有起点的情况下记录 finish。
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	if l == nil {
		return
	}
	l.event(comp, "finish", "", "").WithFields(logrus.Fields{
		"dur_ms": time.Since(start).Milliseconds(),
		"count":  count,
	}).Info(msg)
}

// DebugStart 输出调试级别的“start”类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, job, batch string, kv map[string]string) {
	if l == nil || !l.entry.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	e := l.event(comp, "start", job, batch)
	if len(kv) > 0 {
		e = e.WithField("kv", kv)
	}
	e.Debug(msg)
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l     *Logger
	comp  string
	job   string
	batch string
	t0    time.Time
}

// Finish 记录 finish；可选 count。同时计入耗时指标。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	dur := time.Since(t.t0).Milliseconds()
	ObserveDuration(t.comp, msg, dur)
	t.l.event(t.comp, "finish", t.job, t.batch).WithFields(logrus.Fields{
		"dur_ms": dur,
		"count":  count,
	}).Info(msg)
}

// Since 返回计时起点（供 ErrorWith 计算时长）。
func (t *Timer) Since() *time.Time {
	if t == nil {
		return nil
	}
	return &t.t0
}

// fallbackWriter: 主 sink 写失败时回退到 fallback。
type fallbackWriter struct {
	primary  io.Writer
	fallback io.Writer
}

func (w *fallbackWriter) Write(p []byte) (int, error) {
	n, err := w.primary.Write(p)
	if err == nil {
		return n, nil
	}
	fmt.Fprintf(w.fallback, "logger sink error: %v\n", err)
	return w.fallback.Write(p)
}
