package diag

import (
	"fmt"
	"sort"
	"sync"
)

// 进程内计数器（无外部导出）：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}（累计）

var metrics = struct {
	sync.Mutex
	ops   map[string]int64
	errs  map[string]int64
	durMS map[string]int64
}{
	ops:   map[string]int64{},
	errs:  map[string]int64{},
	durMS: map[string]int64{},
}

// IncOp 累加操作计数（result=success|error|skip）。
func IncOp(comp, stage, result string) {
	metrics.Lock()
	metrics.ops[fmt.Sprintf("op_total{comp=%s,stage=%s,result=%s}", comp, stage, result)]++
	metrics.Unlock()
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	metrics.Lock()
	metrics.errs[fmt.Sprintf("error_total{comp=%s,code=%s}", comp, code)]++
	metrics.Unlock()
}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	metrics.Lock()
	metrics.durMS[fmt.Sprintf("op_duration_ms{comp=%s,stage=%s}", comp, stage)] += durMS
	metrics.Unlock()
}

// Sample 为一条计数快照。
type Sample struct {
	Name  string
	Value int64
}

// Snapshot 返回按名称排序的全部计数。
func Snapshot() []Sample {
	metrics.Lock()
	defer metrics.Unlock()
	out := make([]Sample, 0, len(metrics.ops)+len(metrics.errs)+len(metrics.durMS))
	for _, m := range []map[string]int64{metrics.ops, metrics.errs, metrics.durMS} {
		for k, v := range m {
			out = append(out, Sample{Name: k, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResetMetrics 清空计数（测试用）。
func ResetMetrics() {
	metrics.Lock()
	metrics.ops = map[string]int64{}
	metrics.errs = map[string]int64{}
	metrics.durMS = map[string]int64{}
	metrics.Unlock()
}
