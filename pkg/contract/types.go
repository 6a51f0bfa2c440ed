package contract

import (
	"fmt"
	"strings"
)

// FileID: 逻辑输入标识（通常为路径，需规范化，跨平台一致）。
type FileID string

// Token: 词表中的原始词条（动物名、词典词等）。
// 可能带有源序列化残留的引号/逗号；规范化由 Batcher 负责。
type Token string

// Batch: 容量受限的一组子句，以 " OR " 连接，形如 "(a) OR (b) OR (c)"。
// 约束：
//   - Query 不以 " OR " 开头或结尾；
//   - Count 为 Query 中的子句数，且 1 <= Count <= 容量；
//   - Index 为批序（0..n-1，严格递增）。
type Batch struct {
	Index int
	Count int
	Query string
}

// BatchLimit: 切批上限。
type BatchLimit struct {
	// Capacity: 每批最多容纳的子句数，必须 >= 1。
	Capacity int
}

// TemplateKind: 查询文档模板形状。
type TemplateKind string

const (
	// TemplateSingle: 单一 query_string。
	TemplateSingle TemplateKind = "single"
	// TemplateBoolMustRange: bool.must = [query_string, range]。
	TemplateBoolMustRange TemplateKind = "bool_must_range"
	// TemplateBoolShouldMulti: bool.should 中每批一个 query_string。
	TemplateBoolShouldMulti TemplateKind = "bool_should_multi"
)

// ParseTemplateKind 解析模板名（大小写、首尾空白不敏感）。
func ParseTemplateKind(s string) (TemplateKind, error) {
	k := TemplateKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case TemplateSingle, TemplateBoolMustRange, TemplateBoolShouldMulti:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown template %q", ErrInvalidArgument, s)
	}
}

// SingleBatch 表示该模板只接受一个批。
func (k TemplateKind) SingleBatch() bool {
	return k == TemplateSingle || k == TemplateBoolMustRange
}
