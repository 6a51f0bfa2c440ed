package clause

import (
	"context"
	"fmt"
	"strings"

	"wordquery/pkg/contract"
)

// Separator 为子句之间的析取分隔符。
const Separator = " OR "

// DefaultStripChars 为规范化时移除的字符：双引号、单引号、逗号。
const DefaultStripChars = `"',`

// Options 为子句 Batcher 的可选配置（最小必要）。
type Options struct {
	// StripChars: 规范化时从词条中移除的字符集合；为空时采用 DefaultStripChars。
	StripChars string `json:"strip_chars"`
	// SkipEmpty: 规范化后为空的词条是否跳过。
	// 默认 false：保留为空子句 "()"，与历史输出一致。
	SkipEmpty bool `json:"skip_empty"`
}

// Batcher 将词条规范化为 "(word)" 子句，并按容量切分为以 " OR " 连接的批。
type Batcher struct {
	strip     string
	skipEmpty bool
}

// New 创建子句 Batcher。
func New(opts *Options) *Batcher {
	b := &Batcher{strip: DefaultStripChars}
	if opts != nil {
		if opts.StripChars != "" {
			b.strip = opts.StripChars
		}
		b.skipEmpty = opts.SkipEmpty
	}
	return b
}

// Build 使用默认规范化规则切批（纯函数）。
func Build(tokens []contract.Token, capacity int) ([]contract.Batch, error) {
	return New(nil).Make(context.Background(), tokens, contract.BatchLimit{Capacity: capacity})
}

// Make 按位置计数切批：
// - position%capacity == 0 且 position > 0 时冲刷当前批；
// - 子句后追加 " OR "，除非它是全体最后一个，或位于批边界前（position%capacity == capacity-1）；
// - 不足容量的尾批同样输出。
func (b *Batcher) Make(ctx context.Context, tokens []contract.Token, limit contract.BatchLimit) ([]contract.Batch, error) {
	capacity := limit.Capacity
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be >= 1, got %d", contract.ErrInvalidArgument, capacity)
	}
	words := b.normalizeAll(tokens)
	n := len(words)
	if n == 0 {
		return nil, nil
	}

	batches := make([]contract.Batch, 0, (n+capacity-1)/capacity)
	var sb strings.Builder
	count := 0
	flush := func() {
		batches = append(batches, contract.Batch{Index: len(batches), Count: count, Query: sb.String()})
		sb.Reset()
		count = 0
	}
	for pos, w := range words {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		if pos%capacity == 0 && pos > 0 {
			flush()
		}
		sb.WriteByte('(')
		sb.WriteString(w)
		sb.WriteByte(')')
		count++
		if pos != n-1 && pos%capacity != capacity-1 {
			sb.WriteString(Separator)
		}
	}
	if count > 0 {
		flush()
	}
	return batches, nil
}

// Normalize 移除引号/逗号并去除首尾空白。
func (b *Batcher) Normalize(t contract.Token) string {
	s := strings.Map(func(r rune) rune {
		if strings.ContainsRune(b.strip, r) {
			return -1
		}
		return r
	}, string(t))
	return strings.TrimSpace(s)
}

func (b *Batcher) normalizeAll(tokens []contract.Token) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		w := b.Normalize(t)
		if w == "" && b.skipEmpty {
			continue
		}
		out = append(out, w)
	}
	return out
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

var _ contract.Batcher = (*Batcher)(nil)
