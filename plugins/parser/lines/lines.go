package lines

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"wordquery/pkg/contract"
)

// Options: 行模式解析器选项。
type Options struct {
	// MaxLineBytes: 单行最大字节数；<=0 使用默认 1MiB。
	MaxLineBytes int `json:"max_line_bytes"`
}

// Parser 解析历史格式：美化输出的 JSON 数组，每行一个元素。
// 首行与末行视为数组括号并跳过；中间各行原样作为词条（引号/逗号由 Batcher 去除）。
type Parser struct {
	maxLine int
}

// New 创建行模式解析器。
func New(opts *Options) *Parser {
	max := 1 << 20
	if opts != nil && opts.MaxLineBytes > 0 {
		max = opts.MaxLineBytes
	}
	return &Parser{maxLine: max}
}

// Parse 读取全部行：少于 2 行，或首行不以 '[' 开头、末行不以 ']' 结尾，返回 ErrMalformedInput。
func (p *Parser) Parse(ctx context.Context, fileID contract.FileID, r io.Reader) ([]contract.Token, error) {
	sc := bufio.NewScanner(r)
	initial := 64 * 1024
	if p.maxLine < initial {
		initial = p.maxLine
	}
	sc.Buffer(make([]byte, 0, initial), p.maxLine)
	var all []string
	for sc.Scan() {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		// 统一 CRLF
		all = append(all, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contract.ErrMalformedInput, fileID, err)
	}
	if len(all) < 2 {
		return nil, fmt.Errorf("%w: %s: expected at least 2 lines, got %d", contract.ErrMalformedInput, fileID, len(all))
	}
	first := strings.TrimSpace(all[0])
	last := strings.TrimSpace(all[len(all)-1])
	if !strings.HasPrefix(first, "[") || !strings.HasSuffix(last, "]") {
		return nil, fmt.Errorf("%w: %s: first/last line must be the array brackets", contract.ErrMalformedInput, fileID)
	}
	body := all[1 : len(all)-1]
	out := make([]contract.Token, len(body))
	for i, l := range body {
		out[i] = contract.Token(l)
	}
	return out, nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

var _ contract.Parser = (*Parser)(nil)
