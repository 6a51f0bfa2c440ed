package jsonarray

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"wordquery/pkg/contract"
)

// Parser 解析规范形式的词表：一个合法的 JSON 字符串数组（单行或美化格式均可）。
type Parser struct{}

// New 创建 JSON 数组解析器。
func New() *Parser { return &Parser{} }

// Parse 要求输入恰为一个 JSON 字符串数组；
// 空输入、非数组、非字符串元素或数组后存在多余内容均返回 ErrMalformedInput。
// 底层读取错误原样包裹返回，不归为格式错误。
func (p *Parser) Parse(ctx context.Context, fileID contract.FileID, r io.Reader) ([]contract.Token, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	dec := json.NewDecoder(r)
	var words []string
	if err := dec.Decode(&words); err != nil {
		return nil, classify(fileID, err)
	}
	if words == nil {
		// 字面量 null
		return nil, malformed(fileID, errors.New("expected array, got null"))
	}
	if _, err := dec.Token(); err != io.EOF {
		if err != nil && !isDecodeErr(err) {
			return nil, readErr(fileID, err)
		}
		return nil, malformed(fileID, errors.New("unexpected data after array"))
	}
	out := make([]contract.Token, len(words))
	for i, w := range words {
		out[i] = contract.Token(w)
	}
	return out, nil
}

// classify 区分 JSON 结构错误与读取错误。
func classify(fileID contract.FileID, err error) error {
	if isDecodeErr(err) {
		return malformed(fileID, err)
	}
	return readErr(fileID, err)
}

// isDecodeErr: 语法/类型错误与截断（含空输入）视为格式错误。
func isDecodeErr(err error) bool {
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	return errors.As(err, &syn) || errors.As(err, &typ) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func malformed(fileID contract.FileID, err error) error {
	return fmt.Errorf("%w: %s: %v", contract.ErrMalformedInput, fileID, err)
}

func readErr(fileID contract.FileID, err error) error {
	return fmt.Errorf("read %s: %w", fileID, err)
}

var _ contract.Parser = (*Parser)(nil)
