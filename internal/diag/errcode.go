package diag

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"wordquery/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown         Code = "unknown"
	CodeNotFound        Code = "not_found"
	CodeMalformed       Code = "malformed"
	CodeInvalidArgument Code = "invalid_argument"
	CodeTooManyBatches  Code = "too_many_batches"
	CodeExists          Code = "exists"
	CodePath            Code = "path"
	CodeCancel          Code = "cancel"
	CodeIO              Code = "io"
)

// Classify 将错误归为最小分类。
// 仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	// 取消/超时优先
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	switch {
	case errors.Is(err, contract.ErrFileNotFound), errors.Is(err, fs.ErrNotExist):
		return CodeNotFound
	case errors.Is(err, contract.ErrMalformedInput):
		return CodeMalformed
	case errors.Is(err, contract.ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, contract.ErrTooManyBatches):
		return CodeTooManyBatches
	case errors.Is(err, contract.ErrOutputExists):
		return CodeExists
	case errors.Is(err, contract.ErrPathInvalid):
		return CodePath
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	var lerr *os.LinkError
	if errors.As(err, &lerr) {
		return CodeIO
	}
	return CodeUnknown
}
