package contract

import "errors"

// 最小错误分类（用于上层策略判定与日志分类）。
var (
	// ErrFileNotFound: 输入文件/目录不存在。
	ErrFileNotFound = errors.New("file not found")
	// ErrMalformedInput: 输入不是合法的 JSON 字符串数组，或行结构不符合预期。
	ErrMalformedInput = errors.New("malformed input")
	// ErrInvalidArgument: 参数非法（如 capacity < 1、未知模板名）。
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTooManyBatches: 单批模板收到多于一个批。
	ErrTooManyBatches = errors.New("too many batches")
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrOutputExists: 提交时发现目标文件已存在（不覆盖）。
	ErrOutputExists = errors.New("output exists")
)
