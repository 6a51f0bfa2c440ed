package contract

import (
	"context"
	"io"
)

// Parser: 将单个输入字节流解析为有序 Token 序列。
// 约束：
// 1) 保持源顺序，不去重（除非实现明确声明）；
// 2) 结构不符合预期时返回包裹 ErrMalformedInput 的错误；
// 3) 无内部并发、幂等。
type Parser interface {
	Parse(ctx context.Context, fileID FileID, r io.Reader) ([]Token, error)
}

// JobCapper 由需要对整个 job 的词表整体收口的 Parser 可选实现。
// 目录输入时各文件的 Token 先按字典序拼接，再交给 CapJob；
// 实现可据此去重并施加 job 级上限（如检索引擎的子句数上限）。
type JobCapper interface {
	CapJob(tokens []Token) []Token
}
