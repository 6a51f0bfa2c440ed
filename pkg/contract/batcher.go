package contract

import "context"

// Batcher: 将有序 Token 切分为若干 Batch（批量子句构造器）。
// 约束：
//  1. 不重排、不丢失（实现可声明跳过空词）；
//  2. 除最后一批外，每批恰好 Capacity 个子句；
//  3. 任一批都不以 " OR " 开头或结尾；
//  4. Capacity < 1 返回 ErrInvalidArgument；
//  5. 纯计算，不做 I/O。
type Batcher interface {
	Make(ctx context.Context, tokens []Token, limit BatchLimit) ([]Batch, error)
}
