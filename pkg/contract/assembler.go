package contract

import "context"

// Assembler: 将批按模板装配为查询文档。
// 约束：
//  1. 单批模板收到多于一个批时返回 ErrTooManyBatches；
//  2. 批按 Index 顺序嵌入；
//  3. 纯计算，不做 I/O。
type Assembler interface {
	Assemble(ctx context.Context, batches []Batch) (Document, error)
}
