package contract

import (
	"context"
	"io"
)

// ArtifactID: 输出工件标识（相对输出根的路径）。
type ArtifactID = FileID

// Writer: 将序列化后的文档持久化到目标介质。
// 约束：
//  1. Exists 仅做存在性检查，不读取内容；
//  2. Write 不得留下部分写入的目标文件（临时文件 + 提交）；
//  3. ctx 取消/超时需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Exists(ctx context.Context, id ArtifactID) (bool, error)
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}
