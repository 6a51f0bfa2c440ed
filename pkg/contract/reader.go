package contract

import (
	"context"
	"io"
)

// Reader: 输入源抽象（文件/目录/STDIN）。
// 约束：
// 1) 流式读取，按文件维度回调，目录内按字典序；
// 2) FileID 稳定且去平台差异化；
// 3) 不做解析，仅提供字节流；yield 返回后由 Reader 负责关闭；
// 4) 输入不存在时返回包裹 ErrFileNotFound 的错误。
type Reader interface {
	Iterate(ctx context.Context, roots []string, yield func(fileID FileID, r io.Reader) error) error
}
