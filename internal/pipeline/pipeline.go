package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"wordquery/internal/diag"
	"wordquery/pkg/contract"
)

// - 顺序执行：job 之间、job 内部各阶段均同步，无并发。
// - 幂等：输出已存在的 job 直接跳过，不读取输入。
// - 首错即止：任一 job 失败立即返回，失败 job 不产生输出（Writer 负责原子提交）。

// Components 聚合跨 job 共享的原子组件。
type Components struct {
	Reader  contract.Reader
	Batcher contract.Batcher
	Writer  contract.Writer
}

// Job 为一次“词表 → 查询文档”转换。
type Job struct {
	Name   string
	Input  string
	Output contract.ArtifactID
	// Parser 由 job.format 决定；Assembler 由 job.template 决定。
	Parser    contract.Parser
	Assembler contract.Assembler
	// Capacity: 每批子句数；0 表示不分批（全部 token 一批）。
	Capacity int
}

// Run 依次执行 jobs：Exists → Reader → Parser → Batcher → Assembler → Encode → Writer。
// 全部跳过也视为成功。
func Run(ctx context.Context, comp Components, jobs []Job, logger *diag.Logger) error {
	if err := sanity(comp, jobs); err != nil {
		return fmt.Errorf("sanity: %w", err)
	}
	runStart := time.Now()
	t := diag.GetTerminal()
	t.RunStart(len(jobs))
	for _, j := range jobs {
		if err := runJob(ctx, comp, j, logger); err != nil {
			t.RunFinish(false, time.Since(runStart))
			return fmt.Errorf("job %s: %w", j.Name, err)
		}
	}
	t.RunFinish(true, time.Since(runStart))
	logger.InfoFinish("pipeline", "run", runStart, int64(len(jobs)))
	return nil
}

func runJob(ctx context.Context, comp Components, j Job, logger *diag.Logger) error {
	t := diag.GetTerminal()
	exists, err := comp.Writer.Exists(ctx, j.Output)
	if err != nil {
		stageErr(logger, "writer", "exists failed", nil, j.Name, err)
		return fmt.Errorf("writer exists: %w", err)
	}
	if exists {
		skip(logger, j)
		return nil
	}

	t.JobStart(j.Name, string(j.Output))
	batches, err := makeBatches(ctx, comp, j, logger)
	if err != nil {
		t.JobFinish(false, 0)
		return err
	}
	ok := false
	defer func() { t.JobFinish(ok, len(batches)) }()

	atimer := logger.StartWith("assembler", "assemble", j.Name, "")
	doc, err := j.Assembler.Assemble(ctx, batches)
	if err != nil {
		stageErr(logger, "assembler", "assemble failed", atimer.Since(), j.Name, err)
		return fmt.Errorf("assembler assemble: %w", err)
	}
	atimer.Finish("assemble", int64(len(batches)))
	diag.IncOp("assembler", "finish", "success")

	var buf bytes.Buffer
	if err := contract.EncodeDocument(&buf, doc); err != nil {
		stageErr(logger, "encoder", "encode failed", nil, j.Name, err)
		return fmt.Errorf("encode document: %w", err)
	}

	wtimer := logger.StartWith("writer", "write", j.Name, "")
	if err := comp.Writer.Write(ctx, j.Output, &buf); err != nil {
		if errors.Is(err, contract.ErrOutputExists) {
			// 检查与提交之间被其他进程写出：同样视为已完成
			skip(logger, j)
			ok = true
			return nil
		}
		stageErr(logger, "writer", "write failed", wtimer.Since(), j.Name, err)
		return fmt.Errorf("writer write: %w", err)
	}
	wtimer.Finish("write", 1)
	diag.IncOp("writer", "finish", "success")
	ok = true
	return nil
}

// Preview 对每个 job 执行 Reader → Parser → Batcher，逐行打印批次查询串；不检查也不写输出。
func Preview(ctx context.Context, comp Components, jobs []Job, w io.Writer, logger *diag.Logger) error {
	if comp.Reader == nil || comp.Batcher == nil {
		return errors.New("pipeline: missing components")
	}
	if w == nil {
		return errors.New("pipeline: nil preview writer")
	}
	for _, j := range jobs {
		if j.Parser == nil {
			return fmt.Errorf("job %s: pipeline: missing parser", j.Name)
		}
		batches, err := makeBatches(ctx, comp, j, logger)
		if err != nil {
			return fmt.Errorf("job %s: %w", j.Name, err)
		}
		for _, b := range batches {
			if _, err := io.WriteString(w, b.Query+"\n"); err != nil {
				return fmt.Errorf("job %s: preview write: %w", j.Name, err)
			}
		}
	}
	return nil
}

// makeBatches: 读取 job 输入（目录按字典序拼接全部文件的 token）并切批。
func makeBatches(ctx context.Context, comp Components, j Job, logger *diag.Logger) ([]contract.Batch, error) {
	rtimer := logger.StartWith("reader", "iterate", j.Name, "")
	var tokens []contract.Token
	parseFailed := false
	err := comp.Reader.Iterate(ctx, []string{j.Input}, func(fileID contract.FileID, r io.Reader) error {
		ptimer := logger.StartWith("parser", "parse", j.Name, string(fileID))
		toks, err := j.Parser.Parse(ctx, fileID, r)
		if err != nil {
			parseFailed = true
			stageErr(logger, "parser", "parse failed", ptimer.Since(), j.Name, err)
			return fmt.Errorf("parser parse: %w", err)
		}
		ptimer.Finish("parse", int64(len(toks)))
		diag.IncOp("parser", "finish", "success")
		tokens = append(tokens, toks...)
		return nil
	})
	if err != nil {
		if !parseFailed {
			stageErr(logger, "reader", "iterate failed", rtimer.Since(), j.Name, err)
		}
		return nil, fmt.Errorf("reader iterate: %w", err)
	}
	rtimer.Finish("iterate", int64(len(tokens)))
	diag.IncOp("reader", "finish", "success")
	if c, ok := j.Parser.(contract.JobCapper); ok {
		before := len(tokens)
		tokens = c.CapJob(tokens)
		if len(tokens) < before {
			logger.DebugStart("parser", "cap", j.Name, "", map[string]string{
				"before": strconv.Itoa(before),
				"after":  strconv.Itoa(len(tokens)),
			})
		}
	}

	limit := contract.BatchLimit{Capacity: effCapacity(j.Capacity, len(tokens))}
	logger.DebugStart("batcher", "make", j.Name, "", map[string]string{
		"tokens":   strconv.Itoa(len(tokens)),
		"capacity": strconv.Itoa(limit.Capacity),
	})
	btimer := logger.StartWith("batcher", "make", j.Name, "")
	batches, err := comp.Batcher.Make(ctx, tokens, limit)
	if err != nil {
		stageErr(logger, "batcher", "make failed", btimer.Since(), j.Name, err)
		return nil, fmt.Errorf("batcher make: %w", err)
	}
	btimer.Finish("make", int64(len(batches)))
	diag.IncOp("batcher", "finish", "success")
	return batches, nil
}

// effCapacity: 0 表示不分批，折算为 max(n,1)。
func effCapacity(capacity, n int) int {
	if capacity != 0 {
		return capacity
	}
	if n < 1 {
		return 1
	}
	return n
}

func skip(logger *diag.Logger, j Job) {
	logger.Skip("pipeline", "output exists", j.Name)
	diag.IncOp("pipeline", "skip", "skip")
	diag.GetTerminal().JobSkip(j.Name, string(j.Output))
}

func stageErr(logger *diag.Logger, comp, msg string, since *time.Time, job string, err error) {
	code := diag.Classify(err)
	logger.ErrorWith(comp, string(code), msg, since, job, "")
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

func sanity(c Components, jobs []Job) error {
	if c.Reader == nil || c.Batcher == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	seen := make(map[contract.ArtifactID]string, len(jobs))
	for _, j := range jobs {
		if j.Parser == nil || j.Assembler == nil {
			return fmt.Errorf("pipeline: job %q missing parser or assembler", j.Name)
		}
		if j.Capacity < 0 {
			return fmt.Errorf("%w: job %q capacity must be >= 0", contract.ErrInvalidArgument, j.Name)
		}
		if prev, dup := seen[j.Output]; dup {
			return fmt.Errorf("%w: jobs %q and %q share output %q", contract.ErrInvalidArgument, prev, j.Name, j.Output)
		}
		seen[j.Output] = j.Name
	}
	return nil
}
