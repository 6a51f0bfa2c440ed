package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"wordquery/internal/diag"
	"wordquery/internal/pipeline"
	"wordquery/pkg/contract"
	"wordquery/pkg/registry"
)

// DefaultFormat 为 job.format 为空时使用的解析器。
const DefaultFormat = "json"

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if len(cfg.Jobs) == 0 {
		return errors.New("config: jobs empty")
	}
	if !diag.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("config: unknown logging level %q", cfg.Logging.Level)
	}
	names := make(map[string]struct{}, len(cfg.Jobs))
	outputs := make(map[string]string, len(cfg.Jobs))
	stdin := 0
	for i, j := range cfg.Jobs {
		name := strings.TrimSpace(j.Name)
		if name == "" {
			return fmt.Errorf("config: jobs[%d] name empty", i)
		}
		if _, dup := names[name]; dup {
			return fmt.Errorf("config: duplicate job name %q", name)
		}
		names[name] = struct{}{}
		if strings.TrimSpace(j.Input) == "" {
			return fmt.Errorf("config: job %q input empty", name)
		}
		if strings.TrimSpace(j.Input) == "-" {
			stdin++
		}
		out := outputOf(j)
		if prev, dup := outputs[out]; dup {
			return fmt.Errorf("config: jobs %q and %q share output %q", prev, name, out)
		}
		outputs[out] = name
		if j.Capacity < 0 {
			return fmt.Errorf("config: job %q capacity must be >= 0", name)
		}
		if f := formatOf(j); registry.Parser[f] == nil {
			return fmt.Errorf("config: job %q parser %q not registered", name, f)
		}
		if len(j.Template) == 0 {
			return fmt.Errorf("config: job %q template missing", name)
		}
	}
	// STDIN 只能被读取一次
	if stdin > 1 {
		return errors.New("config: at most one job may read '-'")
	}
	for _, n := range cfg.Only {
		if _, ok := names[n]; !ok {
			return fmt.Errorf("config: only: unknown job %q", n)
		}
	}
	// 组件名若为空，使用默认名（由 Defaults() 提供）。此处只要最终有值即可。
	d := Defaults()
	if name := effName(cfg.Components.Reader, d.Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := effName(cfg.Components.Batcher, d.Components.Batcher); registry.Batcher[name] == nil {
		return fmt.Errorf("config: batcher %q not registered", name)
	}
	if name := effName(cfg.Components.Assembler, d.Components.Assembler); registry.Assembler[name] == nil {
		return fmt.Errorf("config: assembler %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, d.Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}
	return nil
}

// Assemble 构造共享组件与（按 only 过滤后的）job 列表。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, []pipeline.Job, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, nil, err
	}
	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	bn := effName(cfg.Components.Batcher, d.Components.Batcher)
	an := effName(cfg.Components.Assembler, d.Components.Assembler)
	wn := effName(cfg.Components.Writer, d.Components.Writer)

	r, err := registry.Reader[rn](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, nil, fmt.Errorf("config: reader options: %w", err)
	}
	b, err := registry.Batcher[bn](cfg.Options.Batcher)
	if err != nil {
		return pipeline.Components{}, nil, fmt.Errorf("config: batcher options: %w", err)
	}
	wraw, err := withOutputDir(cfg.Options.Writer, cfg.OutputDir)
	if err != nil {
		return pipeline.Components{}, nil, err
	}
	w, err := registry.Writer[wn](wraw)
	if err != nil {
		return pipeline.Components{}, nil, fmt.Errorf("config: writer options: %w", err)
	}
	comp := pipeline.Components{Reader: r, Batcher: b, Writer: w}

	only := make(map[string]struct{}, len(cfg.Only))
	for _, n := range cfg.Only {
		only[n] = struct{}{}
	}
	// 同一格式的 Parser 在 job 之间共享
	parsers := map[string]contract.Parser{}
	jobs := make([]pipeline.Job, 0, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		name := strings.TrimSpace(j.Name)
		if len(only) > 0 {
			if _, ok := only[name]; !ok {
				continue
			}
		}
		f := formatOf(j)
		p, ok := parsers[f]
		if !ok {
			p, err = registry.Parser[f](cfg.Options.Parser[f])
			if err != nil {
				return pipeline.Components{}, nil, fmt.Errorf("config: parser %q options: %w", f, err)
			}
			parsers[f] = p
		}
		asm, err := registry.Assembler[an](j.Template)
		if err != nil {
			return pipeline.Components{}, nil, fmt.Errorf("config: job %q template: %w", name, err)
		}
		jobs = append(jobs, pipeline.Job{
			Name:      name,
			Input:     strings.TrimSpace(j.Input),
			Output:    contract.ArtifactID(outputOf(j)),
			Parser:    p,
			Assembler: asm,
			Capacity:  j.Capacity,
		})
	}
	return comp, jobs, nil
}

// withOutputDir: 非空 dir 覆盖 writer options 中的 output_dir，其余键保持不变。
func withOutputDir(raw json.RawMessage, dir string) (json.RawMessage, error) {
	if strings.TrimSpace(dir) == "" {
		return raw, nil
	}
	m := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("config: writer options: %w", err)
		}
	}
	v, err := json.Marshal(strings.TrimSpace(dir))
	if err != nil {
		return nil, err
	}
	m["output_dir"] = v
	return json.Marshal(m)
}

func outputOf(j Job) string {
	if s := strings.TrimSpace(j.Output); s != "" {
		return string(contract.NormalizeFileID(s))
	}
	return strings.TrimSpace(j.Name) + ".json"
}

func formatOf(j Job) string {
	if s := strings.ToLower(strings.TrimSpace(j.Format)); s != "" {
		return s
	}
	return DefaultFormat
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
