package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// EnvPrefix 为全部环境变量键的前缀。
const EnvPrefix = "WORDQUERY_"

// Defaults 返回带有安全默认值的 Config 雏形。
// 注意：jobs 不设默认（必须由 JSON 提供，或使用 --init-config 生成的模板）。
func Defaults() Config {
	return Config{
		Logging: Logging{Level: "info", Dir: "logs"},
		Components: Components{
			Reader:    "fs",
			Batcher:   "clause",
			Assembler: "template",
			Writer:    "fs",
		},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	// 仅允许单个 JSON 值
	if _, err := dec.Token(); err != io.EOF {
		return cfg, errors.New("config: trailing data after JSON object")
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；jobs 整体替换，不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if len(over.Jobs) > 0 {
		out.Jobs = cloneJobs(over.Jobs)
	}
	if len(over.Only) > 0 {
		out.Only = cloneStrings(over.Only)
	}
	if s := strings.TrimSpace(over.OutputDir); s != "" {
		out.OutputDir = s
	}
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}
	if s := strings.TrimSpace(over.Logging.Dir); s != "" {
		out.Logging.Dir = s
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Batcher != "" {
		out.Components.Batcher = over.Components.Batcher
	}
	if over.Components.Assembler != "" {
		out.Components.Assembler = over.Components.Assembler
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Batcher) > 0 {
		out.Options.Batcher = cloneRaw(over.Options.Batcher)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	if len(over.Options.Parser) > 0 {
		m := make(map[string]json.RawMessage, len(out.Options.Parser)+len(over.Options.Parser))
		for k, v := range out.Options.Parser {
			m[k] = v
		}
		for k, v := range over.Options.Parser {
			m[k] = cloneRaw(v)
		}
		out.Options.Parser = m
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 前缀 WORDQUERY_；集合之外的键忽略。
// 支持：LOGGING_LEVEL, LOGGING_DIR, OUTPUT_DIR, JOBS_ONLY, COMPONENTS_*
// 以及 OPTIONS_{READER,BATCHER,WRITER}_JSON（原样 JSON）。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := strings.TrimPrefix(kv[:eq], EnvPrefix)
		val := strings.TrimSpace(kv[eq+1:])
		switch key {
		case "LOGGING_LEVEL":
			over.Logging.Level = val
		case "LOGGING_DIR":
			over.Logging.Dir = val
		case "OUTPUT_DIR":
			over.OutputDir = val
		case "JOBS_ONLY":
			over.Only = splitComma(val)
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_BATCHER":
			over.Components.Batcher = val
		case "COMPONENTS_ASSEMBLER":
			over.Components.Assembler = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		case "OPTIONS_READER_JSON", "OPTIONS_BATCHER_JSON", "OPTIONS_WRITER_JSON":
			// 空值视为未设置，避免清空现有配置
			if val == "" {
				continue
			}
			if !json.Valid([]byte(val)) {
				return Config{}, fmt.Errorf("config: %s%s is not valid JSON", EnvPrefix, key)
			}
			raw := json.RawMessage(val)
			switch key {
			case "OPTIONS_READER_JSON":
				over.Options.Reader = raw
			case "OPTIONS_BATCHER_JSON":
				over.Options.Batcher = raw
			default:
				over.Options.Writer = raw
			}
		default:
			// CONFIG_FILE / CONFIG_JSON 由入口处理；其他键忽略。
		}
	}
	return over, nil
}

func cloneJobs(in []Job) []Job {
	out := make([]Job, len(in))
	for i, j := range in {
		j.Template = cloneRaw(j.Template)
		out[i] = j
	}
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
