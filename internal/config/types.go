package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// Jobs: 每个 job 产出一个查询文档。
	Jobs []Job `json:"jobs"`
	// Only: 仅执行这些名称的 job（空表示全部）。
	Only []string `json:"only,omitempty"`
	// OutputDir: 覆盖 options.writer.output_dir（便于 ENV/CLI 调整）。
	OutputDir string `json:"output_dir,omitempty"`

	Logging Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Job: 一次“词表 → 查询文档”的转换定义。
type Job struct {
	Name string `json:"name"`
	// Input: 文件、目录或 "-"（STDIN）。
	Input string `json:"input"`
	// Output: 相对 writer.output_dir 的输出路径；空则为 <name>.json。
	Output string `json:"output,omitempty"`
	// Format: 解析器名（json|lines|wikihtml）；空则 json。
	Format string `json:"format,omitempty"`
	// Capacity: 每批子句数；0 表示不分批。
	Capacity int `json:"capacity"`
	// Template: 装配器 Options（至少包含 kind）。
	Template json.RawMessage `json:"template"`
}

// Logging: 日志等级与目录。
type Logging struct {
	Level string `json:"level"`
	Dir   string `json:"dir,omitempty"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader    string `json:"reader"`
	Batcher   string `json:"batcher"`
	Assembler string `json:"assembler"`
	Writer    string `json:"writer"`
}

// Options: 各组件的原样 JSON Options；Parser 按格式名分键。
type Options struct {
	Reader  json.RawMessage            `json:"reader"`
	Batcher json.RawMessage            `json:"batcher"`
	Writer  json.RawMessage            `json:"writer"`
	Parser  map[string]json.RawMessage `json:"parser,omitempty"`
}
