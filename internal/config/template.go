package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板，复现三类查询：
// - query1: 旧式逐行 animals.json → bool.must + releaseYear 范围；
// - query4: JSON 西语词表，每 250 词一个 should 子句；
// - query_single: 单个 query_string。
// 输出目录为 ./queries；选项包含全部键，值为安全中性默认。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Jobs: []Job{
			{
				Name:     "query1",
				Input:    "output/animals.json",
				Output:   "query1.json",
				Format:   "lines",
				Capacity: 0,
				Template: json.RawMessage(`{
  "kind": "bool_must_range",
  "fields": ["title^2", "synopsis", "plotKeywords^3"],
  "range_field": "releaseYear",
  "range_gte": 1950
}`),
			},
			{
				Name:     "query4",
				Input:    "output/spanish-word-dic.json",
				Output:   "query4.json",
				Format:   "json",
				Capacity: 250,
				Template: json.RawMessage(`{
  "kind": "bool_should_multi",
  "fields": ["title", "synopsis", "plotKeywords", "filmingLocations", "originCountry", "primaryLanguages"]
}`),
			},
			{
				Name:     "query_single",
				Input:    "output/animals.json",
				Output:   "query_single.json",
				Format:   "lines",
				Capacity: 0,
				Template: json.RawMessage(`{
  "kind": "single",
  "fields": ["title", "synopsis"]
}`),
			},
		},
		Logging:    d.Logging,
		Components: d.Components,
	}
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "exclude_dir_names": [".git", "node_modules", "vendor"],
  "allow_exts": []
}`)
	cfg.Options.Batcher = json.RawMessage(`{
  "strip_chars": "\"',",
  "skip_empty": false
}`)
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": "queries",
  "no_clobber": true,
  "flat": false,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	cfg.Options.Parser = map[string]json.RawMessage{
		"json":     json.RawMessage(`{}`),
		"lines":    json.RawMessage(`{"max_line_bytes": 1048576}`),
		"wikihtml": json.RawMessage(`{"max_words": 1024, "content_id": "mw-content-text"}`),
	}
	return cfg
}
