package registry

import (
	"bytes"
	"encoding/json"

	"wordquery/pkg/contract"
	tmpl "wordquery/plugins/assembler/template"
	clause "wordquery/plugins/batcher/clause"
	pjson "wordquery/plugins/parser/jsonarray"
	plines "wordquery/plugins/parser/lines"
	pwiki "wordquery/plugins/parser/wikihtml"
	rfs "wordquery/plugins/reader/filesystem"
	wfs "wordquery/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewParser 工厂签名：接收原样 JSON Options。
type NewParser func(raw json.RawMessage) (contract.Parser, error)

// NewBatcher 工厂签名：接收原样 JSON Options。
type NewBatcher func(raw json.RawMessage) (contract.Batcher, error)

// NewAssembler 工厂签名：接收原样 JSON Options（每个 job 的 template 段）。
type NewAssembler func(raw json.RawMessage) (contract.Assembler, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件系统/STDIN Reader
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Parser 工厂注册表；键即 job.format。
var Parser = map[string]NewParser{
	// json: 规范格式，字符串 JSON 数组
	"json": func(raw json.RawMessage) (contract.Parser, error) {
		var opts struct{}
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return pjson.New(), nil
	},
	// lines: 旧式逐行格式，首尾为括号行
	"lines": func(raw json.RawMessage) (contract.Parser, error) {
		var opts plines.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return plines.New(&opts), nil
	},
	// wikihtml: 本地保存的维基百科页面
	"wikihtml": func(raw json.RawMessage) (contract.Parser, error) {
		var opts pwiki.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return pwiki.New(&opts), nil
	},
}

// Batcher 工厂注册表。
var Batcher = map[string]NewBatcher{
	// clause: "(a) OR (b)" 分批子句构造
	"clause": func(raw json.RawMessage) (contract.Batcher, error) {
		var opts clause.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return clause.New(&opts), nil
	},
}

// Assembler 工厂注册表。
var Assembler = map[string]NewAssembler{
	// template: single / bool_must_range / bool_should_multi
	"template": func(raw json.RawMessage) (contract.Assembler, error) {
		var opts tmpl.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return tmpl.New(&opts)
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（默认不覆盖；no_clobber=false 时原子替换）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}
