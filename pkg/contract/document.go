package contract

import (
	"bytes"
	"encoding/json"
	"io"
)

// Document: 全文检索请求文档（最终序列化为 JSON 写盘）。
type Document struct {
	Query Query `json:"query"`
}

// Query: 查询子句；同一时刻只设置其中一个字段。
type Query struct {
	QueryString *QueryString          `json:"query_string,omitempty"`
	Bool        *BoolQuery            `json:"bool,omitempty"`
	Range       map[string]RangeBound `json:"range,omitempty"`
}

// QueryString: query_string 子句。
type QueryString struct {
	Fields []string `json:"fields"`
	Query  string   `json:"query"`
}

// BoolQuery: bool 子句。
// nil 切片不输出；非 nil 的空切片输出为 []（例如没有任何批时的 should）。
type BoolQuery struct {
	Must   []Query `json:"must"`
	Should []Query `json:"should"`
}

// MarshalJSON 仅输出非 nil 的分支。
func (b BoolQuery) MarshalJSON() ([]byte, error) {
	m := make(map[string][]Query, 2)
	if b.Must != nil {
		m["must"] = b.Must
	}
	if b.Should != nil {
		m["should"] = b.Should
	}
	// 与 EncodeDocument 一致：不做 HTML 转义
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// RangeBound: range 子句的边界。
type RangeBound struct {
	GTE int `json:"gte"`
}

// EncodeDocument 以 4 空格缩进写出文档（不做 HTML 转义）。
func EncodeDocument(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(doc)
}
