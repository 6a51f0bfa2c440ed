package template

import (
	"context"
	"fmt"
	"strings"

	"wordquery/pkg/contract"
)

// 各模板的默认字段（含权重后缀）。
var (
	DefaultSingleFields    = []string{"title", "synopsis"}
	DefaultMustRangeFields = []string{"title^2", "synopsis", "plotKeywords^3"}
	DefaultShouldFields    = []string{"title", "synopsis", "plotKeywords", "filmingLocations", "originCountry", "primaryLanguages"}
)

// range 子句默认值：releaseYear >= 1950。
const (
	DefaultRangeField = "releaseYear"
	DefaultRangeGTE   = 1950
)

// Options: 模板装配器选项。
type Options struct {
	// Kind: 模板名（single|bool_must_range|bool_should_multi），必需。
	Kind string `json:"kind"`
	// Fields: query_string.fields；为空时使用模板默认字段。
	Fields []string `json:"fields,omitempty"`
	// RangeField/RangeGTE: 仅 bool_must_range 使用；为空/nil 时使用默认值。
	RangeField string `json:"range_field,omitempty"`
	RangeGTE   *int   `json:"range_gte,omitempty"`
}

// Assembler 将批嵌入固定形状的查询文档。
type Assembler struct {
	kind       contract.TemplateKind
	fields     []string
	rangeField string
	rangeGTE   int
}

// New 创建模板装配器；未知模板名返回 ErrInvalidArgument。
func New(opts *Options) (*Assembler, error) {
	if opts == nil {
		return nil, fmt.Errorf("%w: template kind required", contract.ErrInvalidArgument)
	}
	kind, err := contract.ParseTemplateKind(opts.Kind)
	if err != nil {
		return nil, err
	}
	a := &Assembler{kind: kind, fields: defaultFields(kind), rangeField: DefaultRangeField, rangeGTE: DefaultRangeGTE}
	if len(opts.Fields) > 0 {
		fields := make([]string, 0, len(opts.Fields))
		for _, f := range opts.Fields {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
		if len(fields) == 0 {
			return nil, fmt.Errorf("%w: fields must not be blank", contract.ErrInvalidArgument)
		}
		a.fields = fields
	}
	if s := strings.TrimSpace(opts.RangeField); s != "" {
		a.rangeField = s
	}
	if opts.RangeGTE != nil {
		a.rangeGTE = *opts.RangeGTE
	}
	return a, nil
}

// Assemble 使用模板默认字段装配（纯函数）。
func Assemble(batches []contract.Batch, kind contract.TemplateKind) (contract.Document, error) {
	a, err := New(&Options{Kind: string(kind)})
	if err != nil {
		return contract.Document{}, err
	}
	return a.Assemble(context.Background(), batches)
}

// Kind 返回模板形状。
func (a *Assembler) Kind() contract.TemplateKind { return a.kind }

// Assemble 按模板形状嵌入批：
// - single / bool_must_range：至多一个批，否则 ErrTooManyBatches；无批时嵌入空查询串；
// - bool_should_multi：每批一个 should 元素，各自持有独立的字段切片副本。
func (a *Assembler) Assemble(ctx context.Context, batches []contract.Batch) (contract.Document, error) {
	select {
	case <-ctx.Done():
		return contract.Document{}, ctx.Err()
	default:
	}
	if a.kind.SingleBatch() && len(batches) > 1 {
		return contract.Document{}, fmt.Errorf("%w: template %s accepts one batch, got %d", contract.ErrTooManyBatches, a.kind, len(batches))
	}

	switch a.kind {
	case contract.TemplateSingle:
		return contract.Document{Query: a.queryString(firstQuery(batches))}, nil
	case contract.TemplateBoolMustRange:
		must := []contract.Query{
			a.queryString(firstQuery(batches)),
			{Range: map[string]contract.RangeBound{a.rangeField: {GTE: a.rangeGTE}}},
		}
		return contract.Document{Query: contract.Query{Bool: &contract.BoolQuery{Must: must}}}, nil
	case contract.TemplateBoolShouldMulti:
		should := make([]contract.Query, 0, len(batches))
		for _, b := range batches {
			should = append(should, a.queryString(b.Query))
		}
		return contract.Document{Query: contract.Query{Bool: &contract.BoolQuery{Should: should}}}, nil
	default:
		return contract.Document{}, fmt.Errorf("%w: unknown template %q", contract.ErrInvalidArgument, a.kind)
	}
}

func (a *Assembler) queryString(q string) contract.Query {
	fields := make([]string, len(a.fields))
	copy(fields, a.fields)
	return contract.Query{QueryString: &contract.QueryString{Fields: fields, Query: q}}
}

func firstQuery(batches []contract.Batch) string {
	if len(batches) == 0 {
		return ""
	}
	return batches[0].Query
}

func defaultFields(kind contract.TemplateKind) []string {
	switch kind {
	case contract.TemplateBoolMustRange:
		return DefaultMustRangeFields
	case contract.TemplateBoolShouldMulti:
		return DefaultShouldFields
	default:
		return DefaultSingleFields
	}
}

var _ contract.Assembler = (*Assembler)(nil)
