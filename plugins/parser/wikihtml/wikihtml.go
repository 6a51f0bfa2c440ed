package wikihtml

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"wordquery/pkg/contract"
)

// DefaultMaxWords 对应检索引擎 indices.query.bool.max_clause_count 的默认值。
const DefaultMaxWords = 1024

// DefaultContentID 为维基页面正文容器的元素 id。
const DefaultContentID = "mw-content-text"

// Options: 维基页面词表提取选项。
type Options struct {
	// MaxWords: 一个 job 最多提取的词数（目录输入时对全部页面合计）；<=0 使用 DefaultMaxWords。
	MaxWords int `json:"max_words"`
	// ContentID: 正文容器 id；为空使用 DefaultContentID。找不到时退化为整页。
	ContentID string `json:"content_id"`
}

// Parser 从本地保存的维基百科页面中提取“显著词”：正文内指向 /wiki/ 的链接文本。
type Parser struct {
	maxWords  int
	contentID string
}

// New 创建维基页面解析器。
func New(opts *Options) *Parser {
	p := &Parser{maxWords: DefaultMaxWords, contentID: DefaultContentID}
	if opts != nil {
		if opts.MaxWords > 0 {
			p.maxWords = opts.MaxWords
		}
		if s := strings.TrimSpace(opts.ContentID); s != "" {
			p.contentID = s
		}
	}
	return p
}

var (
	digitsOrDashes = regexp.MustCompile(`^[0-9\-]*$`)
	codeLike       = regexp.MustCompile(`^[A-Z][0-9]*$`)
	specialChars   = regexp.MustCompile(`[()\[\]}{.,:;]`)
	joiners        = regexp.MustCompile(`[_\-]`)
	dateLike       = []*regexp.Regexp{
		regexp.MustCompile(`^[a-z\s]*[0-9]+[a-zA-Z\s]*$`),
		regexp.MustCompile(`^[0-9]+[a-z\s]*[0-9]+[a-zA-Z\s]*$`),
		regexp.MustCompile(`^[IVXLCDM]*$`),
	}
)

// Parse 解析 HTML 并按文档顺序返回去重后的词（至多 maxWords 个）。
func (p *Parser) Parse(ctx context.Context, fileID contract.FileID, r io.Reader) ([]contract.Token, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contract.ErrMalformedInput, fileID, err)
	}
	root := findByID(doc, p.contentID)
	if root == nil {
		root = doc
	}

	seen := make(map[string]struct{})
	var out []contract.Token
	var walk func(n *html.Node) error
	walk = func(n *html.Node) error {
		if len(out) >= p.maxWords {
			return nil
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if err := ctxErr(ctx); err != nil {
				return err
			}
			if w, ok := p.candidate(n); ok {
				if _, dup := seen[w]; !dup {
					seen[w] = struct{}{}
					out = append(out, contract.Token(w))
				}
			}
			return nil
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return out, nil
}

// CapJob 对 job 内全部页面的词做跨页去重，并截断到 maxWords。
// 单页时 Parse 已保证同样的约束，此处为幂等操作。
func (p *Parser) CapJob(tokens []contract.Token) []contract.Token {
	seen := make(map[contract.Token]struct{}, len(tokens))
	out := tokens[:0:0]
	for _, t := range tokens {
		if len(out) >= p.maxWords {
			break
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// candidate 校验链接属性并返回清洗后的词。
func (p *Parser) candidate(a *html.Node) (string, bool) {
	href := attr(a, "href")
	i := strings.Index(href, "/wiki/")
	if i < 0 || i+len("/wiki/") >= len(href) {
		return "", false
	}
	title := attr(a, "title")
	if len(title) <= 1 || title == "ISBN" || title == "ISSN" {
		return "", false
	}
	if a.Parent != nil && hasClass(a.Parent, "citation") {
		return "", false
	}
	text := strings.Join(strings.Fields(textOf(a)), " ")
	if text == "" || digitsOrDashes.MatchString(text) || codeLike.MatchString(text) {
		return "", false
	}
	w := Clean(text)
	if SimilarToDate(w) {
		return "", false
	}
	return w, true
}

// Clean 去除重音、括号与标点，将 '_'/'-' 视作空格，并丢弃剩余的非 ASCII 字符。
func Clean(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	s = specialChars.ReplaceAllString(s, "")
	s = joiners.ReplaceAllString(s, " ")
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
}

// SimilarToDate 判断词是否形如日期/事件编号（如 "siglo 20"、"24 diciembre"）或罗马数字。
// 空串按罗马数字规则视为命中。
func SimilarToDate(s string) bool {
	for _, re := range dateLike {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findByID(c, id); f != nil {
			return f
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return sb.String()
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

var (
	_ contract.Parser    = (*Parser)(nil)
	_ contract.JobCapper = (*Parser)(nil)
)
