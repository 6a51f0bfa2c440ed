package wikihtml

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordquery/pkg/contract"
)

const page = `<!DOCTYPE html>
<html><body>
<div id="mw-navigation"><a href="/wiki/Portada" title="Portada">Portada</a></div>
<div id="mw-content-text">
  <p>La <a href="/wiki/Pen%C3%ADnsula_Ib%C3%A9rica" title="Península Ibérica">Península Ibérica</a>
  fue poblada por <a href="/wiki/Iberos" title="Iberos">íberos</a> y
  <a href="/wiki/Celtas" title="Celtas">celtas</a>; más tarde llegó
  <a href="/wiki/Roma" title="Roma">Roma</a> y de nuevo los <a href="/wiki/Iberos" title="Iberos">íberos</a>.</p>
  <p><a href="/wiki/Siglo_V" title="Siglo V">V</a>
  <a href="/wiki/1492" title="1492">1492</a>
  <a href="/wiki/A1" title="A1">A1</a>
  <a href="/wiki/Siglo_XX" title="Siglo XX">siglo 20</a>
  <a href="/wiki/ISBN" title="ISBN">ISBN</a>
  <a href="/wiki/X" title="X">Sin título largo</a>
  <a href="#cite" title="Nota">nota</a>
  <a href="/wiki/Castilla-La_Mancha" title="Castilla-La Mancha">Castilla-La Mancha (región)</a></p>
  <span class="citation"><a href="/wiki/Libro" title="Libro">Libro citado</a></span>
</div>
</body></html>`

// TestParsePage 仅正文内、属性合规、非日期、去重
func TestParsePage(t *testing.T) {
	toks, err := New(nil).Parse(context.Background(), "historia.html", strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, []contract.Token{
		"Peninsula Iberica",
		"iberos",
		"celtas",
		"Roma",
		"Castilla La Mancha region",
	}, toks)
}

// TestParseMaxWords 上限截断
func TestParseMaxWords(t *testing.T) {
	toks, err := New(&Options{MaxWords: 2}).Parse(context.Background(), "h.html", strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, []contract.Token{"Peninsula Iberica", "iberos"}, toks)
}

// TestCapJob 跨页去重并按 job 上限截断
func TestCapJob(t *testing.T) {
	p := New(&Options{MaxWords: 3})
	in := []contract.Token{"Roma", "celtas", "Roma", "iberos", "Toledo"}
	assert.Equal(t, []contract.Token{"Roma", "celtas", "iberos"}, p.CapJob(in))
	assert.Equal(t, []contract.Token{"Roma", "celtas", "Roma", "iberos", "Toledo"}, in, "输入不被修改")
	assert.Empty(t, New(nil).CapJob(nil))
}

// TestParseNoContentContainer 无正文容器时退化为整页
func TestParseNoContentContainer(t *testing.T) {
	in := `<html><body><a href="/wiki/Toledo" title="Toledo">Toledo</a></body></html>`
	toks, err := New(nil).Parse(context.Background(), "h.html", strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []contract.Token{"Toledo"}, toks)
}

// TestClean 重音折叠、标点移除、连接符转空格
func TestClean(t *testing.T) {
	cases := map[string]string{
		"Ñandú":               "Nandu",
		"Aragón (reino)":      "Aragon reino",
		"al-Ándalus":          "al Andalus",
		"Corona_de_Castilla":  "Corona de Castilla",
		"Barça: 1; {x}[y].":   "Barca 1 xy",
		"東京":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Clean(in), in)
	}
}

// TestSimilarToDate 日期/罗马数字判定
func TestSimilarToDate(t *testing.T) {
	for _, s := range []string{"1492", "siglo 20", "24 diciembre", "12 de 1492", "XIV", ""} {
		assert.True(t, SimilarToDate(s), s)
	}
	for _, s := range []string{"Roma", "Castilla", "Siglo de Oro"} {
		assert.False(t, SimilarToDate(s), s)
	}
}
