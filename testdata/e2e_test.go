package testdata

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "wordquery/internal/config"
	"wordquery/internal/pipeline"
	"wordquery/pkg/contract"
)

// baseConfig 读取 config/basic.json，并把输出目录指向 outDir。
func baseConfig(t *testing.T, outDir string) cfgpkg.Config {
	t.Helper()
	cfg, err := cfgpkg.LoadJSON(filepath.Join("config", "basic.json"), nil)
	require.NoError(t, err)
	cfg = cfgpkg.Merge(cfgpkg.Defaults(), cfg)
	cfg.OutputDir = outDir
	cfg.Logging.Level = "error"
	return cfg
}

func runPipeline(t *testing.T, cfg cfgpkg.Config) error {
	t.Helper()
	comp, jobs, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return err
	}
	return pipeline.Run(context.Background(), comp, jobs, nil)
}

func golden(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("golden", name))
	require.NoError(t, err)
	return string(b)
}

// 逐行格式与 JSON 格式两个 job 的输出与黄金文件逐字节一致
func TestE2ESuccess(t *testing.T) {
	outDir := t.TempDir()
	require.NoError(t, runPipeline(t, baseConfig(t, outDir)))

	got1, err := os.ReadFile(filepath.Join(outDir, "query1.json"))
	require.NoError(t, err)
	assert.Equal(t, golden(t, "query1.json"), string(got1))

	got4, err := os.ReadFile(filepath.Join(outDir, "nested", "query4.json"))
	require.NoError(t, err)
	assert.Equal(t, golden(t, "query4.json"), string(got4))
}

// 第二次运行跳过全部 job，输出不变
func TestE2EIdempotent(t *testing.T) {
	outDir := t.TempDir()
	cfg := baseConfig(t, outDir)
	require.NoError(t, runPipeline(t, cfg))
	p := filepath.Join(outDir, "query1.json")
	st1, err := os.Stat(p)
	require.NoError(t, err)
	require.NoError(t, runPipeline(t, cfg))
	st2, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, st1.ModTime(), st2.ModTime())
	assert.Equal(t, golden(t, "query1.json"), mustRead(t, p))
}

// 单批模板遇到多批：失败且不留下输出或临时文件
func TestE2ETooManyBatches(t *testing.T) {
	outDir := t.TempDir()
	cfg := baseConfig(t, outDir)
	cfg.Jobs[0].Capacity = 1
	err := runPipeline(t, cfg)
	require.ErrorIs(t, err, contract.ErrTooManyBatches)
	ents, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, ents)
}

// 输入缺失：ErrFileNotFound
func TestE2EMissingInput(t *testing.T) {
	outDir := t.TempDir()
	cfg := baseConfig(t, outDir)
	cfg.Jobs[0].Input = filepath.Join("words", "missing.json")
	err := runPipeline(t, cfg)
	assert.ErrorIs(t, err, contract.ErrFileNotFound)
}

// 维基页面 → 词表 → should 查询
func TestE2EWikiPage(t *testing.T) {
	outDir := t.TempDir()
	cfg := baseConfig(t, outDir)
	cfg.Jobs = []cfgpkg.Job{{
		Name:     "wiki",
		Input:    filepath.Join("words", "sample-page.html"),
		Format:   "wikihtml",
		Capacity: 250,
		Template: json.RawMessage(`{"kind":"bool_should_multi","fields":["title"]}`),
	}}
	require.NoError(t, runPipeline(t, cfg))
	var doc contract.Document
	require.NoError(t, json.Unmarshal([]byte(mustRead(t, filepath.Join(outDir, "wiki.json"))), &doc))
	require.Len(t, doc.Query.Bool.Should, 1)
	qs := doc.Query.Bool.Should[0].QueryString
	assert.Equal(t, []string{"title"}, qs.Fields)
	assert.Equal(t, "(Peninsula Iberica) OR (iberos) OR (celtas) OR (Roma)", qs.Query)
}

func mustRead(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(b)
}
