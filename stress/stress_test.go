package stress

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cfgpkg "wordquery/internal/config"
	"wordquery/internal/pipeline"
	"wordquery/pkg/contract"
)

// baseConfig 构造单 job 的最小可运行配置（bool_should_multi，每批 250 词）。
func baseConfig(input, outDir string) cfgpkg.Config {
	cfg := cfgpkg.DefaultTemplateConfig()
	cfg.Jobs = []cfgpkg.Job{{
		Name:     "stress",
		Input:    input,
		Format:   "json",
		Capacity: 250,
		Template: json.RawMessage(`{"kind":"bool_should_multi"}`),
	}}
	cfg.Logging.Level = "error"
	cfg.OutputDir = outDir
	return cfg
}

// runPipeline 执行完整流水线。
func runPipeline(cfg cfgpkg.Config) error {
	comp, jobs, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return err
	}
	return pipeline.Run(context.Background(), comp, jobs, nil)
}

// writeWords 生成 n 个词的 JSON 数组输入。
func writeWords(t *testing.T, path string, n int) {
	t.Helper()
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("palabra%d", i)
	}
	b, err := json.Marshal(words)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

// TestStress 在不同词表规模下运行流水线，校验批数并记录延迟统计。
func TestStress(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	sizes := []int{1_000, 10_000, 100_000}
	for _, n := range sizes {
		t.Run(fmt.Sprintf("words_%d", n), func(t *testing.T) {
			const runs = 5
			in := filepath.Join(t.TempDir(), "words.json")
			writeWords(t, in, n)
			wantBatches := int(math.Ceil(float64(n) / 250))

			latencies := make([]time.Duration, 0, runs)
			for i := 0; i < runs; i++ {
				outDir := t.TempDir()
				start := time.Now()
				require.NoError(t, runPipeline(baseConfig(in, outDir)), "run %d", i)
				latencies = append(latencies, time.Since(start))

				b, err := os.ReadFile(filepath.Join(outDir, "stress.json"))
				require.NoError(t, err)
				var doc contract.Document
				require.NoError(t, json.Unmarshal(b, &doc))
				require.Len(t, doc.Query.Bool.Should, wantBatches)
			}
			sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
			var total time.Duration
			for _, d := range latencies {
				total += d
			}
			avg := total / time.Duration(len(latencies))
			idx := int(math.Ceil(float64(len(latencies))*0.95)) - 1
			if idx < 0 {
				idx = 0
			}
			t.Logf("词数%d 批数%d 平均%v 95%%延迟%v", n, wantBatches, avg, latencies[idx])
		})
	}
}
