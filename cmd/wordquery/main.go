// Command wordquery turns word lists into full-text search query documents.
// Each configured job reads a list (JSON array, legacy one-per-line array or a
// saved Wikipedia page), joins the words into "(a) OR (b)" batches and writes
// the resulting query JSON once; existing outputs are left untouched.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cfgpkg "wordquery/internal/config"
	"wordquery/internal/diag"
	"wordquery/internal/pipeline"
)

var (
	pipelineRun     = pipeline.Run
	pipelinePreview = pipeline.Preview
)

// 退出码：0 成功（含全部跳过）；3 配置错误；1 运行期错误。
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 3
)

// DefaultConfigFile 为未显式指定时尝试读取的配置文件。
const DefaultConfigFile = "wordquery.json"

// exitError 携带退出码穿过 cobra 的 RunE。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configErr(format string, a ...any) error {
	return &exitError{code: exitConfig, err: fmt.Errorf(format, a...)}
}

// cliFlags: 全局旗标（最小集）。
type cliFlags struct {
	config    string
	initDir   string
	status    bool
	outputDir string
	logLevel  string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintf(stderr, "提示：.env 读取失败（已忽略）：%v\n", err)
	}
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra 自身的旗标/参数错误归为配置错误
	fmt.Fprintf(stderr, "参数错误: %v\n", err)
	return exitConfig
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var fl cliFlags
	root := &cobra.Command{
		Use:           "wordquery [job...]",
		Short:         "Generate search query documents from word lists",
		Long:          "Runs every configured job (or only the named ones) and writes each query document once.\nOutputs that already exist are skipped.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), fl, args, false, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&fl.config, "config", "", "配置文件路径（JSON）；缺省读取 ./"+DefaultConfigFile+"（若存在）")
	pf.StringVar(&fl.initDir, "init-config", "", "在指定目录生成默认配置 "+DefaultConfigFile+" 和 .env 模板（已存在则跳过）；不带值时为当前目录")
	pf.Lookup("init-config").NoOptDefVal = "."
	pf.BoolVar(&fl.status, "status", true, "终端状态提示（stderr）")
	pf.StringVar(&fl.outputDir, "output-dir", "", "输出目录（覆盖配置）")
	pf.StringVar(&fl.logLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")

	runCmd := &cobra.Command{
		Use:     "run [job...]",
		Short:   "Write query documents for all (or the named) jobs",
		Example: "  wordquery run\n  wordquery run query4 --output-dir out",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), fl, args, false, stdout, stderr)
		},
	}
	root.AddCommand(runCmd)

	printCmd := &cobra.Command{
		Use:     "print [job...]",
		Short:   "Print each batch query string to stdout without writing anything",
		Example: "  wordquery print query1",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), fl, args, true, stdout, stderr)
		},
	}
	root.AddCommand(printCmd)
	return root
}

func execute(ctx context.Context, fl cliFlags, jobNames []string, preview bool, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	corrID := genCorrID()

	// --init-config: 生成模板并退出
	if dir := strings.TrimSpace(fl.initDir); dir != "" {
		if err := initConfig(dir, stderr); err != nil {
			fmt.Fprintf(stderr, "生成默认配置失败: %v\n", err)
			return &exitError{code: exitConfig, err: err}
		}
		return nil
	}

	cfg, err := resolveConfig(fl, jobNames)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return err
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "配置校验失败: %v\n", err)
		// 打印有效配置，便于诊断
		_ = dumpConfig(stderr, cfg)
		return &exitError{code: exitConfig, err: err}
	}

	logger := diag.NewLogger(corrID, cfg.Logging.Level, cfg.Logging.Dir)
	defer logger.Close()

	if !preview {
		// 预检：若使用文件系统 Writer，检查输出目录的可写性
		if err := preflightCheckOutputDir(cfg); err != nil {
			fmt.Fprintf(stderr, "输出目录不可写或无法创建: %v\n", err)
			logger.Error("pipeline", string(diag.Classify(err)), "preflight failed", &start)
			return &exitError{code: exitConfig, err: err}
		}
	}

	comp, jobs, err := cfgpkg.Assemble(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "装配失败: %v\n", err)
		logger.Error("pipeline", string(diag.Classify(err)), "assemble failed", &start)
		return &exitError{code: exitConfig, err: err}
	}

	// debug: 输出运行时配置信息
	logger.DebugStart("config", "effective", "", "", map[string]string{
		"jobs":      strconv.Itoa(len(jobs)),
		"reader":    cfg.Components.Reader,
		"batcher":   cfg.Components.Batcher,
		"assembler": cfg.Components.Assembler,
		"writer":    cfg.Components.Writer,
		"preview":   strconv.FormatBool(preview),
	})

	if preview {
		if err := pipelinePreview(ctx, comp, jobs, stdout, logger); err != nil {
			return runtimeFailure(logger, stderr, err, start)
		}
		return nil
	}

	// 终端信息提示（非日志）：按 CLI 启用，默认开启
	diag.SetTerminal(diag.NewTerminal(stderr, fl.status))
	defer diag.SetTerminal(nil)

	t := logger.Start("pipeline", "run")
	if err := pipelineRun(ctx, comp, jobs, logger); err != nil {
		return runtimeFailure(logger, stderr, err, start)
	}
	t.Finish("run", int64(len(jobs)))
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	for _, s := range diag.Snapshot() {
		logger.DebugStart("metrics", s.Name, "", "", map[string]string{"value": strconv.FormatInt(s.Value, 10)})
	}
	return nil
}

func runtimeFailure(logger *diag.Logger, stderr io.Writer, err error, start time.Time) error {
	code := string(diag.Classify(err))
	logger.Error("pipeline", code, "first error", &start)
	diag.IncOp("pipeline", "error", "error")
	if code != string(diag.CodeUnknown) {
		diag.IncError("pipeline", code)
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "运行失败: %v\n", err)
	}
	return &exitError{code: exitRuntime, err: err}
}

// resolveConfig: Defaults → JSON（文件或 WORDQUERY_CONFIG_JSON）→ ENV → CLI。
func resolveConfig(fl cliFlags, jobNames []string) (cfgpkg.Config, error) {
	var cfgJSON []byte
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); strings.TrimSpace(s) != "" {
		cfgJSON = []byte(s)
	}
	path := fl.config
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	cfg := cfgpkg.Defaults()
	if path != "" || len(cfgJSON) > 0 {
		base, err := cfgpkg.LoadJSON(path, cfgJSON)
		if err != nil {
			return cfg, configErr("配置解析失败: %w", err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, configErr("环境变量解析失败: %w", err)
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	var overCLI cfgpkg.Config
	overCLI.OutputDir = fl.outputDir
	overCLI.Logging.Level = fl.logLevel
	overCLI.Only = jobNames
	return cfgpkg.Merge(cfg, overCLI), nil
}

func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "有效配置:\n%s\n", b)
	return err
}

func genCorrID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(b[:])
}

// loadDotEnv: 文件不存在时忽略；godotenv.Load 不覆盖已存在的环境变量。
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// initConfig 在 dir 下生成 wordquery.json 与 .env 模板；已存在的文件保持不变。
func initConfig(dir string, stderr io.Writer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	cfgPath := filepath.Join(dir, DefaultConfigFile)
	created, err := writeConfig(cfgPath, cfgpkg.DefaultTemplateConfig())
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(stderr, "提示：%s 已存在，未覆盖\n", cfgPath)
	}
	// .env 生成失败不影响配置模板
	if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
		fmt.Fprintf(stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
	}
	return nil
}

// writeConfig 以 O_EXCL 创建；目标已存在时返回 created=false。
func writeConfig(path string, c cfgpkg.Config) (bool, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return false, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return false, err
	}
	return true, nil
}

// dotEnvKeys: .env 模板中列出的全部覆盖项（值留空表示未设置）。
var dotEnvKeys = []string{
	"CONFIG_FILE",
	"CONFIG_JSON",
	"LOGGING_LEVEL",
	"LOGGING_DIR",
	"OUTPUT_DIR",
	"JOBS_ONLY",
	"COMPONENTS_READER",
	"COMPONENTS_BATCHER",
	"COMPONENTS_ASSEMBLER",
	"COMPONENTS_WRITER",
	"OPTIONS_READER_JSON",
	"OPTIONS_BATCHER_JSON",
	"OPTIONS_WRITER_JSON",
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
func writeDotEnv(path string) error {
	env := make(map[string]string, len(dotEnvKeys))
	for _, k := range dotEnvKeys {
		env[cfgpkg.EnvPrefix+k] = ""
	}
	body, err := godotenv.Marshal(env)
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("# wordquery .env 模板（由 --init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > JSON；空值表示未设置。\n\n")
	b.WriteString(body)
	b.WriteString("\n")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}

// preflightCheckOutputDir: 当 Writer 使用文件系统实现(fs)时，启动前检查输出目录可写性。
// - 目录已存在：尝试创建并删除临时文件；
// - 目录不存在：检查最近的已存在祖先目录是否可写。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	writerName := strings.TrimSpace(cfg.Components.Writer)
	if writerName == "" {
		writerName = cfgpkg.Defaults().Components.Writer
	}
	if writerName != "fs" {
		return nil
	}
	dir := strings.TrimSpace(cfg.OutputDir)
	if dir == "" {
		var wopts struct {
			OutputDir string `json:"output_dir"`
		}
		if len(cfg.Options.Writer) > 0 {
			_ = json.Unmarshal(cfg.Options.Writer, &wopts)
		}
		dir = strings.TrimSpace(wopts.OutputDir)
	}
	if dir == "" {
		// 未指定时让装配阶段按实现自行报错
		return nil
	}
	for {
		st, err := os.Stat(dir)
		if err == nil {
			if !st.IsDir() {
				return fmt.Errorf("路径存在但不是目录: %s", dir)
			}
			f, err := os.CreateTemp(dir, ".wcheck-*")
			if err != nil {
				return err
			}
			name := f.Name()
			_ = f.Close()
			return os.Remove(name)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return fmt.Errorf("无法确定父目录: %s", dir)
		}
		dir = parent
	}
}
