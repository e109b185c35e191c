package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"resume-screening-go/internal/bootstrap"
	"resume-screening-go/internal/config"
	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/storage"
)

var (
	cfgFile string
	verbose bool
	timeout time.Duration

	cfg *config.Config
)

// rootCmd 运维命令行入口
var rootCmd = &cobra.Command{
	Use:   "resumeprocessor",
	Short: "简历技能分析运维工具",
	Long: `resumeprocessor 提供离线的语料构建与分析命令，与 HTTP 服务共用同一套配置。

示例:
  resumeprocessor build-corpus --input ./resumes --output ./data --mysql
  resumeprocessor analyze ./resumes/alice.pdf
  resumeprocessor match ./resumes/alice.pdf --jd-file ./jd.txt
  resumeprocessor status --train`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		level := "warn"
		if verbose {
			level = "debug"
		}
		_, err = logger.Init(logger.Config{Level: level, Format: "pretty", TimeFormat: "15:04:05"})
		return err
	},
}

// Execute 执行根命令
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径（默认在当前目录查找 config.yaml）")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "命令整体超时时间")
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

// newComponents 组装分析组件。需要训练且语料在 minio/mysql 时才连接外部存储，返回的 cleanup 必须调用
func newComponents(ctx context.Context, train bool) (*bootstrap.Components, func(), error) {
	var store *storage.Storage
	cleanup := func() {}
	if train && (cfg.Corpus.Source == "minio" || cfg.Corpus.Source == "mysql") {
		s, err := storage.NewStorage(ctx, cfg)
		if err != nil {
			return nil, cleanup, err
		}
		store = s
		cleanup = s.Close
	}
	c, err := bootstrap.Build(ctx, cfg, store, nil)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	if train {
		if _, err := c.Analyzer.Retrain(ctx); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("训练模型失败: %w", err)
		}
	}
	return c, cleanup, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化输出失败: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
