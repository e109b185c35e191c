package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"resume-screening-go/internal/types"
)

var (
	maxLen   int
	trainArg bool
	jdText   string
	jdFile   string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "提取文档纯文本",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, cleanup, err := newComponents(ctx, false)
		if err != nil {
			return err
		}
		defer cleanup()

		start := time.Now()
		text, err := c.Analyzer.ExtractText(ctx, documentFor(args[0]))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "提取完成! 耗时: %v, 总计 %d 字符\n\n", time.Since(start), len([]rune(text)))
		if maxLen >= 0 {
			if r := []rune(text); len(r) > maxLen {
				text = string(r[:maxLen]) + "..."
			}
		}
		fmt.Fprintln(out, text)
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "分析简历并输出技能、评分与推荐",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, cleanup, err := newComponents(ctx, trainArg)
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := c.Analyzer.AnalyzeDocument(ctx, documentFor(args[0]))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var matchCmd = &cobra.Command{
	Use:   "match <resume>",
	Short: "计算简历与岗位描述的技能匹配度",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description := jdText
		if jdFile != "" {
			data, err := os.ReadFile(jdFile)
			if err != nil {
				return fmt.Errorf("读取岗位描述失败: %w", err)
			}
			description = string(data)
		}
		if strings.TrimSpace(description) == "" {
			return fmt.Errorf("必须通过 --jd 或 --jd-file 提供岗位描述")
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, cleanup, err := newComponents(ctx, trainArg)
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := c.Analyzer.MatchDocument(ctx, documentFor(args[0]), description)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func documentFor(path string) types.DocumentInput {
	return types.DocumentInput{Name: filepath.Base(path), Path: path}
}

func init() {
	extractCmd.Flags().IntVar(&maxLen, "maxlen", 1000, "显示的文本最大长度，-1 显示全部")

	analyzeCmd.Flags().BoolVar(&trainArg, "train", false, "分析前从配置的语料来源训练模型")

	matchCmd.Flags().StringVar(&jdText, "jd", "", "岗位描述文本")
	matchCmd.Flags().StringVar(&jdFile, "jd-file", "", "岗位描述文件")
	matchCmd.Flags().BoolVar(&trainArg, "train", false, "匹配前从配置的语料来源训练模型")

	rootCmd.AddCommand(extractCmd, analyzeCmd, matchCmd)
}
