package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"resume-screening-go/internal/corpus"
	"resume-screening-go/internal/skills"
	"resume-screening-go/internal/storage"
)

var (
	corpusInput  string
	corpusOutput string
	corpusUpload bool
	corpusMySQL  bool
)

var buildCorpusCmd = &cobra.Command{
	Use:   "build-corpus",
	Short: "从简历目录构建 processed_resumes.json 与 training_data.json",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, cleanup, err := newComponents(ctx, false)
		if err != nil {
			return err
		}
		defer cleanup()

		builder := corpus.NewBuilder(c.Extractor, skills.NewLexicalExtractor(c.Vocab))
		processed, failed, err := builder.ProcessDir(ctx, corpusInput)
		if err != nil {
			return err
		}
		training, err := corpus.WriteFiles(corpusOutput, processed)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		s := corpus.Summarize(processed, failed)
		fmt.Fprintf(out, "已写入 %s 与 %s\n",
			filepath.Join(corpusOutput, corpus.ProcessedFile), filepath.Join(corpusOutput, corpus.TrainingFile))
		fmt.Fprintln(out, "\nSummary:")
		fmt.Fprintf(out, "Total resumes processed: %d (failed: %d)\n", s.Total, s.Failed)
		fmt.Fprintf(out, "Total skills identified: %d\n", s.TotalSkills)
		fmt.Fprintf(out, "Average skills per resume: %.2f\n", s.AverageSkills)
		fmt.Fprintf(out, "Unique skills found: %d\n", s.UniqueSkills)
		fmt.Fprintf(out, "Sample skills: %v\n", s.SampleSkills)

		if corpusUpload {
			minio, err := storage.NewMinIO(ctx, &cfg.MinIO)
			if err != nil {
				return fmt.Errorf("连接MinIO失败: %w", err)
			}
			if err := minio.UploadCorpus(ctx, cfg.Corpus.ObjectKey, training); err != nil {
				return err
			}
			fmt.Fprintf(out, "训练语料已上传到 %s/%s\n", cfg.MinIO.CorpusBucket, cfg.Corpus.ObjectKey)
		}
		if corpusMySQL {
			db, err := storage.NewMySQL(&cfg.MySQL)
			if err != nil {
				return fmt.Errorf("连接MySQL失败: %w", err)
			}
			defer db.Close()
			inserted, err := db.ImportTrainingSamples(ctx, corpus.TrainingSamples(processed), "build-corpus")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "已导入 %d 条训练样本到 MySQL\n", inserted)
		}
		return nil
	},
}

func init() {
	buildCorpusCmd.Flags().StringVarP(&corpusInput, "input", "i", "resumes", "简历目录")
	buildCorpusCmd.Flags().StringVarP(&corpusOutput, "output", "o", "processed_resumes", "输出目录")
	buildCorpusCmd.Flags().BoolVar(&corpusUpload, "upload", false, "上传 training_data.json 到 MinIO 语料存储桶")
	buildCorpusCmd.Flags().BoolVar(&corpusMySQL, "mysql", false, "导入训练样本到 MySQL training_samples 表")
	rootCmd.AddCommand(buildCorpusCmd)
}
