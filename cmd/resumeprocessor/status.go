package main

import (
	"github.com/spf13/cobra"
)

var statusTrain bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "输出词表与模型状态",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, cleanup, err := newComponents(ctx, statusTrain)
		if err != nil {
			return err
		}
		defer cleanup()
		return printJSON(cmd.OutOrStdout(), c.Analyzer.ModelStatus())
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusTrain, "train", false, "先从配置的语料来源训练模型")
	rootCmd.AddCommand(statusCmd)
}
