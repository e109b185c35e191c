package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"resume-screening-go/internal/constants"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "打印版本号",
	// 不需要加载配置
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s\n", constants.ServiceName, constants.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
