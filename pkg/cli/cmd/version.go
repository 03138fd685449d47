package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LENAX/dagsched/pkg/cli/output"
)

// 版本信息（编译时注入）
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// versionCmd version命令
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(output.Out, "dagsched\n")
		fmt.Fprintf(output.Out, "  Version:    %s\n", Version)
		fmt.Fprintf(output.Out, "  Git Commit: %s\n", GitCommit)
		fmt.Fprintf(output.Out, "  Build Time: %s\n", BuildTime)
	},
}
