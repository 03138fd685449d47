package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LENAX/dagsched/pkg/cli/output"
	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/core/unfold"
)

type hyperperiodResult struct {
	File        string `json:"file"`
	Hyperperiod int64  `json:"hyperperiod"`
	Tasks       int    `json:"tasks"`
	Jobs        int64  `json:"jobs"`
	Fingerprint string `json:"fingerprint"`
}

// hyperperiodCmd 计算超周期
var hyperperiodCmd = &cobra.Command{
	Use:   "hyperperiod <taskset.yaml>...",
	Short: "计算任务集超周期和展开后的作业数量",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results := make([]hyperperiodResult, 0, len(args))
		for _, path := range args {
			ts, err := config.LoadTaskset(path)
			if err != nil {
				output.Error("加载任务集失败: %v", err)
				return err
			}
			hp, err := ts.Hyperperiod()
			if err != nil {
				output.Error("%s: %v", path, err)
				return err
			}
			jobs, err := unfold.CountJobs(ts)
			if err != nil {
				return err
			}
			results = append(results, hyperperiodResult{
				File:        path,
				Hyperperiod: hp,
				Tasks:       ts.Len(),
				Jobs:        jobs,
				Fingerprint: ts.Fingerprint(),
			})
		}

		if outputJSON {
			return output.PrintJSON(results)
		}
		table := output.NewTable([]string{"FILE", "TASKS", "HYPERPERIOD", "JOBS"})
		for _, r := range results {
			table.AddRow([]string{r.File, fmt.Sprint(r.Tasks), fmt.Sprint(r.Hyperperiod), fmt.Sprint(r.Jobs)})
		}
		table.Render()
		return nil
	},
}
