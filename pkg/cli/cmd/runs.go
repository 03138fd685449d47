package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LENAX/dagsched/pkg/api/dto"
	"github.com/LENAX/dagsched/pkg/cli/client"
	"github.com/LENAX/dagsched/pkg/cli/output"
	"github.com/LENAX/dagsched/pkg/storage"
)

var (
	runsFingerprint string
	runsVerdict     string
	runsLimit       int
	runsRemote      bool
)

// runsCmd runs子命令
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "分析记录查询命令",
	Long:  `查询已保存的分析记录。默认读取 --config 配置的数据库，--remote 时查询 --server 指定的服务。`,
}

// runsListCmd 列出分析记录
var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出分析记录",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := listRuns(cmd)
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(items)
		}
		if len(items) == 0 {
			output.Info("暂无分析记录")
			return nil
		}

		table := output.NewTable([]string{"RUN_ID", "SOURCE", "ENGINE", "M", "JOBS", "VERDICT", "STARTED", "DURATION"})
		for _, r := range items {
			duration := "-"
			if r.Duration != "" {
				duration = r.Duration
			}
			table.AddRow([]string{
				r.ID,
				r.Source,
				r.Engine,
				fmt.Sprint(r.Processors),
				fmt.Sprint(r.JobCount),
				output.Verdict(r.Verdict),
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				duration,
			})
		}
		table.Render()
		return nil
	},
}

// runsShowCmd 查看分析记录详情
var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "查看分析记录详情",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detail, err := getRun(cmd, args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}
		if outputJSON {
			return output.PrintJSON(detail)
		}

		fmt.Fprintf(output.Out, "Run:         %s\n", detail.ID)
		fmt.Fprintf(output.Out, "Source:      %s\n", detail.Source)
		fmt.Fprintf(output.Out, "Fingerprint: %s\n", detail.Fingerprint)
		fmt.Fprintf(output.Out, "Engine:      %s (m=%d)\n", detail.Engine, detail.Processors)
		fmt.Fprintf(output.Out, "Verdict:     %s\n", output.Verdict(detail.Verdict))
		fmt.Fprintf(output.Out, "Hyperperiod: %d\n", detail.Hyperperiod)
		fmt.Fprintf(output.Out, "CPU:         %s\n", detail.CPUTime)
		if detail.Error != "" {
			fmt.Fprintf(output.Out, "Error:       %s\n", detail.Error)
		}
		if len(detail.Jobs) == 0 {
			return nil
		}

		fmt.Fprintln(output.Out)
		table := output.NewTable([]string{"TASK", "JOB", "ARRIVAL", "DEADLINE", "BCRT", "WCRT"})
		for _, j := range detail.Jobs {
			bcrt, wcrt := "-", "-"
			if j.HasFinish {
				bcrt, wcrt = fmt.Sprint(j.BCRT), fmt.Sprint(j.WCRT)
			}
			table.AddRow([]string{fmt.Sprint(j.TaskID), fmt.Sprint(j.JobID), fmt.Sprint(j.Arrival), fmt.Sprint(j.Deadline), bcrt, wcrt})
		}
		table.Render()
		return nil
	},
}

func listRuns(cmd *cobra.Command) ([]dto.RunSummary, error) {
	if runsRemote {
		resp, err := client.New(serverURL).ListRuns(runsFingerprint, runsVerdict, runsLimit, 0)
		if err != nil {
			return nil, err
		}
		return resp.Items, nil
	}

	eng, err := buildEngine(nil)
	if err != nil {
		return nil, err
	}
	defer eng.Close()
	runs, err := eng.ListRuns(cmd.Context(), storage.RunFilter{
		Fingerprint: runsFingerprint,
		Verdict:     runsVerdict,
		Limit:       runsLimit,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.RunSummary, len(runs))
	for i, r := range runs {
		items[i] = dto.NewRunSummary(r)
	}
	return items, nil
}

func getRun(cmd *cobra.Command, id string) (*dto.RunDetail, error) {
	if runsRemote {
		return client.New(serverURL).GetRun(id)
	}

	eng, err := buildEngine(nil)
	if err != nil {
		return nil, err
	}
	defer eng.Close()
	run, err := eng.GetRun(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	return &dto.RunDetail{RunSummary: dto.NewRunSummary(run), Jobs: run.Results}, nil
}

func init() {
	runsCmd.PersistentFlags().BoolVar(&runsRemote, "remote", false, "查询 --server 指定的服务")
	runsListCmd.Flags().StringVar(&runsFingerprint, "fingerprint", "", "按任务集指纹过滤")
	runsListCmd.Flags().StringVar(&runsVerdict, "verdict", "", "按结论过滤（schedulable/unschedulable/failed）")
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "l", 20, "返回数量")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}
