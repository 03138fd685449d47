package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/LENAX/dagsched/pkg/core/analysis"
	"github.com/LENAX/dagsched/pkg/core/unfold"
)

// ResponseTime 引擎输出的单个作业完成时间与响应时间
type ResponseTime struct {
	TaskID int
	JobID  int64
	BCCT   int64 // 最好完成时间
	WCCT   int64 // 最坏完成时间
	BCRT   int64
	WCRT   int64
}

// Key 作业标识
func (r ResponseTime) Key() unfold.JobKey {
	return unfold.JobKey{TaskID: r.TaskID, JobID: r.JobID}
}

// ResponseTimesFromResults 由分析报告的作业结果构造响应时间行，跳过没有完成时间的作业
func ResponseTimesFromResults(jobs []analysis.JobResult) []ResponseTime {
	rows := make([]ResponseTime, 0, len(jobs))
	for _, j := range jobs {
		if !j.HasFinish {
			continue
		}
		rows = append(rows, ResponseTime{
			TaskID: j.TaskID,
			JobID:  j.JobID,
			BCCT:   j.Finish.From,
			WCCT:   j.Finish.Until,
			BCRT:   j.BCRT,
			WCRT:   j.WCRT,
		})
	}
	return rows
}

// readRows 校验表头后逐行解析为整数
func readRows(r io.Reader, columns []string, fn func(line int, v []int64) error) error {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: 文件为空", ErrHeaderMismatch)
	}
	if err != nil {
		return err
	}
	if err := checkHeader(header, columns); err != nil {
		return err
	}

	values := make([]int64, len(columns))
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: 第 %d 行: %v", ErrMalformedRow, line, err)
		}
		if len(record) != len(columns) {
			return fmt.Errorf("%w: 第 %d 行期望 %d 列，实际 %d 列", ErrMalformedRow, line, len(columns), len(record))
		}
		for i, field := range record {
			v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
			if err != nil {
				return fmt.Errorf("%w: 第 %d 行第 %d 列 %q", ErrMalformedRow, line, i+1, field)
			}
			values[i] = v
		}
		if err := fn(line, values); err != nil {
			return err
		}
	}
}

// ReadJobs 读取作业文件
// 文件不携带激活序号与模板下标，返回的作业这两个字段为0
func ReadJobs(r io.Reader) ([]unfold.Job, error) {
	jobs := make([]unfold.Job, 0)
	err := readRows(r, JobColumns, func(_ int, v []int64) error {
		jobs = append(jobs, unfold.Job{
			TaskID:     int(v[0]),
			JobID:      v[1],
			ArrivalMin: v[2],
			ArrivalMax: v[3],
			CostMin:    v[4],
			CostMax:    v[5],
			Deadline:   v[6],
			Priority:   v[7],
		})
		return nil
	})
	return jobs, err
}

// ReadPrecedence 读取前驱约束文件
func ReadPrecedence(r io.Reader) ([]unfold.PrecedenceEdge, error) {
	edges := make([]unfold.PrecedenceEdge, 0)
	err := readRows(r, PrecedenceColumns, func(_ int, v []int64) error {
		edges = append(edges, unfold.PrecedenceEdge{
			From: unfold.JobKey{TaskID: int(v[0]), JobID: v[1]},
			To:   unfold.JobKey{TaskID: int(v[2]), JobID: v[3]},
		})
		return nil
	})
	return edges, err
}

// ResolveActivations 依据作业集补全前驱边的激活序号
func ResolveActivations(edges []unfold.PrecedenceEdge, jobs []unfold.Job) {
	activation := make(map[unfold.JobKey]int64, len(jobs))
	for _, j := range jobs {
		activation[j.Key()] = j.Activation
	}
	for i := range edges {
		edges[i].Activation = activation[edges[i].From]
	}
}

// ReadAborts 读取中止动作文件
func ReadAborts(r io.Reader) ([]analysis.AbortAction, error) {
	aborts := make([]analysis.AbortAction, 0)
	err := readRows(r, AbortColumns, func(_ int, v []int64) error {
		aborts = append(aborts, analysis.AbortAction{
			TaskID:          int(v[0]),
			JobID:           v[1],
			EarliestTrigger: v[2],
			LatestTrigger:   v[3],
			EarliestCleanup: v[4],
			LatestCleanup:   v[5],
		})
		return nil
	})
	return aborts, err
}

// ReadResponseTimes 读取引擎输出的响应时间文件
func ReadResponseTimes(r io.Reader) ([]ResponseTime, error) {
	rows := make([]ResponseTime, 0)
	err := readRows(r, ResponseTimeColumns, func(_ int, v []int64) error {
		rows = append(rows, ResponseTime{
			TaskID: int(v[0]),
			JobID:  v[1],
			BCCT:   v[2],
			WCCT:   v[3],
			BCRT:   v[4],
			WCRT:   v[5],
		})
		return nil
	})
	return rows, err
}
