package csvio

import (
	"bufio"
	"io"
	"strconv"

	"github.com/LENAX/dagsched/pkg/core/analysis"
	"github.com/LENAX/dagsched/pkg/core/unfold"
)

// rowWriter 按 ", " 分隔写出整数行
type rowWriter struct {
	w   *bufio.Writer
	buf []byte
}

func newRowWriter(w io.Writer) *rowWriter {
	return &rowWriter{w: bufio.NewWriter(w), buf: make([]byte, 0, 128)}
}

func (rw *rowWriter) header(columns []string) error {
	if _, err := rw.w.WriteString(Header(columns)); err != nil {
		return err
	}
	return rw.w.WriteByte('\n')
}

func (rw *rowWriter) row(values ...int64) error {
	rw.buf = rw.buf[:0]
	for i, v := range values {
		if i > 0 {
			rw.buf = append(rw.buf, ',', ' ')
		}
		rw.buf = strconv.AppendInt(rw.buf, v, 10)
	}
	rw.buf = append(rw.buf, '\n')
	_, err := rw.w.Write(rw.buf)
	return err
}

// WriteJobs 写出作业文件
func WriteJobs(w io.Writer, jobs []unfold.Job) error {
	rw := newRowWriter(w)
	if err := rw.header(JobColumns); err != nil {
		return err
	}
	for _, j := range jobs {
		if err := rw.row(int64(j.TaskID), j.JobID, j.ArrivalMin, j.ArrivalMax,
			j.CostMin, j.CostMax, j.Deadline, j.Priority); err != nil {
			return err
		}
	}
	return rw.w.Flush()
}

// WritePrecedence 写出前驱约束文件，没有边时只有表头
func WritePrecedence(w io.Writer, edges []unfold.PrecedenceEdge) error {
	rw := newRowWriter(w)
	if err := rw.header(PrecedenceColumns); err != nil {
		return err
	}
	for _, e := range edges {
		if err := rw.row(int64(e.From.TaskID), e.From.JobID, int64(e.To.TaskID), e.To.JobID); err != nil {
			return err
		}
	}
	return rw.w.Flush()
}

// WriteAborts 写出中止动作文件
func WriteAborts(w io.Writer, aborts []analysis.AbortAction) error {
	rw := newRowWriter(w)
	if err := rw.header(AbortColumns); err != nil {
		return err
	}
	for _, a := range aborts {
		if err := rw.row(int64(a.TaskID), a.JobID, a.EarliestTrigger, a.LatestTrigger,
			a.EarliestCleanup, a.LatestCleanup); err != nil {
			return err
		}
	}
	return rw.w.Flush()
}

// WriteResponseTimes 写出响应时间文件
func WriteResponseTimes(w io.Writer, rows []ResponseTime) error {
	rw := newRowWriter(w)
	if err := rw.header(ResponseTimeColumns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := rw.row(int64(r.TaskID), r.JobID, r.BCCT, r.WCCT, r.BCRT, r.WCRT); err != nil {
			return err
		}
	}
	return rw.w.Flush()
}
