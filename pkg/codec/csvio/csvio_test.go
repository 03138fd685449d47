package csvio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/dagsched/pkg/core/analysis"
	"github.com/LENAX/dagsched/pkg/core/taskset"
	"github.com/LENAX/dagsched/pkg/core/unfold"
)

func referenceJobSet(t *testing.T) *unfold.JobSet {
	t.Helper()
	add := func(task *taskset.Task, id int, cost int64, succ ...int) {
		_, err := task.AddSubTask(id, cost, succ...)
		require.NoError(t, err)
	}
	a := taskset.NewTask("A", 10, 10)
	add(a, 0, 1)
	b := taskset.NewTask("B", 30, 30)
	add(b, 0, 7, 1)
	add(b, 1, 1)
	c := taskset.NewTask("C", 60, 60)
	add(c, 0, 3, 1, 2)
	add(c, 1, 2)
	add(c, 2, 1)

	set, err := unfold.Unfold(taskset.New(a, b, c))
	require.NoError(t, err)
	return set
}

const referenceJobsCSV = `Task ID, Job ID, Arrival min, Arrival max, Cost min, Cost max, Deadline, Priority
0, 1, 0, 0, 1, 1, 10, 10
0, 2, 10, 10, 1, 1, 20, 10
0, 3, 20, 20, 1, 1, 30, 10
0, 4, 30, 30, 1, 1, 40, 10
0, 5, 40, 40, 1, 1, 50, 10
0, 6, 50, 50, 1, 1, 60, 10
1, 7, 0, 0, 7, 7, 30, 30
1, 8, 0, 0, 1, 1, 30, 30
1, 9, 30, 30, 7, 7, 60, 30
1, 10, 30, 30, 1, 1, 60, 30
2, 11, 0, 0, 3, 3, 60, 60
2, 12, 0, 0, 2, 2, 60, 60
2, 13, 0, 0, 1, 1, 60, 60
`

const referencePrecedenceCSV = `Predecessor TID, Predecessor JID, Successor TID, Successor JID
1, 7, 1, 8
1, 9, 1, 10
2, 11, 2, 12
2, 11, 2, 13
`

func TestWriteJobs_Reference(t *testing.T) {
	set := referenceJobSet(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJobs(&buf, set.Jobs))
	assert.Equal(t, referenceJobsCSV, buf.String())

	buf.Reset()
	require.NoError(t, WritePrecedence(&buf, set.Edges))
	assert.Equal(t, referencePrecedenceCSV, buf.String())
}

func TestWriteAborts_EmptyIsHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAborts(&buf, nil))
	assert.Equal(t, "Task ID, Job ID, Earliest Trigger, Latest Trigger, Earliest Cleanup, Latest Cleanup\n", buf.String())

	aborts, err := ReadAborts(&buf)
	require.NoError(t, err)
	assert.Empty(t, aborts)
}

func TestReadJobs_ReadsWrittenFile(t *testing.T) {
	set := referenceJobSet(t)
	jobs, err := ReadJobs(strings.NewReader(referenceJobsCSV))
	require.NoError(t, err)
	require.Len(t, jobs, len(set.Jobs))
	for i, j := range jobs {
		want := set.Jobs[i]
		assert.Equal(t, want.Key(), j.Key())
		assert.Equal(t, want.ArrivalMin, j.ArrivalMin)
		assert.Equal(t, want.CostMax, j.CostMax)
		assert.Equal(t, want.Deadline, j.Deadline)
		assert.Equal(t, want.Priority, j.Priority)
	}

	edges, err := ReadPrecedence(strings.NewReader(referencePrecedenceCSV))
	require.NoError(t, err)
	ResolveActivations(edges, set.Jobs)
	assert.Equal(t, set.Edges, edges)
}

func TestReadJobs_PaddedHeader(t *testing.T) {
	input := "   Task ID,     Job ID,          Arrival min,          Arrival max,             Cost min,             Cost max,             Deadline,             Priority\n" +
		"0, 1, 0, 0, 1, 1, 10, 10\n"
	jobs, err := ReadJobs(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(10), jobs[0].Deadline)
}

func TestRead_HeaderMismatch(t *testing.T) {
	_, err := ReadJobs(strings.NewReader("Task ID, Job ID\n0, 1\n"))
	assert.ErrorIs(t, err, ErrHeaderMismatch)

	_, err = ReadPrecedence(strings.NewReader("Predecessor TID, Predecessor JID, Successor JID, Successor TID\n"))
	assert.ErrorIs(t, err, ErrHeaderMismatch)
	assert.Contains(t, err.Error(), "Successor TID")

	_, err = ReadAborts(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrHeaderMismatch)
}

func TestRead_MalformedRow(t *testing.T) {
	_, err := ReadPrecedence(strings.NewReader(Header(PrecedenceColumns) + "\n1, 7, 1\n"))
	assert.ErrorIs(t, err, ErrMalformedRow)

	_, err = ReadPrecedence(strings.NewReader(Header(PrecedenceColumns) + "\n1, x, 1, 8\n"))
	assert.ErrorIs(t, err, ErrMalformedRow)
	assert.Contains(t, err.Error(), "第 2 行")
}

func TestResponseTimes(t *testing.T) {
	rows := []ResponseTime{
		{TaskID: 0, JobID: 1, BCCT: 1, WCCT: 1, BCRT: 1, WCRT: 1},
		{TaskID: 1, JobID: 9, BCCT: 37, WCCT: 38, BCRT: 7, WCRT: 8},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteResponseTimes(&buf, rows))
	assert.True(t, strings.HasPrefix(buf.String(), "Task ID, Job ID, BCCT, WCCT, BCRT, WCRT\n"))

	got, err := ReadResponseTimes(&buf)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
	assert.Equal(t, unfold.JobKey{TaskID: 1, JobID: 9}, got[1].Key())
}

func TestReadAborts(t *testing.T) {
	input := Header(AbortColumns) + "\n1, 9, 35, 36, 40, 41\n"
	aborts, err := ReadAborts(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []analysis.AbortAction{{
		TaskID: 1, JobID: 9, EarliestTrigger: 35, LatestTrigger: 36, EarliestCleanup: 40, LatestCleanup: 41,
	}}, aborts)
}
