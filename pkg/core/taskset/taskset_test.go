package taskset

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainTask(t *testing.T, name string, period, deadline int64, costs ...int64) *Task {
	t.Helper()
	task := NewTask(name, period, deadline)
	for i, c := range costs {
		var succ []int
		if i+1 < len(costs) {
			succ = []int{i + 1}
		}
		_, err := task.AddSubTask(i, c, succ...)
		require.NoError(t, err)
	}
	return task
}

func TestHyperperiod(t *testing.T) {
	ts := New(
		chainTask(t, "A", 10, 10, 1),
		chainTask(t, "B", 30, 30, 7),
		chainTask(t, "C", 60, 60, 3),
	)

	hp, err := ts.Hyperperiod()
	require.NoError(t, err)
	assert.Equal(t, int64(60), hp)
}

func TestHyperperiod_Coprime(t *testing.T) {
	ts := New(chainTask(t, "A", 4, 4, 1), chainTask(t, "B", 6, 6, 1), chainTask(t, "C", 7, 7, 1))

	hp, err := ts.Hyperperiod()
	require.NoError(t, err)
	assert.Equal(t, int64(84), hp)
	for _, task := range ts.Tasks() {
		assert.Zero(t, hp%task.Period())
	}
}

func TestHyperperiod_RecomputedAfterMutation(t *testing.T) {
	ts := New(chainTask(t, "A", 10, 10, 1))
	hp, err := ts.Hyperperiod()
	require.NoError(t, err)
	assert.Equal(t, int64(10), hp)

	ts.Add(chainTask(t, "B", 25, 25, 1))
	hp, err = ts.Hyperperiod()
	require.NoError(t, err)
	assert.Equal(t, int64(50), hp)
}

func TestHyperperiod_Errors(t *testing.T) {
	_, err := New().Hyperperiod()
	assert.ErrorIs(t, err, ErrEmptyTaskset)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = New(chainTask(t, "A", 0, 10, 1)).Hyperperiod()
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = New(chainTask(t, "A", -5, 10, 1)).Hyperperiod()
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	big := int64(math.MaxInt64/2 + 1)
	_, err = New(chainTask(t, "A", big, 1, 1), chainTask(t, "B", 3, 1, 1)).Hyperperiod()
	assert.ErrorIs(t, err, ErrHyperperiodOverflow)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestLCM(t *testing.T) {
	cases := []struct {
		a, b, want int64
	}{
		{1, 1, 1},
		{4, 6, 12},
		{10, 30, 30},
		{7, 60, 420},
		{1000000, 999999, 999999000000},
	}
	for _, c := range cases {
		got, err := LCM(c.a, c.b)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "lcm(%d,%d)", c.a, c.b)
	}
}

func TestTask_AddSubTask(t *testing.T) {
	task := NewTask("A", 10, 10)
	v, err := task.AddSubTask(3, 2, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, v.ID())
	assert.Equal(t, int64(2), v.Cost())
	assert.Equal(t, []int{4, 5}, v.Successors())

	_, err = task.AddSubTask(3, 1)
	assert.ErrorIs(t, err, ErrDuplicateSubTask)

	_, err = task.AddSubTask(9, -1)
	assert.ErrorIs(t, err, ErrInvalidCost)

	// 零执行时间允许
	_, err = task.AddSubTask(10, 0)
	assert.NoError(t, err)

	idx, ok := task.IndexOf(10)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestTask_Validate(t *testing.T) {
	assert.NoError(t, chainTask(t, "ok", 10, 10, 1, 2, 3).Validate())
	assert.NoError(t, NewTask("empty", 10, 10).Validate())

	assert.ErrorIs(t, chainTask(t, "p", 0, 10, 1).Validate(), ErrInvalidPeriod)
	assert.ErrorIs(t, chainTask(t, "d", 10, 0, 1).Validate(), ErrInvalidDeadline)

	unknown := NewTask("unknown", 10, 10)
	_, err := unknown.AddSubTask(0, 1, 7)
	require.NoError(t, err)
	assert.ErrorIs(t, unknown.Validate(), ErrUnknownSuccessor)

	cyclic := NewTask("cyclic", 10, 10)
	_, err = cyclic.AddSubTask(0, 1, 1)
	require.NoError(t, err)
	_, err = cyclic.AddSubTask(1, 1, 0)
	require.NoError(t, err)
	err = cyclic.Validate()
	assert.ErrorIs(t, err, ErrCyclicTemplate)
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestTask_Template(t *testing.T) {
	task := NewTask("fork", 20, 20)
	for _, v := range []struct {
		id   int
		succ []int
	}{{0, []int{1, 2}}, {1, []int{3}}, {2, []int{3}}, {3, nil}} {
		_, err := task.AddSubTask(v.id, 1, v.succ...)
		require.NoError(t, err)
	}

	d, err := task.Template()
	require.NoError(t, err)
	order, err := d.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"0"}, {"1", "2"}, {"3"}}, order.Levels)
	assert.Equal(t, 4, task.EdgeCount())
}

func TestTaskset_Validate(t *testing.T) {
	assert.ErrorIs(t, New().Validate(), ErrEmptyTaskset)

	ts := New(chainTask(t, "A", 10, 10, 1), chainTask(t, "B", 10, -1, 1))
	err := ts.Validate()
	assert.ErrorIs(t, err, ErrInvalidDeadline)
	assert.Contains(t, err.Error(), "tasks[1]")
}

func TestTaskset_Fingerprint(t *testing.T) {
	a := New(chainTask(t, "A", 10, 10, 1, 2))
	b := New(chainTask(t, "renamed", 10, 10, 1, 2))
	c := New(chainTask(t, "A", 10, 10, 1, 3))

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.Fingerprint(), 32)
}
