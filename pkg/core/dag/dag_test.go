package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDAG(t *testing.T) {
	d, err := BuildDAG([]string{"0", "1", "2"}, map[string][]string{
		"0": {"1", "2"},
		"1": {"2"},
	})
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.Equal(t, 3, d.Order())
	assert.True(t, d.Contains("1"))
	assert.False(t, d.Contains("9"))

	children, err := d.GetChildren("0")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, children)

	parents, err := d.GetParents("2")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, parents)

	assert.Equal(t, []string{"0"}, d.GetRoots())
}

func TestBuildDAG_DuplicateEdgeAddedOnce(t *testing.T) {
	d, err := BuildDAG([]string{"a", "b"}, map[string][]string{"a": {"b", "b"}})
	require.NoError(t, err)

	children, err := d.GetChildren("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, children)
}

func TestBuildDAG_DuplicateNode(t *testing.T) {
	_, err := BuildDAG([]string{"a", "a"}, nil)
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestBuildDAG_UnknownSuccessor(t *testing.T) {
	_, err := BuildDAG([]string{"a"}, map[string][]string{"a": {"b"}})
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestBuildDAG_HasCycle(t *testing.T) {
	_, err := BuildDAG([]string{"a", "b", "c"}, map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	})
	assert.ErrorIs(t, err, ErrCycle)
}

func TestBuildDAG_SelfLoop(t *testing.T) {
	_, err := BuildDAG([]string{"a"}, map[string][]string{"a": {"a"}})
	assert.ErrorIs(t, err, ErrCycle)
}

func TestTopologicalSort(t *testing.T) {
	d, err := BuildDAG([]string{"task1", "task2", "task3", "task4"}, map[string][]string{
		"task1": {"task2", "task3"},
		"task2": {"task4"},
		"task3": {"task4"},
	})
	require.NoError(t, err)

	result, err := d.TopologicalSort()
	require.NoError(t, err)
	require.Len(t, result.Levels, 3)

	assert.Equal(t, []string{"task1"}, result.Levels[0])
	assert.Equal(t, []string{"task2", "task3"}, result.Levels[1])
	assert.Equal(t, []string{"task4"}, result.Levels[2])
	assert.Equal(t, []string{"task1", "task2", "task3", "task4"}, result.Flatten())
}

func TestTopologicalSort_Independent(t *testing.T) {
	d, err := BuildDAG([]string{"c", "a", "b"}, nil)
	require.NoError(t, err)

	result, err := d.TopologicalSort()
	require.NoError(t, err)
	require.Len(t, result.Levels, 1)
	// 同层保持插入顺序
	assert.Equal(t, []string{"c", "a", "b"}, result.Levels[0])
	assert.NoError(t, d.DetectCycle())
}

func TestTemplateNode_HashByID(t *testing.T) {
	a, err := (&templateNode{id: "a", index: 0}).Hash()
	require.NoError(t, err)
	b, err := (&templateNode{id: "b", index: 0}).Hash()
	require.NoError(t, err)
	again, err := (&templateNode{id: "a", index: 5}).Hash()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, again)
}

func TestBuildDAG_ManyNodes(t *testing.T) {
	ids := []string{"0", "1", "2", "3", "4"}
	d, err := BuildDAG(ids, map[string][]string{"0": {"1"}, "1": {"2"}})
	require.NoError(t, err)
	assert.Equal(t, len(ids), d.Order())
	assert.Equal(t, []string{"0", "3", "4"}, d.GetRoots())
}
