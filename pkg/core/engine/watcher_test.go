package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTasksetWatcher_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeTaskset(t, dir, "ref.yaml", referenceYAML)
	other := writeTaskset(t, dir, "other.yaml", referenceYAML)

	changed := make(chan string, 4)
	w, err := NewTasksetWatcher(func(p string) { changed <- p }, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Add(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// 未监听的文件不触发
	require.NoError(t, os.WriteFile(other, []byte(referenceYAML+"\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(referenceYAML+"\n"), 0o644))

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	select {
	case got := <-changed:
		require.Equal(t, abs, got)
	case <-time.After(3 * time.Second):
		t.Fatal("等待文件变化超时")
	}
}
