package engine

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/LENAX/dagsched/internal/logx"
)

// DefaultDebounce 文件变化的合并窗口
const DefaultDebounce = 200 * time.Millisecond

// TasksetWatcher 监听任务集文件变化（对外导出）
// 监听文件所在目录而不是文件本身，编辑器以重命名方式保存时仍能收到事件
type TasksetWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(path string)
	files    map[string]struct{} // 绝对路径
	mu       sync.Mutex
}

// NewTasksetWatcher 创建监听器，onChange 在窗口内最后一次变化后调用
func NewTasksetWatcher(onChange func(path string), debounce time.Duration) (*TasksetWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &TasksetWatcher{
		watcher:  watcher,
		debounce: debounce,
		onChange: onChange,
		files:    make(map[string]struct{}),
	}, nil
}

// Add 加入监听文件
func (w *TasksetWatcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.files[abs] = struct{}{}
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return nil
}

func (w *TasksetWatcher) watched(name string) (string, bool) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[abs]
	return abs, ok
}

// Run 处理文件事件直到 ctx 取消或监听器关闭
func (w *TasksetWatcher) Run(ctx context.Context) error {
	pending := make(map[string]*time.Timer)
	fired := make(chan string, 16)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			path, ok := w.watched(event.Name)
			if !ok {
				continue
			}
			logx.Debugf("[文件监听] event=%s file=%s", event.Op, path)
			if t, exists := pending[path]; exists {
				t.Reset(w.debounce)
				continue
			}
			pending[path] = time.AfterFunc(w.debounce, func() {
				select {
				case fired <- path:
				case <-ctx.Done():
				}
			})
		case path := <-fired:
			delete(pending, path)
			w.onChange(path)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("❌ [文件监听] fsnotify error=%v", err)
		}
	}
}

// Close 关闭监听器
func (w *TasksetWatcher) Close() error {
	return w.watcher.Close()
}
