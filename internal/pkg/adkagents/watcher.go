package adkagents

import (
	"os"
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// FileWatcher 轮询单个文件的修改时间
type FileWatcher struct {
	path     string
	interval time.Duration
	onChange func(path string)

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mutex   sync.Mutex
	modTime time.Time
}

func NewFileWatcher(path string, interval time.Duration, onChange func(path string)) *FileWatcher {
	return &FileWatcher{
		path:     path,
		interval: interval,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}
}

// Start 记录当前修改时间后开始轮询，启动时不触发回调
func (w *FileWatcher) Start() error {
	info, err := os.Stat(w.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if err == nil {
		w.modTime = info.ModTime()
	}

	w.wg.Add(1)
	go w.run()

	klog.V(6).Infof("[FileWatcher] 开始监听: path=%s, interval=%v", w.path, w.interval)
	return nil
}

func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		klog.V(6).Infof("[FileWatcher] 停止监听: path=%s", w.path)
	})
}

func (w *FileWatcher) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check 文件被删除时保持现有定义，重新出现时视为修改
func (w *FileWatcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		if !os.IsNotExist(err) {
			klog.Warningf("[FileWatcher] 读取文件状态失败: path=%s, err=%v", w.path, err)
		}
		return
	}

	w.mutex.Lock()
	changed := !info.ModTime().Equal(w.modTime)
	w.modTime = info.ModTime()
	w.mutex.Unlock()

	if changed {
		klog.V(6).Infof("[FileWatcher] 文件已修改: path=%s", w.path)
		w.onChange(w.path)
	}
}
