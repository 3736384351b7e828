// Package scheme はOSの配色設定（prefers-color-scheme相当）のシグナルを提供する。
// デスクトップ環境が書き出す設定ファイルを監視し、ダーク/ライトの現在値と
// 変更通知を公開する。
package scheme

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Monitor は配色設定ファイルを監視するシグナル実装。
// ファイル内容の先頭トークンが "dark" の場合にダーク選好とみなす。
// パスが空の場合は監視を行わず、常にライト選好を報告する。
type Monitor struct {
	path    string
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu        sync.Mutex
	dark      bool
	listeners map[int]func(dark bool)
	nextID    int

	done chan struct{}
}

// NewMonitor はMonitorを生成し、ファイル監視を開始する。
// 設定ファイルが存在しない場合はライト選好として開始し、作成を待ち受ける。
func NewMonitor(path string, logger *slog.Logger) (*Monitor, error) {
	m := &Monitor{
		path:      path,
		logger:    logger,
		listeners: make(map[int]func(bool)),
		done:      make(chan struct{}),
	}

	if path == "" {
		return m, nil
	}

	m.dark = readDark(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// アトミックなリネームで置き換えられるファイル自体ではなく、親ディレクトリを監視する
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}
	m.watcher = watcher

	go m.watch()

	return m, nil
}

// Dark は現在のOS配色がダーク選好かを返す。
func (m *Monitor) Dark() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dark
}

// Subscribe は配色変更の通知を購読し、解除関数を返す。
func (m *Monitor) Subscribe(fn func(dark bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.listeners, id)
		})
	}
}

// Close はファイル監視を停止する。
func (m *Monitor) Close() error {
	close(m.done)
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

// watch はファイル変更イベントを受けて配色を再読み込みする。
func (m *Monitor) watch() {
	for {
		select {
		case <-m.done:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(m.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			m.reload()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("scheme watcher error",
				slog.String("error", err.Error()),
			)
		}
	}
}

// reload はファイルを読み直し、値が変わっていれば購読者に通知する。
func (m *Monitor) reload() {
	dark := readDark(m.path)

	m.mu.Lock()
	if dark == m.dark {
		m.mu.Unlock()
		return
	}
	m.dark = dark
	fns := make([]func(bool), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(dark)
	}
}

// readDark はファイル内容からダーク選好かを判定する。
// 読み取れない場合はライト選好として扱う。
func readDark(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(string(raw)), "dark")
}
