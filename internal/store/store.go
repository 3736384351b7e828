// Package store は端末ローカルの永続キーバリューストアを提供する。
// ブラウザのlocalStorage相当で、単一のJSONファイルにキーと値のペアを保持する。
// 書き込みは一時ファイルへの書き出しとリネームによるアトミック置換で行う。
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// KV はキーバリューストアのインターフェースを定義する。
// 設定の永続化とセッショントークンの保存に使用される。
type KV interface {
	// Get はキーに対応する値を返す。キーが存在しない場合はok=falseを返す。
	Get(key string) (value string, ok bool)
	// Set はキーに値を保存する。既存の値は全体が上書きされる。
	Set(key, value string) error
	// Delete はキーを削除する。存在しないキーの削除はエラーにならない。
	Delete(key string) error
}

// FileStore はKVのファイル実装。
// 全キーをメモリに保持し、変更のたびにファイル全体を書き直す。
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

var _ KV = (*FileStore)(nil)

// Open は指定パスのストアを開く。
// ファイルが存在しない場合は空のストアとして開始する。
// ファイルが読み取れない、またはJSONとして解釈できない場合はエラーを返す。
func Open(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		data: make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}

	return s, nil
}

// Get はキーに対応する値を返す。
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	return v, ok
}

// Set はキーに値を保存し、ストア全体をディスクに書き出す。
// 書き込みに失敗した場合、メモリ上の値は変更前の状態に戻る。
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.data[key]
	s.data[key] = value

	if err := s.flushLocked(); err != nil {
		if existed {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

// Delete はキーを削除し、ストア全体をディスクに書き出す。
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.data[key]
	if !existed {
		return nil
	}
	delete(s.data, key)

	if err := s.flushLocked(); err != nil {
		s.data[key] = prev
		return err
	}
	return nil
}

// flushLocked はストア全体を一時ファイルに書き出し、リネームで置き換える。
// 呼び出し元がmuを保持していること。
func (s *FileStore) flushLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".store-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
