package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_MissingFile_StartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, ok := s.Get("anything"); ok {
		t.Error("expected empty store for missing file")
	}
}

func TestOpen_CorruptFile_ReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("expected error for corrupt store file")
	}
}

func TestSet_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Set("logimind-settings", `{"theme":"dark"}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// 再オープンしても値が残っていること
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	v, ok := s2.Get("logimind-settings")
	if !ok {
		t.Fatal("expected key to survive reopen")
	}
	if v != `{"theme":"dark"}` {
		t.Errorf("Get() = %q, want %q", v, `{"theme":"dark"}`)
	}
}

func TestSet_OverwritesPreviousValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Set("key", "first"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set("key", "second"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	v, _ := s.Get("key")
	if v != "second" {
		t.Errorf("Get() = %q, want %q", v, "second")
	}
}

func TestSet_UnwritableDirectory_ReturnsErrorAndKeepsOldValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Set("key", "kept"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// ディレクトリを読み取り専用にして書き込みを失敗させる
	if err := os.Chmod(dir, 0o500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0o700) })

	if err := s.Set("key", "lost"); err == nil {
		t.Skip("filesystem permits write despite read-only directory")
	}

	// メモリ上の値が巻き戻っていること
	v, _ := s.Get("key")
	if v != "kept" {
		t.Errorf("Get() = %q, want %q after failed write", v, "kept")
	}
}

func TestDelete_MissingKey_IsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Delete("missing"); err != nil {
		t.Errorf("Delete() error = %v, want nil", err)
	}
}
