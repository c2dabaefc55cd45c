package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/creditsync/internal/domain"
)

func TestStore_ReadWriteHTML(t *testing.T) {
	root := t.TempDir()
	id := domain.TitleID("tt9999991")

	s := New(root, false)
	if err := s.WriteHTML("imdb", id, []byte("<html/>")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, ok, err := s.ReadHTML("imdb", id)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !ok {
		t.Fatalf("期望命中缓存，但 ok=false")
	}
	if string(b) != "<html/>" {
		t.Fatalf("内容不一致：%q", string(b))
	}

	path, err := s.HTMLPath("imdb", id)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if path != filepath.Join(root, "imdb", "tt9999991.html") {
		t.Fatalf("缓存路径不符合预期：%q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("期望文件存在，但 Stat 失败：%v", err)
	}

	jsonPath, err := s.path("imdb", id, ".json")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(jsonPath); !os.IsNotExist(err) {
		t.Fatalf("未写入的 JSON 不应存在，但 Stat err=%v", err)
	}
}

func TestStore_ReadOnlyRejectWrite(t *testing.T) {
	root := t.TempDir()
	id := domain.TitleID("tt9999991")

	s := New(root, true)
	err := s.WriteJSON("imdb", id, []byte(`{"ok":true}`))
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("期望 ErrReadOnly，实际：%v", err)
	}

	path, err := s.path("imdb", id, ".json")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("期望文件不存在，但 Stat err=%v", err)
	}
}

func TestStore_DisabledIsNoop(t *testing.T) {
	s := New("  ", false)
	if s.Enabled() {
		t.Fatalf("空 Root 应禁用缓存")
	}
	if err := s.WriteHTML("imdb", "tt9999991", []byte("x")); err != nil {
		t.Fatalf("禁用时写入应为 no-op，实际 %v", err)
	}
	if _, ok, err := s.ReadHTML("imdb", "tt9999991"); ok || err != nil {
		t.Fatalf("禁用时读取应未命中：ok=%v err=%v", ok, err)
	}
}

func TestStore_RejectsUnsafeKeys(t *testing.T) {
	s := New(t.TempDir(), false)
	if _, err := s.HTMLPath("../etc", "tt9999991"); err == nil {
		t.Fatalf("非法 provider 应报错")
	}
	if _, err := s.HTMLPath("imdb", "../../tt1"); err == nil {
		t.Fatalf("非法 title id 应报错")
	}
}
