package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/creditsync/internal/domain"
	"github.com/John-Robertt/creditsync/internal/infra/fsx"
)

// Store 提供 <cache_dir>/<provider>/<title id>.{html,json} 的页面缓存读写。
//
// 运行时只读回 HTML 并重新抽取（抽取规则更新后缓存依然可用）；
// JSON 是同一次抽取结果的快照，只写不读，供人工检查。
//
// 约束：
// - Root 为空表示禁用缓存：读总是未命中，写是 no-op
// - ReadOnly=true 时只允许读（用于复现一次历史抓取）
type Store struct {
	Root     string
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	root = strings.TrimSpace(root)
	if root != "" {
		root = filepath.Clean(root)
	}
	return Store{Root: root, ReadOnly: readOnly}
}

func (s Store) Enabled() bool { return s.Root != "" }

// HTMLPath 返回详情页 HTML 缓存的路径。
func (s Store) HTMLPath(provider string, id domain.TitleID) (string, error) {
	return s.path(provider, id, ".html")
}

func (s Store) ReadHTML(provider string, id domain.TitleID) ([]byte, bool, error) {
	return s.read(provider, id, ".html")
}

func (s Store) WriteHTML(provider string, id domain.TitleID, html []byte) error {
	return s.write(provider, id, ".html", html)
}

func (s Store) WriteJSON(provider string, id domain.TitleID, b []byte) error {
	return s.write(provider, id, ".json", b)
}

func (s Store) path(provider string, id domain.TitleID, ext string) (string, error) {
	if !s.Enabled() {
		return "", errors.New("cache 未启用")
	}
	p, err := cleanProvider(provider)
	if err != nil {
		return "", err
	}
	if _, ok := domain.ParseTitleID(string(id)); !ok {
		return "", fmt.Errorf("非法 title id：%q", id)
	}
	return filepath.Join(s.Root, p, string(id)+ext), nil
}

func (s Store) read(provider string, id domain.TitleID, ext string) ([]byte, bool, error) {
	if !s.Enabled() {
		return nil, false, nil
	}
	path, err := s.path(provider, id, ext)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s Store) write(provider string, id domain.TitleID, ext string, b []byte) error {
	if !s.Enabled() {
		return nil
	}
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.path(provider, id, ext)
	if err != nil {
		return err
	}
	return fsx.WriteFile(path, b)
}

var providerNameRE = regexp.MustCompile(`^[a-z0-9_]+$`)

func cleanProvider(p string) (string, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "", fmt.Errorf("provider 不能为空")
	}
	// 最小约束：避免路径穿越。
	if !providerNameRE.MatchString(p) {
		return "", fmt.Errorf("非法 provider：%q", p)
	}
	return p, nil
}
