package provider

import (
	"context"

	"github.com/John-Robertt/creditsync/internal/domain"
	"github.com/John-Robertt/creditsync/internal/infra/httpx"
)

// Getter 是显式注入的页面抓取器。限速/代理/UA/重试都在 Getter 内部完成。
type Getter interface {
	Get(ctx context.Context, u string) (*httpx.Response, error)
}

// Source 把“站点变化”限制在子包内部；核心流程只依赖这组 URL 规则与纯解析函数。
//
// 约束：
// - Source 不做网络请求（抓取由本包的 Search/Credits/Project/Filmography 统一完成）
// - Parse* 必须是纯函数：相同输入 => 相同输出
// - 单个字段解析失败时回退缺省值，不让整条记录失败
type Source interface {
	Name() string
	SearchURL(title string) string
	TitleURL(id domain.TitleID) string

	ParseSearch(html []byte, pageURL string) ([]domain.Candidate, error)
	// ParseCredits 返回演职员名单条目的文本；页面没有名单结构时返回错误。
	ParseCredits(html []byte) ([]string, error)
	ParseProject(id domain.TitleID, html []byte, pageURL string) (domain.ProjectRecord, error)
	// ParseFilmography 返回人物页上所有作品链接（绝对 URL，保持页面顺序，可能重复）。
	ParseFilmography(html []byte, pageURL string) ([]string, error)
}
