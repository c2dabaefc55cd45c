package planner

import (
	"strings"

	"github.com/John-Robertt/creditsync/internal/domain"
	"github.com/John-Robertt/creditsync/internal/portfolio"
)

// 跳过原因（写入 report 的 error_msg）。
const (
	SkipNoURL    = "缺少 imdb_url"
	SkipBadURL   = "imdb_url 中没有 title id"
	SkipComplete = "director 与 production_company 已填写"
)

// EnrichPlan 是单个作品集条目的补全计划（不做任何网络请求或写入）。
type EnrichPlan struct {
	Index int
	Title string
	URL   string
	ID    domain.TitleID

	NeedDirector bool
	NeedCompany  bool

	// SkipReason 非空表示该条目不需要抓取。
	SkipReason string
}

func (p EnrichPlan) Skip() bool { return p.SkipReason != "" }

// PlanEnrich 基于条目现状生成确定性的补全计划（与输入顺序一致）。
func PlanEnrich(entries []portfolio.Entry) []EnrichPlan {
	plans := make([]EnrichPlan, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		title, _ := e.String(portfolio.KeyTitle)
		u, _ := e.String(portfolio.KeyIMDbURL)
		p := EnrichPlan{
			Index:        i,
			Title:        strings.TrimSpace(title),
			URL:          strings.TrimSpace(u),
			NeedDirector: e.Missing(portfolio.KeyDirector),
			NeedCompany:  e.Missing(portfolio.KeyProductionCompany),
		}

		switch {
		case p.URL == "":
			p.SkipReason = SkipNoURL
		case !p.NeedDirector && !p.NeedCompany:
			p.SkipReason = SkipComplete
		default:
			id, ok := domain.TitleIDFromURL(p.URL)
			if !ok {
				p.SkipReason = SkipBadURL
				break
			}
			p.ID = id
		}
		plans = append(plans, p)
	}
	return plans
}

// PlanScrape 把人物页上的作品链接折叠为去重后的 title id（保持首次出现的顺序）。
// 无法识别 title id 的链接被丢弃。
func PlanScrape(links []string) []domain.TitleID {
	seen := make(map[domain.TitleID]struct{}, len(links))
	out := make([]domain.TitleID, 0, len(links))
	for _, l := range links {
		id, ok := domain.TitleIDFromURL(l)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
